package driver

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"vnix/kernel/kernerr"
)

// breaker wraps a driver call so a flapping collaborator trips instead of
// being hammered every scheduler tick; ErrOpenState surfaces as
// DriverError(Unavailable).
func breaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

func driverErr(sub string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return kernerr.DriverError("Unavailable", err)
	}
	return kernerr.DriverError(sub, err)
}

// StdConsole is a stdout/stdin-backed Console, breaker-wrapped.
type StdConsole struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
	cb  *gobreaker.CircuitBreaker
}

// NewStdConsole returns a Console writing to out and reading from in.
func NewStdConsole(out io.Writer, in io.Reader) *StdConsole {
	return &StdConsole{out: out, in: bufio.NewReader(in), cb: breaker("console")}
}

func (c *StdConsole) Print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.cb.Execute(func() (interface{}, error) {
		_, err := fmt.Fprint(c.out, s)
		return nil, err
	})
}

func (c *StdConsole) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.cb.Execute(func() (interface{}, error) {
		_, err := fmt.Fprint(c.out, "\033[2J\033[H")
		return nil, err
	})
}

func (c *StdConsole) GetKey(blocking bool) (Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !blocking && c.in.Buffered() == 0 {
		return Key{}, false
	}
	r, _, err := c.in.ReadRune()
	if err != nil {
		return Key{}, false
	}
	switch r {
	case 27:
		return Key{Kind: KeyEsc}, true
	default:
		return Key{Kind: KeyChar, Char: r}, true
	}
}

func (c *StdConsole) Resolution() (int, int)        { return 80, 24 }
func (c *StdConsole) ResolutionList() [][2]int       { return [][2]int{{80, 24}} }
func (c *StdConsole) SetResolution(cols, rows int) error {
	return kernerr.DriverError("Unsupported", nil)
}

// MemDisplay is an in-memory pixel buffer Display, breaker-wrapped.
type MemDisplay struct {
	mu     sync.Mutex
	w, h   int
	pixels []Color
	cb     *gobreaker.CircuitBreaker
}

// NewMemDisplay returns a Display backed by a w*h in-memory pixel buffer.
func NewMemDisplay(w, h int) *MemDisplay {
	return &MemDisplay{w: w, h: h, pixels: make([]Color, w*h), cb: breaker("display")}
}

func (d *MemDisplay) Resolution() (int, int)  { return d.w, d.h }
func (d *MemDisplay) ResolutionList() [][2]int { return [][2]int{{d.w, d.h}} }

func (d *MemDisplay) SetResolution(w, h int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.cb.Execute(func() (interface{}, error) {
		d.w, d.h = w, h
		d.pixels = make([]Color, w*h)
		return nil, nil
	})
	return err
}

func (d *MemDisplay) Pixel(c Color, x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if x < 0 || y < 0 || x >= d.w || y >= d.h {
		return
	}
	d.pixels[y*d.w+x] = c
}

func (d *MemDisplay) Blit(x, y, w, h int, transparent Color, pixels []Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			c := pixels[j*w+i]
			if c == transparent {
				continue
			}
			px, py := x+i, y+j
			if px >= 0 && py >= 0 && px < d.w && py < d.h {
				d.pixels[py*d.w+px] = c
			}
		}
	}
}

func (d *MemDisplay) Fill(f func(x, y int) Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for y := 0; y < d.h; y++ {
		for x := 0; x < d.w; x++ {
			d.pixels[y*d.w+x] = f(x, y)
		}
	}
}

func (d *MemDisplay) Flush()                        {}
func (d *MemDisplay) FlushBlock(x, y, w, h int)      {}
func (d *MemDisplay) Mouse(blocking bool) (MouseState, bool) {
	return MouseState{}, false
}

// SysClock is a wall-clock Clock backed by time.Now/time.Since.
type SysClock struct {
	start time.Time
}

// NewSysClock returns a Clock whose epoch begins at Start().
func NewSysClock() *SysClock { return &SysClock{} }

func (c *SysClock) Start()              { c.start = time.Now() }
func (c *SysClock) Wait(d time.Duration) { time.Sleep(d) }

func (c *SysClock) WaitAsync(d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		time.Sleep(d)
		close(ch)
	}()
	return ch
}

func (c *SysClock) Uptime(unit TimeUnit) uint64 {
	elapsed := time.Since(c.start)
	switch unit {
	case Micro:
		return uint64(elapsed.Microseconds())
	case Milli:
		return uint64(elapsed.Milliseconds())
	case Sec:
		return uint64(elapsed.Seconds())
	case Min:
		return uint64(elapsed.Minutes())
	case Hour:
		return uint64(elapsed.Hours())
	case Day:
		return uint64(elapsed.Hours() / 24)
	case Year:
		return uint64(elapsed.Hours() / 24 / 365)
	default:
		return 0
	}
}

// CryptoEntropy fills buffers from crypto/rand, breaker-wrapped against a
// starved entropy source.
type CryptoEntropy struct {
	cb   *gobreaker.CircuitBreaker
	read func([]byte) (int, error)
}

// NewCryptoEntropy returns an Entropy backed by readFn (crypto/rand.Read in
// production, swappable in tests).
func NewCryptoEntropy(readFn func([]byte) (int, error)) *CryptoEntropy {
	return &CryptoEntropy{cb: breaker("entropy"), read: readFn}
}

func (e *CryptoEntropy) FillBytes(b []byte) error {
	_, err := e.cb.Execute(func() (interface{}, error) {
		return e.read(b)
	})
	if err != nil {
		return driverErr("EntropySourceFailed", err)
	}
	return nil
}

// StaticMem reports a fixed memory budget, for tests and the demo boot glue.
type StaticMem struct {
	FreeBytes uint64
}

func (m StaticMem) Free(unit MemUnit) uint64 {
	switch unit {
	case Bytes:
		return m.FreeBytes
	case Kilo:
		return m.FreeBytes / 1024
	case Mega:
		return m.FreeBytes / 1024 / 1024
	case Giga:
		return m.FreeBytes / 1024 / 1024 / 1024
	default:
		return 0
	}
}
