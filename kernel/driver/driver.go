// Package driver implements the collaborator interfaces of §6: the
// firmware-level surface the core consumes but does not implement for
// real. Only in-memory/stdout default implementations are provided here,
// for tests and the cmd/vnixd demo boot glue.
package driver

import "time"

// Key is a console input event.
type Key struct {
	Kind byte // Esc, Up, Down, Left, Right, Char, Unknown
	Char rune
}

const (
	KeyEsc byte = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyChar
	KeyUnknown
)

// Console is the text I/O collaborator of §6.
type Console interface {
	Print(s string)
	Clear()
	GetKey(blocking bool) (Key, bool)
	Resolution() (cols, rows int)
	ResolutionList() [][2]int
	SetResolution(cols, rows int) error
}

// Color is a packed display pixel value.
type Color uint32

// MouseState is the Display collaborator's pointer sample.
type MouseState struct {
	DeltaX, DeltaY int
	ResX, ResY     int
	Buttons        uint8
}

// Display is the framebuffer collaborator of §6.
type Display interface {
	Resolution() (w, h int)
	ResolutionList() [][2]int
	SetResolution(w, h int) error
	Pixel(c Color, x, y int)
	Blit(x, y, w, h int, transparent Color, pixels []Color)
	Fill(f func(x, y int) Color)
	Flush()
	FlushBlock(x, y, w, h int)
	Mouse(blocking bool) (MouseState, bool)
}

// TimeUnit selects the resolution of an Uptime/Wait query.
type TimeUnit int

const (
	Micro TimeUnit = iota
	Milli
	Sec
	Min
	Hour
	Day
	Year
)

// Clock is the timing collaborator of §6.
type Clock interface {
	Start()
	Wait(d time.Duration)
	// WaitAsync returns a channel that closes once d has elapsed, the
	// resumable/non-blocking form tasks yield on.
	WaitAsync(d time.Duration) <-chan struct{}
	Uptime(unit TimeUnit) uint64
}

// Entropy is the randomness collaborator of §6.
type Entropy interface {
	FillBytes(b []byte) error
}

// MemUnit selects the unit of a Free query.
type MemUnit int

const (
	Bytes MemUnit = iota
	Kilo
	Mega
	Giga
)

// Mem is the memory-info collaborator of §6.
type Mem interface {
	Free(unit MemUnit) uint64
}
