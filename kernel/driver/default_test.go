package driver

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdConsolePrintAndGetKey(t *testing.T) {
	var out bytes.Buffer
	c := NewStdConsole(&out, strings.NewReader("ab"))

	c.Print("hello")
	assert.Equal(t, "hello", out.String())

	k, ok := c.GetKey(false)
	require.True(t, ok)
	assert.Equal(t, KeyChar, k.Kind)
	assert.Equal(t, 'a', k.Char)
}

func TestStdConsoleNonBlockingNoInput(t *testing.T) {
	var out bytes.Buffer
	c := NewStdConsole(&out, strings.NewReader(""))
	_, ok := c.GetKey(false)
	assert.False(t, ok)
}

func TestMemDisplayPixelAndBlit(t *testing.T) {
	d := NewMemDisplay(4, 4)
	d.Pixel(Color(7), 1, 1)
	assert.Equal(t, Color(7), d.pixels[1*4+1])

	d.Blit(2, 2, 2, 1, Color(9), []Color{Color(9), Color(5)})
	assert.Equal(t, Color(0), d.pixels[2*4+2], "transparent pixel must be skipped")
	assert.Equal(t, Color(5), d.pixels[2*4+3])

	w, h := d.Resolution()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
}

func TestSysClockUptimeAdvances(t *testing.T) {
	c := NewSysClock()
	c.Start()
	c.Wait(2 * time.Millisecond)
	assert.Greater(t, c.Uptime(Micro), uint64(0))
}

func TestCryptoEntropyFillBytes(t *testing.T) {
	e := NewCryptoEntropy(func(b []byte) (int, error) {
		for i := range b {
			b[i] = 0x42
		}
		return len(b), nil
	})
	buf := make([]byte, 4)
	require.NoError(t, e.FillBytes(buf))
	assert.Equal(t, []byte{0x42, 0x42, 0x42, 0x42}, buf)
}

func TestCryptoEntropyPropagatesFailure(t *testing.T) {
	e := NewCryptoEntropy(func(b []byte) (int, error) {
		return 0, errors.New("starved")
	})
	err := e.FillBytes(make([]byte, 1))
	assert.Error(t, err)
}

func TestStaticMemFree(t *testing.T) {
	m := StaticMem{FreeBytes: 2048}
	assert.Equal(t, uint64(2048), m.Free(Bytes))
	assert.Equal(t, uint64(2), m.Free(Kilo))
}
