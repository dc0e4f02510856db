package led

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/lumanet/internal/color"
	"github.com/coreman2200/lumanet/internal/dmx"
)

func TestScale(t *testing.T) {
	cases := []struct {
		c, b, expect uint8
	}{
		{255, 255, 255},
		{255, 0, 0},
		{0, 255, 0},
		{255, 128, 128},
		{100, 255, 100},
		{1, 128, 1},
		{1, 127, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, Scale(c.c, c.b), "%d*%d", c.c, c.b)
	}
}

func TestNewStripPlacesPixels(t *testing.T) {
	s := NewStrip("a", 25, 1, 76)
	require.Equal(t, 25, s.Len())
	assert.Equal(t, 76, s.Pixels[0].Address)
	assert.Equal(t, 79, s.Pixels[1].Address)
	assert.Equal(t, 1, s.Pixels[24].Universe)
	assert.Equal(t, 24, s.Pixels[24].Index)
}

func TestWriteToAppliesBothBrightnesses(t *testing.T) {
	s := NewStrip("a", 2, 1, 1)
	s.Set(0, color.RGB{R: 255, G: 100, B: 0}, 255)
	s.Set(1, color.RGB{R: 200, G: 200, B: 200}, 128)
	s.Brightness = 128

	f := dmx.NewFrame(1, 1)
	s.WriteTo(f)
	u := f.Universe(0)
	assert.Equal(t, []byte{128, 50, 0}, u[0:3])
	// 200*128 -> 100, then 100*128 -> 50
	assert.Equal(t, []byte{50, 50, 50}, u[3:6])
	assert.Equal(t, append(append([]byte{}, u[0:3]...), u[3:6]...), s.RGB())
}

func TestWriteToDropsUnallocatedUniverses(t *testing.T) {
	s := NewStrip("a", 200, 1, 1)
	s.Fill(color.White, 255)
	f := dmx.NewFrame(1, 1)
	s.WriteTo(f)
	assert.Equal(t, byte(255), f.Universe(0)[509])
	assert.Equal(t, byte(0), f.Universe(0)[510])
}

func TestSetIgnoresOutOfRange(t *testing.T) {
	s := NewStrip("a", 1, 1, 1)
	s.Set(5, color.White, 255)
	s.Set(-1, color.White, 255)
	assert.Equal(t, color.Black, s.Pixels[0].Color)
}

func TestSPIMirror(t *testing.T) {
	buf := bytes.Buffer{}
	s, err := newSPI(spitest.NewRecordRaw(&buf), 3, 0)
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte{255, 0, 0, 0, 255, 0, 0, 0, 255}))
	assert.NotZero(t, buf.Len())
	assert.Error(t, s.Write([]byte{1, 2, 3}))

	require.NoError(t, s.Close())
	assert.Error(t, s.Write(make([]byte, 9)))
	assert.NoError(t, s.Close())
}

func TestConsoleThrottles(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, time.Hour)
	require.NoError(t, c.Write([]byte{255, 0, 0, 0, 0, 255}))
	require.NoError(t, c.Write([]byte{255, 0, 0, 0, 0, 255}))
	assert.Equal(t, 2, strings.Count(out.String(), consoleCell))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}
