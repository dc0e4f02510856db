// Package led models pixel strips and pushes them to output sinks.
package led

import (
	"github.com/coreman2200/lumanet/internal/color"
	"github.com/coreman2200/lumanet/internal/dmx"
)

// Pixel is one addressable RGB element.
type Pixel struct {
	Index      int
	Universe   int // 1-based
	Address    int // first of three channels, 1-based
	Color      color.RGB
	Brightness uint8
}

// Strip is an ordered run of pixels placed at construction time.
type Strip struct {
	Name       string
	Pixels     []Pixel
	Brightness uint8
}

// NewStrip places count pixels from (universe, address) onward.
func NewStrip(name string, count, universe, address int) *Strip {
	s := &Strip{Name: name, Brightness: 255}
	addrs := dmx.Place(universe, address, count)
	s.Pixels = make([]Pixel, len(addrs))
	for i, a := range addrs {
		s.Pixels[i] = Pixel{Index: i, Universe: a.Universe, Address: a.Channel, Brightness: 255}
	}
	return s
}

// Len is the pixel count.
func (s *Strip) Len() int { return len(s.Pixels) }

// Set colors pixel i. Out of range indices are ignored.
func (s *Strip) Set(i int, c color.RGB, brightness uint8) {
	if i < 0 || i >= len(s.Pixels) {
		return
	}
	s.Pixels[i].Color = c
	s.Pixels[i].Brightness = brightness
}

// Fill colors every pixel.
func (s *Strip) Fill(c color.RGB, brightness uint8) {
	for i := range s.Pixels {
		s.Pixels[i].Color = c
		s.Pixels[i].Brightness = brightness
	}
}

// Scale applies an 8-bit brightness to an 8-bit component with rounding.
func Scale(component, brightness uint8) uint8 {
	return uint8((uint16(component)*uint16(brightness) + 127) / 255)
}

// Output is the pixel's channel bytes after pixel and strip brightness.
func (p Pixel) Output(stripBrightness uint8) [3]byte {
	return [3]byte{
		Scale(Scale(p.Color.R, p.Brightness), stripBrightness),
		Scale(Scale(p.Color.G, p.Brightness), stripBrightness),
		Scale(Scale(p.Color.B, p.Brightness), stripBrightness),
	}
}

// WriteTo scatters every pixel's scaled channels into f.
func (s *Strip) WriteTo(f *dmx.Frame) {
	for _, p := range s.Pixels {
		out := p.Output(s.Brightness)
		f.SetRun(p.Universe, p.Address, out[:]...)
	}
}

// RGB packs the scaled output of every pixel, 3 bytes each.
func (s *Strip) RGB() []byte {
	buf := make([]byte, 0, len(s.Pixels)*3)
	for _, p := range s.Pixels {
		out := p.Output(s.Brightness)
		buf = append(buf, out[:]...)
	}
	return buf
}
