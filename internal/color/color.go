// Package color converts between the HSV space patterns think in and the
// 8-bit RGB triples written to the wire.
package color

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is one 8-bit-per-channel color.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{}
	White = RGB{255, 255, 255}
)

// HSVToRGB converts hue in degrees and saturation/value in [0,1].
// Hue wraps, so 360 and 0 are the same red.
func HSVToRGB(h, s, v float64) RGB {
	h = math.Mod(finite(h), 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsv(h, unit(s), unit(v)).RGB255()
	return RGB{r, g, b}
}

// RGBToHSV is the inverse of HSVToRGB, returning hue in [0,360).
func RGBToHSV(c RGB) (h, s, v float64) {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsv()
}

// ParseHex accepts "#rrggbb", "rrggbb" and the 3-digit short forms.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

var named = map[string]RGB{
	"black":   Black,
	"white":   White,
	"red":     {255, 0, 0},
	"green":   {0, 255, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
}

// Parse resolves a named color or falls back to hex.
func Parse(s string) (RGB, error) {
	if c, ok := named[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return ParseHex(s)
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func unit(x float64) float64 {
	return math.Max(0, math.Min(1, finite(x)))
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
