package pattern

import (
	"math"

	"github.com/coreman2200/lumanet/internal/color"
	"github.com/coreman2200/lumanet/internal/led"
)

// Built-in pattern ids.
const (
	SolidColor = iota
	RainbowCycle
	Stroboscope
	Fire
	Sparkle
	MovingBand
)

// fireJitter bounds the random swing of the fire's green channel.
const fireJitter = 28

type builtin struct {
	name   string
	gen    GeneratorFunc
	params []Param
}

var builtins = []builtin{
	SolidColor: {"Solid Color", solid, []Param{
		Degree("Hue", 0),
		Percent("Saturation", 100),
		Percent("Value", 100),
	}},
	RainbowCycle: {"Rainbow Cycle", rainbow, []Param{
		Ranged("Width", 0.1, 10, 1),
		Percent("Saturation", 100),
		Percent("Value", 100),
	}},
	Stroboscope: {"Stroboscope", strobe, []Param{
		Degree("Hue", 0),
		Percent("Saturation", 0),
		Percent("Value", 100),
		Percent("On Ratio", 50),
	}},
	Fire: {"Fire", fire, []Param{
		Ranged("Flicker", 0.1, 5, 1.5),
		Percent("Yellow", 40),
	}},
	Sparkle: {"Sparkle", sparkle, []Param{
		Percent("Chance", 5),
		Degree("Sparkle Hue", 0),
		Percent("Sparkle Saturation", 0),
		Percent("Sparkle Brightness", 100),
		Degree("Background Hue", 240),
		Percent("Background Saturation", 100),
		Percent("Background Brightness", 10),
	}},
	MovingBand: {"Moving Band", band, []Param{
		Steps("Bands", 1, 10, 1),
		Percent("Width", 20),
		Degree("Hue", 120),
		Percent("Saturation", 100),
	}},
}

func solid(s *led.Strip, st *State) {
	s.Fill(color.HSVToRGB(st.Param(0), st.Param(1), st.Param(2)), 255)
}

func rainbow(s *led.Strip, st *State) {
	width, sat, val := st.Param(0), st.Param(1), st.Param(2)
	n := float64(s.Len())
	for i := range s.Pixels {
		h := math.Sin(st.Time*st.Speed+float64(i)*width*2*math.Pi/n)*180 + 180
		s.Set(i, color.HSVToRGB(h, sat, val), 255)
	}
}

func strobe(s *led.Strip, st *State) {
	c := color.HSVToRGB(st.Param(0), st.Param(1), st.Param(2))
	ratio := st.Param(3)
	on := ratio > 0
	if st.Speed > 0 {
		period := 1 / st.Speed
		on = math.Mod(st.Time, period) < ratio*period
	}
	if on {
		s.Fill(c, 255)
	} else {
		s.Fill(c, 0)
	}
}

func fire(s *led.Strip, st *State) {
	intensity, yellow := st.Param(0), st.Param(1)
	for i := range s.Pixels {
		base := math.Max(0, (math.Sin(st.Time*5+float64(i)*1.2+1)+1)/2)
		f := math.Pow(base, intensity)
		g := f * (yellow*255 + float64(st.jitter(fireJitter)))
		s.Set(i, color.RGB{R: to8(f * 255), G: to8(g)}, 255)
	}
}

func sparkle(s *led.Strip, st *State) {
	chance := st.Param(0)
	spark := color.HSVToRGB(st.Param(1), st.Param(2), 1)
	sparkB := to8(st.Param(3) * 255)
	bg := color.HSVToRGB(st.Param(4), st.Param(5), 1)
	bgB := to8(st.Param(6) * 255)
	for i := range s.Pixels {
		if SparkleHash(st.Time, st.Speed, i) < chance {
			s.Set(i, spark, sparkB)
		} else {
			s.Set(i, bg, bgB)
		}
	}
}

// SparkleHash is the sparkle pattern's pseudo-random value in [0,1) for a
// pixel. It only changes when the pixel's time period (1/20 s scaled by
// speed) changes.
func SparkleHash(t, speed float64, i int) float64 {
	period := math.Floor((t*speed + float64(i)*0.1) * 20)
	return fract(math.Sin(period+float64(i)*12.9898) * 43758.5453)
}

func band(s *led.Strip, st *State) {
	bands := math.Max(1, st.Param(0))
	width := st.Param(1)
	c := color.HSVToRGB(st.Param(2), st.Param(3), 1)
	n := float64(s.Len())
	for i := range s.Pixels {
		pos := fract(st.Time*st.Speed*0.5 + float64(i)/n*bands)
		d := math.Abs(pos - 0.5)
		var b float64
		if d < width {
			b = 0.5 * (1 + math.Cos(math.Pi*d/width))
		}
		s.Set(i, c, to8(b*255))
	}
}

func fract(x float64) float64 {
	return x - math.Floor(x)
}

func to8(x float64) uint8 {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(math.Round(x))
}
