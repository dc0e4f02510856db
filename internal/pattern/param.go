package pattern

import "math"

// MaxParams bounds the custom parameters one pattern may declare.
const MaxParams = 10

// ParamType tells generators and operators how to read a parameter value.
type ParamType int

const (
	Range      ParamType = iota // natural units between Min and Max
	Percentage                  // 0..100, read as 0..1
	Degrees                     // 0..360 hue degrees
	Boolean                     // 0 or 1, read against half of Max
	Stepped                     // integer steps between Min and Max
)

func (t ParamType) String() string {
	switch t {
	case Percentage:
		return "percentage"
	case Degrees:
		return "degrees"
	case Boolean:
		return "boolean"
	case Stepped:
		return "stepped"
	default:
		return "range"
	}
}

// Param is one tunable value. Value is always kept in natural units.
type Param struct {
	Name    string
	Type    ParamType
	Min     float64
	Max     float64
	Default float64
	Value   float64
}

func Ranged(name string, min, max, def float64) Param {
	return Param{Name: name, Type: Range, Min: min, Max: max, Default: def, Value: def}
}

func Percent(name string, def float64) Param {
	return Param{Name: name, Type: Percentage, Max: 100, Default: def, Value: def}
}

func Degree(name string, def float64) Param {
	return Param{Name: name, Type: Degrees, Max: 360, Default: def, Value: def}
}

func Bool(name string, def bool) Param {
	p := Param{Name: name, Type: Boolean, Max: 1}
	if def {
		p.Default, p.Value = 1, 1
	}
	return p
}

func Steps(name string, min, max, def int) Param {
	return Param{Name: name, Type: Stepped, Min: float64(min), Max: float64(max), Default: float64(def), Value: float64(def)}
}

// Clamped is Value limited to [Min, Max]; NaN reads as Default.
func (p Param) Clamped() float64 {
	v := p.Value
	if math.IsNaN(v) {
		v = p.Default
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// Normalized is the value in the units generators consume.
func (p Param) Normalized() float64 {
	v := p.Clamped()
	switch p.Type {
	case Percentage:
		if p.Max == 0 {
			return 0
		}
		return v / p.Max
	case Boolean:
		if v >= p.Max/2 && p.Max > 0 {
			return 1
		}
		return 0
	case Stepped:
		return math.Round(v)
	default:
		return v
	}
}

// On reads a Boolean parameter.
func (p Param) On() bool { return p.Normalized() >= 1 }
