// Package pattern holds the compiled set of procedural patterns and the
// per-strip state they run against.
package pattern

import (
	"errors"
	"fmt"
	"slices"

	"github.com/coreman2200/lumanet/internal/led"
)

// ErrUnknownPattern is returned for ids that are not in the registry.
var ErrUnknownPattern = errors.New("unknown pattern")

// Generator colors every pixel of a strip from the pattern state.
// Implementations must treat st.Params as read-only.
type Generator interface {
	Generate(s *led.Strip, st *State)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(s *led.Strip, st *State)

func (f GeneratorFunc) Generate(s *led.Strip, st *State) { f(s, st) }

// Pattern is one registry entry. ID is its position in the registry.
type Pattern struct {
	ID     int
	Name   string
	Params []Param
	gen    Generator
}

// Registry is an ordered, fixed table of patterns.
type Registry struct{ list []Pattern }

func NewRegistry() *Registry { return &Registry{} }

// Register appends a pattern and returns its id.
func (r *Registry) Register(name string, g Generator, params ...Param) (int, error) {
	if g == nil {
		return 0, fmt.Errorf("pattern %q: nil generator", name)
	}
	if len(params) > MaxParams {
		return 0, fmt.Errorf("pattern %q: %d params exceeds %d", name, len(params), MaxParams)
	}
	id := len(r.list)
	r.list = append(r.list, Pattern{ID: id, Name: name, Params: slices.Clone(params), gen: g})
	return id, nil
}

// Get looks a pattern up by id. The returned Params are a copy.
func (r *Registry) Get(id int) (Pattern, error) {
	if id < 0 || id >= len(r.list) {
		return Pattern{}, fmt.Errorf("%w: %d", ErrUnknownPattern, id)
	}
	p := r.list[id]
	p.Params = slices.Clone(p.Params)
	return p, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id int) bool { return id >= 0 && id < len(r.list) }

func (r *Registry) Len() int { return len(r.list) }

// List returns every pattern in id order.
func (r *Registry) List() []Pattern {
	out := make([]Pattern, len(r.list))
	for i, p := range r.list {
		p.Params = slices.Clone(p.Params)
		out[i] = p
	}
	return out
}

// NewState returns a fresh state for pattern id with registry defaults.
func (r *Registry) NewState(id int) (*State, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return newState(p), nil
}

// Update advances st by dt seconds and regenerates s. Inactive states are
// left untouched.
func (r *Registry) Update(st *State, s *led.Strip, dt float64) error {
	if st == nil || !st.Active {
		return nil
	}
	if st.PatternID < 0 || st.PatternID >= len(r.list) {
		return fmt.Errorf("%w: %d", ErrUnknownPattern, st.PatternID)
	}
	if dt > 0 {
		st.Time += dt
	}
	r.list[st.PatternID].gen.Generate(s, st)
	return nil
}

// Builtin returns the registry of compiled-in patterns.
func Builtin() *Registry {
	r := NewRegistry()
	for _, b := range builtins {
		if _, err := r.Register(b.name, b.gen, b.params...); err != nil {
			panic(err)
		}
	}
	return r
}
