package pattern

import (
	"math/rand"
	"slices"
)

// State is one strip's running instance of a pattern.
type State struct {
	PatternID int
	Params    []Param
	Time      float64
	Speed     float64
	Active    bool

	rng *rand.Rand
}

func newState(p Pattern) *State {
	params := slices.Clone(p.Params)
	for i := range params {
		params[i].Value = params[i].Default
	}
	return &State{
		PatternID: p.ID,
		Params:    params,
		Speed:     1,
		Active:    true,
		rng:       rand.New(rand.NewSource(int64(p.ID) + 1)),
	}
}

// Param returns the normalized value of parameter i, or 0 if undeclared.
func (st *State) Param(i int) float64 {
	if i < 0 || i >= len(st.Params) {
		return 0
	}
	return st.Params[i].Normalized()
}

// SetParam stores a natural-unit value into slot i.
func (st *State) SetParam(i int, v float64) bool {
	if i < 0 || i >= len(st.Params) {
		return false
	}
	st.Params[i].Value = v
	return true
}

func (st *State) jitter(n int) int {
	if st.rng == nil {
		st.rng = rand.New(rand.NewSource(int64(st.PatternID) + 1))
	}
	return st.rng.Intn(2*n+1) - n
}
