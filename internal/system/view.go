package system

import "github.com/coreman2200/lumanet/internal/pattern"

// ParamView describes one parameter of a group's active pattern.
type ParamView struct {
	ID    int
	Name  string
	Value float64
	Type  pattern.ParamType
	Min   float64
	Max   float64
}

// GroupView is a consistent read of one group for the control plane.
type GroupView struct {
	ID         int
	Name       string
	PatternID  int
	Brightness float64
	Speed      float64
	Params     []ParamView
}

// Group reads group i. Parameter values are the operator's latest values,
// which the tick loop may not have reconciled yet.
func (s *System) Group(i int) (GroupView, error) {
	gs, err := s.ctrl.Get(i)
	if err != nil {
		return GroupView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[i]
	v := GroupView{
		ID:         i,
		Name:       s.names[i],
		PatternID:  st.PatternID,
		Brightness: gs.Brightness,
		Speed:      gs.Speed,
		Params:     make([]ParamView, 0, len(st.Params)),
	}
	for k, p := range st.Params {
		if k >= len(gs.Params) {
			break
		}
		v.Params = append(v.Params, ParamView{
			ID: k, Name: p.Name, Value: gs.Params[k], Type: p.Type, Min: p.Min, Max: p.Max,
		})
	}
	return v, nil
}

// Groups reads every group in order.
func (s *System) Groups() []GroupView {
	out := make([]GroupView, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if v, err := s.Group(i); err == nil {
			out = append(out, v)
		}
	}
	return out
}
