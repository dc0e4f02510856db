package system

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/lumanet/internal/pattern"
	"github.com/coreman2200/lumanet/internal/store"
)

// ErrGroupRange is returned for group indices outside the configured strips.
var ErrGroupRange = errors.New("group index out of range")

// GroupState is the operator tuning of one group.
type GroupState struct {
	Brightness float64 // 0..1
	Speed      float64 // scaled by the speed range before reaching the pattern
	Params     [pattern.MaxParams]float64
	Changed    bool
}

func (g GroupState) record() store.GroupRecord {
	return store.GroupRecord{Brightness: g.Brightness, Speed: g.Speed, Params: g.Params}
}

func fromRecord(r store.GroupRecord) GroupState {
	return GroupState{Brightness: r.Brightness, Speed: r.Speed, Params: r.Params}
}

// Field bits of GroupState written by Update. Params[k] is bit 2+k.
const (
	dirtyBrightness uint16 = 1 << iota
	dirtySpeed
	dirtyParams
)

type group struct {
	mu sync.Mutex
	st GroupState
	// dirty marks fields written by Update since the last take or replace.
	dirty uint16
}

func diff(a, b GroupState) uint16 {
	var m uint16
	if a.Brightness != b.Brightness {
		m |= dirtyBrightness
	}
	if a.Speed != b.Speed {
		m |= dirtySpeed
	}
	for k := range a.Params {
		if a.Params[k] != b.Params[k] {
			m |= dirtyParams << k
		}
	}
	return m
}

// Controller is the ordered set of group states shared between the control
// plane, which writes them, and the tick loop, which consumes them. Each
// group has its own lock so a reader never sees a half-applied update.
type Controller struct {
	groups []*group
}

func NewController(n int) *Controller {
	c := &Controller{groups: make([]*group, n)}
	for i := range c.groups {
		c.groups[i] = &group{}
	}
	return c
}

func (c *Controller) Len() int { return len(c.groups) }

// Get copies group i.
func (c *Controller) Get(i int) (GroupState, error) {
	g, err := c.group(i)
	if err != nil {
		return GroupState{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st, nil
}

// Update applies fn to group i atomically and marks it changed.
func (c *Controller) Update(i int, fn func(*GroupState)) error {
	g, err := c.group(i)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	before := g.st
	fn(&g.st)
	g.dirty |= diff(before, g.st)
	g.st.Changed = true
	return nil
}

// take copies group i and clears its changed flag. ok is false when there
// was nothing to reconcile.
func (c *Controller) take(i int) (st GroupState, ok bool) {
	g, err := c.group(i)
	if err != nil {
		return GroupState{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.st.Changed {
		return GroupState{}, false
	}
	g.st.Changed = false
	g.dirty = 0
	return g.st, true
}

// replace overwrites group i without marking it changed.
func (c *Controller) replace(i int, st GroupState) {
	g, err := c.group(i)
	if err != nil {
		return
	}
	g.mu.Lock()
	st.Changed = false
	g.st = st
	g.dirty = 0
	g.mu.Unlock()
}

// settle installs st as group i's state, except for fields an Update wrote
// since the last take or replace, which keep the operator's value. The group
// stays changed if any such field survives.
func (c *Controller) settle(i int, st GroupState) {
	g, err := c.group(i)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dirty&dirtyBrightness != 0 {
		st.Brightness = g.st.Brightness
	}
	if g.dirty&dirtySpeed != 0 {
		st.Speed = g.st.Speed
	}
	for k := range st.Params {
		if g.dirty&(dirtyParams<<k) != 0 {
			st.Params[k] = g.st.Params[k]
		}
	}
	st.Changed = g.dirty != 0
	g.st = st
}

func (c *Controller) group(i int) (*group, error) {
	if i < 0 || i >= len(c.groups) {
		return nil, fmt.Errorf("%w: %d", ErrGroupRange, i)
	}
	return c.groups[i], nil
}
