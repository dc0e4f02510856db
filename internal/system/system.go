// Package system owns the strips, their running patterns and the operator
// state that tunes them, and keeps all three consistent with the store.
package system

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lumanet/internal/color"
	"github.com/coreman2200/lumanet/internal/config"
	diag "github.com/coreman2200/lumanet/internal/diagnostics"
	"github.com/coreman2200/lumanet/internal/dmx"
	"github.com/coreman2200/lumanet/internal/led"
	"github.com/coreman2200/lumanet/internal/pattern"
	"github.com/coreman2200/lumanet/internal/store"
)

// DefaultSpeedRange maps an operator speed of 1 onto pattern speed 4.
const DefaultSpeedRange = 4.0

// Persister saves group tuning per (group, pattern) and the selected pattern
// per group. Misses are reported with store.ErrNotFound.
type Persister interface {
	LoadGroup(g, p int) (store.GroupRecord, error)
	SaveGroup(g, p int, rec store.GroupRecord) error
	LoadPattern(g int) (int, error)
	SavePattern(g, p int) error
}

type Options struct {
	Strips     []config.Strip
	SpeedRange float64
	Registry   *pattern.Registry
	Store      Persister
	Diag       diag.Sink
}

// System is the owned context shared by the tick loop and the control plane.
type System struct {
	reg        *pattern.Registry
	store      Persister
	diag       diag.Sink
	speedRange float64
	ctrl       *Controller

	// mu guards the strips and pattern states.
	mu     sync.Mutex
	names  []string
	colors []*color.RGB
	strips []*led.Strip
	states []*pattern.State
}

// New builds the strips and selects each group's pattern, preferring the
// last persisted selection over the configured one.
func New(opts Options) (*System, error) {
	if opts.Registry == nil {
		opts.Registry = pattern.Builtin()
	}
	if opts.Store == nil {
		opts.Store = store.NewRecords(store.NewMemory())
	}
	if opts.Diag == nil {
		opts.Diag = diag.Discard
	}
	if opts.SpeedRange <= 0 {
		opts.SpeedRange = DefaultSpeedRange
	}
	n := len(opts.Strips)
	s := &System{
		reg:        opts.Registry,
		store:      opts.Store,
		diag:       opts.Diag,
		speedRange: opts.SpeedRange,
		ctrl:       NewController(n),
		names:      make([]string, n),
		colors:     make([]*color.RGB, n),
		strips:     make([]*led.Strip, n),
		states:     make([]*pattern.State, n),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sc := range opts.Strips {
		if !s.reg.Has(sc.PatternID) {
			return nil, fmt.Errorf("strip %d (%s): %w: %d", i, sc.Name, pattern.ErrUnknownPattern, sc.PatternID)
		}
		if sc.Color != "" {
			c, err := color.Parse(sc.Color)
			if err != nil {
				return nil, fmt.Errorf("strip %d (%s): %w", i, sc.Name, err)
			}
			s.colors[i] = &c
		}
		s.names[i] = sc.Name
		s.strips[i] = led.NewStrip(sc.Name, sc.LEDCount, sc.StartUniverse, sc.StartAddress)
		s.ctrl.replace(i, GroupState{Brightness: clamp01(sc.Brightness), Speed: sc.Speed})

		pid := sc.PatternID
		switch p, err := s.store.LoadPattern(i); {
		case err == nil && s.reg.Has(p):
			pid = p
		case err == nil:
			log.Warn().Int("group", i).Int("pattern", p).Msg("persisted pattern unknown; using configured pattern")
			s.diag.Push(diag.New(diag.Warn, diag.PatternUnknown, "Persisted pattern is not registered").
				With("group", i).With("pattern", p).With("using", pid))
		case !store.IsMiss(err):
			s.storeFailed(diag.StoreRead, store.PatternKey(i), err)
		}
		s.switchLocked(i, pid)
	}
	return s, nil
}

// Len is the number of groups.
func (s *System) Len() int { return s.ctrl.Len() }

// SpeedRange is the factor applied to operator speed.
func (s *System) SpeedRange() float64 { return s.speedRange }

// Registry is the pattern catalog in use.
func (s *System) Registry() *pattern.Registry { return s.reg }

// UpdateGroup mutates group i's operator state and marks it for
// reconciliation on the next tick.
func (s *System) UpdateGroup(i int, fn func(*GroupState)) error {
	return s.ctrl.Update(i, fn)
}

// GroupState copies group i's operator state.
func (s *System) GroupState(i int) (GroupState, error) {
	return s.ctrl.Get(i)
}

// SwitchPattern selects pattern id for group i, restoring whatever tuning
// was last saved for that combination, and remembers the selection.
func (s *System) SwitchPattern(i, id int) error {
	if i < 0 || i >= s.Len() {
		return fmt.Errorf("%w: %d", ErrGroupRange, i)
	}
	p, err := s.reg.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	// pending edits belong to the outgoing pattern
	if gs, ok := s.ctrl.take(i); ok {
		s.applyLocked(i, gs, true)
	}
	s.switchLocked(i, id)
	s.mu.Unlock()

	if err := s.store.SavePattern(i, id); err != nil {
		s.storeFailed(diag.StoreWrite, store.PatternKey(i), err)
	}
	log.Info().Int("group", i).Int("pattern", id).Str("name", p.Name).Msg("pattern switched")
	s.diag.Push(diag.New(diag.Info, diag.PatternSwitch, "Pattern switched").
		With("group", i).With("pattern", id))
	return nil
}

// Reconcile folds every changed group into its pattern state and strip and
// persists it.
func (s *System) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked()
}

// Tick runs one refresh: reconcile, advance every pattern by dt seconds and
// scatter the strips into f.
func (s *System) Tick(dt float64, f *dmx.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked()
	for i, st := range s.states {
		if err := s.reg.Update(st, s.strips[i], dt); err != nil {
			log.Warn().Err(err).Int("group", i).Msg("pattern update failed")
			continue
		}
		s.strips[i].WriteTo(f)
	}
}

// StripRGB returns the scaled output bytes of group i's strip.
func (s *System) StripRGB(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.strips) {
		return nil
	}
	return s.strips[i].RGB()
}

// Universes reports the lowest and highest universe any strip reaches.
func (s *System) Universes() (first, last int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first = math.MaxInt
	for _, st := range s.strips {
		if st.Len() == 0 {
			continue
		}
		first = min(first, st.Pixels[0].Universe)
		last = max(last, st.Pixels[st.Len()-1].Universe)
	}
	if last == 0 {
		first = 0
	}
	return first, last
}

func (s *System) reconcileLocked() {
	for i := range s.states {
		if gs, ok := s.ctrl.take(i); ok {
			s.applyLocked(i, gs, true)
		}
	}
}

// switchLocked restarts group i on pattern id and loads its saved tuning,
// falling back to the pattern defaults.
func (s *System) switchLocked(i, id int) {
	st, err := s.reg.NewState(id)
	if err != nil {
		log.Error().Err(err).Int("group", i).Msg("switch to unregistered pattern")
		return
	}
	s.states[i] = st

	// Edits that land while the record loads are merged over it by settle.
	cur, _ := s.ctrl.Get(i)
	rec, err := s.store.LoadGroup(i, id)
	var gs GroupState
	persist := false
	switch {
	case err == nil:
		gs, persist = fromRecord(rec), true
	case !store.IsMiss(err):
		s.storeFailed(diag.StoreRead, store.GroupKey(i, id), err)
		fallthrough
	default:
		gs = GroupState{Brightness: cur.Brightness, Speed: cur.Speed, Params: s.defaults(i, st)}
	}
	s.ctrl.settle(i, gs)
	if edited, ok := s.ctrl.take(i); ok {
		s.applyLocked(i, edited, true)
		return
	}
	s.applyLocked(i, gs, persist)
}

func (s *System) defaults(i int, st *pattern.State) [pattern.MaxParams]float64 {
	var out [pattern.MaxParams]float64
	for k, p := range st.Params {
		if k >= len(out) {
			break
		}
		out[k] = p.Default
	}
	if c := s.colors[i]; c != nil && st.PatternID == pattern.SolidColor {
		h, sat, v := color.RGBToHSV(*c)
		out[0], out[1], out[2] = h, sat*100, v*100
	}
	return out
}

func (s *System) applyLocked(i int, gs GroupState, persist bool) {
	st := s.states[i]
	for k := 0; k < len(st.Params) && k < len(gs.Params); k++ {
		st.Params[k].Value = gs.Params[k]
	}
	s.strips[i].Brightness = to8(math.Round(clamp01(gs.Brightness) * 255))
	st.Speed = gs.Speed * s.speedRange
	if !persist {
		return
	}
	if err := s.store.SaveGroup(i, st.PatternID, gs.record()); err != nil {
		s.storeFailed(diag.StoreWrite, store.GroupKey(i, st.PatternID), err)
	}
}

func (s *System) storeFailed(code, key string, err error) {
	log.Warn().Err(err).Str("key", key).Msg("store access failed")
	s.diag.Push(diag.New(diag.Warn, code, "Persisted state unavailable").WithErr(err).With("key", key))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

func to8(x float64) uint8 {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}
