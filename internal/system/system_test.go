package system

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/lumanet/internal/color"
	"github.com/coreman2200/lumanet/internal/config"
	diag "github.com/coreman2200/lumanet/internal/diagnostics"
	"github.com/coreman2200/lumanet/internal/dmx"
	"github.com/coreman2200/lumanet/internal/pattern"
	"github.com/coreman2200/lumanet/internal/store"
)

// flakyStore fails every access while broken is set.
type flakyStore struct {
	*store.Records
	broken bool
	saves  int
}

var errDisk = errors.New("disk on fire")

func (f *flakyStore) LoadGroup(g, p int) (store.GroupRecord, error) {
	if f.broken {
		return store.GroupRecord{}, errDisk
	}
	return f.Records.LoadGroup(g, p)
}

func (f *flakyStore) SaveGroup(g, p int, rec store.GroupRecord) error {
	f.saves++
	if f.broken {
		return errDisk
	}
	return f.Records.SaveGroup(g, p, rec)
}

func (f *flakyStore) LoadPattern(g int) (int, error) {
	if f.broken {
		return 0, errDisk
	}
	return f.Records.LoadPattern(g)
}

func (f *flakyStore) SavePattern(g, p int) error {
	if f.broken {
		return errDisk
	}
	return f.Records.SavePattern(g, p)
}

// editingStore runs edit once, from inside the next LoadGroup.
type editingStore struct {
	*store.Records
	edit func()
}

func (e *editingStore) LoadGroup(g, p int) (store.GroupRecord, error) {
	if fn := e.edit; fn != nil {
		e.edit = nil
		fn()
	}
	return e.Records.LoadGroup(g, p)
}

type diagRecorder struct {
	mu    sync.Mutex
	codes []string
}

func (d *diagRecorder) Push(x diag.Diagnostic) {
	d.mu.Lock()
	d.codes = append(d.codes, x.Code)
	d.mu.Unlock()
}

func strips() []config.Strip {
	return config.Default().Strips
}

func newSystem(t *testing.T, p Persister) *System {
	t.Helper()
	s, err := New(Options{Strips: strips(), Store: p})
	require.NoError(t, err)
	return s
}

func TestInitUsesConfiguredPatterns(t *testing.T) {
	s := newSystem(t, nil)
	require.Equal(t, 2, s.Len())
	g0, err := s.Group(0)
	require.NoError(t, err)
	assert.Equal(t, pattern.SolidColor, g0.PatternID)
	assert.Equal(t, "Strip 1", g0.Name)
	assert.Equal(t, 1.0, g0.Brightness)
	assert.Equal(t, 0.5, g0.Speed)
	require.Len(t, g0.Params, 3)
	assert.Equal(t, 100.0, g0.Params[1].Value)

	g1, _ := s.Group(1)
	assert.Equal(t, pattern.RainbowCycle, g1.PatternID)
	assert.Equal(t, 2.0, s.states[1].Speed)
}

func TestInitPrefersPersistedPattern(t *testing.T) {
	rec := store.NewRecords(store.NewMemory())
	require.NoError(t, rec.SavePattern(0, pattern.Sparkle))
	require.NoError(t, rec.SavePattern(1, 99))

	d := &diagRecorder{}
	s, err := New(Options{Strips: strips(), Store: rec, Diag: d})
	require.NoError(t, err)
	g0, _ := s.Group(0)
	assert.Equal(t, pattern.Sparkle, g0.PatternID)
	g1, _ := s.Group(1)
	assert.Equal(t, pattern.RainbowCycle, g1.PatternID)
	assert.Equal(t, []string{diag.PatternUnknown}, d.codes)
}

func TestInitRejectsUnknownConfiguredPattern(t *testing.T) {
	cfg := strips()
	cfg[0].PatternID = 42
	_, err := New(Options{Strips: cfg})
	assert.True(t, errors.Is(err, pattern.ErrUnknownPattern))
}

func TestReconcileMapsGroupState(t *testing.T) {
	rec := store.NewRecords(store.NewMemory())
	s := newSystem(t, rec)
	require.NoError(t, s.UpdateGroup(0, func(g *GroupState) {
		g.Brightness = 0.5
		g.Speed = 0.25
		g.Params[0] = 120
		g.Params[9] = 7 // beyond the pattern's params
	}))
	gs, _ := s.GroupState(0)
	assert.True(t, gs.Changed)

	s.Reconcile()
	gs, _ = s.GroupState(0)
	assert.False(t, gs.Changed)
	assert.Equal(t, uint8(128), s.strips[0].Brightness)
	assert.Equal(t, 1.0, s.states[0].Speed)
	assert.Equal(t, 120.0, s.states[0].Params[0].Value)
	assert.Len(t, s.states[0].Params, 3)

	saved, err := rec.LoadGroup(0, pattern.SolidColor)
	require.NoError(t, err)
	assert.Equal(t, 0.5, saved.Brightness)
	assert.Equal(t, 120.0, saved.Params[0])
}

func TestSwitchBackRestoresTuning(t *testing.T) {
	rec, err := store.Open(filepath.Join(t.TempDir(), "lumanet.db"))
	require.NoError(t, err)
	defer rec.Close()
	s := newSystem(t, store.NewRecords(rec))

	require.NoError(t, s.UpdateGroup(0, func(g *GroupState) { g.Params[0] = 200; g.Params[2] = 40 }))
	s.Reconcile()

	require.NoError(t, s.SwitchPattern(0, pattern.Fire))
	g, _ := s.Group(0)
	assert.Equal(t, pattern.Fire, g.PatternID)
	assert.Equal(t, 1.5, g.Params[0].Value)

	require.NoError(t, s.UpdateGroup(0, func(g *GroupState) { g.Params[0] = 4 }))
	require.NoError(t, s.SwitchPattern(0, pattern.SolidColor))

	g, _ = s.Group(0)
	assert.Equal(t, 200.0, g.Params[0].Value)
	assert.Equal(t, 40.0, g.Params[2].Value)
	assert.Equal(t, 200.0, s.states[0].Params[0].Value)

	require.NoError(t, s.SwitchPattern(0, pattern.Fire))
	g, _ = s.Group(0)
	assert.Equal(t, 4.0, g.Params[0].Value, "pending edit flushed before switching away")

	pid, err := store.NewRecords(rec).LoadPattern(0)
	require.NoError(t, err)
	assert.Equal(t, pattern.Fire, pid)
}

func TestSwitchResetsPatternTime(t *testing.T) {
	s := newSystem(t, nil)
	f := dmx.NewFrame(1, 1)
	s.Tick(1, f)
	assert.Equal(t, 1.0, s.states[1].Time)
	require.NoError(t, s.SwitchPattern(1, pattern.MovingBand))
	assert.Equal(t, 0.0, s.states[1].Time)
}

func TestEditDuringSwitchIsKept(t *testing.T) {
	t.Run("no saved tuning", func(t *testing.T) {
		es := &editingStore{Records: store.NewRecords(store.NewMemory())}
		s := newSystem(t, es)
		es.edit = func() {
			require.NoError(t, s.UpdateGroup(0, func(g *GroupState) { g.Brightness = 0.3 }))
		}
		require.NoError(t, s.SwitchPattern(0, pattern.Fire))

		gs, _ := s.GroupState(0)
		assert.Equal(t, 0.3, gs.Brightness)
		assert.Equal(t, uint8(77), s.strips[0].Brightness)
		rec, err := es.LoadGroup(0, pattern.Fire)
		require.NoError(t, err)
		assert.Equal(t, 0.3, rec.Brightness)
		assert.Equal(t, 1.5, rec.Params[0], "untouched params take the defaults")
	})

	t.Run("saved tuning", func(t *testing.T) {
		es := &editingStore{Records: store.NewRecords(store.NewMemory())}
		require.NoError(t, es.SaveGroup(0, pattern.Fire, store.GroupRecord{Brightness: 0.8, Speed: 0.25, Params: [pattern.MaxParams]float64{3, 60}}))
		s := newSystem(t, es)
		es.edit = func() {
			require.NoError(t, s.UpdateGroup(0, func(g *GroupState) { g.Params[1] = 10 }))
		}
		require.NoError(t, s.SwitchPattern(0, pattern.Fire))

		gs, _ := s.GroupState(0)
		assert.Equal(t, 0.8, gs.Brightness)
		assert.Equal(t, 0.25, gs.Speed)
		assert.Equal(t, 3.0, gs.Params[0])
		assert.Equal(t, 10.0, gs.Params[1])
		assert.False(t, gs.Changed)
		assert.Equal(t, 10.0, s.states[0].Params[1].Value)
	})
}

func TestSwitchRejectsBadInput(t *testing.T) {
	s := newSystem(t, nil)
	assert.True(t, errors.Is(s.SwitchPattern(5, 0), ErrGroupRange))
	assert.True(t, errors.Is(s.SwitchPattern(0, 17), pattern.ErrUnknownPattern))
	assert.True(t, errors.Is(s.UpdateGroup(-1, func(*GroupState) {}), ErrGroupRange))
	_, err := s.Group(2)
	assert.True(t, errors.Is(err, ErrGroupRange))
}

func TestStoreFailuresAreNotFatal(t *testing.T) {
	fs := &flakyStore{Records: store.NewRecords(store.NewMemory()), broken: true}
	d := &diagRecorder{}
	s, err := New(Options{Strips: strips(), Store: fs, Diag: d})
	require.NoError(t, err)

	g, _ := s.Group(0)
	assert.Equal(t, pattern.SolidColor, g.PatternID)

	require.NoError(t, s.UpdateGroup(0, func(g *GroupState) { g.Brightness = 0.2 }))
	s.Reconcile()
	assert.Equal(t, uint8(51), s.strips[0].Brightness)
	require.NoError(t, s.SwitchPattern(0, pattern.Fire))

	assert.Contains(t, d.codes, diag.StoreRead)
	assert.Contains(t, d.codes, diag.StoreWrite)
}

func TestTickRendersStrips(t *testing.T) {
	s := newSystem(t, nil)
	f := dmx.NewFrame(1, 1)
	s.Tick(0.016, f)
	u := f.Universe(0)
	// strip 1 is solid red from address 1
	assert.Equal(t, []byte{255, 0, 0}, u[0:3])
	assert.Equal(t, []byte{255, 0, 0}, u[72:75])
	assert.Len(t, s.StripRGB(0), 75)
	assert.Nil(t, s.StripRGB(3))

	first, last := s.Universes()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, last)
}

func TestConfiguredColorSeedsSolid(t *testing.T) {
	cfg := strips()
	cfg[0].Color = "blue"
	s, err := New(Options{Strips: cfg})
	require.NoError(t, err)
	f := dmx.NewFrame(1, 1)
	s.Tick(0, f)
	assert.Equal(t, color.RGB{B: 255}, s.strips[0].Pixels[0].Color)

	cfg[0].Color = "nope"
	_, err = New(Options{Strips: cfg})
	assert.Error(t, err)
}

func TestConcurrentControlAndTick(t *testing.T) {
	s := newSystem(t, nil)
	f := dmx.NewFrame(1, 1)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			v := float64(i % 100)
			_ = s.UpdateGroup(i%2, func(g *GroupState) {
				// both values always move together
				g.Params[1] = v
				g.Params[2] = v
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Tick(0.001, f)
			s.mu.Lock()
			p := s.states[0].Params
			assert.Equal(t, p[1].Value, p[2].Value)
			s.mu.Unlock()
		}
	}()
	wg.Wait()
}
