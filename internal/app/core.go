package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/lumanet/internal/artnet"
	diag "github.com/coreman2200/lumanet/internal/diagnostics"
	"github.com/coreman2200/lumanet/internal/dmx"
	"github.com/coreman2200/lumanet/internal/led"
	"github.com/coreman2200/lumanet/internal/system"
)

const (
	DefaultRate    = 60 * physic.Hertz
	DefaultBackoff = 2 * time.Second
)

var (
	dialCauses = []string{"node is powered off or on another subnet", "artnet.host does not resolve"}
	dialFixes  = []string{"check artnet.host and artnet.port", "ping the node from this machine"}
	sendCauses = []string{"node went away mid-session", "network interface went down"}
	sendFixes  = []string{"check the node's link and power", "the session is re-dialed automatically after the backoff"}
)

// Transport is one live session to the Art-Net node.
type Transport interface {
	artnet.Sender
	Close() error
}

// Dialer opens a new transport session.
type Dialer func(ctx context.Context) (Transport, error)

// FrameObserver sees every frame once it is on the wire. f is only valid for
// the duration of the call.
type FrameObserver interface {
	ObserveFrame(id uint64, f *dmx.Frame)
}

type Options struct {
	System *system.System
	Dial   Dialer

	Rate           physic.Frequency
	Universes      int
	UniverseOffset int
	Backoff        time.Duration

	Mirror      led.Driver
	MirrorGroup int

	Observers []FrameObserver
	Diag      diag.Sink
}

// Status is a point-in-time read of the engine.
type Status struct {
	FrameID    uint64
	Connected  bool
	Reconnects uint64
	LastError  string
	Uptime     time.Duration
}

// Core drives the refresh pipeline: reconcile, generate, map, send.
type Core struct {
	opts  Options
	start time.Time

	frameID    atomic.Uint64
	reconnects atomic.Uint64
	connected  atomic.Bool

	mu       sync.Mutex
	lastErr  string
	mirrorOK bool
}

func NewCore(opts Options) (*Core, error) {
	if opts.System == nil {
		return nil, errors.New("app: nil system")
	}
	if opts.Dial == nil {
		return nil, errors.New("app: nil dialer")
	}
	if opts.Rate <= 0 {
		opts.Rate = DefaultRate
	}
	if opts.Universes <= 0 {
		opts.Universes = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Diag == nil {
		opts.Diag = diag.Discard
	}
	if first, last := opts.System.Universes(); last >= 1+opts.Universes {
		log.Warn().Int("first", first).Int("last", last).Int("allocated", opts.Universes).
			Msg("strips reach past the allocated universes; those pixels are dropped")
	}
	return &Core{opts: opts, start: time.Now(), mirrorOK: true}, nil
}

// Run keeps a transport session alive until ctx ends. Dial and send
// failures tear the session down and retry after the backoff.
func (c *Core) Run(ctx context.Context) error {
	for {
		t, err := c.opts.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.fail(diag.New(diag.Warn, diag.TransportDown, "Art-Net transport unavailable").
				WithHints(dialCauses, dialFixes), err)
			if !sleep(ctx, c.opts.Backoff) {
				return nil
			}
			continue
		}

		c.connected.Store(true)
		log.Info().Msg("artnet session started")
		c.opts.Diag.Push(diag.New(diag.Info, diag.TransportUp, "Art-Net transport connected"))

		err = c.session(ctx, t)
		c.connected.Store(false)
		_ = t.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.reconnects.Add(1)
		c.fail(diag.New(diag.Err, diag.TransportSend, "Art-Net send failed; reconnecting").
			WithHints(sendCauses, sendFixes), err)
		if !sleep(ctx, c.opts.Backoff) {
			return nil
		}
	}
}

func (c *Core) session(ctx context.Context, t Transport) error {
	frame := dmx.NewFrame(1, c.opts.Universes)
	ticker := time.NewTicker(c.opts.Rate.Period())
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := c.Step(t, frame, dt); err != nil {
				return err
			}
		}
	}
}

// Step runs one refresh of dt seconds into f and sends it through s.
func (c *Core) Step(s artnet.Sender, f *dmx.Frame, dt float64) error {
	c.opts.System.Tick(dt, f)
	if err := artnet.SendFrame(s, f, c.opts.UniverseOffset); err != nil {
		return err
	}
	id := c.frameID.Add(1)
	c.mirror()
	for _, o := range c.opts.Observers {
		o.ObserveFrame(id, f)
	}
	return nil
}

func (c *Core) mirror() {
	if c.opts.Mirror == nil {
		return
	}
	err := c.opts.Mirror.Write(c.opts.System.StripRGB(c.opts.MirrorGroup))
	c.mu.Lock()
	report := (err != nil) == c.mirrorOK
	c.mirrorOK = err == nil
	c.mu.Unlock()
	if report && err != nil {
		log.Warn().Err(err).Int("group", c.opts.MirrorGroup).Msg("mirror write failed")
		c.opts.Diag.Push(diag.New(diag.Warn, diag.MirrorFailed, "Local mirror output failed").WithErr(err))
	}
}

func (c *Core) fail(d diag.Diagnostic, err error) {
	c.mu.Lock()
	if err != nil {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
	log.Warn().Err(err).Str("code", d.Code).Dur("backoff", c.opts.Backoff).Msg(d.Summary)
	c.opts.Diag.Push(d.WithErr(err))
}

func (c *Core) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		FrameID:    c.frameID.Load(),
		Connected:  c.connected.Load(),
		Reconnects: c.reconnects.Load(),
		LastError:  c.lastErr,
		Uptime:     time.Since(c.start),
	}
}

// ArtNetDialer dials host:port for every new session.
func ArtNetDialer(host string, port int, timeout time.Duration) Dialer {
	return func(ctx context.Context) (Transport, error) {
		return artnet.Dial(ctx, host, port, timeout)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
