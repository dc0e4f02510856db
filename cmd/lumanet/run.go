package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/lumanet/internal/api"
	"github.com/coreman2200/lumanet/internal/app"
	"github.com/coreman2200/lumanet/internal/config"
	"github.com/coreman2200/lumanet/internal/led"
	"github.com/coreman2200/lumanet/internal/store"
	"github.com/coreman2200/lumanet/internal/system"
	"github.com/coreman2200/lumanet/internal/ws"
)

var runFlags struct {
	host      string
	port      int
	addr      string
	fps       int
	storePath string
	mirror    string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pattern engine and HTTP control plane",
	RunE:  runEngine,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&runFlags.host, "host", "", "Art-Net node address")
	f.IntVar(&runFlags.port, "port", 0, "Art-Net node UDP port")
	f.StringVar(&runFlags.addr, "addr", "", "HTTP listen address")
	f.IntVar(&runFlags.fps, "fps", 0, "target frames per second")
	f.StringVar(&runFlags.storePath, "store", "", "state database path")
	f.StringVar(&runFlags.mirror, "mirror", "", "local mirror output: spi | console")
}

// applyFlags overrides cfg with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.ArtNet.Host = runFlags.host
	}
	if f.Changed("port") {
		cfg.ArtNet.Port = runFlags.port
	}
	if f.Changed("addr") {
		cfg.HTTP.Addr = runFlags.addr
	}
	if f.Changed("fps") {
		cfg.FPS = runFlags.fps
	}
	if f.Changed("store") {
		cfg.Store.Path = runFlags.storePath
	}
	if f.Changed("mirror") {
		cfg.Mirror.Driver = runFlags.mirror
	}
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyFlags(cmd, cfg)
	applyLogLevel(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ---- Persisted state ----
	var kv store.KV
	if cfg.Store.Path == "" {
		log.Warn().Msg("store.path empty; group state will not survive restarts")
		kv = store.NewMemory()
	} else {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info().Str("path", db.Path()).Msg("store opened")
		kv = db
	}

	// ---- LED system ----
	hub := ws.NewHub()
	hub.Every = 50 * time.Millisecond
	sys, err := system.New(system.Options{
		Strips:     cfg.Strips,
		SpeedRange: cfg.SpeedRange,
		Store:      store.NewRecords(kv),
		Diag:       hub,
	})
	if err != nil {
		return err
	}
	hub.Topology = func() any {
		return map[string]any{
			"universes":       cfg.ArtNet.Universes,
			"universe_offset": cfg.ArtNet.UniverseOffset,
			"fps":             cfg.FPS,
			"groups":          sys.Len(),
		}
	}

	mirror := openMirror(cfg)
	if mirror != nil {
		defer mirror.Close()
	}

	timeout := time.Duration(cfg.ArtNet.TimeoutS * float64(time.Second))
	core, err := app.NewCore(app.Options{
		System:         sys,
		Dial:           app.ArtNetDialer(cfg.ArtNet.Host, cfg.ArtNet.Port, timeout),
		Rate:           physic.Frequency(cfg.FPS) * physic.Hertz,
		Universes:      cfg.ArtNet.Universes,
		UniverseOffset: cfg.ArtNet.UniverseOffset,
		Backoff:        time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		Mirror:         mirror,
		MirrorGroup:    cfg.Mirror.Group,
		Observers:      []app.FrameObserver{hub},
		Diag:           hub,
	})
	if err != nil {
		return err
	}

	// ---- HTTP ----
	ctrl := &api.Server{Sys: sys, Status: core.Status, Hub: hub, FPS: cfg.FPS}
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      ctrl.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = core.Run(ctx)
	}()
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("node", cfg.ArtNet.Host).Int("groups", sys.Len()).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	<-done
	return nil
}

// openMirror returns the configured local output, or nil.
func openMirror(cfg *config.Config) led.Driver {
	if cfg.Mirror.Driver == "" {
		return nil
	}
	count := cfg.Strips[cfg.Mirror.Group].LEDCount
	switch cfg.Mirror.Driver {
	case "spi":
		drv, err := led.NewSPI(cfg.Mirror.SPI.Dev, count, cfg.Mirror.SPI.SpeedHz)
		if err == nil {
			return drv
		}
		log.Warn().Err(err).
			Str("driver", "spi").
			Str("dev", cfg.Mirror.SPI.Dev).
			Int("speed_hz", cfg.Mirror.SPI.SpeedHz).
			Msg("SPI mirror init failed; printing at the console")
	}
	return led.NewConsole(os.Stdout, time.Second)
}
