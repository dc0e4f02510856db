package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/lumanet/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "lumanet",
	Short: "Art-Net pixel pattern engine",
	Long: `lumanet drives addressable LED strips through an Art-Net node.

Each configured strip is a group with its own pattern, brightness, speed and
pattern parameters, tunable over HTTP and remembered across restarts.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.OutOrStdout())
	},
	RunE: runEngine,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug | info | warn | error (overrides config)")
	addRunFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config, falling back to defaults when it is missing.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("config load failed; using defaults")
		return config.Default()
	}
	return cfg
}

// setupLogging installs the console logger. The level starts at --log-level
// (info when unset) until the config has been read.
func setupLogging(w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	applyLogLevel("")
}

// applyLogLevel sets the global level from the config; --log-level wins.
func applyLogLevel(level string) {
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
