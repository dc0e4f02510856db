package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Len(t, c.Strips, 2)
	assert.Equal(t, 76, c.Strips[1].StartAddress)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.FPS = 30
	c.Mirror = Mirror{Driver: "console", Group: 1}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("artnet:\n  host: 10.0.0.9\nstrips:\n  - name: solo\n    led_count: 300\n    start_universe: 2\n    start_address: 1\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", c.ArtNet.Host)
	assert.Equal(t, 6454, c.ArtNet.Port)
	assert.Equal(t, 60, c.FPS)
	require.Len(t, c.Strips, 1)
	assert.Equal(t, 300, c.Strips[0].LEDCount)
	require.NoError(t, c.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fps: [oops"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"no strips":     func(c *Config) { c.Strips = nil },
		"address 0":     func(c *Config) { c.Strips[0].StartAddress = 0 },
		"address 513":   func(c *Config) { c.Strips[0].StartAddress = 513 },
		"universe 0":    func(c *Config) { c.Strips[0].StartUniverse = 0 },
		"brightness":    func(c *Config) { c.Strips[1].Brightness = 1.5 },
		"fps":           func(c *Config) { c.FPS = 0 },
		"universes":     func(c *Config) { c.ArtNet.Universes = 0 },
		"speed range":   func(c *Config) { c.SpeedRange = 0 },
		"mirror driver": func(c *Config) { c.Mirror.Driver = "pwm" },
		"mirror group":  func(c *Config) { c.Mirror = Mirror{Driver: "console", Group: 5} },
		"log level":     func(c *Config) { c.Log.Level = "loud" },
		"host":          func(c *Config) { c.ArtNet.Host = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			err := c.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}
