package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type ArtNet struct {
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	TimeoutS       float64 `yaml:"timeout_s"`
	Universes      int     `yaml:"universes"`       // buffers allocated per frame
	UniverseOffset int     `yaml:"universe_offset"` // added to the buffer index on the wire
}

type Strip struct {
	Name          string  `yaml:"name"`
	LEDCount      int     `yaml:"led_count"`
	StartUniverse int     `yaml:"start_universe"` // 1-based
	StartAddress  int     `yaml:"start_address"`  // 1-based
	PatternID     int     `yaml:"pattern_id"`
	Brightness    float64 `yaml:"brightness"` // 0..1
	Speed         float64 `yaml:"speed"`
	Color         string  `yaml:"color,omitempty"` // initial solid color, name or hex
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. SPI0.0, "" for the first port
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2500000
}

type Mirror struct {
	Driver string `yaml:"driver"` // "" | "spi" | "console"
	Group  int    `yaml:"group"`
	SPI    SPI    `yaml:"spi,omitempty"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Store struct {
	Path string `yaml:"path"` // "" keeps state in memory only
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	ArtNet         ArtNet  `yaml:"artnet"`
	FPS            int     `yaml:"fps"`
	SpeedRange     float64 `yaml:"speed_range"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`

	Strips []Strip `yaml:"strips"`

	HTTP   HTTP   `yaml:"http"`
	Store  Store  `yaml:"store"`
	Mirror Mirror `yaml:"mirror,omitempty"`
	Log    Log    `yaml:"log"`
}

// Default is two 25 pixel strips sharing universe 1.
func Default() *Config {
	return &Config{
		ArtNet: ArtNet{
			Host:      "192.168.0.21",
			Port:      6454,
			TimeoutS:  10,
			Universes: 4,
		},
		FPS:            60,
		SpeedRange:     4,
		RetryBackoffMs: 2000,
		Strips: []Strip{
			{Name: "Strip 1", LEDCount: 25, StartUniverse: 1, StartAddress: 1, PatternID: 0, Brightness: 1, Speed: 0.5},
			{Name: "Strip 2", LEDCount: 25, StartUniverse: 1, StartAddress: 76, PatternID: 1, Brightness: 1, Speed: 0.5},
		},
		HTTP:  HTTP{Addr: ":8080"},
		Store: Store{Path: "lumanet.db"},
		Log:   Log{Level: "info"},
	}
}

// Load reads path over Default, so omitted fields keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	c.Strips = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Strips == nil {
		c.Strips = Default().Strips
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	bad := func(format string, a ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, a...))
	}
	if c.ArtNet.Host == "" {
		return bad("artnet.host is empty")
	}
	if c.ArtNet.Port < 0 || c.ArtNet.Port > 65535 {
		return bad("artnet.port %d out of range", c.ArtNet.Port)
	}
	if c.ArtNet.TimeoutS < 0 {
		return bad("artnet.timeout_s is negative")
	}
	if c.ArtNet.Universes < 1 || c.ArtNet.Universes > 32768 {
		return bad("artnet.universes %d out of range", c.ArtNet.Universes)
	}
	if c.ArtNet.UniverseOffset < 0 || c.ArtNet.UniverseOffset+c.ArtNet.Universes > 32768 {
		return bad("artnet.universe_offset %d out of range", c.ArtNet.UniverseOffset)
	}
	if c.FPS < 1 || c.FPS > 1000 {
		return bad("fps %d out of range", c.FPS)
	}
	if c.SpeedRange <= 0 {
		return bad("speed_range must be positive")
	}
	if c.RetryBackoffMs < 0 {
		return bad("retry_backoff_ms is negative")
	}
	if len(c.Strips) == 0 {
		return bad("no strips configured")
	}
	for i, s := range c.Strips {
		switch {
		case s.LEDCount < 0:
			return bad("strips[%d].led_count is negative", i)
		case s.StartUniverse < 1:
			return bad("strips[%d].start_universe must be >= 1", i)
		case s.StartAddress < 1 || s.StartAddress > 512:
			return bad("strips[%d].start_address %d outside 1..512", i, s.StartAddress)
		case s.Brightness < 0 || s.Brightness > 1:
			return bad("strips[%d].brightness outside 0..1", i)
		case s.Speed < 0:
			return bad("strips[%d].speed is negative", i)
		case s.PatternID < 0:
			return bad("strips[%d].pattern_id is negative", i)
		}
	}
	switch c.Mirror.Driver {
	case "", "spi", "console":
	default:
		return bad("unknown mirror driver %q", c.Mirror.Driver)
	}
	if c.Mirror.Driver != "" && (c.Mirror.Group < 0 || c.Mirror.Group >= len(c.Strips)) {
		return bad("mirror.group %d out of range", c.Mirror.Group)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return bad("unknown log level %q", c.Log.Level)
	}
	return nil
}
