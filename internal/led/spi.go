package led

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// DefaultSPIFreq is the NRZ bit rate used when none is configured.
const DefaultSPIFreq = 2500 * physic.KiloHertz

// SPI drives a WS281x strip through an SPI port.
type SPI struct {
	mu    sync.Mutex
	port  spi.PortCloser
	dev   *nrzled.Dev
	count int
}

// NewSPI opens the named SPI port ("" picks the first one) for count pixels.
func NewSPI(name string, count int, speedHz int) (*SPI, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	s, err := newSPI(p, count, speedHz)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return s, nil
}

func newSPI(p spi.PortCloser, count int, speedHz int) (*SPI, error) {
	freq := DefaultSPIFreq
	if speedHz > 0 {
		freq = physic.Frequency(speedHz) * physic.Hertz
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: count, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &SPI{port: p, dev: d, count: count}, nil
}

func (s *SPI) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return fmt.Errorf("SPI closed")
	}
	if len(rgb) != s.count*3 {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), s.count)
	}
	if _, err := s.dev.Write(rgb); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	_ = s.dev.Halt()
	s.dev = nil
	return s.port.Close()
}
