package artnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lumanet/internal/dmx"
)

// DefaultTimeout bounds every socket write.
const DefaultTimeout = 10 * time.Second

var ErrClosed = errors.New("artnet: connection closed")

// Sender delivers one universe's channel data.
type Sender interface {
	Send(universe uint16, data []byte) error
}

// Conn is a UDP session to one Art-Net node.
type Conn struct {
	mu      sync.Mutex
	conn    *net.UDPConn
	timeout time.Duration
}

// Dial opens a UDP session to host:port. A zero timeout uses DefaultTimeout.
func Dial(ctx context.Context, host string, port int, timeout time.Duration) (*Conn, error) {
	if port == 0 {
		port = Port
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var d net.Dialer
	c, err := d.DialContext(ctx, "udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial artnet %s:%d: %w", host, port, err)
	}
	return &Conn{conn: c.(*net.UDPConn), timeout: timeout}, nil
}

// Send frames data for universe and writes it.
func (c *Conn) Send(universe uint16, data []byte) error {
	pkt := Packet(universe, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	n, err := c.conn.Write(pkt)
	if err != nil {
		return fmt.Errorf("send universe %d: %w", universe, err)
	}
	if n != len(pkt) {
		return fmt.Errorf("send universe %d: short write %d/%d", universe, n, len(pkt))
	}
	if e := log.Debug(); e.Enabled() {
		e.Uint16("universe", universe).
			Int("length", len(pkt)-HeaderSize).
			Hex("head", pkt[:min(len(pkt), HeaderSize+8)]).
			Msg("artdmx sent")
	}
	return nil
}

// RemoteAddr is the destination node address.
func (c *Conn) RemoteAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// SendFrame sends every universe of f, buffer i as wire universe i+offset.
// It stops at the first failure so a node never sees a partial frame
// followed by newer universes.
func SendFrame(s Sender, f *dmx.Frame, offset int) error {
	for i := 0; i < f.Len(); i++ {
		if err := s.Send(uint16(i+offset), f.Universe(i)); err != nil {
			return err
		}
	}
	return nil
}
