package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/lumanet/internal/diagnostics"
	"github.com/coreman2200/lumanet/internal/dmx"
)

const (
	writeWait  = 200 * time.Millisecond
	sendBuffer = 8
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames and diagnostics out to websocket clients. Slow clients
// drop messages rather than stall the refresh loop.
type Hub struct {
	// Topology, when set, is sent to every new frame client.
	Topology func() any
	// Every limits frame broadcasts; zero sends every frame.
	Every time.Duration

	up websocket.Upgrader

	mu          sync.Mutex
	clients     map[*client]bool
	diagClients map[*client]bool
	lastFrame   time.Time
}

func NewHub() *Hub {
	return &Hub{
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
	}
}

// HandleFramesWS streams every sent frame.
func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	c := h.accept(w, r, h.clients)
	if c == nil {
		return
	}
	if h.Topology != nil {
		if b, err := json.Marshal(h.Topology()); err == nil {
			h.enqueue(c, b)
		}
	}
}

// HandleDiagWS streams diagnostics.
func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, h.diagClients)
}

func (h *Hub) accept(w http.ResponseWriter, r *http.Request, set map[*client]bool) *client {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return nil
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	set[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go func() {
		defer h.drop(c, set)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return c
}

func (h *Hub) writePump(c *client) {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("ws write")
			_ = c.conn.Close()
			return
		}
	}
}

func (h *Hub) drop(c *client, set map[*client]bool) {
	h.mu.Lock()
	if set[c] {
		delete(set, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) enqueue(c *client, b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] && !h.diagClients[c] {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

type frameMsg struct {
	T         int64    `json:"t"`
	FrameID   uint64   `json:"frame_id"`
	Universes [][]byte `json:"universes"`
}

// ObserveFrame broadcasts f to frame clients.
func (h *Hub) ObserveFrame(id uint64, f *dmx.Frame) {
	h.mu.Lock()
	now := time.Now()
	if len(h.clients) == 0 || (h.Every > 0 && now.Sub(h.lastFrame) < h.Every) {
		h.mu.Unlock()
		return
	}
	h.lastFrame = now
	h.mu.Unlock()

	b, err := json.Marshal(frameMsg{T: now.UnixNano(), FrameID: id, Universes: f.Snapshot()})
	if err != nil {
		return
	}
	h.broadcast(h.clients, b)
}

// Push broadcasts a diagnostic to diag clients.
func (h *Hub) Push(d diag.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	h.broadcast(h.diagClients, b)
}

func (h *Hub) broadcast(set map[*client]bool, b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range set {
		select {
		case c.send <- b:
		default:
		}
	}
}

// Clients reports connected frame and diag clients.
func (h *Hub) Clients() (frames, diags int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients), len(h.diagClients)
}
