package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/coreman2200/lumanet/internal/diagnostics"
	"github.com/coreman2200/lumanet/internal/dmx"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func TestFramesAreStreamed(t *testing.T) {
	h := NewHub()
	h.Topology = func() any { return map[string]int{"universes": 2} }
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleFramesWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dial(t, srv, "/ws")
	var top map[string]int
	read(t, conn, &top)
	assert.Equal(t, 2, top["universes"])

	require.Eventually(t, func() bool { n, _ := h.Clients(); return n == 1 }, 2*time.Second, 5*time.Millisecond)
	f := dmx.NewFrame(1, 2)
	f.Set(2, 3, 42)
	h.ObserveFrame(7, f)

	var msg frameMsg
	read(t, conn, &msg)
	assert.Equal(t, uint64(7), msg.FrameID)
	require.Len(t, msg.Universes, 2)
	assert.Equal(t, byte(42), msg.Universes[1][2])
}

func TestDiagnosticsAreStreamed(t *testing.T) {
	h := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/diag", h.HandleDiagWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dial(t, srv, "/diag")
	require.Eventually(t, func() bool { _, n := h.Clients(); return n == 1 }, 2*time.Second, 5*time.Millisecond)
	h.Push(diag.New(diag.Warn, diag.TransportSend, "send failed"))

	var d diag.Diagnostic
	read(t, conn, &d)
	assert.Equal(t, diag.TransportSend, d.Code)
	assert.Equal(t, diag.Warn, d.Severity)
}

func TestObserveWithoutClientsIsCheap(t *testing.T) {
	h := NewHub()
	h.ObserveFrame(1, dmx.NewFrame(1, 1))
	h.Push(diag.New(diag.Info, "X", "y"))
	n, d := h.Clients()
	assert.Zero(t, n)
	assert.Zero(t, d)
}
