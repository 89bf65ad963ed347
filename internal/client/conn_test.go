package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// newStreamServer runs a WebSocket endpoint that invokes handle for
// every accepted connection and counts accepts.
func newStreamServer(t *testing.T, handle func(ws *websocket.Conn)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var accepts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepts.Add(1)
		handle(ws)
	}))
	t.Cleanup(srv.Close)
	return srv, &accepts
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestConn_DeliversMessagesInOrder(t *testing.T) {
	srv, _ := newStreamServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		for _, msg := range []string{"one", "two", "three"} {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Keep the connection open until the client leaves.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	received := make(chan string, 8)

	c := NewConn(wsURL(srv), time.Second, func(raw []byte) {
		received <- string(raw)
	}, zerolog.Nop())
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StatusConnected, c.Status())

	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestConn_ConnectIsIdempotentWhenConnected(t *testing.T) {
	srv, accepts := newStreamServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewConn(wsURL(srv), time.Second, nil, zerolog.Nop())
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, int32(1), accepts.Load())
}

func TestConn_ReconnectsAfterRemoteClose(t *testing.T) {
	var srv *httptest.Server
	var accepts *atomic.Int32
	srv, accepts = newStreamServer(t, func(ws *websocket.Conn) {
		// First connection is dropped immediately; later ones stay up.
		if accepts.Load() == 1 {
			ws.Close()
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewConn(wsURL(srv), 30*time.Millisecond, nil, zerolog.Nop())
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))

	waitFor(t, 3*time.Second, func() bool { return accepts.Load() >= 2 })
	waitFor(t, 3*time.Second, func() bool { return c.Status() == StatusConnected })
}

func TestConn_DialFailureSetsErrorStatus(t *testing.T) {
	// Nothing listens here.
	c := NewConn("ws://127.0.0.1:1/api/ws/live", time.Hour, nil, zerolog.Nop())
	defer c.Close()

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusError, c.Status())
}

func TestConn_StaleReconnectTimerIsSuppressed(t *testing.T) {
	srv, accepts := newStreamServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewConn(wsURL(srv), 20*time.Millisecond, nil, zerolog.Nop())
	defer c.Close()
	require.NoError(t, c.Connect(context.Background()))

	// Arm a reconnect timer for an attempt generation that a newer
	// connect has already superseded. When it fires, both the status
	// freshness check and the generation check must suppress it.
	c.mu.Lock()
	c.scheduleReconnect(c.generation - 1)
	c.mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), accepts.Load())
	assert.Equal(t, StatusConnected, c.Status())
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	srv, _ := newStreamServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewConn(wsURL(srv), time.Second, nil, zerolog.Nop())
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	// Second close of an already-closed handle must not fail.
	require.NoError(t, c.Close())
	assert.Equal(t, StatusDisconnected, c.Status())

	err := c.Connect(context.Background())
	assert.Error(t, err)
}

func TestConn_CloseCancelsPendingReconnect(t *testing.T) {
	srv, accepts := newStreamServer(t, func(ws *websocket.Conn) {
		// Drop every connection straight away to keep the client in its
		// reconnect cycle.
		ws.Close()
	})

	c := NewConn(wsURL(srv), 30*time.Millisecond, nil, zerolog.Nop())
	require.NoError(t, c.Connect(context.Background()))

	waitFor(t, 3*time.Second, func() bool { return accepts.Load() >= 1 })
	require.NoError(t, c.Close())

	settled := accepts.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, settled, accepts.Load())
}
