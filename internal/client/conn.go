package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	perrors "github.com/emergent-labs/livedev/internal/errors"
)

// Status is the connection state of the live event stream.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Conn owns the persistent WebSocket connection to the live event
// stream. It reconnects with a fixed delay whenever the connection
// closes, with no retry cap and no backoff.
//
// Each connect attempt bumps a generation counter. A scheduled reconnect
// fires only if no newer attempt has happened and the status is not
// already connected, so a faster externally-triggered reconnect
// invalidates the pending timer instead of racing it.
type Conn struct {
	url       string
	interval  time.Duration
	onMessage func([]byte)
	logger    zerolog.Logger

	mu         sync.Mutex
	ws         *websocket.Conn
	status     Status
	generation uint64
	closed     bool
}

// NewConn creates a connection manager for the given stream URL.
// onMessage is invoked for every inbound text frame, on the single
// read-loop goroutine.
func NewConn(url string, interval time.Duration, onMessage func([]byte), logger zerolog.Logger) *Conn {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Conn{
		url:       url,
		interval:  interval,
		onMessage: onMessage,
		logger:    logger.With().Str("component", "conn").Logger(),
		status:    StatusDisconnected,
	}
}

// Connect dials the stream endpoint. It is a no-op when already
// connected. On failure the status flips to error and a reconnect is
// scheduled; the error is returned so the first connect can be surfaced.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return perrors.Newf(perrors.KindTransport, "ws.connect", "connection manager is closed")
	}
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.logger.Info().Str("url", c.url).Uint64("gen", gen).Msg("connecting to live stream")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		if !c.closed && gen == c.generation {
			c.status = StatusError
			c.scheduleReconnect(gen)
		}
		c.mu.Unlock()
		return perrors.New(perrors.KindTransport, "ws.dial", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return perrors.Newf(perrors.KindTransport, "ws.connect", "connection manager is closed")
	}
	c.ws = ws
	c.status = StatusConnected
	c.mu.Unlock()

	c.logger.Info().Msg("live stream connected")
	go c.readLoop(ws, gen)
	return nil
}

// readLoop consumes frames until the connection drops, then hands off to
// the reconnect path. Messages are delivered in transport order; no
// buffering or reordering happens here.
func (c *Conn) readLoop(ws *websocket.Conn, gen uint64) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		if c.onMessage != nil {
			c.onMessage(raw)
		}
	}
}

// handleClose runs when the remote end or the network drops the
// connection. Stale read loops (superseded by a newer connect) are
// discarded without touching state.
func (c *Conn) handleClose(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		return
	}

	c.logger.Warn().Err(err).Msg("live stream disconnected")
	c.status = StatusDisconnected
	c.ws = nil
	c.scheduleReconnect(gen)
}

// scheduleReconnect arms the fixed-delay reconnect timer. Caller holds
// c.mu. When the timer fires, the attempt is skipped if the manager was
// closed, a newer connect attempt superseded this one, or the status
// already flipped back to connected.
func (c *Conn) scheduleReconnect(gen uint64) {
	time.AfterFunc(c.interval, func() {
		c.mu.Lock()
		if c.closed || gen != c.generation || c.status == StatusConnected {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		if err := c.Connect(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("reconnect attempt failed")
		}
	})
}

// Status returns the current connection status.
func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close shuts the connection down exactly once. Closing an already
// closed manager is a no-op, and pending reconnect timers are
// invalidated by the generation bump.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++
	ws := c.ws
	c.ws = nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return ws.Close()
	}
	return nil
}
