package server

import (
	"github.com/gofiber/contrib/websocket"
)

// LiveSocket serves one live-stream subscriber. On attach the manager
// replays a project_state frame per active project, then every
// broadcast is forwarded until the peer disconnects. Inbound "ping"
// text frames get a "pong"; every other inbound frame is ignored.
//
// A single writer goroutine owns the connection's write side; the pong
// reply is routed through it because websocket connections do not
// permit concurrent writers.
func (h *Handlers) LiveSocket(c *websocket.Conn) {
	sub := h.manager.Attach()
	defer h.manager.Detach(sub)

	pings := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case raw := <-sub:
				if err := c.WriteMessage(websocket.TextMessage, raw); err != nil {
					c.Close()
					return
				}
			case <-pings:
				if err := c.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
					c.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	for {
		messageType, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		if messageType == websocket.TextMessage && string(msg) == "ping" {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}
