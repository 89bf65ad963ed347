package server

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// StreamEvents handles GET /api/stream/events: a server-sent-events
// fallback for clients that cannot hold a websocket. It emits a
// heartbeat frame on connect and then on a fixed cadence until the
// peer goes away.
func (h *Handlers) StreamEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	interval := h.heartbeat
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for {
			if _, err := w.WriteString(heartbeatFrame(time.Now().UTC())); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
			time.Sleep(interval)
		}
	}))
	return nil
}

// heartbeatFrame formats one SSE heartbeat event.
func heartbeatFrame(at time.Time) string {
	return fmt.Sprintf("event: heartbeat\ndata: {\"timestamp\": %q}\n\n", at.Format(time.RFC3339))
}
