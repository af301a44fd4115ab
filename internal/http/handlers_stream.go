package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"snatch/internal/events"
)

const streamKeepalive = 15 * time.Second

// streamHandler serves the live event feed as Server-Sent Events. Each
// frame carries one JSON-encoded event. The subscription's bounded
// buffer means a stalled client only loses its own events.
func streamHandler(c *fiber.Ctx) error {
	bus := c.Locals("bus").(*events.Bus)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := bus.Subscribe()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		keepalive := time.NewTicker(streamKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-keepalive.C:
				// Comment frame keeps intermediaries from timing out
				// the connection; write failure means the client left.
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
