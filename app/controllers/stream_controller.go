package controllers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/edupay/ipn-gateway/internal/pkg/realtime"
)

// streamKeepAlive is how often an idle stream sends a comment line so proxies
// do not cut the connection.
const streamKeepAlive = 15 * time.Second

// StreamController serves the realtime event stream as server-sent events.
type StreamController struct {
	hub *realtime.Hub
}

var streamController *StreamController

// InitializeStreamController wires the controller with the realtime hub.
func InitializeStreamController(hub *realtime.Hub) {
	streamController = &StreamController{hub: hub}
}

// HandleEventStream handles GET /api/v1/events/stream
func HandleEventStream(c *fiber.Ctx) error {
	return streamController.Stream(c)
}

// Stream subscribes the connection to the hub and writes one SSE message per
// status change until the client disconnects.
func (sc *StreamController) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	notices, unsubscribe := sc.hub.Subscribe()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		// A write error means the client is gone; returning releases the
		// subscription.
		for {
			select {
			case notice, ok := <-notices:
				if !ok {
					return
				}
				data, err := json.Marshal(notice)
				if err != nil {
					log.Errorf("[Stream] Failed to encode notice: %v", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
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
