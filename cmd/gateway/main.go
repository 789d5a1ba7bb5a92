// Command gateway is a thin, ambient HTTP demo surface: it is not part of
// the spec's core, but gives the module's one kept web framework
// (gin-gonic/gin) a real job — ingesting raw transport events into the
// Event Stream Processor and exposing the Typed Event Bus as
// Server-Sent Events for a browser client to consume.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/copperleaf-dev/agentstream/pkg/eventbus"
	"github.com/copperleaf-dev/agentstream/pkg/session"
	"github.com/copperleaf-dev/agentstream/pkg/stream"
	"github.com/gin-gonic/gin"
)

// hub fans bus events out to connected SSE clients.
type hub struct {
	mu      sync.Mutex
	clients map[chan sseFrame]struct{}
}

type sseFrame struct {
	name    string
	payload any
}

func newHub() *hub {
	return &hub{clients: make(map[chan sseFrame]struct{})}
}

func (h *hub) subscribe() chan sseFrame {
	ch := make(chan sseFrame, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan sseFrame) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *hub) broadcast(name string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- sseFrame{name: name, payload: payload}:
		default:
			// Slow client: drop the frame rather than block the processor.
		}
	}
}

func main() {
	store := session.NewStore()
	bus := eventbus.NewBus()
	processor := stream.NewProcessor(store, bus)

	h := newHub()
	bus.Subscribe(func(ctx context.Context, name string, payload any) {
		h.broadcast(name, payload)
	})

	r := gin.Default()

	r.POST("/events", func(c *gin.Context) {
		var ev stream.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		processor.ProcessEvent(c.Request.Context(), ev)
		c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
	})

	r.GET("/stream", func(c *gin.Context) {
		ch := h.subscribe()
		defer h.unsubscribe(ch)

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case frame, open := <-ch:
				if !open {
					return
				}
				body, err := json.Marshal(frame.payload)
				if err != nil {
					continue
				}
				fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", frame.name, body)
				flusher.Flush()
			}
		}
	})

	log.Println("gateway listening on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
