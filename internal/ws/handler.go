package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"signal-relay/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ActiveLister interface {
	ListActive(ctx context.Context) ([]domain.Signal, error)
}

// Handler upgrades viewers onto the broadcast hub. Each connection first
// receives the current active snapshot, then live events in publish order.
type Handler struct {
	hub     *Hub
	signals ActiveLister
}

func NewHandler(hub *Hub, signals ActiveLister) *Handler {
	return &Handler{hub: hub, signals: signals}
}

func (h *Handler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Subscribe before fetching the snapshot: anything published while the
	// query runs queues in the subscriber buffer instead of being lost. A
	// signal may then arrive both in the snapshot and as a buffered event;
	// duplicates are harmless, gaps are not.
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	snapshot, err := h.signals.ListActive(c.Request.Context())
	if err != nil {
		log.Printf("websocket initial snapshot failed: %v", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Event{Event: EventInitialSignals, Data: snapshot}); err != nil {
		log.Printf("websocket initial write failed: %v", err)
		return
	}

	// Reader is discarded; it only detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
