package ws

import (
	"log"
	"sync"

	"signal-relay/internal/domain"
)

const (
	EventInitialSignals = "initial-signals"
	EventNewSignal      = "new-signal"
	EventSignalUpdate   = "signal-update"
)

// Event is the envelope pushed to every connected viewer. Data is a single
// signal for new/update events and the active snapshot for the initial one.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const subscriberBuffer = 64

// Hub fans signal lifecycle events out to connected viewers. Delivery is
// best effort: a subscriber whose buffer is full misses the event and is
// expected to reconcile via the active-signals query.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

type Subscriber struct {
	ch chan Event
}

// Events is the subscriber's receive side. Closed on Unsubscribe.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	// Closing under the write lock means no Publish (which fans out under
	// the read lock) can be sending on this channel.
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.subscribers[sub]; exists {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish sends the event to every current subscriber without blocking.
// The read lock is held across the fan-out so an Unsubscribe cannot close
// a channel mid-send; every send is a non-blocking select, so the lock is
// held only for as long as the buffered writes take.
func (h *Hub) Publish(kind string, signal domain.Signal) {
	ev := Event{Event: kind, Data: signal}

	h.mu.RLock()
	dropped := 0
	for sub := range h.subscribers {
		select {
		case sub.ch <- ev:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		log.Printf("broadcast %s: dropped for %d slow subscriber(s)", kind, dropped)
	}
}
