package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"signal-relay/internal/domain"
	"signal-relay/internal/ws"

	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// AlertDispatcher relays broadcast events to subscribed Telegram chats.
type AlertDispatcher struct {
	sender messageSender

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

func NewAlertDispatcher(sender messageSender) *AlertDispatcher {
	return &AlertDispatcher{
		sender:      sender,
		subscribers: make(map[int64]struct{}),
	}
}

func (d *AlertDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; exists {
		return false
	}
	d.subscribers[chatID] = struct{}{}
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; !exists {
		return false
	}
	delete(d.subscribers, chatID)
	return true
}

func (d *AlertDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.subscribers[chatID]
	return exists
}

func (d *AlertDispatcher) subscriberIDs() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]int64, 0, len(d.subscribers))
	for id := range d.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Run consumes broadcast events until the context is cancelled or the
// subscription closes.
func (d *AlertDispatcher) Run(ctx context.Context, sub *ws.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			d.dispatch(ev)
		}
	}
}

func (d *AlertDispatcher) dispatch(ev ws.Event) {
	signal, ok := ev.Data.(domain.Signal)
	if !ok {
		return
	}
	text := FormatSignalAlert(ev.Event, signal)
	if text == "" {
		return
	}
	for _, chatID := range d.subscriberIDs() {
		if _, err := d.sender.Send(tele.ChatID(chatID), text); err != nil {
			log.Printf("telegram alert to chat %d failed: %v", chatID, err)
		}
	}
}

// FormatSignalAlert renders one event as a chat message. Unknown event
// kinds render empty and are skipped.
func FormatSignalAlert(kind string, s domain.Signal) string {
	switch kind {
	case ws.EventNewSignal:
		return fmt.Sprintf(
			"New signal: %s %s\nEntry: %g\nStop: %g\nTarget: %g",
			s.Action, s.Pair, s.Entry, s.StopLoss, s.TakeProfit,
		)
	case ws.EventSignalUpdate:
		if s.Status.IsTerminal() && s.Profit != nil && s.ProfitPercent != nil {
			return fmt.Sprintf(
				"Signal %s %s: %s\nProfit: %.4f (%.2f%%)",
				s.Action, s.Pair, s.Status, *s.Profit, *s.ProfitPercent,
			)
		}
		return fmt.Sprintf("Signal %s %s updated: %s", s.Action, s.Pair, s.Status)
	}
	return ""
}
