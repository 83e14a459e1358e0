package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"signal-relay/internal/domain"
	"signal-relay/internal/ws"

	tele "gopkg.in/telebot.v3"
)

type SignalQuerier interface {
	ListActive(ctx context.Context) ([]domain.Signal, error)
	Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error)
}

// StartTelegramBot wires the alert bot onto the broadcast hub. A blank
// token disables the bot.
func StartTelegramBot(ctx context.Context, token string, signals SignalQuerier, hub *ws.Hub) *AlertDispatcher {
	if token == "" {
		log.Println("Telegram bot token not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	alerts := NewAlertDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/subscribe", func(c tele.Context) error {
		if alerts.Subscribe(c.Chat().ID) {
			return c.Send("Subscribed. You will receive signal alerts here.")
		}
		return c.Send("This chat is already subscribed.")
	})

	b.Handle("/unsubscribe", func(c tele.Context) error {
		if alerts.Unsubscribe(c.Chat().ID) {
			return c.Send("Unsubscribed. No more alerts for this chat.")
		}
		return c.Send("This chat was not subscribed.")
	})

	b.Handle("/active", func(c tele.Context) error {
		active, err := signals.ListActive(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error loading active signals: %v", err))
		}
		if len(active) == 0 {
			return c.Send("No active signals right now.")
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Active signals (%d):\n", len(active))
		for _, s := range active {
			fmt.Fprintf(&sb, "%s %s @ %g (stop %g, target %g)\n",
				s.Action, s.Pair, s.Entry, s.StopLoss, s.TakeProfit)
		}
		return c.Send(sb.String())
	})

	b.Handle("/stats", func(c tele.Context) error {
		timeframe := domain.TimeframeAll
		if args := c.Args(); len(args) > 0 {
			tf, ok := domain.ParseTimeframe(args[0])
			if !ok {
				return c.Send("Usage: /stats [today|week|month|all]")
			}
			timeframe = tf
		}
		stats, err := signals.Stats(context.Background(), timeframe)
		if err != nil {
			return c.Send(fmt.Sprintf("Error loading statistics: %v", err))
		}
		return c.Send(fmt.Sprintf(
			"Signals (%s)\nTotal: %d\nActive: %d\nWins: %d\nLosses: %d\nWin rate: %.2f%%\nTotal profit: %.4f",
			timeframe, stats.TotalSignals, stats.ActiveSignals,
			stats.WinningSignals, stats.LosingSignals, stats.WinRate, stats.TotalProfit,
		))
	})

	go alerts.Run(ctx, hub.Subscribe())
	go b.Start()
	log.Println("Telegram bot started")
	return alerts
}
