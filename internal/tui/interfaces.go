package tui

import (
	"context"

	"signal-relay/internal/domain"
	"signal-relay/internal/ws"
)

// SignalQuerier provides signal data to the TUI.
type SignalQuerier interface {
	ListActive(ctx context.Context) ([]domain.Signal, error)
	Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error)
}

// Services bundles the dependencies injected into the watch screen. Events
// carries a live hub subscription; nil disables the event feed.
type Services struct {
	Signals  SignalQuerier
	Events   *ws.Subscriber
	Username string
}
