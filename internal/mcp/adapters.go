package mcp

import (
	"context"

	"signal-relay/internal/domain"
	"signal-relay/internal/service"
)

// SignalReader exposes read operations for the signal pipeline.
type SignalReader interface {
	ListActive(ctx context.Context) ([]domain.Signal, error)
	History(ctx context.Context, filter domain.HistoryFilter) ([]domain.Signal, error)
	GetByID(ctx context.Context, id string) (*domain.Signal, error)
	Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error)
}

// SignalCloser exposes the lifecycle mutation used by the close_signal tool.
type SignalCloser interface {
	UpdateStatus(ctx context.Context, id string, input service.UpdateInput) (*domain.Signal, error)
}
