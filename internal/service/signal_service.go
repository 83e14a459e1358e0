package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"signal-relay/internal/domain"
	"signal-relay/internal/ws"

	"go.opentelemetry.io/otel/trace"
)

const defaultHistoryLimit = 50

type SignalRepository interface {
	Create(ctx context.Context, s domain.Signal) (*domain.Signal, error)
	GetByID(ctx context.Context, id string) (*domain.Signal, error)
	ListActive(ctx context.Context) ([]domain.Signal, error)
	ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.Signal, error)
	UpdateLifecycle(ctx context.Context, id string, patch domain.LifecyclePatch) (*domain.Signal, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error)
}

// SignalPublisher is the broadcast side. Publishing is fire and forget;
// a failure there never unwinds a confirmed write.
type SignalPublisher interface {
	Publish(kind string, signal domain.Signal)
}

type SignalCache interface {
	GetActive(ctx context.Context) ([]domain.Signal, bool)
	SetActive(ctx context.Context, signals []domain.Signal)
	GetStats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, bool)
	SetStats(ctx context.Context, timeframe domain.Timeframe, stats *domain.SignalStats)
	Invalidate(ctx context.Context)
}

// ValidationError reports a rejected input field. Handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IngestInput mirrors the producer payload. Pointer fields distinguish
// "absent" from zero.
type IngestInput struct {
	Pair       string   `json:"pair"`
	Action     string   `json:"action"`
	Entry      *float64 `json:"entry"`
	StopLoss   *float64 `json:"stopLoss"`
	TakeProfit *float64 `json:"takeProfit"`
	Confidence *int     `json:"confidence"`
	Risk       *float64 `json:"risk"`
	Reasoning  string   `json:"reasoning"`
	Source     string   `json:"source"`
}

// UpdateInput mirrors the lifecycle patch payload.
type UpdateInput struct {
	Status        *string    `json:"status"`
	ClosePrice    *float64   `json:"closePrice"`
	Profit        *float64   `json:"profit"`
	ProfitPercent *float64   `json:"profitPercent"`
	ClosedAt      *time.Time `json:"closedAt"`
}

type SignalService struct {
	tracer          trace.Tracer
	repo            SignalRepository
	publisher       SignalPublisher
	cache           SignalCache
	historyMaxLimit int
}

func NewSignalService(
	tracer trace.Tracer,
	repo SignalRepository,
	publisher SignalPublisher,
	cache SignalCache,
	historyMaxLimit int,
) *SignalService {
	if historyMaxLimit <= 0 {
		historyMaxLimit = 10000
	}
	return &SignalService{
		tracer:          tracer,
		repo:            repo,
		publisher:       publisher,
		cache:           cache,
		historyMaxLimit: historyMaxLimit,
	}
}

// Ingest validates, persists and broadcasts a producer signal. The event
// is published only after the write is confirmed.
func (s *SignalService) Ingest(ctx context.Context, input IngestInput) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.ingest")
	defer span.End()

	sig, vErr := buildSignal(input)
	if vErr != nil {
		return nil, vErr
	}

	stored, err := s.repo.Create(ctx, *sig)
	if err != nil {
		return nil, fmt.Errorf("persist signal: %w", err)
	}

	s.invalidate(ctx)
	s.publish(ws.EventNewSignal, *stored)
	return stored, nil
}

func buildSignal(input IngestInput) (*domain.Signal, *ValidationError) {
	pair := strings.ToUpper(strings.TrimSpace(input.Pair))
	if pair == "" {
		return nil, &ValidationError{Field: "pair", Message: "pair is required"}
	}

	action, ok := domain.ParseAction(input.Action)
	if !ok {
		return nil, &ValidationError{Field: "action", Message: "action must be LONG or SHORT"}
	}

	prices := map[string]*float64{
		"entry":      input.Entry,
		"stopLoss":   input.StopLoss,
		"takeProfit": input.TakeProfit,
	}
	for field, value := range prices {
		if value == nil {
			return nil, &ValidationError{Field: field, Message: field + " is required"}
		}
		if math.IsNaN(*value) || math.IsInf(*value, 0) {
			return nil, &ValidationError{Field: field, Message: field + " must be a finite number"}
		}
	}
	if input.Risk != nil && (math.IsNaN(*input.Risk) || math.IsInf(*input.Risk, 0)) {
		return nil, &ValidationError{Field: "risk", Message: "risk must be a finite number"}
	}

	return &domain.Signal{
		Pair:       pair,
		Action:     action,
		Entry:      *input.Entry,
		StopLoss:   *input.StopLoss,
		TakeProfit: *input.TakeProfit,
		Confidence: input.Confidence,
		Risk:       input.Risk,
		Reasoning:  strings.TrimSpace(input.Reasoning),
		Source:     strings.TrimSpace(input.Source),
		Status:     domain.StatusActive,
	}, nil
}

// UpdateStatus applies a lifecycle patch and broadcasts the result.
// ClosedAt defaults to now when a terminal status arrives without one.
// There is no transition-legality check: a closed signal may be re-patched
// with corrected numbers.
func (s *SignalService) UpdateStatus(ctx context.Context, id string, input UpdateInput) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.update-status")
	defer span.End()

	patch := domain.LifecyclePatch{
		ClosePrice:    input.ClosePrice,
		Profit:        input.Profit,
		ProfitPercent: input.ProfitPercent,
		ClosedAt:      input.ClosedAt,
	}

	if input.Status != nil {
		status, ok := domain.ParseStatus(*input.Status)
		if !ok {
			return nil, &ValidationError{Field: "status", Message: "status must be one of ACTIVE, CLOSED_WIN, CLOSED_LOSS, CANCELLED"}
		}
		patch.Status = &status
		if status.IsTerminal() && patch.ClosedAt == nil {
			now := time.Now().UTC()
			patch.ClosedAt = &now
		}
	}
	if patch.ClosePrice != nil && (math.IsNaN(*patch.ClosePrice) || math.IsInf(*patch.ClosePrice, 0)) {
		return nil, &ValidationError{Field: "closePrice", Message: "closePrice must be a finite number"}
	}

	updated, err := s.repo.UpdateLifecycle(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.publish(ws.EventSignalUpdate, *updated)
	return updated, nil
}

func (s *SignalService) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.get-by-id")
	defer span.End()

	return s.repo.GetByID(ctx, id)
}

// ListActive serves from cache when warm; every mutation invalidates it.
func (s *SignalService) ListActive(ctx context.Context) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.list-active")
	defer span.End()

	if s.cache != nil {
		if cached, ok := s.cache.GetActive(ctx); ok {
			return cached, nil
		}
	}

	signals, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetActive(ctx, signals)
	}
	return signals, nil
}

func (s *SignalService) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.history")
	defer span.End()

	filter.Limit = s.HistoryLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListHistory(ctx, filter)
}

// HistoryLimit normalizes a requested page size to what History actually
// queries with: the default when unset, capped at the configured maximum.
// Callers reporting pagination back to clients should echo this value.
func (s *SignalService) HistoryLimit(requested int) int {
	if requested <= 0 {
		requested = defaultHistoryLimit
	}
	if requested > s.historyMaxLimit {
		requested = s.historyMaxLimit
	}
	return requested
}

func (s *SignalService) Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.stats")
	defer span.End()

	if s.cache != nil {
		if cached, ok := s.cache.GetStats(ctx, timeframe); ok {
			return cached, nil
		}
	}

	stats, err := s.repo.Stats(ctx, timeframe)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetStats(ctx, timeframe, stats)
	}
	return stats, nil
}

// Delete hard-deletes a signal. There is no broadcast event for deletion;
// viewers reconcile through the active-signals query.
func (s *SignalService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "signal-service.delete")
	defer span.End()

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrSignalNotFound
	}
	s.invalidate(ctx)
	return nil
}

func (s *SignalService) publish(kind string, sig domain.Signal) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("broadcast %s for signal %s panicked: %v", kind, sig.ID, r)
		}
	}()
	s.publisher.Publish(kind, sig)
}

func (s *SignalService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
