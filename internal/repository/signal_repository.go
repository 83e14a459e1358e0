package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal-relay/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SignalRepository is the durable signal store. All mutation funnels
// through Create, UpdateLifecycle and Delete; validation is the caller's
// job.
type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

const signalSchema = `
CREATE TABLE IF NOT EXISTS signals (
    id             TEXT PRIMARY KEY,
    pair           TEXT NOT NULL,
    action         TEXT NOT NULL,
    entry          DOUBLE PRECISION NOT NULL,
    stop_loss      DOUBLE PRECISION NOT NULL,
    take_profit    DOUBLE PRECISION NOT NULL,
    confidence     INTEGER,
    risk           DOUBLE PRECISION,
    reasoning      TEXT NOT NULL DEFAULT '',
    source         TEXT NOT NULL DEFAULT 'external-producer',
    status         TEXT NOT NULL DEFAULT 'ACTIVE',
    close_price    DOUBLE PRECISION,
    profit         DOUBLE PRECISION,
    profit_percent DOUBLE PRECISION,
    closed_at      TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals (status);
CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_pair ON signals (pair);
`

func (r *SignalRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "signal-repo.run-migrations")
	defer span.End()

	if _, err := r.pool.Exec(ctx, signalSchema); err != nil {
		return fmt.Errorf("create signals schema: %w", err)
	}
	return nil
}

const signalColumns = `id, pair, action, entry, stop_loss, take_profit, confidence, risk,
       reasoning, source, status, close_price, profit, profit_percent, closed_at, created_at`

// Create persists the signal, assigning id and created_at when absent.
func (r *SignalRepository) Create(ctx context.Context, s domain.Signal) (*domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.create")
	defer span.End()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = domain.StatusActive
	}
	if s.Source == "" {
		s.Source = domain.DefaultSource
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO signals (id, pair, action, entry, stop_loss, take_profit, confidence, risk,
		                      reasoning, source, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID,
		s.Pair,
		string(s.Action),
		s.Entry,
		s.StopLoss,
		s.TakeProfit,
		s.Confidence,
		s.Risk,
		s.Reasoning,
		s.Source,
		string(s.Status),
		s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}
	return &s, nil
}

func (r *SignalRepository) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.get-by-id")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE id = $1`, id)

	s, err := scanSignal(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSignalNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListActive returns open signals, most recent first.
func (r *SignalRepository) ListActive(ctx context.Context) ([]domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-active")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE status = $1 ORDER BY created_at DESC`,
		string(domain.StatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSignals(rows)
}

// ListHistory returns signals most recent first with optional equality
// filters and offset pagination.
func (r *SignalRepository) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-history")
	defer span.End()

	args := make([]any, 0, 5)
	var sb strings.Builder
	sb.WriteString(`SELECT ` + signalColumns + ` FROM signals WHERE 1=1`)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sb.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	if filter.Pair != "" {
		args = append(args, strings.ToUpper(filter.Pair))
		sb.WriteString(fmt.Sprintf(" AND pair = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		sb.WriteString(fmt.Sprintf(" AND action = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)))

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, offset)
	sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSignals(rows)
}

// UpdateLifecycle merges the patch into the current record. Profit and
// profit percent are computed from the stored entry/action whenever a close
// price is supplied without an explicit override. Last write wins; there is
// no version check.
func (r *SignalRepository) UpdateLifecycle(ctx context.Context, id string, patch domain.LifecyclePatch) (*domain.Signal, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.update-lifecycle")
	defer span.End()

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		current.Status = *patch.Status
	}
	if patch.ClosePrice != nil {
		current.ClosePrice = patch.ClosePrice
	}
	if patch.ClosePrice != nil && patch.Profit == nil && patch.ProfitPercent == nil {
		profit, pct := domain.ComputeProfit(current.Action, current.Entry, *patch.ClosePrice)
		current.Profit = &profit
		current.ProfitPercent = &pct
	}
	if patch.Profit != nil {
		current.Profit = patch.Profit
	}
	if patch.ProfitPercent != nil {
		current.ProfitPercent = patch.ProfitPercent
	}
	if patch.ClosedAt != nil {
		current.ClosedAt = patch.ClosedAt
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE signals
		    SET status = $2, close_price = $3, profit = $4, profit_percent = $5, closed_at = $6
		  WHERE id = $1`,
		current.ID,
		string(current.Status),
		current.ClosePrice,
		current.Profit,
		current.ProfitPercent,
		current.ClosedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update signal %s: %w", id, err)
	}
	return current, nil
}

// Delete hard-deletes the row and reports whether one existed.
func (r *SignalRepository) Delete(ctx context.Context, id string) (bool, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.delete")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM signals WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete signal %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats aggregates over the timeframe window. Win rate math lives in
// domain so repository and service agree on rounding.
func (r *SignalRepository) Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.stats")
	defer span.End()

	args := make([]any, 0, 1)
	query := `SELECT COUNT(*),
	       COUNT(*) FILTER (WHERE status = 'ACTIVE'),
	       COUNT(*) FILTER (WHERE status = 'CLOSED_WIN'),
	       COUNT(*) FILTER (WHERE status = 'CLOSED_LOSS'),
	       COALESCE(SUM(profit), 0),
	       COALESCE(SUM(profit_percent), 0),
	       COALESCE(AVG(profit), 0)
	  FROM signals`
	if since := timeframe.Since(time.Now()); since != nil {
		args = append(args, *since)
		query += ` WHERE created_at >= $1`
	}

	stats := &domain.SignalStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalSignals,
		&stats.ActiveSignals,
		&stats.WinningSignals,
		&stats.LosingSignals,
		&stats.TotalProfit,
		&stats.TotalProfitPercent,
		&stats.AverageProfit,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate signal stats: %w", err)
	}
	stats.WinRate = domain.WinRate(stats.WinningSignals, stats.LosingSignals)
	return stats, nil
}

func collectSignals(rows pgx.Rows) ([]domain.Signal, error) {
	signals := make([]domain.Signal, 0, 16)
	for rows.Next() {
		s, err := scanSignal(rows.Scan)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *s)
	}
	return signals, rows.Err()
}

func scanSignal(scan func(dest ...any) error) (*domain.Signal, error) {
	var s domain.Signal
	var action, status string
	var createdAt time.Time

	if err := scan(
		&s.ID,
		&s.Pair,
		&action,
		&s.Entry,
		&s.StopLoss,
		&s.TakeProfit,
		&s.Confidence,
		&s.Risk,
		&s.Reasoning,
		&s.Source,
		&status,
		&s.ClosePrice,
		&s.Profit,
		&s.ProfitPercent,
		&s.ClosedAt,
		&createdAt,
	); err != nil {
		return nil, err
	}
	s.Action = domain.SignalAction(action)
	s.Status = domain.SignalStatus(status)
	s.CreatedAt = createdAt.UTC()
	if s.ClosedAt != nil {
		utc := s.ClosedAt.UTC()
		s.ClosedAt = &utc
	}
	return &s, nil
}
