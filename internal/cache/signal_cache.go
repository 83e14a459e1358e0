package cache

import (
	"context"
	"encoding/json"
	"time"

	"signal-relay/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	activeSignalsKey = "signals:active"
	statsKeyPrefix   = "signals:stats:"
)

// SignalCache is a read-through cache in front of the hot public reads
// (the active set and stats summaries). Every write path invalidates it,
// so a stale entry can live at most one TTL.
type SignalCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSignalCache returns a nil-safe cache; a nil client disables it.
func NewSignalCache(client *redis.Client, ttl time.Duration) *SignalCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &SignalCache{client: client, ttl: ttl}
}

func (c *SignalCache) enabled() bool {
	return c != nil && c.client != nil
}

// GetActive returns the cached active set, or ok=false on miss / disabled
// cache / decode error.
func (c *SignalCache) GetActive(ctx context.Context) ([]domain.Signal, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, activeSignalsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var signals []domain.Signal
	if err := json.Unmarshal(raw, &signals); err != nil {
		return nil, false
	}
	return signals, true
}

func (c *SignalCache) SetActive(ctx context.Context, signals []domain.Signal) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return
	}
	c.client.Set(ctx, activeSignalsKey, raw, c.ttl)
}

func (c *SignalCache) GetStats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, statsKeyPrefix+string(timeframe)).Bytes()
	if err != nil {
		return nil, false
	}
	var stats domain.SignalStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (c *SignalCache) SetStats(ctx context.Context, timeframe domain.Timeframe, stats *domain.SignalStats) {
	if !c.enabled() || stats == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	c.client.Set(ctx, statsKeyPrefix+string(timeframe), raw, c.ttl)
}

// Invalidate drops every cached read. Called after create, lifecycle
// update and delete.
func (c *SignalCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	keys := []string{activeSignalsKey}
	for _, tf := range []domain.Timeframe{
		domain.TimeframeToday, domain.TimeframeWeek, domain.TimeframeMonth, domain.TimeframeAll,
	} {
		keys = append(keys, statsKeyPrefix+string(tf))
	}
	c.client.Del(ctx, keys...)
}
