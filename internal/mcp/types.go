package mcp

import (
	"fmt"
	"strings"

	"signal-relay/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type signalsListActiveInput struct{}

type signalsListActiveOutput struct {
	Signals []domain.Signal `json:"signals"`
}

type signalsGetInput struct {
	ID string `json:"id" jsonschema:"signal identifier (uuid)"`
}

type signalsGetOutput struct {
	Signal *domain.Signal `json:"signal"`
}

type signalsHistoryInput struct {
	Status string `json:"status,omitempty" jsonschema:"optional status filter: ACTIVE, CLOSED_WIN, CLOSED_LOSS, CANCELLED"`
	Pair   string `json:"pair,omitempty" jsonschema:"optional instrument pair filter (e.g. EURUSD)"`
	Action string `json:"action,omitempty" jsonschema:"optional action filter: LONG or SHORT"`
	Limit  int    `json:"limit,omitempty" jsonschema:"number of signals to return, max 200"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of signals to skip"`
}

type signalsHistoryOutput struct {
	Signals []domain.Signal `json:"signals"`
}

type signalsStatsInput struct {
	Timeframe string `json:"timeframe,omitempty" jsonschema:"optional timeframe: today, week, month, all"`
}

type signalsStatsOutput struct {
	Statistics *domain.SignalStats `json:"statistics"`
}

type closeSignalInput struct {
	ID         string   `json:"id" jsonschema:"signal identifier (uuid)"`
	Status     string   `json:"status" jsonschema:"terminal status: CLOSED_WIN, CLOSED_LOSS, CANCELLED"`
	ClosePrice *float64 `json:"close_price,omitempty" jsonschema:"optional fill price; profit is derived from it"`
}

type closeSignalOutput struct {
	Signal *domain.Signal `json:"signal"`
}

func normalizeHistoryFilter(in signalsHistoryInput) (domain.HistoryFilter, error) {
	filter := domain.HistoryFilter{
		Limit:  normalizeHistoryLimit(in.Limit),
		Offset: in.Offset,
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if raw := strings.TrimSpace(in.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.HistoryFilter{}, fmt.Errorf("unsupported status: %s", raw)
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(in.Action); raw != "" {
		action, ok := domain.ParseAction(raw)
		if !ok {
			return domain.HistoryFilter{}, fmt.Errorf("unsupported action: %s", raw)
		}
		filter.Action = action
	}

	filter.Pair = strings.ToUpper(strings.TrimSpace(in.Pair))
	return filter, nil
}

func normalizeHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func normalizeTimeframe(raw string) (domain.Timeframe, error) {
	timeframe, ok := domain.ParseTimeframe(raw)
	if !ok {
		return "", fmt.Errorf("unsupported timeframe: %s", raw)
	}
	return timeframe, nil
}

func normalizeCloseStatus(raw string) (domain.SignalStatus, error) {
	status, ok := domain.ParseStatus(raw)
	if !ok {
		return "", fmt.Errorf("unsupported status: %s", raw)
	}
	if !status.IsTerminal() {
		return "", fmt.Errorf("close_signal requires a terminal status, got: %s", status)
	}
	return status, nil
}
