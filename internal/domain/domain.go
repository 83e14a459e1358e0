package domain

import (
	"errors"
	"math"
	"strings"
	"time"
)

// ErrSignalNotFound is returned by the repository when an id has no row.
var ErrSignalNotFound = errors.New("signal not found")

// DefaultSource tags signals ingested without an explicit source label.
const DefaultSource = "external-producer"

type SignalAction string

const (
	ActionLong  SignalAction = "LONG"
	ActionShort SignalAction = "SHORT"
)

// ParseAction case-normalizes a raw action string. Anything other than
// LONG/SHORT is rejected.
func ParseAction(raw string) (SignalAction, bool) {
	switch SignalAction(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionLong:
		return ActionLong, true
	case ActionShort:
		return ActionShort, true
	}
	return "", false
}

type SignalStatus string

const (
	StatusActive     SignalStatus = "ACTIVE"
	StatusClosedWin  SignalStatus = "CLOSED_WIN"
	StatusClosedLoss SignalStatus = "CLOSED_LOSS"
	StatusCancelled  SignalStatus = "CANCELLED"
)

func ParseStatus(raw string) (SignalStatus, bool) {
	switch SignalStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusActive:
		return StatusActive, true
	case StatusClosedWin:
		return StatusClosedWin, true
	case StatusClosedLoss:
		return StatusClosedLoss, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

// IsTerminal reports whether the status closes the signal's lifecycle.
func (s SignalStatus) IsTerminal() bool {
	return s == StatusClosedWin || s == StatusClosedLoss || s == StatusCancelled
}

// Signal is a single trading recommendation record. Market fields are
// immutable after creation; lifecycle fields are mutated only through
// the repository's UpdateLifecycle.
type Signal struct {
	ID            string       `json:"id"`
	Pair          string       `json:"pair"`
	Action        SignalAction `json:"action"`
	Entry         float64      `json:"entry"`
	StopLoss      float64      `json:"stopLoss"`
	TakeProfit    float64      `json:"takeProfit"`
	Confidence    *int         `json:"confidence,omitempty"`
	Risk          *float64     `json:"risk,omitempty"`
	Reasoning     string       `json:"reasoning,omitempty"`
	Source        string       `json:"source"`
	Status        SignalStatus `json:"status"`
	ClosePrice    *float64     `json:"closePrice"`
	Profit        *float64     `json:"profit"`
	ProfitPercent *float64     `json:"profitPercent"`
	ClosedAt      *time.Time   `json:"closedAt"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// LifecyclePatch carries the mutable subset of a signal. Profit and
// ProfitPercent are normally computed server-side from ClosePrice; trusted
// admin callers may override them.
type LifecyclePatch struct {
	Status        *SignalStatus
	ClosePrice    *float64
	Profit        *float64
	ProfitPercent *float64
	ClosedAt      *time.Time
}

// HistoryFilter narrows ListHistory. Zero values mean "no filter".
type HistoryFilter struct {
	Status SignalStatus
	Pair   string
	Action SignalAction
	Limit  int
	Offset int
}

type SignalStats struct {
	TotalSignals       int     `json:"totalSignals"`
	ActiveSignals      int     `json:"activeSignals"`
	WinningSignals     int     `json:"winningSignals"`
	LosingSignals      int     `json:"losingSignals"`
	WinRate            float64 `json:"winRate"`
	TotalProfit        float64 `json:"totalProfit"`
	TotalProfitPercent float64 `json:"totalProfitPercent"`
	AverageProfit      float64 `json:"averageProfit"`
}

type Timeframe string

const (
	TimeframeToday Timeframe = "today"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeAll   Timeframe = "all"
)

// ParseTimeframe accepts the empty string as "all".
func ParseTimeframe(raw string) (Timeframe, bool) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(raw)))
	switch tf {
	case TimeframeToday, TimeframeWeek, TimeframeMonth, TimeframeAll:
		return tf, true
	case "":
		return TimeframeAll, true
	}
	return "", false
}

// Since returns the cutoff for the timeframe, or nil for "all".
func (t Timeframe) Since(now time.Time) *time.Time {
	var cutoff time.Time
	switch t {
	case TimeframeToday:
		y, m, d := now.UTC().Date()
		cutoff = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case TimeframeWeek:
		cutoff = now.UTC().Add(-7 * 24 * time.Hour)
	case TimeframeMonth:
		cutoff = now.UTC().Add(-30 * 24 * time.Hour)
	default:
		return nil
	}
	return &cutoff
}

// ComputeProfit applies the sign convention: a LONG gains when price rises,
// a SHORT gains when it falls. ProfitPercent is profit normalized by entry.
func ComputeProfit(action SignalAction, entry, closePrice float64) (profit, profitPercent float64) {
	if action == ActionShort {
		profit = entry - closePrice
	} else {
		profit = closePrice - entry
	}
	if entry != 0 {
		profitPercent = profit / entry * 100
	}
	return profit, profitPercent
}

// WinRate is winners over closed-with-outcome, as a percentage rounded to
// two decimals. Zero when nothing has closed.
func WinRate(wins, losses int) float64 {
	closed := wins + losses
	if closed == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(closed)*10000) / 100
}
