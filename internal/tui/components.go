package tui

import (
	"fmt"
	"time"

	"signal-relay/internal/domain"
	"signal-relay/internal/ws"

	"github.com/charmbracelet/lipgloss"
)

// FormatSignalRow renders one active signal as a table line.
func FormatSignalRow(s domain.Signal) string {
	return fmt.Sprintf("%-9s %-10s %s %10s %10s %10s  %s",
		shortID(s.ID),
		s.Pair,
		actionStyle(s.Action).Render(fmt.Sprintf("%-5s", s.Action)),
		formatPrice(s.Entry),
		formatPrice(s.StopLoss),
		formatPrice(s.TakeProfit),
		s.CreatedAt.Format(time.RFC822),
	)
}

// FormatEvent renders one hub event as a feed line. Unknown payloads
// produce an empty string and are skipped by the feed.
func FormatEvent(ev ws.Event, at time.Time) string {
	sig, ok := ev.Data.(domain.Signal)
	if !ok {
		return ""
	}

	stamp := SubtextStyle.Render(at.Format("15:04:05"))
	switch ev.Event {
	case ws.EventNewSignal:
		return fmt.Sprintf("%s  NEW     %s %s @ %s",
			stamp, actionStyle(sig.Action).Render(string(sig.Action)), sig.Pair, formatPrice(sig.Entry))
	case ws.EventSignalUpdate:
		line := fmt.Sprintf("%s  UPDATE  %s %s", stamp, sig.Pair, statusStyle(sig.Status).Render(string(sig.Status)))
		if sig.Profit != nil && sig.ProfitPercent != nil {
			profitStyle := ProfitUpStyle
			if *sig.Profit < 0 {
				profitStyle = ProfitDownStyle
			}
			line += "  " + profitStyle.Render(fmt.Sprintf("%+.4f (%+.2f%%)", *sig.Profit, *sig.ProfitPercent))
		}
		return line
	}
	return ""
}

// FormatStats renders the aggregate statistics line.
func FormatStats(stats *domain.SignalStats, timeframe domain.Timeframe) string {
	if stats == nil {
		return SubtextStyle.Render("no statistics yet")
	}
	return fmt.Sprintf("[%s] total %d  active %d  wins %d  losses %d  win rate %.2f%%  pnl %+.4f",
		timeframe, stats.TotalSignals, stats.ActiveSignals,
		stats.WinningSignals, stats.LosingSignals, stats.WinRate, stats.TotalProfit)
}

func actionStyle(action domain.SignalAction) lipgloss.Style {
	if action == domain.ActionShort {
		return ActionShortStyle
	}
	return ActionLongStyle
}

func statusStyle(status domain.SignalStatus) lipgloss.Style {
	switch status {
	case domain.StatusActive:
		return StatusActiveStyle
	case domain.StatusClosedWin:
		return StatusWinStyle
	case domain.StatusClosedLoss:
		return StatusLossStyle
	default:
		return StatusOtherStyle
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatPrice(v float64) string {
	if v >= 100 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.4f", v)
}
