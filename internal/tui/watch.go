package tui

import (
	"context"
	"fmt"
	"time"

	"signal-relay/internal/domain"
	"signal-relay/internal/ws"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxFeedLines    = 100
	refreshInterval = 30 * time.Second
)

var timeframeOptions = []domain.Timeframe{
	domain.TimeframeAll, domain.TimeframeToday, domain.TimeframeWeek, domain.TimeframeMonth,
}

// Watch screen message types.
type activeSignalsMsg []domain.Signal
type activeSignalsErrMsg struct{ err error }
type statsMsg struct{ stats *domain.SignalStats }
type statsErrMsg struct{ err error }
type liveEventMsg ws.Event
type feedClosedMsg struct{}
type refreshTickMsg time.Time

type feedLine struct {
	at   time.Time
	text string
}

// WatchModel is the root Bubble Tea model: an active-signal table on top of
// a live event feed, with an aggregate statistics footer.
type WatchModel struct {
	services     Services
	active       []domain.Signal
	feed         []feedLine
	stats        *domain.SignalStats
	timeframeIdx int
	scrollOffset int
	loading      bool
	feedClosed   bool
	err          error
	width        int
	height       int
	quitting     bool
}

// NewWatchModel creates the watch screen model.
func NewWatchModel(svc Services) WatchModel {
	return WatchModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial fetches and starts the live feed.
func (m WatchModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.fetchActiveCmd(),
		m.fetchStatsCmd(),
		tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshTickMsg(t) }),
	}
	if m.services.Events != nil {
		cmds = append(cmds, waitForEventCmd(m.services.Events))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case activeSignalsMsg:
		m.active = []domain.Signal(msg)
		m.loading = false
		m.scrollOffset = 0
		m.err = nil
		return m, nil

	case activeSignalsErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case statsMsg:
		m.stats = msg.stats
		return m, nil

	case statsErrMsg:
		// keep the stale footer; the table error is the louder one
		return m, nil

	case liveEventMsg:
		m.applyEvent(ws.Event(msg))
		if m.services.Events == nil {
			return m, nil
		}
		return m, waitForEventCmd(m.services.Events)

	case feedClosedMsg:
		m.feedClosed = true
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(
			m.fetchActiveCmd(),
			m.fetchStatsCmd(),
			tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshTickMsg(t) }),
		)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, DefaultKeyMap.Refresh):
			m.loading = true
			return m, tea.Batch(m.fetchActiveCmd(), m.fetchStatsCmd())

		case key.Matches(msg, DefaultKeyMap.Timeframe):
			m.timeframeIdx = (m.timeframeIdx + 1) % len(timeframeOptions)
			return m, m.fetchStatsCmd()

		case key.Matches(msg, DefaultKeyMap.Down):
			if m.scrollOffset < len(m.active)-m.visibleRows() {
				m.scrollOffset++
			}
			return m, nil

		case key.Matches(msg, DefaultKeyMap.Up):
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the watch screen.
func (m WatchModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var sections []string

	title := "  Signal Relay"
	if m.services.Username != "" {
		title += "  " + SubtextStyle.Render("("+m.services.Username+")")
	}
	sections = append(sections, AccentStyle.Render("LIVE")+HeaderStyle.Render(title))
	sections = append(sections, "")

	sections = append(sections, HeaderStyle.Render("  Active Signals"))
	sections = append(sections, m.renderTable()...)

	sections = append(sections, "")
	sections = append(sections, HeaderStyle.Render("  Event Feed"))
	sections = append(sections, m.renderFeed()...)

	sections = append(sections, "")
	sections = append(sections, SubtextStyle.Render("  "+FormatStats(m.stats, m.timeframe())))
	sections = append(sections, SubtextStyle.Render("  [t] timeframe  [R] refresh  [j/k] scroll  [q] quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Timeframe returns the currently selected stats timeframe.
func (m WatchModel) Timeframe() domain.Timeframe { return m.timeframe() }

// ActiveCount returns the number of listed active signals.
func (m WatchModel) ActiveCount() int { return len(m.active) }

// FeedLen returns the number of feed lines.
func (m WatchModel) FeedLen() int { return len(m.feed) }

// SetSize updates the model dimensions.
func (m *WatchModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m WatchModel) renderTable() []string {
	if m.loading {
		return []string{SubtextStyle.Render("  Loading...")}
	}
	if m.err != nil {
		return []string{ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err))}
	}
	if len(m.active) == 0 {
		return []string{SubtextStyle.Render("  No active signals")}
	}

	lines := []string{SubtextStyle.Render(
		fmt.Sprintf("  %-9s %-10s %-5s %10s %10s %10s  %s",
			"ID", "Pair", "Dir", "Entry", "Stop", "Target", "Created"),
	)}

	maxVisible := m.visibleRows()
	end := m.scrollOffset + maxVisible
	if end > len(m.active) {
		end = len(m.active)
	}
	for i := m.scrollOffset; i < end; i++ {
		lines = append(lines, "  "+FormatSignalRow(m.active[i]))
	}
	if len(m.active) > maxVisible {
		lines = append(lines, SubtextStyle.Render(
			fmt.Sprintf("  Showing %d-%d of %d", m.scrollOffset+1, end, len(m.active)),
		))
	}
	return lines
}

func (m WatchModel) renderFeed() []string {
	if m.feedClosed {
		return []string{SubtextStyle.Render("  Feed disconnected")}
	}
	if len(m.feed) == 0 {
		return []string{SubtextStyle.Render("  Waiting for events...")}
	}

	visible := m.feedRows()
	start := 0
	if len(m.feed) > visible {
		start = len(m.feed) - visible
	}
	var lines []string
	for _, entry := range m.feed[start:] {
		lines = append(lines, "  "+entry.text)
	}
	return lines
}

func (m *WatchModel) applyEvent(ev ws.Event) {
	sig, ok := ev.Data.(domain.Signal)
	if !ok {
		return
	}

	if text := FormatEvent(ev, time.Now()); text != "" {
		m.feed = append(m.feed, feedLine{at: time.Now(), text: text})
		if len(m.feed) > maxFeedLines {
			m.feed = m.feed[len(m.feed)-maxFeedLines:]
		}
	}

	switch ev.Event {
	case ws.EventNewSignal:
		m.active = append([]domain.Signal{sig}, m.active...)
	case ws.EventSignalUpdate:
		for i := range m.active {
			if m.active[i].ID != sig.ID {
				continue
			}
			if sig.Status.IsTerminal() {
				m.active = append(m.active[:i], m.active[i+1:]...)
			} else {
				m.active[i] = sig
			}
			break
		}
	}
}

func (m WatchModel) timeframe() domain.Timeframe {
	return timeframeOptions[m.timeframeIdx]
}

func (m WatchModel) fetchActiveCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Signals == nil {
			return activeSignalsErrMsg{err: fmt.Errorf("signal service not available")}
		}
		signals, err := m.services.Signals.ListActive(context.Background())
		if err != nil {
			return activeSignalsErrMsg{err: err}
		}
		return activeSignalsMsg(signals)
	}
}

func (m WatchModel) fetchStatsCmd() tea.Cmd {
	timeframe := m.timeframe()
	return func() tea.Msg {
		if m.services.Signals == nil {
			return statsErrMsg{err: fmt.Errorf("signal service not available")}
		}
		stats, err := m.services.Signals.Stats(context.Background(), timeframe)
		if err != nil {
			return statsErrMsg{err: err}
		}
		return statsMsg{stats: stats}
	}
}

func waitForEventCmd(sub *ws.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return feedClosedMsg{}
		}
		return liveEventMsg(ev)
	}
}

func (m WatchModel) visibleRows() int {
	available := (m.height - 12) / 2
	if available < 5 {
		return 5
	}
	return available
}

func (m WatchModel) feedRows() int {
	return m.visibleRows()
}
