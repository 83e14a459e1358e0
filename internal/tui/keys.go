package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines key bindings used across the watch screen.
type KeyMap struct {
	Quit      key.Binding
	Refresh   key.Binding
	Timeframe key.Binding
	Up        key.Binding
	Down      key.Binding
}

// DefaultKeyMap provides the default key bindings.
var DefaultKeyMap = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
	Timeframe: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "cycle timeframe")),
	Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "scroll up")),
	Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "scroll down")),
}
