package sshui

import (
	"fmt"
	"net"

	"signal-relay/internal/tui"
	"signal-relay/internal/ws"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
)

// Config holds the SSH listener settings.
type Config struct {
	Bind        string
	Port        int
	HostKeyPath string
}

// NewServer builds a wish SSH server that serves the watch screen to every
// session. Each session gets its own hub subscription, released when the
// session ends.
func NewServer(cfg Config, signals tui.SignalQuerier, hub *ws.Hub) (*ssh.Server, error) {
	handler := func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		svc := tui.Services{
			Signals:  signals,
			Username: s.User(),
		}
		if hub != nil {
			sub := hub.Subscribe()
			svc.Events = sub
			go func() {
				<-s.Context().Done()
				hub.Unsubscribe(sub)
			}()
		}
		return tui.NewWatchModel(svc), []tea.ProgramOption{tea.WithAltScreen()}
	}

	srv, err := wish.NewServer(
		wish.WithAddress(net.JoinHostPort(cfg.Bind, fmt.Sprintf("%d", cfg.Port))),
		wish.WithHostKeyPath(cfg.HostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(handler),
			activeterm.Middleware(),
			logging.Middleware(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create ssh server: %w", err)
	}
	return srv, nil
}
