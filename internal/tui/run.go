package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
)

// Run shows the dashboard until the user quits or ctx ends. Session changes
// and poll updates are forwarded into the program; the poll loop is stopped
// before Run returns.
func Run(ctx context.Context, sessions ports.SessionService, jobs ports.JobService) error {
	p := tea.NewProgram(NewModel(sessions, jobs), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := sessions.Subscribe(func(s domain.Session) {
		p.Send(sessionMsg(s))
	})
	defer unsubscribe()

	watch := jobs.Watch(ctx, func(u ports.PollUpdate) {
		p.Send(pollMsg(u))
	})
	defer watch.Stop()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
