package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"mealquest/internal/tracker"
)

func RunDashboard(ctx context.Context, tr *tracker.Tracker, out io.Writer) error {
	m := newDashModel(ctx, tr)
	p := tea.NewProgram(m, tea.WithOutput(out))
	_, err := p.Run()
	return err
}
