package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the editor on the alternate screen with mouse motion reporting
// and blocks until the user quits. It returns the final model so callers can
// read the last placement.
func Run(ctx context.Context, m Model, in io.Reader, out io.Writer) (Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	final, err := p.Run()
	if err != nil {
		return m, fmt.Errorf("bubble tea: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm, nil
	}
	return m, nil
}
