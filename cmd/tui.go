package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musictransfer/internal/tasks"
	"github.com/desertthunder/musictransfer/internal/ui"
	"github.com/urfave/cli/v3"
)

// JobsWatch follows a job's progress in the terminal UI.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	id, err := jobID(cmd)
	if err != nil {
		return err
	}

	base := r.baseURL(cmd.String("url"))
	fetch := func(ctx context.Context, id string) (*tasks.TaskStatus, error) {
		return r.fetchStatus(ctx, base, id)
	}

	model := ui.NewModel(ctx, id, fetch, cmd.Duration("interval"))
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if err := model.Err(); err != nil {
		return err
	}
	if songs := model.Songs(); songs != nil {
		r.writePlain("✓ Job %s finished with %d songs\n", id, len(songs))
	}
	return nil
}
