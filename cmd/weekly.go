package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/scarchive/internal/formatter"
	"github.com/desertthunder/scarchive/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Weekly builds or refreshes the weekly favorites playlist for the selected week.
func (r *Runner) Weekly(ctx context.Context, cmd *cli.Command) error {
	week := int(cmd.Int("week"))

	if err := r.config.Validate(); err != nil {
		return err
	}

	client, err := r.soundcloud()
	if err != nil {
		return err
	}

	engine := tasks.NewWeeklyEngine(client, r.config.Weekly, r.config.SoundCloud.UserID, r.logger)

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase.String(), "step", update.Step)
		}
	}()

	result, err := engine.Run(ctx, week, progress)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("weekly playlist failed: %w", err)
	}

	return r.writePlain("%s", formatter.Summary(result, r.palette))
}
