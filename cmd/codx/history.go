package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/store"
	"github.com/codx-dev/codx/pkg/schema"
)

const historyTimeFormat = "2006-01-02 15:04:05"

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show the events of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			db, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return schema.NewErrorf(schema.ErrCodeStore, "Cannot open history database %s", cfg.HistoryDB).WithCause(err)
			}
			defer db.Close()

			console := a.console()
			if len(args) == 1 {
				return a.showRun(cmd.Context(), db, console, args[0], asJSON)
			}
			return a.listRuns(cmd.Context(), db, console, store.RunFilter{
				Status: schema.RunStatus(status),
				Limit:  limit,
			}, asJSON)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&status, "status", "", "only list runs with this status (active, completed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) listRuns(ctx context.Context, s store.Store, console *logging.Console, filter store.RunFilter, asJSON bool) error {
	runs, err := s.ListRuns(ctx, filter)
	if err != nil {
		return err
	}
	if asJSON {
		return a.writeJSON(runs)
	}
	if len(runs) == 0 {
		console.Info("No runs recorded.")
		return nil
	}
	for _, run := range runs {
		console.Message(fmt.Sprintf("%s  %-9s  %s  %s",
			run.ID, run.Status, run.StartedAt.Local().Format(historyTimeFormat), run.Recipe), logging.StyleDefault)
	}
	return nil
}

func (a *app) showRun(ctx context.Context, s store.Store, console *logging.Console, id string, asJSON bool) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	events, err := s.GetEvents(ctx, id, 0)
	if err != nil {
		return err
	}
	if asJSON {
		return a.writeJSON(map[string]any{"run": run, "events": events})
	}

	const width = 16
	console.Title("Run " + run.ID)
	console.Field("Recipe", run.Recipe, width)
	console.Field("Project", run.ProjectDir, width)
	console.Field("Package manager", run.PackageManager, width)
	console.Field("Status", string(run.Status), width)
	console.Field("Started", run.StartedAt.Local().Format(historyTimeFormat), width)
	if run.CompletedAt != nil {
		console.Field("Duration", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String(), width)
	}
	console.Field("Error", run.Error, width)
	if run.Description != "" {
		console.Message("", logging.StyleDefault)
		console.Markdown(run.Description)
	}
	console.Message("", logging.StyleDefault)

	for _, ev := range events {
		line := fmt.Sprintf("%3d  %-13s  %-8s %s", ev.Sequence, ev.Type, ev.StepPath, ev.StepName)
		if len(ev.Payload) > 0 && string(ev.Payload) != "null" {
			line += "  " + string(ev.Payload)
		}
		console.Message(line, logging.StyleDefault)
	}
	return nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
