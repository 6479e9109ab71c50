package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codx-dev/codx/internal/engine"
	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/store"
)

func newRunCmd(a *app) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "run <recipe>",
		Short: "Execute a recipe from a path or a registry package",
		Long: `Execute a recipe.

<recipe> is a recipe.yml file, a directory containing one, or the name of a
registry package ("my-recipe", "@scope/my-recipe@1.2.0"). Package names get
the "-codx-recipe" suffix when it is missing.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{
				"package_manager": "pm",
				"assume_yes":      "yes",
				"command_timeout": "timeout",
			} {
				if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if noHistory {
				cfg.History = false
			}
			projectDir, _ := cmd.Flags().GetString("project-dir")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, cfg, args[0], projectDir)
		},
	}

	cmd.Flags().String("pm", "", "package manager to use (npm, yarn, pnpm, bun)")
	cmd.Flags().StringP("project-dir", "p", ".", "project directory the recipe runs against")
	cmd.Flags().BoolP("yes", "y", false, "run commands without asking for confirmation")
	cmd.Flags().Duration("timeout", 0, "per-command timeout (0 disables it)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	return cmd
}

func (a *app) run(ctx context.Context, cfg Config, ref, projectDir string) error {
	s, err := a.newSession(cfg, projectDir)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx = logging.WithRecipe(ctx, ref)
	log := logging.LogWith(ctx, s.logger)

	loaded, err := s.loader.Load(ctx, ref)
	if err != nil {
		s.console.Error(engine.ErrorMessage(err))
		return &reportedError{err}
	}
	defer func() {
		if err := loaded.Close(); err != nil {
			log.Warn("cleanup failed", "path", loaded.Dir, "error", err)
		}
	}()

	s.exec.UsePackageManager(cfg.PackageManager)

	opts := []engine.Option{
		engine.WithConsole(s.console),
		engine.WithLogger(s.logger),
		engine.WithConditions(s.conditions),
	}
	if cfg.History {
		db, err := openHistory(ctx, cfg)
		if err != nil {
			log.Warn("history disabled", "path", cfg.HistoryDB, "error", err)
		} else {
			defer db.Close()
			opts = append(opts, engine.WithJournal(store.NewJournal(db, uuid.NewString(), s.logger)))
		}
	}

	runner := engine.NewRunner(s.exec, s.registry, opts...)
	if err := runner.Run(ctx, loaded.Recipe, ""); err != nil {
		return &reportedError{err}
	}
	return nil
}
