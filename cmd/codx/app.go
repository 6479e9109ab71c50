package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/codx-dev/codx/internal/actions"
	"github.com/codx-dev/codx/internal/execution"
	"github.com/codx-dev/codx/internal/expressions"
	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/recipe"
	"github.com/codx-dev/codx/internal/store"
	"github.com/codx-dev/codx/internal/validation"
	"github.com/codx-dev/codx/internal/variables"
	"github.com/codx-dev/codx/internal/workdir"
)

// app carries the process streams and settings shared by every command.
type app struct {
	in           io.Reader
	out          io.Writer
	errOut       io.Writer
	settingsPath string

	v       *viper.Viper
	verbose bool
}

func newApp(in io.Reader, out, errOut io.Writer, settingsPath string) *app {
	return &app{in: in, out: out, errOut: errOut, settingsPath: settingsPath}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "codx",
		Short:         "Run codx recipes against a project",
		Long:          "A recipe is a YAML file of steps (commands, file edits, prompts, package\noperations) executed against a project directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(a.settingsPath)
			if err != nil {
				return err
			}
			a.v = v
			return nil
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate("codx {{.Version}}\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "display more messages")

	root.AddCommand(
		newRunCmd(a),
		newSearchCmd(a),
		newValidateCmd(a),
		newSchemaCmd(a),
		newHistoryCmd(a),
		newActionsCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) config() (Config, error) {
	cfg, err := loadConfig(a.v)
	if err != nil {
		return Config{}, err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func (a *app) logger(cfg Config) *slog.Logger {
	return logging.NewLogger(a.errOut, logging.ParseLevel(cfg.LogLevel))
}

func (a *app) console() *logging.Console {
	return logging.NewConsole(a.out, a.errOut,
		logging.WithVerbose(a.verbose),
		logging.WithMarkdown(isTerminal(a.out)),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// session is the object graph of one recipe run.
type session struct {
	logger     *slog.Logger
	console    *logging.Console
	conditions *expressions.ConditionEvaluator
	exec       *execution.Context
	prompter   *actions.TerminalPrompter
	registry   *actions.Registry
	validator  *validation.RecipeValidator
	loader     *recipe.Loader
}

// newSession wires the engine for a run against projectDir.
func (a *app) newSession(cfg Config, projectDir string) (*session, error) {
	s := &session{
		logger:     a.logger(cfg),
		console:    a.console(),
		conditions: expressions.NewConditionEvaluator(),
	}

	recipeDir, err := workdir.New("")
	if err != nil {
		return nil, err
	}
	project, err := workdir.NewProject(projectDir)
	if err != nil {
		return nil, err
	}
	vars := variables.NewStore(expressions.NewInterpolator(s.conditions), s.logger)
	s.exec, err = execution.New(vars, recipeDir, project, s.logger)
	if err != nil {
		return nil, err
	}

	s.prompter = actions.NewTerminalPrompter(a.in, a.out)
	s.registry, err = actions.NewDefaultRegistry(actions.Deps{
		Exec:     s.exec,
		Console:  s.console,
		Prompter: s.prompter,
		Shell:    actions.ShellConfig{AssumeYes: cfg.AssumeYes, Timeout: cfg.CommandTimeout},
		Logger:   s.logger,
	})
	if err != nil {
		return nil, err
	}

	s.validator, err = validation.NewRecipeValidator(s.registry)
	if err != nil {
		return nil, err
	}
	s.loader = recipe.NewLoader(
		recipe.WithRegistryURL(cfg.RegistryURL),
		recipe.WithValidator(s.validator),
		recipe.WithRecipeDirectory(recipeDir),
		recipe.WithConsole(s.console),
		recipe.WithLogger(s.logger),
	)
	return s, nil
}

func (s *session) Close() error {
	return s.prompter.Close()
}

// openHistory opens the run journal database, creating its directory.
func openHistory(ctx context.Context, cfg Config) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o700); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.HistoryDB)
}
