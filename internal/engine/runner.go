// Package engine walks a recipe's step tree and executes its actions.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/codx-dev/codx/internal/actions"
	"github.com/codx-dev/codx/internal/execution"
	"github.com/codx-dev/codx/internal/expressions"
	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/store"
	"github.com/codx-dev/codx/pkg/schema"
)

// ErrorVariable is the variable onFailure branches read the step error from.
const ErrorVariable = "error"

const footerWidth = 70

// ActionFactory resolves a step's action data to an executable action.
// Satisfied by *actions.Registry.
type ActionFactory interface {
	Create(data schema.ActionData) (actions.Action, error)
}

// Runner executes recipes one step at a time, depth-first.
type Runner struct {
	exec       *execution.Context
	factory    ActionFactory
	conditions *expressions.ConditionEvaluator
	console    *logging.Console
	logger     *slog.Logger
	journal    *store.Journal
}

// Option configures a Runner.
type Option func(*Runner)

// WithConsole sets the user-facing output.
func WithConsole(c *logging.Console) Option {
	return func(r *Runner) { r.console = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithJournal records the run into a journal.
func WithJournal(j *store.Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithConditions sets the evaluator for step conditions.
func WithConditions(e *expressions.ConditionEvaluator) Option {
	return func(r *Runner) { r.conditions = e }
}

// NewRunner creates a Runner over exec using factory to build actions.
func NewRunner(exec *execution.Context, factory ActionFactory, opts ...Option) *Runner {
	r := &Runner{
		exec:    exec,
		factory: factory,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.conditions == nil {
		r.conditions = expressions.NewConditionEvaluator()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.console == nil {
		r.console = logging.NewConsole(io.Discard, io.Discard)
	}
	return r
}

// Run executes recipe against projectDir, or against the current project
// directory when projectDir is empty. The returned error is the unhandled
// error of the first failing root step, unmodified.
func (r *Runner) Run(ctx context.Context, recipe *schema.Recipe, projectDir string) error {
	if projectDir != "" {
		if err := r.exec.ProjectDirectory.Init(projectDir); err != nil {
			return err
		}
	}

	if id := r.journal.RunID(); id != "" {
		ctx = logging.WithRunID(ctx, id)
	}
	r.journal.Start(ctx, store.Run{
		Recipe:         logging.Recipe(ctx),
		Description:    recipe.Description,
		ProjectDir:     r.exec.ProjectDirectory.Get(),
		PackageManager: r.packageManager(),
	})

	r.printHeader(recipe)
	logging.LogWith(ctx, r.logger).Info("recipe started", "steps", len(recipe.Steps))

	err := r.runSteps(ctx, recipe.Steps, "")

	r.printFooter(err)
	r.journal.Finish(ctx, err)
	if err != nil {
		logging.LogWith(ctx, r.logger).Error("recipe failed", "error", err)
	} else {
		logging.LogWith(ctx, r.logger).Info("recipe completed")
	}
	return err
}

func (r *Runner) runSteps(ctx context.Context, steps []schema.Step, parent string) error {
	for i := range steps {
		if err := ctx.Err(); err != nil {
			return schema.NewError(schema.ErrCodeCancelled, "Recipe execution cancelled").WithCause(err)
		}
		if err := r.runStep(ctx, &steps[i], stepPath(parent, strconv.Itoa(i))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step *schema.Step, path string) error {
	r.console.Message("", logging.StyleDefault)
	if step.Name != "" {
		r.console.Header(step.Name)
	}

	ctx = logging.WithStep(ctx, path)
	log := logging.LogWith(ctx, r.logger)
	label := step.Label()

	if !r.shouldRun(ctx, step, path) {
		return nil
	}

	r.journal.Record(ctx, path, label, schema.EventStepStarted, map[string]any{"type": step.Action.Type()})

	scope := r.enterScope()
	defer scope.restore(log)

	err := r.execute(ctx, step, scope)
	if err == nil {
		r.journal.Record(ctx, path, label, schema.EventStepCompleted, nil)
		// Failures of the success branches are handled by this step's
		// onFailure like a failure of its own action.
		if err = r.succeed(ctx, step, path); err == nil {
			return nil
		}
		log.Debug("step branch failed", "error", err)
	} else {
		log.Debug("step failed", "error", err)
		r.journal.Record(ctx, path, label, schema.EventStepFailed, map[string]any{
			"error": err.Error(),
			"code":  schema.CodeOf(err),
		})
	}

	if step.OnFailure == nil {
		return err
	}
	return r.recover(ctx, step, path, err)
}

// succeed runs the onSuccess then finally branches of step.
func (r *Runner) succeed(ctx context.Context, step *schema.Step, path string) error {
	if err := r.runSteps(ctx, step.OnSuccess, stepPath(path, "onSuccess")); err != nil {
		return err
	}
	return r.runSteps(ctx, step.Finally, stepPath(path, "finally"))
}

// recover runs the failure branches of step and, once they complete,
// marks err as handled.
func (r *Runner) recover(ctx context.Context, step *schema.Step, path string, stepErr error) error {
	if err := r.exec.Store.Set(ErrorVariable, stepErr); err != nil {
		return err
	}
	if err := r.runSteps(ctx, step.OnFailure, stepPath(path, "onFailure")); err != nil {
		return err
	}
	if err := r.runSteps(ctx, step.Finally, stepPath(path, "finally")); err != nil {
		return err
	}

	r.journal.Record(ctx, path, step.Label(), schema.EventStepHandled, map[string]any{"code": schema.CodeOf(stepErr)})
	logging.LogWith(ctx, r.logger).Info("step failure handled", "error", stepErr)
	return nil
}

func (r *Runner) shouldRun(ctx context.Context, step *schema.Step, path string) bool {
	if step.Condition == "" {
		return true
	}

	r.console.Debug("Evaluating condition: " + step.Condition)
	ok, err := r.conditions.Check(step.Condition, r.exec.Store.GetAll())
	if err != nil {
		logging.LogWith(ctx, r.logger).Debug("condition evaluated to false", "condition", step.Condition, "error", err)
	}
	if !ok {
		r.console.Warning("Condition not met, step skipped.")
		r.journal.Record(ctx, path, step.Label(), schema.EventStepSkipped, map[string]any{"condition": step.Condition})
		return false
	}

	r.console.Debug("Condition met, step executed.")
	return true
}

// execute creates and runs the step's action inside the step's working
// directory and stores its result.
func (r *Runner) execute(ctx context.Context, step *schema.Step, scope *dirScope) error {
	action, err := r.factory.Create(step.Action)
	if err != nil {
		return err
	}

	if step.WorkingDirectory != "" {
		if err := scope.change(step.WorkingDirectory); err != nil {
			return err
		}
	}

	result, err := action.Execute(ctx, step.Action)
	if err != nil {
		return err
	}
	return r.storeResult(ctx, step, result)
}

func (r *Runner) storeResult(ctx context.Context, step *schema.Step, result any) error {
	if result == nil {
		return nil
	}
	if step.Variable == "" {
		if r.console.Verbose() {
			r.console.Debug("Result of action " + step.Action.Type() + " (non stored in variable) is " + describe(result))
		}
		return nil
	}

	if err := r.exec.Store.Set(step.Variable, result); err != nil {
		return err
	}
	r.journal.Record(ctx, logging.Step(ctx), step.Label(), schema.EventVariableSet, map[string]any{"variable": step.Variable})
	return nil
}

// dirScope tracks a step-scoped project directory change.
type dirScope struct {
	dirs     *execution.Context
	previous string
	entered  string
}

func (r *Runner) enterScope() *dirScope {
	return &dirScope{dirs: r.exec, previous: r.exec.ProjectDirectory.Get()}
}

func (s *dirScope) change(dir string) error {
	if err := s.dirs.ProjectDirectory.Change(dir); err != nil {
		return schema.NewErrorf(schema.ErrCodeDirectoryChange, "Cannot change to working directory %q", dir).WithCause(err)
	}
	s.entered = s.dirs.ProjectDirectory.Get()
	return nil
}

// restore returns to the previous directory unless the step never changed
// it or something else moved it since.
func (s *dirScope) restore(log *slog.Logger) {
	if s.entered == "" || s.dirs.ProjectDirectory.Get() != s.entered {
		return
	}
	if err := s.dirs.ProjectDirectory.Change(s.previous); err != nil {
		log.Warn("restore working directory", "dir", s.previous, "error", err)
	}
}

func (r *Runner) printHeader(recipe *schema.Recipe) {
	r.console.Detail("Recipe directory", r.exec.RecipeDirectory.Get())
	r.console.Detail("Project directory", r.exec.ProjectDirectory.Get())
	r.console.Detail("Using package manager", r.packageManager())
	r.console.Detail("Recipe description", r.console.RenderMarkdown(recipe.Description))
	r.console.Detail("Recipe author", recipe.Author)
}

func (r *Runner) printFooter(err error) {
	line := strings.Repeat("-", footerWidth)
	if err == nil {
		r.console.Message(line, logging.StyleDefault)
		r.console.Message("Recipe executed successfully.", logging.StyleDefault)
		return
	}
	r.console.Error(line)
	r.console.Error("Recipe execution failed:")
	r.console.Error(ErrorMessage(err))
}

func (r *Runner) packageManager() string {
	pm, _ := r.exec.Store.Get(execution.VarPackageManager).(string)
	return pm
}

func stepPath(parent, elem string) string {
	if parent == "" {
		return elem
	}
	return parent + "." + elem
}

// ErrorMessage renders err for the user, with the causes of a CodxError.
func ErrorMessage(err error) string {
	var cErr *schema.CodxError
	if errors.As(err, &cErr) {
		return cErr.FullMessage()
	}
	return err.Error()
}

func describe(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "<unprintable>"
	}
	return string(b)
}
