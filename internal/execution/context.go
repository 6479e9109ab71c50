// Package execution bundles the per-run state shared by the runner and the
// actions: the variable store and the recipe and project directories.
package execution

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codx-dev/codx/internal/variables"
	"github.com/codx-dev/codx/internal/workdir"
)

// Internal variables maintained by the context.
const (
	VarCWD                      = "$CWD"
	VarRecipeDirectory          = "$RECIPE_DIRECTORY"
	VarProjectDirectory         = "$PROJECT_DIRECTORY"
	VarRelativeProjectDirectory = "$RELATIVE_PROJECT_DIRECTORY"
	VarPackageManager           = "$PACKAGE_MANAGER"
	VarPackageCommands          = "$PACKAGE_COMMANDS"
)

// Context is the state of one recipe run. Directory changes are mirrored
// into the store's internal variables by observers registered in New.
type Context struct {
	Store            *variables.Store
	RecipeDirectory  *workdir.WorkingDirectory
	ProjectDirectory *workdir.ProjectDirectory

	cwd    string
	logger *slog.Logger
}

// New wires store, recipeDir and projectDir together and seeds $CWD with
// the process working directory.
func New(store *variables.Store, recipeDir *workdir.WorkingDirectory, projectDir *workdir.ProjectDirectory, logger *slog.Logger) (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Context{
		Store:            store,
		RecipeDirectory:  recipeDir,
		ProjectDirectory: projectDir,
		cwd:              cwd,
		logger:           logger,
	}

	if err := store.SetInternal(VarCWD, cwd); err != nil {
		return nil, err
	}

	recipeDir.Observe(func(dir string) {
		c.setInternal(VarRecipeDirectory, dir)
	})
	projectDir.Observe(func(dir string) {
		c.setInternal(VarProjectDirectory, dir)
		c.setInternal(VarRelativeProjectDirectory, c.relative(dir))
	})

	return c, nil
}

// NewDefault builds a Context on fresh trackers rooted at the process
// working directory.
func NewDefault(store *variables.Store, logger *slog.Logger) (*Context, error) {
	recipeDir, err := workdir.New("")
	if err != nil {
		return nil, err
	}
	projectDir, err := workdir.NewProject("")
	if err != nil {
		return nil, err
	}
	return New(store, recipeDir, projectDir, logger)
}

// CWD returns the process working directory captured at construction.
func (c *Context) CWD() string { return c.cwd }

func (c *Context) relative(dir string) string {
	rel, err := filepath.Rel(c.cwd, dir)
	if err != nil {
		return dir
	}
	return rel
}

func (c *Context) setInternal(name, value string) {
	c.setInternalValue(name, value)
}

// setInternalValue only fails on names without "$", which the constants
// above rule out.
func (c *Context) setInternalValue(name string, value any) {
	if err := c.Store.SetInternal(name, value); err != nil {
		c.logger.Error("update internal variable", slog.String("name", name), slog.Any("error", err))
	}
}
