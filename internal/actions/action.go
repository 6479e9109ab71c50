package actions

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/codx-dev/codx/internal/execution"
	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/pkg/schema"
)

// Action is the executable unit behind a step's "action" block.
// Execute returns the value stored under the step's variable; nil means
// nothing is stored.
type Action interface {
	Name() string
	Schema() ActionSchema
	Execute(ctx context.Context, data schema.ActionData) (any, error)
}

// ActionSchema describes the parameters accepted by an action.
type ActionSchema struct {
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	Description string          `json:"description,omitempty"`
}

// ActionInfo is a summary of a registered action for listing.
type ActionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Deps are the collaborators handed to every action constructor.
type Deps struct {
	Exec     *execution.Context
	Console  *logging.Console
	Prompter Prompter
	Shell    ShellConfig
	Logger   *slog.Logger
}

// Constructor builds a fresh action instance for one step.
type Constructor func(deps Deps) Action

// base carries the dependencies shared by the built-in actions.
type base struct {
	Deps
}

func (b base) interpolate(s string) string {
	return b.Exec.Store.Interpolate(s)
}

func (b base) projectDir() string {
	return b.Exec.ProjectDirectory.Get()
}
