package actions

import (
	"context"
	"encoding/json"

	"github.com/codx-dev/codx/pkg/schema"
)

const changeDirInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "changeDir"},
    "path": {"type": "string"}
  },
  "required": ["path"]
}`

type changeDirAction struct{ base }

func newChangeDirAction(deps Deps) Action { return &changeDirAction{base{deps}} }

func (a *changeDirAction) Name() string { return TypeChangeDir }

func (a *changeDirAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Change the project directory for the following steps.",
		InputSchema: json.RawMessage(changeDirInputSchema),
	}
}

func (a *changeDirAction) Execute(_ context.Context, data schema.ActionData) (any, error) {
	path := data.String("path")
	if path == "" {
		return nil, schema.NewError(schema.ErrCodeMissingParameter, "Directory path is required for the changeDir action").
			WithDetails(map[string]any{"parameter": "path"})
	}

	if err := a.Exec.ProjectDirectory.Change(a.interpolate(path)); err != nil {
		return nil, schema.NewError(schema.ErrCodeDirectoryChange, "Error changing directory").WithCause(err)
	}
	a.Console.Info("Current working directory: " + a.projectDir())
	return nil, nil
}
