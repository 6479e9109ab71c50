package actions

import (
	"context"
	"encoding/json"

	"github.com/codx-dev/codx/pkg/schema"
)

const commandInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "command"},
    "command": {"type": "string"}
  },
  "required": ["command"]
}`

type commandAction struct{ base }

func newCommandAction(deps Deps) Action { return &commandAction{base{deps}} }

func (a *commandAction) Name() string { return TypeCommand }

func (a *commandAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Run a shell command in the project directory after confirmation.",
		InputSchema: json.RawMessage(commandInputSchema),
	}
}

func (a *commandAction) Execute(ctx context.Context, data schema.ActionData) (any, error) {
	command, err := requireString(data, "command", "command")
	if err != nil {
		return nil, err
	}
	return a.executeCommand(ctx, command, true)
}
