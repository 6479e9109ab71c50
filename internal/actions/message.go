package actions

import (
	"context"
	"encoding/json"

	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/pkg/schema"
)

const messageInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "message"},
    "content": {"type": "string"},
    "style": {"type": "string", "enum": ["default", "header", "info", "success", "warning", "error"]}
  },
  "required": ["content"]
}`

type messageAction struct{ base }

func newMessageAction(deps Deps) Action { return &messageAction{base{deps}} }

func (a *messageAction) Name() string { return TypeMessage }

func (a *messageAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Print an interpolated message with an optional style.",
		InputSchema: json.RawMessage(messageInputSchema),
	}
}

func (a *messageAction) Execute(_ context.Context, data schema.ActionData) (any, error) {
	content := data.String("content")
	if content == "" {
		return nil, schema.NewError(schema.ErrCodeMissingParameter, "Message action requires a content parameter").
			WithDetails(map[string]any{"parameter": "content"})
	}

	style := logging.Style(data.String("style"))
	if style == "" {
		style = logging.StyleDefault
	}

	message := a.interpolate(content)
	a.Console.Message(message, style)

	return map[string]any{
		"message": message,
		"style":   string(style),
	}, nil
}
