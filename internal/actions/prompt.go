package actions

import (
	"context"
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/codx-dev/codx/pkg/schema"
)

// Prompter asks the user for input. Implementations block until the user
// answers or ctx is done.
type Prompter interface {
	Text(ctx context.Context, message, def string) (string, error)
	Number(ctx context.Context, message string, def float64) (float64, error)
	Select(ctx context.Context, message string, choices []Choice, def string) (string, error)
	Checkbox(ctx context.Context, message string, choices []Choice, defaults []string) ([]string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
}

const promptInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "prompt"},
    "promptType": {"type": "string", "enum": ["checkbox", "confirm", "number", "select", "text"]},
    "message": {"type": "string"},
    "choices": {"type": ["object", "array"]},
    "defaultValue": {},
    "defaultValues": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["promptType", "message"],
  "allOf": [
    {"if": {"properties": {"promptType": {"enum": ["select", "checkbox"]}}},
     "then": {"required": ["choices"]}}
  ]
}`

type promptAction struct{ base }

func newPromptAction(deps Deps) Action { return &promptAction{base{deps}} }

func (a *promptAction) Name() string { return TypePrompt }

func (a *promptAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Ask the user for text, a number, a choice, several choices or a confirmation.",
		InputSchema: json.RawMessage(promptInputSchema),
	}
}

func (a *promptAction) Execute(ctx context.Context, data schema.ActionData) (any, error) {
	message := data.String("message")
	if message == "" {
		return nil, schema.NewError(schema.ErrCodeMissingParameter, "Prompt action requires a message parameter").
			WithDetails(map[string]any{"parameter": "message"})
	}
	message = a.interpolate(message)

	switch promptType := data.String("promptType"); promptType {
	case "checkbox":
		var defaults []string
		for _, d := range data.Strings("defaultValues") {
			defaults = append(defaults, a.interpolate(d))
		}
		answers, err := a.Prompter.Checkbox(ctx, message, choicesParam(data, "choices"), defaults)
		if err != nil {
			return nil, err
		}
		if answers == nil {
			answers = []string{}
		}
		return map[string]any{"answers": answers}, nil

	case "confirm":
		answer, err := a.Prompter.Confirm(ctx, message, data.Bool("defaultValue", false))
		if err != nil {
			return nil, err
		}
		return map[string]any{"answer": answer}, nil

	case "number":
		answer, err := a.Prompter.Number(ctx, message, a.numberDefault(data))
		if err != nil {
			return nil, err
		}
		return map[string]any{"answer": answer}, nil

	case "select":
		answer, err := a.Prompter.Select(ctx, message, choicesParam(data, "choices"), a.interpolate(data.String("defaultValue")))
		if err != nil {
			return nil, err
		}
		return map[string]any{"answer": answer}, nil

	case "text":
		answer, err := a.Prompter.Text(ctx, message, a.interpolate(data.String("defaultValue")))
		if err != nil {
			return nil, err
		}
		return map[string]any{"answer": answer}, nil

	default:
		return nil, schema.NewErrorf(schema.ErrCodeUnknownOperation, "Unknown operation: %s", promptType).
			WithDetails(map[string]any{"promptType": promptType})
	}
}

// numberDefault accepts a number or an interpolated numeric string; anything
// else defaults to 0.
func (a *promptAction) numberDefault(data schema.ActionData) float64 {
	if s, ok := data["defaultValue"].(string); ok {
		return cast.ToFloat64(a.interpolate(s))
	}
	f, _ := floatParam(data, "defaultValue")
	return f
}
