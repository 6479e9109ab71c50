package actions

import (
	"context"
	"encoding/json"

	"github.com/codx-dev/codx/pkg/schema"
)

const defaultFailMessage = "Explicit failure triggered by fail action"

const failInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "fail"},
    "message": {"type": "string"}
  }
}`

type failAction struct{ base }

func newFailAction(deps Deps) Action { return &failAction{base{deps}} }

func (a *failAction) Name() string { return TypeFail }

func (a *failAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Fail the step with a custom message.",
		InputSchema: json.RawMessage(failInputSchema),
	}
}

// Execute always fails. The message is interpolated so recipes can report
// the values that led to the failure.
func (a *failAction) Execute(_ context.Context, data schema.ActionData) (any, error) {
	message := data.String("message")
	if message == "" {
		message = defaultFailMessage
	}
	return nil, schema.NewError(schema.ErrCodeExplicitFailure, a.interpolate(message))
}
