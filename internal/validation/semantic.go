package validation

import (
	"fmt"

	"github.com/codx-dev/codx/internal/variables"
	"github.com/codx-dev/codx/pkg/schema"
)

// validateSemantic walks the step tree: every action type must be
// registered, its parameters must satisfy its schema, and result variables
// must not use the reserved prefix.
func validateSemantic(v *JSONSchemaValidator, recipe *schema.Recipe, src SchemaSource) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	validateSteps(v, recipe.Steps, "/steps", src, result)
	return result
}

func validateSteps(v *JSONSchemaValidator, steps []schema.Step, path string, src SchemaSource, result *schema.ValidationResult) {
	for i := range steps {
		validateStep(v, &steps[i], fmt.Sprintf("%s/%d", path, i), src, result)
	}
}

func validateStep(v *JSONSchemaValidator, step *schema.Step, path string, src SchemaSource, result *schema.ValidationResult) {
	if step.Variable != "" && variables.IsInternal(step.Variable) {
		result.Add(path+"/variable", fmt.Sprintf("variable %q uses the reserved $ prefix", step.Variable))
	}

	if src != nil {
		typ := step.Action.Type()
		if !src.Has(typ) {
			result.Add(path+"/action/type", fmt.Sprintf("unknown action type %q", typ))
		} else if inputSchema, ok := src.InputSchema(typ); ok {
			result.Merge(v.validateAt(path+"/action", step.Action, inputSchema))
		}
	}

	validateSteps(v, step.OnSuccess, path+"/onSuccess", src, result)
	validateSteps(v, step.OnFailure, path+"/onFailure", src, result)
	validateSteps(v, step.Finally, path+"/finally", src, result)
}
