package validation

import (
	"encoding/json"
	"fmt"

	"github.com/codx-dev/codx/pkg/schema"
)

// RecipeValidator runs the validation pipeline:
// 1. Structural (recipe envelope JSON Schema)
// 2. Semantic (registered actions, action parameters, reserved variables)
type RecipeValidator struct {
	jsonSchema *JSONSchemaValidator
	actions    SchemaSource
}

var _ Validator = (*RecipeValidator)(nil)

// NewRecipeValidator creates a RecipeValidator. src may be nil to skip
// action checks.
func NewRecipeValidator(src SchemaSource) (*RecipeValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &RecipeValidator{jsonSchema: jsv, actions: src}, nil
}

// ValidateDocument validates a decoded YAML or JSON recipe document.
// Structural errors short-circuit the semantic stage.
func (rv *RecipeValidator) ValidateDocument(doc any) *schema.ValidationResult {
	if doc == nil {
		r := &schema.ValidationResult{}
		r.Add("/", "recipe is empty")
		return r
	}

	result := rv.jsonSchema.ValidateEnvelope(doc)
	if !result.Valid() {
		return result
	}

	recipe, err := decodeRecipe(doc)
	if err != nil {
		result.Add("/", err.Error())
		return result
	}
	result.Merge(validateSemantic(rv.jsonSchema, recipe, rv.actions))
	return result
}

// Validate validates an already decoded recipe.
func (rv *RecipeValidator) Validate(recipe *schema.Recipe) *schema.ValidationResult {
	if recipe == nil {
		return rv.ValidateDocument(nil)
	}
	return rv.ValidateDocument(recipe)
}

// ValidateInput delegates to the underlying JSONSchemaValidator.
func (rv *RecipeValidator) ValidateInput(input map[string]any, inputSchema []byte) error {
	return rv.jsonSchema.ValidateInput(input, inputSchema)
}

// Document returns the complete recipe JSON Schema, with every registered
// action's parameter schema inlined under $defs, for editor integration.
func (rv *RecipeValidator) Document() (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(recipeSchemaJSON), &doc); err != nil {
		return nil, err
	}
	if rv.actions == nil {
		return doc, nil
	}

	defs := doc["$defs"].(map[string]any)
	var variants []any
	for _, info := range rv.actions.List() {
		raw, ok := rv.actions.InputSchema(info.Name)
		if !ok || len(raw) == 0 {
			continue
		}
		var def map[string]any
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("action %s: parameter schema: %w", info.Name, err)
		}
		if info.Description != "" {
			def["description"] = info.Description
		}
		name := "action." + info.Name
		defs[name] = def
		variants = append(variants, map[string]any{"$ref": "#/$defs/" + name})
	}
	if len(variants) > 0 {
		action := defs["action"].(map[string]any)
		action["oneOf"] = variants
	}
	return doc, nil
}

func decodeRecipe(doc any) (*schema.Recipe, error) {
	if r, ok := doc.(*schema.Recipe); ok {
		return r, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var r schema.Recipe
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	return &r, nil
}
