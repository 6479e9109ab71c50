package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/codx-dev/codx/pkg/schema"
)

// RecipeSchemaID identifies the recipe envelope schema.
const RecipeSchemaID = "https://codx.dev/schemas/recipe.json"

// recipeSchemaJSON describes the recipe envelope. Action parameters are
// checked separately against each action's own schema.
const recipeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://codx.dev/schemas/recipe.json",
  "title": "codx recipe",
  "type": "object",
  "required": ["description", "steps"],
  "properties": {
    "description": {"type": "string"},
    "author": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {"$ref": "#/$defs/step"}
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["action"],
      "properties": {
        "name": {"type": "string"},
        "action": {"$ref": "#/$defs/action"},
        "condition": {"type": "string"},
        "onSuccess": {"type": "array", "items": {"$ref": "#/$defs/step"}},
        "onFailure": {"type": "array", "items": {"$ref": "#/$defs/step"}},
        "finally": {"type": "array", "items": {"$ref": "#/$defs/step"}},
        "workingDirectory": {"type": "string"},
        "variable": {"type": "string", "minLength": 1}
      },
      "additionalProperties": false
    },
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var printer = message.NewPrinter(language.English)

// JSONSchemaValidator validates documents with JSON Schema Draft 2020-12.
// It is safe for concurrent use.
type JSONSchemaValidator struct {
	recipeSchema *jsonschema.Schema

	// mu guards the cache of compiled action schemas.
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator compiles the recipe envelope schema.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := newCompiler()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(recipeSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal recipe schema: %w", err)
	}
	if err := c.AddResource(RecipeSchemaID, doc); err != nil {
		return nil, fmt.Errorf("add recipe schema resource: %w", err)
	}
	compiled, err := c.Compile(RecipeSchemaID)
	if err != nil {
		return nil, fmt.Errorf("compile recipe schema: %w", err)
	}

	return &JSONSchemaValidator{
		recipeSchema: compiled,
		cache:        make(map[string]*jsonschema.Schema),
	}, nil
}

// ValidateEnvelope checks doc against the recipe envelope schema.
func (v *JSONSchemaValidator) ValidateEnvelope(doc any) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	value, err := toJSONValue(doc)
	if err != nil {
		result.Add("/", "recipe is not serializable: "+err.Error())
		return result
	}
	if err := v.recipeSchema.Validate(value); err != nil {
		addViolations(result, "", err)
	}
	return result
}

// ValidateInput validates input against a JSON Schema given as raw bytes.
// An empty schema accepts everything.
func (v *JSONSchemaValidator) ValidateInput(input map[string]any, inputSchema []byte) error {
	result := v.validateAt("", input, inputSchema)
	if result.Valid() {
		return nil
	}
	msgs := make([]string, len(result.Issues))
	for i, issue := range result.Issues {
		msgs[i] = issue.Path + ": " + issue.Message
	}
	return schema.NewError(schema.ErrCodeValidation, strings.Join(msgs, "; ")).
		WithDetails(map[string]any{"violations": msgs})
}

// validateAt validates input and reports issues below the JSON pointer base.
func (v *JSONSchemaValidator) validateAt(base string, input map[string]any, inputSchema []byte) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(inputSchema) == 0 {
		return result
	}

	compiled, err := v.getOrCompile(inputSchema)
	if err != nil {
		result.Add(pointer(base, nil), "invalid parameter schema: "+err.Error())
		return result
	}

	value, err := toJSONValue(input)
	if err != nil {
		result.Add(pointer(base, nil), "parameters are not serializable: "+err.Error())
		return result
	}
	if err := compiled.Validate(value); err != nil {
		addViolations(result, base, err)
	}
	return result
}

// getOrCompile returns a cached compiled schema or compiles and caches a new one.
func (v *JSONSchemaValidator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := fmt.Sprintf("codx://action-schema/%d", len(v.cache))
	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number and YAML-decoded maps become plain objects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// addViolations records the leaves of a validation error tree.
func addViolations(result *schema.ValidationResult, base string, err error) {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Add(pointer(base, nil), err.Error())
		return
	}
	collectViolations(result, base, verr)
}

func collectViolations(result *schema.ValidationResult, base string, verr *jsonschema.ValidationError) {
	if len(verr.Causes) == 0 {
		result.Add(pointer(base, verr.InstanceLocation), verr.ErrorKind.LocalizedString(printer))
		return
	}
	for _, cause := range verr.Causes {
		collectViolations(result, base, cause)
	}
}

func pointer(base string, loc []string) string {
	p := base + "/" + strings.Join(loc, "/")
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
