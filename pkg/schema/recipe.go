package schema

import "github.com/spf13/cast"

// Recipe is the declarative program codx executes against a project.
type Recipe struct {
	Description string `json:"description" yaml:"description"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Step is one node of the recipe tree. OnFailure is "declared" when the
// slice is non-nil, even if empty: an empty onFailure still swallows.
type Step struct {
	Name             string     `json:"name,omitempty" yaml:"name,omitempty"`
	Action           ActionData `json:"action" yaml:"action"`
	Condition        string     `json:"condition,omitempty" yaml:"condition,omitempty"`
	OnSuccess        []Step     `json:"onSuccess,omitempty" yaml:"onSuccess,omitempty"`
	OnFailure        []Step     `json:"onFailure,omitempty" yaml:"onFailure,omitempty"`
	Finally          []Step     `json:"finally,omitempty" yaml:"finally,omitempty"`
	WorkingDirectory string     `json:"workingDirectory,omitempty" yaml:"workingDirectory,omitempty"`
	Variable         string     `json:"variable,omitempty" yaml:"variable,omitempty"`
}

// Label returns the step name, falling back to the action type.
func (s *Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Action.Type()
}

// ActionData is the tagged parameter record of a step's action. The "type"
// key selects the action; "operation" or "promptType" select a variant.
type ActionData map[string]any

// Type returns the action type tag.
func (d ActionData) Type() string { return d.String("type") }

// Operation returns the operation tag used by fileSystem, fileManipulation
// and package actions.
func (d ActionData) Operation() string { return d.String("operation") }

// String returns the string value at key, or "" when absent or not a string.
func (d ActionData) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the boolean value at key, or def when absent or not a
// boolean. "true"/"false" strings and 0/1 are accepted.
func (d ActionData) Bool(key string, def bool) bool {
	v, ok := d[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Has reports whether key is present with a non-nil value.
func (d ActionData) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// Strings returns a string list at key. Non-string items are formatted.
func (d ActionData) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		return cast.ToStringSlice(v)
	}
	return nil
}

// Map returns the nested object at key, or nil.
func (d ActionData) Map(key string) map[string]any {
	m, _ := d[key].(map[string]any)
	return m
}
