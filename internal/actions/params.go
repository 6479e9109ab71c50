package actions

import (
	"sort"

	"github.com/spf13/cast"

	"github.com/codx-dev/codx/pkg/schema"
)

// requireString returns the string parameter at key or a MISSING_PARAMETER
// error naming label when it is absent or empty.
func requireString(data schema.ActionData, key, label string) (string, error) {
	s := data.String(key)
	if s == "" {
		return "", schema.MissingParameter(label)
	}
	return s, nil
}

// floatParam coerces numbers and numeric strings; ok is false otherwise.
func floatParam(data schema.ActionData, key string) (float64, bool) {
	v, present := data[key]
	if !present || v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Choice is one selectable option of a select or checkbox prompt.
type Choice struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// choicesParam accepts either a value→label object, ordered by value, or a
// list of {value, name} objects in recipe order.
func choicesParam(data schema.ActionData, key string) []Choice {
	switch v := data[key].(type) {
	case map[string]any:
		choices := make([]Choice, 0, len(v))
		for value, name := range v {
			choices = append(choices, Choice{Value: value, Name: cast.ToString(name)})
		}
		sort.Slice(choices, func(i, j int) bool { return choices[i].Value < choices[j].Value })
		return choices
	case []any:
		choices := make([]Choice, 0, len(v))
		for _, item := range v {
			switch c := item.(type) {
			case map[string]any:
				value := cast.ToString(c["value"])
				name := cast.ToString(c["name"])
				if name == "" {
					name = value
				}
				choices = append(choices, Choice{Value: value, Name: name})
			default:
				s := cast.ToString(c)
				choices = append(choices, Choice{Value: s, Name: s})
			}
		}
		return choices
	}
	return nil
}
