package expressions

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/codx-dev/codx/pkg/schema"
)

// Flatten turns nested maps and slices into dot-path keys:
// {"a": {"b": 1}, "c": [2]} becomes {"a.b": 1, "c.0": 2}.
// Empty containers contribute no keys. Errors are kept as leaves and also
// expose "<key>.message", "<key>.code" and "<key>.name".
func Flatten(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		flattenInto(out, k, v)
	}
	return out
}

func flattenInto(out map[string]any, prefix string, val any) {
	if err, ok := val.(error); ok {
		out[prefix] = err
		for k, v := range errorFields(err) {
			out[join(prefix, k)] = v
		}
		return
	}

	switch v := val.(type) {
	case map[string]any:
		for k, item := range v {
			flattenInto(out, join(prefix, k), item)
		}
		return
	case []any:
		for i, item := range v {
			flattenInto(out, join(prefix, strconv.Itoa(i)), item)
		}
		return
	}

	if val == nil {
		out[prefix] = nil
		return
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			out[prefix] = val
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			flattenInto(out, join(prefix, iter.Key().String()), iter.Value().Interface())
		}
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			out[prefix] = val
			return
		}
		for i := 0; i < rv.Len(); i++ {
			flattenInto(out, join(prefix, strconv.Itoa(i)), rv.Index(i).Interface())
		}
	default:
		out[prefix] = val
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// errorFields exposes the properties recipes use on a stored error.
func errorFields(err error) map[string]any {
	var cErr *schema.CodxError
	if errors.As(err, &cErr) {
		return map[string]any{
			"message": cErr.FullMessage(),
			"code":    cErr.Code,
			"name":    cErr.Kind(),
		}
	}
	return map[string]any{
		"message": err.Error(),
		"code":    "",
		"name":    "Error",
	}
}
