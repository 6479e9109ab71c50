package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/codx-dev/codx/pkg/schema"
)

const fileManipulationInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "fileManipulation"},
    "operation": {"type": "string", "enum": ["append", "create", "prepend", "update"]},
    "path": {"type": "string"},
    "content": {"type": "string"},
    "pattern": {"type": "string"},
    "overwrite": {"type": "boolean", "default": false}
  },
  "required": ["operation", "path"],
  "allOf": [
    {"if": {"properties": {"operation": {"enum": ["append", "prepend", "update"]}}},
     "then": {"required": ["content"]}},
    {"if": {"properties": {"operation": {"const": "update"}}},
     "then": {"required": ["pattern"]}}
  ]
}`

type fileManipulationAction struct{ base }

func newFileManipulationAction(deps Deps) Action { return &fileManipulationAction{base{deps}} }

func (a *fileManipulationAction) Name() string { return TypeFileManipulation }

func (a *fileManipulationAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Create a file or append, prepend and regex-replace its content.",
		InputSchema: json.RawMessage(fileManipulationInputSchema),
	}
}

func (a *fileManipulationAction) Execute(_ context.Context, data schema.ActionData) (any, error) {
	switch op := data.Operation(); op {
	case "append":
		return a.edit(data, "appended", func(existing, content string) string { return existing + content })
	case "create":
		return a.create(data)
	case "prepend":
		return a.edit(data, "prepended", func(existing, content string) string { return content + existing })
	case "update":
		return a.update(data)
	default:
		return nil, unknownOperation(op)
	}
}

func (a *fileManipulationAction) create(data schema.ActionData) (any, error) {
	path, err := a.resolvePath(data)
	if err != nil {
		return nil, err
	}
	overwritten, err := a.writeNew(path, data.String("content"), data.Bool("overwrite", false))
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "overwritten": overwritten}, nil
}

// edit rewrites an existing file with combine(existing, content) and reports
// the result under key.
func (a *fileManipulationAction) edit(data schema.ActionData, key string, combine func(existing, content string) string) (any, error) {
	path, existing, err := a.readExisting(data)
	if err != nil {
		return nil, err
	}
	if !data.Has("content") {
		return nil, schema.MissingParameter("content")
	}

	content := a.interpolate(data.String("content"))
	if err := writeFile(path, combine(existing, content)); err != nil {
		return nil, err
	}
	a.Console.Success(fmt.Sprintf("Content %s successfully to: %s", key, path))
	return map[string]any{"path": path, key: true}, nil
}

// update replaces every match of "pattern" with "content". Capture groups are
// referenced as $1 or ${name} in the replacement.
func (a *fileManipulationAction) update(data schema.ActionData) (any, error) {
	path, existing, err := a.readExisting(data)
	if err != nil {
		return nil, err
	}
	pattern, err := requireString(data, "pattern", "pattern")
	if err != nil {
		return nil, err
	}
	if !data.Has("content") {
		return nil, schema.MissingParameter("content")
	}

	pattern = a.interpolate(pattern)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidRegex, "Invalid regular expression pattern %q", pattern).
			WithCause(err)
	}

	updated := re.ReplaceAllString(existing, a.interpolate(data.String("content")))
	if updated == existing {
		a.Console.Warning(fmt.Sprintf("Pattern %q not found in file: %s", pattern, path))
		return map[string]any{"path": path, "updated": false}, nil
	}
	if err := writeFile(path, updated); err != nil {
		return nil, err
	}
	a.Console.Success("Content updated successfully in: " + path)
	return map[string]any{"path": path, "updated": true}, nil
}

func (a *fileManipulationAction) readExisting(data schema.ActionData) (string, string, error) {
	path, err := a.resolvePath(data)
	if err != nil {
		return "", "", err
	}
	if !pathExists(path) {
		return "", "", schema.NewErrorf(schema.ErrCodeFileNotFound, "File %q does not exist.", path).
			WithDetails(map[string]any{"path": path})
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", schema.NewErrorf(schema.ErrCodeFileUnreadable, "File %q cannot be read.", path).WithCause(err)
	}
	return path, string(b), nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return schema.NewErrorf(schema.ErrCodeGeneric, "Unable to write file %q", path).WithCause(err)
	}
	return nil
}
