package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/codx-dev/codx/pkg/schema"
)

const fileSystemInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "fileSystem"},
    "operation": {"type": "string", "enum": ["copy", "create", "delete", "exists", "mkdir", "move"]},
    "source": {"type": "string"},
    "destination": {"type": "string"},
    "path": {"type": "string"},
    "content": {"type": "string"},
    "overwrite": {"type": "boolean", "default": false}
  },
  "required": ["operation"],
  "allOf": [
    {"if": {"properties": {"operation": {"enum": ["copy", "move"]}}},
     "then": {"required": ["source", "destination"]}},
    {"if": {"properties": {"operation": {"enum": ["create", "delete", "exists", "mkdir"]}}},
     "then": {"required": ["path"]}}
  ]
}`

type fileSystemAction struct{ base }

func newFileSystemAction(deps Deps) Action { return &fileSystemAction{base{deps}} }

func (a *fileSystemAction) Name() string { return TypeFileSystem }

func (a *fileSystemAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Copy, create, delete, move files, create directories or test for existence.",
		InputSchema: json.RawMessage(fileSystemInputSchema),
	}
}

func (a *fileSystemAction) Execute(_ context.Context, data schema.ActionData) (any, error) {
	switch op := data.Operation(); op {
	case "copy":
		return a.transfer(data, false)
	case "create":
		return a.create(data)
	case "delete":
		return a.delete(data)
	case "exists":
		return a.exists(data)
	case "mkdir":
		return a.mkdir(data)
	case "move":
		return a.transfer(data, true)
	default:
		return nil, unknownOperation(op)
	}
}

func unknownOperation(op string) error {
	return schema.NewErrorf(schema.ErrCodeUnknownOperation, "Unknown operation: %s", op).
		WithDetails(map[string]any{"operation": op})
}

// resolvePath interpolates the "path" parameter and resolves it inside the
// project directory.
func (b base) resolvePath(data schema.ActionData) (string, error) {
	path, err := requireString(data, "path", "path")
	if err != nil {
		return "", err
	}
	return b.Exec.ProjectDirectory.Resolve(b.interpolate(path))
}

// resolveSource looks for source in the recipe directory first, then in the
// project directory.
func (a *fileSystemAction) resolveSource(source string) (string, error) {
	if p, err := a.Exec.RecipeDirectory.Resolve(source); err == nil && pathExists(p) {
		return p, nil
	} else if err != nil {
		a.Console.Warning(fmt.Sprintf("Source file %q is not in the recipe directory.", source))
	}

	if p, err := a.Exec.ProjectDirectory.Resolve(source); err == nil && pathExists(p) {
		return p, nil
	} else if err != nil {
		a.Console.Warning(fmt.Sprintf("Source file %q is not in the project directory.", source))
	}

	return "", schema.NewErrorf(schema.ErrCodeSourceFileNotFound,
		"Source file %q is neither in the recipe directory nor in the project directory.", source).
		WithDetails(map[string]any{"path": source})
}

// transfer implements copy and move. Both resolve the source, refuse to
// replace an existing destination without "overwrite" and create the
// destination's parent directories.
func (a *fileSystemAction) transfer(data schema.ActionData, move bool) (any, error) {
	source, err := requireString(data, "source", "source path")
	if err != nil {
		return nil, err
	}
	destination, err := requireString(data, "destination", "destination path")
	if err != nil {
		return nil, err
	}
	overwrite := data.Bool("overwrite", false)

	sourcePath, err := a.resolveSource(a.interpolate(source))
	if err != nil {
		return nil, err
	}
	destPath, err := a.Exec.ProjectDirectory.Resolve(a.interpolate(destination))
	if err != nil {
		return nil, err
	}

	overwritten := pathExists(destPath)
	if overwritten && !overwrite {
		return nil, schema.NewErrorf(schema.ErrCodeDestinationFileAlreadyExists,
			"Destination file %q already exists and the \"overwrite\" option is not enabled.", destPath).
			WithDetails(map[string]any{"path": destPath})
	}
	if err := ensureParent(destPath); err != nil {
		return nil, err
	}

	op, verb := "copy", "copied"
	if move {
		op, verb = "move", "moved"
		err = os.Rename(sourcePath, destPath)
	} else {
		err = copyPath(sourcePath, destPath)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeGeneric, "Unable to %s %q to %q", op, sourcePath, destPath).
			WithCause(err)
	}
	a.Console.Success(fmt.Sprintf("%q %s successfully to %q.", sourcePath, verb, destPath))

	return map[string]any{
		"source":      sourcePath,
		"destination": destPath,
		"overwritten": overwritten,
	}, nil
}

func (a *fileSystemAction) create(data schema.ActionData) (any, error) {
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

// writeNew writes interpolated content to path, refusing to replace an
// existing file unless overwrite is set.
func (b base) writeNew(path, content string, overwrite bool) (bool, error) {
	overwritten := pathExists(path)
	if overwritten && !overwrite {
		return false, schema.NewErrorf(schema.ErrCodeFileAlreadyExists,
			"File %q already exists and the \"overwrite\" option is not enabled.", path).
			WithDetails(map[string]any{"path": path})
	}
	if err := ensureParent(path); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(b.interpolate(content)), 0o644); err != nil {
		return false, schema.NewErrorf(schema.ErrCodeGeneric, "Unable to write file %q", path).WithCause(err)
	}
	b.Console.Success("File created successfully: " + path)
	return overwritten, nil
}

func (a *fileSystemAction) delete(data schema.ActionData) (any, error) {
	path, err := a.resolvePath(data)
	if err != nil {
		return nil, err
	}

	deleted := false
	if !pathExists(path) {
		a.Console.Info(fmt.Sprintf("File %q does not exist, nothing to delete.", path))
	} else {
		if err := os.Remove(path); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeGeneric, "Unable to delete %q", path).WithCause(err)
		}
		a.Console.Success("File deleted successfully: " + path)
		deleted = true
	}
	return map[string]any{"path": path, "deleted": deleted}, nil
}

func (a *fileSystemAction) exists(data schema.ActionData) (any, error) {
	path, err := a.resolvePath(data)
	if err != nil {
		return nil, err
	}

	exists := pathExists(path)
	if exists {
		a.Console.Info(fmt.Sprintf("File %q exists.", path))
	} else {
		a.Console.Info(fmt.Sprintf("File %q does not exist.", path))
	}
	return map[string]any{"path": path, "exists": exists}, nil
}

func (a *fileSystemAction) mkdir(data schema.ActionData) (any, error) {
	path, err := a.resolvePath(data)
	if err != nil {
		return nil, err
	}

	exists := pathExists(path)
	if exists {
		a.Console.Warning(fmt.Sprintf("Path %q already exists.", path))
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			msg := fmt.Sprintf("Unable to create directory %q.", path)
			a.Console.Error(msg)
			return nil, schema.NewError(schema.ErrCodeDirectoryCreation, msg).WithCause(err)
		}
		a.Console.Success(fmt.Sprintf("Directory %q created.", path))
	}
	return map[string]any{"path": path, "created": !exists}, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ensureParent(path string) error {
	parent := filepath.Dir(path)
	if pathExists(parent) {
		return nil
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return schema.NewErrorf(schema.ErrCodeDirectoryCreation, "Unable to create directory %q.", parent).WithCause(err)
	}
	return nil
}

// copyPath copies a file, or a directory tree when src is a directory.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if pathExists(dst) {
			if err := os.RemoveAll(dst); err != nil {
				return err
			}
		}
		return os.CopyFS(dst, os.DirFS(src))
	}
	return copyFile(src, dst, info.Mode().Perm())
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
