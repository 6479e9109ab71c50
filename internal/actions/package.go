package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/itchyny/gojq"
	"github.com/spf13/cast"

	"github.com/codx-dev/codx/internal/execution"
	"github.com/codx-dev/codx/pkg/schema"
)

const packageInputSchema = `{
  "type": "object",
  "properties": {
    "type": {"const": "package"},
    "operation": {"type": "string", "enum": ["check", "install", "remove", "run", "update"]},
    "packages": {"type": "array"},
    "dev": {"type": "boolean", "default": false},
    "package": {"type": "string"},
    "options": {"type": "string"}
  },
  "required": ["operation"],
  "allOf": [
    {"if": {"properties": {"operation": {"enum": ["install", "remove", "update"]}}},
     "then": {"required": ["packages"], "properties": {"packages": {"items": {"type": "string"}}}}},
    {"if": {"properties": {"operation": {"const": "check"}}},
     "then": {"required": ["packages"], "properties": {"packages": {"items": {
       "type": "object",
       "required": ["package"],
       "properties": {
         "package": {"type": "string"},
         "minVersion": {"type": "string"},
         "maxVersion": {"type": "string"}
       }
     }}}}},
    {"if": {"properties": {"operation": {"const": "run"}}},
     "then": {"required": ["package"]}}
  ]
}`

// versionQuery extracts the version of an installed package manifest.
var versionQuery = mustCompileQuery(`.version // empty | tostring`)

func mustCompileQuery(src string) *gojq.Code {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(err)
	}
	return code
}

type packageAction struct{ base }

func newPackageAction(deps Deps) Action { return &packageAction{base{deps}} }

func (a *packageAction) Name() string { return TypePackage }

func (a *packageAction) Schema() ActionSchema {
	return ActionSchema{
		Description: "Install, remove, update, check or run packages with the detected package manager.",
		InputSchema: json.RawMessage(packageInputSchema),
	}
}

func (a *packageAction) Execute(ctx context.Context, data schema.ActionData) (any, error) {
	switch op := data.Operation(); op {
	case "check":
		return a.check(ctx, data)
	case "install":
		return a.modify(ctx, data, func(c execution.PackageCommands) string {
			if data.Bool("dev", false) {
				return c.InstallDev
			}
			return c.Install
		})
	case "remove":
		return a.modify(ctx, data, func(c execution.PackageCommands) string { return c.Remove })
	case "run":
		return a.run(ctx, data)
	case "update":
		return a.modify(ctx, data, func(c execution.PackageCommands) string { return c.Update })
	default:
		return nil, unknownOperation(op)
	}
}

func emptyPackageList() error {
	return schema.NewError(schema.ErrCodeEmptyPackageList, "Package list is empty or invalid.")
}

func (a *packageAction) commands() (execution.PackageCommands, error) {
	c, ok := a.Exec.PackageCommands()
	if !ok {
		return c, schema.NewError(schema.ErrCodePackageManager, "Package manager not found.")
	}
	return c, nil
}

// modify runs prefix(commands) followed by the package list. These commands
// run without confirmation.
func (a *packageAction) modify(ctx context.Context, data schema.ActionData, prefix func(execution.PackageCommands) string) (any, error) {
	packages := data.Strings("packages")
	if len(packages) == 0 {
		return nil, emptyPackageList()
	}
	commands, err := a.commands()
	if err != nil {
		return nil, err
	}
	command := strings.TrimSpace(prefix(commands) + " " + strings.Join(packages, " "))
	return a.executeCommand(ctx, command, false)
}

func (a *packageAction) run(ctx context.Context, data schema.ActionData) (any, error) {
	name := data.String("package")
	if name == "" {
		return nil, schema.NewError(schema.ErrCodeMissingParameter, "Package is empty.").
			WithDetails(map[string]any{"parameter": "package"})
	}
	commands, err := a.commands()
	if err != nil {
		return nil, err
	}
	command := strings.TrimSpace(fmt.Sprintf("%s %s %s", commands.Execute, name, data.String("options")))
	return a.executeCommand(ctx, command, true)
}

type packageRequirement struct {
	name       string
	minVersion string
	maxVersion string
}

func (a *packageAction) requirements(data schema.ActionData) []packageRequirement {
	items, _ := data["packages"].([]any)
	reqs := make([]packageRequirement, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			reqs = append(reqs, packageRequirement{name: v})
		case map[string]any:
			name := cast.ToString(v["package"])
			if name == "" {
				continue
			}
			reqs = append(reqs, packageRequirement{
				name:       name,
				minVersion: cast.ToString(v["minVersion"]),
				maxVersion: cast.ToString(v["maxVersion"]),
			})
		}
	}
	return reqs
}

// check reports, per package, whether it is installed in the project's
// node_modules and within the optional version bounds.
func (a *packageAction) check(ctx context.Context, data schema.ActionData) (any, error) {
	reqs := a.requirements(data)
	if len(reqs) == 0 {
		return nil, emptyPackageList()
	}

	result := make(map[string]any, len(reqs))
	for _, req := range reqs {
		res, err := a.checkPackage(ctx, req)
		if err != nil {
			return nil, err
		}
		result[req.name] = res
	}
	return result, nil
}

func (a *packageAction) checkPackage(ctx context.Context, req packageRequirement) (map[string]any, error) {
	version, err := installedVersion(ctx, a.projectDir(), req.name)
	if err != nil {
		return nil, err
	}

	res := map[string]any{
		"installed": version != "",
		"check":     version != "",
	}
	if version == "" {
		return res, nil
	}
	res["version"] = version
	a.Console.Info(fmt.Sprintf("Package %q found with version %s.", req.name, version))

	installed, err := semver.NewVersion(version)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeGeneric, "Invalid version %q for package %q", version, req.name).WithCause(err)
	}

	if req.minVersion != "" {
		minV, err := semver.NewVersion(req.minVersion)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "Invalid minVersion %q", req.minVersion).WithCause(err)
		}
		ok := !installed.LessThan(minV)
		res["hasMinVersion"] = ok
		if !ok {
			a.Console.Error(fmt.Sprintf("The minimum required version is %s, but the installed version is %s.", req.minVersion, version))
			res["check"] = false
		}
	}

	if req.maxVersion != "" {
		maxV, err := semver.NewVersion(req.maxVersion)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "Invalid maxVersion %q", req.maxVersion).WithCause(err)
		}
		ok := !installed.GreaterThan(maxV)
		res["hasMaxVersion"] = ok
		if !ok {
			a.Console.Error(fmt.Sprintf("The maximum allowed version is %s, but the installed version is %s.", req.maxVersion, version))
			res["check"] = false
		}
	}

	return res, nil
}

// installedVersion reads node_modules/<name>/package.json under dir. An
// absent manifest yields "".
func installedVersion(ctx context.Context, dir, name string) (string, error) {
	path := filepath.Join(dir, "node_modules", name, "package.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", schema.NewError(schema.ErrCodeFileUnreadable, "Error reading package.json").WithCause(err)
	}

	var manifest map[string]any
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", schema.NewError(schema.ErrCodeFileUnreadable, "Error reading package.json").WithCause(err)
	}

	iter := versionQuery.RunWithContext(ctx, manifest)
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	if err, isErr := v.(error); isErr {
		return "", schema.NewError(schema.ErrCodeFileUnreadable, "Error reading package.json").WithCause(err)
	}
	s, _ := v.(string)
	return s, nil
}
