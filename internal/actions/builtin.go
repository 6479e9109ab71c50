package actions

// Built-in action type tags.
const (
	TypeChangeDir        = "changeDir"
	TypeCommand          = "command"
	TypeFail             = "fail"
	TypeFileManipulation = "fileManipulation"
	TypeFileSystem       = "fileSystem"
	TypeMessage          = "message"
	TypePackage          = "package"
	TypePrompt           = "prompt"
)

// RegisterBuiltins registers all built-in actions in the given registry.
func RegisterBuiltins(reg *Registry) error {
	builtins := map[string]Constructor{
		TypeChangeDir:        newChangeDirAction,
		TypeCommand:          newCommandAction,
		TypeFail:             newFailAction,
		TypeFileManipulation: newFileManipulationAction,
		TypeFileSystem:       newFileSystemAction,
		TypeMessage:          newMessageAction,
		TypePackage:          newPackageAction,
		TypePrompt:           newPromptAction,
	}
	for name, ctor := range builtins {
		if err := reg.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a Registry with every built-in action.
func NewDefaultRegistry(deps Deps) (*Registry, error) {
	reg := NewRegistry(deps)
	if err := RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
