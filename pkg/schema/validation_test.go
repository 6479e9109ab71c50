package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.NoError(t, r.ToError())
}

func TestValidationResult_Add(t *testing.T) {
	r := &ValidationResult{}
	r.Add("/steps/0/action", "missing property 'type'")

	assert.False(t, r.Valid())
	require.Len(t, r.Issues, 1)
	assert.Equal(t, "/steps/0/action", r.Issues[0].Path)
	assert.Equal(t, "missing property 'type'", r.Issues[0].Message)
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.Add("/", "err1")

	r2 := &ValidationResult{}
	r2.Add("/steps", "err2")

	r1.Merge(r2)
	r1.Merge(nil)
	assert.Len(t, r1.Issues, 2)
}

func TestValidationResult_ToError(t *testing.T) {
	r := &ValidationResult{}
	r.Add("", "missing property 'steps'")
	r.Add("/steps/1/action/type", "value must be one of ...")

	err := r.ToError()
	require.Error(t, err)

	var cErr *CodxError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, ErrCodeInvalidRecipe, cErr.Code)
	assert.Contains(t, cErr.Message, "Invalid recipe schema:")
	assert.Contains(t, cErr.Message, "\n  /: missing property 'steps'")
	assert.Contains(t, cErr.Message, "\n  /steps/1/action/type: value must be one of ...")
	assert.Equal(t, 2, cErr.Details["issue_count"])
}

// --- Errors ---

func TestCodxError_Error(t *testing.T) {
	err := NewError(ErrCodeFileNotFound, `File "a.txt" does not exist.`)
	assert.Equal(t, `[FILE_NOT_FOUND] File "a.txt" does not exist.`, err.Error())

	err = NewError(ErrCodeCommandExecution, "Error executing command").WithCause(errors.New("exit status 1"))
	assert.Equal(t, "[COMMAND_EXECUTION] Error executing command: exit status 1", err.Error())

	err = NewError(ErrCodeExplicitFailure, "boom").WithStep("setup")
	assert.Equal(t, `[EXPLICIT_FAILURE] step "setup": boom`, err.Error())
}

func TestCodxError_FullMessageNested(t *testing.T) {
	err := NewError(ErrCodeDirectoryChange, "Error changing directory").
		WithCause(NewError(ErrCodeDirectoryNotFound, `Directory "/x" does not exist`))
	assert.Equal(t, `Error changing directory: Directory "/x" does not exist`, err.FullMessage())
}

func TestCodxError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(ErrCodeDirectoryChange, "Error changing directory").WithCause(cause)
	assert.ErrorIs(t, err, cause)
}

func TestCodxError_Kind(t *testing.T) {
	assert.Equal(t, "CodxError", NewError(ErrCodeGeneric, "x").Kind())
	assert.Equal(t, "CodxError", NewError("", "x").Kind())
	assert.Equal(t, "FileNotFoundCodxError", NewError(ErrCodeFileNotFound, "x").Kind())
	assert.Equal(t, "PathOutsideWorkingDirectoryCodxError", NewError(ErrCodePathOutsideWorkingDirectory, "x").Kind())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))

	wrapped := NewError(ErrCodeRecipeLoad, "Failed to load recipe").
		WithCause(NewError(ErrCodeFileNotFound, "missing"))
	assert.Equal(t, ErrCodeRecipeLoad, CodeOf(wrapped))
}

func TestMissingParameter(t *testing.T) {
	err := MissingParameter("source path")
	assert.Equal(t, ErrCodeMissingParameter, err.Code)
	assert.Equal(t, "Source path is required for this action", err.Message)
}

// --- Recipe ---

func TestActionData_Accessors(t *testing.T) {
	d := ActionData{
		"type":      "fileSystem",
		"operation": "copy",
		"overwrite": true,
		"packages":  []any{"react", 18},
		"options":   map[string]any{"a": 1},
	}

	assert.Equal(t, "fileSystem", d.Type())
	assert.Equal(t, "copy", d.Operation())
	assert.True(t, d.Bool("overwrite", false))
	assert.True(t, d.Bool("missing", true))
	assert.Equal(t, []string{"react", "18"}, d.Strings("packages"))
	assert.Equal(t, map[string]any{"a": 1}, d.Map("options"))
	assert.True(t, d.Has("options"))
	assert.False(t, d.Has("nothing"))
	assert.Equal(t, "", d.String("overwrite"))
}

func TestStep_LabelNameOverridesType(t *testing.T) {
	s := Step{Action: ActionData{"type": "message"}}
	assert.Equal(t, "message", s.Label())
	s.Name = "Greet"
	assert.Equal(t, "Greet", s.Label())
}
