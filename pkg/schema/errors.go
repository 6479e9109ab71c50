package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for structured error reporting.
const (
	ErrCodeGeneric    = "CODX_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"

	// Variable store.
	ErrCodeReservedVariable        = "RESERVED_VARIABLE"
	ErrCodeInvalidInternalVariable = "INVALID_INTERNAL_VARIABLE"

	// Actions.
	ErrCodeUnknownAction     = "UNKNOWN_ACTION"
	ErrCodeUnknownOperation  = "UNKNOWN_OPERATION"
	ErrCodeMissingParameter  = "MISSING_PARAMETER"
	ErrCodeExplicitFailure   = "EXPLICIT_FAILURE"
	ErrCodeCommandExecution  = "COMMAND_EXECUTION"
	ErrCodeCommandCancelled  = "COMMAND_CANCELLED"
	ErrCodeDirectoryChange   = "DIRECTORY_CHANGE"
	ErrCodeInvalidRegex      = "INVALID_REGEX_PATTERN"
	ErrCodeEmptyPackageList  = "EMPTY_PACKAGE_LIST"
	ErrCodePackageManager    = "PACKAGE_MANAGER_NOT_FOUND"
	ErrCodePromptUnavailable = "PROMPT_UNAVAILABLE"

	// Filesystem.
	ErrCodeFileNotFound                 = "FILE_NOT_FOUND"
	ErrCodeFileAlreadyExists            = "FILE_ALREADY_EXISTS"
	ErrCodeFileUnreadable               = "FILE_UNREADABLE"
	ErrCodeSourceFileNotFound           = "SOURCE_FILE_NOT_FOUND"
	ErrCodeOutsideSourceFile            = "OUTSIDE_SOURCE_FILE"
	ErrCodeDestinationFileAlreadyExists = "DESTINATION_FILE_ALREADY_EXISTS"
	ErrCodeDirectoryNotFound            = "DIRECTORY_NOT_FOUND"
	ErrCodeNotADirectory                = "NOT_A_DIRECTORY"
	ErrCodeDirectoryCreation            = "DIRECTORY_CREATION"
	ErrCodePathOutsideWorkingDirectory  = "PATH_OUTSIDE_WORKING_DIRECTORY"

	// Recipe loading and registry access.
	ErrCodeRecipeLoad        = "RECIPE_LOAD_FAILED"
	ErrCodeRecipeNotFound    = "RECIPE_FIND_FAILED"
	ErrCodeInvalidRecipe     = "INVALID_RECIPE_SCHEMA"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeDownloadFailed    = "DOWNLOAD_FAILED"
	ErrCodeTarballExtraction = "TARBALL_EXTRACTION_FAILED"
	ErrCodeNpmSearch         = "NPM_SEARCH_FAILED"
	ErrCodeNoPackagesFound   = "NO_PACKAGES_FOUND"

	ErrCodeCancelled = "CANCELLED"
	ErrCodeStore     = "STORE_ERROR"
	ErrCodeNotFound  = "NOT_FOUND"
)

// CodxError is the structured error type for all codx operations.
type CodxError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	StepName string         `json:"step_name,omitempty"`
	Cause    error          `json:"-"`
}

func (e *CodxError) Error() string {
	msg := e.FullMessage()
	if e.StepName != "" {
		return fmt.Sprintf("[%s] step %q: %s", e.Code, e.StepName, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// FullMessage returns the message followed by the cause, without the code.
func (e *CodxError) FullMessage() string {
	if e.Cause == nil {
		return e.Message
	}
	var cause *CodxError
	if errors.As(e.Cause, &cause) {
		return e.Message + ": " + cause.FullMessage()
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *CodxError) Unwrap() error {
	return e.Cause
}

// Kind returns the error's type name as recipes refer to it in conditions,
// e.g. "FileNotFoundCodxError" for FILE_NOT_FOUND and "CodxError" for the
// generic code.
func (e *CodxError) Kind() string {
	if e.Code == "" || e.Code == ErrCodeGeneric {
		return "CodxError"
	}
	var b strings.Builder
	for _, part := range strings.Split(strings.ToLower(e.Code), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("CodxError")
	return b.String()
}

// NewError creates a new CodxError.
func NewError(code, message string) *CodxError {
	return &CodxError{Code: code, Message: message}
}

// NewErrorf creates a new CodxError with a formatted message.
func NewErrorf(code, format string, args ...any) *CodxError {
	return &CodxError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step name to the error.
func (e *CodxError) WithStep(name string) *CodxError {
	e.StepName = name
	return e
}

// WithCause attaches an underlying cause.
func (e *CodxError) WithCause(err error) *CodxError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CodxError) WithDetails(details map[string]any) *CodxError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first CodxError in err's chain, or "".
func CodeOf(err error) string {
	var cErr *CodxError
	if errors.As(err, &cErr) {
		return cErr.Code
	}
	return ""
}

// MissingParameter reports a required action parameter that was not provided.
func MissingParameter(name string) *CodxError {
	if name == "" {
		return NewError(ErrCodeMissingParameter, "parameter is required for this action")
	}
	return NewErrorf(ErrCodeMissingParameter, "%s is required for this action", strings.ToUpper(name[:1])+name[1:]).
		WithDetails(map[string]any{"parameter": name})
}
