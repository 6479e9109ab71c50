package schema

import (
	"fmt"
	"strings"
)

// ValidationIssue is a single recipe validation problem with its location.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult aggregates the issues found while validating a recipe.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Valid returns true if no issue was recorded.
func (r *ValidationResult) Valid() bool {
	return len(r.Issues) == 0
}

// Add appends an issue at path.
func (r *ValidationResult) Add(path, message string) {
	r.Issues = append(r.Issues, ValidationIssue{Path: path, Message: message})
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// ToError converts the result to an INVALID_RECIPE_SCHEMA error, nil if valid.
// Each issue is listed on its own indented line.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	var b strings.Builder
	b.WriteString("Invalid recipe schema:")
	for _, issue := range r.Issues {
		path := issue.Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(&b, "\n  %s: %s", path, issue.Message)
	}

	return NewError(ErrCodeInvalidRecipe, b.String()).
		WithDetails(map[string]any{
			"issue_count": len(r.Issues),
			"issues":      r.Issues,
		})
}
