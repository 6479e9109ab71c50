// Package validation checks recipes before they run: first the recipe
// envelope, then every step's action parameters against the schema its
// action publishes.
package validation

import (
	"github.com/codx-dev/codx/internal/actions"
	"github.com/codx-dev/codx/pkg/schema"
)

// SchemaSource exposes the registered actions and their parameter schemas.
// Satisfied by *actions.Registry.
type SchemaSource interface {
	Has(name string) bool
	InputSchema(typ string) ([]byte, bool)
	List() []actions.ActionInfo
}

// Validator checks decoded recipe documents.
type Validator interface {
	ValidateDocument(doc any) *schema.ValidationResult
	ValidateInput(input map[string]any, inputSchema []byte) error
}
