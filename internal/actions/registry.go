package actions

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/pkg/schema"
)

// Registry maps action type tags to constructors. It is safe for
// concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	deps         Deps
}

// NewRegistry creates an empty Registry whose actions receive deps.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Console == nil {
		deps.Console = logging.NewConsole(io.Discard, io.Discard)
	}
	if deps.Prompter == nil {
		deps.Prompter = NewTerminalPrompter(os.Stdin, os.Stdout)
	}
	return &Registry{
		constructors: make(map[string]Constructor),
		deps:         deps,
	}
}

// Register adds a constructor for name. Returns error on duplicate name.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "action name is empty")
	}
	if ctor == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "constructor for action %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return schema.NewErrorf(schema.ErrCodeValidation, "action %q already registered", name)
	}
	r.constructors[name] = ctor
	return nil
}

// Create builds the action selected by data's "type" tag.
func (r *Registry) Create(data schema.ActionData) (Action, error) {
	typ := data.Type()

	r.mu.RLock()
	ctor, ok := r.constructors[typ]
	r.mu.RUnlock()

	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnknownAction, "Unknown action type: %s", typ).
			WithDetails(map[string]any{"type": typ})
	}
	return ctor(r.deps), nil
}

// InputSchema returns the parameter schema of the action registered as typ.
func (r *Registry) InputSchema(typ string) ([]byte, bool) {
	r.mu.RLock()
	ctor, ok := r.constructors[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(r.deps).Schema().InputSchema, true
}

// List returns info for all registered actions, sorted by name.
func (r *Registry) List() []ActionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ActionInfo, 0, len(r.constructors))
	for name, ctor := range r.constructors {
		infos = append(infos, ActionInfo{
			Name:        name,
			Description: ctor(r.deps).Schema().Description,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Has checks if an action is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.constructors)
}
