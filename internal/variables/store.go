// Package variables holds the named values a recipe run reads and writes.
package variables

import (
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/codx-dev/codx/internal/expressions"
	"github.com/codx-dev/codx/pkg/schema"
)

// InternalPrefix marks variables owned by the engine, e.g. $CWD.
const InternalPrefix = "$"

// Store is the variable store of a single recipe run. Names starting with
// InternalPrefix can only be written through SetInternal/UnsetInternal.
type Store struct {
	mu           sync.RWMutex
	vars         map[string]any
	interpolator *expressions.Interpolator
	logger       *slog.Logger
}

// NewStore creates an empty store. A nil logger discards the debug trace.
func NewStore(interpolator *expressions.Interpolator, logger *slog.Logger) *Store {
	if interpolator == nil {
		interpolator = expressions.NewInterpolator(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		vars:         make(map[string]any),
		interpolator: interpolator,
		logger:       logger,
	}
}

// IsInternal reports whether name is reserved for the engine.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, InternalPrefix)
}

// Get returns the value of name, or nil when absent.
func (s *Store) Get(name string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars[name]
}

// Has reports whether name is present, even with a nil value.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vars[name]
	return ok
}

// GetAll returns a shallow copy of every variable.
func (s *Store) GetAll() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.vars)
}

// Set stores a user variable.
func (s *Store) Set(name string, value any) error {
	if IsInternal(name) {
		return schema.NewErrorf(schema.ErrCodeReservedVariable, "Cannot set internal variable %q", name).
			WithDetails(map[string]any{"name": name})
	}
	s.set(name, value)
	return nil
}

// SetInternal stores an engine variable; name must start with "$".
func (s *Store) SetInternal(name string, value any) error {
	if !IsInternal(name) {
		return schema.NewErrorf(schema.ErrCodeInvalidInternalVariable,
			"Cannot set an internal variable %q that does not start with a $", name).
			WithDetails(map[string]any{"name": name})
	}
	s.set(name, value)
	return nil
}

// Unset removes a user variable. Removing an absent name is a no-op.
func (s *Store) Unset(name string) error {
	if IsInternal(name) {
		return schema.NewErrorf(schema.ErrCodeReservedVariable, "Cannot unset internal variable %q", name).
			WithDetails(map[string]any{"name": name})
	}
	s.unset(name)
	return nil
}

// UnsetInternal removes an engine variable; name must start with "$".
func (s *Store) UnsetInternal(name string) error {
	if !IsInternal(name) {
		return schema.NewErrorf(schema.ErrCodeInvalidInternalVariable,
			"Cannot unset an internal variable %q that does not start with a $", name).
			WithDetails(map[string]any{"name": name})
	}
	s.unset(name)
	return nil
}

// Clear removes every variable, internal ones included.
func (s *Store) Clear() {
	s.mu.Lock()
	s.vars = make(map[string]any)
	s.mu.Unlock()
}

// Interpolate renders input against a snapshot of the store.
func (s *Store) Interpolate(input string) string {
	if input == "" {
		return input
	}
	return s.interpolator.Interpolate(input, s.GetAll())
}

func (s *Store) set(name string, value any) {
	s.mu.Lock()
	s.vars[name] = value
	s.mu.Unlock()

	s.logger.Debug("variable set", slog.String("name", name), slog.Any("value", value))
}

func (s *Store) unset(name string) {
	s.mu.Lock()
	delete(s.vars, name)
	s.mu.Unlock()

	s.logger.Debug("variable unset", slog.String("name", name))
}
