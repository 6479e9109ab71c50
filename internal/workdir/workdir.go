// Package workdir tracks the directories a recipe run operates in.
package workdir

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codx-dev/codx/pkg/schema"
)

// Observer is notified synchronously with the new directory on every change.
type Observer func(dir string)

// WorkingDirectory is an absolute directory plus the root that paths
// resolved through it must stay under. For a plain WorkingDirectory the
// root is always the current directory.
type WorkingDirectory struct {
	mu        sync.RWMutex
	current   string
	root      string
	observers []Observer
}

// New creates a WorkingDirectory initialised at dir ("" means the process
// working directory).
func New(dir string) (*WorkingDirectory, error) {
	w := &WorkingDirectory{}
	if err := w.Init(dir); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns the current absolute directory.
func (w *WorkingDirectory) Get() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Init resolves dir to an absolute path, validates it and makes it both the
// current directory and the allowed root. On failure nothing changes.
func (w *WorkingDirectory) Init(dir string) error {
	abs, err := absolute(dir)
	if err != nil {
		return err
	}
	if err := validateDirectory(abs); err != nil {
		return err
	}

	w.mu.Lock()
	w.current = abs
	w.root = abs
	w.mu.Unlock()

	w.notify(abs)
	return nil
}

// Resolve turns path into an absolute path relative to the current
// directory and rejects it when it leaves the allowed root.
func (w *WorkingDirectory) Resolve(path string) (string, error) {
	w.mu.RLock()
	current, root := w.current, w.root
	w.mu.RUnlock()

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(current, resolved)
	}
	resolved = filepath.Clean(resolved)

	if !isUnderPath(resolved, root) {
		return "", schema.NewErrorf(schema.ErrCodePathOutsideWorkingDirectory,
			"Path %q is outside of the current working directory.", resolved).
			WithDetails(map[string]any{"path": resolved, "root": root})
	}
	return resolved, nil
}

// Observe registers o and immediately replays the current directory to it.
func (w *WorkingDirectory) Observe(o Observer) {
	w.mu.Lock()
	w.observers = append(w.observers, o)
	current := w.current
	w.mu.Unlock()

	o(current)
}

func (w *WorkingDirectory) notify(dir string) {
	w.mu.RLock()
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.mu.RUnlock()

	for _, o := range observers {
		o(dir)
	}
}

// ProjectDirectory is a WorkingDirectory that can move around below the
// directory it was initialised with.
type ProjectDirectory struct {
	WorkingDirectory
}

// NewProject creates a ProjectDirectory initialised at dir.
func NewProject(dir string) (*ProjectDirectory, error) {
	p := &ProjectDirectory{}
	if err := p.Init(dir); err != nil {
		return nil, err
	}
	return p, nil
}

// Initial returns the directory of the latest Init.
func (p *ProjectDirectory) Initial() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

// Change moves the current directory to dir, resolved against the current
// directory and confined to the initial one.
func (p *ProjectDirectory) Change(dir string) error {
	resolved, err := p.Resolve(dir)
	if err != nil {
		return err
	}
	if err := validateDirectory(resolved); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = resolved
	p.mu.Unlock()

	p.notify(resolved)
	return nil
}

// Reset returns to the initial directory.
func (p *ProjectDirectory) Reset() {
	p.mu.Lock()
	p.current = p.root
	current := p.current
	p.mu.Unlock()

	p.notify(current)
}

// --- helpers ---

func absolute(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeDirectoryNotFound, "Directory %q does not exist", dir).WithCause(err)
	}
	return abs, nil
}

func validateDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		cErr := schema.NewErrorf(schema.ErrCodeDirectoryNotFound, "Directory %q does not exist", dir).
			WithDetails(map[string]any{"path": dir})
		if !errors.Is(err, fs.ErrNotExist) {
			cErr.WithCause(err)
		}
		return cErr
	}
	if !info.IsDir() {
		return schema.NewErrorf(schema.ErrCodeNotADirectory, "%q is not a directory", dir).
			WithDetails(map[string]any{"path": dir})
	}
	return nil
}

// isUnderPath reports whether path is base or inside it, by path segments.
func isUnderPath(path, base string) bool {
	if path == base {
		return true
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
