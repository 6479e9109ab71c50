// Package recipe locates, downloads and decodes recipes.
//
// A recipe reference is either a local path (a .yml/.yaml file or a
// directory holding recipe.yml) or the name of a published recipe,
// optionally versioned: "eslint" resolves to the npm package
// "eslint-codx-recipe", "eslint@2.1.0" pins its version.
package recipe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/workdir"
	"github.com/codx-dev/codx/pkg/schema"
)

const (
	// DefaultRegistryURL is the npm registry recipes are published to.
	DefaultRegistryURL = "https://registry.npmjs.org"
	// FileName is the recipe file looked up in recipe directories and packages.
	FileName = "recipe.yml"
	// PackageSuffix turns a recipe name into its npm package name.
	PackageSuffix = "-codx-recipe"

	defaultHTTPTimeout = 60 * time.Second
)

var packageRef = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._-]*/)?[a-zA-Z0-9][a-zA-Z0-9_-]*(@[^/\\\s]+)?$`)

// DocumentValidator validates a decoded recipe document.
// Satisfied by *validation.RecipeValidator.
type DocumentValidator interface {
	ValidateDocument(doc any) *schema.ValidationResult
}

// Loaded is a resolved recipe.
type Loaded struct {
	Recipe *schema.Recipe
	// Path is the recipe file, Dir the recipe directory holding its assets.
	Path string
	Dir  string
	// Package is the npm package the recipe came from, "" for local recipes.
	Package string
	Version string

	cleanup func() error
}

// Close removes the temporary files of a downloaded recipe.
func (l *Loaded) Close() error {
	if l == nil || l.cleanup == nil {
		return nil
	}
	return l.cleanup()
}

// Loader resolves recipe references.
type Loader struct {
	registryURL string
	client      *http.Client
	tempDir     string
	validator   DocumentValidator
	recipeDir   *workdir.WorkingDirectory
	console     *logging.Console
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistryURL overrides the npm registry.
func WithRegistryURL(u string) Option {
	return func(l *Loader) { l.registryURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the client used to talk to the registry.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithTempDir sets where downloaded packages are extracted.
func WithTempDir(dir string) Option {
	return func(l *Loader) { l.tempDir = dir }
}

// WithValidator validates recipes before they are decoded.
func WithValidator(v DocumentValidator) Option {
	return func(l *Loader) { l.validator = v }
}

// WithRecipeDirectory initialises dir to the directory of every loaded recipe.
func WithRecipeDirectory(dir *workdir.WorkingDirectory) Option {
	return func(l *Loader) { l.recipeDir = dir }
}

// WithConsole prints where recipes are loaded from.
func WithConsole(c *logging.Console) Option {
	return func(l *Loader) { l.console = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{registryURL: DefaultRegistryURL}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if l.console == nil {
		l.console = logging.NewConsole(io.Discard, io.Discard)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	return l
}

// Load resolves nameOrPath, downloading the recipe package when needed,
// and returns the validated recipe. Callers must Close the result.
func (l *Loader) Load(ctx context.Context, nameOrPath string) (*Loaded, error) {
	var loaded *Loaded
	var err error
	if IsPath(nameOrPath) {
		loaded, err = l.local(nameOrPath)
	} else {
		loaded, err = l.remote(ctx, nameOrPath)
	}
	if err != nil {
		return nil, err
	}

	l.console.Detail("Recipe file", loaded.Path)

	if _, err := os.Stat(loaded.Path); err != nil {
		loaded.Close()
		return nil, schema.NewErrorf(schema.ErrCodeRecipeNotFound, "Recipe file not found: %s", loaded.Path).
			WithDetails(map[string]any{"path": loaded.Path})
	}

	if l.recipeDir != nil {
		if err := l.recipeDir.Init(loaded.Dir); err != nil {
			loaded.Close()
			return nil, err
		}
	}

	loaded.Recipe, err = l.LoadFile(loaded.Path)
	if err != nil {
		loaded.Close()
		return nil, err
	}
	l.logger.InfoContext(ctx, "recipe loaded", "path", loaded.Path, "package", loaded.Package, "steps", len(loaded.Recipe.Steps))
	return loaded, nil
}

// LoadFile reads, validates and decodes the recipe file at path.
func (l *Loader) LoadFile(path string) (*schema.Recipe, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeRecipeLoad, "Failed to load recipe").WithCause(err)
	}
	return l.Parse(content)
}

// Parse validates and decodes a YAML (or JSON) recipe document.
func (l *Loader) Parse(content []byte) (*schema.Recipe, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeRecipeLoad, "Failed to load recipe").WithCause(err)
	}

	if l.validator != nil {
		if err := l.validator.ValidateDocument(doc).ToError(); err != nil {
			return nil, err
		}
	}

	var r schema.Recipe
	if err := yaml.Unmarshal(content, &r); err != nil {
		return nil, schema.NewError(schema.ErrCodeRecipeLoad, "Failed to load recipe").WithCause(err)
	}
	return &r, nil
}

func (l *Loader) local(path string) (*Loaded, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeRecipeNotFound, "Failed to find recipe").WithCause(err)
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if ext == ".yml" || ext == ".yaml" {
		return &Loaded{Path: abs, Dir: filepath.Dir(abs)}, nil
	}
	return &Loaded{Path: filepath.Join(abs, FileName), Dir: abs}, nil
}

func (l *Loader) remote(ctx context.Context, ref string) (*Loaded, error) {
	name, version := ParseReference(ref)
	pkg := PackageName(name)
	l.console.Detail("Recipe package", pkg+"@"+version)

	dir, cleanup, err := l.download(ctx, pkg, version)
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Path:    filepath.Join(dir, FileName),
		Dir:     dir,
		Package: pkg,
		Version: version,
		cleanup: cleanup,
	}, nil
}

// IsPath reports whether ref names a local recipe rather than a package:
// anything that exists on disk or does not look like a package name.
func IsPath(ref string) bool {
	if _, err := os.Stat(ref); err == nil {
		return true
	}
	if ext := strings.ToLower(filepath.Ext(ref)); ext == ".yml" || ext == ".yaml" {
		return true
	}
	return !packageRef.MatchString(ref)
}

// ParseReference splits "name@version" into its parts, keeping a leading
// scope "@". The version defaults to "latest".
func ParseReference(ref string) (name, version string) {
	i := strings.LastIndex(ref, "@")
	if i <= 0 {
		return ref, "latest"
	}
	if ref[i+1:] == "" {
		return ref[:i], "latest"
	}
	return ref[:i], ref[i+1:]
}

// PackageName returns the npm package publishing the recipe called name.
func PackageName(name string) string {
	if strings.HasSuffix(name, PackageSuffix) {
		return name
	}
	return name + PackageSuffix
}
