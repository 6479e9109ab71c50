package recipe

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codx-dev/codx/internal/actions"
	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/validation"
	"github.com/codx-dev/codx/internal/workdir"
	"github.com/codx-dev/codx/pkg/schema"
)

const sampleRecipe = `description: Sample recipe
author: codx
steps:
  - name: Greet
    action:
      type: message
      content: Hello {name}
    variable: greeting
`

func newValidator(t *testing.T) *validation.RecipeValidator {
	t.Helper()
	reg, err := actions.NewDefaultRegistry(actions.Deps{})
	require.NoError(t, err)
	v, err := validation.NewRecipeValidator(reg)
	require.NoError(t, err)
	return v
}

func writeRecipe(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIsPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		ref  string
		want bool
	}{
		{"eslint", false},
		{"eslint@2.1.0", false},
		{"@acme/eslint", false},
		{"@acme/eslint@latest", false},
		{"./recipe.yml", true},
		{"recipe.yaml", true},
		{"../recipes/eslint", true},
		{dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPath(tt.ref))
		})
	}
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		ref, name, version string
	}{
		{"eslint", "eslint", "latest"},
		{"eslint@2.1.0", "eslint", "2.1.0"},
		{"eslint@", "eslint", "latest"},
		{"@acme/eslint", "@acme/eslint", "latest"},
		{"@acme/eslint@next", "@acme/eslint", "next"},
	}
	for _, tt := range tests {
		name, version := ParseReference(tt.ref)
		assert.Equal(t, tt.name, name, tt.ref)
		assert.Equal(t, tt.version, version, tt.ref)
	}
	assert.Equal(t, "eslint-codx-recipe", PackageName("eslint"))
	assert.Equal(t, "eslint-codx-recipe", PackageName("eslint-codx-recipe"))
}

func TestLoad_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := writeRecipe(t, dir, "setup.yaml", sampleRecipe)

	recipeDir, err := workdir.New("")
	require.NoError(t, err)
	var out bytes.Buffer
	l := NewLoader(WithValidator(newValidator(t)), WithRecipeDirectory(recipeDir),
		WithConsole(logging.NewConsole(&out, &out)))

	loaded, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, path, loaded.Path)
	assert.Equal(t, dir, loaded.Dir)
	assert.Empty(t, loaded.Package)
	assert.Equal(t, dir, recipeDir.Get())
	assert.Contains(t, out.String(), "Recipe file")

	r := loaded.Recipe
	assert.Equal(t, "Sample recipe", r.Description)
	assert.Equal(t, "codx", r.Author)
	require.Len(t, r.Steps, 1)
	assert.Equal(t, "Greet", r.Steps[0].Name)
	assert.Equal(t, "message", r.Steps[0].Action.Type())
	assert.Equal(t, "greeting", r.Steps[0].Variable)
}

func TestLoad_LocalDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, FileName, sampleRecipe)

	loaded, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), loaded.Path)
	assert.Equal(t, dir, loaded.Dir)
}

func TestLoad_MissingRecipeFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())
	assert.Equal(t, schema.ErrCodeRecipeNotFound, schema.CodeOf(err))
}

func TestParse_Errors(t *testing.T) {
	l := NewLoader(WithValidator(newValidator(t)))

	_, err := l.Parse([]byte("description: [unclosed"))
	assert.Equal(t, schema.ErrCodeRecipeLoad, schema.CodeOf(err))

	_, err = l.Parse([]byte("description: x\nsteps:\n  - action: {type: teleport}\n"))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeInvalidRecipe, schema.CodeOf(err))
	assert.Contains(t, err.Error(), "/steps/0/action/type")
}

func TestParse_EmptyOnFailureIsDeclared(t *testing.T) {
	r, err := NewLoader().Parse([]byte(`description: x
steps:
  - action: {type: fail}
    onFailure: []
`))
	require.NoError(t, err)
	assert.NotNil(t, r.Steps[0].OnFailure)
	assert.Empty(t, r.Steps[0].OnFailure)
}

// registry serves one recipe package version and its tarball.
func newRegistry(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	tarball := buildTarball(t, files)

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/eslint-codx-recipe/{version}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("version") != "1.2.0" && r.PathValue("version") != "latest" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name":    "eslint-codx-recipe",
			"version": "1.2.0",
			"dist":    map[string]any{"tarball": srv.URL + "/tarballs/eslint.tgz"},
		})
	})
	mux.HandleFunc("/notarball-codx-recipe/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"notarball-codx-recipe","dist":{}}`))
	})
	mux.HandleFunc("/tarballs/eslint.tgz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarball)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestLoad_Package(t *testing.T) {
	srv := newRegistry(t, map[string]string{
		"package/recipe.yml":          sampleRecipe,
		"package/templates/.eslintrc": "{}",
		"package/package.json":        `{"name":"eslint-codx-recipe"}`,
	})
	tmp := t.TempDir()
	l := NewLoader(WithRegistryURL(srv.URL+"/"), WithTempDir(tmp), WithValidator(newValidator(t)))

	loaded, err := l.Load(context.Background(), "eslint@1.2.0")
	require.NoError(t, err)

	assert.Equal(t, "eslint-codx-recipe", loaded.Package)
	assert.Equal(t, "1.2.0", loaded.Version)
	assert.Equal(t, filepath.Join(loaded.Dir, FileName), loaded.Path)
	assert.FileExists(t, filepath.Join(loaded.Dir, "templates", ".eslintrc"))
	assert.Equal(t, "Sample recipe", loaded.Recipe.Description)

	require.NoError(t, loaded.Close())
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "Close removes the extracted package")
}

func TestLoad_PackageErrors(t *testing.T) {
	srv := newRegistry(t, map[string]string{"package/recipe.yml": sampleRecipe})
	l := NewLoader(WithRegistryURL(srv.URL), WithTempDir(t.TempDir()))

	_, err := l.Load(context.Background(), "eslint@9.9.9")
	assert.Equal(t, schema.ErrCodeFetchFailed, schema.CodeOf(err))

	_, err = l.Load(context.Background(), "notarball")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeFetchFailed, schema.CodeOf(err))
	assert.Contains(t, err.Error(), "Failed to get tarball URL for notarball-codx-recipe@latest")
}

func TestLoad_PackageWithoutRecipeFile(t *testing.T) {
	srv := newRegistry(t, map[string]string{"package/README.md": "# nothing"})
	l := NewLoader(WithRegistryURL(srv.URL), WithTempDir(t.TempDir()))

	_, err := l.Load(context.Background(), "eslint")
	assert.Equal(t, schema.ErrCodeRecipeNotFound, schema.CodeOf(err))
}

func TestExtractTarball_RejectsEscapingEntries(t *testing.T) {
	data := buildTarball(t, map[string]string{"../evil.txt": "x"})
	dest := filepath.Join(t.TempDir(), "dest")
	require.NoError(t, os.Mkdir(dest, 0o755))

	assert.Error(t, extractTarball(bytes.NewReader(data), dest))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.txt"))
}

func TestExtractTarball_NotGzip(t *testing.T) {
	err := extractTarball(bytes.NewReader([]byte("plain text")), t.TempDir())
	assert.Error(t, err)
}
