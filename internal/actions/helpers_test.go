package actions

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codx-dev/codx/internal/execution"
	"github.com/codx-dev/codx/internal/logging"
	"github.com/codx-dev/codx/internal/variables"
	"github.com/codx-dev/codx/internal/workdir"
	"github.com/codx-dev/codx/pkg/schema"
)

// fakePrompter answers every question with canned values and records the
// messages it was asked.
type fakePrompter struct {
	text     string
	number   float64
	choice   string
	checked  []string
	confirm  bool
	err      error
	messages []string
	defaults []any
}

func (f *fakePrompter) record(message string, def any) {
	f.messages = append(f.messages, message)
	f.defaults = append(f.defaults, def)
}

func (f *fakePrompter) Text(_ context.Context, message, def string) (string, error) {
	f.record(message, def)
	return f.text, f.err
}

func (f *fakePrompter) Number(_ context.Context, message string, def float64) (float64, error) {
	f.record(message, def)
	return f.number, f.err
}

func (f *fakePrompter) Select(_ context.Context, message string, _ []Choice, def string) (string, error) {
	f.record(message, def)
	return f.choice, f.err
}

func (f *fakePrompter) Checkbox(_ context.Context, message string, _ []Choice, defaults []string) ([]string, error) {
	f.record(message, defaults)
	return f.checked, f.err
}

func (f *fakePrompter) Confirm(_ context.Context, message string, def bool) (bool, error) {
	f.record(message, def)
	return f.confirm, f.err
}

type testEnv struct {
	recipeDir  string
	projectDir string
	exec       *execution.Context
	out        *bytes.Buffer
	errOut     *bytes.Buffer
	prompter   *fakePrompter
	registry   *Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		recipeDir:  t.TempDir(),
		projectDir: t.TempDir(),
		out:        &bytes.Buffer{},
		errOut:     &bytes.Buffer{},
		prompter:   &fakePrompter{confirm: true},
	}

	recipeDir, err := workdir.New(env.recipeDir)
	require.NoError(t, err)
	projectDir, err := workdir.NewProject(env.projectDir)
	require.NoError(t, err)

	env.exec, err = execution.New(variables.NewStore(nil, nil), recipeDir, projectDir, nil)
	require.NoError(t, err)

	env.registry, err = NewDefaultRegistry(Deps{
		Exec:     env.exec,
		Console:  logging.NewConsole(env.out, env.errOut),
		Prompter: env.prompter,
	})
	require.NoError(t, err)
	return env
}

func (e *testEnv) run(t *testing.T, data schema.ActionData) (any, error) {
	t.Helper()
	a, err := e.registry.Create(data)
	require.NoError(t, err)
	return a.Execute(context.Background(), data)
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func requireCode(t *testing.T, err error, code string) *schema.CodxError {
	t.Helper()
	require.Error(t, err)
	var cErr *schema.CodxError
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, code, cErr.Code, err.Error())
	return cErr
}
