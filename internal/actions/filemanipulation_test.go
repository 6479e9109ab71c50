package actions

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codx-dev/codx/pkg/schema"
)

func TestFileManipulation_AppendPrepend(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.projectDir, ".gitignore")
	writeTestFile(t, path, "node_modules\n")
	require.NoError(t, env.exec.Store.Set("dir", "dist"))

	res, err := env.run(t, schema.ActionData{
		"type": "fileManipulation", "operation": "append", "path": ".gitignore", "content": "{dir}\n",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": path, "appended": true}, res)

	res, err = env.run(t, schema.ActionData{
		"type": "fileManipulation", "operation": "prepend", "path": ".gitignore", "content": "# generated\n",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": path, "prepended": true}, res)

	assert.Equal(t, "# generated\nnode_modules\ndist\n", readTestFile(t, path))
}

func TestFileManipulation_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	for _, op := range []string{"append", "prepend", "update"} {
		_, err := env.run(t, schema.ActionData{
			"type": "fileManipulation", "operation": op, "path": "ghost.txt", "content": "x", "pattern": "x",
		})
		cErr := requireCode(t, err, schema.ErrCodeFileNotFound)
		assert.Equal(t, `File "`+filepath.Join(env.projectDir, "ghost.txt")+`" does not exist.`, cErr.Message)
		assert.Equal(t, "FileNotFoundCodxError", cErr.Kind())
	}
}

func TestFileManipulation_Update(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.projectDir, "package.json")
	writeTestFile(t, path, `{"name": "old-name", "version": "1.0.0"}`)
	require.NoError(t, env.exec.Store.Set("name", "new-name"))

	res, err := env.run(t, schema.ActionData{
		"type": "fileManipulation", "operation": "update", "path": "package.json",
		"pattern": `"name": "[^"]+"`, "content": `"name": "{name}"`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": path, "updated": true}, res)
	assert.Equal(t, `{"name": "new-name", "version": "1.0.0"}`, readTestFile(t, path))
}

func TestFileManipulation_UpdateCaptureGroups(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.projectDir, "v.txt")
	writeTestFile(t, path, "a=1 b=2")

	_, err := env.run(t, schema.ActionData{
		"type": "fileManipulation", "operation": "update", "path": "v.txt",
		"pattern": `(\w)=(\d)`, "content": "${2}=${1}",
	})
	require.NoError(t, err)
	assert.Equal(t, "1=a 2=b", readTestFile(t, path))
}

func TestFileManipulation_UpdateNoMatch(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.projectDir, "a.txt")
	writeTestFile(t, path, "unchanged")

	res, err := env.run(t, schema.ActionData{
		"type": "fileManipulation", "operation": "update", "path": "a.txt", "pattern": "absent", "content": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, false, res.(map[string]any)["updated"])
	assert.Contains(t, env.out.String(), `Pattern "absent" not found in file`)
}

func TestFileManipulation_InvalidRegex(t *testing.T) {
	env := newTestEnv(t)
	writeTestFile(t, filepath.Join(env.projectDir, "a.txt"), "x")

	_, err := env.run(t, schema.ActionData{
		"type": "fileManipulation", "operation": "update", "path": "a.txt", "pattern": "([", "content": "x",
	})
	cErr := requireCode(t, err, schema.ErrCodeInvalidRegex)
	assert.Equal(t, `Invalid regular expression pattern "(["`, cErr.Message)
	assert.NotNil(t, cErr.Cause)
}

func TestFileManipulation_Create(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.projectDir, "src/main.ts")

	data := schema.ActionData{"type": "fileManipulation", "operation": "create", "path": "src/main.ts", "content": "main()"}
	res, err := env.run(t, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": path, "overwritten": false}, res)

	_, err = env.run(t, data)
	cErr := requireCode(t, err, schema.ErrCodeFileAlreadyExists)
	assert.Equal(t, `File "`+path+`" already exists and the "overwrite" option is not enabled.`, cErr.Message)
}

func TestFileManipulation_MissingContent(t *testing.T) {
	env := newTestEnv(t)
	writeTestFile(t, filepath.Join(env.projectDir, "a.txt"), "x")

	_, err := env.run(t, schema.ActionData{"type": "fileManipulation", "operation": "append", "path": "a.txt"})
	requireCode(t, err, schema.ErrCodeMissingParameter)
}

func TestFileManipulation_UnknownOperation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, schema.ActionData{"type": "fileManipulation", "operation": "truncate", "path": "a"})
	requireCode(t, err, schema.ErrCodeUnknownOperation)
}
