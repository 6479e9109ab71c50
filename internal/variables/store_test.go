package variables

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/codx-dev/codx/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewStore(nil, logger), &buf
}

func requireCodxError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var cErr *schema.CodxError
	require.True(t, errors.As(err, &cErr), "expected *schema.CodxError, got %T", err)
	assert.Equal(t, code, cErr.Code)
}

// --- Set / Get ---

func TestStore_SetGet(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Set("name", "codx"))
	require.NoError(t, s.Set("count", 3))

	assert.Equal(t, "codx", s.Get("name"))
	assert.Equal(t, 3, s.Get("count"))
	assert.Nil(t, s.Get("missing"))
	assert.True(t, s.Has("name"))
	assert.False(t, s.Has("missing"))
}

func TestStore_HasNilValue(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("empty", nil))
	assert.True(t, s.Has("empty"))
	assert.Nil(t, s.Get("empty"))
}

func TestStore_SetRejectsInternal(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Set("$CWD", "/tmp")
	requireCodxError(t, err, schema.ErrCodeReservedVariable)
	assert.Contains(t, err.Error(), `Cannot set internal variable "$CWD"`)
	assert.False(t, s.Has("$CWD"))
}

func TestStore_SetInternal(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SetInternal("$CWD", "/tmp"))
	assert.Equal(t, "/tmp", s.Get("$CWD"))

	err := s.SetInternal("CWD", "/tmp")
	requireCodxError(t, err, schema.ErrCodeInvalidInternalVariable)
	assert.False(t, s.Has("CWD"))
}

// --- Unset ---

func TestStore_Unset(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("name", "codx"))

	require.NoError(t, s.Unset("name"))
	assert.False(t, s.Has("name"))

	require.NoError(t, s.Unset("never-set"))
}

func TestStore_UnsetRejectsInternal(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetInternal("$CWD", "/tmp"))

	requireCodxError(t, s.Unset("$CWD"), schema.ErrCodeReservedVariable)
	assert.True(t, s.Has("$CWD"))

	requireCodxError(t, s.UnsetInternal("name"), schema.ErrCodeInvalidInternalVariable)

	require.NoError(t, s.UnsetInternal("$CWD"))
	assert.False(t, s.Has("$CWD"))
}

// --- Snapshot / Clear ---

func TestStore_GetAllIsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("a", 1))

	all := s.GetAll()
	all["b"] = 2
	delete(all, "a")

	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("b"))
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.SetInternal("$B", 2))

	s.Clear()
	assert.Empty(t, s.GetAll())
}

// --- Interpolate / logging ---

func TestStore_Interpolate(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("name", "World"))
	require.NoError(t, s.SetInternal("$PACKAGE_MANAGER", "pnpm"))

	assert.Equal(t, "", s.Interpolate(""))
	assert.Equal(t, "Hello World via pnpm {unknown}", s.Interpolate("Hello {name} via {$PACKAGE_MANAGER} {unknown}"))
	assert.Equal(t, "yes", s.Interpolate(`{{if $PACKAGE_MANAGER == "pnpm"}}yes{{else}}no{{/if}}`))
}

func TestStore_DebugTrace(t *testing.T) {
	s, buf := newTestStore(t)

	require.NoError(t, s.Set("greeting", "hi"))
	assert.Contains(t, buf.String(), "variable set")
	assert.Contains(t, buf.String(), "name=greeting")

	require.NoError(t, s.Unset("greeting"))
	assert.Contains(t, buf.String(), "variable unset")

	buf.Reset()
	_ = s.Set("$X", 1)
	assert.Empty(t, buf.String(), "rejected writes are not traced")
}
