package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codx-dev/codx/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	s, err := NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newRun(recipe string) *Run {
	return &Run{ID: uuid.NewString(), Recipe: recipe, ProjectDir: "/tmp/project"}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.DB().QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestSplitStatements_SkipsComments(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n-- only a comment\n;\nCREATE INDEX i ON a(x);")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Equal(t, "CREATE INDEX i ON a(x)", stmts[1])
}

func TestRun_CreateGetFinish(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := newRun("./recipe.yml")
	run.PackageManager = "pnpm"
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "./recipe.yml", got.Recipe)
	assert.Equal(t, "pnpm", got.PackageManager)
	assert.Equal(t, schema.RunStatusActive, got.Status)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.FinishRun(ctx, run.ID, schema.RunStatusFailed, "boom"))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestRun_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetRun(ctx, "missing")
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))

	err = s.FinishRun(ctx, "missing", schema.RunStatusCompleted, "")
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))

	err = s.DeleteRun(ctx, "missing")
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestListRuns_Filters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, recipe := range []string{"a", "b", "a"} {
		run := newRun(recipe)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateRun(ctx, run))
		if i == 0 {
			require.NoError(t, s.FinishRun(ctx, run.ID, schema.RunStatusCompleted, ""))
		}
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[2].StartedAt), "most recent first")

	onlyA, err := s.ListRuns(ctx, RunFilter{Recipe: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	active, err := s.ListRuns(ctx, RunFilter{Status: schema.RunStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEvents_SequenceAndSince(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run := newRun("r")
	require.NoError(t, s.CreateRun(ctx, run))

	for _, typ := range []string{schema.EventRunStarted, schema.EventStepStarted, schema.EventStepCompleted} {
		ev := &Event{RunID: run.ID, StepPath: "0", StepName: "hello", Type: typ, Payload: []byte(`{"k":1}`)}
		require.NoError(t, s.AppendEvent(ctx, ev))
	}

	events, err := s.GetEvents(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Sequence)
	}
	assert.Equal(t, "hello", events[1].StepName)
	assert.JSONEq(t, `{"k":1}`, string(events[1].Payload))

	tail, err := s.GetEvents(ctx, run.ID, 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, schema.EventStepCompleted, tail[0].Type)
}

func TestEvents_ConcurrentAppendKeepsSequenceUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run := newRun("r")
	require.NoError(t, s.CreateRun(ctx, run))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AppendEvent(ctx, &Event{RunID: run.ID, Type: schema.EventVariableSet}))
		}()
	}
	wg.Wait()

	events, err := s.GetEvents(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 10)
	assert.Equal(t, int64(10), events[9].Sequence)
}

func TestDeleteRun_RemovesEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run := newRun("r")
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.AppendEvent(ctx, &Event{RunID: run.ID, Type: schema.EventRunStarted}))

	require.NoError(t, s.DeleteRun(ctx, run.ID))
	events, err := s.GetEvents(ctx, run.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestJournal_RecordsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := uuid.NewString()

	j := NewJournal(s, id, nil)
	j.Start(ctx, Run{Recipe: "demo", ProjectDir: "/p"})
	j.Record(ctx, "0", "greet", schema.EventStepCompleted, map[string]any{"result": "hi"})
	j.Finish(ctx, schema.NewError(schema.ErrCodeExplicitFailure, "stop"))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusFailed, run.Status)
	assert.Equal(t, "stop", run.Error)

	events, err := s.GetEvents(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, schema.EventRunStarted, events[0].Type)
	assert.Equal(t, schema.EventStepCompleted, events[1].Type)
	assert.JSONEq(t, `{"result":"hi"}`, string(events[1].Payload))
	assert.Equal(t, schema.EventRunFailed, events[2].Type)
	assert.Contains(t, string(events[2].Payload), schema.ErrCodeExplicitFailure)
}

func TestJournal_NilIsNoop(t *testing.T) {
	var j *Journal
	assert.NotPanics(t, func() {
		j.Start(context.Background(), Run{})
		j.Record(context.Background(), "", "", schema.EventStepStarted, nil)
		j.Finish(context.Background(), errors.New("x"))
	})
	assert.Equal(t, "", j.RunID())
}

func TestJournal_FinishSurvivesCancelledContext(t *testing.T) {
	s := newTestStore(t)
	id := uuid.NewString()
	j := NewJournal(s, id, nil)
	j.Start(context.Background(), Run{Recipe: "demo", ProjectDir: "/p"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Finish(ctx, nil)

	run, err := s.GetRun(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusCompleted, run.Status)
}
