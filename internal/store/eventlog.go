package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/codx-dev/codx/pkg/schema"
)

// Journal records the lifecycle of a single run into a Store.
// Writes are best-effort: failures are logged and never interrupt the run.
// A nil *Journal is valid and records nothing.
type Journal struct {
	store  Store
	runID  string
	logger *slog.Logger
}

// NewJournal returns a journal writing events for runID.
func NewJournal(s Store, runID string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Journal{store: s, runID: runID, logger: logger}
}

// RunID returns the run the journal writes to.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Start creates the run row and appends the run_started event.
func (j *Journal) Start(ctx context.Context, run Run) {
	if j == nil {
		return
	}
	run.ID = j.runID
	run.Status = schema.RunStatusActive
	if err := j.store.CreateRun(ctx, &run); err != nil {
		j.logger.WarnContext(ctx, "journal: create run failed", "error", err)
		return
	}
	j.Record(ctx, "", "", schema.EventRunStarted, map[string]any{
		"recipe":      run.Recipe,
		"project_dir": run.ProjectDir,
	})
}

// Record appends one event. payload is marshalled to JSON; nil means none.
func (j *Journal) Record(ctx context.Context, stepPath, stepName, eventType string, payload any) {
	if j == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			j.logger.WarnContext(ctx, "journal: payload not serializable", "event", eventType, "error", err)
		} else {
			raw = b
		}
	}
	ev := &Event{
		RunID:     j.runID,
		StepPath:  stepPath,
		StepName:  stepName,
		Type:      eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}
	if err := j.store.AppendEvent(ctx, ev); err != nil {
		j.logger.WarnContext(ctx, "journal: append event failed", "event", eventType, "error", err)
	}
}

// Finish appends the terminal event and closes the run row.
// It writes with a context detached from cancellation so that interrupted
// runs are still closed.
func (j *Journal) Finish(ctx context.Context, runErr error) {
	if j == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	status := schema.RunStatusCompleted
	eventType := schema.EventRunCompleted
	var errMsg string
	var payload any
	if runErr != nil {
		status = schema.RunStatusFailed
		eventType = schema.EventRunFailed
		errMsg = runErr.Error()
		var cErr *schema.CodxError
		if errors.As(runErr, &cErr) {
			errMsg = cErr.FullMessage()
		}
		payload = map[string]any{"error": errMsg, "code": schema.CodeOf(runErr)}
	}

	j.Record(ctx, "", "", eventType, payload)
	if err := j.store.FinishRun(ctx, j.runID, status, errMsg); err != nil {
		j.logger.WarnContext(ctx, "journal: finish run failed", "error", err)
	}
}
