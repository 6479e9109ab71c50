package store

import (
	"encoding/json"
	"time"

	"github.com/codx-dev/codx/pkg/schema"
)

// Run is one execution of a recipe.
type Run struct {
	ID             string           `json:"id"`
	Recipe         string           `json:"recipe"`
	Description    string           `json:"description,omitempty"`
	ProjectDir     string           `json:"project_dir"`
	PackageManager string           `json:"package_manager,omitempty"`
	Status         schema.RunStatus `json:"status"`
	Error          string           `json:"error,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// Event is an entry of a run's journal. StepPath locates the step in the
// recipe tree, e.g. "2.onFailure.0".
type Event struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Sequence  int64           `json:"sequence"`
	StepPath  string          `json:"step_path,omitempty"`
	StepName  string          `json:"step_name,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// RunFilter narrows ListRuns. Zero values mean no filter.
type RunFilter struct {
	Status schema.RunStatus
	Recipe string
	Limit  int
}
