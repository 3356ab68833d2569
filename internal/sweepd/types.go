// Package sweepd hosts the sweep run service: an in-memory run store,
// an executor that drives sweeps asynchronously with per-run
// cancellation, an HTTP API and completion callbacks.
package sweepd

// RunStatus is the lifecycle state of a sweep run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// RunInput is the request payload that defines a run.
type RunInput struct {
	ScenarioYAML   string `json:"scenario_yaml"`
	CallbackURL    string `json:"callback_url,omitempty"`
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// Run is the externally visible state of a sweep run.
type Run struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          RunStatus `json:"status"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// StepResult is the recorded outcome of one sweep step.
type StepResult struct {
	Index     int            `json:"index"`
	Values    map[string]any `json:"values"`
	Dirty     bool           `json:"dirty"`
	Rebuilt   bool           `json:"rebuilt"`
	Forced    bool           `json:"forced,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Error     string         `json:"error,omitempty"`
	ElapsedMS float64        `json:"elapsed_ms"`
	MinValue  float64        `json:"min_value"`
	MaxValue  float64        `json:"max_value"`
}

// RunSummary aggregates a finished run.
type RunSummary struct {
	TotalSteps  int `json:"total_steps"`
	DirtySteps  int `json:"dirty_steps"`
	Rebuilds    int `json:"rebuilds"`
	FailedSteps int `json:"failed_steps"`
}
