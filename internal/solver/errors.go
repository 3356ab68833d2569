package solver

// Phase identifies which part of a step the driver was executing.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhaseRebuild   Phase = "rebuild"
	PhaseSolve     Phase = "solve"

	// PhaseCancelled marks steps never attempted because the run's
	// context was cancelled before they started.
	PhaseCancelled Phase = "cancelled"
)

// ConfigError wraps a model's rejection of a step's parameter values.
// It is recorded as that step's failure and does not stop the sweep.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configure: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// RebuildError wraps a failed structural rebuild. The structure is
// undefined for reuse afterwards, so the driver forces the next step to
// rebuild regardless of its planned dirtiness.
type RebuildError struct {
	Err error
}

func (e *RebuildError) Error() string { return "rebuild: " + e.Err.Error() }
func (e *RebuildError) Unwrap() error { return e.Err }

// SolveError wraps a failed solve on an otherwise valid configuration.
// The structural state stays valid, so no rebuild is forced.
type SolveError struct {
	Err error
}

func (e *SolveError) Error() string { return "solve: " + e.Err.Error() }
func (e *SolveError) Unwrap() error { return e.Err }
