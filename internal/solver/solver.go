package solver

import (
	"context"
	"log/slog"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/fieldsim/sweep-core/internal/sweep"
	"github.com/fieldsim/sweep-core/pkg/logger"
)

// StepOutcome is the terminal result of one plan step. Exactly one
// outcome exists per step, index-aligned with the plan.
type StepOutcome struct {
	Index  int
	Values map[string]cty.Value
	Levels map[string]int

	// Dirty carries the plan's tag for this step.
	Dirty bool
	// Rebuilt reports whether a rebuild was attempted on this step,
	// including rebuilds forced by an earlier rebuild failure.
	Rebuilt bool
	// Forced reports a rebuild attempted on a step the plan tagged clean.
	Forced bool

	Solution Solution
	Err      error
	Phase    Phase // phase that failed, empty on success
	Elapsed  time.Duration
}

// Failed reports whether the step ended in a recorded failure.
func (o *StepOutcome) Failed() bool { return o.Err != nil }

// StepFunc observes each step's terminal outcome as the run progresses.
type StepFunc func(outcome StepOutcome)

// IterativeSolver executes a sweep plan against a model, strictly
// sequentially: a step starts only after the previous step's terminal
// outcome is known, because the model's structural state carries over.
type IterativeSolver struct {
	plan   *sweep.ParameterSweep
	model  Model
	fixed  map[string]cty.Value
	log    *slog.Logger
	onStep StepFunc
}

// New validates the fixed parameters against the plan's swept names and
// constructs a solver. A fixed parameter sharing a name with any swept
// parameter is a NameCollisionError; nothing executes in that case.
func New(plan *sweep.ParameterSweep, model Model, fixed map[string]cty.Value) (*IterativeSolver, error) {
	for _, name := range plan.ParameterNames() {
		if _, clash := fixed[name]; clash {
			return nil, &sweep.NameCollisionError{Parameter: name, First: "sweep", Second: "fixed parameters"}
		}
	}
	return &IterativeSolver{
		plan:  plan,
		model: model,
		fixed: fixed,
		log:   logger.Default,
	}, nil
}

// SetLogger sets the solver's logger.
func (s *IterativeSolver) SetLogger(l *slog.Logger) { s.log = l }

// OnStep registers a callback invoked after every step completes.
func (s *IterativeSolver) OnStep(fn StepFunc) { s.onStep = fn }

// Run walks the plan in order and returns one outcome per step.
//
// Per-step failures are recorded and the loop proceeds. Cancellation is
// honored at whole-step granularity: once the context is done, remaining
// steps are recorded as cancelled, the partial outcomes are returned
// together with the context's error, and the postcondition
// len(outcomes) == plan length still holds.
func (s *IterativeSolver) Run(ctx context.Context) ([]StepOutcome, error) {
	steps := s.plan.Steps()
	outcomes := make([]StepOutcome, 0, len(steps))

	s.log.Info("sweep started",
		"steps", len(steps),
		"expected_rebuilds", s.plan.ExpectedRebuilds(),
		"fixed_parameters", len(s.fixed))

	forceRebuild := false
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			s.log.Warn("sweep cancelled", "completed_steps", len(outcomes))
			for _, rest := range steps[len(outcomes):] {
				outcomes = append(outcomes, StepOutcome{
					Index:  rest.Index,
					Values: s.merged(rest),
					Levels: rest.Levels,
					Dirty:  rest.Dirty,
					Err:    err,
					Phase:  PhaseCancelled,
				})
			}
			return outcomes, err
		}

		outcome := s.runStep(ctx, step, forceRebuild)
		forceRebuild = outcome.Phase == PhaseRebuild || (forceRebuild && !outcome.Rebuilt)
		outcomes = append(outcomes, outcome)

		if s.onStep != nil {
			s.onStep(outcome)
		}
	}

	s.log.Info("sweep finished",
		"steps", len(outcomes),
		"failed_steps", countFailed(outcomes))
	return outcomes, nil
}

// runStep executes configure, conditional rebuild and solve for one step.
// forced requests a rebuild on a clean step after an earlier rebuild
// failure left the structure undefined for reuse.
func (s *IterativeSolver) runStep(ctx context.Context, step sweep.SweepStep, forced bool) StepOutcome {
	start := time.Now()
	rebuild := step.Dirty || forced
	outcome := StepOutcome{
		Index:  step.Index,
		Values: s.merged(step),
		Levels: step.Levels,
		Dirty:  step.Dirty,
		Forced: forced && !step.Dirty,
	}

	s.log.Debug("step started",
		"step", step.Index,
		"dirty", step.Dirty,
		"forced_rebuild", outcome.Forced)

	if err := s.model.Configure(ctx, outcome.Values); err != nil {
		outcome.Err = &ConfigError{Err: err}
		outcome.Phase = PhaseConfigure
		outcome.Elapsed = time.Since(start)
		s.log.Warn("step rejected by model", "step", step.Index, "error", err)
		return outcome
	}

	if rebuild {
		outcome.Rebuilt = true
		if err := s.model.Rebuild(ctx); err != nil {
			outcome.Err = &RebuildError{Err: err}
			outcome.Phase = PhaseRebuild
			outcome.Elapsed = time.Since(start)
			s.log.Warn("rebuild failed", "step", step.Index, "error", err)
			return outcome
		}
	}

	solution, err := s.model.Solve(ctx)
	if err != nil {
		outcome.Err = &SolveError{Err: err}
		outcome.Phase = PhaseSolve
		outcome.Elapsed = time.Since(start)
		s.log.Warn("solve failed", "step", step.Index, "error", err)
		return outcome
	}

	outcome.Solution = solution
	outcome.Elapsed = time.Since(start)
	s.log.Debug("step finished",
		"step", step.Index,
		"rebuilt", outcome.Rebuilt,
		"elapsed", outcome.Elapsed)
	return outcome
}

// merged combines the fixed parameters with a step's swept values. Names
// are disjoint by construction, so the union is unambiguous.
func (s *IterativeSolver) merged(step sweep.SweepStep) map[string]cty.Value {
	values := make(map[string]cty.Value, len(s.fixed)+len(step.Values))
	for name, v := range s.fixed {
		values[name] = v
	}
	for name, v := range step.Values {
		values[name] = v
	}
	return values
}

func countFailed(outcomes []StepOutcome) int {
	n := 0
	for i := range outcomes {
		if outcomes[i].Failed() {
			n++
		}
	}
	return n
}
