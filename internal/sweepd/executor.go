package sweepd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/fieldsim/sweep-core/internal/field"
	"github.com/fieldsim/sweep-core/internal/results"
	"github.com/fieldsim/sweep-core/internal/solver"
	"github.com/fieldsim/sweep-core/internal/sweep"
	"github.com/fieldsim/sweep-core/pkg/config"
	"github.com/fieldsim/sweep-core/pkg/logger"
	"github.com/fieldsim/sweep-core/pkg/params"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// RunExecutor manages asynchronous sweep execution and per-run
// cancellation. The archive and notifier are optional.
type RunExecutor struct {
	store    *RunStore
	archive  *results.Archive
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
}

func NewRunExecutor(store *RunStore) *RunExecutor {
	return &RunExecutor{
		store:   store,
		cancels: make(map[string]context.CancelFunc),
		done:    make(map[string]chan struct{}),
	}
}

// SetArchive enables persisting finished runs.
func (e *RunExecutor) SetArchive(a *results.Archive) { e.archive = a }

// SetNotifier enables completion callbacks.
func (e *RunExecutor) SetNotifier(n *Notifier) { e.notifier = n }

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	switch rec.Run.Status {
	case StatusRunning:
		return rec, nil
	case StatusCompleted, StatusFailed, StatusCancelled:
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, StatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.done[runID] = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		e.runSweep(ctx, runID)
	}()
	return updated, nil
}

// Stop requests cancellation for a running run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()

	if ok {
		cancel()
	}

	return e.store.SetStatus(runID, StatusCancelled, "")
}

// Wait blocks until the run's goroutine finishes. Used by tests and
// graceful shutdown.
func (e *RunExecutor) Wait(runID string) {
	e.mu.Lock()
	done, ok := e.done[runID]
	e.mu.Unlock()
	if ok {
		<-done
	}
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) fail(runID, msg string) {
	if _, err := e.store.SetStatus(runID, StatusFailed, msg); err != nil {
		logger.Error("failed to set failed status", "run_id", runID, "error", err)
	}
}

func (e *RunExecutor) runSweep(ctx context.Context, runID string) {
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}
	scenario := rec.Scenario

	plan, fixed, err := buildPlan(scenario)
	if err != nil {
		logger.Error("failed to build sweep plan", "run_id", runID, "error", err)
		e.fail(runID, fmt.Sprintf("invalid sweep: %v", err))
		e.notify(runID)
		return
	}

	model, err := buildModel(scenario.Model)
	if err != nil {
		logger.Error("failed to build model", "run_id", runID, "error", err)
		e.fail(runID, fmt.Sprintf("invalid model: %v", err))
		e.notify(runID)
		return
	}

	sv, err := solver.New(plan, model, fixed)
	if err != nil {
		logger.Error("failed to build solver", "run_id", runID, "error", err)
		e.fail(runID, fmt.Sprintf("invalid run: %v", err))
		e.notify(runID)
		return
	}
	sv.OnStep(func(o solver.StepOutcome) {
		if err := e.store.AppendStep(runID, toStepResult(o)); err != nil {
			logger.Error("failed to record step", "run_id", runID, "error", err)
		}
	})

	logger.Info("starting sweep", "run_id", runID,
		"scenario", scenario.Name,
		"steps", plan.Len(),
		"expected_rebuilds", plan.ExpectedRebuilds())

	outcomes, runErr := sv.Run(ctx)

	steps := make([]StepResult, 0, len(outcomes))
	summary := &RunSummary{TotalSteps: len(outcomes), DirtySteps: plan.DirtyCount()}
	for _, o := range outcomes {
		sr := toStepResult(o)
		steps = append(steps, sr)
		if o.Rebuilt {
			summary.Rebuilds++
		}
		if o.Failed() {
			summary.FailedSteps++
		}
	}
	if err := e.store.SetResults(runID, steps, summary); err != nil {
		logger.Error("failed to store results", "run_id", runID, "error", err)
	}

	if runErr != nil {
		// Cancellation is the only way Run returns an error once the
		// solver has been constructed.
		logger.Info("sweep cancelled", "run_id", runID, "completed_steps", len(steps)-countCancelled(outcomes))
		e.archiveRun(runID)
		e.notify(runID)
		return
	}

	logger.Info("sweep completed", "run_id", runID,
		"steps", summary.TotalSteps,
		"rebuilds", summary.Rebuilds,
		"failed_steps", summary.FailedSteps)

	rec, ok = e.store.Get(runID)
	if ok && rec.Run.Status == StatusRunning {
		if _, err := e.store.SetStatus(runID, StatusCompleted, ""); err != nil {
			logger.Error("failed to set completed status", "run_id", runID, "error", err)
		}
	}
	e.archiveRun(runID)
	e.notify(runID)
}

func (e *RunExecutor) notify(runID string) {
	if e.notifier == nil {
		return
	}
	rec, ok := e.store.Get(runID)
	if !ok || rec.Input == nil {
		return
	}
	callbackURL := rec.Input.CallbackURL
	if callbackURL == "" && rec.Scenario != nil {
		callbackURL = rec.Scenario.CallbackURL
	}
	e.notifier.Notify(callbackURL, rec.Input.CallbackSecret, rec)
}

func (e *RunExecutor) archiveRun(runID string) {
	if e.archive == nil {
		return
	}
	rec, ok := e.store.Get(runID)
	if !ok {
		return
	}

	record := results.RunRecord{
		ID:         rec.Run.ID,
		Name:       rec.Run.Name,
		Status:     string(rec.Run.Status),
		CreatedAt:  time.UnixMilli(rec.Run.CreatedAtUnixMs).UTC(),
		FinishedAt: time.UnixMilli(rec.Run.EndedAtUnixMs).UTC(),
		Error:      rec.Run.Error,
	}
	if rec.Summary != nil {
		record.TotalSteps = rec.Summary.TotalSteps
		record.DirtySteps = rec.Summary.DirtySteps
		record.Rebuilds = rec.Summary.Rebuilds
	}
	for _, s := range rec.Steps {
		record.Steps = append(record.Steps, results.StepRecord{
			Index:     s.Index,
			Dirty:     s.Dirty,
			Rebuilt:   s.Rebuilt,
			Forced:    s.Forced,
			Phase:     s.Phase,
			Error:     s.Error,
			ElapsedMS: s.ElapsedMS,
			Values:    s.Values,
			MinValue:  s.MinValue,
			MaxValue:  s.MaxValue,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.archive.SaveRun(ctx, record); err != nil {
		logger.Error("failed to archive run", "run_id", runID, "error", err)
	}
}

// buildPlan translates scenario parameter sets into a sweep plan plus
// the fixed-value assignment.
func buildPlan(scenario *config.Scenario) (*sweep.ParameterSweep, map[string]cty.Value, error) {
	sets := make([]*sweep.ParameterSet, 0, len(scenario.ParameterSets))
	for _, spec := range scenario.ParameterSets {
		values := make(map[string][]cty.Value, len(spec.Parameters))
		for name, raw := range spec.Parameters {
			cvs, err := params.FromGoSlice(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("set %s, parameter %s: %w", spec.Name, name, err)
			}
			values[name] = cvs
		}
		set, err := sweep.NewSet(spec.Name, spec.RebuildMesh, values)
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, set)
	}

	plan, err := sweep.NewSweep(sets...)
	if err != nil {
		return nil, nil, err
	}

	fixed := make(map[string]cty.Value, len(scenario.FixedParameters))
	for name, raw := range scenario.FixedParameters {
		cv, err := params.FromGo(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("fixed parameter %s: %w", name, err)
		}
		fixed[name] = cv
	}
	return plan, fixed, nil
}

func buildModel(spec config.ModelSpec) (solver.Model, error) {
	tank, err := field.NewRect(spec.Tank.MinX, spec.Tank.MinY, spec.Tank.MaxX, spec.Tank.MaxY)
	if err != nil {
		return nil, err
	}
	opts := field.Options{
		Tank:       tank,
		WaterSigma: spec.WaterSigma,
		NX:         spec.Grid.NX,
		NY:         spec.Grid.NY,
	}
	switch spec.Type {
	case "prey":
		return field.NewPreyModel(opts)
	default:
		return nil, fmt.Errorf("unknown model type: %s", spec.Type)
	}
}

func toStepResult(o solver.StepOutcome) StepResult {
	sr := StepResult{
		Index:     o.Index,
		Values:    params.ToGoMap(o.Values),
		Dirty:     o.Dirty,
		Rebuilt:   o.Rebuilt,
		Forced:    o.Forced,
		Phase:     string(o.Phase),
		ElapsedMS: float64(o.Elapsed) / float64(time.Millisecond),
	}
	if o.Err != nil {
		sr.Error = o.Err.Error()
	}
	if sol, ok := o.Solution.(*field.Solution); ok && sol != nil {
		sr.MinValue, sr.MaxValue = sol.Range()
	}
	return sr
}

func countCancelled(outcomes []solver.StepOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Phase == solver.PhaseCancelled {
			n++
		}
	}
	return n
}
