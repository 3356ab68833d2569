package sweepd

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldsim/sweep-core/pkg/config"
	"github.com/fieldsim/sweep-core/pkg/utils"
)

// RunRecord couples a run's state with its input and results.
type RunRecord struct {
	Run      *Run
	Input    *RunInput
	Scenario *config.Scenario
	Summary  *RunSummary
	Steps    []StepResult
}

// RunStore is the in-memory registry of runs.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Create registers a new pending run. The scenario is parsed and
// validated here so a bad request fails before anything starts.
func (s *RunStore) Create(runID string, input *RunInput) (*RunRecord, error) {
	if input == nil {
		return nil, fmt.Errorf("input is required")
	}
	scenario, err := config.ParseScenarioYAMLString(input.ScenarioYAML)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("run already exists: %s", runID)
	}

	rec := &RunRecord{
		Run: &Run{
			ID:              runID,
			Name:            scenario.Name,
			Status:          StatusPending,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Input:    input,
		Scenario: scenario,
	}
	s.runs[runID] = rec
	return rec, nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	return rec, ok
}

// List returns runs newest first, optionally filtered by status.
func (s *RunStore) List(limit, offset int, status RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	all := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Run.CreatedAtUnixMs > all[j].Run.CreatedAtUnixMs
	})

	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// SetStatus transitions a run, stamping start and end times.
func (s *RunStore) SetStatus(runID string, status RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch status {
	case StatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		if rec.Run.EndedAtUnixMs == 0 {
			rec.Run.EndedAtUnixMs = nowUnixMs()
		}
	}

	return rec, nil
}

// AppendStep records a finished step while the run is in flight.
func (s *RunStore) AppendStep(runID string, step StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Steps = append(rec.Steps, step)
	return nil
}

// SetResults replaces the run's step results and summary.
func (s *RunStore) SetResults(runID string, steps []StepResult, summary *RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Steps = steps
	rec.Summary = summary
	return nil
}

// StepsSnapshot copies the steps recorded so far.
func (s *RunStore) StepsSnapshot(runID string) ([]StepResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return append([]StepResult(nil), rec.Steps...), true
}
