package sweepd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsim/sweep-core/internal/report"
	"github.com/fieldsim/sweep-core/internal/results"
	"github.com/fieldsim/sweep-core/pkg/logger"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	Executor *RunExecutor
	archive  *results.Archive
}

func NewHTTPServer(store *RunStore, executor *RunExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)
	s.mux.HandleFunc("/v1/archive/runs", s.handleArchiveList)
	s.mux.HandleFunc("/v1/archive/runs/", s.handleArchiveGet)

	return s
}

// SetArchive enables the archive read endpoints.
func (s *HTTPServer) SetArchive(a *results.Archive) { s.archive = a }

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRuns handles /v1/runs
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRunByID handles /v1/runs/{id} and related endpoints
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	if strings.HasSuffix(path, ":start") {
		runID := strings.TrimSuffix(path, ":start")
		if r.Method == http.MethodPost {
			s.handleStartRun(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, ":stop") {
		runID := strings.TrimSuffix(path, ":stop")
		if r.Method == http.MethodPost {
			s.handleStopRun(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/results") {
		runID := strings.TrimSuffix(path, "/results")
		if r.Method == http.MethodGet {
			s.handleRunResults(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/plot") {
		runID := strings.TrimSuffix(path, "/plot")
		if r.Method == http.MethodGet {
			s.handleRunPlot(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/export") {
		runID := strings.TrimSuffix(path, "/export")
		if r.Method == http.MethodGet {
			s.handleExportRun(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetRun(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID string    `json:"run_id,omitempty"`
		Input *RunInput `json:"input"`
		Start bool      `json:"start,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Input == nil {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	rec, err := s.store.Create(req.RunID, req.Input)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "already exists"):
			s.writeError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "invalid scenario"),
			strings.Contains(err.Error(), "failed to parse"):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if req.Start {
		if rec, err = s.Executor.Start(rec.Run.ID); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	logger.Info("run created (HTTP)", "run_id", rec.Run.ID, "started", req.Start)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": rec.Run,
	})
}

// handleListRuns handles GET /v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var status RunStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status = RunStatus(strings.ToLower(statusStr))
	}

	recs := s.store.List(limit, offset, status)
	runs := make([]*Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	resp := map[string]any{"run": rec.Run}
	if rec.Summary != nil {
		resp["summary"] = rec.Summary
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleStartRun handles POST /v1/runs/{id}:start
func (s *HTTPServer) handleStartRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Start(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrRunTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run started (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": updated.Run,
	})
}

// handleStopRun handles POST /v1/runs/{id}:stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case strings.Contains(err.Error(), "not found"):
			s.writeError(w, http.StatusNotFound, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": updated.Run,
	})
}

// handleRunResults handles GET /v1/runs/{id}/results
func (s *HTTPServer) handleRunResults(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	steps, _ := s.store.StepsSnapshot(runID)

	resp := map[string]any{
		"run_id": runID,
		"status": rec.Run.Status,
		"steps":  steps,
	}
	if rec.Summary != nil {
		resp["summary"] = rec.Summary
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRunPlot handles GET /v1/runs/{id}/plot
func (s *HTTPServer) handleRunPlot(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	steps, _ := s.store.StepsSnapshot(runID)
	if len(steps) == 0 {
		s.writeError(w, http.StatusPreconditionFailed, "no results available")
		return
	}

	points := make([]report.SeriesPoint, 0, len(steps))
	for _, st := range steps {
		points = append(points, report.SeriesPoint{
			Index:  st.Index,
			Value:  st.MaxValue,
			Dirty:  st.Dirty,
			Failed: st.Error != "",
		})
	}

	w.Header().Set("Content-Type", "image/png")
	if err := report.RenderSweepPNG(w, rec.Run.Name, "peak potential", points); err != nil {
		logger.Error("failed to render plot", "run_id", runID, "error", err)
	}
}

// handleExportRun handles GET /v1/runs/{id}/export
func (s *HTTPServer) handleExportRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	steps, _ := s.store.StepsSnapshot(runID)

	export := map[string]any{
		"run":   rec.Run,
		"steps": steps,
	}
	if rec.Input != nil {
		export["input"] = map[string]any{
			"scenario_yaml": rec.Input.ScenarioYAML,
			"callback_url":  rec.Input.CallbackURL,
		}
	}
	if rec.Summary != nil {
		export["summary"] = rec.Summary
	}

	s.writeJSON(w, http.StatusOK, export)
}

// handleArchiveList handles GET /v1/archive/runs
func (s *HTTPServer) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.archive == nil {
		s.writeError(w, http.StatusPreconditionFailed, "archive not configured")
		return
	}
	runs, err := s.archive.ListRuns(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": archiveRunsJSON(runs)})
}

// handleArchiveGet handles GET /v1/archive/runs/{id}
func (s *HTTPServer) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.archive == nil {
		s.writeError(w, http.StatusPreconditionFailed, "archive not configured")
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/v1/archive/runs/")
	if runID == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}
	run, err := s.archive.GetRun(r.Context(), runID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeError(w, http.StatusNotFound, err.Error())
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": archiveRunJSON(run, true)})
}

func archiveRunsJSON(runs []results.RunRecord) []map[string]any {
	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, archiveRunJSON(run, false))
	}
	return out
}

func archiveRunJSON(run results.RunRecord, withSteps bool) map[string]any {
	m := map[string]any{
		"id":          run.ID,
		"name":        run.Name,
		"status":      run.Status,
		"created_at":  run.CreatedAt.Format(time.RFC3339Nano),
		"finished_at": run.FinishedAt.Format(time.RFC3339Nano),
		"error":       run.Error,
		"total_steps": run.TotalSteps,
		"dirty_steps": run.DirtySteps,
		"rebuilds":    run.Rebuilds,
	}
	if withSteps {
		steps := make([]map[string]any, 0, len(run.Steps))
		for _, st := range run.Steps {
			steps = append(steps, map[string]any{
				"index":      st.Index,
				"dirty":      st.Dirty,
				"rebuilt":    st.Rebuilt,
				"forced":     st.Forced,
				"phase":      st.Phase,
				"error":      st.Error,
				"elapsed_ms": st.ElapsedMS,
				"values":     st.Values,
				"min_value":  st.MinValue,
				"max_value":  st.MaxValue,
			})
		}
		m["steps"] = steps
	}
	return m
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
