package sweepd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) (*HTTPServer, *RunStore, *RunExecutor) {
	t.Helper()
	store := NewRunStore()
	exec := NewRunExecutor(store)
	return NewHTTPServer(store, exec), store, exec
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
		}
	}
	return rr, decoded
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr, body := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCreateRunHTTP(t *testing.T) {
	srv, store, _ := newTestServer(t)

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "run-1",
		"input":  map[string]any{"scenario_yaml": tinyScenarioYAML},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d: %v", rr.Code, body)
	}
	run := body["run"].(map[string]any)
	if run["id"] != "run-1" || run["status"] != "pending" {
		t.Fatalf("unexpected run %v", run)
	}
	if _, ok := store.Get("run-1"); !ok {
		t.Fatalf("run not stored")
	}

	// Duplicate id conflicts.
	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "run-1",
		"input":  map[string]any{"scenario_yaml": tinyScenarioYAML},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCreateRunHTTPBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr, _ := doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing input, got %d", rr.Code)
	}

	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{
		"input": map[string]any{"scenario_yaml": "name: x"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid scenario, got %d", rr.Code)
	}
}

func TestRunLifecycleHTTP(t *testing.T) {
	srv, _, exec := newTestServer(t)

	rr, _ := doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "run-1",
		"input":  map[string]any{"scenario_yaml": tinyScenarioYAML},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status %d", rr.Code)
	}

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs/run-1:start", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start status %d: %v", rr.Code, body)
	}
	exec.Wait("run-1")

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/runs/run-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status %d", rr.Code)
	}
	run := body["run"].(map[string]any)
	if run["status"] != "completed" {
		t.Fatalf("expected completed, got %v", run["status"])
	}
	if body["summary"] == nil {
		t.Fatalf("expected summary on finished run")
	}

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/runs/run-1/results", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("results status %d", rr.Code)
	}
	steps := body["steps"].([]any)
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/plot", nil)
	plotRR := httptest.NewRecorder()
	srv.Handler().ServeHTTP(plotRR, req)
	if plotRR.Code != http.StatusOK {
		t.Fatalf("plot status %d", plotRR.Code)
	}
	if ct := plotRR.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("plot content type %q", ct)
	}
	if !bytes.HasPrefix(plotRR.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("plot is not a PNG")
	}

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/runs/run-1/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status %d", rr.Code)
	}
	if body["input"] == nil || body["steps"] == nil {
		t.Fatalf("export incomplete: %v", body)
	}
}

func TestCreateAndStartInOneRequest(t *testing.T) {
	srv, store, exec := newTestServer(t)

	rr, _ := doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "run-1",
		"input":  map[string]any{"scenario_yaml": tinyScenarioYAML},
		"start":  true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d", rr.Code)
	}
	exec.Wait("run-1")

	rec, _ := store.Get("run-1")
	if rec.Run.Status != StatusCompleted {
		t.Fatalf("expected completed, got %v", rec.Run.Status)
	}
}

func TestStopRunHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)

	doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "run-1",
		"input":  map[string]any{"scenario_yaml": tinyScenarioYAML},
	})

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs/run-1:stop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stop status %d", rr.Code)
	}
	run := body["run"].(map[string]any)
	if run["status"] != "cancelled" {
		t.Fatalf("expected cancelled, got %v", run["status"])
	}

	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs/missing:stop", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListRunsHTTP(t *testing.T) {
	srv, store, _ := newTestServer(t)
	for _, id := range []string{"run-1", "run-2"} {
		if _, err := store.Create(id, &RunInput{ScenarioYAML: tinyScenarioYAML}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rr, body := doJSON(t, srv.Handler(), http.MethodGet, "/v1/runs?limit=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if runs := body["runs"].([]any); len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["limit"].(float64) != 1 {
		t.Fatalf("unexpected pagination %v", pagination)
	}
}

func TestUnknownRunHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr, _ := doJSON(t, srv.Handler(), http.MethodGet, "/v1/runs/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr, _ = doJSON(t, srv.Handler(), http.MethodGet, "/v1/runs/missing/results", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/runs/missing:start", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestArchiveEndpointsUnconfigured(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr, _ := doJSON(t, srv.Handler(), http.MethodGet, "/v1/archive/runs", nil)
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rr.Code)
	}
	rr, _ = doJSON(t, srv.Handler(), http.MethodGet, "/v1/archive/runs/run-1", nil)
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rr.Code)
	}
}
