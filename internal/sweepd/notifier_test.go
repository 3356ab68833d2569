package sweepd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testRecord(status RunStatus) *RunRecord {
	return &RunRecord{
		Run: &Run{
			ID:              "run-1",
			Name:            "prey-scan",
			Status:          status,
			CreatedAtUnixMs: 1000,
			StartedAtUnixMs: 1100,
			EndedAtUnixMs:   2000,
		},
		Summary: &RunSummary{TotalSteps: 4, DirtySteps: 2, Rebuilds: 2},
	}
}

func waitForCalls(t *testing.T, mu *sync.Mutex, calls *int, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := *calls
		mu.Unlock()
		if n >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d calls", want)
}

func TestNotifierDeliversPayload(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	var got NotificationPayload
	var secret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		secret = r.Header.Get("X-Sweep-Callback-Secret")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier()
	n.Notify(srv.URL+"/hooks/{run_id}", "s3cret", testRecord(StatusCompleted))
	waitForCalls(t, &mu, &calls, 1)

	mu.Lock()
	defer mu.Unlock()
	if got.RunID != "run-1" || got.Status != StatusCompleted {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got.Summary == nil || got.Summary.Rebuilds != 2 {
		t.Fatalf("expected summary in payload")
	}
	if secret != "s3cret" {
		t.Fatalf("expected secret header, got %q", secret)
	}
}

func TestNotifierSubstitutesRunID(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		path = r.URL.Path
	}))
	defer srv.Close()

	n := NewNotifier()
	n.Notify(srv.URL+"/done/{run_id}", "", testRecord(StatusFailed))
	waitForCalls(t, &mu, &calls, 1)

	mu.Lock()
	defer mu.Unlock()
	if path != "/done/run-1" {
		t.Fatalf("expected run id substitution, got %q", path)
	}
}

func TestNotifierRetriesOn5xx(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier()
	n.baseDelay = 10 * time.Millisecond
	n.Notify(srv.URL, "", testRecord(StatusCompleted))
	waitForCalls(t, &mu, &calls, 2)
}

func TestNotifierNoCallbackURL(t *testing.T) {
	n := NewNotifier()
	// Must be a no-op; nothing to assert beyond not panicking.
	n.Notify("", "", testRecord(StatusCompleted))
	n.Notify("http://localhost:1", "", nil)
}
