package results

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func sampleRun(id string, created time.Time) RunRecord {
	return RunRecord{
		ID:         id,
		Name:       "prey-scan",
		Status:     "completed",
		CreatedAt:  created,
		FinishedAt: created.Add(3 * time.Second),
		TotalSteps: 2,
		DirtySteps: 1,
		Rebuilds:   1,
		Steps: []StepRecord{
			{
				Index:     0,
				Dirty:     true,
				Rebuilt:   true,
				ElapsedMS: 12.5,
				Values:    map[string]any{"prey_x": 3.0, "eod_amp": 1.0},
				MinValue:  -0.1,
				MaxValue:  0.9,
			},
			{
				Index:     1,
				Phase:     "solve",
				Error:     "linear solve failed",
				ElapsedMS: 4.0,
				Values:    map[string]any{"prey_x": 3.0, "eod_amp": 2.0},
			},
		},
	}
}

func TestArchiveSaveAndGet(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := a.SaveRun(ctx, sampleRun("run-1", created)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := a.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Name != "prey-scan" || got.Status != "completed" {
		t.Errorf("unexpected run %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("got created_at %v, want %v", got.CreatedAt, created)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(got.Steps))
	}
	first := got.Steps[0]
	if !first.Dirty || !first.Rebuilt || first.ElapsedMS != 12.5 {
		t.Errorf("unexpected first step %+v", first)
	}
	if first.Values["prey_x"] != 3.0 {
		t.Errorf("unexpected step values %v", first.Values)
	}
	second := got.Steps[1]
	if second.Phase != "solve" || !strings.Contains(second.Error, "linear solve") {
		t.Errorf("unexpected second step %+v", second)
	}
}

func TestArchiveGetMissing(t *testing.T) {
	a := testArchive(t)
	if _, err := a.GetRun(context.Background(), "nope"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestArchiveListRuns(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := a.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	runs, err := a.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Errorf("runs not sorted newest first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if len(runs[0].Steps) != 0 {
		t.Errorf("ListRuns should not load steps, got %d", len(runs[0].Steps))
	}
}

func TestArchiveDuplicateRunID(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now())

	if err := a.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := a.SaveRun(ctx, run); err == nil {
		t.Fatal("expected an error saving a duplicate run id")
	}
}
