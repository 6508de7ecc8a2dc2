package job_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"alphogen/src/core/job"
	"alphogen/src/storage/memoryctrl"
)

func seedInFlight(t *testing.T, repo *memoryctrl.JobRepository, providerJobID string) *job.Job {
	t.Helper()

	running := job.StatusRunning
	j := &job.Job{
		ID:       "job-" + providerJobID,
		UserID:   "user-a",
		Prompt:   "sunset",
		Status:   job.StatusQueued,
		Progress: 0,
	}
	if err := repo.Insert(context.Background(), j); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	if err := repo.Update(context.Background(), j.ID, job.Update{Status: &running, ProviderJobID: &providerJobID}); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	j.Status = running
	j.ProviderJobID = &providerJobID
	return j
}

func intPtr(v int) *int { return &v }

func TestApplyCompleted(t *testing.T) {
	resultServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake video bytes"))
	}))
	defer resultServer.Close()

	repo := memoryctrl.NewJobRepository()
	assets := memoryctrl.NewAssetStore()
	rec := job.NewReconciler(repo, assets)
	seeded := seedInFlight(t, repo, "rp-1")

	cb := job.ProviderCallback{
		ID:     "rp-1",
		Status: job.ProviderStatusCompleted,
		Output: &job.CallbackOutput{ResultURL: resultServer.URL + "/out/video.mp4"},
	}

	j, outcome, err := rec.Apply(context.Background(), cb)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome != job.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}
	if j.Status != job.StatusDone || j.Progress != 100 || j.ResultKey == nil {
		t.Fatalf("job after completion = %+v", j)
	}

	// The relayed blob is readable from the asset store
	data, contentType, err := assets.Get(context.Background(), *j.ResultKey)
	if err != nil {
		t.Fatalf("result blob not stored: %v", err)
	}
	if string(data) != "fake video bytes" {
		t.Errorf("stored blob = %q", data)
	}
	if contentType != "video/mp4" {
		t.Errorf("stored content type = %q, want video/mp4", contentType)
	}

	stored, _ := repo.GetByID(context.Background(), seeded.ID)
	if stored.Status != job.StatusDone {
		t.Errorf("stored status = %s, want done", stored.Status)
	}
}

func TestApplyCompletedIdempotent(t *testing.T) {
	resultServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("v"))
	}))
	defer resultServer.Close()

	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seeded := seedInFlight(t, repo, "rp-2")

	cb := job.ProviderCallback{
		ID:     "rp-2",
		Status: job.ProviderStatusCompleted,
		Output: &job.CallbackOutput{ResultURL: resultServer.URL + "/video.mp4"},
	}

	if _, _, err := rec.Apply(context.Background(), cb); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	first, _ := repo.GetByID(context.Background(), seeded.ID)

	j, outcome, err := rec.Apply(context.Background(), cb)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if outcome != job.OutcomeStale {
		t.Errorf("second apply outcome = %s, want stale", outcome)
	}

	second, _ := repo.GetByID(context.Background(), seeded.ID)
	if second.Status != first.Status || second.Progress != first.Progress {
		t.Errorf("second apply changed row: %+v vs %+v", second, first)
	}
	if *second.ResultKey != *first.ResultKey {
		t.Errorf("second apply changed result key: %q vs %q", *second.ResultKey, *first.ResultKey)
	}
	if j.Status != job.StatusDone {
		t.Errorf("returned job status = %s, want done", j.Status)
	}
}

func TestApplyStaleInProgressAfterDone(t *testing.T) {
	resultServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("v"))
	}))
	defer resultServer.Close()

	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seeded := seedInFlight(t, repo, "rp-3")

	completed := job.ProviderCallback{
		ID:     "rp-3",
		Status: job.ProviderStatusCompleted,
		Output: &job.CallbackOutput{ResultURL: resultServer.URL + "/video.mp4"},
	}
	if _, _, err := rec.Apply(context.Background(), completed); err != nil {
		t.Fatalf("completed Apply: %v", err)
	}

	// The delayed in-flight callback must not revive the row
	late := job.ProviderCallback{
		ID:     "rp-3",
		Status: job.ProviderStatusInProgress,
		Output: &job.CallbackOutput{Progress: intPtr(70)},
	}
	_, outcome, err := rec.Apply(context.Background(), late)
	if err != nil {
		t.Fatalf("late Apply: %v", err)
	}
	if outcome != job.OutcomeStale {
		t.Errorf("late apply outcome = %s, want stale", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), seeded.ID)
	if stored.Status != job.StatusDone || stored.Progress != 100 {
		t.Errorf("terminal row mutated by late callback: %+v", stored)
	}
}

func TestApplyFailed(t *testing.T) {
	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seeded := seedInFlight(t, repo, "rp-4")

	cb := job.ProviderCallback{
		ID:     "rp-4",
		Status: job.ProviderStatusFailed,
		Output: &job.CallbackOutput{Error: "CUDA out of memory"},
	}

	j, outcome, err := rec.Apply(context.Background(), cb)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome != job.OutcomeApplied {
		t.Errorf("outcome = %s, want applied", outcome)
	}
	if j.Status != job.StatusError {
		t.Errorf("status = %s, want error", j.Status)
	}
	if j.ErrorMessage == nil || *j.ErrorMessage != "CUDA out of memory" {
		t.Errorf("error message = %v", j.ErrorMessage)
	}

	stored, _ := repo.GetByID(context.Background(), seeded.ID)
	if stored.Status != job.StatusError {
		t.Errorf("stored status = %s, want error", stored.Status)
	}
}

func TestApplyProgressClamping(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		want     int
	}{
		{name: "above range", progress: 150, want: 100},
		{name: "below range", progress: -5, want: 0},
		{name: "in range", progress: 37, want: 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memoryctrl.NewJobRepository()
			rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
			seedInFlight(t, repo, "rp-5")

			cb := job.ProviderCallback{
				ID:     "rp-5",
				Status: job.ProviderStatusInProgress,
				Output: &job.CallbackOutput{Progress: intPtr(tt.progress)},
			}
			j, _, err := rec.Apply(context.Background(), cb)
			if err != nil {
				t.Fatalf("Apply returned error: %v", err)
			}
			if j.Progress != tt.want {
				t.Errorf("progress = %d, want %d", j.Progress, tt.want)
			}
		})
	}
}

func TestApplyInProgressDefaultsProgress(t *testing.T) {
	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seedInFlight(t, repo, "rp-6")

	j, _, err := rec.Apply(context.Background(), job.ProviderCallback{ID: "rp-6", Status: job.ProviderStatusInProgress})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if j.Status != job.StatusRunning || j.Progress != 50 {
		t.Errorf("job = status %s progress %d, want running/50", j.Status, j.Progress)
	}
}

func TestApplyInQueue(t *testing.T) {
	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seedInFlight(t, repo, "rp-7")

	j, _, err := rec.Apply(context.Background(), job.ProviderCallback{ID: "rp-7", Status: job.ProviderStatusInQueue})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if j.Status != job.StatusRunning || j.Progress != 0 {
		t.Errorf("job = status %s progress %d, want running/0", j.Status, j.Progress)
	}
}

func TestApplyUnrecognizedStatus(t *testing.T) {
	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seeded := seedInFlight(t, repo, "rp-8")

	j, outcome, err := rec.Apply(context.Background(), job.ProviderCallback{ID: "rp-8", Status: "TIMED_OUT"})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome != job.OutcomeIgnored {
		t.Errorf("outcome = %s, want ignored", outcome)
	}
	if j.Status != seeded.Status {
		t.Errorf("row mutated by unrecognized status")
	}
}

func TestApplyCompletedWithoutResultIgnored(t *testing.T) {
	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seedInFlight(t, repo, "rp-9")

	_, outcome, err := rec.Apply(context.Background(), job.ProviderCallback{ID: "rp-9", Status: job.ProviderStatusCompleted})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome != job.OutcomeIgnored {
		t.Errorf("outcome = %s, want ignored", outcome)
	}
}

func TestApplyUnknownProviderJobID(t *testing.T) {
	rec := job.NewReconciler(memoryctrl.NewJobRepository(), memoryctrl.NewAssetStore())

	_, _, err := rec.Apply(context.Background(), job.ProviderCallback{ID: "no-such", Status: job.ProviderStatusInQueue})
	if !errors.Is(err, job.ErrNotFound) {
		t.Errorf("Apply error = %v, want ErrNotFound", err)
	}
}

func TestApplyResultFetchFailureDemotesToError(t *testing.T) {
	resultServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer resultServer.Close()

	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seeded := seedInFlight(t, repo, "rp-10")

	cb := job.ProviderCallback{
		ID:     "rp-10",
		Status: job.ProviderStatusCompleted,
		Output: &job.CallbackOutput{ResultURL: resultServer.URL + "/video.mp4"},
	}
	j, outcome, err := rec.Apply(context.Background(), cb)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if outcome != job.OutcomeApplied {
		t.Errorf("outcome = %s, want applied", outcome)
	}
	if j.Status != job.StatusError || j.ErrorMessage == nil {
		t.Errorf("fetch failure left job as %+v, want error with message", j)
	}

	stored, _ := repo.GetByID(context.Background(), seeded.ID)
	if stored.Status != job.StatusError {
		t.Errorf("stored status = %s, want error (not stuck in flight)", stored.Status)
	}
}

func TestApplySchemelessResultIsUsedAsKey(t *testing.T) {
	repo := memoryctrl.NewJobRepository()
	rec := job.NewReconciler(repo, memoryctrl.NewAssetStore())
	seedInFlight(t, repo, "rp-11")

	cb := job.ProviderCallback{
		ID:     "rp-11",
		Status: job.ProviderStatusCompleted,
		Output: &job.CallbackOutput{ResultURL: "results/prebuilt.mp4"},
	}
	j, _, err := rec.Apply(context.Background(), cb)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if j.ResultKey == nil || *j.ResultKey != "results/prebuilt.mp4" {
		t.Errorf("result key = %v, want results/prebuilt.mp4", j.ResultKey)
	}
}
