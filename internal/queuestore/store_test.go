package queuestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Themolx/Privateer/internal/model"
)

func testJob(id, dest string) model.Job {
	return model.Job{
		ID:            id,
		Kind:          model.KindFilm,
		DisplayName:   "Test Film (2020)",
		SourceLocator: "locator://" + id,
		Destination:   dest,
		Status:        model.StatusPending,
	}
}

func TestLoad_MissingFileYieldsEmptyQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if got := len(store.Queue().Jobs); got != 0 {
		t.Fatalf("expected empty queue, got %d jobs", got)
	}
}

func TestLoad_CorruptFileIsQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store, err := Load(path)
	if !errors.Is(err, ErrStoreCorrupt) {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
	if store == nil || len(store.Queue().Jobs) != 0 {
		t.Fatalf("expected usable empty store after corruption")
	}
	if _, statErr := os.Stat(path + ".corrupt"); statErr != nil {
		t.Fatalf("expected quarantined file: %v", statErr)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected original path to be moved, stat err: %v", statErr)
	}
}

func TestAdd_IsIdempotentByDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	added, err := store.Add(testJob("job-1", "/media/Films/Test Film (2020)/Test Film (2020).mp4"))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !added {
		t.Fatalf("expected first add to insert")
	}

	added, err = store.Add(testJob("job-2", "/media/Films/Test Film (2020)/Test Film (2020).mp4"))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if added {
		t.Fatalf("expected duplicate destination to be rejected")
	}
	if got := len(store.Queue().Jobs); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}

func TestUpdate_PersistsSynchronously(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := store.Add(testJob("job-1", "/media/a.mp4")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.Update("job-1", func(j *model.Job) {
		j.Status = model.StatusCompleted
		j.SizeBytes = 42
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	job := reloaded.Queue().JobByID("job-1")
	if job == nil {
		t.Fatalf("job missing after reload")
	}
	if job.Status != model.StatusCompleted || job.SizeBytes != 42 {
		t.Fatalf("unexpected job after reload: %+v", job)
	}
	if reloaded.Queue().Completed != 1 {
		t.Fatalf("expected completed counter 1, got %d", reloaded.Queue().Completed)
	}
}

func TestUpdate_UnknownJobFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	err = store.Update("missing", func(j *model.Job) { j.Reason = "x" })
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestTransition_EnforcesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	job := testJob("job-1", "/media/a.mp4")
	job.Status = model.StatusCompleted
	if _, err := store.Add(job); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.Transition("job-1", model.StatusDownloading, "nope"); err == nil {
		t.Fatalf("expected completed -> downloading to be rejected")
	}
	if err := store.Transition("job-1", model.StatusPending, "reopened"); err != nil {
		t.Fatalf("completed -> pending: %v", err)
	}
	got := store.Queue().JobByID("job-1")
	if got.Status != model.StatusPending || got.Reason != "reopened" {
		t.Fatalf("unexpected job after transition: %+v", got)
	}
}

func TestReopen_ResetsAttemptsAndKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	job := testJob("job-1", "/media/a.mp4")
	job.Status = model.StatusFailed
	job.Attempts = 7
	job.AttemptHistory = []model.FailureRecord{{Message: "boom", Timestamp: "2026-08-01T10:00:00Z"}}
	if _, err := store.Add(job); err != nil {
		t.Fatalf("add: %v", err)
	}

	reopened, err := store.Reopen("job-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != model.StatusPending || reopened.Reason != "reopened" {
		t.Fatalf("unexpected job after reopen: %+v", reopened)
	}
	if reopened.Attempts != 0 {
		t.Fatalf("expected attempts reset, got %d", reopened.Attempts)
	}
	if len(reopened.AttemptHistory) != 1 {
		t.Fatalf("expected history to survive reopen, got %d records", len(reopened.AttemptHistory))
	}

	// Non-failed jobs are not reopenable.
	if _, err := store.Reopen("job-1"); err == nil {
		t.Fatalf("expected reopen of a pending job to fail")
	}
}

func TestRemove_DropsSingleRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := store.Add(testJob("job-1", "/media/a.mp4")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.Add(testJob("job-2", "/media/b.mp4")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.Remove("job-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Queue().JobByID("job-1") != nil {
		t.Fatalf("job-1 should be gone")
	}
	if store.Queue().JobByID("job-2") == nil {
		t.Fatalf("job-2 should survive")
	}
	if err := store.Remove("job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestPurgeKindAndClearCompleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	film := testJob("job-film", "/media/film.mp4")
	episode := testJob("job-episode", "/media/episode.mp4")
	episode.Kind = model.KindEpisode
	short := testJob("job-short", "/media/short.mp4")
	short.Kind = model.KindShort
	short.Status = model.StatusCompleted
	for _, j := range []model.Job{film, episode, short} {
		if _, err := store.Add(j); err != nil {
			t.Fatalf("add %s: %v", j.ID, err)
		}
	}

	removed, err := store.PurgeKind(model.KindEpisode)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged, got %d", removed)
	}
	if store.Queue().JobByID("job-episode") != nil {
		t.Fatalf("episode should be gone")
	}

	removed, err = store.ClearCompleted()
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 cleared, got %d", removed)
	}
	if got := len(store.Queue().Jobs); got != 1 {
		t.Fatalf("expected 1 job left, got %d", got)
	}

	// The strings in the persisted document stay snake_case.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted queue: %v", err)
	}
	if !strings.Contains(string(data), "\"schema_version\"") {
		t.Fatalf("persisted document missing schema_version: %s", data)
	}
}
