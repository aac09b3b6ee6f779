package model

import "testing"

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from JobStatus
		to   JobStatus
	}{
		{"", StatusPending},
		{StatusPending, StatusDownloading},
		{StatusPending, StatusCompleted},
		{StatusDownloading, StatusCompleted},
		{StatusDownloading, StatusRetrying},
		{StatusDownloading, StatusFailed},
		{StatusDownloading, StatusPending},
		{StatusRetrying, StatusDownloading},
		{StatusRetrying, StatusFailed},
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusPending},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from JobStatus
		to   JobStatus
	}{
		{StatusPending, StatusRetrying},
		{StatusCompleted, StatusDownloading},
		{StatusCompleted, StatusRetrying},
		{StatusCompleted, StatusFailed},
		{StatusFailed, StatusDownloading},
		{StatusFailed, StatusCompleted},
		{"not_a_state", StatusPending},
		{"", StatusDownloading},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionJobStatus_BlocksIllegalTransition(t *testing.T) {
	job := Job{
		ID:          "job-1",
		DisplayName: "Solaris (1972)",
		Status:      StatusCompleted,
	}

	if err := TransitionJobStatus(&job, StatusDownloading, ""); err == nil {
		t.Fatalf("expected illegal transition error")
	}
	if job.Status != StatusCompleted {
		t.Fatalf("job status mutated on rejected transition: %s", job.Status)
	}
}

func TestTransitionJobStatus_RecordsReason(t *testing.T) {
	job := Job{ID: "job-2", Status: StatusDownloading}

	if err := TransitionJobStatus(&job, StatusPending, "shutdown"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Reason != "shutdown" {
		t.Fatalf("expected reason to be recorded, got %q", job.Reason)
	}
}

func TestParseJobKind(t *testing.T) {
	for raw, want := range map[string]JobKind{
		"film":    KindFilm,
		"EPISODE": KindEpisode,
		" short ": KindShort,
	} {
		got, err := ParseJobKind(raw)
		if err != nil {
			t.Fatalf("ParseJobKind(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseJobKind(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseJobKind("album"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestRecomputeCounts(t *testing.T) {
	q := Queue{Jobs: []Job{
		{ID: "a", Status: StatusPending},
		{ID: "b", Status: StatusPending},
		{ID: "c", Status: StatusDownloading},
		{ID: "d", Status: StatusRetrying},
		{ID: "e", Status: StatusCompleted},
		{ID: "f", Status: StatusFailed},
	}}

	q.RecomputeCounts()

	if q.Total != 6 || q.Pending != 2 || q.Downloading != 1 || q.Retrying != 1 || q.Completed != 1 || q.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", q)
	}
}
