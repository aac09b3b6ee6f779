package acquire

import (
	"testing"

	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/fetch"
	"github.com/Themolx/Privateer/internal/model"
)

func TestQueueSizeEstimatorPrefersMeasuredOverDeclared(t *testing.T) {
	kinds := config.KindPolicies{
		Film:    config.KindPolicy{TargetIdeal: 2000},
		Episode: config.KindPolicy{TargetIdeal: 700},
		Short:   config.KindPolicy{TargetIdeal: 300},
	}
	q := &model.Queue{Jobs: []model.Job{
		{ID: "a", Kind: model.KindFilm, Status: model.StatusCompleted, SizeBytes: 1000, DeclaredSizeBytes: 5000},
		{ID: "b", Kind: model.KindFilm, Status: model.StatusPending, DeclaredSizeBytes: 2000},
		{ID: "c", Kind: model.KindEpisode, Status: model.StatusCompleted},
		{ID: "d", Kind: model.KindShort, Status: model.StatusPending},
	}}

	est := newQueueSizeEstimator(q, kinds)
	if !est.hasEstimate() {
		t.Fatal("expected an estimate")
	}
	const wantTotal int64 = 1000 + 2000 + 700 + 300
	if est.totalBytes != wantTotal {
		t.Fatalf("totalBytes = %d, want %d", est.totalBytes, wantTotal)
	}
	const wantDone int64 = 1000 + 700
	if got := est.completedBytes(q.Jobs); got != wantDone {
		t.Fatalf("completedBytes = %d, want %d", got, wantDone)
	}
}

func TestQueueSizeEstimatorEmptyQueue(t *testing.T) {
	est := newQueueSizeEstimator(&model.Queue{}, config.KindPolicies{})
	if est.hasEstimate() {
		t.Fatal("empty queue should have no estimate")
	}
	if got := est.completedBytes(nil); got != 0 {
		t.Fatalf("completedBytes = %d, want 0", got)
	}
}

func TestEstimateTotalETA(t *testing.T) {
	got := estimateTotalETA(3_600_000_000, 0, 8.0)
	if got != "1h" {
		t.Fatalf("expected 1h, got %q", got)
	}

	got = estimateTotalETA(3_900_000_000, 0, 8.0)
	if got != "1h 5m" {
		t.Fatalf("expected 1h 5m, got %q", got)
	}

	got = estimateTotalETA(10_000_000, 0, 8.0)
	if got != "<1m" {
		t.Fatalf("expected <1m, got %q", got)
	}

	got = estimateTotalETA(1_000_000_000, 1_000_000_000, 8.0)
	if got != "0m" {
		t.Fatalf("expected 0m, got %q", got)
	}
}

func TestEstimateTotalETAInvalidInputs(t *testing.T) {
	if got := estimateTotalETA(0, 0, 8.0); got != "" {
		t.Fatalf("expected empty eta for missing size, got %q", got)
	}
	if got := estimateTotalETA(1_000_000_000, 0, 0); got != "" {
		t.Fatalf("expected empty eta for missing rate, got %q", got)
	}
}

func TestLiveProgressParsesDownloadLines(t *testing.T) {
	p := newLiveProgress(true, model.Job{ID: "0123456789", Kind: model.KindFilm, DisplayName: "Sample"}, 0, 3, 0, 0)
	p.Handle(fetch.StreamStdout, "[download]  43.2% of 1.20GiB at 5.1MiB/s ETA 02:33")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != "fetching" {
		t.Fatalf("phase = %q, want fetching", p.phase)
	}
	if p.pct != "43.2%" {
		t.Fatalf("pct = %q", p.pct)
	}
	if p.speed != "5.1MiB/s" {
		t.Fatalf("speed = %q", p.speed)
	}
	if p.eta != "02:33" {
		t.Fatalf("eta = %q", p.eta)
	}
	if p.totalSz != "1.20GiB" {
		t.Fatalf("total = %q", p.totalSz)
	}
	if p.rateMbp <= 0 {
		t.Fatalf("rateMbp = %v, want > 0", p.rateMbp)
	}
}

func TestParseRateToMbp(t *testing.T) {
	if got := parseRateToMbp("1MiB/s"); got < 8.38 || got > 8.39 {
		t.Fatalf("1MiB/s = %v Mb/s, want ~8.388", got)
	}
	if got := parseRateToMbp("1MB/s"); got != 8 {
		t.Fatalf("1MB/s = %v Mb/s, want 8", got)
	}
	if got := parseRateToMbp("nonsense"); got != 0 {
		t.Fatalf("nonsense = %v, want 0", got)
	}
}
