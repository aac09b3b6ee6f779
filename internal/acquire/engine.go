// Package acquire is the orchestration engine: a single control loop that
// dispatches eligible jobs to a bounded worker pool, applies pipeline results
// to the queue, and keeps the persisted state crash-consistent at every step.
package acquire

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/fetch"
	"github.com/Themolx/Privateer/internal/library"
	"github.com/Themolx/Privateer/internal/logger"
	"github.com/Themolx/Privateer/internal/model"
	"github.com/Themolx/Privateer/internal/queuestore"
	"github.com/Themolx/Privateer/internal/resolve"
	"github.com/Themolx/Privateer/internal/transform"
)

// RunOptions are the per-invocation knobs layered over the config file.
type RunOptions struct {
	Workers    int  // overrides acquire.workers when > 0
	MaxJobs    int  // stop dispatching after this many jobs; 0 means no limit
	Progress   bool // live progress line (one worker) or dashboard (several)
	EchoOutput bool // mirror raw tool output instead of parsed progress
}

// RunResult summarizes one engine run. Counters reflect the queue after the
// final persist, not just jobs touched by this run.
type RunResult struct {
	Dispatched             int
	Completed              int
	Failed                 int
	Retrying               int
	Pending                int
	Healed                 int
	EstimatedTotalBytes    int64
	EstimatedCompleteBytes int64
}

// Engine owns all mutable run state: the queue, the dedup index, and the
// external collaborators. The control loop in Run is the only writer of the
// queue; pipelines report back over task handles and never touch it.
type Engine struct {
	cfg      *config.Config
	store    *queuestore.Store
	index    *library.Index
	adapter  fetch.Adapter
	resolver resolve.Resolver  // nil disables self-healing
	reducer  transform.Service // nil disables the shrink pass
	opts     RunOptions

	stdout io.Writer
	stderr io.Writer

	workers          int
	progressEnabled  bool
	dashboardEnabled bool
	dash             *multiDashboard
	estimator        queueSizeEstimator

	seen   map[string]bool // job IDs dispatched during this run
	healed int
	ran    bool
}

func NewEngine(cfg *config.Config, store *queuestore.Store, index *library.Index, adapter fetch.Adapter, resolver resolve.Resolver, reducer transform.Service, opts RunOptions) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		index:    index,
		adapter:  adapter,
		resolver: resolver,
		reducer:  reducer,
		opts:     opts,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// Run executes the control loop until no runnable jobs remain, the dispatch
// limit is reached, or ctx is canceled. It holds the queue lock for the whole
// run so no second writer can race the snapshot.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	if e.ran {
		return RunResult{}, fmt.Errorf("engine already ran; create a new one per run")
	}
	e.ran = true

	if err := queuestore.Mkdir(e.cfg.Storage.StateDir); err != nil {
		return RunResult{}, err
	}
	lock, err := queuestore.AcquireLock(e.cfg.Storage.StateDir)
	if err != nil {
		return RunResult{}, err
	}
	defer func() {
		_ = lock.Release()
	}()

	if err := e.recoverInterrupted(); err != nil {
		return RunResult{}, err
	}
	if err := e.reconcileWithDisk(); err != nil {
		return RunResult{}, err
	}

	e.workers = e.opts.Workers
	if e.workers <= 0 {
		e.workers = e.cfg.Acquire.Workers
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	e.progressEnabled = e.opts.Progress && e.workers == 1
	e.dashboardEnabled = e.opts.Progress && e.workers > 1
	e.estimator = newQueueSizeEstimator(e.store.Queue(), e.cfg.Kinds)
	e.seen = make(map[string]bool)

	if e.dashboardEnabled {
		e.dash = newMultiDashboard(e.workers)
		e.updateDashboardTotals()
		e.dash.Start()
		defer e.dash.Stop()
	}

	poll := e.cfg.Acquire.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	completions := make(chan *taskHandle, e.workers)
	active := make(map[string]*taskHandle, e.workers)
	dispatched := 0
	var fatal error

loop:
	for {
		if fatal == nil && runCtx.Err() == nil {
			if err := e.dispatch(runCtx, active, completions, &dispatched); err != nil {
				fatal = err
				cancelRun()
			}
		}
		if len(active) == 0 {
			if fatal != nil || runCtx.Err() != nil {
				break
			}
			if !e.hasRunnable() {
				break
			}
			if e.opts.MaxJobs > 0 && dispatched >= e.opts.MaxJobs {
				break
			}
		}

		select {
		case <-runCtx.Done():
			e.quiesce(active, completions)
			break loop
		case h := <-completions:
			delete(active, h.jobID)
			if err := e.applyResult(h); err != nil && fatal == nil {
				fatal = err
				cancelRun()
			}
		case <-ticker.C:
		}
	}

	if err := e.sweepShutdown(); err != nil && fatal == nil {
		fatal = err
	}
	if fatal != nil {
		return RunResult{}, fatal
	}

	q := e.store.Queue()
	return RunResult{
		Dispatched:             dispatched,
		Completed:              q.Completed,
		Failed:                 q.Failed,
		Retrying:               q.Retrying,
		Pending:                q.Pending,
		Healed:                 e.healed,
		EstimatedTotalBytes:    e.estimator.totalBytes,
		EstimatedCompleteBytes: e.estimator.completedBytes(q.Jobs),
	}, nil
}

// dispatch fills free worker slots with eligible jobs. Each dispatch moves
// the job to downloading and persists before the pipeline goroutine starts,
// so a crash can never observe a running pipeline without a downloading job.
func (e *Engine) dispatch(ctx context.Context, active map[string]*taskHandle, completions chan<- *taskHandle, dispatched *int) error {
	q := e.store.Queue()
	for len(active) < e.workers {
		if e.opts.MaxJobs > 0 && *dispatched >= e.opts.MaxJobs {
			return nil
		}
		id := e.nextEligible()
		if id == "" {
			return nil
		}
		job := q.JobByID(id)
		if job == nil {
			return fmt.Errorf("eligible job %s vanished from queue", id)
		}
		if err := model.TransitionJobStatus(job, model.StatusDownloading, ""); err != nil {
			return err
		}
		job.LastAttemptAt = time.Now().UTC().Format(time.RFC3339)
		if err := e.store.Persist(); err != nil {
			return fmt.Errorf("persist queue: %w", err)
		}
		e.seen[id] = true
		*dispatched++

		workerID := freeWorkerID(active, e.workers)
		progress := newLiveProgress(e.opts.Progress, *job, q.Completed, q.Total, q.Retrying, q.Failed)
		if e.progressEnabled {
			progress.Start()
		}
		if e.dashboardEnabled {
			e.dash.SetWorker(workerID, progress)
			e.updateDashboardTotals()
		}
		if !e.opts.Progress {
			logger.Info("job dispatched", "worker", workerID, "job_id", job.ID, "kind", job.Kind, "name", job.DisplayName)
		}

		h := &taskHandle{jobID: id, workerID: workerID, progress: progress}
		active[id] = h
		go e.runPipeline(ctx, *job, h, completions)
	}
	return nil
}

// applyResult is the single place pipeline outcomes become queue mutations.
// It runs on the control loop, never concurrently with itself or dispatch.
func (e *Engine) applyResult(h *taskHandle) error {
	job := e.store.Queue().JobByID(h.jobID)
	if job == nil {
		return fmt.Errorf("job %s vanished from queue", h.jobID)
	}
	res := h.result
	now := time.Now().UTC()
	final := ""

	switch res.verdict {
	case verdictCompleted:
		for _, f := range res.failures {
			job.RecordFailure(f.message, f.at)
		}
		if err := model.TransitionJobStatus(job, model.StatusCompleted, ""); err != nil {
			return err
		}
		job.Attempts++
		job.LastAttemptAt = now.Format(time.RFC3339)
		job.CompletedAt = now.Format(time.RFC3339)
		job.SizeBytes = res.sizeBytes
		if e.cfg.Library.WriteNFO {
			if err := library.WriteSidecar(job); err != nil {
				logger.Warn("sidecar write failed", "job_id", job.ID, "error", err)
			}
		}
		final = fmt.Sprintf("done  %s (%s)", job.DisplayName, formatBytesIEC(res.sizeBytes))

	case verdictHealed:
		cand := res.candidate
		job.SourceLocator = cand.Locator
		job.DeclaredSizeBytes = cand.DeclaredSizeBytes
		job.Attempts = 0
		job.AttemptHistory = nil
		job.SelfHealed = true
		ceiling := e.cfg.Kinds.For(job.Kind).TransformCeiling.Int64()
		job.NeedsReduction = ceiling > 0 && cand.DeclaredSizeBytes > ceiling
		if err := model.TransitionJobStatus(job, model.StatusPending, reasonSelfHealed); err != nil {
			return err
		}
		job.LastAttemptAt = now.Format(time.RFC3339)
		e.healed++
		// Eligible again this run with the substituted locator.
		delete(e.seen, job.ID)
		logger.Info("source replaced after resolution", "job_id", job.ID, "name", job.DisplayName, "declared_size", cand.DeclaredSizeBytes)
		final = fmt.Sprintf("heal  %s (substitute source)", job.DisplayName)

	case verdictFailed:
		for _, f := range res.failures {
			job.RecordFailure(f.message, f.at)
		}
		if err := model.TransitionJobStatus(job, model.StatusFailed, res.reason); err != nil {
			return err
		}
		final = fmt.Sprintf("fail  %s (%s)", job.DisplayName, res.reason)

	case verdictRetrying:
		for _, f := range res.failures {
			job.RecordFailure(f.message, f.at)
		}
		if err := model.TransitionJobStatus(job, model.StatusRetrying, res.reason); err != nil {
			return err
		}
		final = fmt.Sprintf("retry %s (%s)", job.DisplayName, res.reason)

	case verdictCanceled:
		if err := model.TransitionJobStatus(job, model.StatusPending, reasonShutdown); err != nil {
			return err
		}
		e.cleanupPartials(job)
		final = fmt.Sprintf("stop  %s", job.DisplayName)
	}

	if err := e.store.Persist(); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}

	if e.progressEnabled && h.progress != nil {
		h.progress.Stop(final)
	}
	if e.dashboardEnabled {
		e.dash.RemoveWorker(h.workerID, final)
		e.updateDashboardTotals()
	}
	if !e.opts.Progress {
		switch res.verdict {
		case verdictCompleted:
			logger.Info("job completed", "job_id", job.ID, "name", job.DisplayName, "size", job.SizeBytes)
		case verdictFailed:
			logger.Warn("job failed", "job_id", job.ID, "name", job.DisplayName, "reason", res.reason)
		case verdictRetrying:
			logger.Info("job will retry", "job_id", job.ID, "name", job.DisplayName, "reason", res.reason, "attempts", job.Attempts)
		}
	}
	return nil
}

// quiesce drains in-flight pipelines after cancellation, for at most the
// configured grace period. Pipelines see the canceled context and their
// fetch processes die with it, so this normally returns quickly.
func (e *Engine) quiesce(active map[string]*taskHandle, completions <-chan *taskHandle) {
	if len(active) == 0 {
		return
	}
	grace := e.cfg.Acquire.ShutdownGrace
	if grace <= 0 {
		grace = 15 * time.Second
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	for len(active) > 0 {
		select {
		case h := <-completions:
			delete(active, h.jobID)
			if err := e.applyResult(h); err != nil {
				logger.Error("apply result during shutdown", "job_id", h.jobID, "error", err)
			}
		case <-timer.C:
			logger.Warn("shutdown grace elapsed with pipelines still running", "active", len(active))
			return
		}
	}
}

// recoverInterrupted re-arms jobs a previous process left mid-download.
func (e *Engine) recoverInterrupted() error {
	q := e.store.Queue()
	changed := 0
	for i := range q.Jobs {
		if q.Jobs[i].Status != model.StatusDownloading {
			continue
		}
		if err := model.TransitionJobStatus(&q.Jobs[i], model.StatusPending, reasonInterruptedRun); err != nil {
			return err
		}
		e.cleanupPartials(&q.Jobs[i])
		changed++
	}
	if changed == 0 {
		return nil
	}
	logger.Info("re-armed jobs interrupted by a previous run", "count", changed)
	return e.store.Persist()
}

// reconcileWithDisk aligns queue state with what actually exists in the
// library: runnable jobs whose artifact is already present complete without
// a fetch, and completed jobs whose artifact vanished become pending again.
func (e *Engine) reconcileWithDisk() error {
	q := e.store.Queue()
	now := time.Now().UTC().Format(time.RFC3339)
	changed := 0
	for i := range q.Jobs {
		job := &q.Jobs[i]
		switch job.Status {
		case model.StatusPending, model.StatusRetrying:
			size, ok := e.artifactPresent(job)
			if !ok {
				continue
			}
			if err := model.TransitionJobStatus(job, model.StatusCompleted, reasonAlreadyOnDisk); err != nil {
				return err
			}
			job.CompletedAt = now
			if size > 0 {
				job.SizeBytes = size
			}
			changed++
		case model.StatusCompleted:
			if _, ok := e.artifactPresent(job); ok {
				continue
			}
			if err := model.TransitionJobStatus(job, model.StatusPending, reasonArtifactMissing); err != nil {
				return err
			}
			job.CompletedAt = ""
			job.SizeBytes = 0
			changed++
		}
	}
	if changed == 0 {
		return nil
	}
	logger.Info("reconciled queue with library contents", "count", changed)
	return e.store.Persist()
}

// artifactPresent checks the destination path first (authoritative), then
// falls back to the fuzzy index so renamed or re-organized artifacts still
// count. Size is only known for direct-path hits.
func (e *Engine) artifactPresent(job *model.Job) (int64, bool) {
	if info, err := os.Stat(job.Destination); err == nil && !info.IsDir() {
		if info.Size() > e.cfg.Kinds.For(job.Kind).MinBytes.Int64() {
			return info.Size(), true
		}
		return 0, false
	}
	if e.index == nil {
		return 0, false
	}
	for _, key := range library.QueryKeys(job) {
		if e.index.Contains(key) {
			return 0, true
		}
	}
	return 0, false
}

// sweepShutdown clears any job still marked downloading after the loop ends.
// Interrupted attempts are not failures; the job re-arms as pending.
func (e *Engine) sweepShutdown() error {
	q := e.store.Queue()
	changed := 0
	for i := range q.Jobs {
		if q.Jobs[i].Status != model.StatusDownloading {
			continue
		}
		if err := model.TransitionJobStatus(&q.Jobs[i], model.StatusPending, reasonShutdown); err != nil {
			return err
		}
		e.cleanupPartials(&q.Jobs[i])
		changed++
	}
	if changed == 0 {
		return nil
	}
	logger.Info("re-armed jobs interrupted by shutdown", "count", changed)
	return e.store.Persist()
}

// cleanupPartials removes temp files next to the destination, and the
// destination itself when it is too small to be a finished artifact.
func (e *Engine) cleanupPartials(job *model.Job) {
	for _, path := range []string{job.Destination + ".part", job.Destination + ".ytdl", job.Destination + ".reduce.tmp"} {
		if err := os.Remove(path); err == nil {
			logger.Debug("removed partial file", "path", path)
		}
	}
	info, err := os.Stat(job.Destination)
	if err != nil || info.IsDir() {
		return
	}
	if info.Size() > e.cfg.Kinds.For(job.Kind).MinBytes.Int64() {
		return
	}
	if err := os.Remove(job.Destination); err == nil {
		logger.Debug("removed undersized artifact", "path", job.Destination)
	}
}

func (e *Engine) hasRunnable() bool {
	q := e.store.Queue()
	for i := range q.Jobs {
		if q.Jobs[i].Status.IsRunnable() && !e.seen[q.Jobs[i].ID] {
			return true
		}
	}
	return false
}

func (e *Engine) nextEligible() string {
	for _, id := range EligibleJobs(e.store.Queue()) {
		if !e.seen[id] {
			return id
		}
	}
	return ""
}

func (e *Engine) updateDashboardTotals() {
	if !e.dashboardEnabled {
		return
	}
	q := e.store.Queue()
	e.dash.SetTotals(q.Completed, q.Total, q.Pending, q.Retrying, q.Failed)
	if e.estimator.hasEstimate() {
		e.dash.SetSizeEstimate(e.estimator.completedBytes(q.Jobs), e.estimator.totalBytes)
	}
}

// EligibleJobs returns runnable job IDs in dispatch order: pending before
// retrying, FIFO by creation time within each class.
func EligibleJobs(q *model.Queue) []string {
	type entry struct {
		id        string
		createdAt string
		retrying  bool
	}
	entries := make([]entry, 0, len(q.Jobs))
	for i := range q.Jobs {
		job := &q.Jobs[i]
		if !job.Status.IsRunnable() {
			continue
		}
		entries = append(entries, entry{
			id:        job.ID,
			createdAt: job.CreatedAt,
			retrying:  job.Status == model.StatusRetrying,
		})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		if a.retrying != b.retrying {
			if a.retrying {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.createdAt, b.createdAt)
	})
	ids := make([]string, len(entries))
	for i, en := range entries {
		ids[i] = en.id
	}
	return ids
}

func freeWorkerID(active map[string]*taskHandle, workers int) int {
	used := make(map[int]bool, len(active))
	for _, h := range active {
		used[h.workerID] = true
	}
	for id := 1; id <= workers; id++ {
		if !used[id] {
			return id
		}
	}
	return len(active) + 1
}
