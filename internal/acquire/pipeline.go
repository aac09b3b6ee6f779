package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Themolx/Privateer/internal/bytesize"
	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/fetch"
	"github.com/Themolx/Privateer/internal/logger"
	"github.com/Themolx/Privateer/internal/model"
	"github.com/Themolx/Privateer/internal/resolve"
	"github.com/Themolx/Privateer/internal/transform"
)

type verdict int

const (
	verdictCompleted verdict = iota
	verdictRetrying
	verdictFailed
	verdictHealed
	verdictCanceled
)

type attemptFailure struct {
	message string
	at      time.Time
}

// pipelineResult is what a pipeline hands back to the control loop. Only the
// loop turns it into queue mutations.
type pipelineResult struct {
	verdict   verdict
	reason    string
	sizeBytes int64
	candidate *resolve.Candidate
	failures  []attemptFailure
}

// taskHandle pairs a dispatched job with its completion signal. The pipeline
// fills result exactly once and sends the handle on the completions channel.
type taskHandle struct {
	jobID    string
	workerID int
	progress *liveProgress
	result   pipelineResult
}

func (e *Engine) runPipeline(ctx context.Context, job model.Job, h *taskHandle, completions chan<- *taskHandle) {
	h.result = e.acquire(ctx, job, h.progress)
	completions <- h
}

// acquire runs the fetch/verify/transform pipeline for one job: up to
// 1+ImmediateRetries attempts with a fixed backoff between them, then the
// retry/self-healing decision. The job value is a snapshot; mutations happen
// on the loop when the result is applied.
func (e *Engine) acquire(ctx context.Context, job model.Job, progress *liveProgress) pipelineResult {
	policy := e.cfg.Kinds.For(job.Kind)

	budget := 1 + e.cfg.Acquire.ImmediateRetries
	if remaining := e.cfg.Acquire.AttemptCeiling - job.Attempts; remaining < budget {
		budget = remaining
	}

	var logW io.Writer
	if f := e.openJobLog(job.ID); f != nil {
		logW = f
		defer func() { _ = f.Close() }()
	}

	var failures []attemptFailure
	for attempt := 0; attempt < budget; attempt++ {
		if attempt > 0 {
			if progress != nil {
				progress.SetPhase("backoff")
			}
			select {
			case <-ctx.Done():
				return pipelineResult{verdict: verdictCanceled}
			case <-time.After(e.cfg.Acquire.RetryBackoff):
			}
		}
		if progress != nil {
			progress.SetPhase("starting")
		}

		size, err := e.fetchAndVerify(ctx, job, policy, progress, logW)
		if err == nil {
			size, transformFailure := e.maybeReduce(ctx, job, policy, size, progress)
			if transformFailure != nil {
				failures = append(failures, *transformFailure)
			}
			return pipelineResult{verdict: verdictCompleted, sizeBytes: size, failures: failures}
		}
		if ctx.Err() != nil {
			return pipelineResult{verdict: verdictCanceled}
		}

		failures = append(failures, attemptFailure{message: truncateMessage(err.Error()), at: time.Now().UTC()})
		logger.Debug("fetch attempt failed", "job_id", job.ID, "attempt", job.Attempts+len(failures), "error", err)
		if fetch.IsPermanent(err) {
			// The locator looks dead; further immediate attempts are wasted.
			break
		}
	}
	return e.settle(ctx, job, policy, failures)
}

// settle decides what an exhausted job becomes: failed at the ceiling, failed
// after a spent substitution, healed with a fresh locator, or retrying.
func (e *Engine) settle(ctx context.Context, job model.Job, policy config.KindPolicy, failures []attemptFailure) pipelineResult {
	total := job.Attempts + len(failures)
	if total >= e.cfg.Acquire.AttemptCeiling {
		return pipelineResult{verdict: verdictFailed, reason: reasonAttemptCeiling, failures: failures}
	}
	if job.SelfHealed {
		return pipelineResult{verdict: verdictFailed, reason: reasonHealedSourceFailed, failures: failures}
	}
	if e.resolver == nil {
		return pipelineResult{verdict: verdictRetrying, reason: reasonTransientFetchError, failures: failures}
	}

	candidates, err := e.resolver.Resolve(ctx, job.DisplayName)
	if err != nil {
		if ctx.Err() != nil {
			return pipelineResult{verdict: verdictCanceled}
		}
		// Service outage, not evidence about the job; substitution stays
		// available for a later revisit.
		logger.Warn("resolution query failed", "job_id", job.ID, "name", job.DisplayName, "error", err)
		return pipelineResult{verdict: verdictRetrying, reason: reasonResolverError, failures: failures}
	}
	if len(candidates) == 0 {
		return pipelineResult{verdict: verdictFailed, reason: reasonResolutionExhausted, failures: failures}
	}

	ranked := resolve.Rank(candidates, resolve.SizeTarget{
		Min:   policy.TargetMin.Int64(),
		Max:   policy.TargetMax.Int64(),
		Ideal: policy.TargetIdeal.Int64(),
	})
	top := ranked[0]
	return pipelineResult{verdict: verdictHealed, candidate: &top, failures: failures}
}

// fetchAndVerify runs one adapter attempt and verifies the artifact
// independently of whatever the adapter claimed.
func (e *Engine) fetchAndVerify(ctx context.Context, job model.Job, policy config.KindPolicy, progress *liveProgress, logW io.Writer) (int64, error) {
	req := fetch.Request{
		Locator:     job.SourceLocator,
		Destination: job.Destination,
		DisplayName: job.DisplayName,
		LogWriter:   logW,
		EchoOutput:  e.opts.EchoOutput && !e.dashboardEnabled,
		Stdout:      e.stdout,
		Stderr:      e.stderr,
	}
	if progress != nil {
		req.Progress = progress.Handle
	}
	if _, err := e.adapter.Fetch(ctx, req); err != nil {
		return 0, err
	}

	if progress != nil {
		progress.SetPhase("verifying")
	}
	info, err := os.Stat(job.Destination)
	if err != nil {
		return 0, fmt.Errorf("%w: artifact missing after fetch: %v", fetch.ErrLocatorUnavailable, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: destination is a directory", fetch.ErrLocatorUnavailable)
	}
	floor := policy.MinBytes.Int64()
	if info.Size() <= floor {
		_ = os.Remove(job.Destination)
		return 0, fmt.Errorf("%w: artifact is %s, floor is %s", ErrArtifactTooSmall, bytesize.ByteSize(info.Size()), policy.MinBytes)
	}
	return info.Size(), nil
}

// maybeReduce applies the shrink pass when the verified artifact is over the
// kind ceiling or the job was flagged during resolution. A failed transform
// never fails the job; the verified original stays.
func (e *Engine) maybeReduce(ctx context.Context, job model.Job, policy config.KindPolicy, size int64, progress *liveProgress) (int64, *attemptFailure) {
	if e.reducer == nil {
		return size, nil
	}
	ceiling := policy.TransformCeiling.Int64()
	oversized := ceiling > 0 && size > ceiling
	if !oversized && !job.NeedsReduction {
		return size, nil
	}
	if size <= policy.MinBytes.Int64() {
		return size, nil
	}

	if progress != nil {
		progress.SetPhase("reducing")
	}
	logger.Info("reducing oversized artifact", "job_id", job.ID, "name", job.DisplayName, "size", size, "ceiling", ceiling)
	newSize, err := e.reducer.Reduce(ctx, job.Destination, transform.Params{
		Preset:       e.cfg.Transform.Preset,
		CRF:          e.cfg.Transform.CRF,
		AudioBitrate: e.cfg.Transform.AudioBitrate,
	})
	if err != nil {
		logger.Warn("reduction failed, keeping verified original", "job_id", job.ID, "error", err)
		return size, &attemptFailure{message: truncateMessage("transform: " + err.Error()), at: time.Now().UTC()}
	}
	logger.Info("artifact reduced", "job_id", job.ID, "old_size", size, "new_size", newSize)
	return newSize, nil
}

// openJobLog creates the per-job tool log under <state dir>/logs. Failure to
// open it never blocks acquisition; the attempt just runs unlogged.
func (e *Engine) openJobLog(jobID string) *os.File {
	dir := filepath.Join(e.cfg.Storage.StateDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("create log directory failed", "path", dir, "error", err)
		return nil
	}
	f, err := os.Create(filepath.Join(dir, jobID+".log"))
	if err != nil {
		logger.Warn("create job log failed", "job_id", jobID, "error", err)
		return nil
	}
	return f
}

func truncateMessage(s string) string {
	const max = 1200
	if len(s) <= max {
		return s
	}
	return s[:max]
}
