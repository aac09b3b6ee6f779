package model

import "fmt"

// JobStatus is the closed set of lifecycle states a job can be in.
type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusDownloading JobStatus = "downloading"
	StatusCompleted   JobStatus = "completed"
	StatusRetrying    JobStatus = "retrying"
	StatusFailed      JobStatus = "failed"
)

// allowedTransitions is the exhaustive edge set of the job state machine.
// The empty status is the pre-creation state.
var allowedTransitions = map[JobStatus]map[JobStatus]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusPending:     true,
		StatusDownloading: true,
		StatusCompleted:   true, // artifact already on disk, no fetch needed
		StatusFailed:      true,
	},
	StatusDownloading: {
		StatusDownloading: true,
		StatusCompleted:   true,
		StatusRetrying:    true,
		StatusFailed:      true,
		StatusPending:     true, // shutdown or crash recovery re-arms the job
	},
	StatusRetrying: {
		StatusRetrying:    true,
		StatusDownloading: true,
		StatusPending:     true,
		StatusCompleted:   true, // artifact appeared on disk between runs
		StatusFailed:      true,
	},
	StatusCompleted: {
		StatusCompleted: true,
		StatusPending:   true, // local artifact missing, needs re-acquisition
	},
	StatusFailed: {
		StatusFailed:  true,
		StatusPending: true, // operator reopen or resolver substitution
	},
}

func IsKnownStatus(status JobStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to JobStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// TransitionJobStatus moves a job to toStatus, rejecting any edge the state
// machine does not allow. The reason annotates the transition for operators.
func TransitionJobStatus(job *Job, toStatus JobStatus, reason string) error {
	from := job.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid job status transition: %q -> %q (id=%s name=%q)", from, toStatus, job.ID, job.DisplayName)
	}
	job.Status = toStatus
	job.Reason = reason
	return nil
}

// IsTerminal reports whether the status ends the job's lifecycle absent an
// operator reopen or resolver substitution.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsRunnable reports whether the scheduler may dispatch a job in this state.
func (s JobStatus) IsRunnable() bool {
	return s == StatusPending || s == StatusRetrying
}
