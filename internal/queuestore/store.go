// Package queuestore persists the acquisition queue as a single JSON
// document. Every mutation rewrites the whole document through an atomic
// rename, so a crash can lose at most the change in flight, never the file.
package queuestore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Themolx/Privateer/internal/model"
)

var (
	// ErrStoreCorrupt reports that the queue file existed but could not be
	// parsed. The broken document is preserved next to the original path.
	ErrStoreCorrupt = errors.New("queue store corrupt")

	// ErrJobNotFound reports a lookup for a job ID the queue does not track.
	ErrJobNotFound = errors.New("job not found")
)

// Store owns the queue document at a fixed path. It is not goroutine safe;
// the control loop (or a locked CLI command) is the single writer.
type Store struct {
	path  string
	queue model.Queue
}

// Load reads the queue at path. A missing file yields an empty queue. A
// corrupt file is renamed to <path>.corrupt and an empty queue is returned
// together with ErrStoreCorrupt, so callers can log and keep going.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	s.queue.SchemaVersion = model.QueueSchemaVersion

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("stat queue %s: %w", path, err)
	}

	var q model.Queue
	if err := ReadJSON(path, &q); err != nil {
		quarantine := path + ".corrupt"
		if renameErr := os.Rename(path, quarantine); renameErr != nil {
			return s, fmt.Errorf("%w: %v (quarantine failed: %v)", ErrStoreCorrupt, err, renameErr)
		}
		return s, fmt.Errorf("%w: %v (moved to %s)", ErrStoreCorrupt, err, quarantine)
	}

	if q.SchemaVersion == 0 {
		q.SchemaVersion = model.QueueSchemaVersion
	}
	q.RecomputeCounts()
	s.queue = q
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Queue exposes the in-memory document. Mutating it directly is allowed for
// the single writer, which must call Persist afterwards.
func (s *Store) Queue() *model.Queue { return &s.queue }

// Persist recomputes the derived counters and rewrites the document.
func (s *Store) Persist() error {
	s.queue.SchemaVersion = model.QueueSchemaVersion
	s.queue.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.queue.RecomputeCounts()
	return WriteJSON(s.path, &s.queue)
}

// Add appends job unless its destination is already tracked. The boolean
// reports whether the queue changed. Re-adding a destination whose record was
// purged creates a fresh job; the startup sweep completes it if the artifact
// is already on disk.
func (s *Store) Add(job model.Job) (bool, error) {
	if existing := s.queue.JobByDestination(job.Destination); existing != nil {
		return false, nil
	}
	s.queue.Jobs = append(s.queue.Jobs, job)
	if err := s.Persist(); err != nil {
		return false, err
	}
	return true, nil
}

// Update applies patch to the job with the given ID and persists before
// returning.
func (s *Store) Update(id string, patch func(*model.Job)) error {
	job := s.queue.JobByID(id)
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	patch(job)
	return s.Persist()
}

// Transition moves the job with the given ID to a new status, enforcing the
// transition table, and persists the result.
func (s *Store) Transition(id string, to model.JobStatus, reason string) error {
	job := s.queue.JobByID(id)
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err := model.TransitionJobStatus(job, to, reason); err != nil {
		return err
	}
	return s.Persist()
}

// Reopen re-arms a failed job: status back to pending, attempt counter reset
// so the job gets a full retry budget again. The failure history is kept.
func (s *Store) Reopen(id string) (*model.Job, error) {
	job := s.queue.JobByID(id)
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status != model.StatusFailed {
		return nil, fmt.Errorf("job %s is %s; only failed jobs can be reopened", id, job.Status)
	}
	if err := model.TransitionJobStatus(job, model.StatusPending, "reopened"); err != nil {
		return nil, err
	}
	job.Attempts = 0
	return job, s.Persist()
}

// Remove drops a single job record. The artifact, if any, stays on disk.
func (s *Store) Remove(id string) error {
	for i := range s.queue.Jobs {
		if s.queue.Jobs[i].ID == id {
			s.queue.Jobs = append(s.queue.Jobs[:i], s.queue.Jobs[i+1:]...)
			return s.Persist()
		}
	}
	return fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// PurgeKind removes all job records of the given kind and reports how many
// were dropped. Artifacts on disk are untouched.
func (s *Store) PurgeKind(kind model.JobKind) (int, error) {
	kept := s.queue.Jobs[:0]
	removed := 0
	for _, job := range s.queue.Jobs {
		if job.Kind == kind {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	s.queue.Jobs = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, s.Persist()
}

// ClearCompleted removes completed job records and reports how many were
// dropped.
func (s *Store) ClearCompleted() (int, error) {
	kept := s.queue.Jobs[:0]
	removed := 0
	for _, job := range s.queue.Jobs {
		if job.Status == model.StatusCompleted {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	s.queue.Jobs = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, s.Persist()
}
