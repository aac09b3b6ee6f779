package model

import (
	"fmt"
	"strings"
	"time"
)

// JobKind classifies an artifact for destination layout and size policy.
type JobKind string

const (
	KindFilm    JobKind = "film"
	KindEpisode JobKind = "episode"
	KindShort   JobKind = "short"
)

func ParseJobKind(raw string) (JobKind, error) {
	switch JobKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindFilm:
		return KindFilm, nil
	case KindEpisode:
		return KindEpisode, nil
	case KindShort:
		return KindShort, nil
	default:
		return "", fmt.Errorf("unknown job kind %q (expected film, episode, or short)", raw)
	}
}

// FailureRecord is one failed acquisition attempt, kept for diagnostics.
type FailureRecord struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Job is one unit of desired-artifact acquisition tracked through its
// lifecycle. Destination is the canonical path the artifact must end up at;
// no two jobs in a queue may share it.
type Job struct {
	ID                string          `json:"id"`
	Kind              JobKind         `json:"kind"`
	DisplayName       string          `json:"display_name"`
	Series            string          `json:"series,omitempty"`
	Season            int             `json:"season,omitempty"`
	Episode           int             `json:"episode,omitempty"`
	Year              int             `json:"year,omitempty"`
	SourceLocator     string          `json:"source_locator"`
	Destination       string          `json:"destination"`
	Status            JobStatus       `json:"status"`
	Reason            string          `json:"reason,omitempty"`
	Attempts          int             `json:"attempts,omitempty"`
	AttemptHistory    []FailureRecord `json:"attempt_history,omitempty"`
	CreatedAt         string          `json:"created_at"`
	LastAttemptAt     string          `json:"last_attempt_at,omitempty"`
	CompletedAt       string          `json:"completed_at,omitempty"`
	SizeBytes         int64           `json:"size_bytes,omitempty"`
	DeclaredSizeBytes int64           `json:"declared_size_bytes,omitempty"`
	SelfHealed        bool            `json:"self_healed,omitempty"`
	NeedsReduction    bool            `json:"needs_reduction,omitempty"`
}

// RecordFailure appends a failure to the job's history and bumps the attempt
// counter.
func (j *Job) RecordFailure(message string, at time.Time) {
	j.Attempts++
	j.LastAttemptAt = at.UTC().Format(time.RFC3339)
	j.AttemptHistory = append(j.AttemptHistory, FailureRecord{
		Message:   message,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
}

// Queue is the full persisted job collection. Counters are derived from Jobs
// and recomputed on every mutation; Jobs order is enqueue order.
type Queue struct {
	SchemaVersion int    `json:"schema_version"`
	UpdatedAt     string `json:"updated_at"`
	Total         int    `json:"total"`
	Pending       int    `json:"pending"`
	Downloading   int    `json:"downloading"`
	Retrying      int    `json:"retrying"`
	Completed     int    `json:"completed"`
	Failed        int    `json:"failed"`
	Jobs          []Job  `json:"jobs"`
}

const QueueSchemaVersion = 1

// RecomputeCounts refreshes the derived per-status counters.
func (q *Queue) RecomputeCounts() {
	pending, downloading, retrying, completed, failed := 0, 0, 0, 0, 0
	for i := range q.Jobs {
		switch q.Jobs[i].Status {
		case StatusPending:
			pending++
		case StatusDownloading:
			downloading++
		case StatusRetrying:
			retrying++
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}
	q.Total = len(q.Jobs)
	q.Pending = pending
	q.Downloading = downloading
	q.Retrying = retrying
	q.Completed = completed
	q.Failed = failed
}

// JobByID returns a pointer into Jobs, or nil when the id is unknown.
func (q *Queue) JobByID(id string) *Job {
	for i := range q.Jobs {
		if q.Jobs[i].ID == id {
			return &q.Jobs[i]
		}
	}
	return nil
}

// JobByDestination returns a pointer into Jobs, or nil when no job tracks
// the destination.
func (q *Queue) JobByDestination(destination string) *Job {
	for i := range q.Jobs {
		if q.Jobs[i].Destination == destination {
			return &q.Jobs[i]
		}
	}
	return nil
}

// WantedItem is one entry of an operator-supplied wanted list. Kind may be
// empty in the document; enqueue substitutes its default kind before use.
type WantedItem struct {
	Name              string  `json:"name"`
	Kind              JobKind `json:"kind,omitempty"`
	Locator           string  `json:"locator"`
	Year              int     `json:"year,omitempty"`
	Series            string  `json:"series,omitempty"`
	Season            int     `json:"season,omitempty"`
	Episode           int     `json:"episode,omitempty"`
	DeclaredSizeBytes int64   `json:"declared_size_bytes,omitempty"`
}

// WantedList is the wanted-list document format accepted by enqueue.
type WantedList struct {
	Items []WantedItem `json:"items"`
}
