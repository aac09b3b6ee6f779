// Package resolve finds replacement locators for jobs whose source died.
// An external search tool produces candidates; ranking is pure and local.
package resolve

import (
	"context"
	"errors"
)

// ErrResolutionExhausted classifies a resolution that produced no usable
// candidates. The job fails with its original error history preserved.
var ErrResolutionExhausted = errors.New("resolution exhausted")

// Candidate is one alternate source for a display name, as reported by the
// search tool.
type Candidate struct {
	Locator           string `json:"locator"`
	DisplayName       string `json:"display_name,omitempty"`
	DeclaredSizeBytes int64  `json:"declared_size_bytes,omitempty"`
}

// SizeTarget is the preferred size band for a kind. Sizes inside
// [Min, Max] outrank anything outside it; Ideal breaks ties.
type SizeTarget struct {
	Min   int64
	Max   int64
	Ideal int64
}

// Resolver queries an external source-resolution service by display name.
type Resolver interface {
	Resolve(ctx context.Context, displayName string) ([]Candidate, error)
}
