package resolve

import (
	"cmp"
	"slices"
)

// Rank orders candidates by fitness for a size target. In-band candidates
// come first, ordered by closeness to the ideal. Out-of-band candidates
// follow: oversized before undersized, since an oversized artifact is still
// usable after a shrink pass while an undersized one is usually junk.
// The input is not modified; equal candidates keep their reported order.
func Rank(candidates []Candidate, target SizeTarget) []Candidate {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		ga, gb := target.band(a.DeclaredSizeBytes), target.band(b.DeclaredSizeBytes)
		if ga != gb {
			return cmp.Compare(ga, gb)
		}
		return cmp.Compare(target.distance(a.DeclaredSizeBytes), target.distance(b.DeclaredSizeBytes))
	})
	return ranked
}

func (t SizeTarget) band(size int64) int {
	switch {
	case size >= t.Min && size <= t.Max:
		return 0
	case size > t.Max:
		return 1
	default:
		return 2
	}
}

func (t SizeTarget) distance(size int64) int64 {
	d := size - t.Ideal
	if d < 0 {
		return -d
	}
	return d
}
