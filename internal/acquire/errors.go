package acquire

import "errors"

// ErrArtifactTooSmall classifies verification failures where the fetched
// artifact exists but is below the kind's plausibility floor.
var ErrArtifactTooSmall = errors.New("artifact too small")

// Transition reasons recorded on jobs. These end up in the persisted queue
// and in status output, so they stay short and stable.
const (
	reasonInterruptedRun      = "interrupted_run"
	reasonAlreadyOnDisk       = "already_on_disk"
	reasonArtifactMissing     = "artifact_missing"
	reasonShutdown            = "shutdown"
	reasonAttemptCeiling      = "attempt_ceiling"
	reasonHealedSourceFailed  = "healed_source_failed"
	reasonResolutionExhausted = "resolution_exhausted"
	reasonResolverError       = "resolver_error"
	reasonTransientFetchError = "transient_fetch_error"
	reasonSelfHealed          = "self_healed"
)
