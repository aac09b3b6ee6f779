package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Themolx/Privateer/internal/acquire"
	"github.com/Themolx/Privateer/internal/bytesize"
	"github.com/Themolx/Privateer/internal/cli/output"
	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/fetch"
	"github.com/Themolx/Privateer/internal/library"
	"github.com/Themolx/Privateer/internal/logger"
	"github.com/Themolx/Privateer/internal/model"
	"github.com/Themolx/Privateer/internal/queuestore"
	"github.com/Themolx/Privateer/internal/resolve"
	"github.com/Themolx/Privateer/internal/transform"
)

// setupRuntime loads configuration and brings the logger up. Every command
// that touches state starts here.
func setupRuntime() (*config.Config, error) {
	cfg, err := config.MustLoad(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, nil
}

// openStore loads the queue document. A corrupt document has already been
// quarantined by Load; that is survivable, so it degrades to a warning.
func openStore(cfg *config.Config) (*queuestore.Store, error) {
	store, err := queuestore.Load(cfg.QueuePath())
	if err != nil {
		if errors.Is(err, queuestore.ErrStoreCorrupt) {
			logger.Error("queue document was corrupt and has been quarantined, starting from an empty queue", "error", err)
			return store, nil
		}
		return nil, err
	}
	return store, nil
}

// lockState takes the single-writer lock. Commands that mutate the queue
// hold it for their whole lifetime.
func lockState(cfg *config.Config) (*queuestore.Lock, error) {
	lock, err := queuestore.AcquireLock(cfg.Storage.StateDir)
	if err != nil {
		if errors.Is(err, queuestore.ErrLocked) {
			return nil, fmt.Errorf("%w; is a run in progress?", err)
		}
		return nil, err
	}
	return lock, nil
}

func buildIndex(ctx context.Context, cfg *config.Config) (*library.Index, error) {
	roots := append([]string{cfg.Library.Root}, cfg.Library.ScanRoots...)
	return library.BuildIndex(ctx, roots, smallestFloor(cfg))
}

// smallestFloor is the most permissive verification floor across kinds; the
// index must not hide any artifact a kind would accept.
func smallestFloor(cfg *config.Config) int64 {
	floor := cfg.Kinds.Film.MinBytes
	if cfg.Kinds.Episode.MinBytes < floor {
		floor = cfg.Kinds.Episode.MinBytes
	}
	if cfg.Kinds.Short.MinBytes < floor {
		floor = cfg.Kinds.Short.MinBytes
	}
	return int64(floor)
}

func buildEngine(cfg *config.Config, store *queuestore.Store, index *library.Index, opts acquire.RunOptions) *acquire.Engine {
	adapter := fetch.NewTool(cfg.Fetch.Tool, cfg.Fetch.ExtraArgs, cfg.Fetch.Timeout)

	// A nil interface disables self-healing; assigning a typed nil would not.
	var resolver resolve.Resolver
	if cfg.Resolve.Tool != "" {
		resolver = resolve.NewTool(cfg.Resolve.Tool, cfg.Resolve.Timeout, cfg.Resolve.MaxCandidates)
	}

	reducer := transform.NewFFmpeg(cfg.Transform.FFmpeg)
	return acquire.NewEngine(cfg, store, index, adapter, resolver, reducer, opts)
}

func parsedFormat() (output.Format, error) {
	return output.ParseFormat(outputFmt)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// expandJobID resolves a full or prefix job ID against the queue, matching
// the short form status prints.
func expandJobID(q *model.Queue, raw string) (string, error) {
	if q.JobByID(raw) != nil {
		return raw, nil
	}
	var matches []string
	for i := range q.Jobs {
		if strings.HasPrefix(q.Jobs[i].ID, raw) {
			matches = append(matches, q.Jobs[i].ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no job with ID %q", raw)
	default:
		return "", fmt.Errorf("job ID prefix %q is ambiguous (%d matches)", raw, len(matches))
	}
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return bytesize.ByteSize(n).String()
}
