package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Themolx/Privateer/internal/bytesize"
)

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default. Explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applyLibraryDefaults(&cfg.Library)
	applyAcquireDefaults(&cfg.Acquire)
	applyFetchDefaults(&cfg.Fetch)
	applyResolveDefaults(&cfg.Resolve)
	applyTransformDefaults(&cfg.Transform)
	applyKindDefaults(&cfg.Kinds)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.StateDir == "" {
		cfg.StateDir = getDataDir()
	}
}

func applyLibraryDefaults(cfg *LibraryConfig) {
	if cfg.Root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Root = filepath.Join(home, "Media")
		} else {
			cfg.Root = "Media"
		}
	}
}

func applyAcquireDefaults(cfg *AcquireConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.AttemptCeiling == 0 {
		cfg.AttemptCeiling = 4
	}
	if cfg.ImmediateRetries == 0 {
		cfg.ImmediateRetries = 2
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 5 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 15 * time.Second
	}
}

func applyFetchDefaults(cfg *FetchConfig) {
	if cfg.Tool == "" {
		cfg.Tool = "yt-dlp"
	}
}

func applyResolveDefaults(cfg *ResolveConfig) {
	// Tool stays empty: self-healing is opt-in.
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = 25
	}
}

func applyTransformDefaults(cfg *TransformConfig) {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if cfg.Preset == "" {
		cfg.Preset = "medium"
	}
	if cfg.CRF == 0 {
		cfg.CRF = 23
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = "128k"
	}
}

func applyKindDefaults(cfg *KindPolicies) {
	if cfg.Film == (KindPolicy{}) {
		cfg.Film = KindPolicy{
			MinBytes:         100 * bytesize.MB,
			TransformCeiling: 6 * bytesize.GB,
			TargetMin:        1000 * bytesize.MB,
			TargetMax:        5000 * bytesize.MB,
			TargetIdeal:      2000 * bytesize.MB,
		}
	}
	if cfg.Episode == (KindPolicy{}) {
		cfg.Episode = KindPolicy{
			MinBytes:         50 * bytesize.MB,
			TransformCeiling: 3 * bytesize.GB,
			TargetMin:        200 * bytesize.MB,
			TargetMax:        2000 * bytesize.MB,
			TargetIdeal:      700 * bytesize.MB,
		}
	}
	if cfg.Short == (KindPolicy{}) {
		cfg.Short = KindPolicy{
			MinBytes:         10 * bytesize.MB,
			TransformCeiling: 1 * bytesize.GB,
			TargetMin:        50 * bytesize.MB,
			TargetMax:        1000 * bytesize.MB,
			TargetIdeal:      300 * bytesize.MB,
		}
	}
}

// getDataDir returns $XDG_DATA_HOME/privateer, falling back to
// ~/.local/share/privateer.
func getDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "privateer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "privateer")
}
