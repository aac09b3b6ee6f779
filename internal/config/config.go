// Package config loads Privateer configuration from file, environment and
// defaults, in that order of increasing precedence being env > file >
// defaults. Values decode into explicit structs; nothing reads viper at call
// sites.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Themolx/Privateer/internal/bytesize"
	"github.com/Themolx/Privateer/internal/model"
)

// Config is the root configuration document.
//
// Sources, highest precedence first:
//  1. Environment variables (PRIVATEER_*)
//  2. Configuration file (YAML)
//  3. Defaults
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Storage locates the queue document and lock.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Library describes the media tree destinations are computed against and
	// the roots the existence index scans.
	Library LibraryConfig `mapstructure:"library" yaml:"library"`

	// Acquire tunes the worker pool and retry policy.
	Acquire AcquireConfig `mapstructure:"acquire" yaml:"acquire"`

	// Fetch configures the external fetch tool.
	Fetch FetchConfig `mapstructure:"fetch" yaml:"fetch"`

	// Resolve configures the alternate-source search tool. An empty tool
	// disables self-healing.
	Resolve ResolveConfig `mapstructure:"resolve" yaml:"resolve"`

	// Transform configures the ffmpeg re-encode used to shrink oversized
	// artifacts.
	Transform TransformConfig `mapstructure:"transform" yaml:"transform"`

	// Kinds carries the per-kind size policy (verification floor, transform
	// ceiling, resolution target band).
	Kinds KindPolicies `mapstructure:"kinds" yaml:"kinds"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// StorageConfig locates mutable state. StateDir holds queue.json and the
// writer lock.
type StorageConfig struct {
	StateDir string `mapstructure:"state_dir" validate:"required" yaml:"state_dir"`
}

// LibraryConfig describes the media tree.
type LibraryConfig struct {
	// Root is the base the canonical destination layout hangs off
	// (Root/Films, Root/Series, Root/Shorts).
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// ScanRoots are extra directories indexed for already-have detection,
	// e.g. an old unsorted archive. Root is always scanned.
	ScanRoots []string `mapstructure:"scan_roots" yaml:"scan_roots,omitempty"`

	// WriteNFO enables Jellyfin-style metadata sidecars next to completed
	// artifacts.
	WriteNFO bool `mapstructure:"write_nfo" yaml:"write_nfo"`
}

// AcquireConfig tunes the worker pool.
type AcquireConfig struct {
	// Workers is the number of concurrent fetch pipelines.
	Workers int `mapstructure:"workers" validate:"required,min=1,max=16" yaml:"workers"`

	// AttemptCeiling is the lifetime attempt bound per job, across runs.
	AttemptCeiling int `mapstructure:"attempt_ceiling" validate:"required,min=1,max=50" yaml:"attempt_ceiling"`

	// ImmediateRetries is how many extra fetch attempts a single dispatch
	// makes before giving the slot back.
	ImmediateRetries int `mapstructure:"immediate_retries" validate:"min=0,max=10" yaml:"immediate_retries"`

	// RetryBackoff is the fixed pause between immediate retries.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`

	// PollInterval is the dispatch tick of the control loop.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// ShutdownGrace bounds the wait for in-flight pipelines on shutdown.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// FetchConfig configures the external downloader.
type FetchConfig struct {
	// Tool is the yt-dlp compatible binary name or path.
	Tool string `mapstructure:"tool" validate:"required" yaml:"tool"`

	// ExtraArgs are appended verbatim to every invocation.
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args,omitempty"`

	// Timeout bounds a single fetch attempt. Zero means no bound beyond
	// run cancellation.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// ResolveConfig configures alternate-source resolution.
type ResolveConfig struct {
	// Tool is a search binary printing a JSON candidate array on stdout.
	// Empty disables self-healing.
	Tool string `mapstructure:"tool" yaml:"tool,omitempty"`

	// Timeout bounds one resolution query.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxCandidates caps how many candidates are considered per query.
	MaxCandidates int `mapstructure:"max_candidates" validate:"min=1,max=200" yaml:"max_candidates"`
}

// TransformConfig configures the ffmpeg shrink pass.
type TransformConfig struct {
	FFmpeg       string `mapstructure:"ffmpeg" validate:"required" yaml:"ffmpeg"`
	Preset       string `mapstructure:"preset" validate:"required,oneof=ultrafast superfast veryfast faster fast medium slow slower veryslow" yaml:"preset"`
	CRF          int    `mapstructure:"crf" validate:"min=0,max=51" yaml:"crf"`
	AudioBitrate string `mapstructure:"audio_bitrate" validate:"required" yaml:"audio_bitrate"`
}

// KindPolicies holds one policy per job kind.
type KindPolicies struct {
	Film    KindPolicy `mapstructure:"film" yaml:"film"`
	Episode KindPolicy `mapstructure:"episode" yaml:"episode"`
	Short   KindPolicy `mapstructure:"short" yaml:"short"`
}

// KindPolicy is the size policy for one kind.
type KindPolicy struct {
	// MinBytes is the verification floor. Artifacts at or below it fail
	// verification regardless of what the fetch tool reported.
	MinBytes bytesize.ByteSize `mapstructure:"min_bytes" yaml:"min_bytes"`

	// TransformCeiling triggers the shrink pass when an artifact exceeds it.
	TransformCeiling bytesize.ByteSize `mapstructure:"transform_ceiling" yaml:"transform_ceiling"`

	// TargetMin/TargetMax bound the preferred size band for resolution
	// ranking. TargetIdeal is the tiebreak center.
	TargetMin   bytesize.ByteSize `mapstructure:"target_min" yaml:"target_min"`
	TargetMax   bytesize.ByteSize `mapstructure:"target_max" yaml:"target_max"`
	TargetIdeal bytesize.ByteSize `mapstructure:"target_ideal" yaml:"target_ideal"`
}

// For returns the policy for kind, defaulting to the film policy for
// anything unknown.
func (k KindPolicies) For(kind model.JobKind) KindPolicy {
	switch kind {
	case model.KindEpisode:
		return k.Episode
	case model.KindShort:
		return k.Short
	default:
		return k.Film
	}
}

// QueuePath returns the location of the queue document.
func (c *Config) QueuePath() string {
	return filepath.Join(c.Storage.StateDir, "queue.json")
}

// Load reads configuration from configPath (or the default location when
// empty), layers PRIVATEER_* environment variables on top, applies defaults
// and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := Default()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load with a friendlier error when the file is missing at an
// explicit path.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Create it first:\n  privateer init --config %s", configPath, configPath)
		}
	}
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	// PRIVATEER_ACQUIRE_WORKERS=4 overrides acquire.workers, and so on.
	v.SetEnvPrefix("PRIVATEER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook lets config files write sizes as "500MB" or plain
// numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook lets config files write durations as "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/privateer, falling back to
// ~/.config/privateer.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "privateer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "privateer")
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
