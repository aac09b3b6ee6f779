package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Themolx/Privateer/internal/bytesize"
	"github.com/Themolx/Privateer/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
library:
  root: "/srv/media"
storage:
  state_dir: "/var/lib/privateer"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/media", cfg.Library.Root)
	assert.Equal(t, "/var/lib/privateer", cfg.Storage.StateDir)
	assert.Equal(t, filepath.Join("/var/lib/privateer", "queue.json"), cfg.QueuePath())

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 2, cfg.Acquire.Workers)
	assert.Equal(t, 4, cfg.Acquire.AttemptCeiling)
	assert.Equal(t, 5*time.Second, cfg.Acquire.RetryBackoff)
	assert.Equal(t, "yt-dlp", cfg.Fetch.Tool)
	assert.Equal(t, "ffmpeg", cfg.Transform.FFmpeg)
	assert.Equal(t, 23, cfg.Transform.CRF)
	assert.Equal(t, 2000*bytesize.MB, cfg.Kinds.Film.TargetIdeal)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Acquire.Workers)
	assert.Equal(t, "yt-dlp", cfg.Fetch.Tool)
	require.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
library:
  root: "/srv/media"
acquire:
  workers: 1
`)
	t.Setenv("PRIVATEER_ACQUIRE_WORKERS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Acquire.Workers)
}

func TestLoad_DecodeHooks(t *testing.T) {
	path := writeConfig(t, `
library:
  root: "/srv/media"
acquire:
  retry_backoff: "10s"
kinds:
  film:
    min_bytes: "250MB"
    transform_ceiling: "8GB"
    target_min: "1000MB"
    target_max: "5000MB"
    target_ideal: "2000MB"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Acquire.RetryBackoff)
	assert.Equal(t, 250*bytesize.MB, cfg.Kinds.Film.MinBytes)
	assert.Equal(t, 8*bytesize.GB, cfg.Kinds.Film.TransformCeiling)
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
library:
  root: "/srv/media"
logging:
  level: "LOUD"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestValidate_CrossFieldRules(t *testing.T) {
	cfg := Default()
	cfg.Acquire.ImmediateRetries = cfg.Acquire.AttemptCeiling
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immediate_retries")

	cfg = Default()
	cfg.Kinds.Episode.TargetIdeal = cfg.Kinds.Episode.TargetMax + 1
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_ideal")

	cfg = Default()
	cfg.Kinds.Short.MinBytes = cfg.Kinds.Short.TransformCeiling
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_bytes")
}

func TestKindPoliciesFor(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.Kinds.Episode, cfg.Kinds.For(model.KindEpisode))
	assert.Equal(t, cfg.Kinds.Short, cfg.Kinds.For(model.KindShort))
	assert.Equal(t, cfg.Kinds.Film, cfg.Kinds.For(model.KindFilm))
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Library.Root = "/srv/media"
	cfg.Library.WriteNFO = true
	cfg.Acquire.Workers = 3
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/media", loaded.Library.Root)
	assert.True(t, loaded.Library.WriteNFO)
	assert.Equal(t, 3, loaded.Acquire.Workers)
	assert.Equal(t, cfg.Kinds.Film.TargetIdeal, loaded.Kinds.Film.TargetIdeal)
}
