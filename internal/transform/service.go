// Package transform shrinks oversized artifacts with an ffmpeg re-encode.
// The transform is strictly best-effort: callers keep the verified original
// whenever it fails.
package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// ErrTransformFailed classifies a failed shrink pass. Never fatal to a job.
var ErrTransformFailed = errors.New("transform failed")

// Params selects the encode settings for one reduction.
type Params struct {
	Preset       string
	CRF          int
	AudioBitrate string
}

// Service applies a size reduction in place.
type Service interface {
	Reduce(ctx context.Context, path string, params Params) (int64, error)
}

// FFmpeg re-encodes to H.264/AAC in an MP4 container with faststart, writing
// to a temp file next to the original and renaming over it on success.
type FFmpeg struct {
	Binary string
}

func NewFFmpeg(binary string) *FFmpeg {
	return &FFmpeg{Binary: binary}
}

func (f *FFmpeg) Reduce(ctx context.Context, path string, params Params) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: input: %v", ErrTransformFailed, err)
	}

	// The .tmp suffix keeps indexers away from the half-written encode; the
	// muxer is forced explicitly since the name carries no .mp4 extension.
	out := path + ".reduce.tmp"
	args := []string{
		"-y",
		"-i", path,
		"-c:v", "libx264",
		"-preset", params.Preset,
		"-crf", strconv.Itoa(params.CRF),
		"-c:a", "aac",
		"-b:a", params.AudioBitrate,
		"-movflags", "+faststart",
		"-nostats",
		"-loglevel", "error",
		"-f", "mp4",
		out,
	}

	cmd := exec.CommandContext(ctx, f.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %s: %v: %s", ErrTransformFailed, f.Binary, err, truncate(stderr.String(), 1200))
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return 0, fmt.Errorf("%w: %s produced no output", ErrTransformFailed, f.Binary)
	}
	if err := os.Rename(out, path); err != nil {
		_ = os.Remove(out)
		return 0, fmt.Errorf("%w: replace original: %v", ErrTransformFailed, err)
	}
	return info.Size(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
