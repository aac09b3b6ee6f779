package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/usr/bin/env bash\n"+script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func writeInput(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestReduce_ReplacesOriginalOnSuccess(t *testing.T) {
	// Last argument is the output path; emit something smaller than the input.
	bin := writeFakeFFmpeg(t, `
out="${@: -1}"
printf 'shrunk' > "$out"
`)
	input := writeInput(t, 4096)

	svc := NewFFmpeg(bin)
	size, err := svc.Reduce(context.Background(), input, Params{Preset: "medium", CRF: 23, AudioBitrate: "128k"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if size != int64(len("shrunk")) {
		t.Fatalf("size = %d, want %d", size, len("shrunk"))
	}
	data, err := os.ReadFile(input)
	if err != nil {
		t.Fatalf("read replaced file: %v", err)
	}
	if string(data) != "shrunk" {
		t.Fatalf("original was not replaced, content = %q", data)
	}
	if _, err := os.Stat(input + ".reduce.tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestReduce_FailureKeepsOriginalIntact(t *testing.T) {
	bin := writeFakeFFmpeg(t, `
out="${@: -1}"
printf 'partial' > "$out"
echo "Conversion failed: unsupported codec" >&2
exit 1
`)
	input := writeInput(t, 4096)

	svc := NewFFmpeg(bin)
	_, err := svc.Reduce(context.Background(), input, Params{Preset: "medium", CRF: 23, AudioBitrate: "128k"})
	if !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("err = %v, want ErrTransformFailed", err)
	}
	if !strings.Contains(err.Error(), "unsupported codec") {
		t.Fatalf("stderr detail missing from error: %v", err)
	}
	info, statErr := os.Stat(input)
	if statErr != nil {
		t.Fatalf("original missing after failed transform: %v", statErr)
	}
	if info.Size() != 4096 {
		t.Fatalf("original size = %d, want 4096", info.Size())
	}
	if _, statErr := os.Stat(input + ".reduce.tmp"); !os.IsNotExist(statErr) {
		t.Fatalf("partial encode left behind")
	}
}

func TestReduce_EmptyOutputIsFailure(t *testing.T) {
	bin := writeFakeFFmpeg(t, `
out="${@: -1}"
: > "$out"
`)
	input := writeInput(t, 4096)

	svc := NewFFmpeg(bin)
	_, err := svc.Reduce(context.Background(), input, Params{Preset: "medium", CRF: 23, AudioBitrate: "128k"})
	if !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("err = %v, want ErrTransformFailed", err)
	}
	if _, statErr := os.Stat(input + ".reduce.tmp"); !os.IsNotExist(statErr) {
		t.Fatalf("empty encode left behind")
	}
}

func TestReduce_ContextCancelKillsEncode(t *testing.T) {
	bin := writeFakeFFmpeg(t, `sleep 30`)
	input := writeInput(t, 4096)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	svc := NewFFmpeg(bin)
	_, err := svc.Reduce(ctx, input, Params{Preset: "medium", CRF: 23, AudioBitrate: "128k"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("encode was not killed promptly, took %s", elapsed)
	}
}

func TestReduce_MissingInputFails(t *testing.T) {
	bin := writeFakeFFmpeg(t, `exit 0`)
	svc := NewFFmpeg(bin)
	_, err := svc.Reduce(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), Params{Preset: "medium", CRF: 23, AudioBitrate: "128k"})
	if !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("err = %v, want ErrTransformFailed", err)
	}
}
