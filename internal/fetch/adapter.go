// Package fetch defines the acquisition adapter boundary and the exec-based
// implementation that drives a yt-dlp compatible downloader.
package fetch

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrLocatorUnavailable classifies fetch failures where the adapter could
// not retrieve the locator. Wrapped errors carry the tool output.
var ErrLocatorUnavailable = errors.New("locator unavailable")

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// Request identifies one fetch attempt. Destination is the final artifact
// path; adapters must place the artifact exactly there.
type Request struct {
	Locator     string
	Destination string
	DisplayName string

	// Progress receives every output line the tool emits, including
	// carriage-return separated progress updates.
	Progress func(stream OutputStream, line string)

	// LogWriter, when set, receives a copy of every output line. Callers
	// point it at the per-job log file.
	LogWriter io.Writer

	// EchoOutput mirrors tool output to Stdout/Stderr for verbose runs.
	EchoOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Result reports an adapter's own view of the fetch. Size and success are
// advisory; verification re-checks the artifact independently.
type Result struct {
	SizeBytes int64
	Command   []string
}

// Adapter performs the actual byte transfer for a locator.
type Adapter interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}

// IsPermanent reports whether a fetch error looks unrecoverable for this
// locator, so immediate retries would be wasted. Substring hints only; the
// attempt ceiling remains the real bound.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	hints := []string{
		"404",
		"410",
		"not found",
		"no longer available",
		"has been removed",
		"does not exist",
		"is private",
		"private video",
		"unsupported url",
		"gone",
	}
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}
