package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Tool runs a yt-dlp compatible binary. The tool downloads straight to the
// destination path; its own partial files (.part) live next to it until the
// tool renames them.
type Tool struct {
	Binary    string
	ExtraArgs []string

	// Timeout bounds one attempt. Zero means the attempt only ends with the
	// run context.
	Timeout time.Duration
}

func NewTool(binary string, extraArgs []string, timeout time.Duration) *Tool {
	return &Tool{Binary: binary, ExtraArgs: extraArgs, Timeout: timeout}
}

// ToolStatus is the PATH lookup result for one external binary.
type ToolStatus struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Found bool   `json:"found"`
}

// CheckDependencies resolves each binary on PATH. Empty names are skipped, so
// callers can pass optional tools straight from config.
func CheckDependencies(binaries ...string) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(binaries))
	for _, name := range binaries {
		if strings.TrimSpace(name) == "" {
			continue
		}
		status := ToolStatus{Name: name}
		if path, err := exec.LookPath(name); err == nil {
			status.Found = true
			status.Path = path
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (t *Tool) Fetch(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Locator) == "" {
		return Result{}, fmt.Errorf("locator is required")
	}
	if strings.TrimSpace(req.Destination) == "" {
		return Result{}, fmt.Errorf("destination is required")
	}
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return Result{}, fmt.Errorf("create destination directory: %w", err)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	args := []string{
		"--no-playlist",
		"--newline",
		"-o", req.Destination,
	}
	args = append(args, t.ExtraArgs...)
	args = append(args, req.Locator)
	command := append([]string{t.Binary}, args...)

	if err := t.run(ctx, args, req); err != nil {
		if ctx.Err() != nil {
			return Result{Command: command}, ctx.Err()
		}
		return Result{Command: command}, fmt.Errorf("%w: %v", ErrLocatorUnavailable, err)
	}

	var size int64
	if info, err := os.Stat(req.Destination); err == nil {
		size = info.Size()
	}
	return Result{SizeBytes: size, Command: command}, nil
}

func (t *Tool) run(ctx context.Context, args []string, req Request) error {
	cmd := exec.CommandContext(ctx, t.Binary, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", t.Binary, err)
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader, echoW io.Writer) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			appendLimited(&outBuf, &errBuf, stream, line)
			if req.LogWriter != nil {
				_, _ = io.WriteString(req.LogWriter, line+"\n")
			}
			mu.Unlock()

			if req.EchoOutput && echoW != nil {
				_, _ = io.WriteString(echoW, line+"\n")
			}
			if req.Progress != nil {
				req.Progress(stream, line)
			}
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe, req.Stdout)
	go read(StreamStderr, stderrPipe, req.Stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Errorf("%s failed: %w: %s", t.Binary, err,
			truncate(strings.TrimSpace(errBuf.String()+"\n"+outBuf.String()), 1200))
	}
	return nil
}

// splitByNewlineOrCR treats both \n and \r as line boundaries, so
// carriage-return progress updates surface as individual lines.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// appendLimited keeps the first 8KB per stream for error reporting.
func appendLimited(outBuf, errBuf *strings.Builder, stream OutputStream, line string) {
	const maxKeep = 8192
	b := outBuf
	if stream == StreamStderr {
		b = errBuf
	}
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	remain := maxKeep - b.Len()
	if len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
