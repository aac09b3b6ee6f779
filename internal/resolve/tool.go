package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Tool execs a search binary with the display name as its sole argument and
// reads a JSON candidate array from stdout:
//
//	[{"locator": "...", "display_name": "...", "declared_size_bytes": 123}]
type Tool struct {
	Binary        string
	Timeout       time.Duration
	MaxCandidates int
}

func NewTool(binary string, timeout time.Duration, maxCandidates int) *Tool {
	return &Tool{Binary: binary, Timeout: timeout, MaxCandidates: maxCandidates}
}

func (t *Tool) Resolve(ctx context.Context, displayName string) ([]Candidate, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.Binary, displayName)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("resolver %s failed: %w: %s", t.Binary, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("resolver %s returned empty output", t.Binary)
	}

	var candidates []Candidate
	if err := json.Unmarshal(stdout.Bytes(), &candidates); err != nil {
		return nil, fmt.Errorf("parse resolver output: %w", err)
	}

	usable := candidates[:0]
	for _, c := range candidates {
		if strings.TrimSpace(c.Locator) == "" {
			continue
		}
		usable = append(usable, c)
	}
	if t.MaxCandidates > 0 && len(usable) > t.MaxCandidates {
		usable = usable[:t.MaxCandidates]
	}
	return usable, nil
}
