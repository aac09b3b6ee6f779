package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput points the logger at a buffer and returns a cleanup that
// restores the previous writer.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}
	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	defer SetLevel("INFO")

	SetLevel("WARN")
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestTextFormatIncludesAttrs(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	Info("job transition", "job_id", "abc123", "to", "completed")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "job transition")
	assert.Contains(t, out, "job_id=abc123")
	assert.Contains(t, out, "to=completed")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	defer SetFormat("text")

	SetFormat("json")
	Info("queue loaded", "jobs", 3)

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "queue loaded", record["msg"])
	assert.Equal(t, float64(3), record["jobs"])
}

func TestWithBindsAttributes(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	l := With("worker", 2)
	l.Info("fetch started")

	assert.Contains(t, buf.String(), "worker=2")
}

func TestInvalidLevelAndFormatIgnored(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("LOUD")
	SetFormat("xml")
	Info("still text")

	assert.Contains(t, buf.String(), "[INFO] still text")
}
