package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeResolver(t *testing.T, script string) {
	t.Helper()
	fakeBin := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.MkdirAll(fakeBin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fakeBin, "fake-resolve"), []byte(script), 0o755))
	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))
}

func TestToolResolve_ParsesCandidates(t *testing.T) {
	fakeResolver(t, `#!/usr/bin/env bash
echo '[
  {"locator": "magnet:?xt=1", "display_name": "Modern Times 1080p", "declared_size_bytes": 2100000000},
  {"locator": "", "display_name": "broken entry"},
  {"locator": "magnet:?xt=2", "declared_size_bytes": 900000000}
]'
`)

	tool := NewTool("fake-resolve", 0, 0)
	candidates, err := tool.Resolve(context.Background(), "Modern Times (1936)")
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, "magnet:?xt=1", candidates[0].Locator)
	assert.Equal(t, int64(2100000000), candidates[0].DeclaredSizeBytes)
	assert.Equal(t, "magnet:?xt=2", candidates[1].Locator)
}

func TestToolResolve_CapsCandidates(t *testing.T) {
	fakeResolver(t, `#!/usr/bin/env bash
echo '[
  {"locator": "l1"}, {"locator": "l2"}, {"locator": "l3"}, {"locator": "l4"}
]'
`)

	tool := NewTool("fake-resolve", 0, 2)
	candidates, err := tool.Resolve(context.Background(), "Anything")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestToolResolve_EmptyArrayMeansNoCandidates(t *testing.T) {
	fakeResolver(t, `#!/usr/bin/env bash
echo '[]'
`)

	tool := NewTool("fake-resolve", 0, 0)
	candidates, err := tool.Resolve(context.Background(), "Nothing Here")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestToolResolve_FailureSurfacesStderr(t *testing.T) {
	fakeResolver(t, `#!/usr/bin/env bash
echo "index unreachable" >&2
exit 3
`)

	tool := NewTool("fake-resolve", 0, 0)
	_, err := tool.Resolve(context.Background(), "Whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unreachable")
}

func TestToolResolve_RejectsEmptyQuery(t *testing.T) {
	tool := NewTool("fake-resolve", 0, 0)
	_, err := tool.Resolve(context.Background(), "  ")
	require.Error(t, err)
}
