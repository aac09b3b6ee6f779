package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "json", want: FormatJSON},
		{input: "JSON", want: FormatJSON},
		{input: "yaml", want: FormatYAML},
		{input: "yml", want: FormatYAML},
		{input: "  table  ", want: FormatTable},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Name", "Status")
	table.AddRow("Modern Times (1936)", "completed")
	table.AddRow("Balablok", "pending")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "Modern Times (1936)")
	assert.Contains(t, out, "pending")
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValueTable(&buf, [][2]string{
		{"total", "4"},
		{"completed", "2"},
	}))

	out := buf.String()
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "completed")
}

func TestPrintDispatchesByFormat(t *testing.T) {
	data := map[string]int{"total": 3}
	table := NewTableData("Key")
	table.AddRow("total")

	var jsonBuf bytes.Buffer
	require.NoError(t, Print(&jsonBuf, FormatJSON, data, table, ""))
	assert.Contains(t, jsonBuf.String(), "\"total\": 3")

	var yamlBuf bytes.Buffer
	require.NoError(t, Print(&yamlBuf, FormatYAML, data, table, ""))
	assert.Contains(t, yamlBuf.String(), "total: 3")

	var emptyBuf bytes.Buffer
	require.NoError(t, Print(&emptyBuf, FormatTable, data, NewTableData("Key"), "nothing here"))
	assert.Equal(t, "nothing here\n", emptyBuf.String())
}
