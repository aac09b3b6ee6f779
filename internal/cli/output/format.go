// Package output renders command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects how a command prints its result.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a -o flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Print writes data in the given format. Table output goes through the
// renderer; when the renderer has no rows, emptyMsg is printed instead.
func Print(w io.Writer, format Format, data any, renderer TableRenderer, emptyMsg string) error {
	switch format {
	case FormatJSON:
		return PrintJSON(w, data)
	case FormatYAML:
		return PrintYAML(w, data)
	default:
		if len(renderer.Rows()) == 0 && emptyMsg != "" {
			_, err := fmt.Fprintln(w, emptyMsg)
			return err
		}
		return PrintTable(w, renderer)
	}
}
