package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/afkcompanion/afkcli/stats"
	"gopkg.in/yaml.v3"
)

// ExportFormats are the encodings stats export supports
var ExportFormats = []string{"json", "yaml", "toml"}

// ExportStats writes the summary to w in the requested format
func ExportStats(w io.Writer, format string, summary stats.Summary) error {
	switch strings.ToLower(format) {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(summary); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q, expected one of %s", format, strings.Join(ExportFormats, ", "))
	}
}
