package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/forkfire/internal/metrics"
)

// WriteFile exports the final stats to a report file. The format is chosen
// by extension: .json for indented JSON, .yaml or .yml for YAML. Field
// names follow the JSON tags in both formats.
func WriteFile(path string, stats metrics.Stats) error {
	data, err := marshalStats(path, stats)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

func marshalStats(path string, stats metrics.Stats) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		// Round-trip through JSON so the YAML keys match the JSON tags.
		raw, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to convert report: %w", err)
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q (use .json, .yaml, or .yml)", ext)
	}
}
