// ABOUTME: Report sink: serializes the report to the requested files
// ABOUTME: Output path extension follows the format (.json / .md)
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/photo-critic/internal/config"
	"github.com/harper/photo-critic/internal/models"
)

// Write serializes the report to outputPath in the requested format and
// returns the paths written. "both" writes a .json and a .md next to each
// other.
func Write(r models.Report, outputPath, format string) ([]string, error) {
	var written []string

	if format == config.FormatJSON || format == config.FormatBoth {
		path := withSuffix(outputPath, ".json")
		data, err := RenderJSON(r)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	if format == config.FormatMarkdown || format == config.FormatBoth {
		path := withSuffix(outputPath, ".md")
		if err := os.WriteFile(path, RenderMarkdown(r), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	if len(written) == 0 {
		return nil, fmt.Errorf("invalid format: %s", format)
	}
	return written, nil
}

func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix
}
