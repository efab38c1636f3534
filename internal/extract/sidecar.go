package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// SidecarExtractor reads a previously extracted statement from a JSON file
// next to the document: "statements/jan.pdf" reads "statements/jan.json".
// It lets a run be repeated offline, and hand-corrected extractions be fed back in.
type SidecarExtractor struct{}

// Name returns the extractor name.
func (s *SidecarExtractor) Name() string { return "json" }

// Extract reads the sidecar JSON for path.
func (s *SidecarExtractor) Extract(ctx context.Context, path string) (model.RawStatement, error) {
	if err := ctx.Err(); err != nil {
		return model.RawStatement{}, err
	}
	jsonPath := SidecarPath(path)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("reading sidecar: %w", err)
	}
	var raw model.RawStatement
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.RawStatement{}, fmt.Errorf("decoding sidecar %s: %w", jsonPath, err)
	}
	return stamp(raw, path, s.Name()), nil
}

// SidecarPath returns the JSON path paired with a document path.
func SidecarPath(path string) string {
	for _, ext := range []string{".pdf", ".PDF"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + ".json"
		}
	}
	return path + ".json"
}
