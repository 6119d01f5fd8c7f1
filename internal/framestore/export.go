package framestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// exportVersion identifies the transportable document layout.
const exportVersion = 1

// ExportDocument is the transportable serialization of the full frame set.
type ExportDocument struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Frames     []CustomFrame `json:"frames"`
}

// ImportReport counts an import's outcomes. Partial imports are
// allowed: Imported successes are kept even when other records fail.
type ImportReport struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// Export serializes the full frame set to a transportable JSON document.
func Export(ctx context.Context, src Store) ([]byte, error) {
	frames, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export frames: %w", err)
	}

	doc := ExportDocument{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Frames:     frames,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export frames: %w", err)
	}
	return raw, nil
}

// Import restores frames from an exported document by re-inserting
// each record, counting successes independently of failures.
func Import(ctx context.Context, dst Store, raw []byte) (ImportReport, error) {
	var doc ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ImportReport{}, fmt.Errorf("import frames: parse document: %w", err)
	}
	if doc.Version != exportVersion {
		return ImportReport{}, fmt.Errorf("import frames: unsupported document version %d", doc.Version)
	}

	report := ImportReport{Total: len(doc.Frames)}
	for _, f := range doc.Frames {
		if _, err := dst.Add(ctx, f); err != nil {
			continue
		}
		report.Imported++
	}
	return report, nil
}
