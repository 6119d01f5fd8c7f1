package framestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/snapstrip/internal/kvstore"
)

const (
	// LegacyFramePrefix namespaces frame records in the legacy flat
	// key-value collection.
	LegacyFramePrefix = "custom_frame:"

	// MigrationMarkerKey is the durable marker that makes migration
	// one-shot. It lives in the same flat document as the legacy records.
	MigrationMarkerKey = "custom_frames_migrated"
)

// MigrationReport summarizes a migration run. Total counts every
// legacy record seen, Imported those that reached the indexed store;
// the difference is unreadable records that were skipped.
type MigrationReport struct {
	Imported        int  `json:"imported"`
	Total           int  `json:"total"`
	AlreadyMigrated bool `json:"already_migrated"`
}

// Migrate performs the one-time copy of legacy flat-store frames into
// the indexed store and sets the durable marker.
//
// Idempotent two ways: with the marker present the whole run is a
// no-op, and without it re-inserts of already-copied ids are absorbed
// by the store's idempotent Add, so repeating a partial run never
// duplicates records. Unreadable legacy records are skipped per-record
// and the run continues.
func Migrate(ctx context.Context, legacy *kvstore.File, dst Store, logger *slog.Logger) (MigrationReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if legacy.Has(MigrationMarkerKey) {
		return MigrationReport{AlreadyMigrated: true}, nil
	}

	report := MigrationReport{}
	for _, key := range legacy.Keys(LegacyFramePrefix) {
		report.Total++

		raw, _ := legacy.GetRaw(key)
		var f CustomFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			logger.Warn("skipping unreadable legacy frame", "key", key, "error", err)
			continue
		}
		if f.ID == "" {
			// Fall back to the key suffix so a record without an
			// embedded id still keeps a stable identity.
			f.ID = strings.TrimPrefix(key, LegacyFramePrefix)
		}
		if err := f.Validate(); err != nil {
			logger.Warn("skipping invalid legacy frame", "key", key, "error", err)
			continue
		}

		if _, err := dst.Add(ctx, f); err != nil {
			return report, fmt.Errorf("migrate frame %q: %w", f.ID, err)
		}
		report.Imported++
	}

	if err := legacy.Set(MigrationMarkerKey, true); err != nil {
		return report, fmt.Errorf("set migration marker: %w", err)
	}

	logger.Info("legacy frame migration complete",
		"imported", report.Imported, "total", report.Total)
	return report, nil
}

// ForceMigrate is the diagnostic/recovery path: it clears the marker
// and the indexed store, then re-runs the migration from the legacy
// collection.
func ForceMigrate(ctx context.Context, legacy *kvstore.File, dst Store, logger *slog.Logger) (MigrationReport, error) {
	if err := legacy.Delete(MigrationMarkerKey); err != nil {
		return MigrationReport{}, fmt.Errorf("clear migration marker: %w", err)
	}
	if err := dst.Clear(ctx); err != nil {
		return MigrationReport{}, fmt.Errorf("clear frame store: %w", err)
	}
	return Migrate(ctx, legacy, dst, logger)
}
