package cli

import (
	"log/slog"

	"github.com/roach88/snapstrip/internal/config"
	"github.com/roach88/snapstrip/internal/framestore"
	"github.com/roach88/snapstrip/internal/kvstore"
	"github.com/roach88/snapstrip/internal/template"
)

// loadConfig resolves the effective configuration for a command.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// stores bundles the persistence handles a command needs.
type stores struct {
	Frames    framestore.Store
	Legacy    *kvstore.File
	Templates *template.Store
}

func (s *stores) Close() {
	if err := s.Frames.Close(); err != nil {
		slog.Error("error closing frame store", "error", err)
	}
}

// openStores opens the frame store (sqlite with in-memory fallback) and
// the legacy flat key-value document that holds templates and the
// migration marker.
func openStores(cfg config.Config) (*stores, error) {
	kv, err := kvstore.Open(cfg.Store.LegacyKV)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open key-value store", err)
	}
	frames := framestore.OpenWithFallback(cfg.Store.FramesDB, slog.Default())
	return &stores{
		Frames:    frames,
		Legacy:    kv,
		Templates: template.NewStore(kv),
	}, nil
}
