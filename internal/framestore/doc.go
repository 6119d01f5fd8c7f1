// Package framestore provides durable storage for user-uploaded custom
// frames.
//
// The primary backend is SQLite (one logical table keyed by frame id,
// WAL mode, single-writer pool). When SQLite initialization fails the
// store transparently falls back to an in-memory implementation behind
// the same interface; callers cannot tell which backend is live except
// through the IsUsingFallback diagnostic.
//
// # Invariants
//
//   - Every write is acknowledged success/failure; nothing is lost silently.
//   - Adds are idempotent per id (ON CONFLICT DO NOTHING), which makes
//     the legacy migration safely re-runnable.
//   - List order is deterministic: newest first, then id ascending.
//
// Migration from the legacy flat key-value collection lives in
// migrate.go; export/import of the full frame set lives in export.go.
package framestore
