package framestore

import "log/slog"

// OpenWithFallback opens the SQLite store at path, degrading
// transparently to the in-memory backend when initialization fails.
//
// The backend switch is surfaced only through IsUsingFallback and the
// log line; it never reaches the end user. Frames added to the
// fallback live for the process lifetime only.
func OpenWithFallback(path string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := Open(path)
	if err != nil {
		logger.Warn("frame store backend unavailable, using in-memory fallback",
			"path", path, "error", err)
		return NewMemStore()
	}
	return s
}
