// Package kvstore is a flat key-value document persisted as a single
// JSON file. It backs the template list, the legacy custom-frame
// collection, and the one-time migration marker.
//
// Writes go through a temp-file rename so a crash mid-write never
// corrupts the document. All methods are safe for concurrent use.
package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// File is a JSON-file-backed key-value store.
type File struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// Open loads the document at path, creating an empty store if the file
// does not exist yet. A corrupt document is an error; callers decide
// whether to fall back or surface it.
func Open(path string) (*File, error) {
	f := &File{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("kvstore: parse %s: %w", path, err)
	}
	return f, nil
}

// Get unmarshals the value stored under key into v. The boolean
// reports whether the key exists; an existing but unreadable value is
// an error.
func (f *File) Get(key string, v any) (bool, error) {
	f.mu.Lock()
	raw, ok := f.data[key]
	f.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("kvstore: decode key %q: %w", key, err)
	}
	return true, nil
}

// GetRaw returns the raw JSON stored under key, if present.
func (f *File) GetRaw(key string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	return raw, ok
}

// Set stores v under key and persists the whole document.
func (f *File) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode key %q: %w", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return f.flushLocked()
}

// SetRaw stores pre-encoded JSON under key and persists.
func (f *File) SetRaw(key string, raw json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return f.flushLocked()
}

// Delete removes key and persists. Deleting a missing key is a no-op.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked()
}

// Keys returns the sorted keys matching the given prefix. An empty
// prefix returns every key.
func (f *File) Keys(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key exists.
func (f *File) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// flushLocked writes the document atomically. Caller holds f.mu.
func (f *File) flushLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: encode document: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kvstore: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".kvstore-*")
	if err != nil {
		return fmt.Errorf("kvstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("kvstore: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kvstore: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kvstore: replace %s: %w", f.path, err)
	}
	return nil
}
