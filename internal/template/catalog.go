package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions are the file types the catalog serves as frames.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// LoadCatalog builds the built-in frame catalog from a directory of
// overlay images. Frame ids are the file basenames without extension,
// which keeps them stable across restarts; entries are sorted by id.
//
// A missing directory yields an empty catalog, not an error: a fresh
// install with only custom frames is a valid setup.
func LoadCatalog(dir string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Frame{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load frame catalog: %w", err)
	}

	var frames []Frame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !imageExtensions[ext] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		frames = append(frames, Frame{
			ID:        id,
			Name:      id,
			URL:       filepath.Join(dir, e.Name()),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].ID < frames[j].ID })
	return frames, nil
}
