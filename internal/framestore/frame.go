package framestore

import (
	"errors"
	"fmt"
	"time"
)

// SourceUserUpload marks frames created through the upload flow. Every
// custom frame carries it; built-in catalog frames never enter this store.
const SourceUserUpload = "user-upload"

// ErrNotFound reports a lookup for a frame id that does not exist.
var ErrNotFound = errors.New("custom frame not found")

// CustomFrame is a user-owned overlay image. Immutable except by
// delete; the id is globally unique and stable for the frame's
// lifetime, and is the lookup key embedded in template frame lists.
type CustomFrame struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageData []byte    `json:"image_data"` // raw image bytes, base64 in JSON
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
}

// Validate checks the fields a write requires. The id may be empty; Add
// assigns one.
func (f CustomFrame) Validate() error {
	if f.Name == "" {
		return errors.New("custom frame: empty name")
	}
	if len(f.ImageData) == 0 {
		return fmt.Errorf("custom frame %q: empty image data", f.Name)
	}
	if f.MimeType == "" {
		return fmt.Errorf("custom frame %q: empty mime type", f.Name)
	}
	return nil
}
