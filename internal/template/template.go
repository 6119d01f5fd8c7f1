// Package template manages saved frame combinations: a named, reusable
// list of frame references covering every slot in a strip.
//
// The local flat key-value document is the system of record; the remote
// template mirror (internal/gateway) is best-effort only. Frame
// references resolve against the built-in catalog and the custom frame
// store by exact id match only - a reference that matches nothing is an
// explicit not-found, never a fuzzy guess.
package template

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/snapstrip/internal/framestore"
	"github.com/roach88/snapstrip/internal/kvstore"
)

// templatesKey is the flat key holding the template list.
const templatesKey = "templates"

// Sentinel errors.
var (
	// ErrNotFound reports a template id that does not exist.
	ErrNotFound = errors.New("template not found")

	// ErrFrameRefNotFound reports a frame reference that matches
	// neither a catalog frame nor a custom frame id.
	ErrFrameRefNotFound = errors.New("frame reference not found")
)

// Frame is a built-in catalog frame: immutable, served from disk.
type Frame struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"` // path or URL to the overlay image
	CreatedAt time.Time `json:"created_at"`
}

// Template is a saved, named list of frame references for all slots.
// References may point at built-in or custom frame ids, resolved lazily
// at load time.
type Template struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FrameCount int       `json:"frame_count"` // 4 or 9
	FrameRefs  []string  `json:"frame_references"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the slot-count invariant: the reference list must
// cover exactly the 4 or 9 slots of one strip.
func (t Template) Validate() error {
	if t.Name == "" {
		return errors.New("template: empty name")
	}
	if t.FrameCount != 4 && t.FrameCount != 9 {
		return fmt.Errorf("template %q: frame count must be 4 or 9, got %d", t.Name, t.FrameCount)
	}
	if len(t.FrameRefs) != t.FrameCount {
		return fmt.Errorf("template %q: %d frame references for %d slots", t.Name, len(t.FrameRefs), t.FrameCount)
	}
	for i, ref := range t.FrameRefs {
		if ref == "" {
			return fmt.Errorf("template %q: empty frame reference at slot %d", t.Name, i)
		}
	}
	return nil
}

// Store persists templates in the flat key-value document.
type Store struct {
	kv *kvstore.File
}

// NewStore wraps the given key-value document.
func NewStore(kv *kvstore.File) *Store {
	return &Store{kv: kv}
}

// List returns all templates, newest first.
func (s *Store) List() ([]Template, error) {
	var templates []Template
	if _, err := s.kv.Get(templatesKey, &templates); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if templates == nil {
		templates = []Template{}
	}
	// Stored newest-first; keep the order stable on read.
	return templates, nil
}

// Create validates and saves a new template, assigning id and creation
// time, and returns the stored record.
func (s *Store) Create(name string, frameRefs []string) (Template, error) {
	t := Template{
		ID:         uuid.NewString(),
		Name:       name,
		FrameCount: len(frameRefs),
		FrameRefs:  append([]string(nil), frameRefs...),
		CreatedAt:  time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}

	templates, err := s.List()
	if err != nil {
		return Template{}, err
	}
	templates = append([]Template{t}, templates...)
	if err := s.kv.Set(templatesKey, templates); err != nil {
		return Template{}, fmt.Errorf("save template %q: %w", name, err)
	}
	return t, nil
}

// Delete removes the template with the given id.
func (s *Store) Delete(id string) error {
	templates, err := s.List()
	if err != nil {
		return err
	}
	kept := templates[:0]
	found := false
	for _, t := range templates {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return fmt.Errorf("template %q: %w", id, ErrNotFound)
	}
	if err := s.kv.Set(templatesKey, kept); err != nil {
		return fmt.Errorf("delete template %q: %w", id, err)
	}
	return nil
}

// Get returns the template with the given id.
func (s *Store) Get(id string) (Template, error) {
	templates, err := s.List()
	if err != nil {
		return Template{}, err
	}
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("template %q: %w", id, ErrNotFound)
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a template or frame name to a safe filename fragment.
// Names are NFKC-normalized first so visually equivalent Unicode forms
// produce the same slug.
func Slug(name string) string {
	s := strings.ToLower(norm.NFKC.String(name))
	s = slugUnsafe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ResolvedFrame is the outcome of resolving one frame reference: either
// a catalog file path or inline custom-frame bytes.
type ResolvedFrame struct {
	Name string
	URL  string // set for built-in frames
	Data []byte // set for custom frames
	Mime string
}

// Resolver resolves frame references against the built-in catalog and
// the custom frame store.
type Resolver struct {
	catalog map[string]Frame
	frames  framestore.Store
}

// NewResolver indexes the catalog by id. frames may be nil when no
// custom frame store is available.
func NewResolver(catalog []Frame, frames framestore.Store) *Resolver {
	idx := make(map[string]Frame, len(catalog))
	for _, f := range catalog {
		idx[f.ID] = f
	}
	return &Resolver{catalog: idx, frames: frames}
}

// Resolve maps one reference to a frame by exact id: catalog first,
// then the custom frame store. Anything else is ErrFrameRefNotFound.
func (r *Resolver) Resolve(ctx context.Context, ref string) (ResolvedFrame, error) {
	if f, ok := r.catalog[ref]; ok {
		return ResolvedFrame{Name: f.Name, URL: f.URL}, nil
	}
	if r.frames != nil {
		cf, err := r.frames.Get(ctx, ref)
		if err == nil {
			return ResolvedFrame{Name: cf.Name, Data: cf.ImageData, Mime: cf.MimeType}, nil
		}
		if !errors.Is(err, framestore.ErrNotFound) {
			return ResolvedFrame{}, fmt.Errorf("resolve %q: %w", ref, err)
		}
	}
	return ResolvedFrame{}, fmt.Errorf("reference %q: %w", ref, ErrFrameRefNotFound)
}

// ResolveAll resolves every reference of a template, failing on the
// first reference that matches nothing.
func (r *Resolver) ResolveAll(ctx context.Context, t Template) ([]ResolvedFrame, error) {
	out := make([]ResolvedFrame, 0, len(t.FrameRefs))
	for i, ref := range t.FrameRefs {
		f, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}
