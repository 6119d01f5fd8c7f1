// Package server exposes the composition service over a local HTTP API:
// strip and frame composition, custom frame CRUD, template CRUD, and
// PIN login for the admin surface.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/snapstrip/internal/artifact"
	"github.com/roach88/snapstrip/internal/compositor"
	"github.com/roach88/snapstrip/internal/config"
	"github.com/roach88/snapstrip/internal/framestore"
	"github.com/roach88/snapstrip/internal/template"
)

// maxBodyBytes bounds request bodies; frames and strips are image
// payloads, so the limit is generous.
const maxBodyBytes = 32 << 20

// Server holds the API dependencies and the router.
type Server struct {
	router    *mux.Router
	frames    framestore.Store
	templates *template.Store
	auth      config.Auth
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// Options configures a Server.
type Options struct {
	Frames    framestore.Store
	Templates *template.Store
	Auth      config.Auth
	OutputDir string
	Logger    *slog.Logger
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		router:    mux.NewRouter(),
		frames:    opts.Frames,
		templates: opts.Templates,
		auth:      opts.Auth,
		outputDir: opts.OutputDir,
		logger:    opts.Logger,
		now:       time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/compose", s.handleComposeStrip).Methods(http.MethodPost)
	api.HandleFunc("/compose/frame", s.handleComposeFrame).Methods(http.MethodPost)
	api.HandleFunc("/strips", s.handleUploadStrip).Methods(http.MethodPost)

	api.HandleFunc("/frames", s.handleListFrames).Methods(http.MethodGet)
	api.HandleFunc("/frames", s.handleAddFrame).Methods(http.MethodPost)
	api.HandleFunc("/frames/{id}", s.handleGetFrame).Methods(http.MethodGet)
	api.HandleFunc("/frames/{id}", s.handleDeleteFrame).Methods(http.MethodDelete)

	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleCreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}", s.handleDeleteTemplate).Methods(http.MethodDelete)

	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	s.router.ServeHTTP(w, r)
}

type composeStripRequest struct {
	Photos         [][]byte  `json:"photos"`
	ExposureValues []float64 `json:"exposureValues"`
}

type composeFrameRequest struct {
	Photo    []byte  `json:"photo"`
	Frame    []byte  `json:"frame,omitempty"`
	Exposure float64 `json:"exposure"`
	Mirror   bool    `json:"mirror"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type imageResponse struct {
	Image []byte `json:"image"`
}

func (s *Server) handleComposeStrip(w http.ResponseWriter, r *http.Request) {
	var req composeStripRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.ExposureValues) > 0 && len(req.ExposureValues) != len(req.Photos) {
		s.error(w, http.StatusBadRequest,
			fmt.Errorf("%d exposure values for %d photos", len(req.ExposureValues), len(req.Photos)))
		return
	}
	photos := make([]image.Image, 0, len(req.Photos))
	for i, data := range req.Photos {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			s.error(w, http.StatusBadRequest, fmt.Errorf("photo %d: %w", i, err))
			return
		}
		photos = append(photos, img)
	}

	strip, err := compositor.ComposeStrip(photos, compositor.StripOptions{})
	if err != nil {
		s.error(w, http.StatusBadRequest, err)
		return
	}
	s.png(w, strip)
}

func (s *Server) handleComposeFrame(w http.ResponseWriter, r *http.Request) {
	var req composeFrameRequest
	if !s.decode(w, r, &req) {
		return
	}
	photo, err := png.Decode(bytes.NewReader(req.Photo))
	if err != nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("photo: %w", err))
		return
	}
	var frame image.Image
	if len(req.Frame) > 0 {
		frame, err = png.Decode(bytes.NewReader(req.Frame))
		if err != nil {
			s.error(w, http.StatusBadRequest, fmt.Errorf("frame: %w", err))
			return
		}
	}

	out, err := compositor.ApplyFrame(photo, frame, compositor.Options{
		ViewportWidth:  req.Width,
		ViewportHeight: req.Height,
		Exposure:       req.Exposure,
		Mirror:         req.Mirror,
	})
	if err != nil {
		s.error(w, http.StatusBadRequest, err)
		return
	}
	s.png(w, out)
}

func (s *Server) handleUploadStrip(w http.ResponseWriter, r *http.Request) {
	var req imageResponse
	if !s.decode(w, r, &req) {
		return
	}
	img, err := png.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("strip: %w", err))
		return
	}
	path, err := artifact.SavePNG(img, s.outputDir, s.now())
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("strip saved", "path", path)
	s.json(w, http.StatusCreated, map[string]string{"url": path})
}

func (s *Server) handleListFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := s.frames.List(r.Context())
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusOK, frames)
}

func (s *Server) handleAddFrame(w http.ResponseWriter, r *http.Request) {
	var f framestore.CustomFrame
	if !s.decode(w, r, &f) {
		return
	}
	if err := f.Validate(); err != nil {
		s.error(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.frames.Add(r.Context(), f)
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	stored, err := s.frames.Get(r.Context(), id)
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusCreated, stored)
}

func (s *Server) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	f, err := s.frames.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.json(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFrame(w http.ResponseWriter, r *http.Request) {
	if err := s.frames.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createTemplateRequest struct {
	Name      string   `json:"name"`
	FrameRefs []string `json:"frame_references"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.List()
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.templates.Create(req.Name, req.FrameRefs)
	if err != nil {
		s.error(w, http.StatusBadRequest, err)
		return
	}
	s.json(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(mux.Vars(r)["id"]); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.auth.CheckPIN(req.PIN) {
		s.logger.Warn("rejected login attempt")
		s.error(w, http.StatusUnauthorized, errors.New("invalid pin"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func (s *Server) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) png(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusOK, imageResponse{Image: buf.Bytes()})
}

func (s *Server) error(w http.ResponseWriter, status int, err error) {
	s.json(w, status, map[string]string{"error": err.Error()})
}

// storeError maps store sentinels to HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, framestore.ErrNotFound), errors.Is(err, template.ErrNotFound):
		s.error(w, http.StatusNotFound, err)
	default:
		s.error(w, http.StatusInternalServerError, err)
	}
}
