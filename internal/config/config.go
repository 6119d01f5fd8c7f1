// Package config loads and validates the application configuration
// from a YAML file, filling unset fields with defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Camera configures the capture device.
type Camera struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Store configures the persistence paths.
type Store struct {
	// FramesDB is the sqlite database holding custom frames.
	FramesDB string `yaml:"frames_db"`
	// LegacyKV is the flat key-value file used by earlier releases and
	// still used for templates and the migration marker.
	LegacyKV string `yaml:"legacy_kv"`
	// CatalogDir holds the built-in frame images.
	CatalogDir string `yaml:"catalog_dir"`
}

// Gateway configures the remote composition service.
type Gateway struct {
	URL string `yaml:"url"`
}

// Auth configures admin access.
type Auth struct {
	// PINHash is the bcrypt hash of the admin PIN. Empty disables login.
	PINHash string `yaml:"pin_hash"`
}

// Session configures capture session defaults.
type Session struct {
	SlotCount      int `yaml:"slot_count"`
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
}

// Server configures the local HTTP API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Camera    Camera  `yaml:"camera"`
	Store     Store   `yaml:"store"`
	Gateway   Gateway `yaml:"gateway"`
	Auth      Auth    `yaml:"auth"`
	Session   Session `yaml:"session"`
	Server    Server  `yaml:"server"`
	OutputDir string  `yaml:"output_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Camera:    Camera{Device: "", Width: 1280, Height: 720},
		Store:     Store{FramesDB: "snapstrip.db", LegacyKV: "snapstrip.kv.json", CatalogDir: "frames"},
		Session:   Session{SlotCount: 4, ViewportWidth: 1280, ViewportHeight: 720},
		Server:    Server{Addr: "127.0.0.1:8487"},
		OutputDir: ".",
	}
}

// Load reads path, overlays it on the defaults, and validates the
// result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Session.SlotCount != 4 && c.Session.SlotCount != 9 {
		return fmt.Errorf("session.slot_count must be 4 or 9, got %d", c.Session.SlotCount)
	}
	if c.Session.ViewportWidth <= 0 || c.Session.ViewportHeight <= 0 {
		return fmt.Errorf("session viewport must be positive, got %dx%d",
			c.Session.ViewportWidth, c.Session.ViewportHeight)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Store.FramesDB == "" {
		return errors.New("store.frames_db must not be empty")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}

// HashPIN produces the bcrypt hash to store in auth.pin_hash.
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("empty pin")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPIN reports whether pin matches the stored hash. A config with
// no hash rejects every pin.
func (a Auth) CheckPIN(pin string) bool {
	if a.PINHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.PINHash), []byte(pin)) == nil
}
