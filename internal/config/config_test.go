package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysOnDefaults(t *testing.T) {
	path := writeConfig(t, `
camera:
  device: /dev/video2
session:
  slot_count: 9
output_dir: /tmp/strips
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/video2", cfg.Camera.Device)
	assert.Equal(t, 9, cfg.Session.SlotCount)
	assert.Equal(t, "/tmp/strips", cfg.OutputDir)
	assert.Equal(t, 1280, cfg.Camera.Width, "unset fields keep defaults")
	assert.Equal(t, "snapstrip.db", cfg.Store.FramesDB)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "cameraa:\n  device: x\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"nine slots", func(c *Config) { c.Session.SlotCount = 9 }, true},
		{"bad slot count", func(c *Config) { c.Session.SlotCount = 5 }, false},
		{"zero viewport", func(c *Config) { c.Session.ViewportWidth = 0 }, false},
		{"negative camera", func(c *Config) { c.Camera.Height = -1 }, false},
		{"empty db path", func(c *Config) { c.Store.FramesDB = "" }, false},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPINHashing(t *testing.T) {
	hash, err := HashPIN("4321")
	require.NoError(t, err)

	auth := Auth{PINHash: hash}
	assert.True(t, auth.CheckPIN("4321"))
	assert.False(t, auth.CheckPIN("0000"))
	assert.False(t, Auth{}.CheckPIN("4321"), "no hash rejects everything")

	_, err = HashPIN("")
	assert.Error(t, err)
}
