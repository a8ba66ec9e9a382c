package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"MIDI2DELUGE_TEMPLATE", "MIDI2DELUGE_OUTPUT_DIR", "MIDI2DELUGE_MIDI_DIR",
	"MIDI2DELUGE_PORT", "MIDI2DELUGE_BASIC_PITCH", "MIDI2DELUGE_SEPARATE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "data/deluge_songs/base.XML", cfg.TemplatePath)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.Separate)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "midi2deluge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("template: /songs/base.XML\nport: 9090\nseparate: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/songs/base.XML", cfg.TemplatePath)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Separate)
	assert.Equal(t, "data/deluge_songs", cfg.OutputDir, "unset keys keep defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "midi2deluge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9090\n"), 0644))

	t.Setenv("MIDI2DELUGE_PORT", "7070")
	t.Setenv("MIDI2DELUGE_TEMPLATE", "/env/base.XML")
	t.Setenv("MIDI2DELUGE_SEPARATE", "yes-please")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "/env/base.XML", cfg.TemplatePath)
	assert.False(t, cfg.Separate, "unparseable booleans are ignored")
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIDI2DELUGE_PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
