// Package config loads runtime settings from defaults, an optional YAML file
// and MIDI2DELUGE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Config holds all runtime configuration
type Config struct {
	TemplatePath string `yaml:"template"`    // Base song the clips are injected into
	OutputDir    string `yaml:"output_dir"`  // Where finished songs are written
	MIDIDir      string `yaml:"midi_dir"`    // Where transcribed MIDI files are written
	Port         int    `yaml:"port"`        // API server port
	BasicPitch   string `yaml:"basic_pitch"` // basic-pitch executable
	Separate     bool   `yaml:"separate"`    // One song per input instead of one combined song
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		TemplatePath: "data/deluge_songs/base.XML",
		OutputDir:    "data/deluge_songs",
		MIDIDir:      "data/midi",
		Port:         8080,
		BasicPitch:   "basic-pitch",
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.TemplatePath = envStr("MIDI2DELUGE_TEMPLATE", cfg.TemplatePath)
	cfg.OutputDir = envStr("MIDI2DELUGE_OUTPUT_DIR", cfg.OutputDir)
	cfg.MIDIDir = envStr("MIDI2DELUGE_MIDI_DIR", cfg.MIDIDir)
	cfg.Port = envInt("MIDI2DELUGE_PORT", cfg.Port)
	cfg.BasicPitch = envStr("MIDI2DELUGE_BASIC_PITCH", cfg.BasicPitch)
	cfg.Separate = envBool("MIDI2DELUGE_SEPARATE", cfg.Separate)

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
