package deluge

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTemplateName is the file name WriteDefaultTemplate uses
const DefaultTemplateName = "base.XML"

// DefaultTemplate is a minimal song with one prototype instrumentClip
//
//go:embed templates/base.XML
var DefaultTemplate []byte

// WriteDefaultTemplate writes DefaultTemplate into dir and returns its path.
// An existing file is left untouched.
func WriteDefaultTemplate(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create template directory: %w", err)
	}
	path := filepath.Join(dir, DefaultTemplateName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, DefaultTemplate, 0644); err != nil {
		return "", fmt.Errorf("failed to write template: %w", err)
	}
	return path, nil
}
