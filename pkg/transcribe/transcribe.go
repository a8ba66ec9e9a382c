// Package transcribe turns audio recordings into MIDI files with the external
// basic-pitch tool.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultBinary is the basic-pitch executable looked up on PATH
const DefaultBinary = "basic-pitch"

// MIDISuffix is appended by basic-pitch to the stem of every input
const MIDISuffix = "_basic_pitch.mid"

// ErrToolNotInstalled is returned when the transcription binary is missing
var ErrToolNotInstalled = errors.New("required tool not installed")

// AudioExtensions lists the inputs basic-pitch accepts
var AudioExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a", ".aiff", ".aif"}

// ProcessError represents a failed basic-pitch run
type ProcessError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Tool, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed (exit %d)", e.Tool, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// Options selects the optional basic-pitch outputs
type Options struct {
	SonifyMIDI       bool
	SaveModelOutputs bool
	SaveNotes        bool
}

// Transcriber runs basic-pitch
type Transcriber struct {
	Binary string
	logger *log.Logger
}

// New creates a Transcriber; an empty binary means DefaultBinary
func New(binary string) *Transcriber {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Transcriber{Binary: binary, logger: log.New(io.Discard, "", 0)}
}

// SetLogger sets the logger for progress messages
func (t *Transcriber) SetLogger(l *log.Logger) {
	t.logger = l
}

// Available reports whether the binary can be found
func (t *Transcriber) Available() error {
	if _, err := exec.LookPath(t.Binary); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrToolNotInstalled, t.Binary, err)
	}
	return nil
}

// Transcribe converts every audio file in inputDir and returns the MIDI
// files basic-pitch wrote to outputDir.
func (t *Transcriber) Transcribe(ctx context.Context, inputDir, outputDir string, opts Options) ([]string, error) {
	if err := t.Available(); err != nil {
		return nil, err
	}

	inputs, err := FindAudioFiles(inputDir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no audio files found in %s", inputDir)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create MIDI directory: %w", err)
	}

	// basic-pitch skips inputs whose outputs already exist
	if err := t.removeOutputs(outputDir, inputs, opts); err != nil {
		return nil, err
	}

	t.logger.Printf("Transcribing %d audio files with %s", len(inputs), t.Binary)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Binary, Args(outputDir, inputs, opts)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		pe := &ProcessError{Tool: t.Binary, Stderr: strings.TrimSpace(stderr.String()), Cause: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			pe.ExitCode = exitErr.ExitCode()
		}
		return nil, pe
	}
	t.logger.Printf("Transcription finished in %s", time.Since(start).Round(time.Millisecond))

	return FindMIDIFiles(outputDir)
}

func (t *Transcriber) removeOutputs(outputDir string, inputs []string, opts Options) error {
	for _, input := range inputs {
		for _, path := range OutputPaths(outputDir, input, opts) {
			err := os.Remove(path)
			switch {
			case err == nil:
				t.logger.Printf("Removed existing output file: %s", path)
			case !errors.Is(err, os.ErrNotExist):
				return fmt.Errorf("failed to remove existing output: %w", err)
			}
		}
	}
	return nil
}

// OutputPaths lists the files basic-pitch writes for input with opts
func OutputPaths(outputDir, input string, opts Options) []string {
	base := filepath.Base(input)
	prefix := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+"_basic_pitch")

	paths := []string{prefix + ".mid"}
	if opts.SonifyMIDI {
		paths = append(paths, prefix+"_sonif.wav")
	}
	if opts.SaveModelOutputs {
		paths = append(paths, prefix+".npz")
	}
	if opts.SaveNotes {
		paths = append(paths, prefix+".csv")
	}
	return paths
}

// Args builds the basic-pitch command line
func Args(outputDir string, inputs []string, opts Options) []string {
	args := []string{outputDir}
	args = append(args, inputs...)
	if opts.SonifyMIDI {
		args = append(args, "--sonify-midi")
	}
	if opts.SaveModelOutputs {
		args = append(args, "--save-model-outputs")
	}
	if opts.SaveNotes {
		args = append(args, "--save-note-events")
	}
	return args
}

// FindAudioFiles lists the audio files directly inside dir, sorted by name
func FindAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, a := range AudioExtensions {
			if ext == a {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// FindMIDIFiles lists the basic-pitch outputs in dir, sorted by name
func FindMIDIFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+MIDISuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// OriginalName recovers the audio file stem from a basic-pitch output path
func OriginalName(midiPath string) string {
	base := filepath.Base(midiPath)
	if strings.HasSuffix(base, MIDISuffix) {
		return strings.TrimSuffix(base, MIDISuffix)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
