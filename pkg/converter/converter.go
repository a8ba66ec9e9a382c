package converter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/midi2deluge/pkg/deluge"
	"github.com/james-see/midi2deluge/pkg/transcribe"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatClips   Format = "clips"
	FormatDeluge  Format = "deluge"
	FormatAudio   Format = "audio"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".json":
		return FormatClips
	case ".xml":
		return FormatDeluge
	}
	for _, a := range transcribe.AudioExtensions {
		if ext == a {
			return FormatAudio
		}
	}
	return FormatUnknown
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	switch string(data[:4]) {
	case "RIFF", "fLaC", "OggS", "FORM":
		return FormatAudio
	}
	if string(data[:3]) == "ID3" {
		return FormatAudio
	}

	trimmed := strings.TrimLeft(string(data), " \t\r\n\ufeff")
	if trimmed == "" {
		return FormatUnknown
	}
	switch trimmed[0] {
	case '[', '{':
		return FormatClips
	case '<':
		return FormatDeluge
	}
	return FormatUnknown
}

// ClipsFromFile reads clips from a MIDI file or a JSON clip list
func (c *Converter) ClipsFromFile(path string) ([]deluge.Clip, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		format = DetectFormatFromContent(data)
	}

	switch format {
	case FormatMIDI:
		return c.midi.ParseMIDIFile(path)
	case FormatClips:
		return deluge.ReadClipsFile(path)
	default:
		return nil, fmt.Errorf("unsupported input format %s: %s", format, path)
	}
}

// ConvertFiles merges the clips of every input into one song written to
// outputPath. Inputs that fail to parse are logged and skipped. An empty
// outputPath leaves the song next to the template.
func (c *Converter) ConvertFiles(inputs []string, outputPath string) (*ConversionResult, error) {
	result := &ConversionResult{Inputs: inputs}

	var all []deluge.Clip
	for _, input := range inputs {
		clips, err := c.ClipsFromFile(input)
		if err != nil {
			c.logger.Printf("Failed to convert %s: %v", input, err)
			result.Skipped = append(result.Skipped, input)
			continue
		}
		if len(clips) == 0 {
			c.logger.Printf("No clips in %s", input)
			result.Skipped = append(result.Skipped, input)
			continue
		}
		c.logger.Printf("Converted %s to %d clips", input, len(clips))
		all = append(all, clips...)
	}

	if len(all) == 0 {
		return result, errors.New("no clip data generated from inputs")
	}

	return c.inject(all, outputPath, result)
}

// ConvertClips writes clips into a new song at outputPath
func (c *Converter) ConvertClips(clips []deluge.Clip, outputPath string) (*ConversionResult, error) {
	return c.inject(clips, outputPath, &ConversionResult{})
}

func (c *Converter) inject(clips []deluge.Clip, outputPath string, result *ConversionResult) (*ConversionResult, error) {
	inj := deluge.NewInjector(c.templatePath)
	inj.SetLogger(c.logger)

	generated, err := inj.Inject(clips)
	if err != nil {
		return result, fmt.Errorf("injection failed: %w", err)
	}

	result.Clips = len(clips)
	result.Presets = inj.UsedPresets()
	result.Colors = inj.UsedColors()
	result.Output = generated

	if outputPath != "" && filepath.Clean(outputPath) != filepath.Clean(generated) {
		if err := moveFile(generated, outputPath); err != nil {
			return result, fmt.Errorf("failed to move %s to %s: %w", generated, outputPath, err)
		}
		result.Output = outputPath
	}

	if info, err := os.Stat(result.Output); err == nil {
		result.Size = info.Size()
	}
	return result, nil
}

// ConvertSeparate writes one song per input into outDir, named after the
// input. It keeps going when an input fails and returns the joined errors.
func (c *Converter) ConvertSeparate(inputs []string, outDir string) ([]*ConversionResult, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var results []*ConversionResult
	var errs []error
	for _, input := range inputs {
		output := filepath.Join(outDir, SanitizeFilename(stem(input))+".xml")
		res, err := c.ConvertFiles([]string{input}, output)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", input, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Render injects clips into a private copy of the template and returns the
// song. Each call gets its own injector and directory, so calls may run
// concurrently.
func (c *Converter) Render(clips []deluge.Clip) ([]byte, *ConversionResult, error) {
	tmpl, err := os.ReadFile(c.templatePath)
	if err != nil {
		return nil, nil, &deluge.TemplateLoadError{Path: c.templatePath, Cause: err}
	}

	dir, err := os.MkdirTemp("", "midi2deluge-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	scratch := filepath.Join(dir, filepath.Base(c.templatePath))
	if err := os.WriteFile(scratch, tmpl, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to copy template: %w", err)
	}

	inj := deluge.NewInjector(scratch)
	inj.SetLogger(c.logger)
	out, err := inj.Inject(clips)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read song: %w", err)
	}

	return data, &ConversionResult{
		Clips:   len(clips),
		Presets: inj.UsedPresets(),
		Colors:  inj.UsedColors(),
		Size:    int64(len(data)),
	}, nil
}

// SanitizeFilename replaces characters that are invalid in file names
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
}

// CombinedOutputName names the song built from inputs after the first
// input, with a _combined suffix.
func CombinedOutputName(inputs []string) string {
	if len(inputs) == 0 || stem(inputs[0]) == "" {
		return "combined_deluge_song.xml"
	}
	return SanitizeFilename(stem(inputs[0])) + "_combined.xml"
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> deluge",
		"clips -> deluge",
		"midi -> clips",
		"audio -> midi -> deluge",
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// moveFile renames src to dst, copying when they are on different devices
func moveFile(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
