// Package converter turns MIDI files and clip lists into Deluge songs
package converter

import (
	"io"
	"log"
)

// Note is one MIDI note with absolute tick positions
type Note struct {
	Pitch    uint8 // MIDI note number (0-127)
	Velocity uint8 // Note-on velocity (1-127)
	Start    int64 // Note-on tick
	End      int64 // Note-off tick
}

// Track holds the notes of one channel of one MIDI track
type Track struct {
	Index   int   // Track number in the file, starting at 1
	Channel uint8 // MIDI channel (0-15)
	Notes   []Note
}

// IsDrum reports whether the track plays on the General MIDI drum channel
func (t Track) IsDrum() bool {
	return t.Channel == DrumChannel
}

// ConversionResult describes one written song
type ConversionResult struct {
	Inputs  []string
	Output  string
	Clips   int
	Presets []string
	Colors  []int
	Size    int64
	Skipped []string // Inputs that produced no clips or failed to parse
}

// Converter handles conversions into songs built from one template
type Converter struct {
	templatePath string
	midi         *MIDIConverter
	logger       *log.Logger
}

// New creates a Converter for the template at templatePath
func New(templatePath string) *Converter {
	logger := log.New(io.Discard, "", 0)
	midi := NewMIDIConverter()
	midi.SetLogger(logger)
	return &Converter{templatePath: templatePath, midi: midi, logger: logger}
}

// GetTemplate returns the template path
func (c *Converter) GetTemplate() string {
	return c.templatePath
}

// SetTemplate sets the template used for new songs
func (c *Converter) SetTemplate(templatePath string) {
	c.templatePath = templatePath
}

// SetLogger sets the logger for the converter and its MIDI reader
func (c *Converter) SetLogger(l *log.Logger) {
	c.logger = l
	c.midi.SetLogger(l)
}
