package converter

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/james-see/midi2deluge/pkg/deluge"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDI constants
const (
	DelugePPQ   = 48 // Deluge ticks per quarter note
	DrumChannel = 9  // Channel 10, zero based
	MaxVelocity = 127

	liftValue = "40" // Standard lift
	ccValue   = "14" // Standard CC
)

// MIDIConverter reads MIDI files into clips
type MIDIConverter struct {
	destPPQ int
	logger  *log.Logger
}

// NewMIDIConverter creates a new MIDI converter
func NewMIDIConverter() *MIDIConverter {
	return &MIDIConverter{
		destPPQ: DelugePPQ,
		logger:  log.New(io.Discard, "", 0),
	}
}

// SetLogger sets the logger for per-track progress and warnings
func (m *MIDIConverter) SetLogger(l *log.Logger) {
	m.logger = l
}

// ParseMIDIFile reads a MIDI file and converts it to clips
func (m *MIDIConverter) ParseMIDIFile(filename string) ([]deluge.Clip, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI converts MIDI data to one clip per non-drum track and channel
func (m *MIDIConverter) ParseMIDI(data []byte) ([]deluge.Clip, error) {
	tracks, ppq, err := m.ReadTracks(data)
	if err != nil {
		return nil, err
	}
	return m.TracksToClips(tracks, ppq), nil
}

// ReadTracks extracts the notes of every track, split by channel, and the
// file's ticks per quarter note.
func (m *MIDIConverter) ReadTracks(data []byte) ([]Track, uint16, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	ppq := uint16(480)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ppq = mt.Resolution()
	}
	if ppq == 0 {
		return nil, 0, fmt.Errorf("failed to parse MIDI: zero ticks per quarter note")
	}

	var tracks []Track
	for i, track := range s.Tracks {
		tracks = append(tracks, readTrack(i+1, track)...)
	}
	return tracks, ppq, nil
}

// readTrack pairs note-ons with note-offs per channel and key, first in
// first out. Notes still sounding at the end of the track end there.
func readTrack(index int, track smf.Track) []Track {
	type key struct{ channel, note uint8 }

	byChannel := map[uint8][]Note{}
	open := map[key][]int{}
	var currentTick int64

	for _, ev := range track {
		currentTick += int64(ev.Delta)
		msg := ev.Message

		// Note On: 0x9n nn vv, Note Off: 0x8n nn vv
		if len(msg) < 3 {
			continue
		}
		status := msg[0]
		if status < 0x80 || status > 0x9F {
			continue
		}
		channel := status & 0x0F
		noteNum := msg[1]
		velocity := msg[2]
		k := key{channel, noteNum}

		if status >= 0x90 && velocity > 0 {
			byChannel[channel] = append(byChannel[channel], Note{
				Pitch:    noteNum,
				Velocity: velocity,
				Start:    currentTick,
				End:      -1,
			})
			open[k] = append(open[k], len(byChannel[channel])-1)
			continue
		}

		// Note Off, or Note On with velocity 0
		if pending := open[k]; len(pending) > 0 {
			byChannel[channel][pending[0]].End = currentTick
			open[k] = pending[1:]
		}
	}

	channels := make([]int, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, int(ch))
	}
	sort.Ints(channels)

	out := make([]Track, 0, len(channels))
	for _, ch := range channels {
		notes := byChannel[uint8(ch)]
		for i := range notes {
			if notes[i].End < 0 {
				notes[i].End = currentTick
			}
		}
		out = append(out, Track{Index: index, Channel: uint8(ch), Notes: notes})
	}
	return out
}

// TracksToClips converts tracks recorded at ppq into clips. Drum tracks and
// tracks without notes are skipped.
func (m *MIDIConverter) TracksToClips(tracks []Track, ppq uint16) []deluge.Clip {
	var clips []deluge.Clip
	for _, track := range tracks {
		if track.IsDrum() {
			m.logger.Printf("Skipping drum track %d", track.Index)
			continue
		}
		if len(track.Notes) == 0 {
			m.logger.Printf("No notes found in track %d, skipping", track.Index)
			continue
		}

		clip := m.trackToClip(track, int(ppq))
		m.logger.Printf("Processed track %d channel %d: length=%d ticks, %d note rows",
			track.Index, track.Channel+1, clip.Length, len(clip.NoteRows))
		clips = append(clips, clip)
	}
	return clips
}

func (m *MIDIConverter) trackToClip(track Track, ppq int) deluge.Clip {
	notes := append([]Note(nil), track.Notes...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Start < notes[j].Start })

	var maxTick int64
	lanes := map[uint8][]Note{}
	for _, n := range notes {
		if n.End > maxTick {
			maxTick = n.End
		}
		lanes[n.Pitch] = append(lanes[n.Pitch], n)
	}

	clipMax := scaleTicks(maxTick, ppq, m.destPPQ)

	pitches := make([]int, 0, len(lanes))
	for p := range lanes {
		pitches = append(pitches, int(p))
	}
	sort.Ints(pitches)

	rows := make([]deluge.NoteRow, 0, len(pitches))
	for _, p := range pitches {
		data, laneEnd := m.encodeLane(track.Index, lanes[uint8(p)], ppq)
		if laneEnd > clipMax {
			clipMax = laneEnd
		}
		rows = append(rows, deluge.NoteRow{Y: strconv.Itoa(p), NoteDataWithLift: data})
	}

	// A zero length clip is not playable; fall back to one bar
	if clipMax <= 0 {
		clipMax = int64(m.destPPQ * 4)
	}

	return deluge.Clip{NoteRows: rows, Length: int(clipMax)}
}

// encodeLane builds the noteDataWithLift string of one pitch and returns the
// last rescaled end tick.
func (m *MIDIConverter) encodeLane(trackIndex int, notes []Note, ppq int) (string, int64) {
	var b strings.Builder
	b.WriteString("0x")

	var laneEnd int64
	lastStart, lastEnd := int64(-1), int64(-1)
	for _, n := range notes {
		if n.Start <= lastStart {
			m.logger.Printf("Out of order MIDI: %d <= %d in track %d", n.Start, lastStart, trackIndex)
		}
		if n.Start < lastEnd {
			m.logger.Printf("Overlapping note: %d < %d in track %d", n.Start, lastEnd, trackIndex)
		}
		lastStart, lastEnd = n.Start, n.End

		start := scaleTicks(n.Start, ppq, m.destPPQ)
		dur := scaleTicks(n.End-n.Start, ppq, m.destPPQ)
		if start+dur > laneEnd {
			laneEnd = start + dur
		}

		b.WriteString(EncodeNote(start, dur, n.Velocity))
	}
	return b.String(), laneEnd
}

// EncodeNote renders one note event: start, duration, velocity, lift and CC.
// Velocity is capped at 127.
func EncodeNote(start, duration int64, velocity uint8) string {
	if velocity > MaxVelocity {
		velocity = MaxVelocity
	}
	return hexLZ32(start) + hexLZ32(duration) + fmt.Sprintf("%02X", velocity) + liftValue + ccValue
}

// hexLZ32 formats the low 32 bits of v as 8 upper case hex digits
func hexLZ32(v int64) string {
	return fmt.Sprintf("%08X", uint32(v))
}

// scaleTicks converts t from src to dst ticks per quarter, rounding half to even
func scaleTicks(t int64, src, dst int) int64 {
	return int64(math.RoundToEven(float64(t) * float64(dst) / float64(src)))
}
