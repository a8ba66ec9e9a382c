package deluge

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// rawClip mirrors Clip with pointers so absent keys can be told apart from
// zero values.
type rawClip struct {
	NoteRows *[]rawNoteRow `json:"note_rows"`
	Length   *int          `json:"length"`
}

type rawNoteRow struct {
	Y                *string `json:"y"`
	NoteDataWithLift *string `json:"noteDataWithLift"`
}

// DecodeClips parses the JSON clip list produced by upstream analysis.
// Missing keys and wrong types are reported as *InvalidClipDataError.
func DecodeClips(data []byte) ([]Clip, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &InvalidClipDataError{Clip: -1, Row: -1, Reason: "expected a JSON array of clips", Cause: err}
	}

	clips := make([]Clip, 0, len(items))
	for i, item := range items {
		var rc rawClip
		if err := json.Unmarshal(item, &rc); err != nil {
			return nil, &InvalidClipDataError{Clip: i, Row: -1, Reason: "malformed clip", Cause: err}
		}
		if rc.NoteRows == nil {
			return nil, &InvalidClipDataError{Clip: i, Row: -1, Field: "note_rows", Reason: "is missing"}
		}
		if rc.Length == nil {
			return nil, &InvalidClipDataError{Clip: i, Row: -1, Field: "length", Reason: "is missing"}
		}

		clip := Clip{Length: *rc.Length, NoteRows: make([]NoteRow, 0, len(*rc.NoteRows))}
		for j, row := range *rc.NoteRows {
			if row.Y == nil {
				return nil, &InvalidClipDataError{Clip: i, Row: j, Field: "y", Reason: "is missing"}
			}
			if row.NoteDataWithLift == nil {
				return nil, &InvalidClipDataError{Clip: i, Row: j, Field: "noteDataWithLift", Reason: "is missing"}
			}
			clip.NoteRows = append(clip.NoteRows, NoteRow{Y: *row.Y, NoteDataWithLift: *row.NoteDataWithLift})
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// ReadClipsFile reads and decodes a JSON clip file
func ReadClipsFile(path string) ([]Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clips file: %w", err)
	}
	return DecodeClips(data)
}

// EncodeClips renders clips in the same JSON shape DecodeClips accepts
func EncodeClips(clips []Clip) ([]byte, error) {
	if clips == nil {
		clips = []Clip{}
	}
	return json.MarshalIndent(clips, "", "  ")
}
