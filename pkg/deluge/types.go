// Package deluge writes note data into Synthstrom Deluge song XML by cloning
// the instrument clip of a template song.
package deluge

// NoteRow is one pitch lane of a clip
type NoteRow struct {
	Y                string `json:"y"`                // MIDI pitch, string encoded
	NoteDataWithLift string `json:"noteDataWithLift"` // Encoded note events, passed through as-is
}

// Clip is one track of note data destined for one instrumentClip element
type Clip struct {
	NoteRows []NoteRow `json:"note_rows"`
	Length   int       `json:"length"` // Deluge ticks (48 per quarter note)
}

// Color offsets are drawn from [MinColorOffset, MaxColorOffset]
const (
	MinColorOffset = -63
	MaxColorOffset = 63
)

// DefaultSection is written to every generated clip
const DefaultSection = "0"

// OutputFilename is the name of the generated song, next to the template
const OutputFilename = "output.xml"

// presetCatalog bounds the number of clips per song: every clip takes a
// distinct preset.
var presetCatalog = []string{
	"000 Rich Saw Bass",
	"001 Sync Bass",
	"002 Basic Square Bass",
	"003 Synthwave Bass",
	"005 Sweet Mono Bass",
	"006 Vaporwave Bass",
	"007 Detuned Saw Bass",
	"009 Hoover Bass",
	"019 Fizzy Strings",
	"026 Pw Organ",
	"030 Distant Porta",
	"040 Spacer Leader",
	"073 Piano",
	"074 Electric Piano",
	"076 Organ",
	"078 House",
}

// MaxClips is the most clips a single song can hold
var MaxClips = len(presetCatalog)

// Catalog returns a copy of the instrument preset names
func Catalog() []string {
	out := make([]string, len(presetCatalog))
	copy(out, presetCatalog)
	return out
}

func colorDomain() []int {
	colors := make([]int, 0, MaxColorOffset-MinColorOffset+1)
	for c := MinColorOffset; c <= MaxColorOffset; c++ {
		colors = append(colors, c)
	}
	return colors
}
