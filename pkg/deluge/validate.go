package deluge

// Validate reports whether clips can be injected. It has no side effects.
func Validate(clips []Clip) bool {
	return Check(clips) == nil
}

// Check returns the first structural problem in clips as an
// *InvalidClipDataError, or a *TooManyClipsError when there are more clips
// than presets.
//
// A Clip value always carries its fields, so only nil note rows count as
// missing. Zero lengths and empty strings are written through as given;
// presence of JSON keys is checked by DecodeClips. Negative lengths are
// rejected.
func Check(clips []Clip) error {
	if len(clips) > MaxClips {
		return &TooManyClipsError{Count: len(clips), Max: MaxClips}
	}
	for i, clip := range clips {
		if clip.NoteRows == nil {
			return &InvalidClipDataError{Clip: i, Row: -1, Field: "note_rows", Reason: "is missing"}
		}
		if clip.Length < 0 {
			return &InvalidClipDataError{Clip: i, Row: -1, Field: "length", Reason: "must not be negative"}
		}
	}
	return nil
}

// ValidateJSON reports whether data is a JSON clip list that can be
// injected: every key present with the right type, within the catalog size.
func ValidateJSON(data []byte) bool {
	_, err := CheckJSON(data)
	return err == nil
}

// CheckJSON decodes data and checks the result, returning the clips
func CheckJSON(data []byte) ([]Clip, error) {
	clips, err := DecodeClips(data)
	if err != nil {
		return nil, err
	}
	if err := Check(clips); err != nil {
		return nil, err
	}
	return clips, nil
}
