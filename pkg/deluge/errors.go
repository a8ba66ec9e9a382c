package deluge

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is against the typed errors below
var (
	ErrExhausted         = errors.New("allocation exhausted")
	ErrTooManyClips      = errors.New("too many clips")
	ErrTemplateLoad      = errors.New("template load failed")
	ErrMalformedTemplate = errors.New("malformed template")
	ErrInvalidClipData   = errors.New("invalid clip data")
)

// ExhaustedError reports that every value of a pool has been handed out
type ExhaustedError struct {
	Resource string // "preset" or "color"
	Size     int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no more unique %ss available (all %d in use)", e.Resource, e.Size)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// TooManyClipsError is returned before any I/O when the input exceeds the
// preset catalog.
type TooManyClipsError struct {
	Count int
	Max   int
}

func (e *TooManyClipsError) Error() string {
	return fmt.Sprintf("too many clips (%d). Maximum allowed: %d", e.Count, e.Max)
}

func (e *TooManyClipsError) Is(target error) bool {
	return target == ErrTooManyClips
}

// TemplateLoadError wraps a failure to read or parse the template file
type TemplateLoadError struct {
	Path  string
	Cause error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("failed to load template %s: %v", e.Path, e.Cause)
}

func (e *TemplateLoadError) Unwrap() error {
	return e.Cause
}

func (e *TemplateLoadError) Is(target error) bool {
	return target == ErrTemplateLoad
}

// MalformedTemplateError means the template parsed but lacks a required element
type MalformedTemplateError struct {
	Path    string
	Element string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("template %s: could not find %s element", e.Path, e.Element)
}

func (e *MalformedTemplateError) Is(target error) bool {
	return target == ErrMalformedTemplate
}

// InvalidClipDataError describes the first structural problem found in the
// input. Row is -1 when the problem is on the clip itself.
type InvalidClipDataError struct {
	Clip   int
	Row    int
	Field  string
	Reason string
	Cause  error
}

func (e *InvalidClipDataError) Error() string {
	loc := fmt.Sprintf("clip %d", e.Clip)
	switch {
	case e.Clip < 0:
		loc = "input"
	case e.Row >= 0:
		loc = fmt.Sprintf("clip %d note row %d", e.Clip, e.Row)
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid clip data at %s: %s", loc, e.Reason)
	}
	return fmt.Sprintf("invalid clip data at %s: %s %s", loc, e.Field, e.Reason)
}

func (e *InvalidClipDataError) Unwrap() error {
	return e.Cause
}

func (e *InvalidClipDataError) Is(target error) bool {
	return target == ErrInvalidClipData
}
