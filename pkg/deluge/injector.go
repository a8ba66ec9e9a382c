package deluge

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"
)

// Structural paths and attribute names of the Deluge song schema
const (
	containerPath = ".//sessionClips"
	prototypeTag  = "instrumentClip"
	noteRowsPath  = ".//noteRows"
	noteRowTag    = "noteRow"

	attrSection    = "section"
	attrPresetName = "instrumentPresetName"
	attrColor      = "colourOffset"
	attrLength     = "length"
	attrY          = "y"
	attrNoteData   = "noteDataWithLift"

	xmlDeclaration = `version="1.0" encoding="UTF-8"`
)

// Injector builds songs from a template. It is not safe for concurrent use:
// allocation state belongs to the Inject call in progress.
type Injector struct {
	templatePath string
	rand         *rand.Rand
	logger       *log.Logger
	presets      *pool[string]
	colors       *pool[int]
}

// NewInjector creates an injector for the template at templatePath
func NewInjector(templatePath string) *Injector {
	return &Injector{
		templatePath: templatePath,
		rand:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:       log.New(io.Discard, "", 0),
		presets:      newPool("preset", presetCatalog),
		colors:       newPool("color", colorDomain()),
	}
}

// SetRand replaces the random source used for allocation
func (inj *Injector) SetRand(r *rand.Rand) {
	inj.rand = r
}

// SetLogger sets the logger for progress messages
func (inj *Injector) SetLogger(l *log.Logger) {
	inj.logger = l
}

// TemplatePath returns the template file path
func (inj *Injector) TemplatePath() string {
	return inj.templatePath
}

// OutputPath returns where Inject writes the song: OutputFilename in the
// template's directory.
func (inj *Injector) OutputPath() string {
	return filepath.Join(filepath.Dir(inj.templatePath), OutputFilename)
}

// LoadTemplate parses the template file into a fresh document
func (inj *Injector) LoadTemplate() (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(inj.templatePath); err != nil {
		inj.logger.Printf("Failed to load base XML: %v", err)
		return nil, &TemplateLoadError{Path: inj.templatePath, Cause: err}
	}
	if doc.Root() == nil {
		return nil, &TemplateLoadError{Path: inj.templatePath, Cause: fmt.Errorf("no root element")}
	}
	return doc, nil
}

// Inject writes one instrumentClip per clip into a copy of the template and
// returns the path of the written song. Nothing is written on failure.
func (inj *Injector) Inject(clips []Clip) (string, error) {
	if len(clips) > MaxClips {
		return "", &TooManyClipsError{Count: len(clips), Max: MaxClips}
	}

	inj.Reset()

	if err := Check(clips); err != nil {
		return "", err
	}

	doc, err := inj.build(clips)
	if err != nil {
		inj.logger.Printf("Failed to inject multiple clips: %v", err)
		return "", err
	}

	outputPath := inj.OutputPath()
	if err := writeDocument(doc, outputPath); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}

	inj.logger.Printf("Wrote song with %d clips to %s", len(clips), outputPath)
	return outputPath, nil
}

func (inj *Injector) build(clips []Clip) (*etree.Document, error) {
	doc, err := inj.LoadTemplate()
	if err != nil {
		return nil, err
	}

	container := doc.FindElement(containerPath)
	if container == nil {
		return nil, &MalformedTemplateError{Path: inj.templatePath, Element: "sessionClips"}
	}
	prototype := container.SelectElement(prototypeTag)
	if prototype == nil {
		return nil, &MalformedTemplateError{Path: inj.templatePath, Element: prototypeTag}
	}

	// The prototype is detached along with everything else in the container
	clearChildren(container)

	for i, clip := range clips {
		clone, err := inj.populate(prototype, clip)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		container.AddChild(clone)
	}

	setDeclaration(doc)
	doc.IndentTabs()
	return doc, nil
}

// populate returns a deep copy of prototype filled with clip's data and a
// fresh preset and color.
func (inj *Injector) populate(prototype *etree.Element, clip Clip) (*etree.Element, error) {
	clone := prototype.Copy()

	preset, err := inj.AllocatePreset()
	if err != nil {
		return nil, err
	}
	color, err := inj.AllocateColor()
	if err != nil {
		return nil, err
	}

	clone.CreateAttr(attrSection, DefaultSection)
	clone.CreateAttr(attrPresetName, preset)
	clone.CreateAttr(attrColor, strconv.Itoa(color))
	clone.CreateAttr(attrLength, strconv.Itoa(clip.Length))

	rows := clone.FindElement(noteRowsPath)
	if rows == nil {
		return nil, &MalformedTemplateError{Path: inj.templatePath, Element: "noteRows"}
	}
	clearChildren(rows)

	for _, nr := range clip.NoteRows {
		row := rows.CreateElement(noteRowTag)
		row.CreateAttr(attrY, nr.Y)
		row.CreateAttr(attrNoteData, nr.NoteDataWithLift)
	}

	return clone, nil
}

func clearChildren(e *etree.Element) {
	for len(e.Child) > 0 {
		e.RemoveChildAt(len(e.Child) - 1)
	}
}

// setDeclaration makes an explicit UTF-8 declaration the first token
func setDeclaration(doc *etree.Document) {
	for i := len(doc.Child) - 1; i >= 0; i-- {
		if pi, ok := doc.Child[i].(*etree.ProcInst); ok && pi.Target == "xml" {
			doc.RemoveChildAt(i)
		}
	}
	pi := doc.CreateProcInst("xml", xmlDeclaration)
	doc.RemoveChild(pi)
	doc.InsertChildAt(0, pi)
}

// writeDocument writes through a temp file in the target directory so a
// failed write never leaves a truncated song behind.
func writeDocument(doc *etree.Document, path string) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".output-*.xml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
