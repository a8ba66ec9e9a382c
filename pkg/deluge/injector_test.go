package deluge

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultTemplateName)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func scenarioClips() []Clip {
	return []Clip{
		{NoteRows: []NoteRow{{Y: "72", NoteDataWithLift: "0x0000000000000018404014"}}, Length: 1536},
		{NoteRows: []NoteRow{{Y: "74", NoteDataWithLift: "0x0000000000000018404015"}}, Length: 2304},
	}
}

func makeClips(n int) []Clip {
	clips := make([]Clip, n)
	for i := range clips {
		clips[i] = Clip{
			NoteRows: []NoteRow{{Y: strconv.Itoa(60 + i), NoteDataWithLift: "0x0000000000000030644014"}},
			Length:   192,
		}
	}
	return clips
}

func loadClips(t *testing.T, path string) []*etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(path))
	container := doc.FindElement(containerPath)
	require.NotNil(t, container)
	return container.SelectElements(prototypeTag)
}

func TestInjectScenario(t *testing.T) {
	tmpl := writeTemplate(t, DefaultTemplate)
	inj := NewInjector(tmpl)

	out, err := inj.Inject(scenarioClips())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(tmpl), OutputFilename), out)

	clips := loadClips(t, out)
	require.Len(t, clips, 2)

	assert.NotEqual(t, clips[0].SelectAttrValue(attrPresetName, ""), clips[1].SelectAttrValue(attrPresetName, ""))
	assert.NotEqual(t, clips[0].SelectAttrValue(attrColor, ""), clips[1].SelectAttrValue(attrColor, ""))
	assert.Equal(t, "1536", clips[0].SelectAttrValue(attrLength, ""))
	assert.Equal(t, "2304", clips[1].SelectAttrValue(attrLength, ""))

	for i, want := range scenarioClips() {
		assert.Equal(t, DefaultSection, clips[i].SelectAttrValue(attrSection, ""))
		rows := clips[i].FindElements(noteRowsPath + "/" + noteRowTag)
		require.Len(t, rows, 1)
		assert.Equal(t, want.NoteRows[0].Y, rows[0].SelectAttrValue(attrY, ""))
		assert.Equal(t, want.NoteRows[0].NoteDataWithLift, rows[0].SelectAttrValue(attrNoteData, ""))
	}
}

func TestInjectWritesDeclaration(t *testing.T) {
	tmpl := writeTemplate(t, DefaultTemplate)
	out, err := NewInjector(tmpl).Inject(scenarioClips())
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`, string(data[:38]))
}

func TestInjectUniqueness(t *testing.T) {
	for _, n := range []int{0, 1, 2, 8, MaxClips} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			tmpl := writeTemplate(t, DefaultTemplate)
			out, err := NewInjector(tmpl).Inject(makeClips(n))
			require.NoError(t, err)

			clips := loadClips(t, out)
			require.Len(t, clips, n)

			catalog := map[string]bool{}
			for _, p := range Catalog() {
				catalog[p] = true
			}
			presets := map[string]bool{}
			colors := map[int]bool{}
			for _, c := range clips {
				p := c.SelectAttrValue(attrPresetName, "")
				assert.True(t, catalog[p], "preset %q not in catalog", p)
				assert.False(t, presets[p], "duplicate preset %q", p)
				presets[p] = true

				color, err := strconv.Atoi(c.SelectAttrValue(attrColor, ""))
				require.NoError(t, err)
				assert.GreaterOrEqual(t, color, MinColorOffset)
				assert.LessOrEqual(t, color, MaxColorOffset)
				assert.False(t, colors[color], "duplicate color %d", color)
				colors[color] = true
			}
		})
	}
}

func TestInjectTooManyClips(t *testing.T) {
	tmpl := writeTemplate(t, DefaultTemplate)
	inj := NewInjector(tmpl)

	_, err := inj.Inject(makeClips(MaxClips + 1))
	require.Error(t, err)

	var tooMany *TooManyClipsError
	require.True(t, errors.As(err, &tooMany))
	assert.Equal(t, 17, tooMany.Count)
	assert.Equal(t, 16, tooMany.Max)
	assert.ErrorIs(t, err, ErrTooManyClips)

	_, statErr := os.Stat(inj.OutputPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestInjectTemplateUnchanged(t *testing.T) {
	tmpl := writeTemplate(t, DefaultTemplate)
	before, err := os.ReadFile(tmpl)
	require.NoError(t, err)

	inj := NewInjector(tmpl)
	for i := 0; i < 2; i++ {
		out, err := inj.Inject(scenarioClips())
		require.NoError(t, err)
		assert.Len(t, loadClips(t, out), 2)
		assert.Len(t, inj.UsedPresets(), 2)
		assert.Len(t, inj.UsedColors(), 2)
	}

	after, err := os.ReadFile(tmpl)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInjectResetsScope(t *testing.T) {
	inj := NewInjector(writeTemplate(t, DefaultTemplate))

	_, err := inj.Inject(makeClips(MaxClips))
	require.NoError(t, err)
	assert.Len(t, inj.UsedPresets(), MaxClips)

	_, err = inj.Inject(makeClips(MaxClips))
	require.NoError(t, err)
	assert.Len(t, inj.UsedPresets(), MaxClips)
}

func TestPopulateIsolation(t *testing.T) {
	tmpl := writeTemplate(t, DefaultTemplate)
	inj := NewInjector(tmpl)

	doc, err := inj.LoadTemplate()
	require.NoError(t, err)
	prototype := doc.FindElement(containerPath).SelectElement(prototypeTag)
	require.NotNil(t, prototype)
	original, err := elementString(prototype)
	require.NoError(t, err)

	a, err := inj.populate(prototype, scenarioClips()[0])
	require.NoError(t, err)
	b, err := inj.populate(prototype, scenarioClips()[1])
	require.NoError(t, err)

	rows := a.FindElement(noteRowsPath)
	rows.CreateElement(noteRowTag).CreateAttr(attrY, "99")
	a.FindElement(noteRowsPath + "/" + noteRowTag).CreateAttr(attrNoteData, "0xFF")

	after, err := elementString(prototype)
	require.NoError(t, err)
	assert.Equal(t, original, after)
	assert.Len(t, b.FindElements(noteRowsPath+"/"+noteRowTag), 1)
	assert.Equal(t, "0x0000000000000018404015", b.FindElement(noteRowsPath+"/"+noteRowTag).SelectAttrValue(attrNoteData, ""))
}

func TestOutputMutationLeavesTemplate(t *testing.T) {
	tmpl := writeTemplate(t, DefaultTemplate)
	before, err := os.ReadFile(tmpl)
	require.NoError(t, err)

	out, err := NewInjector(tmpl).Inject(scenarioClips())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(out))
	for _, rows := range doc.FindElements(containerPath + "/" + prototypeTag + "/noteRows") {
		rows.CreateElement(noteRowTag).CreateAttr(attrY, "1")
	}
	require.NoError(t, doc.WriteToFile(out))

	after, err := os.ReadFile(tmpl)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInjectTemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
		element string
	}{
		{"not xml", "this is not xml <<<", ErrTemplateLoad, ""},
		{"empty", "", ErrTemplateLoad, ""},
		{"no sessionClips", `<song><instruments/></song>`, ErrMalformedTemplate, "sessionClips"},
		{"no prototype", `<song><sessionClips/></song>`, ErrMalformedTemplate, "instrumentClip"},
		{"no noteRows", `<song><sessionClips><instrumentClip length="1"/></sessionClips></song>`, ErrMalformedTemplate, "noteRows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := NewInjector(writeTemplate(t, []byte(tt.content)))
			_, err := inj.Inject(scenarioClips())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			if tt.element != "" {
				var malformed *MalformedTemplateError
				require.True(t, errors.As(err, &malformed))
				assert.Equal(t, tt.element, malformed.Element)
			}

			_, statErr := os.Stat(inj.OutputPath())
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestInjectMissingTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.XML")
	_, err := NewInjector(path).Inject(scenarioClips())

	var loadErr *TemplateLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestInjectInvalidClips(t *testing.T) {
	inj := NewInjector(writeTemplate(t, DefaultTemplate))
	_, err := inj.Inject([]Clip{{NoteRows: []NoteRow{{Y: "60", NoteDataWithLift: "0x00"}}, Length: -96}})
	assert.ErrorIs(t, err, ErrInvalidClipData)

	_, statErr := os.Stat(inj.OutputPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestInjectZeroValuesWrittenThrough(t *testing.T) {
	clips, err := CheckJSON([]byte(`[{"note_rows": [{"y": "", "noteDataWithLift": ""}], "length": 0}]`))
	require.NoError(t, err)

	out, err := NewInjector(writeTemplate(t, DefaultTemplate)).Inject(clips)
	require.NoError(t, err)

	got := loadClips(t, out)
	require.Len(t, got, 1)
	assert.Equal(t, "0", got[0].SelectAttrValue(attrLength, ""))
	rows := got[0].FindElements(".//noteRows/noteRow")
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].SelectAttrValue(attrY, "missing"))
	assert.Equal(t, "", rows[0].SelectAttrValue(attrNoteData, "missing"))
}

func TestInjectKeepsOtherContent(t *testing.T) {
	out, err := NewInjector(writeTemplate(t, DefaultTemplate)).Inject(scenarioClips())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(out))
	assert.Equal(t, "song", doc.Root().Tag)
	assert.Equal(t, "4.1.3", doc.Root().SelectAttrValue("firmwareVersion", ""))
	assert.NotNil(t, doc.FindElement(".//instruments/sound"))
	assert.Len(t, doc.FindElements(".//modeNotes/modeNote"), 7)
}

func TestInjectSeeded(t *testing.T) {
	run := func() []string {
		inj := NewInjector(writeTemplate(t, DefaultTemplate))
		inj.SetRand(rand.New(rand.NewPCG(1, 2)))
		out, err := inj.Inject(makeClips(4))
		require.NoError(t, err)
		var presets []string
		for _, c := range loadClips(t, out) {
			presets = append(presets, c.SelectAttrValue(attrPresetName, ""))
		}
		return presets
	}
	assert.Equal(t, run(), run())
}

func elementString(e *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	return doc.WriteToString()
}
