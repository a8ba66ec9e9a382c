package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/midi2deluge/pkg/converter"
	"github.com/james-see/midi2deluge/pkg/deluge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuNavigation(t *testing.T) {
	m := New(converter.New("base.XML"))

	next, _ := m.Update(key("up"))
	assert.Equal(t, 0, next.(Model).menuIndex)

	for i := 0; i < len(menuItems)+2; i++ {
		next, _ = next.Update(key("down"))
	}
	assert.Equal(t, len(menuItems)-1, next.(Model).menuIndex)

	next, _ = next.Update(key("k"))
	assert.Equal(t, len(menuItems)-2, next.(Model).menuIndex)
}

func TestMenuSelectSetsFilter(t *testing.T) {
	m := New(converter.New("base.XML"))
	m.menuIndex = 1

	next, cmd := m.Update(key("enter"))
	got := next.(Model)
	assert.Equal(t, StateFilePicker, got.state)
	assert.Equal(t, "clips", got.conversion.FromFormat)
	assert.Equal(t, []string{".json"}, got.filePicker.AllowedTypes)
	assert.NotNil(t, cmd)
}

func TestResultReturnsToMenu(t *testing.T) {
	m := New(converter.New("base.XML"))
	m.state = StateResult
	m.outputFile = "song.xml"
	m.summary = "2 clips"

	next, _ := m.Update(key("enter"))
	got := next.(Model)
	assert.Equal(t, StateMenu, got.state)
	assert.Empty(t, got.outputFile)
	assert.Empty(t, got.summary)
}

func TestPerformConversion(t *testing.T) {
	dir := t.TempDir()
	tmpl, err := deluge.WriteDefaultTemplate(filepath.Join(dir, "songs"))
	require.NoError(t, err)

	input := filepath.Join(dir, "clips.json")
	require.NoError(t, os.WriteFile(input, []byte(`[{"note_rows": [{"y": "60", "noteDataWithLift": "0x0000000000000030644014"}], "length": 192}]`), 0644))

	m := New(converter.New(tmpl))
	m.selectedFile = input
	m.conversion = menuItems[1]

	msg := m.performConversion()()
	done, ok := msg.(conversionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, filepath.Join(dir, "clips.xml"), done.outputFile)
	assert.True(t, strings.HasPrefix(done.summary, "1 clips"))

	next, _ := m.Update(done)
	assert.Contains(t, next.View(), "clips.xml")
}

func TestPerformConversionError(t *testing.T) {
	m := New(converter.New(filepath.Join(t.TempDir(), "missing.XML")))
	m.selectedFile = filepath.Join(t.TempDir(), "nothing.mid")
	m.conversion = menuItems[0]

	done := m.performConversion()().(conversionDoneMsg)
	assert.Error(t, done.err)
}

func TestPadColorScheme(t *testing.T) {
	assert.Equal(t, lipgloss.Color("#3DDC84"), padGreen)
	assert.Equal(t, lipgloss.Color("#FFB000"), padAmber)
	assert.Equal(t, padGreen, titleStyle.GetForeground())
	assert.Equal(t, padGreen, selectedStyle.GetForeground())
	assert.Equal(t, padAmber, statusStyle.GetForeground())
	assert.Equal(t, padGreen, boxStyle.GetBorderTopForeground())
}
