// Package tui provides a terminal user interface for midi2deluge
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/james-see/midi2deluge/pkg/converter"
	"github.com/james-see/midi2deluge/pkg/deluge"
)

// Deluge-inspired color scheme (pad grid greens and ambers)
var (
	// Primary colors - pad green and silver
	padGreen   = lipgloss.Color("#3DDC84")
	padAmber   = lipgloss.Color("#FFB000")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")
	
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(padGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)
	
	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)
	
	selectedStyle = lipgloss.NewStyle().
			Foreground(padGreen).
			Bold(true).
			PaddingLeft(2)
	
	statusStyle = lipgloss.NewStyle().
			Foreground(padAmber).
			PaddingTop(1)
	
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
	
	successStyle = lipgloss.NewStyle().
			Foreground(padGreen).
			Bold(true)
	
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)
	
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(padGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	FromFormat  string
	ToFormat    string
}

var menuItems = []MenuItem{
	{Title: "MIDI → DELUGE", Description: "Turn every track of a MIDI file into a Deluge song clip", FromFormat: "midi", ToFormat: "deluge"},
	{Title: "CLIPS → DELUGE", Description: "Build a Deluge song from a JSON clip list", FromFormat: "clips", ToFormat: "deluge"},
	{Title: "MIDI → CLIPS", Description: "Export the clips of a MIDI file as JSON", FromFormat: "midi", ToFormat: "clips"},
	{Title: "Exit", Description: "Exit the application", FromFormat: "", ToFormat: ""},
}

var allowedTypes = map[string][]string{
	"midi":  {".mid", ".midi"},
	"clips": {".json"},
}

// Model represents the TUI model
type Model struct {
	conv         *converter.Converter
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	summary      string
	conversion   MenuItem
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	summary    string
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model that converts with conv
func New(conv *converter.Converter) Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".json"}
	fp.CurrentDirectory, _ = os.Getwd()
	
	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(padGreen)
	
	return Model{
		conv:       conv,
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		// Check for escape/quit keys first
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		// Pass all other messages to the file picker
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.summary = msg.summary
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.conversion = menuItems[m.menuIndex]
		m.state = StateFilePicker
		
		// Set file picker filter based on input format
		m.filePicker.AllowedTypes = allowedTypes[m.conversion.FromFormat]
		
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.summary = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	conv := m.conv
	input := m.selectedFile
	target := m.conversion.ToFormat

	return func() tea.Msg {
		base := strings.TrimSuffix(input, filepath.Ext(input))

		if target == "clips" {
			clips, err := conv.ClipsFromFile(input)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			data, err := deluge.EncodeClips(clips)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			outputFile := base + ".json"
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return conversionDoneMsg{err: err}
			}
			return conversionDoneMsg{
				outputFile: outputFile,
				summary:    fmt.Sprintf("%d clips, %s", len(clips), humanize.Bytes(uint64(len(data)))),
			}
		}

		res, err := conv.ConvertFiles([]string{input}, base+".xml")
		if err != nil {
			return conversionDoneMsg{err: err}
		}
		return conversionDoneMsg{outputFile: res.Output, summary: summarize(res)}
	}
}

func summarize(res *converter.ConversionResult) string {
	return fmt.Sprintf("%d clips, %s\nPresets: %s",
		res.Clips, humanize.Bytes(uint64(res.Size)), strings.Join(res.Presets, ", "))
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder
	
	// Header
	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")
	
	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}
	
	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))
	
	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder
	
	s.WriteString(titleStyle.Render(" SELECT CONVERSION "))
	s.WriteString("\n\n")
	
	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(padAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}
	
	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder
	
	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", strings.ToUpper(m.conversion.FromFormat))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))
	
	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder
	
	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.conversion.FromFormat, m.conversion.ToFormat)))
	
	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder
	
	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile)))
		if m.summary != "" {
			s.WriteString("\n\n")
			s.WriteString(statusStyle.Render(m.summary))
		}
	}
	
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))
	
	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   __  __ ___ ___ ___ ___ ___  ___ _   _   _  ___ ___ 
  |  \/  |_ _|   \_ _|_  )   \| __| | | | | |/ __| __|
  | |\/| || || |) | | / /| |) | _|| |_| |_| | (_ | _| 
  |_|  |_|___|___/___/___|___/|___|____\___/ \___|___|
`
	return lipgloss.NewStyle().Foreground(padGreen).Render(logo)
}

// Run starts the TUI application
func Run(conv *converter.Converter) error {
	p := tea.NewProgram(New(conv), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

