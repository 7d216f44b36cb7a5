// Package tui provides a terminal user interface for midigen
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/freeman-jiang/midigen/pkg/converter"
	"github.com/freeman-jiang/midigen/pkg/tokens"
)

// Piano-roll inspired color scheme
var (
	rollGreen = lipgloss.Color("#39FF14")
	keyYellow = lipgloss.Color("#FFFF00")
	ivoryGray = lipgloss.Color("#C0C0C0")
	darkGray  = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(rollGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(ivoryGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(rollGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(keyYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(rollGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(rollGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
	StateInspect
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	FromFormat  string
	ToFormat    string
	Inspect     bool
}

var menuItems = []MenuItem{
	{Title: "MIDI → Tokens", Description: "Tokenize a MIDI file into a token sequence", FromFormat: "midi", ToFormat: "tokens"},
	{Title: "Tokens → MIDI", Description: "Rebuild a playable MIDI file from a token file", FromFormat: "tokens", ToFormat: "midi"},
	{Title: "Inspect Tokens", Description: "Tokenize a MIDI file and browse the readable token stream", FromFormat: "midi", Inspect: true},
	{Title: "Exit", Description: "Exit the application"},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	viewport     viewport.Model
	selectedFile string
	outputFile   string
	conversion   MenuItem
	tokenCount   int
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	readable   string
	tokenCount int
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New() Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".txt", ".tok", ".tokens"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(rollGreen)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
		viewport:   viewport.New(80, 20),
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

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
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		case StateInspect:
			return m.updateInspect(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.outputFile = msg.outputFile
		m.tokenCount = msg.tokenCount
		m.err = msg.err
		if msg.err == nil && m.conversion.Inspect {
			m.viewport.SetContent(msg.readable)
			m.viewport.GotoTop()
			m.state = StateInspect
		} else {
			m.state = StateResult
		}
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

		switch m.conversion.FromFormat {
		case "midi":
			m.filePicker.AllowedTypes = []string{".mid", ".midi"}
		case "tokens":
			m.filePicker.AllowedTypes = []string{".txt", ".tok", ".tokens"}
		}

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
		m.tokenCount = 0
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateInspect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.selectedFile = ""
		m.tokenCount = 0
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) performConversion() tea.Cmd {
	return func() tea.Msg {
		conv, err := converter.New(tokens.DefaultConfig())
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		data, err := os.ReadFile(m.selectedFile)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		if m.conversion.Inspect {
			ids, err := conv.MIDIToTokens(data)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			return conversionDoneMsg{readable: conv.TokensReadable(ids), tokenCount: len(ids)}
		}

		var result []byte
		var outputExt string
		var tokenCount int

		switch m.conversion.FromFormat + "2" + m.conversion.ToFormat {
		case "midi2tokens":
			ids, err := conv.MIDIToTokens(data)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			result = []byte(tokens.FormatTokenText(ids))
			tokenCount = len(ids)
			outputExt = ".tokens"
		case "tokens2midi":
			ids, err := tokens.ParseTokenText(string(data))
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			result, err = conv.TokensToMIDI(ids)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			tokenCount = len(ids)
			outputExt = ".mid"
		}

		base := strings.TrimSuffix(m.selectedFile, filepath.Ext(m.selectedFile))
		outputFile := base + outputExt

		if err := os.WriteFile(outputFile, result, 0644); err != nil {
			return conversionDoneMsg{err: err}
		}

		return conversionDoneMsg{outputFile: outputFile, tokenCount: tokenCount}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
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
	case StateInspect:
		s.WriteString(m.viewInspect())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(keyYellow).PaddingLeft(4).Render(item.Description))
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

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Processing %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	if !m.conversion.Inspect {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.conversion.FromFormat, m.conversion.ToFormat)))
	}

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
		s.WriteString(fmt.Sprintf("Output: %s\n", filepath.Base(m.outputFile)))
		s.WriteString(fmt.Sprintf("Tokens: %d", m.tokenCount))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func (m Model) viewInspect() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s — %d TOKENS ", strings.ToUpper(filepath.Base(m.selectedFile)), m.tokenCount)))
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: scroll • esc: back to menu"))

	return s.String()
}

func asciiLogo() string {
	logo := `
   __  __ ___ ____ ___ ____ _____ _   _
  |  \/  |_ _|  _ \_ _/ ___| ____| \ | |
  | |\/| || || | | | | |  _|  _| |  \| |
  | |  | || || |_| | | |_| | |___| |\  |
  |_|  |_|___|____/___\____|_____|_| \_|
`
	return lipgloss.NewStyle().Foreground(rollGreen).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
