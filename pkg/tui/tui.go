// Package tui provides a terminal user interface for midifade
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/james-see/midifade/pkg/batch"
	"github.com/james-see/midifade/pkg/fade"
	"github.com/james-see/midifade/pkg/presets"
)

// Stage-lighting color scheme (amber gels on a dark stage)
var (
	// Primary colors - amber and silver
	amber      = lipgloss.Color("#FFB000")
	warmWhite  = lipgloss.Color("#FFF4D6")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(warmWhite).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateWorking
	StateResult
)

// Action is what a menu item does when chosen
type Action int

const (
	ActionPreset Action = iota
	ActionSceneFile
	ActionImport
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	Preset      string
}

// Options wires the TUI to the preset store and a backend
type Options struct {
	Store     *presets.Store
	Runner    batch.Runner
	OutputDir string
	Logger    *log.Logger
}

// Model represents the TUI model
type Model struct {
	opts         Options
	state        State
	menu         []MenuItem
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	chosen       MenuItem
	selectedFile string
	result       *batch.Result
	summary      *presets.ImportSummary
	err          error
	width        int
	height       int
}

// generateDoneMsg signals batch completion
type generateDoneMsg struct {
	result *batch.Result
	err    error
}

// importDoneMsg signals preset import completion
type importDoneMsg struct {
	summary *presets.ImportSummary
	err     error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Runner == nil {
		opts.Runner = &batch.Driver{Logger: opts.Logger}
	}

	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".json", ".yaml", ".yml", ".txt"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amber)

	m := Model{
		opts:       opts,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
	m.menu, m.err = buildMenu(opts.Store)
	return m
}

func buildMenu(store *presets.Store) ([]MenuItem, error) {
	var items []MenuItem
	var err error

	if store != nil {
		var list []presets.Preset
		list, err = store.List()
		for _, p := range list {
			items = append(items, MenuItem{
				Title:       p.Name,
				Description: describePreset(p),
				Action:      ActionPreset,
				Preset:      p.Name,
			})
		}
	}

	items = append(items,
		MenuItem{Title: "Generate from file…", Description: "Scene list (.json/.yaml) or cue sheet (.txt)", Action: ActionSceneFile},
	)
	if store != nil {
		items = append(items,
			MenuItem{Title: "Import presets…", Description: "Merge presets from an export file", Action: ActionImport},
		)
	}
	items = append(items, MenuItem{Title: "Exit", Description: "Exit the application", Action: ActionExit})
	return items, err
}

func describePreset(p presets.Preset) string {
	names := make([]string, 0, len(p.Scenes))
	for _, sc := range p.Scenes {
		names = append(names, sc.Name)
	}
	desc := fmt.Sprintf("%d scene(s): %s", len(p.Scenes), strings.Join(names, ", "))
	if p.Steps > 0 {
		desc += fmt.Sprintf(" • %d steps", p.Steps)
	}
	return desc
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
			m.state = StateWorking
			if m.chosen.Action == ActionImport {
				return m, tea.Batch(m.spinner.Tick, m.performImport(path))
			}
			return m, tea.Batch(m.spinner.Tick, m.performFileGenerate(path))
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

	case generateDoneMsg:
		m.state = StateResult
		m.result = msg.result
		m.err = msg.err
		return m, nil

	case importDoneMsg:
		m.state = StateResult
		m.summary = msg.summary
		m.err = msg.err
		if msg.err == nil {
			menu, err := buildMenu(m.opts.Store)
			m.menu = menu
			m.err = err
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
		if m.menuIndex < len(m.menu)-1 {
			m.menuIndex++
		}
	case "enter":
		m.chosen = m.menu[m.menuIndex]
		m.err = nil

		switch m.chosen.Action {
		case ActionExit:
			return m, tea.Quit
		case ActionPreset:
			m.state = StateWorking
			return m, tea.Batch(m.spinner.Tick, m.performPresetGenerate(m.chosen.Preset))
		case ActionSceneFile:
			m.filePicker.AllowedTypes = []string{".json", ".yaml", ".yml", ".txt"}
		case ActionImport:
			m.filePicker.AllowedTypes = []string{".json", ".yaml", ".yml"}
		}
		m.state = StateFilePicker
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
		m.result = nil
		m.summary = nil
		if m.menuIndex >= len(m.menu) {
			m.menuIndex = len(m.menu) - 1
		}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performPresetGenerate(name string) tea.Cmd {
	store, runner, dir := m.opts.Store, m.opts.Runner, m.opts.OutputDir
	return func() tea.Msg {
		p, err := store.Get(name)
		if err != nil {
			return generateDoneMsg{err: err}
		}
		return runBatch(runner, p.SceneList(), dir)
	}
}

func (m Model) performFileGenerate(path string) tea.Cmd {
	runner, dir, logger := m.opts.Runner, m.opts.OutputDir, m.opts.Logger
	return func() tea.Msg {
		scenes, warnings, err := presets.ReadSceneFile(path)
		if err != nil {
			return generateDoneMsg{err: err}
		}
		for _, w := range warnings {
			logger.Warn("skipped cue line", "file", path, "line", w.Line, "err", w.Err)
		}
		return runBatch(runner, scenes, dir)
	}
}

func runBatch(runner batch.Runner, scenes []fade.Scene, dir string) tea.Msg {
	result, err := runner.Run(context.Background(), scenes, dir)
	return generateDoneMsg{result: result, err: err}
}

func (m Model) performImport(path string) tea.Cmd {
	store := m.opts.Store
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importDoneMsg{err: err}
		}
		defer func() { _ = f.Close() }()

		summary, err := store.Import(f, presets.DetectFormat(path))
		return importDoneMsg{summary: summary, err: err}
	}
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
	case StateWorking:
		s.WriteString(m.viewWorking())
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

	s.WriteString(titleStyle.Render(" SELECT PRESET "))
	s.WriteString("\n\n")

	for i, item := range m.menu {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(warmWhite).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := " SELECT SCENE FILE "
	if m.chosen.Action == ActionImport {
		title = " SELECT PRESET FILE "
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	switch {
	case m.chosen.Action == ActionImport:
		s.WriteString(fmt.Sprintf("%s Importing %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	case m.selectedFile != "":
		s.WriteString(fmt.Sprintf("%s Generating from %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	default:
		s.WriteString(fmt.Sprintf("%s Generating %s...\n", m.spinner.View(), m.chosen.Title))
	}
	s.WriteString(statusStyle.Render(fmt.Sprintf("  → %s", m.opts.OutputDir)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Failed: %s", m.err.Error())))
		if m.result != nil && len(m.result.Results) > 0 {
			s.WriteString("\n\n")
			s.WriteString(fmt.Sprintf("%d scene(s) were written before the failure", len(m.result.Results)))
		}
	case m.summary != nil:
		s.WriteString(titleStyle.Render(" IMPORTED "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render(fmt.Sprintf("✓ %d new, %d replaced", m.summary.Imported, m.summary.Existing)))
		if m.summary.FirstImported != "" {
			s.WriteString("\n\n")
			s.WriteString(fmt.Sprintf("First: %s", m.summary.FirstImported))
		}
	case m.result != nil:
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render(fmt.Sprintf("✓ Generated %d scene(s)", len(m.result.Results))))
		s.WriteString("\n\n")
		for _, r := range m.result.Results {
			s.WriteString(fmt.Sprintf("%-16s %s  %s\n", r.Scene, r.FadeInFile, r.FadeOutFile))
		}
		s.WriteString(fmt.Sprintf("\nOutput: %s", m.result.OutputDir))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   __  __ ___ ____ ___   _____ _    ____  _____
  |  \/  |_ _|  _ \_ _| |  ___/ \  |  _ \| ____|
  | |\/| || || | | | |  | |_ / _ \ | | | |  _|
  | |  | || || |_| | |  |  _/ ___ \| |_| | |___
  |_|  |_|___|____/___| |_|/_/   \_\____/|_____|
`
	return lipgloss.NewStyle().Foreground(amber).Render(logo)
}

// Run starts the TUI application
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
