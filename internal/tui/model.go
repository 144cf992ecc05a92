package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/controller"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent every tick interval; each one polls the background task.
type TickMsg time.Time

// =============================================================================
// Focus
// =============================================================================

// focus identifies the focused widget.
type focus int

const (
	focusPatchDir focus = iota
	focusOutputDir
	focusGenerate
	focusCount
)

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state. The controller is shared by pointer: it
// is only ever touched from Update, which Bubble Tea runs on one goroutine.
type Model struct {
	ctrl      *controller.Controller
	durations *stats.DurationTracker
	interval  time.Duration

	patchDir  textinput.Model
	outputDir textinput.Model
	focused   focus
	spinner   spinner.Model
	spinning  bool

	width    int
	height   int
	quitting bool
}

// Config holds TUI configuration.
type Config struct {
	Controller   *controller.Controller
	Durations    *stats.DurationTracker // optional
	TickInterval time.Duration
	PatchDir     string // initial value
	OutputDir    string // initial value
}

// New creates a new TUI model.
func New(cfg Config) Model {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	patch := textinput.New()
	patch.Placeholder = "/path/to/patch"
	patch.Prompt = ""
	patch.SetValue(cfg.PatchDir)
	patch.Focus()

	output := textinput.New()
	output.Placeholder = "/path/to/output"
	output.Prompt = ""
	output.SetValue(cfg.OutputDir)

	return Model{
		ctrl:      cfg.Controller,
		durations: cfg.Durations,
		interval:  interval,
		patchDir:  patch,
		outputDir: output,
		focused:   focusPatchDir,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusWarning)),
		width:     80,
		height:    24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init starts the tick loop and the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.interval), textinput.Blink)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.ctrl.Tick()
		return m, tickCmd(m.interval)

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		if m.ctrl.State() != controller.StateRunning {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// handleKey routes key presses to navigation, actions or the focused input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab", "down":
		return m.setFocus((m.focused + 1) % focusCount), nil
	case "shift+tab", "up":
		return m.setFocus((m.focused + focusCount - 1) % focusCount), nil
	case "ctrl+g":
		return m.trigger()
	case "enter":
		if m.focused == focusGenerate {
			return m.trigger()
		}
		return m.setFocus(m.focused + 1), nil
	}

	return m.updateInputs(msg)
}

// trigger asks the controller to start a generation.
func (m Model) trigger() (tea.Model, tea.Cmd) {
	if !m.ctrl.Trigger(m.patchDir.Value(), m.outputDir.Value()) {
		return m, nil
	}
	if m.spinning {
		return m, nil
	}
	m.spinning = true
	return m, m.spinner.Tick
}

func (m Model) setFocus(f focus) Model {
	m.focused = f
	m.patchDir.Blur()
	m.outputDir.Blur()
	switch f {
	case focusPatchDir:
		m.patchDir.Focus()
	case focusOutputDir:
		m.outputDir.Focus()
	}
	return m
}

// updateInputs forwards msg to the text inputs. Unfocused inputs ignore
// key presses.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var patchCmd, outputCmd tea.Cmd
	m.patchDir, patchCmd = m.patchDir.Update(msg)
	m.outputDir, outputCmd = m.outputDir.Update(msg)
	return m, tea.Batch(patchCmd, outputCmd)
}

// =============================================================================
// Commands
// =============================================================================

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// PatchDir returns the patch folder as typed.
func (m Model) PatchDir() string {
	return m.patchDir.Value()
}

// OutputDir returns the output base folder as typed.
func (m Model) OutputDir() string {
	return m.outputDir.Value()
}

// Status returns the controller's status message.
func (m Model) Status() string {
	return m.ctrl.Status()
}

// Run starts a Bubble Tea program for m and blocks until it exits.
func Run(m Model, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
