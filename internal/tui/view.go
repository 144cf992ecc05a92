package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/controller"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		headerStyle.Render("AECO Patch Configurator"),
		m.renderField("Patch Folder", m.patchDir.View(), m.focused == focusPatchDir),
		m.renderField("Patch Output Folder", m.outputDir.View(), m.focused == focusOutputDir),
		m.renderButton(),
		m.renderStatus(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) fieldWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) renderField(label, input string, focused bool) string {
	box := boxStyle
	if focused {
		box = focusedBoxStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render(label),
		box.Width(m.fieldWidth()).Render(input),
	)
}

func (m Model) renderButton() string {
	style := buttonStyle
	switch {
	case !m.ctrl.CanTrigger():
		style = buttonDisabledStyle
	case m.focused == focusGenerate:
		style = buttonFocusedStyle
	}
	return "\n" + style.Render("Generate")
}

func (m Model) renderStatus() string {
	status := m.ctrl.Status()
	if status == controller.StatusBlank {
		return "\n" + mutedStyle.Render("Choose folders and press Generate.")
	}

	var line string
	switch {
	case m.ctrl.State() == controller.StateRunning:
		line = m.spinner.View() + " " + statusWarning.Render(status)
	case status == controller.StatusFinished:
		line = statusOK.Render("✓ " + status)
	case strings.HasPrefix(status, controller.StatusFailedPrefix):
		line = statusError.Render("✗ " + status)
	default:
		line = statusWarning.Render(status)
	}
	return "\n" + lipgloss.NewStyle().Width(m.fieldWidth()).Render(line)
}

func (m Model) renderFooter() string {
	hints := "tab: next field • enter: select • ctrl+g: generate • esc: quit"
	if m.durations == nil {
		return footerStyle.Render(hints)
	}

	s := m.durations.Summary()
	if s.Count == 0 {
		return footerStyle.Render(hints)
	}
	timings := fmt.Sprintf("Runs: %d • Last: %s • p50: %s • p95: %s",
		s.Count, formatDuration(s.Last), formatDuration(s.P50), formatDuration(s.P95))
	return footerStyle.Render(timings + "\n" + hints)
}

// formatDuration formats a task duration at a precision suited to its size.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}
