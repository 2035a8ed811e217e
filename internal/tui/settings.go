package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusd/internal/timer"
)

// SaveDurationsFunc persists new interval lengths, typically to the config file.
type SaveDurationsFunc func(focusMinutes, breakMinutes int) error

type settingsModel struct {
	machine *timer.Machine
	onSave  SaveDurationsFunc
	goal    int
	width   int
	height  int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	focusMinutes *string
	breakMinutes *string
}

func newSettingsModel(m *timer.Machine, goal int, onSave SaveDurationsFunc) settingsModel {
	f, b := "", ""
	return settingsModel{
		machine:      m,
		onSave:       onSave,
		goal:         goal,
		focusMinutes: &f,
		breakMinutes: &b,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			if s.machine.State() != timer.StateIdle {
				return s, func() tea.Msg {
					return statusMsg{text: "Durations can only change while the timer is idle", isError: true}
				}
			}
			return s.showForm()
		}
	}
	return s, nil
}

func validMinutes(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 240 {
		return fmt.Errorf("enter a whole number of minutes between 1 and 240")
	}
	return nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	snap := s.machine.Snapshot()
	*s.focusMinutes = strconv.Itoa(snap.FocusDurationMinutes)
	*s.breakMinutes = strconv.Itoa(snap.BreakDurationMinutes)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Focus (min)").Value(s.focusMinutes).Validate(validMinutes),
			huh.NewInput().Title("Break (min)").Value(s.breakMinutes).Validate(validMinutes),
		).Title("Timer"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		s.formActive = false
		s.form = nil
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		status := s.save()
		return s, func() tea.Msg { return status }
	}
	return s, cmd
}

// save applies the form values to the machine, then persists them.
func (s settingsModel) save() statusMsg {
	focus, _ := strconv.Atoi(*s.focusMinutes)
	brk, _ := strconv.Atoi(*s.breakMinutes)
	if err := s.machine.SetDurations(focus, brk); err != nil {
		return errStatus("Save settings", err)
	}
	if s.onSave != nil {
		if err := s.onSave(focus, brk); err != nil {
			return errStatus("Write config", err)
		}
	}
	return statusMsg{text: "Settings saved"}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	snap := s.machine.Snapshot()
	row := func(label, value string) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(16).Render(label), highlightStyle.Render(value))
	}
	rows := []string{
		title,
		"",
		row("Focus", fmt.Sprintf("%d min", snap.FocusDurationMinutes)),
		row("Break", fmt.Sprintf("%d min", snap.BreakDurationMinutes)),
		row("Daily goal", formatMinutes(s.goal)),
		"",
		mutedStyle.Render("Press enter to edit durations"),
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
