package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusd/internal/elapsed"
	"github.com/sadopc/focusd/internal/timer"
)

// sessionsPerRound is how many focus dots the progress row shows.
const sessionsPerRound = 4

// timerModel renders the machine and turns keys into machine actions.
// The machine is the source of truth; this model only keeps display state.
type timerModel struct {
	machine *timer.Machine
	goal    int
	width   int
	height  int

	saveStatus string
	saveErr    bool
}

func newTimerModel(m *timer.Machine, goal int) timerModel {
	return timerModel{machine: m, goal: goal}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

// action runs fn off the update loop: Start, Resume, Reset and Retry may wait
// on a completion report.
func action(name string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: name, err: fn(context.Background())}
	}
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case busMsg:
		t.applyEvent(msg.event)
		return t, nil

	case tea.KeyMsg:
		m := t.machine
		switch {
		case key.Matches(msg, keys.Start):
			return t, action("start", func(ctx context.Context) error {
				return m.Start(ctx, elapsed.ModeFocus)
			})
		case key.Matches(msg, keys.Break):
			return t, action("break", func(ctx context.Context) error {
				return m.Start(ctx, elapsed.ModeBreak)
			})
		case key.Matches(msg, keys.Pause):
			if m.State() == timer.StateRunning {
				err := m.Pause()
				return t, func() tea.Msg { return actionDoneMsg{action: "pause", err: err} }
			}
			return t, action("resume", m.Resume)
		case key.Matches(msg, keys.Reset):
			return t, action("reset", m.Reset)
		case key.Matches(msg, keys.Retry):
			return t, action("retry", m.RetryCompletion)
		}
	}
	return t, nil
}

func (t *timerModel) applyEvent(e timer.Event) {
	switch e.Kind {
	case timer.EventSaved:
		t.saveStatus = fmt.Sprintf("Saved %d min", e.Minutes)
		t.saveErr = false
	case timer.EventSaveFailed:
		t.saveStatus = "Progress not saved"
		t.saveErr = true
	case timer.EventCompleted:
		if e.Snapshot.Mode == elapsed.ModeBreak {
			t.saveStatus = "Focus complete, take a break"
		} else {
			t.saveStatus = "Break over"
		}
		t.saveErr = false
	case timer.EventCompleteFailed:
		t.saveStatus = "Completion not saved, press c to retry"
		t.saveErr = true
	}
}

// actionStatus is the footer text for a finished action.
func actionStatus(a actionDoneMsg) statusMsg {
	if a.err == nil {
		switch a.action {
		case "start":
			return statusMsg{text: "Focus started"}
		case "break":
			return statusMsg{text: "Break started"}
		case "pause":
			return statusMsg{text: "Paused"}
		case "resume":
			return statusMsg{text: "Resumed"}
		case "reset":
			return statusMsg{text: "Timer reset"}
		case "retry", "complete":
			return statusMsg{text: "Session saved"}
		}
		return statusMsg{}
	}
	switch {
	case errors.Is(a.err, timer.ErrIntervalInProgress):
		return statusMsg{text: "Finish or reset the current interval first", isError: true}
	case errors.Is(a.err, timer.ErrNotPaused), errors.Is(a.err, timer.ErrNotRunning):
		return statusMsg{text: "Nothing to pause or resume", isError: true}
	case errors.Is(a.err, timer.ErrCompletionInFlight):
		return statusMsg{text: "Still saving the last session"}
	}
	return errStatus("Could not "+a.action, a.err)
}

func (t timerModel) view() string {
	if t.width < 20 {
		return "Terminal too small"
	}
	w := t.width - 4
	return lipgloss.JoinVertical(lipgloss.Left, t.renderClock(w), t.renderToday(w))
}

func (t timerModel) renderClock(w int) string {
	snap := t.machine.Snapshot()
	state := t.machine.State()
	clock := formatClock(snap.TimeLeft)

	style := clockStyle(state, snap.Mode).Width(w - 6)
	var display, indicator, hint string
	switch state {
	case timer.StateRunning:
		label := "●  FOCUS"
		if snap.Mode == elapsed.ModeBreak {
			label = "●  BREAK"
		}
		display = style.Render(clock)
		indicator = clockStyle(state, snap.Mode).Render(label)
		hint = mutedStyle.Render("space: pause  x: reset")
	case timer.StatePaused:
		display = style.Render(clock)
		indicator = warningStyle.Render("⏸  PAUSED")
		hint = mutedStyle.Render("space: resume  x: reset")
	case timer.StateCompleting:
		display = style.Render(formatClock(0))
		indicator = warningStyle.Render("◌  SAVING SESSION")
		hint = mutedStyle.Render("c: retry")
	default:
		display = style.Render(formatClock(snap.Duration(snap.Mode)))
		indicator = mutedStyle.Render("■  READY")
		hint = mutedStyle.Render("s: focus  b: break")
	}

	rows := []string{display, indicator, t.renderRound(snap, state), ""}
	if t.saveStatus != "" {
		style := successStyle
		if t.saveErr {
			style = errorStyle
		}
		rows = append(rows, style.Render(t.saveStatus))
	}
	rows = append(rows, hint)

	panel := panelStyle
	if state != timer.StateIdle {
		panel = activePanelStyle
	}
	return panel.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

// renderRound draws one dot per focus interval of the current round.
func (t timerModel) renderRound(snap elapsed.Snapshot, state timer.State) string {
	done := snap.CompletedSessionsCount % sessionsPerRound
	parts := make([]string, 0, sessionsPerRound)
	for i := 0; i < sessionsPerRound; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && snap.Mode == elapsed.ModeFocus && state != timer.StateIdle:
			parts = append(parts, clockStyle(state, snap.Mode).Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d today", snap.CompletedSessionsCount))
	return strings.Join(parts, " ") + counter
}

func (t timerModel) renderToday(w int) string {
	totals := t.machine.Totals()
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatMinutes(totals.TotalMinutes))

	rows := []string{
		fmt.Sprintf("%s  %s", title, total),
		fmt.Sprintf("  Completed  %s", formatMinutes(totals.CompletedMinutes)),
		fmt.Sprintf("  Active     %s", formatMinutes(totals.ActiveMinutes)),
	}
	if t.goal > 0 {
		rows = append(rows, "", "  "+goalBar(totals.TotalMinutes, t.goal, max(10, w-30)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// goalBar renders progress towards the daily goal.
func goalBar(minutes, goal, width int) string {
	filled := min(width, minutes*width/goal)
	bar := successStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
	label := fmt.Sprintf(" %s / %s", formatMinutes(minutes), formatMinutes(goal))
	if minutes >= goal {
		return bar + successStyle.Render(label+"  goal reached")
	}
	return bar + mutedStyle.Render(label)
}
