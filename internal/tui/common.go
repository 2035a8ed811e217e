package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/focusd/internal/timer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewTasks
	viewReports
	viewDashboard
	viewSettings
)

var viewNames = []string{"Timer", "Tasks", "Reports", "Points", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type flushMsg struct{}

// busMsg carries one timer event into the update loop.
type busMsg struct {
	event timer.Event
}

// actionDoneMsg reports the result of a machine action run off the UI loop.
type actionDoneMsg struct {
	action string
	err    error
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// formatClock renders seconds as MM:SS.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// formatMinutes renders minutes as 1h 05m.
func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", mins/60, mins%60)
}

func errStatus(prefix string, err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
}
