// Package elapsed computes how much focus time a timer snapshot represents.
//
// Every surface that shows focus minutes (timer view, stats widget, status
// command) calls Calculate with the same inputs, so they always agree.
package elapsed

import "time"

// Mode is the kind of interval a timer is counting.
type Mode string

const (
	ModeFocus Mode = "focus"
	ModeBreak Mode = "break"
)

// Snapshot is the client-owned timer state. It is persisted locally after
// every state change and never sent to the server as-is.
type Snapshot struct {
	Mode                     Mode   `json:"mode"`
	TimeLeft                 int    `json:"timeLeft"` // seconds
	IsActive                 bool   `json:"isActive"`
	FocusDurationMinutes     int    `json:"focusDurationMinutes"`
	BreakDurationMinutes     int    `json:"breakDurationMinutes"`
	SessionStartInstant      int64  `json:"sessionStartInstant"` // epoch ms, 0 = none
	ElapsedWhenPausedSeconds int    `json:"elapsedWhenPausedSeconds"`
	CompletedSessionsCount   int    `json:"completedSessionsCount"`
	LastPersistedInstant     int64  `json:"lastPersistedInstant"` // epoch ms
	IntervalID               string `json:"intervalId,omitempty"`
	PendingCompletion        bool   `json:"pendingCompletion,omitempty"`
}

// Duration returns the configured length of the given mode in seconds.
func (s *Snapshot) Duration(m Mode) int {
	if m == ModeBreak {
		return s.BreakDurationMinutes * 60
	}
	return s.FocusDurationMinutes * 60
}

// RunSeconds is the whole number of seconds since SessionStartInstant.
// It is zero when the timer is not running.
func (s *Snapshot) RunSeconds(now time.Time) int {
	if !s.IsActive || s.SessionStartInstant == 0 {
		return 0
	}
	d := now.UnixMilli() - s.SessionStartInstant
	if d < 0 {
		return 0
	}
	return int(d / 1000)
}

// Result is what every UI surface renders.
type Result struct {
	CompletedMinutes int  `json:"completedMinutes"`
	ActiveMinutes    int  `json:"activeMinutes"`
	TotalMinutes     int  `json:"totalMinutes"`
	IsActive         bool `json:"isActive"`
	Mode             Mode `json:"mode"`
}

// Calculate combines the server's completed minutes with the in-progress
// minutes of snap at instant now.
func Calculate(completedFromServer int, snap *Snapshot, now time.Time) Result {
	r := Result{
		CompletedMinutes: completedFromServer,
		Mode:             ModeFocus,
	}
	if snap != nil {
		r.IsActive = snap.IsActive
		r.Mode = snap.Mode
	}
	r.ActiveMinutes = ActiveMinutes(snap, now)
	r.TotalMinutes = r.CompletedMinutes + r.ActiveMinutes
	return r
}

// ActiveMinutes returns the minutes of the current, not yet finalized focus
// interval. A running interval is capped at the configured focus length.
func ActiveMinutes(snap *Snapshot, now time.Time) int {
	if snap == nil || snap.Mode != ModeFocus || snap.SessionStartInstant == 0 {
		return 0
	}
	if !snap.IsActive {
		return snap.ElapsedWhenPausedSeconds / 60
	}
	raw := snap.RunSeconds(now) + snap.ElapsedWhenPausedSeconds
	if limit := snap.FocusDurationMinutes * 60; raw > limit {
		raw = limit
	}
	return raw / 60
}
