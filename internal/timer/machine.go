// Package timer is the client-side focus timer. It measures elapsed focus
// time across pauses, restarts and crashes, persists a snapshot after every
// change, and reports progress to the server.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/focusd/internal/elapsed"
)

var (
	ErrIntervalInProgress = errors.New("an interval is already in progress")
	ErrNotRunning         = errors.New("timer is not running")
	ErrNotPaused          = errors.New("timer is not paused")
	ErrCompletionInFlight = errors.New("completion report already in flight")
)

// State is the coarse state of the machine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleting
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleting:
		return "completing"
	default:
		return "idle"
	}
}

// Clock abstracts wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ActiveReport carries the cumulative minutes of the current interval.
type ActiveReport struct {
	Minutes             int   `json:"minutes"`
	SessionStartInstant int64 `json:"sessionStartInstant,omitempty"`
}

// CompleteReport finalizes an interval on the server.
type CompleteReport struct {
	Minutes     int    `json:"minutes"`
	SessionType string `json:"sessionType"`
	IntervalID  string `json:"intervalId,omitempty"`
}

// DayTotals is the server's view of today after a report.
type DayTotals struct {
	CompletedMinutes       int  `json:"completedMinutes"`
	ActiveMinutes          int  `json:"activeMinutes"`
	TotalMinutes           int  `json:"totalMinutes"`
	SessionsCompletedCount int  `json:"sessionsCompletedCount"`
	Achieved               bool `json:"achieved"`
}

// Reporter delivers progress to the server.
type Reporter interface {
	ReportActive(ctx context.Context, r ActiveReport) (DayTotals, error)
	ReportComplete(ctx context.Context, r CompleteReport) (DayTotals, error)
	// Beacon makes a single delivery attempt with a short deadline. The
	// machine calls it off the caller's goroutine and never retries it.
	Beacon(r ActiveReport)
}

// Config wires a Machine.
type Config struct {
	FocusMinutes  int
	BreakMinutes  int
	Store         SnapshotStore
	Reporter      Reporter
	Bus           *Bus
	Clock         Clock
	Logger        *slog.Logger
	ReportTimeout time.Duration
	// Dispatch runs fire-and-forget reports. Defaults to a new goroutine.
	Dispatch func(func())
	NewID    func() string
}

// Machine owns one timer snapshot. It is safe for concurrent use; every
// method holds the machine lock while it changes state, and network calls
// happen outside it.
type Machine struct {
	mu        sync.Mutex
	snap      elapsed.Snapshot
	completed int // completed minutes last reported by the server
	// completions counts acknowledged completions. An active report answered
	// after a later completion carries a stale baseline.
	completions uint64
	inflight    bool
	lastErr     error
	beacons     sync.WaitGroup

	store    SnapshotStore
	reporter Reporter
	bus      *Bus
	clock    Clock
	log      *slog.Logger
	timeout  time.Duration
	dispatch func(func())
	newID    func() string
}

func New(cfg Config) *Machine {
	if cfg.FocusMinutes <= 0 {
		cfg.FocusMinutes = 25
	}
	if cfg.BreakMinutes <= 0 {
		cfg.BreakMinutes = 5
	}
	m := &Machine{
		store:    cfg.Store,
		reporter: cfg.Reporter,
		bus:      cfg.Bus,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		timeout:  cfg.ReportTimeout,
		dispatch: cfg.Dispatch,
		newID:    cfg.NewID,
	}
	if m.clock == nil {
		m.clock = systemClock{}
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.timeout <= 0 {
		m.timeout = 10 * time.Second
	}
	if m.dispatch == nil {
		m.dispatch = func(f func()) { go f() }
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	m.snap = elapsed.Snapshot{
		Mode:                 elapsed.ModeFocus,
		FocusDurationMinutes: cfg.FocusMinutes,
		BreakDurationMinutes: cfg.BreakMinutes,
		TimeLeft:             cfg.FocusMinutes * 60,
	}
	return m
}

// Snapshot returns a copy of the current snapshot.
func (m *Machine) Snapshot() elapsed.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

func (m *Machine) state() State {
	switch {
	case m.snap.PendingCompletion:
		return StateCompleting
	case m.snap.IsActive:
		return StateRunning
	case m.snap.SessionStartInstant != 0:
		return StatePaused
	default:
		return StateIdle
	}
}

// LastError is the most recent completion failure, cleared on success.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SetCompleted sets the server's completed minutes for today, the baseline
// Totals adds in-progress minutes to.
func (m *Machine) SetCompleted(minutes int) {
	m.mu.Lock()
	m.completed = minutes
	m.mu.Unlock()
}

// Totals is what every view should display.
func (m *Machine) Totals() elapsed.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return elapsed.Calculate(m.completed, &m.snap, m.clock.Now())
}

// SetDurations changes the configured interval lengths while idle.
func (m *Machine) SetDurations(focusMinutes, breakMinutes int) error {
	if focusMinutes <= 0 || breakMinutes <= 0 {
		return fmt.Errorf("durations must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state() != StateIdle {
		return ErrIntervalInProgress
	}
	m.snap.FocusDurationMinutes = focusMinutes
	m.snap.BreakDurationMinutes = breakMinutes
	m.snap.TimeLeft = m.snap.Duration(m.snap.Mode)
	m.commit(m.clock.Now())
	return nil
}

// Restore loads the last snapshot and replays the wall-clock time that passed
// while the process was gone. It reports whether a focus interval finished in
// the meantime and needs Complete.
func (m *Machine) Restore() (bool, error) {
	if m.store == nil {
		return false, nil
	}
	loaded, err := m.store.Load()
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = *loaded
	now := m.clock.Now()

	if m.snap.IsActive {
		drift := int((now.UnixMilli() - m.snap.LastPersistedInstant) / 1000)
		if drift < 0 {
			drift = 0
		}
		if drift >= m.snap.TimeLeft {
			m.finish(now)
		} else {
			m.snap.TimeLeft -= drift
		}
	}
	m.commit(now)
	return m.snap.PendingCompletion, nil
}

// Start begins a fresh interval of the given mode.
func (m *Machine) Start(ctx context.Context, mode elapsed.Mode) error {
	if err := m.retryPending(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.state(); st != StateIdle {
		return ErrIntervalInProgress
	}
	now := m.clock.Now()
	m.snap.Mode = mode
	m.snap.SessionStartInstant = now.UnixMilli()
	m.snap.ElapsedWhenPausedSeconds = 0
	m.snap.TimeLeft = m.snap.Duration(mode)
	m.snap.IsActive = true
	m.snap.IntervalID = m.newID()
	m.commit(now)
	return nil
}

// Pause banks the seconds of the current run and reports the interval's
// cumulative minutes once, without waiting for the answer.
func (m *Machine) Pause() error {
	m.mu.Lock()
	if !m.snap.IsActive {
		m.mu.Unlock()
		return ErrNotRunning
	}
	now := m.clock.Now()
	m.snap.ElapsedWhenPausedSeconds += m.snap.RunSeconds(now)
	m.snap.IsActive = false
	m.snap.TimeLeft = m.remaining(now)
	m.commit(now)

	report, ok := m.activeReport(now)
	gen := m.completions
	m.mu.Unlock()

	if ok {
		m.sendActive("pause", report, gen)
	}
	return nil
}

// Resume starts a new run from now. Seconds banked by earlier runs are kept.
func (m *Machine) Resume(ctx context.Context) error {
	if err := m.retryPending(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state() != StatePaused {
		return ErrNotPaused
	}
	now := m.clock.Now()
	m.snap.SessionStartInstant = now.UnixMilli()
	m.snap.IsActive = true
	m.commit(now)
	return nil
}

// Tick advances the countdown. It returns true when a focus interval has just
// run out and Complete must be called.
func (m *Machine) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.snap.IsActive {
		return false
	}
	now := m.clock.Now()
	m.snap.TimeLeft = m.remaining(now)
	if m.snap.TimeLeft <= 0 {
		m.finish(now)
	}
	m.commit(now)
	return m.snap.PendingCompletion
}

// remaining is the countdown value at now. Callers hold the lock.
func (m *Machine) remaining(now time.Time) int {
	left := m.snap.Duration(m.snap.Mode) - m.snap.ElapsedWhenPausedSeconds - m.snap.RunSeconds(now)
	if left < 0 {
		return 0
	}
	return left
}

// finish ends the running interval. A focus interval banks its full length
// and waits for Complete; a break rolls straight over to an idle focus
// interval. Callers hold the lock.
func (m *Machine) finish(now time.Time) {
	if m.snap.Mode == elapsed.ModeBreak {
		m.toIdle(elapsed.ModeFocus)
		m.bus.Publish(Event{Kind: EventCompleted, Snapshot: m.snap})
		return
	}
	banked := m.snap.ElapsedWhenPausedSeconds + m.snap.RunSeconds(now)
	if limit := m.snap.Duration(elapsed.ModeFocus); banked > limit {
		banked = limit
	}
	m.snap.ElapsedWhenPausedSeconds = banked
	m.snap.IsActive = false
	m.snap.TimeLeft = 0
	m.snap.PendingCompletion = true
}

func (m *Machine) toIdle(mode elapsed.Mode) {
	m.snap.Mode = mode
	m.snap.IsActive = false
	m.snap.SessionStartInstant = 0
	m.snap.ElapsedWhenPausedSeconds = 0
	m.snap.TimeLeft = m.snap.Duration(mode)
	m.snap.IntervalID = ""
	m.snap.PendingCompletion = false
}

// Complete reports a finished focus interval. On success the interval is
// cleared, the completed count goes up and the machine moves to an idle
// break. On failure the completion stays pending and the error is returned;
// it is retried by the next Start, Reset or RetryCompletion.
func (m *Machine) Complete(ctx context.Context) error {
	m.mu.Lock()
	if !m.snap.PendingCompletion {
		m.mu.Unlock()
		return nil
	}
	if m.inflight {
		m.mu.Unlock()
		return ErrCompletionInFlight
	}
	m.inflight = true
	report := CompleteReport{
		Minutes:     m.snap.FocusDurationMinutes,
		SessionType: string(elapsed.ModeFocus),
		IntervalID:  m.snap.IntervalID,
	}
	m.mu.Unlock()

	var totals DayTotals
	err := errors.New("no reporter configured")
	if m.reporter != nil {
		rctx, cancel := context.WithTimeout(ctx, m.timeout)
		totals, err = m.reporter.ReportComplete(rctx, report)
		cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = false
	now := m.clock.Now()
	if err != nil {
		m.lastErr = fmt.Errorf("report completed session: %w", err)
		m.log.Warn("completion report failed", "interval", report.IntervalID, "err", err)
		m.commit(now)
		m.bus.Publish(Event{Kind: EventCompleteFailed, Minutes: report.Minutes, Err: m.lastErr, Snapshot: m.snap})
		return m.lastErr
	}

	m.lastErr = nil
	m.completed = totals.CompletedMinutes
	m.completions++
	m.snap.CompletedSessionsCount++
	m.toIdle(elapsed.ModeBreak)
	m.commit(now)
	m.bus.Publish(Event{Kind: EventCompleted, Minutes: report.Minutes, Snapshot: m.snap})
	return nil
}

// RetryCompletion is the explicit user action for a failed completion.
func (m *Machine) RetryCompletion(ctx context.Context) error {
	return m.Complete(ctx)
}

func (m *Machine) retryPending(ctx context.Context) error {
	m.mu.Lock()
	pending := m.snap.PendingCompletion
	m.mu.Unlock()
	if !pending {
		return nil
	}
	return m.Complete(ctx)
}

// Reset abandons the current interval without counting it as completed.
// Minutes of an unfinished focus interval are flushed to the server first.
func (m *Machine) Reset(ctx context.Context) error {
	if err := m.retryPending(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	now := m.clock.Now()
	report, ok := m.activeReport(now)
	gen := m.completions
	m.toIdle(m.snap.Mode)
	m.commit(now)
	m.mu.Unlock()

	if ok {
		m.sendActive("reset", report, gen)
	}
	return nil
}

// Flush reports the current interval's minutes without waiting. The periodic
// auto-save calls it.
func (m *Machine) Flush(reason string) {
	m.mu.Lock()
	report, ok := m.activeReport(m.clock.Now())
	gen := m.completions
	m.mu.Unlock()
	if ok {
		m.sendActive(reason, report, gen)
	}
}

// Unload persists the snapshot and dispatches one best-effort delivery of
// the current minutes. It returns at once, so losing focus never stalls the
// caller. A process about to exit should call Drain afterwards.
func (m *Machine) Unload() {
	m.mu.Lock()
	now := m.clock.Now()
	m.commit(now)
	report, ok := m.activeReport(now)
	m.mu.Unlock()
	if !ok || m.reporter == nil {
		return
	}
	m.beacons.Add(1)
	m.dispatch(func() {
		defer m.beacons.Done()
		m.reporter.Beacon(report)
	})
}

// DrainTimeout bounds how long an exiting process waits for its beacon.
const DrainTimeout = 2 * time.Second

// Drain waits up to d for dispatched beacons and reports whether they all
// finished.
func (m *Machine) Drain(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.beacons.Wait()
		close(done)
	}()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// activeReport builds the report for an unfinished focus interval. Callers
// hold the lock.
func (m *Machine) activeReport(now time.Time) (ActiveReport, bool) {
	s := &m.snap
	if s.Mode != elapsed.ModeFocus || s.SessionStartInstant == 0 || s.PendingCompletion {
		return ActiveReport{}, false
	}
	return ActiveReport{
		Minutes:             elapsed.ActiveMinutes(s, now),
		SessionStartInstant: s.SessionStartInstant,
	}, true
}

func (m *Machine) sendActive(reason string, r ActiveReport, gen uint64) {
	if m.reporter == nil {
		return
	}
	m.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		totals, err := m.reporter.ReportActive(ctx, r)
		if err != nil {
			m.log.Warn("active minutes report failed", "reason", reason, "minutes", r.Minutes, "err", err)
			m.bus.Publish(Event{Kind: EventSaveFailed, Minutes: r.Minutes, Err: err, Snapshot: m.Snapshot()})
			return
		}
		m.mu.Lock()
		if m.completions == gen {
			m.completed = totals.CompletedMinutes
		}
		m.mu.Unlock()
		m.bus.Publish(Event{Kind: EventSaved, Minutes: r.Minutes, Snapshot: m.Snapshot()})
	})
}

// commit stamps and persists the snapshot, then announces it. Callers hold
// the lock.
func (m *Machine) commit(now time.Time) {
	m.snap.LastPersistedInstant = now.UnixMilli()
	if m.store != nil {
		if err := m.store.Save(m.snap); err != nil {
			m.log.Warn("persist timer snapshot", "err", err)
		}
	}
	m.bus.Publish(Event{Kind: EventState, Snapshot: m.snap})
}
