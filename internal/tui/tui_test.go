package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/focusd/internal/client"
	"github.com/sadopc/focusd/internal/elapsed"
	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/progress"
	"github.com/sadopc/focusd/internal/store"
	"github.com/sadopc/focusd/internal/timer"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeReporter struct {
	mu        sync.Mutex
	completed int
	actives   []timer.ActiveReport
	beacons   []timer.ActiveReport
	failNext  error
}

func (r *fakeReporter) ReportActive(_ context.Context, a timer.ActiveReport) (timer.DayTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actives = append(r.actives, a)
	return timer.DayTotals{CompletedMinutes: r.completed, ActiveMinutes: a.Minutes}, nil
}

func (r *fakeReporter) ReportComplete(_ context.Context, c timer.CompleteReport) (timer.DayTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return timer.DayTotals{}, err
	}
	r.completed += c.Minutes
	return timer.DayTotals{CompletedMinutes: r.completed}, nil
}

func (r *fakeReporter) Beacon(a timer.ActiveReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beacons = append(r.beacons, a)
}

type fakeBackend struct {
	mu      sync.Mutex
	today   client.Day
	days    []client.Day
	tasks   []store.Task
	txs     []store.Transaction
	status  progress.Status
	streaks progress.Streaks
	outcome *points.Outcome
	err     error
	months  []time.Month
}

func (b *fakeBackend) Today(context.Context) (*client.Day, error) {
	if b.err != nil {
		return nil, b.err
	}
	d := b.today
	return &d, nil
}

func (b *fakeBackend) Month(_ context.Context, _ int, m time.Month) ([]client.Day, error) {
	b.mu.Lock()
	b.months = append(b.months, m)
	b.mu.Unlock()
	return b.days, b.err
}

func (b *fakeBackend) All(context.Context) ([]client.Day, error) { return b.days, b.err }

func (b *fakeBackend) Points(context.Context) (progress.Status, error) { return b.status, b.err }

func (b *fakeBackend) Streak(context.Context) (progress.Streaks, error) { return b.streaks, b.err }

func (b *fakeBackend) History(_ context.Context, limit int) ([]store.Transaction, error) {
	if limit < len(b.txs) {
		return b.txs[:limit], b.err
	}
	return b.txs, b.err
}

func (b *fakeBackend) Tasks(context.Context) ([]store.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.Task(nil), b.tasks...), b.err
}

func (b *fakeBackend) CreateTask(_ context.Context, title string) (*store.Task, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := store.Task{ID: int64(len(b.tasks) + 1), Title: title}
	b.tasks = append(b.tasks, t)
	return &t, nil
}

func (b *fakeBackend) SetTaskCompleted(_ context.Context, id int64, completed bool) (*client.TaskResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i].Completed = completed
			return &client.TaskResult{Task: b.tasks[i], Points: b.outcome}, nil
		}
	}
	return nil, store.ErrNotFound
}

type testEnv struct {
	app      App
	machine  *timer.Machine
	clock    *fakeClock
	reporter *fakeReporter
	backend  *fakeBackend
	bus      *timer.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:    &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		reporter: &fakeReporter{},
		backend:  &fakeBackend{},
		bus:      timer.NewBus(),
	}
	env.machine = timer.New(timer.Config{
		FocusMinutes: 25,
		BreakMinutes: 5,
		Reporter:     env.reporter,
		Bus:          env.bus,
		Clock:        env.clock,
		Dispatch:     func(f func()) { f() },
		NewID:        func() string { return "interval-1" },
	})
	env.app = NewApp(Options{
		Machine:     env.machine,
		Bus:         env.bus,
		Backend:     env.backend,
		GoalMinutes: 120,
		ExportDir:   t.TempDir(),
		Schedule:    timer.Schedule{Tick: time.Millisecond, FirstFlush: time.Millisecond, Flush: time.Millisecond},
	})
	t.Cleanup(func() {
		if env.app.stop != nil {
			env.app.stop()
		}
	})
	env.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return env
}

func (e *testEnv) send(msg tea.Msg) App {
	m, _ := e.app.Update(msg)
	e.app = m.(App)
	return e.app
}

// dispatch sends msg and runs every command that follows from it, feeding
// the resulting messages back into the app until nothing is left.
func (e *testEnv) dispatch(msg tea.Msg) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		m, cmd := e.app.Update(queue[0])
		e.app = m.(App)
		queue = append(queue[1:], runCmd(cmd)...)
	}
}

func (e *testEnv) press(k tea.KeyMsg) { e.dispatch(k) }

// runCmd executes cmd, expanding batches. Ticks are skipped so tests never
// wait on timers.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, runCmd(c)...)
		}
		return out
	case tickMsg, flushMsg:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatClock(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{25 * 60, "25:00"},
		{61, "01:01"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.secs); got != tt.want {
			t.Fatalf("formatClock(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := formatMinutes(45); got != "45m" {
		t.Fatalf("got %q", got)
	}
	if got := formatMinutes(125); got != "2h 05m" {
		t.Fatalf("got %q", got)
	}
}

func TestPlural(t *testing.T) {
	if plural(1, "day") != "1 day" || plural(3, "day") != "3 days" {
		t.Fatal("plural mismatch")
	}
}

// ============================================================
// Timer view
// ============================================================

func TestStartFocusKey(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))

	if env.machine.State() != timer.StateRunning {
		t.Fatalf("state = %v, want running", env.machine.State())
	}
	if env.app.status != "Focus started" {
		t.Fatalf("status = %q", env.app.status)
	}
}

func TestStartWhileRunningShowsError(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.press(runes("b"))

	if !env.app.statusErr {
		t.Fatal("second start should report an error")
	}
	if snap := env.machine.Snapshot(); snap.Mode != elapsed.ModeFocus {
		t.Fatalf("mode = %s, want focus", snap.Mode)
	}
}

func TestPauseAndResumeKey(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.clock.advance(3 * time.Minute)

	env.press(runes(" "))
	if env.machine.State() != timer.StatePaused {
		t.Fatalf("state = %v, want paused", env.machine.State())
	}
	if len(env.reporter.actives) != 1 || env.reporter.actives[0].Minutes != 3 {
		t.Fatalf("pause should report 3 minutes, got %+v", env.reporter.actives)
	}

	env.press(runes(" "))
	if env.machine.State() != timer.StateRunning {
		t.Fatalf("state = %v, want running", env.machine.State())
	}
}

func TestTimerKeysWorkFromOtherViews(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("2"))
	if env.app.activeView != viewTasks {
		t.Fatalf("view = %d, want tasks", env.app.activeView)
	}

	env.press(runes("s"))
	if env.machine.State() != timer.StateRunning {
		t.Fatal("s should start focus from the tasks view")
	}
	if !strings.Contains(env.app.View(), "●") {
		t.Fatal("footer should show the countdown")
	}
}

func TestTickCompletesFocus(t *testing.T) {
	env := newTestEnv(t)
	env.backend.today.CompletedMinutes = 25 // what the server holds after the report
	env.press(runes("s"))
	env.clock.advance(25 * time.Minute)

	env.dispatch(tickMsg(env.clock.Now()))

	if env.machine.State() != timer.StateIdle {
		t.Fatalf("state = %v, want idle", env.machine.State())
	}
	snap := env.machine.Snapshot()
	if snap.Mode != elapsed.ModeBreak || snap.CompletedSessionsCount != 1 {
		t.Fatalf("snapshot = %+v, want idle break after one session", snap)
	}
	if got := env.machine.Totals().CompletedMinutes; got != 25 {
		t.Fatalf("completed = %d, want 25", got)
	}
}

func TestFailedCompletionShowsRetry(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.reporter.failNext = errors.New("offline")
	env.clock.advance(25 * time.Minute)

	env.dispatch(tickMsg(env.clock.Now()))
	if env.machine.State() != timer.StateCompleting {
		t.Fatalf("state = %v, want completing", env.machine.State())
	}

	// Drain the bus into the view.
	for drained := false; !drained; {
		select {
		case e := <-env.app.events:
			env.send(busMsg{event: e})
		default:
			drained = true
		}
	}
	if !strings.Contains(env.app.timer.saveStatus, "press c") {
		t.Fatalf("save status = %q", env.app.timer.saveStatus)
	}

	env.press(runes("c"))
	if env.machine.State() != timer.StateIdle {
		t.Fatalf("state = %v after retry, want idle", env.machine.State())
	}
	if env.app.status != "Session saved" {
		t.Fatalf("status = %q", env.app.status)
	}
}

func TestResetKey(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.clock.advance(10 * time.Minute)
	env.press(runes("x"))

	if env.machine.State() != timer.StateIdle {
		t.Fatal("reset should leave the timer idle")
	}
	if len(env.reporter.actives) != 1 || env.reporter.actives[0].Minutes != 10 {
		t.Fatalf("reset should flush 10 minutes, got %+v", env.reporter.actives)
	}
}

func TestApplyEvent(t *testing.T) {
	tm := newTimerModel(nil, 120)
	tm.applyEvent(timer.Event{Kind: timer.EventSaved, Minutes: 7})
	if tm.saveStatus != "Saved 7 min" || tm.saveErr {
		t.Fatalf("saved: %q %v", tm.saveStatus, tm.saveErr)
	}
	tm.applyEvent(timer.Event{Kind: timer.EventSaveFailed})
	if !tm.saveErr {
		t.Fatal("save-failed should be an error")
	}
	tm.applyEvent(timer.Event{Kind: timer.EventCompleted, Snapshot: elapsed.Snapshot{Mode: elapsed.ModeBreak}})
	if !strings.Contains(tm.saveStatus, "take a break") {
		t.Fatalf("completed: %q", tm.saveStatus)
	}
	tm.applyEvent(timer.Event{Kind: timer.EventState})
	if !strings.Contains(tm.saveStatus, "take a break") {
		t.Fatal("state events should not change the save status")
	}
}

func TestActionStatus(t *testing.T) {
	if s := actionStatus(actionDoneMsg{action: "start", err: timer.ErrIntervalInProgress}); !s.isError {
		t.Fatal("interval in progress should be an error")
	}
	if s := actionStatus(actionDoneMsg{action: "retry", err: timer.ErrCompletionInFlight}); s.isError {
		t.Fatal("in-flight completion is not an error")
	}
	s := actionStatus(actionDoneMsg{action: "reset", err: errors.New("boom")})
	if !s.isError || !strings.Contains(s.text, "boom") {
		t.Fatalf("status = %+v", s)
	}
}

func TestGoalBar(t *testing.T) {
	if bar := goalBar(60, 120, 10); !strings.Contains(bar, "1h 00m / 2h 00m") {
		t.Fatalf("bar = %q", bar)
	}
	if bar := goalBar(200, 120, 10); !strings.Contains(bar, "goal reached") {
		t.Fatalf("bar = %q", bar)
	}
}

func TestSyncTodaySetsBaseline(t *testing.T) {
	env := newTestEnv(t)
	env.backend.today.CompletedMinutes = 50

	runCmd(env.app.syncToday())
	if got := env.machine.Totals().CompletedMinutes; got != 50 {
		t.Fatalf("completed = %d, want 50", got)
	}
}

// ============================================================
// Lifecycle
// ============================================================

func TestQuitUnloads(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.clock.advance(4 * time.Minute)

	_, cmd := env.app.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if len(env.reporter.beacons) != 1 || env.reporter.beacons[0].Minutes != 4 {
		t.Fatalf("quit should beacon 4 minutes, got %+v", env.reporter.beacons)
	}
}

func TestBlurUnloads(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.send(tea.BlurMsg{})
	if len(env.reporter.beacons) != 1 {
		t.Fatalf("blur should beacon once, got %d", len(env.reporter.beacons))
	}
}

func TestFlushReportsActiveMinutes(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.clock.advance(2 * time.Minute)

	_, cmd := env.app.Update(flushMsg{})
	if cmd == nil {
		t.Fatal("flush should schedule the next flush")
	}
	if len(env.reporter.actives) != 1 || env.reporter.actives[0].Minutes != 2 {
		t.Fatalf("actives = %+v", env.reporter.actives)
	}
}

// ============================================================
// Views
// ============================================================

func TestTabSwitching(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < len(viewNames); i++ {
		if int(env.app.activeView) != i {
			t.Fatalf("view = %d, want %d", env.app.activeView, i)
		}
		env.press(tea.KeyMsg{Type: tea.KeyTab})
	}
	if env.app.activeView != viewTimer {
		t.Fatal("tab should wrap around to the timer")
	}
}

func TestViewsRender(t *testing.T) {
	env := newTestEnv(t)
	for i, name := range viewNames {
		env.app.activeView = viewState(i)
		out := env.app.View()
		if !strings.Contains(out, "focusd") || !strings.Contains(out, name) {
			t.Fatalf("view %s missing header", name)
		}
	}
}

func TestTasksToggleShowsPoints(t *testing.T) {
	env := newTestEnv(t)
	env.backend.tasks = []store.Task{{ID: 1, Title: "write report"}}
	env.backend.outcome = &points.Outcome{Awarded: true, Points: 10, NewBalance: 35}

	env.press(runes("2"))
	if len(env.app.tasks.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(env.app.tasks.tasks))
	}

	env.press(tea.KeyMsg{Type: tea.KeyEnter})
	if !env.app.tasks.tasks[0].Completed {
		t.Fatal("task should be completed")
	}
	if env.app.status != "+10 points, balance 35" {
		t.Fatalf("status = %q", env.app.status)
	}
}

func TestPointsStatus(t *testing.T) {
	if s := pointsStatus(nil); s.text != "Task updated" {
		t.Fatalf("nil outcome: %q", s.text)
	}
	if s := pointsStatus(&points.Outcome{Reason: "task completion is locked for 5 minutes"}); !strings.Contains(s.text, "locked") {
		t.Fatalf("rejected: %q", s.text)
	}
	if s := pointsStatus(&points.Outcome{Awarded: true, Points: -5, NewBalance: 30}); s.text != "-5 points, balance 30" {
		t.Fatalf("deduction: %q", s.text)
	}
}

// Form commands include the cursor blink loop, so this test only sends
// messages and never runs the returned commands.
func TestTaskFormOpensAndCancels(t *testing.T) {
	env := newTestEnv(t)
	env.send(runes("2"))
	env.send(runes("n"))
	if !env.app.tasks.formActive {
		t.Fatal("n should open the task form")
	}

	// Keys go to the form, not the tab bar.
	env.send(runes("3"))
	if env.app.activeView != viewTasks {
		t.Fatal("form should capture keys")
	}

	env.send(tea.KeyMsg{Type: tea.KeyEscape})
	if env.app.tasks.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestTasksLoadError(t *testing.T) {
	env := newTestEnv(t)
	env.backend.err = errors.New("server down")
	env.press(runes("2"))
	if !env.app.statusErr || !strings.Contains(env.app.status, "server down") {
		t.Fatalf("status = %q", env.app.status)
	}
}

func TestReportsNavigation(t *testing.T) {
	env := newTestEnv(t)
	env.app.reports.now = env.clock.Now
	env.press(runes("3"))

	env.press(tea.KeyMsg{Type: tea.KeyLeft})
	if env.app.reports.offset != 1 {
		t.Fatalf("offset = %d, want 1", env.app.reports.offset)
	}
	if got := env.app.reports.month().Month(); got != time.February {
		t.Fatalf("month = %s, want February", got)
	}

	env.press(tea.KeyMsg{Type: tea.KeyRight})
	env.press(tea.KeyMsg{Type: tea.KeyRight})
	if env.app.reports.offset != 0 {
		t.Fatalf("offset = %d, want 0", env.app.reports.offset)
	}

	months := env.backend.months
	if len(months) != 3 || months[1] != time.February || months[2] != time.March {
		t.Fatalf("months requested = %v", months)
	}
}

func TestReportsIgnoresStaleMonth(t *testing.T) {
	r := newReportsModel(&fakeBackend{}, nil, 120)
	r.offset = 2
	r, _ = r.update(reportsDataMsg{offset: 0, days: []client.Day{{TotalMinutes: 10}}})
	if len(r.days) != 0 {
		t.Fatal("stale month data should be dropped")
	}
}

func TestReportsTodayUsesLiveTotals(t *testing.T) {
	env := newTestEnv(t)
	r := env.app.reports
	r.now = env.clock.Now
	r.days = []client.Day{
		{DailySession: store.DailySession{Day: "2026-03-13", CompletedMinutes: 50}},
		{DailySession: store.DailySession{Day: "2026-03-14", CompletedMinutes: 25}},
	}

	env.machine.SetCompleted(25)
	env.press(runes("s"))
	env.clock.advance(7 * time.Minute)

	byDay := r.minutesByDay()
	if byDay["2026-03-13"] != [2]int{50, 0} {
		t.Fatalf("yesterday = %v", byDay["2026-03-13"])
	}
	if byDay["2026-03-14"] != [2]int{25, 7} {
		t.Fatalf("today = %v, want live 25+7", byDay["2026-03-14"])
	}
}

func TestDashboardLoadData(t *testing.T) {
	b := &fakeBackend{
		status:  progress.Progress(150),
		streaks: progress.Streaks{Current: 3, Longest: 8},
		txs:     []store.Transaction{{ID: 1, Points: 25, Reason: "Completed 25-minute focus session"}},
	}
	d := newDashboardModel(b)
	d.setSize(100, 30)

	msgs := runCmd(d.loadData())
	if len(msgs) != 1 {
		t.Fatalf("msgs = %d, want 1", len(msgs))
	}
	d, _ = d.update(msgs[0])
	if !d.loaded || d.streaks.Current != 3 || len(d.history) != 1 {
		t.Fatalf("dashboard = %+v", d)
	}

	out := d.view()
	if !strings.Contains(out, "Level 2") || !strings.Contains(out, "3 days") {
		t.Fatalf("view missing level or streak:\n%s", out)
	}
}

func TestDashboardLoadError(t *testing.T) {
	d := newDashboardModel(&fakeBackend{err: errors.New("nope")})
	msgs := runCmd(d.loadData())
	if s, ok := msgs[0].(statusMsg); !ok || !s.isError {
		t.Fatalf("expected error status, got %#v", msgs[0])
	}
}

func TestSettingsSave(t *testing.T) {
	env := newTestEnv(t)
	var saved [2]int
	s := newSettingsModel(env.machine, 120, func(f, b int) error {
		saved = [2]int{f, b}
		return nil
	})
	*s.focusMinutes = "50"
	*s.breakMinutes = "10"

	if st := s.save(); st.isError {
		t.Fatalf("save: %s", st.text)
	}
	snap := env.machine.Snapshot()
	if snap.FocusDurationMinutes != 50 || snap.BreakDurationMinutes != 10 || snap.TimeLeft != 50*60 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if saved != [2]int{50, 10} {
		t.Fatalf("onSave got %v", saved)
	}
}

func TestSettingsLockedWhileRunning(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("s"))
	env.press(runes("5"))
	env.press(tea.KeyMsg{Type: tea.KeyEnter})

	if env.app.settings.formActive {
		t.Fatal("form should not open while the timer runs")
	}
	if !env.app.statusErr {
		t.Fatal("expected an error status")
	}
}

func TestValidMinutes(t *testing.T) {
	for _, v := range []string{"", "0", "abc", "241"} {
		if validMinutes(v) == nil {
			t.Fatalf("%q should be invalid", v)
		}
	}
	if validMinutes("25") != nil {
		t.Fatal("25 should be valid")
	}
}

// ============================================================
// Export
// ============================================================

func TestExportCSVAndJSON(t *testing.T) {
	env := newTestEnv(t)
	env.backend.days = []client.Day{
		{DailySession: store.DailySession{Day: "2026-03-14", CompletedMinutes: 125, Achieved: true}},
	}
	env.backend.txs = []store.Transaction{{ID: 1, Points: 25, Type: store.TxFocusSessionCompleted}}

	msgs := runCmd(env.app.doExport(0))
	done, ok := msgs[0].(exportDoneMsg)
	if !ok {
		t.Fatalf("csv export: %#v", msgs[0])
	}
	if _, err := os.Stat(done.path); err != nil {
		t.Fatalf("days csv missing: %v", err)
	}
	ledger, _ := filepath.Glob(filepath.Join(env.app.exportTo, "focusd-points-*.csv"))
	if len(ledger) != 1 {
		t.Fatalf("ledger csv files = %v", ledger)
	}

	msgs = runCmd(env.app.doExport(1))
	done, ok = msgs[0].(exportDoneMsg)
	if !ok || !strings.HasSuffix(done.path, ".json") {
		t.Fatalf("json export: %#v", msgs[0])
	}

	env.send(done)
	if !strings.HasPrefix(env.app.status, "Exported to ") {
		t.Fatalf("status = %q", env.app.status)
	}
}

func TestExportPicker(t *testing.T) {
	env := newTestEnv(t)
	env.press(runes("e"))
	if !env.app.exportPicking {
		t.Fatal("e should open the export picker")
	}
	env.press(tea.KeyMsg{Type: tea.KeyDown})
	if env.app.exportCursor != 1 {
		t.Fatalf("cursor = %d, want 1", env.app.exportCursor)
	}
	env.press(tea.KeyMsg{Type: tea.KeyEscape})
	if env.app.exportPicking {
		t.Fatal("esc should close the picker")
	}
}
