package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusd/internal/client"
	"github.com/sadopc/focusd/internal/export"
	"github.com/sadopc/focusd/internal/progress"
	"github.com/sadopc/focusd/internal/store"
	"github.com/sadopc/focusd/internal/timer"
)

// exportHistoryLimit is the most ledger rows the server returns at once.
const exportHistoryLimit = 100

// Backend is the server API the views read from. *client.Client implements it.
type Backend interface {
	Today(ctx context.Context) (*client.Day, error)
	Month(ctx context.Context, year int, month time.Month) ([]client.Day, error)
	All(ctx context.Context) ([]client.Day, error)
	Points(ctx context.Context) (progress.Status, error)
	Streak(ctx context.Context) (progress.Streaks, error)
	History(ctx context.Context, limit int) ([]store.Transaction, error)
	Tasks(ctx context.Context) ([]store.Task, error)
	CreateTask(ctx context.Context, title string) (*store.Task, error)
	SetTaskCompleted(ctx context.Context, id int64, completed bool) (*client.TaskResult, error)
}

var _ Backend = (*client.Client)(nil)

// Options wires an App.
type Options struct {
	Machine     *timer.Machine
	Bus         *timer.Bus
	Backend     Backend
	GoalMinutes int
	// ExportDir defaults to the home directory.
	ExportDir       string
	OnSaveDurations SaveDurationsFunc
	Schedule        timer.Schedule
}

// App is the root Bubble Tea model.
type App struct {
	machine  *timer.Machine
	backend  Backend
	events   <-chan timer.Event
	stop     func()
	schedule timer.Schedule
	goal     int
	exportTo string

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	timer     timerModel
	tasks     tasksModel
	reports   reportsModel
	dashboard dashboardModel
	settings  settingsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	sched := opts.Schedule
	if sched.Tick <= 0 {
		sched = timer.DefaultSchedule
	}
	exportTo := opts.ExportDir
	if exportTo == "" {
		exportTo, _ = os.UserHomeDir()
	}

	a := App{
		machine:    opts.Machine,
		backend:    opts.Backend,
		schedule:   sched,
		goal:       opts.GoalMinutes,
		exportTo:   exportTo,
		activeView: viewTimer,
		timer:      newTimerModel(opts.Machine, opts.GoalMinutes),
		tasks:      newTasksModel(opts.Backend),
		reports:    newReportsModel(opts.Backend, opts.Machine, opts.GoalMinutes),
		dashboard:  newDashboardModel(opts.Backend),
		settings:   newSettingsModel(opts.Machine, opts.GoalMinutes, opts.OnSaveDurations),
		help:       h,
	}
	if opts.Bus != nil {
		a.events, a.stop = opts.Bus.Subscribe()
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.tickCmd(),
		tea.Tick(a.schedule.FirstFlush, func(time.Time) tea.Msg { return flushMsg{} }),
		a.listen(),
		a.syncToday(),
	)
}

func (a App) tickCmd() tea.Cmd {
	return tea.Tick(a.schedule.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listen waits for the next timer event.
func (a App) listen() tea.Cmd {
	if a.events == nil {
		return nil
	}
	events := a.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return busMsg{event: e}
	}
}

// syncToday loads the server's completed minutes as the baseline for Totals.
func (a App) syncToday() tea.Cmd {
	b, m := a.backend, a.machine
	return func() tea.Msg {
		day, err := b.Today(context.Background())
		if err != nil {
			return errStatus("Load today", err)
		}
		m.SetCompleted(day.CompletedMinutes)
		return nil
	}
}

// shutdown persists the snapshot and sends a last report before exit.
func (a App) shutdown() tea.Cmd {
	a.machine.Unload()
	if a.stop != nil {
		a.stop()
	}
	return tea.Quit
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.dashboard.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.BlurMsg:
		a.machine.Unload()
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child view capturing input (e.g. a form) sees keys first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, a.shutdown()
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}
		for i, b := range keys.Views {
			if key.Matches(msg, b) {
				return a.switchTo(viewState(i))
			}
		}

		// Timer keys work from every view.
		if a.activeView != viewTimer && keys.timerKey(msg) {
			var cmd tea.Cmd
			a.timer, cmd = a.timer.update(msg)
			return a, cmd
		}

	case tickMsg:
		cmds := []tea.Cmd{a.tickCmd()}
		if a.machine.Tick() {
			cmds = append(cmds, action("complete", a.machine.Complete))
		}
		return a, tea.Batch(cmds...)

	case flushMsg:
		a.machine.Flush("autosave")
		return a, tea.Tick(a.schedule.Flush, func(time.Time) tea.Msg { return flushMsg{} })

	case busMsg:
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		return a, tea.Batch(cmd, a.listen())

	case actionDoneMsg:
		status := actionStatus(msg)
		a.setStatus(status)
		if msg.err == nil && (msg.action == "complete" || msg.action == "retry") {
			return a, a.refreshCurrentView()
		}
		return a, nil

	case statusMsg:
		a.setStatus(msg)
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(s statusMsg) {
	if s.text == "" {
		return
	}
	a.status = s.text
	a.statusErr = s.isError
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTimer:
		return a.syncToday()
	case viewTasks:
		return a.tasks.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewDashboard:
		return a.dashboard.loadData()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewTasks:
		content = a.tasks.view()
	case viewReports:
		content = a.reports.view()
	case viewDashboard:
		content = a.dashboard.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := brandStyle.Render("focusd")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Countdown indicator when the timer view is not showing.
	timerInfo := ""
	if a.activeView != viewTimer {
		snap := a.machine.Snapshot()
		switch a.machine.State() {
		case timer.StateRunning:
			timerInfo = successStyle.Render(" ● " + formatClock(snap.TimeLeft))
		case timer.StatePaused:
			timerInfo = warningStyle.Render(" ⏸ " + formatClock(snap.TimeLeft))
		case timer.StateCompleting:
			timerInfo = errorStyle.Render(" ◌ unsaved")
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Format"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	b, dir, goal := a.backend, a.exportTo, a.goal
	return func() tea.Msg {
		ctx := context.Background()
		all, err := b.All(ctx)
		if err != nil {
			return errStatus("Export error", err)
		}
		txs, err := b.History(ctx, exportHistoryLimit)
		if err != nil {
			return errStatus("Export error", err)
		}
		days := make([]store.DailySession, len(all))
		for i, d := range all {
			days[i] = d.DailySession
		}

		stamp := time.Now().Format("2006-01-02")
		if format == 0 {
			path := filepath.Join(dir, fmt.Sprintf("focusd-days-%s.csv", stamp))
			if err := export.DaysToCSV(days, goal, path); err != nil {
				return errStatus("CSV error", err)
			}
			if err := export.LedgerToCSV(txs, filepath.Join(dir, fmt.Sprintf("focusd-points-%s.csv", stamp))); err != nil {
				return errStatus("CSV error", err)
			}
			return exportDoneMsg{path: path}
		}

		path := filepath.Join(dir, fmt.Sprintf("focusd-export-%s.json", stamp))
		if err := export.ToJSON(days, txs, goal, path); err != nil {
			return errStatus("JSON error", err)
		}
		return exportDoneMsg{path: path}
	}
}
