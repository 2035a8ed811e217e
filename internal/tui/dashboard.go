package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/progress"
	"github.com/sadopc/focusd/internal/store"
)

const historyRows = 10

// dashboardModel shows level, streaks and recent ledger rows.
type dashboardModel struct {
	backend Backend
	width   int
	height  int

	status  progress.Status
	streaks progress.Streaks
	history []store.Transaction
	loaded  bool
}

func newDashboardModel(b Backend) dashboardModel {
	return dashboardModel{backend: b}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	status  progress.Status
	streaks progress.Streaks
	history []store.Transaction
}

func (d dashboardModel) loadData() tea.Cmd {
	b := d.backend
	return func() tea.Msg {
		var msg dashboardDataMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() (err error) {
			msg.status, err = b.Points(ctx)
			return err
		})
		g.Go(func() (err error) {
			msg.streaks, err = b.Streak(ctx)
			return err
		})
		g.Go(func() (err error) {
			msg.history, err = b.History(ctx, historyRows)
			return err
		})
		if err := g.Wait(); err != nil {
			return errStatus("Load points", err)
		}
		return msg
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(dashboardDataMsg); ok {
		d.status = msg.status
		d.streaks = msg.streaks
		d.history = msg.history
		d.loaded = true
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4
	if !d.loaded {
		return panelStyle.Width(w).Render(mutedStyle.Render("Loading points..."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, d.renderLevel(w), d.renderHistory(w))
}

func (d dashboardModel) renderLevel(w int) string {
	s := d.status
	header := fmt.Sprintf("%s  %s", titleStyle.Render(fmt.Sprintf("Level %d", s.Level)), xpStyle.Render(fmt.Sprintf("%d XP", s.XP)))

	barWidth := max(10, w-30)
	filled := min(barWidth, s.ProgressToNextLevel*barWidth/100)
	bar := xpStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	next := mutedStyle.Render(fmt.Sprintf(" %d%%  next level at %d XP", s.ProgressToNextLevel, s.XPForNextLevel))

	streak := fmt.Sprintf("Streak  %s   Longest  %s",
		highlightStyle.Render(plural(d.streaks.Current, "day")),
		highlightStyle.Render(plural(d.streaks.Longest, "day")))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", bar+next, "", streak))
}

func (d dashboardModel) renderHistory(w int) string {
	title := titleStyle.Render("Recent Points")
	if len(d.history) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, mutedStyle.Render("No points yet"),
		))
	}

	rows := []string{title}
	for _, tx := range d.history {
		amount := successStyle.Render(fmt.Sprintf("%+4d", tx.Points))
		if tx.Points < 0 {
			amount = errorStyle.Render(fmt.Sprintf("%+4d", tx.Points))
		}
		when := mutedStyle.Render(tx.CreatedAt.Local().Format("Jan 02 15:04"))
		rows = append(rows, fmt.Sprintf("  %s  %s  %s", when, amount, tx.Reason))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// pointsStatus describes an award outcome for the footer.
func pointsStatus(o *points.Outcome) statusMsg {
	if o == nil {
		return statusMsg{text: "Task updated"}
	}
	if !o.Awarded {
		if o.Reason != "" {
			return statusMsg{text: o.Reason}
		}
		return statusMsg{text: "Task updated"}
	}
	return statusMsg{text: fmt.Sprintf("%+d points, balance %d", o.Points, o.NewBalance)}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
