package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusd/internal/client"
	"github.com/sadopc/focusd/internal/timer"
)

// reportsModel charts focus minutes per day for one month.
type reportsModel struct {
	backend Backend
	machine *timer.Machine
	goal    int
	now     func() time.Time
	width   int
	height  int

	offset int // months back from the current one
	days   []client.Day

	chart barchart.Model
}

func newReportsModel(b Backend, m *timer.Machine, goal int) reportsModel {
	return reportsModel{
		backend: b,
		machine: m,
		goal:    goal,
		now:     time.Now,
		chart:   barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	offset int
	days   []client.Day
}

// month is the first day of the month being shown.
func (r reportsModel) month() time.Time {
	now := r.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -r.offset, 0)
}

func (r reportsModel) refresh() tea.Cmd {
	b, offset, m := r.backend, r.offset, r.month()
	return func() tea.Msg {
		days, err := b.Month(context.Background(), m.Year(), m.Month())
		if err != nil {
			return errStatus("Load month", err)
		}
		return reportsDataMsg{offset: offset, days: days}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		if msg.offset != r.offset {
			return r, nil // stale answer for a month we navigated away from
		}
		r.days = msg.days
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
				return r, r.refresh()
			}
		}
	}
	return r, nil
}

// minutesByDay returns completed and active minutes keyed by YYYY-MM-DD. The
// current day comes from the live timer so the chart matches the timer view.
func (r reportsModel) minutesByDay() map[string][2]int {
	out := make(map[string][2]int, len(r.days))
	for _, d := range r.days {
		out[d.Day] = [2]int{d.CompletedMinutes, d.ActiveMinutes}
	}
	if r.offset == 0 && r.machine != nil {
		t := r.machine.Totals()
		out[r.now().Format("2006-01-02")] = [2]int{t.CompletedMinutes, t.ActiveMinutes}
	}
	return out
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	byDay := r.minutesByDay()
	first := r.month()
	var bars []barchart.BarData
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		mins := byDay[d.Format("2006-01-02")]
		bars = append(bars, barchart.BarData{
			Label: d.Format("02"),
			Values: []barchart.BarValue{
				{Name: "Completed", Value: float64(mins[0]), Style: completedBarStyle},
				{Name: "Active", Value: float64(mins[1]), Style: activeBarStyle},
			},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", mutedStyle.Render(r.month().Format("January 2006")),
	)
	legend := fmt.Sprintf("  %s Completed  %s Active",
		completedBarStyle.Render("█"), activeBarStyle.Render("█"))
	nav := mutedStyle.Render("  ←/→: previous/next month")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", legend, "", r.renderSummary(), "", nav,
		),
	)
}

func (r reportsModel) renderSummary() string {
	var total, achieved, sessions int
	for _, d := range r.days {
		total += d.CompletedMinutes
		sessions += d.SessionsCompleted
		if d.Achieved {
			achieved++
		}
	}
	if len(r.days) == 0 {
		return mutedStyle.Render("  No focus time this month")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  Focus time      %s\n", highlightStyle.Render(formatMinutes(total)))
	fmt.Fprintf(&b, "  Sessions        %d\n", sessions)
	fmt.Fprintf(&b, "  Goal reached    %s", highlightStyle.Render(plural(achieved, "day")))
	if r.goal > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  (goal %s)", formatMinutes(r.goal))))
	}
	return b.String()
}
