package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusd/internal/elapsed"
	"github.com/sadopc/focusd/internal/timer"
)

// Palette, named by what each color marks.
var (
	colorBrand   = lipgloss.Color("#6C63FF")
	colorFocus   = lipgloss.Color("#FF6B6B")
	colorBreak   = lipgloss.Color("#2EC4B6")
	colorPaused  = lipgloss.Color("#F39C12")
	colorSaved   = lipgloss.Color("#2ECC71")
	colorFailed  = lipgloss.Color("#E74C3C")
	colorXP      = lipgloss.Color("#E0AF68")
	colorText    = lipgloss.Color("#C0CAF5")
	colorDim     = lipgloss.Color("#666666")
	colorBorder  = lipgloss.Color("#414868")
	colorCurrent = lipgloss.Color("#7AA2F7")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	brandStyle = fg(colorBrand).Bold(true)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorBrand).
			Padding(0, 2)
	inactiveTabStyle = fg(colorDim).Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)
	// Used while an interval is running or paused.
	activePanelStyle = panelStyle.BorderForeground(colorBrand)

	titleStyle     = fg(colorText).Bold(true)
	successStyle   = fg(colorSaved)
	warningStyle   = fg(colorPaused)
	errorStyle     = fg(colorFailed)
	mutedStyle     = fg(colorDim)
	highlightStyle = fg(colorCurrent)
	xpStyle        = fg(colorXP).Bold(true)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = fg(colorDim).Padding(0, 1)

	selectedItemStyle = fg(colorBrand).Bold(true)
	normalItemStyle   = fg(colorText)

	// Stacked day bars in the reports chart.
	completedBarStyle = fg(colorBrand)
	activeBarStyle    = fg(colorPaused)
)

// clockStyle picks the countdown color for the machine's state and mode.
func clockStyle(state timer.State, mode elapsed.Mode) lipgloss.Style {
	c := colorBrand
	switch state {
	case timer.StateRunning:
		c = colorFocus
		if mode == elapsed.ModeBreak {
			c = colorBreak
		}
	case timer.StatePaused, timer.StateCompleting:
		c = colorPaused
	}
	return fg(c).Bold(true).Align(lipgloss.Center)
}
