package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	// Timer, live in every view.
	Start key.Binding
	Break key.Binding
	Pause key.Binding
	Reset key.Binding
	Retry key.Binding

	New    key.Binding
	Export key.Binding

	// Views is indexed by viewState.
	Views []key.Binding
	Tab   key.Binding

	Help  key.Binding
	Enter key.Binding
	Back  key.Binding
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Quit  key.Binding
}

func bind(help, desc string, ks ...string) key.Binding {
	return key.NewBinding(key.WithKeys(ks...), key.WithHelp(help, desc))
}

func viewBindings() []key.Binding {
	out := make([]key.Binding, len(viewNames))
	for i, name := range viewNames {
		n := strconv.Itoa(i + 1)
		out[i] = bind(n, strings.ToLower(name), n)
	}
	return out
}

var keys = keyMap{
	Start: bind("s", "focus", "s"),
	Break: bind("b", "break", "b"),
	Pause: bind("space", "pause/resume", " "),
	Reset: bind("x", "reset", "x"),
	Retry: bind("c", "retry save", "c"),

	New:    bind("n", "new", "n"),
	Export: bind("e", "export", "e"),

	Views: viewBindings(),
	Tab:   bind("tab", "next view", "tab"),

	Help:  bind("?", "help", "?"),
	Enter: bind("enter", "select", "enter"),
	Back:  bind("esc", "back", "esc"),
	Up:    bind("↑/k", "up", "up", "k"),
	Down:  bind("↓/j", "down", "down", "j"),
	Left:  bind("←/h", "previous", "left", "h"),
	Right: bind("→/l", "next", "right", "l"),
	Quit:  bind("q", "quit", "q", "ctrl+c"),
}

// timerKey reports whether msg drives the timer rather than the current view.
func (k keyMap) timerKey(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.Start, k.Break, k.Pause, k.Reset, k.Retry)
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Break, k.Pause, k.Reset, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Break, k.Pause, k.Reset, k.Retry},
		{k.New, k.Enter, k.Export},
		k.Views,
		{k.Up, k.Down, k.Left, k.Right, k.Back, k.Quit},
	}
}
