package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusd/internal/store"
)

type tasksModel struct {
	backend Backend
	width   int
	height  int

	tasks  []store.Task
	cursor int

	formActive bool
	form       *huh.Form
	formTitle  *string // survives value copies
}

func newTasksModel(b Backend) tasksModel {
	title := ""
	return tasksModel{backend: b, formTitle: &title}
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type tasksDataMsg struct {
	tasks []store.Task
}

type taskToggledMsg struct {
	tasks  []store.Task
	status statusMsg
}

func (t tasksModel) refresh() tea.Cmd {
	b := t.backend
	return func() tea.Msg {
		tasks, err := b.Tasks(context.Background())
		if err != nil {
			return errStatus("Load tasks", err)
		}
		return tasksDataMsg{tasks: tasks}
	}
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		t.tasks = msg.tasks
		if t.cursor >= len(t.tasks) {
			t.cursor = max(0, len(t.tasks)-1)
		}
		return t, nil

	case taskToggledMsg:
		t.tasks = msg.tasks
		status := msg.status
		return t, func() tea.Msg { return status }

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.tasks)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.New):
			return t.showNewTaskForm()
		case key.Matches(msg, keys.Enter):
			if len(t.tasks) > 0 {
				return t, t.toggle(t.tasks[t.cursor])
			}
		}
	}
	return t, nil
}

func (t tasksModel) toggle(task store.Task) tea.Cmd {
	b := t.backend
	return func() tea.Msg {
		res, err := b.SetTaskCompleted(context.Background(), task.ID, !task.Completed)
		if err != nil {
			return errStatus("Update task", err)
		}
		tasks, err := b.Tasks(context.Background())
		if err != nil {
			return errStatus("Load tasks", err)
		}
		return taskToggledMsg{tasks: tasks, status: pointsStatus(res.Points)}
	}
}

func (t tasksModel) showNewTaskForm() (tasksModel, tea.Cmd) {
	*t.formTitle = ""
	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task").
				Value(t.formTitle).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		t.formActive = false
		t.form = nil
		return t, nil
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		title := strings.TrimSpace(*t.formTitle)
		b := t.backend
		return t, func() tea.Msg {
			if _, err := b.CreateTask(context.Background(), title); err != nil {
				return errStatus("Create task", err)
			}
			tasks, err := b.Tasks(context.Background())
			if err != nil {
				return errStatus("Load tasks", err)
			}
			return tasksDataMsg{tasks: tasks}
		}
	}
	return t, cmd
}

func (t tasksModel) view() string {
	w := t.width - 4
	title := titleStyle.Render("Tasks")

	if t.formActive && t.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", t.form.View()),
		)
	}

	rows := []string{title, ""}
	if len(t.tasks) == 0 {
		rows = append(rows, mutedStyle.Render("No tasks yet"))
	}
	for i, task := range t.tasks {
		check := mutedStyle.Render("[ ]")
		if task.Completed {
			check = successStyle.Render("[x]")
		}
		cursor, style := "  ", normalItemStyle
		if i == t.cursor {
			cursor, style = "> ", selectedItemStyle
		}
		text := task.Title
		if task.Completed {
			text = mutedStyle.Render(text)
		} else {
			text = style.Render(text)
		}
		rows = append(rows, fmt.Sprintf("%s%s %s", style.Render(cursor), check, text))
	}
	rows = append(rows, "", mutedStyle.Render("  n: new task  enter: toggle done"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
