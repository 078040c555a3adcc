package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todolist/internal/logging"
	"todolist/internal/tasks"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Focus targets, in tab order.
const (
	focusTitle = iota
	focusDescription
	focusButton
	focusCount
)

// formHeight is the number of lines above and below the list.
const formHeight = 14

// tasksChangedMsg carries a snapshot published by the controller.
type tasksChangedMsg []tasks.Task

type subscriptionClosedMsg struct{}

type loadFailedMsg struct{ err error }

type createFailedMsg struct {
	title       string
	description string
	err         error
}

// refreshFailedMsg reports a create whose task was stored but whose reload
// failed.
type refreshFailedMsg struct {
	title string
	err   error
}

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Press  key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "add task"),
		),
		Press: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next / press"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Press, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev}, {k.Submit, k.Press, k.Quit}}
}

// Model is the task screen: a two-field form, an add button and the task list.
type Model struct {
	ctrl        *tasks.Controller
	sub         <-chan []tasks.Task
	unsubscribe func()
	styles Styles
	keys   keyMap
	help   help.Model

	inputs [focusButton]textinput.Model
	focus  int

	list  viewport.Model
	tasks []tasks.Task

	err    string
	width  int
	height int
}

// NewModel builds the screen over ctrl and subscribes to its snapshot.
// The subscription ends when the controller is closed.
func NewModel(ctrl *tasks.Controller, styles Styles, titlePlaceholder, descriptionPlaceholder string) Model {
	title := textinput.New()
	title.Placeholder = titlePlaceholder
	title.Prompt = ""
	title.TextStyle = styles.Body
	title.Focus()

	desc := textinput.New()
	desc.Placeholder = descriptionPlaceholder
	desc.Prompt = ""
	desc.TextStyle = styles.Body

	sub, unsubscribe := ctrl.Subscribe()

	m := Model{
		ctrl:        ctrl,
		sub:         sub,
		unsubscribe: unsubscribe,
		styles:      styles,
		keys:        defaultKeyMap(),
		help:        help.New(),
		inputs:      [focusButton]textinput.Model{title, desc},
		list:        viewport.New(80, 10),
		tasks:       ctrl.Tasks(),
	}
	m.refreshList()
	logging.UI("task screen ready (%d cached tasks)", len(m.tasks))
	return m
}

// Init loads the list once and starts listening for snapshot changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadTasks(m.ctrl), m.listen())
}

// listen waits for the next snapshot from the controller.
func (m Model) listen() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		snap, ok := <-sub
		if !ok {
			return subscriptionClosedMsg{}
		}
		return tasksChangedMsg(snap)
	}
}

func loadTasks(ctrl *tasks.Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.Load(context.Background()); err != nil {
			if errors.Is(err, tasks.ErrClosed) {
				return nil
			}
			logging.UIError("load failed: %v", err)
			return loadFailedMsg{err: err}
		}
		return nil
	}
}

func createTask(ctrl *tasks.Controller, title, description string) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.Create(context.Background(), title, description); err != nil {
			if errors.Is(err, tasks.ErrClosed) {
				return nil
			}
			if errors.Is(err, tasks.ErrNotReloaded) {
				logging.UIError("created %q but reload failed: %v", title, err)
				return refreshFailedMsg{title: title, err: err}
			}
			logging.UIError("create %q failed: %v", title, err)
			return createFailedMsg{title: title, description: description, err: err}
		}
		return nil
	}
}

// Update handles key presses, window resizes and controller results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list.Width = msg.Width
		m.list.Height = max(msg.Height-formHeight, 3)
		for i := range m.inputs {
			m.inputs[i].Width = max(msg.Width-16, 10)
		}
		m.refreshList()
		return m, nil

	case tasksChangedMsg:
		m.tasks = []tasks.Task(msg)
		m.refreshList()
		return m, m.listen()

	case subscriptionClosedMsg:
		return m, nil

	case loadFailedMsg:
		m.err = fmt.Sprintf("Could not load tasks: %v", msg.err)
		return m, nil

	case refreshFailedMsg:
		m.err = fmt.Sprintf("Added %q but could not refresh the list: %v", displayName(msg.title), msg.err)
		return m, nil

	case createFailedMsg:
		m.err = fmt.Sprintf("Could not add %q: %v", displayName(msg.title), msg.err)
		if m.inputs[focusTitle].Value() == "" && m.inputs[focusDescription].Value() == "" {
			m.inputs[focusTitle].SetValue(msg.title)
			m.inputs[focusDescription].SetValue(msg.description)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			logging.UIDebug("quit requested")
			m.unsubscribe()
			m.ctrl.Close()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Next):
			cmd := m.setFocus((m.focus + 1) % focusCount)
			return m, cmd

		case key.Matches(msg, m.keys.Prev):
			cmd := m.setFocus((m.focus + focusCount - 1) % focusCount)
			return m, cmd

		case key.Matches(msg, m.keys.Submit):
			return m.submit()

		case key.Matches(msg, m.keys.Press):
			if m.focus == focusButton {
				return m.submit()
			}
			cmd := m.setFocus(m.focus + 1)
			return m, cmd
		}

		if m.focus == focusButton {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// submit fires a create with the current values and clears the form without
// waiting for the result.
func (m Model) submit() (tea.Model, tea.Cmd) {
	title := m.inputs[focusTitle].Value()
	description := m.inputs[focusDescription].Value()
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.err = ""
	logging.UIDebug("submit title=%q", title)
	focus := m.setFocus(focusTitle)
	return m, tea.Batch(createTask(m.ctrl, title, description), focus)
}

func (m *Model) setFocus(target int) tea.Cmd {
	m.focus = target
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == target {
			cmd = m.inputs[i].Focus()
			continue
		}
		m.inputs[i].Blur()
	}
	return cmd
}

func (m *Model) refreshList() {
	if len(m.tasks) == 0 {
		m.list.SetContent(m.styles.Muted.Render("No tasks yet."))
		return
	}
	m.list.SetContent(renderRows(m.styles, m.tasks))
}

func displayName(title string) string {
	if title == "" {
		return "untitled task"
	}
	return title
}

// FormatRow renders a single task the way the list shows it.
func FormatRow(t tasks.Task) string {
	return fmt.Sprintf("Task: %s, Description: %s", t.Title, t.Description)
}

func renderRows(s Styles, list []tasks.Task) string {
	rows := make([]string, 0, len(list))
	for _, t := range list {
		row := fmt.Sprintf("Task: %s, Description: %s", s.RowTitle.Render(t.Title), t.Description)
		rows = append(rows, s.Row.Render(row))
	}
	return strings.Join(rows, "\n")
}

// View renders the screen.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render("Tasks"))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderField("Title", focusTitle))
	sb.WriteString("\n")
	sb.WriteString(m.renderField("Description", focusDescription))
	sb.WriteString("\n\n")

	button := m.styles.Button
	if m.focus == focusButton {
		button = m.styles.FocusedButton
	}
	sb.WriteString(button.Render("Add task"))
	sb.WriteString("\n")

	if m.err != "" {
		sb.WriteString(m.styles.Error.Render(m.err))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.RenderDivider(m.list.Width))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Title.Render(countLabel(len(m.tasks))))
	sb.WriteString("\n")
	sb.WriteString(m.list.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))

	return sb.String()
}

func (m Model) renderField(label string, idx int) string {
	style := m.styles.Label
	if m.focus == idx {
		style = m.styles.FocusedLabel
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		style.Width(13).Render(label),
		m.inputs[idx].View(),
	)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
