package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskfeed/internal/keys"
	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
	"github.com/nhle/taskfeed/internal/theme"
	"github.com/nhle/taskfeed/internal/ui/feedlist"
)

// BackMsg signals the parent to navigate back to the feed.
type BackMsg struct{}

// LoadedMsg carries the current snapshot of the task behind an entry.
// Task is nil when the task no longer exists.
type LoadedMsg struct {
	Task *model.Task
	Err  error
}

// TaskGetter loads the current state of a task.
type TaskGetter interface {
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
}

// Model shows one feed entry together with its task.
type Model struct {
	item     any
	task     *model.Task
	err      error
	viewport viewport.Model
	store    TaskGetter
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(s TaskGetter, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		store:    s,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Open shows item and returns the command that loads its task.
func (m *Model) Open(item any) tea.Cmd {
	m.item = item
	m.task = nil
	m.err = nil
	m.loading = true

	var id string
	switch it := item.(type) {
	case feedlist.DueItem:
		id = it.Task.ID
	case feedlist.ActivityItem:
		id = it.Event.TaskID
	default:
		m.loading = false
		return nil
	}

	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		task, err := s.GetTaskByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return LoadedMsg{}
		}
		return LoadedMsg{Task: task, Err: err}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.task = msg.Task
		m.err = msg.Err
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg {
				return BackMsg{}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading...")
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(m.viewport.View())
}

func (m Model) renderContent() string {
	var b strings.Builder
	label := theme.DimmedStyle.Width(12)

	field := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(label.Render(name))
		b.WriteString(value)
		b.WriteString("\n")
	}

	if it, ok := m.item.(feedlist.ActivityItem); ok {
		e := it.Event
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(e.TaskTitle))
		b.WriteString("\n\n")
		field("Action", theme.ActionStyle(e.Action).Render(feedlist.ActionLabel(e.Action)))
		field("By", e.ActorName)
		field("When", e.OccurredAt.Local().Format("Mon Jan 02 15:04"))
		field("Change", feedlist.ChangeSummary(e))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(theme.DueTodayStyle.Render("Could not load task: " + m.err.Error()))
	case m.task == nil:
		b.WriteString(theme.DimmedStyle.Render("This task no longer exists."))
	default:
		t := m.task
		if _, ok := m.item.(feedlist.DueItem); ok {
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(t.Title))
			b.WriteString("\n\n")
		}
		field("Status", theme.StatusStyle(t.Status).Render(t.Status))
		field("Priority", theme.PriorityStyle(t.Priority).Render(t.Priority))
		if t.DueDate != nil {
			field("Due", t.DueDate.Format("Mon Jan 02 2006"))
		}
		field("Assignee", assignee(t))
		if t.LastReminderAt != nil {
			field("Reminded", t.LastReminderAt.Local().Format("Mon Jan 02 15:04"))
		}
		if t.Description != "" {
			b.WriteString("\n")
			b.WriteString(t.Description)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func assignee(t *model.Task) string {
	switch {
	case t.Assignee != "" && t.AssigneeEmail != "":
		return fmt.Sprintf("%s <%s>", t.Assignee, t.AssigneeEmail)
	case t.Assignee != "":
		return t.Assignee
	}
	return t.AssigneeEmail
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 6
	m.viewport.Height = height - 6
	if m.task != nil || m.item != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
