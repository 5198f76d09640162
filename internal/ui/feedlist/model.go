package feedlist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskfeed/internal/keys"
	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/theme"
	"github.com/nhle/taskfeed/internal/ui"
)

// Section identifies one of the two lists.
type Section int

const (
	SectionDueSoon Section = iota
	SectionActivity
)

// SelectedMsg is sent when the user opens the selected entry.
type SelectedMsg struct {
	Item list.Item
}

// Model shows the due-soon section above the activity section. Exactly one
// section holds the cursor.
type Model struct {
	dueSoon  list.Model
	activity list.Model
	keys     *keys.KeyMap
	focus    Section
	layout   ui.Layout
	loc      *time.Location
}

// New creates an empty feed list.
func New(k *keys.KeyMap, loc *time.Location, width, height int) Model {
	if loc == nil {
		loc = time.Local
	}
	m := Model{
		dueSoon:  newList(),
		activity: newList(),
		keys:     k,
		loc:      loc,
	}
	m.SetSize(width, height)
	m.applyFocus()
	return m
}

func newList() list.Model {
	l := list.New([]list.Item{}, ItemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// SetFeed replaces both lists with the contents of f. Cursor positions are
// kept where the lists are long enough.
func (m *Model) SetFeed(f model.NotificationFeed, now time.Time) tea.Cmd {
	today := now.In(m.loc).Format(model.DateLayout)

	due := make([]list.Item, len(f.DueSoonTasks))
	for i, t := range f.DueSoonTasks {
		due[i] = DueItem{Task: t, Today: today}
	}
	activity := make([]list.Item, len(f.RecentActivities))
	for i, e := range f.RecentActivities {
		activity[i] = ActivityItem{Event: e, Now: now}
	}

	cmds := []tea.Cmd{
		m.dueSoon.SetItems(due),
		m.activity.SetItems(activity),
	}
	m.resize()
	return tea.Batch(cmds...)
}

// Focus returns the section holding the cursor.
func (m Model) Focus() Section {
	return m.focus
}

// SelectedItem returns the item under the cursor, if any.
func (m Model) SelectedItem() (list.Item, bool) {
	item := m.focused().SelectedItem()
	return item, item != nil
}

// Update handles navigation keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.NextSection):
		if m.focus == SectionDueSoon {
			m.focus = SectionActivity
		} else {
			m.focus = SectionDueSoon
		}
		m.applyFocus()
		return m, nil

	case key.Matches(keyMsg, m.keys.Select):
		item, ok := m.SelectedItem()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedMsg{Item: item} }

	case key.Matches(keyMsg, m.keys.Down):
		m.focused().CursorDown()
		return m, nil

	case key.Matches(keyMsg, m.keys.Up):
		m.focused().CursorUp()
		return m, nil
	}
	return m, nil
}

// View renders both sections.
func (m Model) View() string {
	dueTitle := fmt.Sprintf("DUE SOON (%d)", len(m.dueSoon.Items()))
	activityTitle := fmt.Sprintf("RECENT ACTIVITY (%d)", len(m.activity.Items()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.section(dueTitle, m.dueSoon, m.focus == SectionDueSoon, "Nothing due today or tomorrow."),
		m.section(activityTitle, m.activity, m.focus == SectionActivity, "No activity in the last hour."),
	)
}

func (m Model) section(title string, l list.Model, focused bool, empty string) string {
	titleStyle := theme.SectionTitleStyle
	if focused {
		titleStyle = theme.FocusedSectionTitleStyle
	}

	body := l.View()
	if len(l.Items()) == 0 {
		body = theme.ListItemStyle.Inherit(theme.DimmedStyle).Render(empty)
	}

	return lipgloss.NewStyle().
		Height(l.Height() + 1).
		MaxHeight(l.Height() + 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
}

// SetSize updates the dimensions available to both sections.
func (m *Model) SetSize(width, height int) {
	m.layout = ui.Layout{Width: width, Height: height}
	m.resize()
}

func (m *Model) resize() {
	dueHeight, activityHeight := m.layout.SectionHeights(len(m.dueSoon.Items()))
	m.dueSoon.SetSize(m.layout.Width, max(1, dueHeight-1))
	m.activity.SetSize(m.layout.Width, max(1, activityHeight-1))
}

func (m *Model) focused() *list.Model {
	if m.focus == SectionActivity {
		return &m.activity
	}
	return &m.dueSoon
}

func (m *Model) applyFocus() {
	m.dueSoon.SetDelegate(ItemDelegate{Focused: m.focus == SectionDueSoon})
	m.activity.SetDelegate(ItemDelegate{Focused: m.focus == SectionActivity})
}
