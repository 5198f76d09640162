package feedlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/theme"
)

// DueItem wraps a due-soon task for a bubbles/list.
type DueItem struct {
	Task  model.Task
	Today string // YYYY-MM-DD of the rendering day
}

// FilterValue returns the string used for fuzzy filtering.
func (i DueItem) FilterValue() string { return i.Task.Title }

// ActivityItem wraps a grouped activity entry for a bubbles/list.
type ActivityItem struct {
	Event model.ActivityEvent
	Now   time.Time
}

// FilterValue returns the string used for fuzzy filtering.
func (i ActivityItem) FilterValue() string { return i.Event.TaskTitle }

// ItemDelegate implements list.ItemDelegate for both item kinds. Only a
// focused section highlights its selected item.
type ItemDelegate struct {
	Focused bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var line string
	switch it := item.(type) {
	case DueItem:
		line = renderDue(it)
	case ActivityItem:
		line = renderActivity(it)
	default:
		return
	}

	if d.Focused && index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func renderDue(it DueItem) string {
	t := it.Task

	dueStr := ""
	if t.DueDate != nil {
		d := t.DueDate.Format(model.DateLayout)
		if d == it.Today {
			dueStr = theme.DueTodayStyle.Render("today")
		} else {
			dueStr = theme.DueTomorrowStyle.Render(t.DueDate.Format("Mon Jan 02"))
		}
	}

	statusBadge := theme.StatusStyle(t.Status).Render(t.Status)
	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	assignee := ""
	if t.Assignee != "" {
		assignee = theme.DimmedStyle.Render("  @" + t.Assignee)
	}

	return fmt.Sprintf("%s %s %s %s%s", dueStr, priBadge, statusBadge, t.Title, assignee)
}

func renderActivity(it ActivityItem) string {
	e := it.Event

	actor := e.ActorName
	if actor == "" {
		actor = model.UnknownActor
	}

	action := theme.ActionStyle(e.Action).Render(ActionLabel(e.Action))
	change := ""
	if c := ChangeSummary(e); c != "" {
		change = theme.DimmedStyle.Render("  " + c)
	}
	when := theme.DimmedStyle.Render(RelativeTime(e.OccurredAt, it.Now))

	return fmt.Sprintf("%s %s %s%s  %s", actor, action, e.TaskTitle, change, when)
}

// ActionLabel renders an action as a past-tense verb.
func ActionLabel(a model.Action) string {
	switch a {
	case model.ActionCreated:
		return "created"
	case model.ActionUpdated:
		return "updated"
	case model.ActionDeleted:
		return "deleted"
	case model.ActionStatusChanged:
		return "moved"
	case model.ActionAssigned:
		return "assigned"
	case model.ActionPriorityChanged:
		return "reprioritized"
	case model.ActionDueDateChanged:
		return "rescheduled"
	}
	return strings.ReplaceAll(string(a), "_", " ")
}

// ChangeSummary renders "old → new" when the event carries values.
func ChangeSummary(e model.ActivityEvent) string {
	switch {
	case e.OldValue != nil && e.NewValue != nil:
		return *e.OldValue + " → " + *e.NewValue
	case e.NewValue != nil:
		return "→ " + *e.NewValue
	}
	return ""
}

// RelativeTime returns a human-friendly time of t relative to now.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "P1"
	case model.PriorityMedium:
		return "P2"
	case model.PriorityLow:
		return "P3"
	}
	return "P?"
}
