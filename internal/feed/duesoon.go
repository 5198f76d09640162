package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
)

// DueSoonHorizon is how many days past today still count as due soon.
const DueSoonHorizon = 1

// Scanner finds incomplete tasks whose deadline is today or within the
// horizon.
type Scanner struct {
	tasks store.TaskReader
	loc   *time.Location
}

// NewScanner creates a Scanner comparing dates in loc (time.Local if nil).
func NewScanner(tasks store.TaskReader, loc *time.Location) *Scanner {
	if loc == nil {
		loc = time.Local
	}
	return &Scanner{tasks: tasks, loc: loc}
}

// Scan returns tasks not done with a due date in [today, today+horizon],
// earliest first. Time of day is ignored.
func (s *Scanner) Scan(ctx context.Context, now time.Time) ([]model.Task, error) {
	today := startOfDay(now, s.loc)
	until := today.AddDate(0, 0, DueSoonHorizon)
	done := model.StatusDone

	tasks, err := s.tasks.QueryTasks(ctx, store.TaskFilter{
		ExcludeStatus: &done,
		DueFrom:       &today,
		DueTo:         &until,
		SortBy:        "due_date",
	})
	if err != nil {
		return nil, fmt.Errorf("scanning due-soon tasks: %w", err)
	}

	// Enforce the window and order regardless of how the reader filters.
	out := tasks[:0]
	for _, t := range tasks {
		if t.IsDone() || t.DueDate == nil {
			continue
		}
		d := dateOf(*t.DueDate)
		if d < dateOf(today) || d > dateOf(until) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dateOf(*out[i].DueDate) < dateOf(*out[j].DueDate)
	})
	return out, nil
}

// Location returns the location used for day boundaries.
func (s *Scanner) Location() *time.Location {
	return s.loc
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// dateOf renders the calendar date of t in its own location, so a due
// date stored as midnight UTC and "today" in local time compare by day.
func dateOf(t time.Time) string {
	return t.Format(model.DateLayout)
}
