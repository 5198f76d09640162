package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedTasks upserts tasks, failing the test on the first error.
func SeedTasks(t *testing.T, s *store.SQLiteStore, tasks ...model.Task) {
	t.Helper()

	for _, task := range tasks {
		if err := s.UpsertTask(context.Background(), task); err != nil {
			t.Fatalf("seeding task %q: %v", task.ID, err)
		}
	}
}

// SeedActivities records audit rows, failing the test on the first error.
func SeedActivities(t *testing.T, s *store.SQLiteStore, events ...model.ActivityEvent) {
	t.Helper()

	for _, ev := range events {
		if err := s.RecordActivity(context.Background(), ev); err != nil {
			t.Fatalf("seeding activity %q: %v", ev.ID, err)
		}
	}
}

// Date returns midnight UTC of a YYYY-MM-DD date.
func Date(t *testing.T, v string) *time.Time {
	t.Helper()

	d, err := time.Parse(model.DateLayout, v)
	if err != nil {
		t.Fatalf("parsing date %q: %v", v, err)
	}
	return &d
}

// Time parses an RFC 3339 timestamp.
func Time(t *testing.T, v string) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		t.Fatalf("parsing time %q: %v", v, err)
	}
	return ts
}
