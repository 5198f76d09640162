package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskfeed/internal/feed"
	"github.com/nhle/taskfeed/internal/model"
	"github.com/nhle/taskfeed/internal/store"
)

type feedResponse struct {
	Status string                 `json:"status"`
	Data   model.NotificationFeed `json:"data"`
	Error  string                 `json:"error"`
}

func TestFeed_JSON(t *testing.T) {
	cfgPath := writeConfig(t, "alice")
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	later := today.AddDate(0, 0, 5)

	withStore(t, cfgPath, func(s *store.SQLiteStore) {
		ctx := context.Background()
		require.NoError(t, s.UpsertTask(ctx, model.Task{ID: "T1", Title: "Ship release", DueDate: &tomorrow}))
		require.NoError(t, s.UpsertTask(ctx, model.Task{ID: "T2", Title: "Write notes", DueDate: &today}))
		require.NoError(t, s.UpsertTask(ctx, model.Task{ID: "T3", Title: "Plan offsite", DueDate: &later}))
		require.NoError(t, s.UpsertTask(ctx, model.Task{
			ID: "T4", Title: "Old bug", DueDate: &today, Status: model.StatusDone,
		}))
		require.NoError(t, s.RecordActivity(ctx, model.ActivityEvent{
			TaskID: "T1", TaskTitle: "Ship release", Action: model.ActionStatusChanged,
			ActorName: "bob", OccurredAt: now.Add(-2 * time.Minute),
		}))
	})

	out, err := execute(t, "--config", cfgPath, "--format", "json", "feed")
	require.NoError(t, err)

	var resp feedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	require.Len(t, resp.Data.DueSoonTasks, 2)
	assert.Equal(t, "T2", resp.Data.DueSoonTasks[0].ID)
	assert.Equal(t, "T1", resp.Data.DueSoonTasks[1].ID)

	require.Len(t, resp.Data.RecentActivities, 1)
	assert.Equal(t, model.ActionStatusChanged, resp.Data.RecentActivities[0].Action)
	assert.Equal(t, 3, resp.Data.TotalCount)
}

func TestFeed_Text(t *testing.T) {
	cfgPath := writeConfig(t, "alice")
	today := time.Now().UTC().Truncate(24 * time.Hour)

	withStore(t, cfgPath, func(s *store.SQLiteStore) {
		require.NoError(t, s.UpsertTask(context.Background(), model.Task{
			ID: "T1", Title: "Ship release", DueDate: &today, Assignee: "bob",
		}))
	})

	out, err := execute(t, "--config", cfgPath, "feed")
	require.NoError(t, err)

	assert.Contains(t, out, "DUE SOON (1)")
	assert.Contains(t, out, "Ship release")
	assert.Contains(t, out, "today")
	assert.Contains(t, out, "RECENT ACTIVITY")
}

func TestFeed_EmptyDatabase(t *testing.T) {
	cfgPath := writeConfig(t, "alice")

	out, err := execute(t, "--config", cfgPath, "feed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing due today or tomorrow")
	assert.Contains(t, out, "no activity in the last hour")

	_, err = os.Stat(filepath.Join(filepath.Dir(cfgPath), "data", "taskfeed.db"))
	assert.NoError(t, err, "database directory is created")
}

func TestFeed_RequiresPrincipal(t *testing.T) {
	cfgPath := writeConfig(t, "")

	_, err := execute(t, "--config", cfgPath, "feed")
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrNoPrincipal)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFeed_PrincipalFromEnv(t *testing.T) {
	cfgPath := writeConfig(t, "")
	t.Setenv("TASKFEED_USER", "carol")

	_, err := execute(t, "--config", cfgPath, "feed")
	assert.NoError(t, err)
}

func TestFeed_DatabaseFlagOverridesConfig(t *testing.T) {
	cfgPath := writeConfig(t, "alice")
	dbPath := filepath.Join(t.TempDir(), "other.db")

	_, err := execute(t, "--config", cfgPath, "--db", dbPath, "feed")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

// withStore opens the database named by the config at cfgPath, runs fn and
// closes it again.
func withStore(t *testing.T, cfgPath string, fn func(*store.SQLiteStore)) {
	t.Helper()

	cfg, err := model.LoadConfig(cfgPath)
	require.NoError(t, err)

	s, err := openStore(cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	fn(s)
}
