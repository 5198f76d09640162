package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Timestamps are fixed-width UTC text (see timeLayout) so that range
// filters compare correctly as strings; due dates are YYYY-MM-DD.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'todo'
		CHECK(status IN ('todo', 'in-progress', 'review', 'done')),
	priority         TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high')),
	due_date         TEXT,
	assignee         TEXT NOT NULL DEFAULT '',
	assignee_email   TEXT NOT NULL DEFAULT '',
	created_at       TEXT,
	updated_at       TEXT,
	last_reminder_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_updated_at ON tasks(updated_at);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS task_activities (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL,
	task_title  TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL CHECK(action IN (
		'created', 'updated', 'deleted', 'status_changed',
		'assigned', 'priority_changed', 'due_date_changed'
	)),
	old_value   TEXT,
	new_value   TEXT,
	actor_name  TEXT,
	occurred_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_activities_occurred ON task_activities(occurred_at);
CREATE INDEX IF NOT EXISTS idx_task_activities_task_id ON task_activities(task_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
