package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the process-local Store backend. Timestamps are stored as
// RFC 3339 text, booleans as 0/1 integers.
type SQLite struct {
	db *sql.DB
}

// sqliteTime renders a timestamp for storage or comparison. Everything
// is normalized to UTC: the `<=` filters compare these strings
// lexically, which is only numerically correct when every operand
// carries the same offset.
func sqliteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewSQLite opens or creates a SQLite database at the given path and
// runs the idempotent schema migration.
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indices. Safe to run on every startup.
func (s *SQLite) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'medium',
		due_date TEXT,
		tags TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		trigger_time TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'notification',
		priority TEXT NOT NULL DEFAULT 'normal',
		sound_type TEXT,
		executed INTEGER NOT NULL DEFAULT 0,
		executed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);
	CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
	CREATE INDEX IF NOT EXISTS idx_events_owner ON events(owner);
	CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders(owner);
	CREATE INDEX IF NOT EXISTS idx_reminders_executed ON reminders(executed);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// CreateTask persists a new task, assigning an ID and creation time if unset.
func (s *SQLite) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	var due *string
	if t.DueDate != nil {
		v := sqliteTime(*t.DueDate)
		due = &v
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner, title, description, priority, due_date, tags, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, t.ID, t.Owner, t.Title, t.Description, t.Priority, due,
		joinTags(t.Tags), sqliteTime(t.CreatedAt))
	return err
}

// ListTasks returns the owner's tasks matching filter, newest first.
func (s *SQLite) ListTasks(ctx context.Context, owner string, filter TaskFilter, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, owner, title, description, priority, due_date, tags, completed, created_at, completed_at
		FROM tasks WHERE owner = ?`
	switch filter {
	case FilterPending:
		query += ` AND completed = 0`
	case FilterCompleted:
		query += ` AND completed = 1`
	case FilterUrgent:
		query += ` AND completed = 0 AND priority IN ('urgent', 'high')`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task completed. Returns false when no pending
// task with that id belongs to owner.
func (s *SQLite) CompleteTask(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET completed = 1, completed_at = ?
		WHERE id = ? AND owner = ? AND completed = 0
	`, sqliteTime(time.Now()), id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteTask removes a task. Returns false when nothing matched.
func (s *SQLite) DeleteTask(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetTask retrieves one task, or nil when it does not exist.
func (s *SQLite) GetTask(ctx context.Context, id, owner string) (*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, title, description, priority, due_date, tags, completed, created_at, completed_at
		FROM tasks WHERE id = ? AND owner = ?
	`, id, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSQLiteTask(rows)
}

// CreateEvent persists a calendar event, enforcing start < end.
func (s *SQLite) CreateEvent(ctx context.Context, e *Event) error {
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidRange
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, owner, title, description, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Owner, e.Title, e.Description,
		sqliteTime(e.StartTime), sqliteTime(e.EndTime), sqliteTime(e.CreatedAt))
	return err
}

// ListEvents returns events starting within [start, end], ascending by
// start time.
func (s *SQLite) ListEvents(ctx context.Context, owner string, start, end time.Time) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, title, description, start_time, end_time, created_at
		FROM events WHERE owner = ? AND start_time >= ? AND start_time <= ?
		ORDER BY start_time ASC
	`, owner, sqliteTime(start), sqliteTime(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var startStr, endStr, createdStr string
		if err := rows.Scan(&e.ID, &e.Owner, &e.Title, &e.Description, &startStr, &endStr, &createdStr); err != nil {
			return nil, err
		}
		e.StartTime, _ = time.Parse(time.RFC3339Nano, startStr)
		e.EndTime, _ = time.Parse(time.RFC3339Nano, endStr)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// CreateReminder persists a reminder.
func (s *SQLite) CreateReminder(ctx context.Context, r *Reminder) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Kind == "" {
		r.Kind = KindNotification
	}
	if r.Priority == "" {
		r.Priority = "normal"
	}

	var sound *string
	if r.SoundType != "" {
		sound = &r.SoundType
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, owner, title, message, trigger_time, kind, priority, sound_type, executed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, r.ID, r.Owner, r.Title, r.Message, sqliteTime(r.TriggerTime),
		string(r.Kind), r.Priority, sound, sqliteTime(r.CreatedAt))
	return err
}

// PendingReminders returns unexecuted reminders whose trigger time has
// passed, ascending by trigger time.
func (s *SQLite) PendingReminders(ctx context.Context, owner string) ([]*Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, owner, title, message, trigger_time, kind, priority, sound_type, executed, executed_at, created_at
		FROM reminders WHERE owner = ? AND executed = 0 AND trigger_time <= ?
		ORDER BY trigger_time ASC
	`, owner, sqliteTime(time.Now()))
}

// MarkReminderExecuted flips the executed flag. The conditional update
// makes it idempotent: true on the first call, false thereafter.
func (s *SQLite) MarkReminderExecuted(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET executed = 1, executed_at = ?
		WHERE id = ? AND executed = 0
	`, sqliteTime(time.Now()), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListReminders returns the owner's unexecuted reminders, soonest first.
func (s *SQLite) ListReminders(ctx context.Context, owner string) ([]*Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, owner, title, message, trigger_time, kind, priority, sound_type, executed, executed_at, created_at
		FROM reminders WHERE owner = ? AND executed = 0
		ORDER BY trigger_time ASC
	`, owner)
}

// CancelReminder hard-deletes a reminder. Returns false when nothing matched.
func (s *SQLite) CancelReminder(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLite) queryReminders(ctx context.Context, query string, args ...any) ([]*Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*Reminder
	for rows.Next() {
		var r Reminder
		var trigger, created string
		var kind string
		var sound, executedAt sql.NullString
		var executed int
		if err := rows.Scan(&r.ID, &r.Owner, &r.Title, &r.Message, &trigger, &kind,
			&r.Priority, &sound, &executed, &executedAt, &created); err != nil {
			return nil, err
		}
		r.TriggerTime, _ = time.Parse(time.RFC3339Nano, trigger)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		r.Kind = ReminderKind(kind)
		if sound.Valid {
			r.SoundType = sound.String
		}
		r.Executed = executed == 1
		if executedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, executedAt.String)
			r.ExecutedAt = &t
		}
		reminders = append(reminders, &r)
	}
	return reminders, rows.Err()
}

func scanSQLiteTask(rows *sql.Rows) (*Task, error) {
	var t Task
	var due, completedAt sql.NullString
	var tags, created string
	var completed int

	err := rows.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &t.Priority,
		&due, &tags, &completed, &created, &completedAt)
	if err != nil {
		return nil, err
	}

	t.Tags = splitTags(tags)
	t.Completed = completed == 1
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	if due.Valid {
		d, _ := time.Parse(time.RFC3339Nano, due.String)
		t.DueDate = &d
	}
	if completedAt.Valid {
		c, _ := time.Parse(time.RFC3339Nano, completedAt.String)
		t.CompletedAt = &c
	}
	return &t, nil
}
