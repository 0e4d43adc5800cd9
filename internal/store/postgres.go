package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the shared networked Store backend. Semantics mirror the
// SQLite backend so either can sit behind the Store interface.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to the database named by connURL and runs the
// schema migration.
func NewPostgres(ctx context.Context, connURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", connURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Postgres{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indices. Safe to run on every startup.
func (s *Postgres) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'medium',
		due_date TIMESTAMPTZ,
		tags TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		trigger_time TIMESTAMPTZ NOT NULL,
		kind TEXT NOT NULL DEFAULT 'notification',
		priority TEXT NOT NULL DEFAULT 'normal',
		sound_type TEXT,
		executed BOOLEAN NOT NULL DEFAULT FALSE,
		executed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
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

func (s *Postgres) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner, title, description, priority, due_date, tags, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	`, t.ID, t.Owner, t.Title, t.Description, t.Priority, t.DueDate, joinTags(t.Tags), t.CreatedAt)
	return err
}

func (s *Postgres) ListTasks(ctx context.Context, owner string, filter TaskFilter, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, owner, title, description, priority, due_date, tags, completed, created_at, completed_at
		FROM tasks WHERE owner = $1`
	switch filter {
	case FilterPending:
		query += ` AND completed = FALSE`
	case FilterCompleted:
		query += ` AND completed = TRUE`
	case FilterUrgent:
		query += ` AND completed = FALSE AND priority IN ('urgent', 'high')`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanPostgresTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Postgres) CompleteTask(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET completed = TRUE, completed_at = $1
		WHERE id = $2 AND owner = $3 AND completed = FALSE
	`, time.Now(), id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Postgres) DeleteTask(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Postgres) GetTask(ctx context.Context, id, owner string) (*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, title, description, priority, due_date, tags, completed, created_at, completed_at
		FROM tasks WHERE id = $1 AND owner = $2
	`, id, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPostgresTask(rows)
}

func (s *Postgres) CreateEvent(ctx context.Context, e *Event) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Owner, e.Title, e.Description, e.StartTime, e.EndTime, e.CreatedAt)
	return err
}

func (s *Postgres) ListEvents(ctx context.Context, owner string, start, end time.Time) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, title, description, start_time, end_time, created_at
		FROM events WHERE owner = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC
	`, owner, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Owner, &e.Title, &e.Description,
			&e.StartTime, &e.EndTime, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *Postgres) CreateReminder(ctx context.Context, r *Reminder) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9)
	`, r.ID, r.Owner, r.Title, r.Message, r.TriggerTime, string(r.Kind), r.Priority, sound, r.CreatedAt)
	return err
}

func (s *Postgres) PendingReminders(ctx context.Context, owner string) ([]*Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, owner, title, message, trigger_time, kind, priority, sound_type, executed, executed_at, created_at
		FROM reminders WHERE owner = $1 AND executed = FALSE AND trigger_time <= $2
		ORDER BY trigger_time ASC
	`, owner, time.Now())
}

func (s *Postgres) MarkReminderExecuted(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET executed = TRUE, executed_at = $1
		WHERE id = $2 AND executed = FALSE
	`, time.Now(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Postgres) ListReminders(ctx context.Context, owner string) ([]*Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, owner, title, message, trigger_time, kind, priority, sound_type, executed, executed_at, created_at
		FROM reminders WHERE owner = $1 AND executed = FALSE
		ORDER BY trigger_time ASC
	`, owner)
}

func (s *Postgres) CancelReminder(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Postgres) queryReminders(ctx context.Context, query string, args ...any) ([]*Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*Reminder
	for rows.Next() {
		var r Reminder
		var kind string
		var sound sql.NullString
		var executedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Owner, &r.Title, &r.Message, &r.TriggerTime, &kind,
			&r.Priority, &sound, &r.Executed, &executedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Kind = ReminderKind(kind)
		if sound.Valid {
			r.SoundType = sound.String
		}
		if executedAt.Valid {
			t := executedAt.Time
			r.ExecutedAt = &t
		}
		reminders = append(reminders, &r)
	}
	return reminders, rows.Err()
}

func scanPostgresTask(rows *sql.Rows) (*Task, error) {
	var t Task
	var due, completedAt sql.NullTime
	var tags string

	err := rows.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &t.Priority,
		&due, &tags, &t.Completed, &t.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	t.Tags = splitTags(tags)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return &t, nil
}
