// Package store provides durable persistence for tasks, calendar events,
// and reminders. Two backends implement the same contract: a
// process-local SQLite file and a shared Postgres database reachable
// from every cooperating machine. Callers never care which one they
// hold — the interface is the only synchronization boundary between
// processes.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task priorities, highest urgency first.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TaskFilter selects which tasks ListTasks returns.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterPending   TaskFilter = "pending"
	FilterCompleted TaskFilter = "completed"
	FilterUrgent    TaskFilter = "urgent"
)

// ReminderKind distinguishes plain notifications from sound-bearing alarms.
type ReminderKind string

const (
	KindNotification ReminderKind = "notification"
	KindAlarm        ReminderKind = "alarm"
)

// Task is a to-do item owned by one user.
type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"` // urgent, high, medium, low
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags"` // order preserved
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // set iff Completed
}

// Event is a calendar entry. Immutable after creation.
type Event struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"` // must be after StartTime
	CreatedAt   time.Time `json:"created_at"`
}

// Reminder is a scheduled future side effect.
type Reminder struct {
	ID          string       `json:"id"`
	Owner       string       `json:"owner"`
	Title       string       `json:"title"`
	Message     string       `json:"message"`
	TriggerTime time.Time    `json:"trigger_time"`
	Kind        ReminderKind `json:"kind"`
	Priority    string       `json:"priority"`             // low, normal, critical
	SoundType   string       `json:"sound_type,omitempty"` // only meaningful for alarms
	Executed    bool         `json:"executed"`
	ExecutedAt  *time.Time   `json:"executed_at,omitempty"` // set iff Executed
	CreatedAt   time.Time    `json:"created_at"`
}

// ErrInvalidRange is returned when an event's end does not follow its start.
var ErrInvalidRange = errors.New("event end_time must be after start_time")

// Store is the persistence contract. All operations are context-aware
// and scoped to an explicit owner where multi-tenant isolation applies.
// Boolean returns report whether a matching row existed.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context, owner string, filter TaskFilter, limit int) ([]*Task, error)
	CompleteTask(ctx context.Context, id, owner string) (bool, error)
	DeleteTask(ctx context.Context, id, owner string) (bool, error)
	GetTask(ctx context.Context, id, owner string) (*Task, error)

	CreateEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, owner string, start, end time.Time) ([]*Event, error)

	CreateReminder(ctx context.Context, r *Reminder) error
	PendingReminders(ctx context.Context, owner string) ([]*Reminder, error)
	MarkReminderExecuted(ctx context.Context, id string) (bool, error)
	ListReminders(ctx context.Context, owner string) ([]*Reminder, error)
	CancelReminder(ctx context.Context, id, owner string) (bool, error)
}

// NewID generates a new UUIDv7, falling back to v4 if v7 fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// joinTags flattens a tag list for storage, preserving order.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// splitTags reverses joinTags. Empty input yields a nil slice.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
