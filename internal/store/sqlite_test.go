package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{
		Owner:    "cli:local",
		Title:    "comprar pan",
		Priority: PriorityHigh,
		Tags:     []string{"casa", "compras"},
	}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected generated task ID")
	}

	got, err := s.GetTask(ctx, task.ID, "cli:local")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got == nil {
		t.Fatal("expected task, got nil")
	}
	if got.Title != "comprar pan" {
		t.Errorf("title = %q, want %q", got.Title, "comprar pan")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "casa" || got.Tags[1] != "compras" {
		t.Errorf("tags = %v, want [casa compras]", got.Tags)
	}
	if got.Completed {
		t.Error("new task should not be completed")
	}
	if got.CompletedAt != nil {
		t.Error("new task should have nil CompletedAt")
	}

	ok, err := s.CompleteTask(ctx, task.ID, "cli:local")
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if !ok {
		t.Fatal("CompleteTask should report success")
	}

	got, err = s.GetTask(ctx, task.ID, "cli:local")
	if err != nil {
		t.Fatalf("GetTask after complete: %v", err)
	}
	if !got.Completed || got.CompletedAt == nil {
		t.Error("completed task should carry Completed and CompletedAt")
	}

	// Completing again finds no pending row.
	ok, err = s.CompleteTask(ctx, task.ID, "cli:local")
	if err != nil {
		t.Fatalf("CompleteTask repeat: %v", err)
	}
	if ok {
		t.Error("completing an already-completed task should report false")
	}
}

func TestCompleteTaskMissing(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.CompleteTask(context.Background(), "no-such-id", "cli:local")
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if ok {
		t.Error("expected false for missing task")
	}
}

func TestTaskOwnerIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Owner: "tg:111", Title: "privada"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID, "tg:222")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got != nil {
		t.Error("another owner should not see the task")
	}

	ok, err := s.DeleteTask(ctx, task.ID, "tg:222")
	if err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if ok {
		t.Error("another owner should not delete the task")
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(title, priority string, completed bool) {
		t.Helper()
		task := &Task{Owner: "cli:local", Title: title, Priority: priority}
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask %s: %v", title, err)
		}
		if completed {
			if _, err := s.CompleteTask(ctx, task.ID, "cli:local"); err != nil {
				t.Fatalf("CompleteTask %s: %v", title, err)
			}
		}
	}

	mk("pendiente", PriorityMedium, false)
	mk("hecha", PriorityMedium, true)
	mk("urgente", PriorityUrgent, false)
	mk("alta", PriorityHigh, false)
	mk("urgente hecha", PriorityUrgent, true)

	cases := []struct {
		filter TaskFilter
		want   int
	}{
		{FilterAll, 5},
		{FilterPending, 3},
		{FilterCompleted, 2},
		{FilterUrgent, 2},
	}
	for _, tc := range cases {
		tasks, err := s.ListTasks(ctx, "cli:local", tc.filter, 0)
		if err != nil {
			t.Fatalf("ListTasks(%s): %v", tc.filter, err)
		}
		if len(tasks) != tc.want {
			t.Errorf("ListTasks(%s) = %d tasks, want %d", tc.filter, len(tasks), tc.want)
		}
	}

	// Urgent filter excludes completed rows even at urgent priority.
	tasks, _ := s.ListTasks(ctx, "cli:local", FilterUrgent, 0)
	for _, task := range tasks {
		if task.Completed {
			t.Errorf("urgent filter returned completed task %q", task.Title)
		}
	}
}

func TestCreateEventRejectsInvalidRange(t *testing.T) {
	s := newTestStore(t)
	start := time.Now().Add(time.Hour)

	err := s.CreateEvent(context.Background(), &Event{
		Owner:     "cli:local",
		Title:     "reunión",
		StartTime: start,
		EndTime:   start,
	})
	if err != ErrInvalidRange {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestListEventsWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	for i, title := range []string{"primera", "segunda", "tercera"} {
		e := &Event{
			Owner:     "cli:local",
			Title:     title,
			StartTime: base.Add(time.Duration(i) * 24 * time.Hour),
			EndTime:   base.Add(time.Duration(i)*24*time.Hour + time.Hour),
		}
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent %s: %v", title, err)
		}
	}

	events, err := s.ListEvents(ctx, "cli:local", base, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Title != "primera" || events[1].Title != "segunda" {
		t.Errorf("events out of order: %s, %s", events[0].Title, events[1].Title)
	}
}

func TestPendingReminders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	due := &Reminder{Owner: "cli:local", Title: "ya", Message: "vencido", TriggerTime: now.Add(-time.Minute)}
	future := &Reminder{Owner: "cli:local", Title: "luego", Message: "futuro", TriggerTime: now.Add(time.Hour)}
	for _, r := range []*Reminder{due, future} {
		if err := s.CreateReminder(ctx, r); err != nil {
			t.Fatalf("CreateReminder: %v", err)
		}
	}

	pending, err := s.PendingReminders(ctx, "cli:local")
	if err != nil {
		t.Fatalf("PendingReminders: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	if pending[0].ID != due.ID {
		t.Errorf("pending = %s, want %s", pending[0].ID, due.ID)
	}

	all, err := s.ListReminders(ctx, "cli:local")
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d unexecuted, want 2", len(all))
	}
}

func TestPendingRemindersMixedOffsets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// Trigger times carrying different UTC offsets must all compare
	// against "now" correctly; the stored text is compared lexically.
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("east", 5*3600+30*60),
		time.FixedZone("west", -8*3600),
	}
	for i, loc := range zones {
		r := &Reminder{
			Owner:       "cli:local",
			Title:       fmt.Sprintf("vencido-%d", i),
			Message:     "hace una hora",
			TriggerTime: now.Add(-time.Hour).In(loc),
		}
		if err := s.CreateReminder(ctx, r); err != nil {
			t.Fatalf("CreateReminder %d: %v", i, err)
		}
	}
	future := &Reminder{
		Owner:       "cli:local",
		Title:       "luego",
		Message:     "en una hora",
		TriggerTime: now.Add(time.Hour).In(zones[1]),
	}
	if err := s.CreateReminder(ctx, future); err != nil {
		t.Fatalf("CreateReminder future: %v", err)
	}

	pending, err := s.PendingReminders(ctx, "cli:local")
	if err != nil {
		t.Fatalf("PendingReminders: %v", err)
	}
	if len(pending) != len(zones) {
		t.Fatalf("got %d pending, want %d (an offset-carrying row was lost)", len(pending), len(zones))
	}
	for _, r := range pending {
		if r.Title == "luego" {
			t.Error("future reminder returned as due")
		}
	}
}

func TestListEventsWindowMixedOffsets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	east := time.FixedZone("east", 3*3600)

	e := &Event{
		Owner:     "cli:local",
		Title:     "reunión",
		StartTime: base.Add(2 * time.Hour).In(east),
		EndTime:   base.Add(3 * time.Hour).In(east),
	}
	if err := s.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	// Window in UTC covers the event's instant regardless of the offset
	// it was created with.
	events, err := s.ListEvents(ctx, "cli:local", base, base.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !events[0].StartTime.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("start = %v, want %v", events[0].StartTime, base.Add(2*time.Hour))
	}
}

func TestMarkReminderExecutedIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &Reminder{Owner: "cli:local", Title: "único", Message: "una vez", TriggerTime: time.Now().Add(-time.Second)}
	if err := s.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	ok, err := s.MarkReminderExecuted(ctx, r.ID)
	if err != nil {
		t.Fatalf("MarkReminderExecuted: %v", err)
	}
	if !ok {
		t.Fatal("first call should win the flag")
	}

	ok, err = s.MarkReminderExecuted(ctx, r.ID)
	if err != nil {
		t.Fatalf("MarkReminderExecuted repeat: %v", err)
	}
	if ok {
		t.Error("second call should report false")
	}

	pending, err := s.PendingReminders(ctx, "cli:local")
	if err != nil {
		t.Fatalf("PendingReminders: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("executed reminder still pending: %d", len(pending))
	}
}

func TestCancelReminder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &Reminder{Owner: "cli:local", Title: "cancelar", Message: "x", TriggerTime: time.Now().Add(time.Hour)}
	if err := s.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	ok, err := s.CancelReminder(ctx, r.ID, "cli:local")
	if err != nil {
		t.Fatalf("CancelReminder: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel to succeed")
	}

	ok, err = s.CancelReminder(ctx, r.ID, "cli:local")
	if err != nil {
		t.Fatalf("CancelReminder repeat: %v", err)
	}
	if ok {
		t.Error("cancelling twice should report false")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("empty ID")
		}
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
	}
}
