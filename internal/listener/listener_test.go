package listener

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mvidela/mayordomo/internal/alarm"
	"github.com/mvidela/mayordomo/internal/notify"
	"github.com/mvidela/mayordomo/internal/store"
)

type recordNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordNotifier) Send(_ context.Context, n notify.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.Title)
	}
	return out
}

type recordAlarmer struct {
	mu     sync.Mutex
	alarms []alarm.Alarm
}

func (r *recordAlarmer) Trigger(_ context.Context, a alarm.Alarm) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarms = append(r.alarms, a)
	return true
}

func (r *recordAlarmer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alarms)
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "listener.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollDeliversDueReminderOnce(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	rn := &recordNotifier{}
	ra := &recordAlarmer{}

	r := &store.Reminder{
		Owner:       "desktop",
		Title:       "vencido",
		Message:     "hazlo ya",
		TriggerTime: time.Now().Add(-time.Minute),
	}
	if err := st.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	l := New(st, rn, ra, "desktop", time.Minute, discard())
	l.poll(ctx)
	l.poll(ctx)

	titles := rn.titles()
	if len(titles) != 1 {
		t.Fatalf("got %d notifications, want 1: %v", len(titles), titles)
	}
	if titles[0] != "🔔 vencido" {
		t.Errorf("title = %q", titles[0])
	}
	if ra.count() != 0 {
		t.Errorf("notification kind should not trigger the alarmer")
	}

	pending, err := st.PendingReminders(ctx, "desktop")
	if err != nil {
		t.Fatalf("PendingReminders: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("delivered reminder still pending")
	}
}

func TestPollRoutesAlarmKind(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	rn := &recordNotifier{}
	ra := &recordAlarmer{}

	r := &store.Reminder{
		Owner:       "desktop",
		Title:       "despertar",
		Message:     "arriba",
		Kind:        store.KindAlarm,
		SoundType:   alarm.SoundBell,
		TriggerTime: time.Now().Add(-time.Second),
	}
	if err := st.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	New(st, rn, ra, "desktop", time.Minute, discard()).poll(ctx)

	if ra.count() != 1 {
		t.Fatalf("alarms = %d, want 1", ra.count())
	}
	if ra.alarms[0].Sound != alarm.SoundBell || !ra.alarms[0].Persistent {
		t.Errorf("alarm = %+v", ra.alarms[0])
	}
	if len(rn.titles()) != 0 {
		t.Errorf("alarm kind should not use the plain notifier")
	}
}

func TestPollSkipsFutureReminders(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	rn := &recordNotifier{}

	r := &store.Reminder{
		Owner:       "desktop",
		Title:       "luego",
		Message:     "todavía no",
		TriggerTime: time.Now().Add(time.Hour),
	}
	if err := st.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	New(st, rn, &recordAlarmer{}, "desktop", time.Minute, discard()).poll(ctx)

	if len(rn.titles()) != 0 {
		t.Errorf("future reminder delivered early: %v", rn.titles())
	}
}

func TestRunStartupNotificationAndShutdown(t *testing.T) {
	st := testStore(t)
	rn := &recordNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	l := New(st, rn, &recordAlarmer{}, "desktop", 10*time.Millisecond, discard())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	titles := rn.titles()
	if len(titles) == 0 || titles[0] != "Mayordomo" {
		t.Errorf("missing startup notification: %v", titles)
	}
}
