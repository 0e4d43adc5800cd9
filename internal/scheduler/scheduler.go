// Package scheduler arms in-process timers for stored reminders and
// runs the recurring assistant jobs: the morning summary and the
// hourly missed-reminder sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mvidela/mayordomo/internal/alarm"
	"github.com/mvidela/mayordomo/internal/notify"
	"github.com/mvidela/mayordomo/internal/store"
)

// ErrPastTrigger is returned when a reminder's trigger time is not in
// the future.
var ErrPastTrigger = errors.New("trigger time must be in the future")

const (
	summaryHour   = 8
	sweepInterval = time.Hour
)

// Scheduler owns one timer per pending reminder, keyed by reminder ID.
// Scheduling the same ID again replaces the prior timer.
type Scheduler struct {
	store    store.Store
	notifier notify.Notifier
	alarmer  alarm.Alarmer
	owner    string
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	fired  int

	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopped bool
}

// New builds a scheduler for one owner's reminders.
func New(st store.Store, notifier notify.Notifier, alarmer alarm.Alarmer, owner string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    st,
		notifier: notifier,
		alarmer:  alarmer,
		owner:    owner,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}
}

// Start rearms timers for every stored unexecuted future reminder and
// launches the recurring jobs. Reminders already past due are fired
// immediately by the first sweep.
func (s *Scheduler) Start(ctx context.Context) error {
	reminders, err := s.store.ListReminders(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}

	now := time.Now()
	restored := 0
	for _, r := range reminders {
		if !r.TriggerTime.After(now) {
			continue
		}
		s.arm(r)
		restored++
	}

	s.wg.Add(2)
	go s.runDailySummary()
	go s.runSweep()

	s.logger.Info("scheduler started", "restored", restored, "owner", s.owner)
	return nil
}

// Stop cancels all timers and waits for in-flight firings.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Schedule persists the reminder and arms its timer. A reminder with
// the same ID replaces the existing timer.
func (s *Scheduler) Schedule(ctx context.Context, r *store.Reminder) error {
	if !r.TriggerTime.After(time.Now()) {
		return ErrPastTrigger
	}
	if err := s.store.CreateReminder(ctx, r); err != nil {
		return fmt.Errorf("persist reminder: %w", err)
	}
	s.arm(r)
	s.logger.Info("reminder scheduled", "id", r.ID, "title", r.Title,
		"trigger", r.TriggerTime.Format(time.RFC3339), "kind", r.Kind)
	return nil
}

// Cancel stops the timer and removes the stored reminder. Returns
// false when the reminder does not exist.
func (s *Scheduler) Cancel(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	return s.store.CancelReminder(ctx, id, s.owner)
}

// Stats reports the live timer count and cumulative firings.
func (s *Scheduler) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"active_timers": len(s.timers),
		"fired":         s.fired,
	}
}

func (s *Scheduler) arm(r *store.Reminder) {
	d := time.Until(r.TriggerTime)
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.timers[r.ID]; ok {
		prev.Stop()
	}
	rc := *r
	s.timers[r.ID] = time.AfterFunc(d, func() { s.fire(&rc) })
}

// fire delivers the reminder and marks it executed. Delivery runs
// first: a crash between the two leaves the reminder pending and it
// fires again, never silently disappears.
func (s *Scheduler) fire(r *store.Reminder) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, r.ID)
	s.fired++
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.deliver(ctx, r)

	if _, err := s.store.MarkReminderExecuted(ctx, r.ID); err != nil {
		s.logger.Error("mark reminder executed", "id", r.ID, "error", err)
	}
}

func (s *Scheduler) deliver(ctx context.Context, r *store.Reminder) {
	switch r.Kind {
	case store.KindAlarm:
		s.alarmer.Trigger(ctx, alarm.Alarm{
			Title:      r.Title,
			Message:    r.Message,
			Sound:      r.SoundType,
			Repeat:     3,
			Persistent: true,
		})
	default:
		s.notifier.Send(ctx, notify.Notification{
			Title:     "🔔 " + r.Title,
			Message:   r.Message,
			Priority:  r.Priority,
			TimeoutMS: 15000,
			Icon:      "appointment-soon",
		})
	}
	s.logger.Info("reminder fired", "id", r.ID, "title", r.Title, "kind", r.Kind)
}

// runDailySummary posts the agenda notification at eight every morning.
func (s *Scheduler) runDailySummary() {
	defer s.wg.Done()
	for {
		select {
		case <-time.After(untilNext(summaryHour)):
			s.sendDailySummary()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) sendDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := s.store.ListEvents(ctx, s.owner, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		s.logger.Error("daily summary events", "error", err)
	}
	tasks, err := s.store.ListTasks(ctx, s.owner, store.FilterPending, 10)
	if err != nil {
		s.logger.Error("daily summary tasks", "error", err)
	}

	var b strings.Builder
	if len(events) == 0 {
		b.WriteString("Sin eventos para hoy.")
	} else {
		fmt.Fprintf(&b, "%d evento(s) hoy:", len(events))
		for _, e := range events {
			fmt.Fprintf(&b, "\n• %s %s", e.StartTime.Format("15:04"), e.Title)
		}
	}
	if len(tasks) > 0 {
		fmt.Fprintf(&b, "\n%d tarea(s) pendiente(s):", len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(&b, "\n• %s", t.Title)
		}
	}

	s.notifier.Send(ctx, notify.Notification{
		Title:     "📋 Resumen del día",
		Message:   b.String(),
		Priority:  notify.PriorityNormal,
		TimeoutMS: 30000,
		Icon:      "x-office-calendar",
	})
	s.logger.Info("daily summary sent", "events", len(events), "tasks", len(tasks))
}

// runSweep rescues reminders whose timers were lost, firing anything
// past due once an hour. The first sweep runs shortly after startup.
func (s *Scheduler) runSweep() {
	defer s.wg.Done()

	delay := 10 * time.Second
	for {
		select {
		case <-time.After(delay):
			s.sweep()
			delay = sweepInterval
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := s.store.PendingReminders(ctx, s.owner)
	if err != nil {
		s.logger.Error("sweep pending reminders", "error", err)
		return
	}
	for _, r := range pending {
		s.mu.Lock()
		_, armed := s.timers[r.ID]
		s.mu.Unlock()
		if armed {
			continue
		}
		s.logger.Warn("sweep firing missed reminder", "id", r.ID, "title", r.Title)
		s.fire(r)
	}
}

// untilNext returns the duration until the next wall-clock occurrence
// of hour:00.
func untilNext(hour int) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return time.Until(next)
}
