// Package listener runs the desktop-side reminder consumer: it polls
// the shared store for due reminders and executes their side effects
// on the local machine.
package listener

import (
	"context"
	"log/slog"
	"time"

	"github.com/mvidela/mayordomo/internal/alarm"
	"github.com/mvidela/mayordomo/internal/notify"
	"github.com/mvidela/mayordomo/internal/store"
)

const defaultPollInterval = 30 * time.Second

// Listener polls for one owner's due reminders.
type Listener struct {
	store    store.Store
	notifier notify.Notifier
	alarmer  alarm.Alarmer
	owner    string
	interval time.Duration
	logger   *slog.Logger
}

// New builds a listener. A non-positive interval uses the default 30s.
func New(st store.Store, notifier notify.Notifier, alarmer alarm.Alarmer, owner string, interval time.Duration, logger *slog.Logger) *Listener {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		store:    st,
		notifier: notifier,
		alarmer:  alarmer,
		owner:    owner,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled. The first poll happens
// immediately so reminders missed while the machine was off fire on
// startup.
func (l *Listener) Run(ctx context.Context) error {
	l.notifier.Send(ctx, notify.Notification{
		Title:     "Mayordomo",
		Message:   "Escuchando recordatorios",
		Priority:  notify.PriorityLow,
		TimeoutMS: 5000,
	})
	l.logger.Info("listener started", "owner", l.owner, "interval", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.poll(ctx)
	for {
		select {
		case <-ticker.C:
			l.poll(ctx)
		case <-ctx.Done():
			l.logger.Info("listener stopped")
			return ctx.Err()
		}
	}
}

// poll executes every due reminder. Marking executed happens first:
// when agent and listener share the store, the row is a lock and only
// the winner delivers.
func (l *Listener) poll(ctx context.Context) {
	pending, err := l.store.PendingReminders(ctx, l.owner)
	if err != nil {
		l.logger.Error("poll pending reminders", "error", err)
		return
	}

	for _, r := range pending {
		won, err := l.store.MarkReminderExecuted(ctx, r.ID)
		if err != nil {
			l.logger.Error("mark reminder executed", "id", r.ID, "error", err)
			continue
		}
		if !won {
			continue
		}
		l.deliver(ctx, r)
	}
}

func (l *Listener) deliver(ctx context.Context, r *store.Reminder) {
	switch r.Kind {
	case store.KindAlarm:
		l.alarmer.Trigger(ctx, alarm.Alarm{
			Title:      r.Title,
			Message:    r.Message,
			Sound:      r.SoundType,
			Repeat:     3,
			Persistent: true,
		})
	default:
		l.notifier.Send(ctx, notify.Notification{
			Title:     "🔔 " + r.Title,
			Message:   r.Message,
			Priority:  r.Priority,
			TimeoutMS: 15000,
			Icon:      "appointment-soon",
		})
	}
	l.logger.Info("reminder delivered", "id", r.ID, "title", r.Title, "kind", r.Kind)
}
