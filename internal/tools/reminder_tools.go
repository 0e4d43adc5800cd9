package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvidela/mayordomo/internal/scheduler"
	"github.com/mvidela/mayordomo/internal/store"
)

// ReminderScheduler is the slice of the scheduler the reminder tools
// drive.
type ReminderScheduler interface {
	Schedule(ctx context.Context, r *store.Reminder) error
	Cancel(ctx context.Context, id string) (bool, error)
}

// ReminderCreate schedules a one-shot desktop notification.
type ReminderCreate struct {
	Scheduler ReminderScheduler
}

func (t *ReminderCreate) Name() string { return "reminder_create" }

func (t *ReminderCreate) Description() string {
	return "Programa un recordatorio que mostrará una notificación a la hora indicada."
}

func (t *ReminderCreate) Parameters() []Param {
	return []Param{
		{Name: "title", Type: "string", Description: "Título del recordatorio", Required: true},
		{Name: "message", Type: "string", Description: "Texto de la notificación", Required: true},
		{Name: "trigger_time", Type: "string", Description: "Cuándo avisar, en formato ISO 8601", Required: true},
		{Name: "priority", Type: "string", Description: "Urgencia de la notificación",
			Enum: []string{"low", "normal", "critical"}},
	}
}

func (t *ReminderCreate) Execute(ctx context.Context, args map[string]any) map[string]any {
	title, ok := stringArg(args, "title")
	if !ok {
		return fail("falta el argumento requerido: title")
	}
	message, ok := stringArg(args, "message")
	if !ok {
		return fail("falta el argumento requerido: message")
	}
	rawWhen, ok := stringArg(args, "trigger_time")
	if !ok {
		return fail("falta el argumento requerido: trigger_time")
	}
	when, err := parseWhen(rawWhen)
	if err != nil {
		return fail("hora inválida: %s", rawWhen)
	}

	r := &store.Reminder{
		Owner:       OwnerFrom(ctx),
		Title:       title,
		Message:     message,
		TriggerTime: when,
		Kind:        store.KindNotification,
	}
	r.Priority, _ = stringArg(args, "priority")

	if err := t.Scheduler.Schedule(ctx, r); err != nil {
		if errors.Is(err, scheduler.ErrPastTrigger) {
			return fail("la hora del recordatorio debe ser en el futuro")
		}
		return fail("error ejecutando reminder_create: %v", err)
	}

	return map[string]any{
		"success":     true,
		"reminder_id": r.ID,
		"message": fmt.Sprintf("Recordatorio programado para %s (%s)",
			when.Format("02/01/2006 15:04"), humanUntil(when)),
	}
}

// ReminderList lists pending reminders, soonest first.
type ReminderList struct {
	Store store.Store
}

func (t *ReminderList) Name() string { return "reminder_list" }

func (t *ReminderList) Description() string {
	return "Lista los recordatorios pendientes del usuario."
}

func (t *ReminderList) Parameters() []Param { return nil }

func (t *ReminderList) Execute(ctx context.Context, args map[string]any) map[string]any {
	reminders, err := t.Store.ListReminders(ctx, OwnerFrom(ctx))
	if err != nil {
		return fail("error ejecutando reminder_list: %v", err)
	}

	items := make([]map[string]any, 0, len(reminders))
	for _, r := range reminders {
		items = append(items, map[string]any{
			"id":           r.ID,
			"title":        r.Title,
			"trigger_time": r.TriggerTime.Format(time.RFC3339),
			"kind":         string(r.Kind),
			"in":           humanUntil(r.TriggerTime),
		})
	}

	return map[string]any{
		"success":   true,
		"count":     len(items),
		"reminders": items,
		"message":   fmt.Sprintf("%d recordatorio(s) pendiente(s)", len(items)),
	}
}

// ReminderCancel drops a pending reminder.
type ReminderCancel struct {
	Scheduler ReminderScheduler
}

func (t *ReminderCancel) Name() string { return "reminder_cancel" }

func (t *ReminderCancel) Description() string {
	return "Cancela un recordatorio pendiente usando su identificador."
}

func (t *ReminderCancel) Parameters() []Param {
	return []Param{
		{Name: "reminder_id", Type: "string", Description: "Identificador del recordatorio", Required: true},
	}
}

func (t *ReminderCancel) Execute(ctx context.Context, args map[string]any) map[string]any {
	id, ok := stringArg(args, "reminder_id")
	if !ok {
		return fail("falta el argumento requerido: reminder_id")
	}

	ok, err := t.Scheduler.Cancel(ctx, id)
	if err != nil {
		return fail("error ejecutando reminder_cancel: %v", err)
	}
	if !ok {
		return fail("no se encontró un recordatorio con id %s", id)
	}
	return map[string]any{
		"success": true,
		"message": "Recordatorio cancelado",
	}
}

// humanUntil renders the wait until a future time the way a person
// would say it: "en 2 horas y 15 minutos".
func humanUntil(when time.Time) string {
	d := time.Until(when)
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("en %d día(s) y %d hora(s)", days, hours)
	case days > 0:
		return fmt.Sprintf("en %d día(s)", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("en %d hora(s) y %d minuto(s)", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("en %d hora(s)", hours)
	case minutes > 0:
		return fmt.Sprintf("en %d minuto(s)", minutes)
	}
	return "en menos de un minuto"
}
