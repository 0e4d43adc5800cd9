package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvidela/mayordomo/internal/alarm"
	"github.com/mvidela/mayordomo/internal/notify"
	"github.com/mvidela/mayordomo/internal/scheduler"
	"github.com/mvidela/mayordomo/internal/store"
)

// NotificationSend shows a desktop notification immediately.
type NotificationSend struct {
	Notifier notify.Notifier
}

func (t *NotificationSend) Name() string { return "notification_send" }

func (t *NotificationSend) Description() string {
	return "Muestra una notificación de escritorio inmediatamente."
}

func (t *NotificationSend) Parameters() []Param {
	return []Param{
		{Name: "title", Type: "string", Description: "Título de la notificación", Required: true},
		{Name: "message", Type: "string", Description: "Texto de la notificación", Required: true},
		{Name: "priority", Type: "string", Description: "Urgencia",
			Enum: []string{"low", "normal", "critical"}},
		{Name: "timeout_ms", Type: "number", Description: "Milisegundos en pantalla; 0 la deja fija"},
	}
}

func (t *NotificationSend) Execute(ctx context.Context, args map[string]any) map[string]any {
	title, ok := stringArg(args, "title")
	if !ok {
		return fail("falta el argumento requerido: title")
	}
	message, ok := stringArg(args, "message")
	if !ok {
		return fail("falta el argumento requerido: message")
	}

	n := notify.Notification{
		Title:     title,
		Message:   message,
		TimeoutMS: 10000,
	}
	n.Priority, _ = stringArg(args, "priority")
	if ms, ok := numberArg(args, "timeout_ms"); ok && ms >= 0 {
		n.TimeoutMS = int(ms)
	}

	if !t.Notifier.Send(ctx, n) {
		return fail("no se pudo mostrar la notificación")
	}
	return map[string]any{
		"success": true,
		"message": "Notificación enviada",
	}
}

// AlarmCreate schedules a persistent alarm with sound.
type AlarmCreate struct {
	Scheduler ReminderScheduler
}

func (t *AlarmCreate) Name() string { return "alarm_create" }

func (t *AlarmCreate) Description() string {
	return "Programa una alarma sonora y persistente para la hora indicada."
}

func (t *AlarmCreate) Parameters() []Param {
	return []Param{
		{Name: "title", Type: "string", Description: "Título de la alarma", Required: true},
		{Name: "trigger_time", Type: "string", Description: "Cuándo sonar, en formato ISO 8601", Required: true},
		{Name: "message", Type: "string", Description: "Texto adicional"},
		{Name: "sound", Type: "string", Description: "Sonido de la alarma",
			Enum: []string{alarm.SoundAlarm, alarm.SoundBell, alarm.SoundGentle, alarm.SoundBeep}},
	}
}

func (t *AlarmCreate) Execute(ctx context.Context, args map[string]any) map[string]any {
	title, ok := stringArg(args, "title")
	if !ok {
		return fail("falta el argumento requerido: title")
	}
	rawWhen, ok := stringArg(args, "trigger_time")
	if !ok {
		return fail("falta el argumento requerido: trigger_time")
	}
	when, err := parseWhen(rawWhen)
	if err != nil {
		return fail("hora inválida: %s", rawWhen)
	}

	sound := alarm.SoundAlarm
	if s, ok := stringArg(args, "sound"); ok {
		switch s {
		case alarm.SoundAlarm, alarm.SoundBell, alarm.SoundGentle, alarm.SoundBeep:
			sound = s
		default:
			return fail("sonido inválido: %s", s)
		}
	}

	r := &store.Reminder{
		Owner:       OwnerFrom(ctx),
		Title:       title,
		TriggerTime: when,
		Kind:        store.KindAlarm,
		Priority:    "critical",
		SoundType:   sound,
	}
	r.Message, _ = stringArg(args, "message")
	if r.Message == "" {
		r.Message = title
	}

	if err := t.Scheduler.Schedule(ctx, r); err != nil {
		if errors.Is(err, scheduler.ErrPastTrigger) {
			return fail("la hora de la alarma debe ser en el futuro")
		}
		return fail("error ejecutando alarm_create: %v", err)
	}

	return map[string]any{
		"success":  true,
		"alarm_id": r.ID,
		"message": fmt.Sprintf("Alarma programada para %s (%s)",
			when.Format("02/01/2006 15:04"), humanUntil(when)),
	}
}
