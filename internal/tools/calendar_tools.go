package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvidela/mayordomo/internal/calcurse"
	"github.com/mvidela/mayordomo/internal/store"
)

// CalendarCreateEvent stores a calendar event and mirrors it into
// calcurse.
type CalendarCreateEvent struct {
	Store    store.Store
	Calendar CalendarWriter
}

func (t *CalendarCreateEvent) Name() string { return "calendar_create_event" }

func (t *CalendarCreateEvent) Description() string {
	return "Agenda un evento en el calendario con hora de inicio y fin."
}

func (t *CalendarCreateEvent) Parameters() []Param {
	return []Param{
		{Name: "title", Type: "string", Description: "Título del evento", Required: true},
		{Name: "start_time", Type: "string", Description: "Inicio en formato ISO 8601", Required: true},
		{Name: "end_time", Type: "string", Description: "Fin en formato ISO 8601; por defecto una hora después del inicio"},
		{Name: "description", Type: "string", Description: "Detalle adicional"},
	}
}

func (t *CalendarCreateEvent) Execute(ctx context.Context, args map[string]any) map[string]any {
	title, ok := stringArg(args, "title")
	if !ok {
		return fail("falta el argumento requerido: title")
	}
	rawStart, ok := stringArg(args, "start_time")
	if !ok {
		return fail("falta el argumento requerido: start_time")
	}
	start, err := parseWhen(rawStart)
	if err != nil {
		return fail("hora de inicio inválida: %s", rawStart)
	}

	end := start.Add(time.Hour)
	if rawEnd, ok := stringArg(args, "end_time"); ok {
		end, err = parseWhen(rawEnd)
		if err != nil {
			return fail("hora de fin inválida: %s", rawEnd)
		}
	}

	event := &store.Event{
		Owner:     OwnerFrom(ctx),
		Title:     title,
		StartTime: start,
		EndTime:   end,
	}
	event.Description, _ = stringArg(args, "description")

	if err := t.Store.CreateEvent(ctx, event); err != nil {
		if errors.Is(err, store.ErrInvalidRange) {
			return fail("la hora de fin debe ser posterior a la de inicio")
		}
		return fail("error ejecutando calendar_create_event: %v", err)
	}

	if t.Calendar != nil {
		_ = t.Calendar.SaveEvent(ctx, title, event.Description, start, end)
	}

	return map[string]any{
		"success":  true,
		"event_id": event.ID,
		"message": fmt.Sprintf("Evento agendado: %s el %s",
			title, start.Format("02/01/2006 a las 15:04")),
	}
}

// CalendarGetAgenda reads the upcoming agenda from the store, enriched
// with the calcurse report when available.
type CalendarGetAgenda struct {
	Store    store.Store
	Calendar AgendaReader
}

// AgendaReader is the read side of the calcurse client.
type AgendaReader interface {
	GetAgenda(ctx context.Context, days int) (*calcurse.Agenda, error)
}

func (t *CalendarGetAgenda) Name() string { return "calendar_get_agenda" }

func (t *CalendarGetAgenda) Description() string {
	return "Consulta la agenda de los próximos días: eventos y tareas pendientes."
}

func (t *CalendarGetAgenda) Parameters() []Param {
	return []Param{
		{Name: "days", Type: "number", Description: "Cuántos días hacia adelante consultar (por defecto 1)"},
	}
}

func (t *CalendarGetAgenda) Execute(ctx context.Context, args map[string]any) map[string]any {
	days := 1
	if n, ok := numberArg(args, "days"); ok && n >= 1 {
		days = int(n)
	}

	owner := OwnerFrom(ctx)
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := t.Store.ListEvents(ctx, owner, dayStart, dayStart.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		return fail("error ejecutando calendar_get_agenda: %v", err)
	}

	items := make([]map[string]any, 0, len(events))
	for _, e := range events {
		items = append(items, map[string]any{
			"id":         e.ID,
			"title":      e.Title,
			"start_time": e.StartTime.Format(time.RFC3339),
			"end_time":   e.EndTime.Format(time.RFC3339),
		})
	}

	result := map[string]any{
		"success": true,
		"days":    days,
		"count":   len(items),
		"events":  items,
		"message": fmt.Sprintf("%d evento(s) en los próximos %d día(s)", len(items), days),
	}

	if t.Calendar != nil {
		if agenda, err := t.Calendar.GetAgenda(ctx, days); err == nil {
			result["calcurse_events"] = agenda.Events
			result["calcurse_tasks"] = agenda.Tasks
		}
	}
	return result
}
