package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mvidela/mayordomo/internal/store"
)

// TaskCreate adds a task to the store and mirrors it into calcurse when
// a calendar client is present.
type TaskCreate struct {
	Store    store.Store
	Calendar CalendarWriter
}

// CalendarWriter is the slice of the calcurse client the task and
// event tools need. Nil disables mirroring.
type CalendarWriter interface {
	SaveEvent(ctx context.Context, title, description string, start, end time.Time) error
	SaveTask(ctx context.Context, title string, priority int) error
}

func (t *TaskCreate) Name() string { return "task_create" }

func (t *TaskCreate) Description() string {
	return "Crea una tarea pendiente con título, prioridad opcional, fecha límite opcional y etiquetas."
}

func (t *TaskCreate) Parameters() []Param {
	return []Param{
		{Name: "title", Type: "string", Description: "Título de la tarea", Required: true},
		{Name: "description", Type: "string", Description: "Detalle adicional"},
		{Name: "priority", Type: "string", Description: "Prioridad de la tarea",
			Enum: []string{store.PriorityLow, store.PriorityMedium, store.PriorityHigh, store.PriorityUrgent}},
		{Name: "due_date", Type: "string", Description: "Fecha límite en formato ISO 8601 (2026-09-02T15:00:00Z)"},
		{Name: "tags", Type: "array", Description: "Etiquetas de la tarea"},
	}
}

func (t *TaskCreate) Execute(ctx context.Context, args map[string]any) map[string]any {
	title, ok := stringArg(args, "title")
	if !ok {
		return fail("falta el argumento requerido: title")
	}

	task := &store.Task{
		Owner: OwnerFrom(ctx),
		Title: title,
	}
	task.Description, _ = stringArg(args, "description")
	if p, ok := stringArg(args, "priority"); ok {
		switch p {
		case store.PriorityLow, store.PriorityMedium, store.PriorityHigh, store.PriorityUrgent:
			task.Priority = p
		default:
			return fail("prioridad inválida: %s", p)
		}
	}
	if raw, ok := stringArg(args, "due_date"); ok {
		due, err := parseWhen(raw)
		if err != nil {
			return fail("fecha límite inválida: %s", raw)
		}
		task.DueDate = &due
	}
	if raw, ok := args["tags"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				task.Tags = append(task.Tags, s)
			}
		}
	}

	if err := t.Store.CreateTask(ctx, task); err != nil {
		return fail("error ejecutando task_create: %v", err)
	}

	if t.Calendar != nil {
		// Mirroring is best effort; the store is authoritative.
		_ = t.Calendar.SaveTask(ctx, task.Title, calcursePriority(task.Priority))
	}

	return map[string]any{
		"success": true,
		"task_id": task.ID,
		"message": fmt.Sprintf("Tarea creada: %s", task.Title),
	}
}

// TaskList lists the owner's tasks, pending by default.
type TaskList struct {
	Store store.Store
}

func (t *TaskList) Name() string { return "task_list" }

func (t *TaskList) Description() string {
	return "Lista las tareas del usuario. Por defecto muestra solo las pendientes."
}

func (t *TaskList) Parameters() []Param {
	return []Param{
		{Name: "filter", Type: "string", Description: "Qué tareas mostrar",
			Enum: []string{string(store.FilterAll), string(store.FilterPending), string(store.FilterCompleted), string(store.FilterUrgent)}},
		{Name: "limit", Type: "number", Description: "Máximo de tareas a devolver"},
	}
}

func (t *TaskList) Execute(ctx context.Context, args map[string]any) map[string]any {
	filter := store.FilterPending
	if f, ok := stringArg(args, "filter"); ok {
		switch store.TaskFilter(f) {
		case store.FilterAll, store.FilterPending, store.FilterCompleted, store.FilterUrgent:
			filter = store.TaskFilter(f)
		default:
			return fail("filtro inválido: %s", f)
		}
	}
	limit := 0
	if n, ok := numberArg(args, "limit"); ok {
		limit = int(n)
	}

	tasks, err := t.Store.ListTasks(ctx, OwnerFrom(ctx), filter, limit)
	if err != nil {
		return fail("error ejecutando task_list: %v", err)
	}

	items := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		item := map[string]any{
			"id":        task.ID,
			"title":     task.Title,
			"priority":  task.Priority,
			"completed": task.Completed,
		}
		if task.Description != "" {
			item["description"] = task.Description
		}
		if task.DueDate != nil {
			item["due_date"] = task.DueDate.Format(time.RFC3339)
		}
		if len(task.Tags) > 0 {
			item["tags"] = task.Tags
		}
		items = append(items, item)
	}

	return map[string]any{
		"success": true,
		"count":   len(items),
		"tasks":   items,
		"message": fmt.Sprintf("%d tarea(s) encontrada(s)", len(items)),
	}
}

// TaskComplete marks a task done.
type TaskComplete struct {
	Store store.Store
}

func (t *TaskComplete) Name() string { return "task_complete" }

func (t *TaskComplete) Description() string {
	return "Marca una tarea como completada usando su identificador."
}

func (t *TaskComplete) Parameters() []Param {
	return []Param{
		{Name: "task_id", Type: "string", Description: "Identificador de la tarea", Required: true},
	}
}

func (t *TaskComplete) Execute(ctx context.Context, args map[string]any) map[string]any {
	id, ok := stringArg(args, "task_id")
	if !ok {
		return fail("falta el argumento requerido: task_id")
	}

	done, err := t.Store.CompleteTask(ctx, id, OwnerFrom(ctx))
	if err != nil {
		return fail("error ejecutando task_complete: %v", err)
	}
	if !done {
		return fail("no se encontró una tarea pendiente con id %s", id)
	}
	return map[string]any{
		"success": true,
		"message": "Tarea completada",
	}
}

// calcursePriority maps store priorities onto calcurse's 1 (highest) to
// 9 (lowest) scale.
func calcursePriority(p string) int {
	switch p {
	case store.PriorityUrgent:
		return 1
	case store.PriorityHigh:
		return 3
	case store.PriorityMedium:
		return 5
	case store.PriorityLow:
		return 7
	}
	return 0
}

// parseWhen accepts RFC 3339 timestamps, with or without offset, and a
// bare date.
func parseWhen(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
