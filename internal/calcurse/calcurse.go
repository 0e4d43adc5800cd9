// Package calcurse mirrors events and tasks into a local calcurse
// calendar through its import and report interfaces.
package calcurse

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// icalTimestamp is the UTC-less local format calcurse imports.
const icalTimestamp = "20060102T150405"

// runner executes the calcurse binary. Swapped out in tests.
type runner interface {
	run(ctx context.Context, stdin string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "calcurse", args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// Client drives a local calcurse installation.
type Client struct {
	runner runner
	logger *slog.Logger
}

// New returns a calcurse client.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{runner: execRunner{}, logger: logger}
}

// SaveEvent imports a timed appointment.
func (c *Client) SaveEvent(ctx context.Context, title, description string, start, end time.Time) error {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//Mayordomo//ES\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "DTSTART:%s\r\n", start.Format(icalTimestamp))
	fmt.Fprintf(&b, "DTEND:%s\r\n", end.Format(icalTimestamp))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeText(title))
	if description != "" {
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escapeText(description))
	}
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")

	out, err := c.runner.run(ctx, b.String(), "-i", "-", "-q")
	if err != nil {
		return fmt.Errorf("calcurse import event: %w (%s)", err, strings.TrimSpace(out))
	}
	c.logger.Debug("event saved to calcurse", "title", title)
	return nil
}

// SaveTask imports a todo item. Priority runs 0 (none) to 9 (lowest);
// calcurse treats 1 as most urgent.
func (c *Client) SaveTask(ctx context.Context, title string, priority int) error {
	if priority < 0 {
		priority = 0
	}
	if priority > 9 {
		priority = 9
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//Mayordomo//ES\r\n")
	b.WriteString("BEGIN:VTODO\r\n")
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeText(title))
	if priority > 0 {
		fmt.Fprintf(&b, "PRIORITY:%d\r\n", priority)
	}
	b.WriteString("END:VTODO\r\n")
	b.WriteString("END:VCALENDAR\r\n")

	out, err := c.runner.run(ctx, b.String(), "-i", "-", "-q")
	if err != nil {
		return fmt.Errorf("calcurse import task: %w (%s)", err, strings.TrimSpace(out))
	}
	c.logger.Debug("task saved to calcurse", "title", title)
	return nil
}

// Agenda is the parsed output of a calcurse range report.
type Agenda struct {
	Events    []string
	Tasks     []string
	RawOutput string
}

// GetAgenda reports the next days of appointments plus the todo list.
func (c *Client) GetAgenda(ctx context.Context, days int) (*Agenda, error) {
	if days < 1 {
		days = 1
	}
	out, err := c.runner.run(ctx, "", "-r"+fmt.Sprint(days), "-t")
	if err != nil {
		return nil, fmt.Errorf("calcurse report: %w", err)
	}
	return parseAgenda(out), nil
}

// parseAgenda splits calcurse report output into appointment and todo
// lines. Date headers start at column zero; entries are indented.
func parseAgenda(out string) *Agenda {
	a := &Agenda{RawOutput: out}
	inTodo := false

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "to do:") {
			inTodo = true
			continue
		}
		// Unindented lines are date headers in the appointment section.
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") && !inTodo {
			continue
		}
		if inTodo {
			a.Tasks = append(a.Tasks, trimmed)
		} else {
			a.Events = append(a.Events, trimmed)
		}
	}
	return a
}

// escapeText applies iCalendar TEXT escaping.
func escapeText(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}
