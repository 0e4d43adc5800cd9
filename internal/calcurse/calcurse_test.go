package calcurse

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	stdin string
	args  []string
	out   string
	err   error
}

func (f *fakeRunner) run(_ context.Context, stdin string, args ...string) (string, error) {
	f.stdin = stdin
	f.args = args
	return f.out, f.err
}

func TestSaveEventBuildsVEVENT(t *testing.T) {
	fr := &fakeRunner{}
	c := &Client{runner: fr, logger: discard()}

	start := time.Date(2026, 9, 2, 15, 30, 0, 0, time.Local)
	err := c.SaveEvent(context.Background(), "Dentista, control", "revisión anual", start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}

	for _, want := range []string{
		"BEGIN:VEVENT",
		"DTSTART:20260902T153000",
		"DTEND:20260902T163000",
		"SUMMARY:Dentista\\, control",
		"DESCRIPTION:revisión anual",
	} {
		if !strings.Contains(fr.stdin, want) {
			t.Errorf("import payload missing %q:\n%s", want, fr.stdin)
		}
	}
	if len(fr.args) == 0 || fr.args[0] != "-i" {
		t.Errorf("args = %v, want import mode", fr.args)
	}
}

func TestSaveTaskClampsPriority(t *testing.T) {
	fr := &fakeRunner{}
	c := &Client{runner: fr, logger: discard()}

	if err := c.SaveTask(context.Background(), "pagar luz", 42); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	if !strings.Contains(fr.stdin, "PRIORITY:9") {
		t.Errorf("priority should clamp to 9:\n%s", fr.stdin)
	}
	if !strings.Contains(fr.stdin, "BEGIN:VTODO") {
		t.Errorf("payload missing VTODO:\n%s", fr.stdin)
	}
}

func TestParseAgenda(t *testing.T) {
	out := "09/02/26:\n" +
		" - 15:30 -> 16:30\n" +
		"\tDentista\n" +
		"09/03/26:\n" +
		" - 09:00 -> 10:00\n" +
		"\tReunión equipo\n" +
		"to do:\n" +
		" 2. pagar luz\n" +
		" 5. comprar pan\n"

	a := parseAgenda(out)

	if len(a.Events) != 4 {
		t.Errorf("got %d event lines, want 4: %v", len(a.Events), a.Events)
	}
	if len(a.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2: %v", len(a.Tasks), a.Tasks)
	}
	if a.Tasks[0] != "2. pagar luz" {
		t.Errorf("first task = %q", a.Tasks[0])
	}
	if a.RawOutput != out {
		t.Error("raw output should be preserved")
	}
}

func TestGetAgendaClampsDays(t *testing.T) {
	fr := &fakeRunner{out: "to do:\n 1. algo\n"}
	c := &Client{runner: fr, logger: discard()}

	if _, err := c.GetAgenda(context.Background(), 0); err != nil {
		t.Fatalf("GetAgenda: %v", err)
	}
	if fr.args[0] != "-r1" {
		t.Errorf("args = %v, want -r1 for clamped days", fr.args)
	}
}
