package alarm

import (
	"context"
	"testing"

	"github.com/mvidela/mayordomo/internal/notify"
)

type recordNotifier struct {
	sent []notify.Notification
	ok   bool
}

func (c *recordNotifier) Send(_ context.Context, n notify.Notification) bool {
	c.sent = append(c.sent, n)
	return c.ok
}

func TestTriggerPersistent(t *testing.T) {
	rec := &recordNotifier{ok: true}
	d := NewDesktop(rec, nil)

	ok := d.Trigger(context.Background(), Alarm{
		Title:      "Despertar",
		Message:    "son las 7",
		Sound:      SoundBell,
		Persistent: true,
	})
	if !ok {
		t.Fatal("expected delivered alarm")
	}
	if len(rec.sent) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rec.sent))
	}

	n := rec.sent[0]
	if n.Priority != notify.PriorityCritical {
		t.Errorf("priority = %q, want critical", n.Priority)
	}
	if n.TimeoutMS != 0 {
		t.Errorf("persistent alarm TimeoutMS = %d, want 0", n.TimeoutMS)
	}
	if n.Title != "⏰ Despertar" {
		t.Errorf("title = %q", n.Title)
	}
}

func TestTriggerNonPersistentTimesOut(t *testing.T) {
	rec := &recordNotifier{ok: true}
	d := NewDesktop(rec, nil)

	d.Trigger(context.Background(), Alarm{Title: "Aviso", Message: "x", Sound: SoundGentle})

	if rec.sent[0].TimeoutMS == 0 {
		t.Error("non-persistent alarm should carry a finite timeout")
	}
}

func TestTriggerReportsNotifierFailure(t *testing.T) {
	rec := &recordNotifier{ok: false}
	d := NewDesktop(rec, nil)

	if d.Trigger(context.Background(), Alarm{Title: "Fallo", Message: "x"}) {
		t.Error("expected false when the notifier fails")
	}
}
