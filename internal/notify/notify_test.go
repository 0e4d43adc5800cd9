package notify

import (
	"slices"
	"testing"
)

func TestArgsMapping(t *testing.T) {
	d := NewDesktop("Mayordomo", nil)

	args := d.args(Notification{
		Title:     "Recordatorio",
		Message:   "llamar al médico",
		Priority:  PriorityCritical,
		TimeoutMS: 10000,
		Icon:      "appointment-soon",
	})

	want := []string{
		"--app-name=Mayordomo",
		"--urgency=critical",
		"--expire-time=10000",
		"--icon=appointment-soon",
		"Recordatorio",
		"llamar al médico",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestArgsPersistentAndDefaults(t *testing.T) {
	d := NewDesktop("", nil)

	args := d.args(Notification{Title: "Alarma", Message: "ahora", Priority: "loud"})

	if !slices.Contains(args, "--urgency=normal") {
		t.Errorf("unknown priority should fall back to normal: %v", args)
	}
	if !slices.Contains(args, "--expire-time=0") {
		t.Errorf("zero timeout should mean persistent: %v", args)
	}
	if !slices.Contains(args, "--app-name=Mayordomo") {
		t.Errorf("empty app name should default: %v", args)
	}
}
