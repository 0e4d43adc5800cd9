// Package alarm triggers persistent alarms: a critical desktop
// notification plus an audible sound loop.
package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mvidela/mayordomo/internal/notify"
)

// Sound names accepted by the trigger_alarm action.
const (
	SoundAlarm  = "alarm"
	SoundBell   = "bell"
	SoundGentle = "gentle"
	SoundBeep   = "beep"
)

// soundFiles maps sound names to freedesktop theme files.
var soundFiles = map[string]string{
	SoundAlarm:  "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga",
	SoundBell:   "/usr/share/sounds/freedesktop/stereo/complete.oga",
	SoundGentle: "/usr/share/sounds/freedesktop/stereo/message.oga",
	SoundBeep:   "/usr/share/sounds/freedesktop/stereo/bell.oga",
}

// Alarmer raises an alarm with sound. Returns whether the visible part
// of the alarm was delivered.
type Alarmer interface {
	Trigger(ctx context.Context, a Alarm) bool
}

// Alarm describes one alarm event.
type Alarm struct {
	Title      string
	Message    string
	Sound      string // alarm, bell, gentle, beep
	Repeat     int    // times to play the sound, minimum 1
	Persistent bool   // notification stays until dismissed
}

// Desktop plays alarms through the desktop notifier and local audio
// players, trying paplay then mpv then the terminal bell.
type Desktop struct {
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewDesktop wires an alarmer over the given notifier.
func NewDesktop(notifier notify.Notifier, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Desktop{notifier: notifier, logger: logger}
}

// Trigger shows the alarm notification and plays its sound in the
// background. The notification result is the delivery verdict; sound is
// best effort.
func (d *Desktop) Trigger(ctx context.Context, a Alarm) bool {
	timeout := 30000
	if a.Persistent {
		timeout = 0
	}
	delivered := d.notifier.Send(ctx, notify.Notification{
		Title:     "⏰ " + a.Title,
		Message:   a.Message,
		Priority:  notify.PriorityCritical,
		TimeoutMS: timeout,
		Icon:      "alarm-clock",
	})

	repeat := a.Repeat
	if repeat < 1 {
		repeat = 1
	}
	go d.playSound(ctx, a.Sound, repeat)

	d.logger.Info("alarm triggered", "title", a.Title, "sound", a.Sound, "delivered", delivered)
	return delivered
}

func (d *Desktop) playSound(ctx context.Context, sound string, repeat int) {
	file, ok := soundFiles[sound]
	if !ok {
		file = soundFiles[SoundAlarm]
	}

	for i := 0; i < repeat; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := d.playOnce(ctx, file); err != nil {
			d.logger.Debug("alarm sound fallback to terminal bell", "error", err)
			fmt.Fprint(os.Stdout, "\a")
			time.Sleep(time.Second)
			continue
		}
	}
}

func (d *Desktop) playOnce(ctx context.Context, file string) error {
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("sound file: %w", err)
	}
	if err := exec.CommandContext(ctx, "paplay", file).Run(); err == nil {
		return nil
	}
	return exec.CommandContext(ctx, "mpv", "--no-terminal", "--volume=80", file).Run()
}
