// Package notify sends desktop notifications through notify-send.
package notify

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
)

// Priority levels map onto notify-send urgency values.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityCritical = "critical"
)

// Notifier delivers a desktop notification. Implementations report
// delivery success so callers can fall back to another channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) bool
}

// Notification describes one desktop notification.
type Notification struct {
	Title     string
	Message   string
	Priority  string // low, normal, critical
	TimeoutMS int    // 0 means persistent until dismissed
	Icon      string
}

// Desktop shells out to notify-send. The zero value is usable; AppName
// defaults to "Mayordomo".
type Desktop struct {
	AppName string
	Logger  *slog.Logger
}

// NewDesktop returns a Desktop notifier with the given application name.
func NewDesktop(appName string, logger *slog.Logger) *Desktop {
	if appName == "" {
		appName = "Mayordomo"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Desktop{AppName: appName, Logger: logger}
}

// Send shows the notification. Returns false when notify-send is
// missing or exits nonzero; the assistant keeps working either way.
func (d *Desktop) Send(ctx context.Context, n Notification) bool {
	args := d.args(n)
	cmd := exec.CommandContext(ctx, "notify-send", args...)
	if err := cmd.Run(); err != nil {
		d.Logger.Warn("notify-send failed", "title", n.Title, "error", err)
		return false
	}
	d.Logger.Debug("notification sent", "title", n.Title, "priority", n.Priority)
	return true
}

// args builds the notify-send argument list. Split out so the flag
// mapping is testable without a desktop session.
func (d *Desktop) args(n Notification) []string {
	urgency := n.Priority
	switch urgency {
	case PriorityLow, PriorityNormal, PriorityCritical:
	default:
		urgency = PriorityNormal
	}

	appName := d.AppName
	if appName == "" {
		appName = "Mayordomo"
	}

	args := []string{
		"--app-name=" + appName,
		"--urgency=" + urgency,
	}
	if n.TimeoutMS >= 0 {
		args = append(args, "--expire-time="+strconv.Itoa(n.TimeoutMS))
	}
	if n.Icon != "" {
		args = append(args, "--icon="+n.Icon)
	}
	return append(args, n.Title, n.Message)
}
