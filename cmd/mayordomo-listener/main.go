// Mayordomo-listener is the desktop-side reminder consumer.
//
// It polls the configured store (typically the shared Postgres one, so
// the agent can run on another machine) for due reminders and executes
// them locally: desktop notifications and alarms. Run it on the machine
// that should show the notifications.
//
// Usage:
//
//	mayordomo-listener [-config <path>] [-owner <id>] [-interval <dur>]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mvidela/mayordomo/internal/alarm"
	"github.com/mvidela/mayordomo/internal/buildinfo"
	"github.com/mvidela/mayordomo/internal/config"
	"github.com/mvidela/mayordomo/internal/listener"
	"github.com/mvidela/mayordomo/internal/notify"
	"github.com/mvidela/mayordomo/internal/store"
)

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer, args []string) error {
	var configPath string
	owner := "cli:local"
	interval := 30 * time.Second

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-owner" && i+1 < len(args):
			owner = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-owner="):
			owner = strings.TrimPrefix(args[i], "-owner=")
		case args[i] == "-interval" && i+1 < len(args):
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return fmt.Errorf("invalid interval: %q", args[i+1])
			}
			interval = d
			i++
		case args[i] == "-version":
			fmt.Fprintln(stdout, buildinfo.String())
			return nil
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			fmt.Fprintln(stdout, "Usage: mayordomo-listener [-config <path>] [-owner <id>] [-interval <dur>]")
			return nil
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stdout, "invalid log level %q, using info\n", cfg.LogLevel)
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	logger.Info("starting", "version", buildinfo.String(), "config", cfgPath)

	var st store.Store
	switch cfg.Database.Driver {
	case "", "sqlite":
		st, err = store.NewSQLite(ctx, cfg.Database.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Database.URL)
	default:
		return fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	notifier := notify.NewDesktop(cfg.Notifications.AppName, logger)
	alarmer := alarm.NewDesktop(notifier, logger)

	l := listener.New(st, notifier, alarmer, owner, interval, logger)
	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("listener: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
