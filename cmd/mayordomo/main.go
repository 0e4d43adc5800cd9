// Mayordomo is a personal assistant agent.
//
// It takes natural-language requests — from an interactive terminal
// chat or a Telegram bot — and acts on them through a fixed set of
// tools: tasks, calendar events, reminders, alarms and desktop
// notifications. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	mayordomo chat           Interactive chat in the terminal
//	mayordomo serve          Run the Telegram bot and the scheduler
//	mayordomo ask <texto>    One-shot question (for testing)
//	mayordomo agenda [días]  Print the agenda without invoking a model
//	mayordomo version        Print version and build information
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mvidela/mayordomo/internal/agent"
	"github.com/mvidela/mayordomo/internal/alarm"
	"github.com/mvidela/mayordomo/internal/buildinfo"
	"github.com/mvidela/mayordomo/internal/calcurse"
	"github.com/mvidela/mayordomo/internal/config"
	"github.com/mvidela/mayordomo/internal/llm"
	"github.com/mvidela/mayordomo/internal/memory"
	"github.com/mvidela/mayordomo/internal/notify"
	"github.com/mvidela/mayordomo/internal/scheduler"
	"github.com/mvidela/mayordomo/internal/store"
	"github.com/mvidela/mayordomo/internal/telegram"
	"github.com/mvidela/mayordomo/internal/tools"
)

// localOwner identifies the terminal user in the store and scheduler.
const localOwner = "cli:local"

// main constructs the OS-level environment and delegates to [run] so
// the full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments by hand — the argument surface is small enough
// that manual parsing is clearer than bringing in a CLI framework, and
// it keeps package-level flag state out of tests.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "chat":
		return runChat(ctx, stdout, stderr, configPath)
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: mayordomo ask <texto>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "agenda":
		days := 1
		if len(cmdArgs) > 0 {
			n, err := strconv.Atoi(cmdArgs[0])
			if err != nil || n < 1 {
				return fmt.Errorf("usage: mayordomo agenda [días]")
			}
			days = n
		}
		return runAgenda(ctx, stdout, configPath, days)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Mayordomo - Asistente personal")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: mayordomo [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  chat           Interactive chat in the terminal")
	fmt.Fprintln(w, "  serve          Run the Telegram bot and the reminder scheduler")
	fmt.Fprintln(w, "  init [dir]     Write a default mayordomo.yaml (default: .)")
	fmt.Fprintln(w, "  ask <texto>    One-shot question (for testing)")
	fmt.Fprintln(w, "  agenda [días]  Print the agenda without invoking a model")
	fmt.Fprintln(w, "  version        Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./mayordomo.yaml, ~/.config/mayordomo/config.yaml, /etc/mayordomo/config.yaml")
	return nil
}

func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// runInit writes a starter config into dir, refusing to overwrite.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "mayordomo.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	starter := `# Mayordomo configuration
agent:
  name: Mayordomo
  language: es
  model: deepseek/deepseek-chat
  temperature: 0.7
  max_context_messages: 20

llm:
  # base_url defaults to OpenRouter
  api_key: ${OPENROUTER_API_KEY}

database:
  driver: sqlite
  path: data/mayordomo.db
  # driver: postgres
  # url: ${MAYORDOMO_DATABASE_URL}

telegram:
  token: ${TELEGRAM_BOT_TOKEN}
  allowed_user_ids: []

notifications:
  app_name: Mayordomo
  sound: true

log_level: info
`
	if err := os.WriteFile(path, []byte(starter), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}

// deps is the assembled application: every collaborator the front ends
// need, plus the handle to shut storage down.
type deps struct {
	cfg       *config.Config
	store     store.Store
	history   *memory.Store
	notifier  *notify.Desktop
	alarmer   *alarm.Desktop
	calendar  *calcurse.Client
	scheduler *scheduler.Scheduler
	registry  *tools.Registry
	loop      *agent.Loop
}

func (d *deps) close() {
	if d.store != nil {
		d.store.Close()
	}
}

// buildDeps is the composition root shared by every subcommand that
// needs the agent.
func buildDeps(ctx context.Context, logger *slog.Logger, configPath, owner string) (*deps, error) {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.Info("config loaded", "path", cfgPath)

	var st store.Store
	switch cfg.Database.Driver {
	case "", "sqlite":
		st, err = store.NewSQLite(ctx, cfg.Database.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store ready", "driver", cfg.Database.Driver)

	notifier := notify.NewDesktop(cfg.Notifications.AppName, logger)
	alarmer := alarm.NewDesktop(notifier, logger)
	calendar := calcurse.New(logger)
	sched := scheduler.New(st, notifier, alarmer, owner, logger)

	registry := tools.NewRegistry(logger)
	registry.Register(&tools.TaskCreate{Store: st, Calendar: calendar})
	registry.Register(&tools.TaskList{Store: st})
	registry.Register(&tools.TaskComplete{Store: st})
	registry.Register(&tools.CalendarCreateEvent{Store: st, Calendar: calendar})
	registry.Register(&tools.CalendarGetAgenda{Store: st, Calendar: calendar})
	registry.Register(&tools.NotificationSend{Notifier: notifier})
	registry.Register(&tools.ReminderCreate{Scheduler: sched})
	registry.Register(&tools.ReminderList{Store: st})
	registry.Register(&tools.ReminderCancel{Scheduler: sched})
	registry.Register(&tools.AlarmCreate{Scheduler: sched})

	client := llm.NewOpenRouterClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.Agent.Temperature, logger)
	history := memory.NewStore(cfg.Agent.MaxContextMessages)
	loop := agent.New(cfg, client, registry, history, logger)

	return &deps{
		cfg:       cfg,
		store:     st,
		history:   history,
		notifier:  notifier,
		alarmer:   alarmer,
		calendar:  calendar,
		scheduler: sched,
		registry:  registry,
		loop:      loop,
	}, nil
}

// runAsk boots the agent, processes one question, and exits. The
// scheduler never starts: a one-shot has no timers to keep.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	d, err := buildDeps(ctx, logger, configPath, localOwner)
	if err != nil {
		return err
	}
	defer d.close()

	fmt.Fprintln(stdout, d.loop.Process(ctx, localOwner, strings.Join(args, " ")))
	return nil
}

// runAgenda prints the stored agenda directly, without the model.
func runAgenda(ctx context.Context, stdout io.Writer, configPath string, days int) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	d, err := buildDeps(ctx, logger, configPath, localOwner)
	if err != nil {
		return err
	}
	defer d.close()

	fmt.Fprint(stdout, agendaText(ctx, d.store, localOwner, days))
	return nil
}

// agendaText renders the next days of events plus pending tasks.
func agendaText(ctx context.Context, st store.Store, owner string, days int) string {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var sb strings.Builder
	events, err := st.ListEvents(ctx, owner, dayStart, dayStart.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		return fmt.Sprintf("error consultando eventos: %v\n", err)
	}
	if len(events) == 0 {
		fmt.Fprintf(&sb, "Sin eventos en los próximos %d día(s).\n", days)
	} else {
		fmt.Fprintf(&sb, "Eventos (%d):\n", len(events))
		for _, e := range events {
			fmt.Fprintf(&sb, "  %s  %s\n", e.StartTime.Format("02/01 15:04"), e.Title)
		}
	}

	tasks, err := st.ListTasks(ctx, owner, store.FilterPending, 20)
	if err != nil {
		return sb.String()
	}
	if len(tasks) > 0 {
		fmt.Fprintf(&sb, "Tareas pendientes (%d):\n", len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(&sb, "  [%s] %s\n", t.Priority, t.Title)
		}
	}
	return sb.String()
}

// runServe runs the Telegram bridge and the scheduler until SIGINT or
// SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger level comes from config, so load config first with a
	// bootstrap logger.
	boot := newLogger(stdout, slog.LevelInfo, "text")
	d, err := buildDeps(ctx, boot, configPath, localOwner)
	if err != nil {
		return err
	}
	defer d.close()

	level, err := config.ParseLogLevel(d.cfg.LogLevel)
	if err != nil {
		boot.Warn("invalid log level, using info", "error", err)
	}
	logger := newLogger(stdout, level, "text")
	logger.Info("starting", "version", buildinfo.String())

	if err := d.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer d.scheduler.Stop()

	if d.cfg.Telegram.Token == "" {
		logger.Warn("no telegram token configured, running scheduler only")
		<-ctx.Done()
		return nil
	}

	bridge := telegram.NewBridge(telegram.BridgeConfig{
		API:            telegram.NewClient(d.cfg.Telegram.Token),
		Runner:         d.loop,
		Store:          d.store,
		History:        d.history,
		SchedulerStats: d.scheduler.Stats,
		AllowedUserIDs: d.cfg.Telegram.AllowedUserIDs,
		PollTimeoutSec: d.cfg.Telegram.PollTimeoutSec,
		Logger:         logger,
	})

	if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("telegram bridge: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	replyStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			PaddingLeft(2)
	noticeStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

// runChat is the interactive terminal front end.
func runChat(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(stderr, slog.LevelWarn, "text")
	d, err := buildDeps(ctx, logger, configPath, localOwner)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer d.scheduler.Stop()

	fmt.Fprintln(stdout, noticeStyle.Render(
		fmt.Sprintf("%s listo. Escribí tu pedido, /help para los comandos, /exit para salir.", d.cfg.Agent.Name)))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(stdout, promptStyle.Render("tú> ")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch cmd, rest, _ := strings.Cut(line, " "); cmd {
		case "/exit", "/quit":
			fmt.Fprintln(stdout, noticeStyle.Render("Hasta luego."))
			return nil
		case "/help":
			fmt.Fprintln(stdout, replyStyle.Render(
				"/agenda [días]  agenda directa, sin modelo\n"+
					"/tareas         tareas pendientes\n"+
					"/clear          borrar historial de conversación\n"+
					"/exit           salir"))
			continue
		case "/agenda":
			days := 1
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
				days = n
			}
			fmt.Fprintln(stdout, replyStyle.Render(strings.TrimRight(
				agendaText(ctx, d.store, localOwner, days), "\n")))
			continue
		case "/tareas":
			res := d.registry.Execute(tools.WithOwner(ctx, localOwner), "task_list", map[string]any{})
			fmt.Fprintln(stdout, replyStyle.Render(fmt.Sprintf("%v", res["message"])))
			continue
		case "/clear":
			d.history.Clear(localOwner)
			fmt.Fprintln(stdout, noticeStyle.Render("Historial borrado."))
			continue
		}

		reply := d.loop.Process(ctx, localOwner, line)
		fmt.Fprintln(stdout, replyStyle.Render(reply))

		if ctx.Err() != nil {
			return nil
		}
	}
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}
