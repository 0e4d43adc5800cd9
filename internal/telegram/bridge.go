package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mvidela/mayordomo/internal/memory"
	"github.com/mvidela/mayordomo/internal/store"
)

// API is the slice of the Bot API the bridge consumes. Satisfied by
// *Client; faked in tests.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// AgentRunner handles one conversational turn.
type AgentRunner interface {
	Process(ctx context.Context, userID, message string) string
}

// Bridge polls Telegram and routes messages: slash commands are served
// directly, everything else goes through the agent loop.
type Bridge struct {
	api     API
	runner  AgentRunner
	store   store.Store
	history memory.ConversationStore
	stats   func() map[string]any
	allowed map[int64]bool
	pollSec int
	logger  *slog.Logger
}

// BridgeConfig wires a Bridge.
type BridgeConfig struct {
	API            API
	Runner         AgentRunner
	Store          store.Store
	History        memory.ConversationStore
	SchedulerStats func() map[string]any
	AllowedUserIDs []int64
	PollTimeoutSec int
	Logger         *slog.Logger
}

// NewBridge builds the bridge. An empty allow list rejects everyone.
func NewBridge(cfg BridgeConfig) *Bridge {
	allowed := make(map[int64]bool, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		allowed[id] = true
	}
	pollSec := cfg.PollTimeoutSec
	if pollSec <= 0 {
		pollSec = 30
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		api:     cfg.API,
		runner:  cfg.Runner,
		store:   cfg.Store,
		history: cfg.History,
		stats:   cfg.SchedulerStats,
		allowed: allowed,
		pollSec: pollSec,
		logger:  logger,
	}
}

// Run polls until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("telegram bridge started", "allowed_users", len(b.allowed))

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("getUpdates failed, backing off", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.handleUpdate(ctx, u)
		}
	}
}

func (b *Bridge) handleUpdate(ctx context.Context, u Update) {
	if u.Message == nil || u.Message.Text == "" || u.Message.From == nil {
		return
	}
	msg := u.Message
	if !b.allowed[msg.From.ID] {
		b.logger.Warn("message from unauthorized user", "user_id", msg.From.ID)
		return
	}

	reply := b.dispatch(ctx, msg)
	if reply == "" {
		return
	}
	if err := b.api.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		b.logger.Error("sendMessage failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bridge) dispatch(ctx context.Context, msg *Message) string {
	userID := fmt.Sprintf("tg:%d", msg.Chat.ID)
	text := strings.TrimSpace(msg.Text)

	cmd, _, _ := strings.Cut(text, " ")
	switch cmd {
	case "/start":
		return fmt.Sprintf("Hola %s, soy tu asistente. Escribime en lenguaje natural o usá /help para ver los comandos.", msg.From.FirstName)
	case "/help":
		return "Comandos:\n" +
			"/agenda — eventos de hoy\n" +
			"/tareas — tareas pendientes\n" +
			"/clear — borrar el historial de conversación\n" +
			"/stats — estado interno\n\n" +
			"Todo lo demás lo interpreto como un pedido en lenguaje natural."
	case "/agenda":
		return b.agendaReply(ctx, userID)
	case "/tareas":
		return b.tasksReply(ctx, userID)
	case "/clear":
		b.history.Clear(userID)
		return "Historial borrado."
	case "/stats":
		return b.statsReply()
	}

	return b.runner.Process(ctx, userID, text)
}

func (b *Bridge) agendaReply(ctx context.Context, userID string) string {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := b.store.ListEvents(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		b.logger.Error("agenda query failed", "error", err)
		return "No pude consultar la agenda."
	}
	if len(events) == 0 {
		return "Sin eventos para hoy."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 %d evento(s) hoy:\n", len(events))
	for _, e := range events {
		fmt.Fprintf(&sb, "• %s %s\n", e.StartTime.Format("15:04"), e.Title)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bridge) tasksReply(ctx context.Context, userID string) string {
	tasks, err := b.store.ListTasks(ctx, userID, store.FilterPending, 20)
	if err != nil {
		b.logger.Error("tasks query failed", "error", err)
		return "No pude consultar las tareas."
	}
	if len(tasks) == 0 {
		return "No tenés tareas pendientes."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 %d tarea(s) pendiente(s):\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&sb, "• [%s] %s\n", t.Priority, t.Title)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bridge) statsReply() string {
	var sb strings.Builder
	sb.WriteString("Estado:\n")
	if b.stats != nil {
		for k, v := range b.stats() {
			fmt.Fprintf(&sb, "• scheduler %s: %v\n", k, v)
		}
	}
	for k, v := range b.history.Stats() {
		fmt.Fprintf(&sb, "• memoria %s: %v\n", k, v)
	}
	return strings.TrimRight(sb.String(), "\n")
}
