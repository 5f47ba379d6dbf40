package telegram

import (
	"context"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"sparky/internal/app"
	"sparky/internal/auth"
	"sparky/internal/chat"
	"sparky/internal/project"
	"sparky/internal/storage"
)

const outboxSize = 64

// Bot is the Telegram front end: every chat gets its own Sparky session.
type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	authSvc     *auth.Service
	sessions    *app.Manager
	recorder    storage.Recorder
	adminUserID int64
	logger      *zap.Logger

	mu       sync.Mutex
	attached map[string]bool
	outbox   chan outgoing
}

func New(botToken string, authSvc *auth.Service, sessions *app.Manager, recorder storage.Recorder, adminUserID int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, authSvc, sessions, recorder, adminUserID, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, authSvc *auth.Service, sessions *app.Manager, recorder storage.Recorder, adminUserID int64, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = storage.Nop{}
	}
	return &Bot{
		s:           s,
		authSvc:     authSvc,
		sessions:    sessions,
		recorder:    recorder,
		adminUserID: adminUserID,
		logger:      logger,
		attached:    make(map[string]bool),
		outbox:      make(chan outgoing, outboxSize),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	go b.runOutbox(ctx)

	b.logger.Info("🤖 Telegram bot started", zap.String("username", b.api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) runOutbox(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-b.outbox:
			b.sendMessage(out.chatID, out.text)
		}
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	b.authSvc.Seen(msg.From.ID, msg.From.UserName)
	if !b.authSvc.IsAllowed(msg.From.ID) {
		b.logger.Warn("Unauthorized access attempt", zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))
		b.sendMessage(msg.Chat.ID, "⛔ Access denied. Ask the administrator to add your ID: "+strconv.FormatInt(msg.From.ID, 10))
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	ctrl, err := b.session(ctx, msg.Chat.ID)
	if err != nil {
		b.logger.Error("❌ Failed to open session", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong.")
		return
	}
	b.logger.Debug("Incoming message", zap.Int64("user_id", msg.From.ID), zap.String("text", msg.Text))
	ctrl.Send(msg.Text)
}

// session returns the chat's controller. A new one greets the chat and is
// wired so that replies and finished builds are pushed back.
func (b *Bot) session(ctx context.Context, chatID int64) (*app.Controller, error) {
	id := strconv.FormatInt(chatID, 10)
	ctrl, err := b.sessions.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	fresh := !b.attached[id]
	b.attached[id] = true
	b.mu.Unlock()
	if !fresh {
		return ctrl, nil
	}

	ctrl.Subscribe(func(ev app.Event) {
		switch ev.Kind {
		case app.EventMessage:
			if ev.Message.Type == chat.TypeAssistant {
				b.enqueue(chatID, ev.Message.Content)
			}
		case app.EventProjectUpdated:
			if ev.Project.Status == project.StatusCompleted {
				b.enqueue(chatID, "✅ "+ev.Project.Name+" is ready. Send /files to browse it.")
			}
		}
	})
	if greeting, ok := firstMessage(ctrl); ok {
		b.sendMessage(chatID, greeting)
	}
	return ctrl, nil
}

func firstMessage(ctrl *app.Controller) (string, bool) {
	msgs := ctrl.Messages()
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0].Content, true
}

// enqueue must not block: it runs on session timers.
func (b *Bot) enqueue(chatID int64, text string) {
	select {
	case b.outbox <- outgoing{chatID: chatID, text: text}:
	default:
		b.logger.Warn("⚠️ Outbox full, dropping message", zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) forget(chatID int64) {
	id := strconv.FormatInt(chatID, 10)
	b.mu.Lock()
	delete(b.attached, id)
	b.mu.Unlock()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
