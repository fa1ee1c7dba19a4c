// Package bot — Telegram-адаптер: получает апдейты, фильтрует чаты,
// разбирает команды и раздаёт их обработчикам фич через Router.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/filters"
	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/middleware"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/members"
)

// Members — регистрация участников по входящим сообщениям.
type Members interface {
	EnsureMember(ctx context.Context, p members.Profile) error
}

// NewMembers — обработчик вступления в чат.
type NewMembers interface {
	HandleNewChatMembers(ctx context.Context, profiles []members.Profile)
}

// Options — зависимости бота.
type Options struct {
	API           *tgbotapi.BotAPI
	Sender        gateway.Sender
	Router        *Router
	Filter        *filters.ChatFilter
	RateLimiter   *middleware.RateLimiter
	Members       Members
	NewMembers    NewMembers
	EconomyChatID int64
	MaxInflight   int
	UpdateTimeout int
}

// Bot — главная структура адаптера.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender gateway.Sender
	router *Router
	parser *CommandParser

	filter      *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	members       Members
	newMembers    NewMembers
	economyChatID int64
	updateTimeout int

	// ограничивает число параллельно обрабатываемых апдейтов
	inflight chan struct{}
}

// New собирает бота и добавляет в таблицу команды start/help.
func New(opts Options) (*Bot, error) {
	maxInFlight := opts.MaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	b := &Bot{
		api:           opts.API,
		sender:        opts.Sender,
		router:        opts.Router,
		parser:        NewCommandParser(),
		filter:        opts.Filter,
		rateLimiter:   opts.RateLimiter,
		members:       opts.Members,
		newMembers:    opts.NewMembers,
		economyChatID: opts.EconomyChatID,
		updateTimeout: opts.UpdateTimeout,
		inflight:      make(chan struct{}, maxInFlight),
	}

	if err := b.router.Handle(gateway.Route{Names: []string{"help", "start", "помощь"}, Handle: b.handleHelp}); err != nil {
		return nil, err
	}
	return b, nil
}

// Start запускает long polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.updateTimeout

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.updateTimeout,
		"username":     b.api.Self.UserName,
	}).Info("Бот запущен и ожидает сообщений...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот завершает работу")
				return
			}

			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает один апдейт Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(log.Fields{"update_id": update.UpdateID})

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}

	if len(message.NewChatMembers) > 0 {
		if b.economyChatID == 0 || message.Chat.ID == b.economyChatID {
			b.newMembers.HandleNewChatMembers(ctx, profiles(message.NewChatMembers))
		}
		return
	}

	if message.Text == "" || message.From == nil || message.From.IsBot {
		return
	}

	parsed, ok := b.parser.ParseCommand(message.Text)
	if !ok {
		return
	}

	if !b.filter.CheckAccess(ctx, message) {
		return
	}

	userID := message.From.ID
	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	if err := b.members.EnsureMember(ctx, profile(message.From)); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureMember failed")
	}

	cmd := commandFrom(message, parsed)
	middleware.LogCommand(cmd)
	b.router.Dispatch(ctx, cmd)
}

// handleCallback обрабатывает нажатие инлайн-кнопки.
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}

	cb := gateway.Callback{
		ID:        q.ID,
		ChatID:    q.Message.Chat.ID,
		UserID:    q.From.ID,
		MessageID: q.Message.MessageID,
		Data:      q.Data,
	}
	middleware.LogCallback(cb)

	if !b.rateLimiter.Allow(cb.UserID) {
		_ = b.sender.Answer(ctx, cb.ID, "Слишком часто, подождите немного", false)
		return
	}

	if !b.router.DispatchCallback(ctx, cb) {
		log.WithField("data", cb.Data).Debug("кнопка без обработчика")
		_ = b.sender.Answer(ctx, cb.ID, "", false)
	}
}

func (b *Bot) handleHelp(ctx context.Context, cmd gateway.Command) {
	var sb strings.Builder
	sb.WriteString("🏪 Экономический бот. Команды начинаются с ! . или /\n\n")
	for _, name := range b.router.Names() {
		fmt.Fprintf(&sb, "!%s\n", name)
	}
	gateway.Reply(ctx, b.sender, cmd.ChatID, sb.String())
}

func commandFrom(message *tgbotapi.Message, p Parsed) gateway.Command {
	cmd := gateway.Command{
		ChatID:    message.Chat.ID,
		UserID:    message.From.ID,
		Username:  message.From.UserName,
		MessageID: message.MessageID,
		Name:      p.Name,
		Args:      p.Args,
		Mentions:  p.Mentions,
		IsPrivate: message.Chat.IsPrivate(),
	}
	if reply := message.ReplyToMessage; reply != nil && reply.From != nil && !reply.From.IsBot {
		cmd.ReplyToUserID = reply.From.ID
	}
	return cmd
}

func profile(u *tgbotapi.User) members.Profile {
	return members.Profile{
		UserID:    u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func profiles(users []tgbotapi.User) []members.Profile {
	out := make([]members.Profile, 0, len(users))
	for i := range users {
		if users[i].IsBot {
			continue
		}
		out = append(out, profile(&users[i]))
	}
	return out
}
