// Package filters решает, в каких чатах бот отвечает на команды:
// в чате экономики и в личке у его участников.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/members"
)

// Members — реестр участников.
type Members interface {
	GetByUserID(userID int64) *members.Member
	EnsureMember(ctx context.Context, p members.Profile) error
}

// ChatMembers проверяет членство через Telegram API (*tgbotapi.BotAPI).
type ChatMembers interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// ChatFilter пропускает сообщения из чата экономики и из лички участников.
type ChatFilter struct {
	economyChatID int64
	members       Members
	api           ChatMembers
	sender        gateway.Sender
}

// NewChatFilter создаёт фильтр. economyChatID == 0 снимает ограничение
// на групповые чаты (локальная разработка).
func NewChatFilter(economyChatID int64, m Members, api ChatMembers, sender gateway.Sender) *ChatFilter {
	return &ChatFilter{
		economyChatID: economyChatID,
		members:       m,
		api:           api,
		sender:        sender,
	}
}

// CheckAccess сообщает, можно ли обрабатывать сообщение.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("сообщение без отправителя (канал или служебное)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component":       "ChatFilter",
		"chat_id":         chatID,
		"chat_type":       message.Chat.Type,
		"user_id":         userID,
		"economy_chat_id": f.economyChatID,
	})

	if !message.Chat.IsPrivate() {
		if f.economyChatID == 0 || chatID == f.economyChatID {
			return true
		}
		logger.Debug("deny: чужой групповой чат")
		return false
	}

	// Личка: участник уже известен
	if f.members.GetByUserID(userID) != nil {
		return true
	}
	if f.economyChatID == 0 {
		return true
	}

	// Не видели в чате: спрашиваем Telegram
	cm, err := f.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: f.economyChatID,
			UserID: userID,
		},
	})
	if err != nil {
		logger.WithError(err).Error("не удалось проверить членство через Telegram")
		return false
	}

	switch cm.Status {
	case "creator", "administrator", "member", "restricted":
		if err := f.members.EnsureMember(ctx, members.Profile{
			UserID:    userID,
			Username:  message.From.UserName,
			FirstName: message.From.FirstName,
			LastName:  message.From.LastName,
		}); err != nil {
			logger.WithError(err).Warn("не удалось записать участника (пропускаем)")
		}
		logger.WithField("tg_status", cm.Status).Info("allow: личка участника чата")
		return true
	default:
		logger.WithField("tg_status", cm.Status).Info("deny: личка не участника")
		gateway.Reply(ctx, f.sender, chatID, "⛔ Бот работает только для участников чата экономики.")
		return false
	}
}
