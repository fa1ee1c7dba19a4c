package gateway

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Reply отправляет текст в чат и логирует ошибку доставки.
func Reply(ctx context.Context, s Sender, chatID int64, text string) {
	if _, err := s.Send(ctx, Message{ChatID: chatID, Text: text}); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// ReplyError показывает пользователю текст ошибки. Внутренние ошибки
// логируются, а пользователь видит общий текст.
func ReplyError(ctx context.Context, s Sender, chatID int64, err error) {
	if common.KindOf(err) == common.KindInternal {
		log.WithError(err).WithField("chat_id", chatID).Error("Внутренняя ошибка команды")
	}
	Reply(ctx, s, chatID, "❌ "+capitalize(common.UserMessage(err)))
}

// IsAll — аргумент «всё» для сумм.
func IsAll(arg string) bool {
	switch strings.ToLower(arg) {
	case "all", "все", "всё", "вб":
		return true
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
