// Package middleware содержит сквозную обвязку обработки апдейтов:
// логирование, восстановление после паники и rate-limiting.
package middleware

import (
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
)

// LogCommand логирует разобранную команду.
// Аргументы обрезаются, чтобы не засорять лог длинными сообщениями.
func LogCommand(cmd gateway.Command) {
	args := cmd.Args
	if len(args) > 5 {
		args = append(args[:5:5], "...")
	}

	log.WithFields(log.Fields{
		"user_id":  cmd.UserID,
		"chat_id":  cmd.ChatID,
		"username": cmd.Username,
		"command":  cmd.Name,
		"args":     args,
		"private":  cmd.IsPrivate,
	}).Debug("Получена команда")
}

// LogCallback логирует нажатие кнопки.
func LogCallback(cb gateway.Callback) {
	log.WithFields(log.Fields{
		"user_id": cb.UserID,
		"chat_id": cb.ChatID,
		"data":    cb.Data,
	}).Debug("Нажата кнопка")
}
