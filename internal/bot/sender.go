package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
)

// API — часть *tgbotapi.BotAPI, через которую уходят сообщения.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramSender рендерит gateway.Message в вызовы Bot API.
type TelegramSender struct {
	api API
}

// NewSender создаёт отправителя.
func NewSender(api API) *TelegramSender {
	return &TelegramSender{api: api}
}

// Send отправляет новое сообщение или редактирует существующее (EditID).
func (s *TelegramSender) Send(_ context.Context, m gateway.Message) (int, error) {
	kb := keyboard(m.Buttons)

	if m.EditID != 0 {
		edit := tgbotapi.NewEditMessageText(m.ChatID, m.EditID, m.Text)
		edit.ReplyMarkup = kb
		if _, err := s.api.Send(edit); err != nil && !notModified(err) {
			return 0, err
		}
		return m.EditID, nil
	}

	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := s.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Answer отвечает на нажатие кнопки.
func (s *TelegramSender) Answer(_ context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	_, err := s.api.Request(cfg)
	return err
}

func keyboard(rows [][]gateway.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &kb
}

// Telegram отвечает ошибкой, если текст и кнопки не изменились.
func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
