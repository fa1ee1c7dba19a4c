// Package gateway — граница между ядром и мессенджером. Обработчики фич
// получают отсюда разобранные команды и нажатия кнопок и возвращают
// структурированные сообщения; рендерит их уже Telegram-адаптер в internal/bot.
package gateway

import "context"

// Command — входящая команда: кто, где, что и с какими аргументами.
type Command struct {
	ChatID    int64
	UserID    int64
	Username  string
	MessageID int
	Name      string
	Args      []string
	// Упоминания @username в тексте (без @).
	Mentions []string
	// Автор сообщения, на которое ответили командой (0, если ответа нет).
	ReplyToUserID int64
	IsPrivate     bool
}

// Callback — нажатие инлайн-кнопки.
type Callback struct {
	ID        string
	ChatID    int64
	UserID    int64
	MessageID int
	Data      string
}

// Button — инлайн-кнопка. Data уходит обратно в Callback.Data.
type Button struct {
	Text string
	Data string
}

// Message — исходящее сообщение. Если EditID != 0, редактируется существующее.
type Message struct {
	ChatID  int64
	Text    string
	Buttons [][]Button
	EditID  int
}

// Sender доставляет сообщения пользователю.
type Sender interface {
	Send(ctx context.Context, m Message) (int, error)
	// Answer закрывает «часики» на кнопке; alert показывает текст всплывающим окном.
	Answer(ctx context.Context, callbackID, text string, alert bool) error
}

// CommandFunc обрабатывает команду.
type CommandFunc func(ctx context.Context, cmd Command)

// CallbackFunc обрабатывает нажатие кнопки.
type CallbackFunc func(ctx context.Context, cb Callback)

// Route — строка таблицы команд: имена (с алиасами) и обработчик.
type Route struct {
	Names   []string
	Handle  CommandFunc
	Private bool // только в личке (админ-команды)
}

// CallbackRoute — обработчик кнопок с общим префиксом данных ("work:", "bj:").
type CallbackRoute struct {
	Prefix string
	Handle CallbackFunc
}

// Row собирает ряд кнопок.
func Row(buttons ...Button) []Button {
	return buttons
}
