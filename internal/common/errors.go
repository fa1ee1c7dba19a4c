// Package common — errors.go определяет типизированные ошибки ядра экономики.
// Каждая ошибка относится к одному виду (Kind), по которому обработчики
// выбирают сообщение для пользователя. Ни одна из них не должна оставлять
// частично изменённое состояние.
package common

import (
	"errors"
	"fmt"
)

// Kind — вид ошибки.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInsufficientFunds
	KindPermission
	KindStateConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindPermission:
		return "permission"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error — ошибка с видом и сообщением для пользователя.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is сравнивает только вид, поэтому errors.Is(err, ErrInsufficientFunds)
// сработает для любой ошибки нехватки средств, даже с другим текстом.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Базовые значения для errors.Is по виду.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrPermission        = &Error{Kind: KindPermission}
	ErrStateConflict     = &Error{Kind: KindStateConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

// Validation создаёт ошибку валидации.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// InsufficientFunds создаёт ошибку нехватки денег.
func InsufficientFunds(need, have int64) error {
	return &Error{Kind: KindInsufficientFunds, Msg: fmt.Sprintf("недостаточно денег: нужно %d, есть %d", need, have)}
}

// Permission создаёт ошибку прав доступа.
func Permission(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

// Conflict создаёт ошибку конфликта состояния.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

// NotFound создаёт ошибку отсутствующего ресурса.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf возвращает вид ошибки (KindInternal для чужих ошибок).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserMessage возвращает текст, который можно показать пользователю.
// Внутренние ошибки не раскрываются.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "внутренняя ошибка, попробуйте позже"
}

// Ошибки экономики
var (
	// ErrInvalidAmount — сумма ноль или отрицательная
	ErrInvalidAmount = &Error{Kind: KindValidation, Msg: "сумма должна быть положительной"}
	// ErrSelfTransfer — перевод самому себе
	ErrSelfTransfer = &Error{Kind: KindValidation, Msg: "нельзя переводить деньги самому себе"}
	// ErrUserNotFound — пользователь не найден
	ErrUserNotFound = &Error{Kind: KindNotFound, Msg: "пользователь не найден"}
)

// Ошибки сессий
var (
	// ErrNotSessionOwner — действие над чужой сессией
	ErrNotSessionOwner = &Error{Kind: KindPermission, Msg: "это не ваш заказ!"}
	// ErrNoSession — активной сессии нет
	ErrNoSession = &Error{Kind: KindStateConflict, Msg: "у вас нет активного заказа"}
	// ErrSessionExists — сессия уже запущена
	ErrSessionExists = &Error{Kind: KindStateConflict, Msg: "вы уже на работе, сначала завершите заказ или выйдите"}
)

// Ошибки кредитов
var (
	// ErrLoanActive — у игрока уже есть непогашенный кредит
	ErrLoanActive = &Error{Kind: KindStateConflict, Msg: "у вас уже есть активный кредит"}
	// ErrNoLoan — активного кредита нет
	ErrNoLoan = &Error{Kind: KindNotFound, Msg: "у вас нет активного кредита"}
)

// Ошибки админки
var (
	// ErrNotAdmin — нет прав администратора
	ErrNotAdmin = &Error{Kind: KindPermission, Msg: "у вас нет прав администратора"}
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = &Error{Kind: KindPermission, Msg: "неверный пароль"}
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = &Error{Kind: KindPermission, Msg: "слишком много попыток, подождите 1 час"}
	// ErrSessionExpired — админ-сессия истекла
	ErrSessionExpired = &Error{Kind: KindPermission, Msg: "сессия истекла, авторизуйтесь заново"}
)

// ErrFeatureDisabled — функция отключена в настройках
var ErrFeatureDisabled = &Error{Kind: KindStateConflict, Msg: "функция временно отключена"}
