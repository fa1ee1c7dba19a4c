// Package admin — handlers.go: команды администратора. Вход только
// в личных сообщениях, остальные команды работают везде, где есть сессия.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Directory находит игрока по упоминанию или ответу.
type Directory interface {
	ResolveTarget(cmd gateway.Command) (int64, error)
	DisplayName(userID int64) string
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	members Directory
	sender  gateway.Sender
}

// NewHandler создаёт обработчик админки.
func NewHandler(service *Service, members Directory, sender gateway.Sender) *Handler {
	return &Handler{service: service, members: members, sender: sender}
}

func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"login", "вход"}, Handle: h.HandleLogin, Private: true},
		{Names: []string{"logout", "выход"}, Handle: h.HandleLogout},
		{Names: []string{"effect", "эффект"}, Handle: h.HandleEffect},
		{Names: []string{"agive", "выдать"}, Handle: h.HandleGive},
		{Names: []string{"atake", "забрать"}, Handle: h.HandleTake},
		{Names: []string{"warn", "варн"}, Handle: h.HandleWarn},
		{Names: []string{"tick", "тик"}, Handle: h.HandleTick},
	}
}

type loginArgs struct {
	Password string `arg:"0" validate:"required"`
}

// HandleLogin: !login <пароль> в личке.
func (h *Handler) HandleLogin(ctx context.Context, cmd gateway.Command) {
	var args loginArgs
	if err := gateway.Bind(cmd.Args, &args, "!login <пароль>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if err := h.service.Login(cmd.UserID, args.Password); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, "🔓 Доступ открыт. Команды: !эффект, !выдать, !забрать, !варн, !тик, !выход")
}

// HandleLogout: !logout.
func (h *Handler) HandleLogout(ctx context.Context, cmd gateway.Command) {
	if !h.service.IsAdmin(cmd.UserID) {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, common.ErrNotAdmin)
		return
	}
	h.service.Logout(cmd.UserID)
	gateway.Reply(ctx, h.sender, cmd.ChatID, "🔒 Сессия закрыта")
}

type effectArgs struct {
	Type  string `arg:"0" validate:"required"`
	Hours int    `arg:"1,optional" validate:"min=0,max=720"`
}

// HandleEffect: !effect <вид бизнеса> [часов].
func (h *Handler) HandleEffect(ctx context.Context, cmd gateway.Command) {
	var args effectArgs
	if err := gateway.Bind(cmd.Args, &args, "!effect <вид бизнеса> [часов]"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	eff, err := h.service.ActivateEffect(ctx, cmd.UserID, args.Type, time.Duration(args.Hours)*time.Hour)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("✨ Эффект %s активен ещё %s",
		eff.Key, common.FormatDuration(time.Until(eff.Until))))
}

type moneyArgs struct {
	Amount int64 `arg:"0" validate:"gt=0"`
}

// target разбирает сумму и адресата команды.
func (h *Handler) target(cmd gateway.Command, usage string) (int64, int64, error) {
	var args moneyArgs
	if err := gateway.Bind(cmd.Args, &args, usage); err != nil {
		return 0, 0, err
	}
	id, err := h.members.ResolveTarget(cmd)
	if err != nil {
		return 0, 0, err
	}
	return id, args.Amount, nil
}

// HandleGive: !agive <сумма> @игрок.
func (h *Handler) HandleGive(ctx context.Context, cmd gateway.Command) {
	id, amount, err := h.target(cmd, "!agive <сумма> @игрок")
	if err == nil {
		err = h.service.Give(ctx, cmd.UserID, id, amount)
	}
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("✅ %s получил %s", h.members.DisplayName(id), common.FormatMoney(amount)))
}

// HandleTake: !atake <сумма> @игрок.
func (h *Handler) HandleTake(ctx context.Context, cmd gateway.Command) {
	id, amount, err := h.target(cmd, "!atake <сумма> @игрок")
	var taken int64
	if err == nil {
		taken, err = h.service.Take(ctx, cmd.UserID, id, amount)
	}
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("✅ У %s списано %s", h.members.DisplayName(id), common.FormatMoney(taken)))
}

// HandleWarn: !warn @игрок [причина].
func (h *Handler) HandleWarn(ctx context.Context, cmd gateway.Command) {
	id, err := h.members.ResolveTarget(cmd)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	n, err := h.service.Warn(ctx, cmd.UserID, id, strings.Join(cmd.Args, " "))
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("⚠️ %s получил предупреждение (всего %d)", h.members.DisplayName(id), n))
}

// HandleTick: !tick <имя>. Без имени показывает список.
func (h *Handler) HandleTick(ctx context.Context, cmd gateway.Command) {
	if err := h.service.Authorize(cmd.UserID); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if len(cmd.Args) == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "Тики: "+strings.Join(h.service.TickNames(), ", "))
		return
	}
	summary, err := h.service.RunTick(ctx, cmd.UserID, cmd.Args[0])
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, "⏱ "+summary)
}
