// Package economy — handlers.go обрабатывает команды кошелька:
// !баланс, !перевод, !деп, !снять, !история, !инвентарь, !топ.
package economy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
)

// Directory находит игроков по упоминаниям и выдаёт их имена.
type Directory interface {
	ResolveTarget(cmd gateway.Command) (int64, error)
	DisplayName(userID int64) string
}

// Handler обрабатывает команды экономики. Перевод берёт замки обоих
// игроков, банк — замок владельца.
type Handler struct {
	service *Service
	guard   *concurrency.Guard
	members Directory
	sender  gateway.Sender
}

// NewHandler создаёт обработчик команд экономики.
func NewHandler(service *Service, guard *concurrency.Guard, members Directory, sender gateway.Sender) *Handler {
	return &Handler{service: service, guard: guard, members: members, sender: sender}
}

// Routes — таблица команд экономики.
func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"баланс", "б", "money", "balance", "bal"}, Handle: h.HandleBalance},
		{Names: []string{"перевод", "pay", "give"}, Handle: h.HandleTransfer},
		{Names: []string{"деп", "dep", "deposit"}, Handle: h.HandleDeposit},
		{Names: []string{"снять", "with", "withdraw"}, Handle: h.HandleWithdraw},
		{Names: []string{"история", "history"}, Handle: h.HandleHistory},
		{Names: []string{"инвентарь", "inv"}, Handle: h.HandleInventory},
		{Names: []string{"топ", "top", "leaderboard"}, Handle: h.HandleTop},
	}
}

// HandleBalance показывает наличные, банк и опыт.
//
// Формат ответа:
//
//	💰 @user
//	Наличные: 1 000 монет
//	Банк: 0 монет
//	Опыт: 0
func (h *Handler) HandleBalance(ctx context.Context, cmd gateway.Command) {
	target := cmd.UserID
	if len(cmd.Mentions) > 0 || cmd.ReplyToUserID != 0 {
		id, err := h.members.ResolveTarget(cmd)
		if err != nil {
			gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
			return
		}
		target = id
	}
	acc, err := h.service.Get(ctx, target)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 %s\n", h.members.DisplayName(target))
	fmt.Fprintf(&sb, "Наличные: %s\n", common.FormatMoney(acc.Cash))
	fmt.Fprintf(&sb, "Банк: %s\n", common.FormatMoney(acc.Bank))
	fmt.Fprintf(&sb, "Опыт: %s", common.FormatNumber(acc.XP))
	if n := len(acc.Warns); n > 0 {
		fmt.Fprintf(&sb, "\n⚠️ Предупреждений: %d", n)
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, sb.String())
}

type amountArgs struct {
	Amount int64 `arg:"0" validate:"gt=0"`
}

// HandleTransfer: !перевод <сумма> @user (или ответом на сообщение).
func (h *Handler) HandleTransfer(ctx context.Context, cmd gateway.Command) {
	var args amountArgs
	if err := gateway.Bind(cmd.Args, &args, "!перевод <сумма> @игрок"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	to, err := h.members.ResolveTarget(cmd)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	err = h.guard.WithUsers([]int64{cmd.UserID, to}, func() error {
		return h.service.Transfer(ctx, cmd.UserID, to, args.Amount)
	})
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("✅ %s перевёл %s → %s",
		h.members.DisplayName(cmd.UserID), common.FormatMoney(args.Amount), h.members.DisplayName(to)))
}

// bankAmount разбирает сумму для банка: число или «всё».
func bankAmount(cmd gateway.Command, usage string) (amount int64, all bool, err error) {
	if len(cmd.Args) > 0 && gateway.IsAll(cmd.Args[0]) {
		return 0, true, nil
	}
	var args amountArgs
	if err := gateway.Bind(cmd.Args, &args, usage); err != nil {
		return 0, false, err
	}
	return args.Amount, false, nil
}

// HandleDeposit: !деп <сумма|всё>.
func (h *Handler) HandleDeposit(ctx context.Context, cmd gateway.Command) {
	amount, all, err := bankAmount(cmd, "!деп <сумма|всё>")
	if err == nil {
		err = h.guard.WithUser(cmd.UserID, func() (err error) {
			if all {
				amount, err = h.service.DepositAll(ctx, cmd.UserID)
			} else {
				amount, err = h.service.Deposit(ctx, cmd.UserID, amount)
			}
			return err
		})
	}
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("🏦 В банк положено %s", common.FormatMoney(amount)))
}

// HandleWithdraw: !снять <сумма|всё>.
func (h *Handler) HandleWithdraw(ctx context.Context, cmd gateway.Command) {
	amount, all, err := bankAmount(cmd, "!снять <сумма|всё>")
	if err == nil {
		err = h.guard.WithUser(cmd.UserID, func() (err error) {
			if all {
				amount, err = h.service.WithdrawAll(ctx, cmd.UserID)
			} else {
				amount, err = h.service.Withdraw(ctx, cmd.UserID, amount)
			}
			return err
		})
	}
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("🏦 Из банка снято %s", common.FormatMoney(amount)))
}

// HandleHistory показывает последние операции.
func (h *Handler) HandleHistory(ctx context.Context, cmd gateway.Command) {
	acc, err := h.service.Get(ctx, cmd.UserID)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if len(acc.History) == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "📜 Операций пока нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("📜 Последние операции:\n")
	for i := len(acc.History) - 1; i >= 0; i-- {
		e := acc.History[i]
		fmt.Fprintf(&sb, "%s %s — %s\n", e.CreatedAt.Format("02.01 15:04"), common.FormatSignedMoney(e.Amount), e.Description)
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, strings.TrimRight(sb.String(), "\n"))
}

// HandleInventory показывает предметы игрока.
func (h *Handler) HandleInventory(ctx context.Context, cmd gateway.Command) {
	acc, err := h.service.Get(ctx, cmd.UserID)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if len(acc.Inventory) == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "🎒 Инвентарь пуст")
		return
	}
	items := make([]string, 0, len(acc.Inventory))
	for item := range acc.Inventory {
		items = append(items, item)
	}
	sort.Strings(items)

	var sb strings.Builder
	sb.WriteString("🎒 Инвентарь:\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "• %s × %d\n", item, acc.Inventory[item])
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, strings.TrimRight(sb.String(), "\n"))
}

// HandleTop показывает десятку богатейших.
func (h *Handler) HandleTop(ctx context.Context, cmd gateway.Command) {
	top := h.service.Top(10)
	if len(top) == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "🏆 Пока никого нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("🏆 Самые богатые:\n")
	for i, a := range top {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, h.members.DisplayName(a.UserID), common.FormatMoney(a.Total()))
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, strings.TrimRight(sb.String(), "\n"))
}
