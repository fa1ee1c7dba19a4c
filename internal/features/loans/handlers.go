package loans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Handler обрабатывает кредитные команды.
type Handler struct {
	service *Service
	sender  gateway.Sender
	loc     *time.Location
}

// NewHandler создаёт обработчик и подключает доставку напоминаний в личку.
func NewHandler(service *Service, sender gateway.Sender, loc *time.Location) *Handler {
	h := &Handler{service: service, sender: sender, loc: loc}
	service.OnNotify(func(ctx context.Context, userID int64, text string) {
		gateway.Reply(ctx, sender, userID, text)
	})
	return h
}

func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"applyloan", "кредит"}, Handle: h.HandleApply},
		{Names: []string{"calculatecredit", "расчёт", "расчет"}, Handle: h.HandleQuote},
		{Names: []string{"checkloan", "мойкредит"}, Handle: h.HandleCheck},
		{Names: []string{"payloan", "погасить"}, Handle: h.HandlePay},
		{Names: []string{"handleunpaidloan"}, Handle: h.HandleUnpaid},
	}
}

type termsArgs struct {
	Principal int64 `arg:"0" validate:"gt=0"`
	Term      int   `arg:"1" validate:"min=1,max=7"`
}

// HandleApply: !applyloan <сумма> <дней>.
func (h *Handler) HandleApply(ctx context.Context, cmd gateway.Command) {
	var args termsArgs
	if err := gateway.Bind(cmd.Args, &args, "!applyloan <сумма> <дней 1-7>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	loan, err := h.service.Apply(ctx, cmd.UserID, args.Principal, args.Term)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf(
		"🏦 Вы взяли кредит на сумму %s.\nЕжедневный платёж: %s\nК возврату: %s\nДата погашения: %s",
		common.FormatMoney(loan.Principal),
		common.FormatMoney(loan.DailyPayment),
		common.FormatMoney(loan.Owed()),
		common.FormatDateTime(loan.DueAt, h.loc)))
}

// HandleQuote: !calculatecredit <сумма> <дней>. Только расчёт.
func (h *Handler) HandleQuote(ctx context.Context, cmd gateway.Command) {
	var args termsArgs
	if err := gateway.Bind(cmd.Args, &args, "!calculatecredit <сумма> <дней 1-7>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	q, err := h.service.Quote(cmd.UserID, args.Principal, args.Term)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf(
		"🧮 Кредит на сумму %s на %d %s.\nПроцентная ставка: %s\nЕжедневный платёж: %s\nВсего к возврату: %s",
		common.FormatMoney(q.Principal), q.Term, common.PluralizeDays(q.Term),
		q.RatePercent(), common.FormatMoney(q.Daily), common.FormatMoney(q.Total)))
}

// HandleCheck: !checkloan. Проверка срока может удвоить долг.
func (h *Handler) HandleCheck(ctx context.Context, cmd gateway.Command) {
	res, err := h.service.Check(ctx, cmd.UserID)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	l := res.Loan
	var sb strings.Builder
	switch {
	case res.Doubled:
		sb.WriteString("⚠️ Просрочка! Вам дано ещё 2 дня для погашения. Долг увеличен в 2 раза.\n")
	case res.Overdue:
		sb.WriteString("❗ Кредит просрочен, отсрочек больше не будет.\n")
	default:
		sb.WriteString("✅ Ваш кредит ещё не просрочен.\n")
	}
	fmt.Fprintf(&sb, "Долг: %s, оплачено: %s, осталось: %s\nДата погашения: %s",
		common.FormatMoney(l.Owed()), common.FormatMoney(l.Paid), common.FormatMoney(l.Remaining()),
		common.FormatDateTime(l.DueAt, h.loc))
	gateway.Reply(ctx, h.sender, cmd.ChatID, sb.String())
}

type payArgs struct {
	Amount int64 `arg:"0" validate:"gt=0"`
}

// HandlePay: !payloan <сумма|всё>.
func (h *Handler) HandlePay(ctx context.Context, cmd gateway.Command) {
	var amount int64
	if len(cmd.Args) > 0 && gateway.IsAll(cmd.Args[0]) {
		loan, ok := h.service.Get(cmd.UserID)
		if !ok {
			gateway.ReplyError(ctx, h.sender, cmd.ChatID, common.ErrNoLoan)
			return
		}
		amount = loan.Remaining()
	} else {
		var args payArgs
		if err := gateway.Bind(cmd.Args, &args, "!payloan <сумма|всё>"); err != nil {
			gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
			return
		}
		amount = args.Amount
	}

	res, err := h.service.Pay(ctx, cmd.UserID, amount)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if res.Closed {
		gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("🎉 Кредит погашен! Последний платёж: %s",
			common.FormatMoney(res.Paid)))
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("💳 Оплачено %s. Остаток по кредиту: %s",
		common.FormatMoney(res.Paid), common.FormatMoney(res.Remaining)))
}

// HandleUnpaid: !handleunpaidloan.
func (h *Handler) HandleUnpaid(ctx context.Context, cmd gateway.Command) {
	u, err := h.service.HandleUnpaid(ctx, cmd.UserID)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if u == nil {
		loan, ok := h.service.Get(cmd.UserID)
		if !ok {
			gateway.ReplyError(ctx, h.sender, cmd.ChatID, common.ErrNoLoan)
			return
		}
		gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf(
			"⏳ У вас ещё есть время для погашения. Осталось: %s, срок: %s",
			common.FormatMoney(loan.Remaining()), common.FormatDateTime(loan.DueAt, h.loc)))
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf(
		"❌ Вы не погасили кредит вовремя. Штраф %s, списано %s.",
		common.FormatMoney(u.Penalty), common.FormatMoney(u.Charged)))
}
