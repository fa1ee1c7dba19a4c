// Package casino — handlers.go обрабатывает команды игр:
// !flip, !spin, !dice, !roulette, !bj и кнопки блэкджека.
package casino

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Handler обрабатывает команды казино.
type Handler struct {
	service *Service
	sender  gateway.Sender
}

// NewHandler создаёт обработчик и подписывается на таймауты блэкджека.
func NewHandler(service *Service, sender gateway.Sender) *Handler {
	h := &Handler{service: service, sender: sender}
	service.OnTimeout(h.onBlackjackTimeout)
	return h
}

// Routes — команды казино.
func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"flip", "монетка", "ф"}, Handle: h.HandleFlip},
		{Names: []string{"spin", "слоты", "slots"}, Handle: h.HandleSpin},
		{Names: []string{"dice", "кости"}, Handle: h.HandleDice},
		{Names: []string{"roulette", "рулетка", "rl"}, Handle: h.HandleRoulette},
		{Names: []string{"bj", "блэкджек", "blackjack"}, Handle: h.HandleBlackjack},
		{Names: []string{"казино", "casino"}, Handle: h.HandleStats},
	}
}

// Callbacks — кнопки блэкджека.
func (h *Handler) Callbacks() []gateway.CallbackRoute {
	return []gateway.CallbackRoute{
		{Prefix: "bj:", Handle: h.HandleBlackjackButton},
	}
}

type flipArgs struct {
	Bet    int64  `arg:"0" validate:"gt=0"`
	Choice string `arg:"1" validate:"required"`
}

// HandleFlip: !flip <ставка> <о|р>.
func (h *Handler) HandleFlip(ctx context.Context, cmd gateway.Command) {
	var args flipArgs
	if err := gateway.Bind(cmd.Args, &args, "!flip <ставка> <о|р>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	res, st, err := h.service.Flip(ctx, cmd.UserID, args.Bet, args.Choice)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	head := fmt.Sprintf("🪙 Выпал %s.", res.Side)
	gateway.Reply(ctx, h.sender, cmd.ChatID, head+"\n"+settlementText(st))
}

type betArgs struct {
	Bet int64 `arg:"0" validate:"gt=0"`
}

// HandleSpin: !spin <ставка>.
func (h *Handler) HandleSpin(ctx context.Context, cmd gateway.Command) {
	var args betArgs
	if err := gateway.Bind(cmd.Args, &args, "!spin <ставка>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	res, st, err := h.service.Spin(ctx, cmd.UserID, args.Bet)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	head := "🎰 | " + strings.Join(res.Reels[:], " | ") + " |"
	gateway.Reply(ctx, h.sender, cmd.ChatID, head+"\n"+settlementText(st))
}

type diceArgs struct {
	Bet   int64 `arg:"0" validate:"gt=0"`
	Guess int   `arg:"1" validate:"gte=1,lte=6"`
}

// HandleDice: !dice <ставка> <1-6>.
func (h *Handler) HandleDice(ctx context.Context, cmd gateway.Command) {
	var args diceArgs
	if err := gateway.Bind(cmd.Args, &args, "!dice <ставка> <1-6>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	res, st, err := h.service.Dice(ctx, cmd.UserID, args.Bet, args.Guess)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	head := fmt.Sprintf("🎲 Выпало %d.", res.Rolled)
	gateway.Reply(ctx, h.sender, cmd.ChatID, head+"\n"+settlementText(st))
}

type rouletteArgs struct {
	Bet    int64  `arg:"0" validate:"gt=0"`
	Target string `arg:"1" validate:"required"`
}

// HandleRoulette: !roulette <ставка> <красное|чёрное|зеро|0-36>.
func (h *Handler) HandleRoulette(ctx context.Context, cmd gateway.Command) {
	var args rouletteArgs
	if err := gateway.Bind(cmd.Args, &args, "!roulette <ставка> <красное|чёрное|зеро|0-36>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	res, st, err := h.service.Roulette(ctx, cmd.UserID, args.Bet, args.Target)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if res.Refund {
		gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf(
			"🎡 Ставка «%s» не распознана, %s возвращено. Ставьте на красное, чёрное, зеро или число 0-36.",
			args.Target, common.FormatMoney(st.Bet)))
		return
	}
	head := fmt.Sprintf("🎡 Выпало %d (%s).", res.Number, res.Color)
	gateway.Reply(ctx, h.sender, cmd.ChatID, head+"\n"+settlementText(st))
}

// HandleStats показывает статистику казино.
func (h *Handler) HandleStats(ctx context.Context, cmd gateway.Command) {
	s := h.service.Stats(cmd.UserID)
	if s.Games == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "🎰 Вы ещё не играли")
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf(
		"🎰 Статистика казино\nИгр: %d\nПоставлено: %s\nВыплачено: %s\nНалог: %s\nЛучший выигрыш: %s\nRTP: %.1f%%",
		s.Games, common.FormatMoney(s.Wagered), common.FormatMoney(s.Won),
		common.FormatMoney(s.TaxPaid), common.FormatMoney(s.BiggestWin), s.RTP()))
}

// HandleBlackjack: !bj <ставка>.
func (h *Handler) HandleBlackjack(ctx context.Context, cmd gateway.Command) {
	var args betArgs
	if err := gateway.Bind(cmd.Args, &args, "!bj <ставка>"); err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	r, st, err := h.service.StartBlackjack(ctx, cmd.UserID, cmd.ChatID, args.Bet)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	msgID, err := h.sender.Send(ctx, blackjackMessage(cmd.ChatID, r, st))
	if err == nil && st == nil {
		h.service.SetMessageID(cmd.UserID, r.ID, msgID)
	}
}

// HandleBlackjackButton обрабатывает «bj:hit:<id>» и «bj:stand:<id>».
func (h *Handler) HandleBlackjackButton(ctx context.Context, cb gateway.Callback) {
	parts := strings.SplitN(cb.Data, ":", 3)
	if len(parts) != 3 {
		_ = h.sender.Answer(ctx, cb.ID, "", false)
		return
	}
	var (
		r   Round
		st  *Settlement
		err error
	)
	switch parts[1] {
	case "hit":
		r, st, err = h.service.Hit(ctx, cb.UserID, parts[2])
	case "stand":
		r, st, err = h.service.Stand(ctx, cb.UserID, parts[2])
	default:
		_ = h.sender.Answer(ctx, cb.ID, "", false)
		return
	}
	if err != nil {
		_ = h.sender.Answer(ctx, cb.ID, common.UserMessage(err), true)
		return
	}
	_ = h.sender.Answer(ctx, cb.ID, "", false)
	m := blackjackMessage(cb.ChatID, r, st)
	m.EditID = cb.MessageID
	_, _ = h.sender.Send(ctx, m)
}

func (h *Handler) onBlackjackTimeout(ctx context.Context, r Round, st Settlement) {
	m := blackjackMessage(r.ChatID, r, &st)
	m.Text = "⏱ Время на ход вышло, вы остановились.\n" + m.Text
	m.EditID = r.MessageID
	if _, err := h.sender.Send(ctx, m); err != nil && r.MessageID != 0 {
		m.EditID = 0
		_, _ = h.sender.Send(ctx, m)
	}
}

func blackjackMessage(chatID int64, r Round, st *Settlement) gateway.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🃏 Блэкджек | ставка %s\n", common.FormatMoney(r.Bet))
	fmt.Fprintf(&sb, "Ваши карты: %s (сумма %d)\n", FormatHand(r.Player), HandValue(r.Player))

	if r.State != StateFinished {
		fmt.Fprintf(&sb, "Дилер: %s ??", r.Dealer[0])
		return gateway.Message{
			ChatID: chatID,
			Text:   sb.String(),
			Buttons: [][]gateway.Button{gateway.Row(
				gateway.Button{Text: "➕ Ещё", Data: "bj:hit:" + r.ID},
				gateway.Button{Text: "✋ Хватит", Data: "bj:stand:" + r.ID},
			)},
		}
	}

	fmt.Fprintf(&sb, "Дилер: %s (сумма %d)\n", FormatHand(r.Dealer), HandValue(r.Dealer))
	switch r.Result {
	case ResultNatural:
		sb.WriteString("Блэкджек! ")
	case ResultPlayerBust:
		sb.WriteString("Перебор! ")
	case ResultDealerBust:
		sb.WriteString("У дилера перебор! ")
	case ResultPush:
		sb.WriteString("Ничья, ставка возвращена. ")
	}
	if st != nil {
		sb.WriteString(settlementText(*st))
	}
	return gateway.Message{ChatID: chatID, Text: sb.String()}
}

func settlementText(st Settlement) string {
	var sb strings.Builder
	switch {
	case st.Net > st.Bet:
		fmt.Fprintf(&sb, "✅ Выигрыш: %s", common.FormatMoney(st.Gross))
		if st.Tax > 0 {
			fmt.Fprintf(&sb, " (налог %s, зачислено %s)", common.FormatMoney(st.Tax), common.FormatMoney(st.Net))
		}
	case st.Net == st.Bet:
		fmt.Fprintf(&sb, "↩️ Ставка %s возвращена", common.FormatMoney(st.Bet))
	default:
		fmt.Fprintf(&sb, "❌ Проигрыш: %s", common.FormatMoney(st.Bet))
	}
	fmt.Fprintf(&sb, "\nНаличные: %s", common.FormatMoney(st.Cash))
	return sb.String()
}
