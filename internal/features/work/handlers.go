// Package work — handlers.go обрабатывает !работа и кнопки заказа.
// Данные кнопок: "work:<действие>:<id владельца>[:<аргумент>]".
package work

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Names выдаёт имена игроков для сообщений.
type Names interface {
	DisplayName(userID int64) string
}

// Handler обрабатывает работу.
type Handler struct {
	service *Service
	names   Names
	sender  gateway.Sender
}

// NewHandler создаёт обработчик и подписывается на конец сбоев телефона.
func NewHandler(service *Service, names Names, sender gateway.Sender) *Handler {
	h := &Handler{service: service, names: names, sender: sender}
	service.OnResume(h.onResume)
	return h
}

// Routes — команды работы.
func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"работа", "gb", "job", "work"}, Handle: h.HandleStart},
		{Names: []string{"заказ", "order"}, Handle: h.HandleShow},
		{Names: []string{"уйти", "выйти", "quit"}, Handle: h.HandleExit},
	}
}

// Callbacks — кнопки заказа.
func (h *Handler) Callbacks() []gateway.CallbackRoute {
	return []gateway.CallbackRoute{
		{Prefix: "work:", Handle: h.HandleButton},
	}
}

// HandleStart: !работа [пикинг|пакинг].
func (h *Handler) HandleStart(ctx context.Context, cmd gateway.Command) {
	job := ""
	if len(cmd.Args) > 0 {
		job = strings.ToLower(cmd.Args[0])
	}
	sess, err := h.service.Start(ctx, cmd.UserID, cmd.ChatID, job)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	h.sendSession(ctx, sess, 0, "вы начали работу.")
}

// HandleShow заново присылает текущий заказ.
func (h *Handler) HandleShow(ctx context.Context, cmd gateway.Command) {
	sess, ok := h.service.Get(cmd.UserID)
	if !ok {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, common.ErrNoSession)
		return
	}
	h.sendSession(ctx, sess, 0, "ваш текущий заказ.")
}

// HandleExit: !выйти — уйти с работы.
func (h *Handler) HandleExit(ctx context.Context, cmd gateway.Command) {
	existed, err := h.service.Exit(ctx, cmd.UserID, cmd.UserID)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	if !existed {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, common.ErrNoSession)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("%s, вы вышли с работы.", h.names.DisplayName(cmd.UserID)))
}

// HandleButton разбирает нажатие кнопки заказа.
func (h *Handler) HandleButton(ctx context.Context, cb gateway.Callback) {
	parts := strings.Split(cb.Data, ":")
	if len(parts) < 3 {
		_ = h.sender.Answer(ctx, cb.ID, "", false)
		return
	}
	ownerID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		_ = h.sender.Answer(ctx, cb.ID, "", false)
		return
	}
	arg := ""
	if len(parts) > 3 {
		arg = parts[3]
	}

	switch parts[1] {
	case "scan":
		res, err := h.service.Scan(ctx, cb.UserID, ownerID)
		if h.fail(ctx, cb, err) {
			return
		}
		note := fmt.Sprintf("отсканировано позиций: %d.", res.Scanned)
		if res.Fault {
			note = fmt.Sprintf("у вас ошибка в телефоне, ждём сапорта. Ожидание: %s.",
				common.FormatDuration(res.Session.BlockedUntil.Sub(res.Session.UpdatedAt)))
		} else if res.Ready {
			note = "все позиции собраны, можно отправлять заказ."
		}
		h.sendSession(ctx, res.Session, cb.MessageID, note)

	case "submit":
		p, err := h.service.Submit(ctx, cb.UserID, ownerID)
		if h.fail(ctx, cb, err) {
			return
		}
		h.sendPayout(ctx, cb, ownerID, p)

	case "box":
		sess, err := h.service.ChooseBox(ctx, cb.UserID, ownerID, arg)
		if h.fail(ctx, cb, err) {
			return
		}
		h.sendSession(ctx, sess, cb.MessageID, "коробка выбрана, собирайте товар.")

	case "collect":
		res, err := h.service.Collect(ctx, cb.UserID, ownerID)
		if h.fail(ctx, cb, err) {
			return
		}
		if res.Payout != nil {
			h.sendPayout(ctx, cb, ownerID, *res.Payout)
		} else {
			h.sendSession(ctx, res.Session, cb.MessageID, fmt.Sprintf("собрано товаров: %d.", res.Collected))
		}

	case "new":
		if cb.UserID != ownerID {
			h.fail(ctx, cb, common.ErrNotSessionOwner)
			return
		}
		sess, err := h.service.Start(ctx, ownerID, cb.ChatID, arg)
		if h.fail(ctx, cb, err) {
			return
		}
		h.sendSession(ctx, sess, cb.MessageID, "вы начали новый заказ.")

	case "exit":
		if _, err := h.service.Exit(ctx, cb.UserID, ownerID); h.fail(ctx, cb, err) {
			return
		}
		_, _ = h.sender.Send(ctx, gateway.Message{
			ChatID: cb.ChatID,
			EditID: cb.MessageID,
			Text:   fmt.Sprintf("%s, вы вышли с работы.", h.names.DisplayName(ownerID)),
		})

	default:
		_ = h.sender.Answer(ctx, cb.ID, "", false)
		return
	}
	_ = h.sender.Answer(ctx, cb.ID, "", false)
}

// fail показывает ошибку всплывающим окном и возвращает true, если она была.
func (h *Handler) fail(ctx context.Context, cb gateway.Callback, err error) bool {
	if err == nil {
		return false
	}
	_ = h.sender.Answer(ctx, cb.ID, common.UserMessage(err), true)
	return true
}

func (h *Handler) onResume(ctx context.Context, s Session) {
	h.sendSession(ctx, s, s.MessageID, "можете продолжать пикинг.")
}

func (h *Handler) sendSession(ctx context.Context, s Session, editID int, note string) {
	m := gateway.Message{
		ChatID:  s.ChatID,
		EditID:  editID,
		Text:    h.renderSession(s, note),
		Buttons: sessionButtons(s),
	}
	id, err := h.sender.Send(ctx, m)
	if err != nil || s.Phase == PhaseComplete {
		return
	}
	if editID != 0 {
		id = editID
	}
	if id != s.MessageID {
		h.service.SetMessageID(ctx, s.UserID, id)
	}
}

func (h *Handler) renderSession(s Session, note string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, %s\n", h.names.DisplayName(s.UserID), note)

	if s.Kind == KindPacking {
		fmt.Fprintf(&sb, "📦 Пакинг: заказ из %d товаров.\n", s.Target)
		if s.Phase == PhaseAwaitingBox {
			sb.WriteString("Выберите подходящую коробку:")
		} else {
			fmt.Fprintf(&sb, "Коробка %s. Осталось собрать: %d", s.Box, s.Remaining)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "🧾 Пикинг: заказ из %d позиций, осталось %d.\n\nПикап лист:\n", len(s.Positions), s.Pending())
	for i, p := range s.Positions {
		if p.Done {
			fmt.Fprintf(&sb, "✅ %d. %s (%s)\n", i+1, p.Location, p.Item)
		} else {
			fmt.Fprintf(&sb, "▫️ %d. %s (%s)\n", i+1, p.Location, p.Item)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sessionButtons(s Session) [][]gateway.Button {
	owner := strconv.FormatInt(s.UserID, 10)
	exit := gateway.Button{Text: "🚪 Выйти с работы", Data: "work:exit:" + owner}

	switch s.Phase {
	case PhaseAwaitingScan:
		return [][]gateway.Button{
			gateway.Row(gateway.Button{Text: "📷 Skenovat' produkt", Data: "work:scan:" + owner}),
			gateway.Row(exit),
		}
	case PhaseReadyToSubmit:
		return [][]gateway.Button{
			gateway.Row(gateway.Button{Text: "📤 Odoslat' objednavku", Data: "work:submit:" + owner}),
			gateway.Row(exit),
		}
	case PhaseAwaitingBox:
		row := make([]gateway.Button, 0, len(Boxes))
		for _, b := range Boxes {
			row = append(row, gateway.Button{Text: b.Label(), Data: "work:box:" + owner + ":" + b.Name})
		}
		return [][]gateway.Button{row, gateway.Row(exit)}
	case PhaseCollecting:
		return [][]gateway.Button{
			gateway.Row(gateway.Button{Text: "🧺 Собрать", Data: "work:collect:" + owner}),
			gateway.Row(exit),
		}
	}
	return nil
}

func (h *Handler) sendPayout(ctx context.Context, cb gateway.Callback, ownerID int64, p Payout) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, заказ завершён! Вы заработали %s.\n", h.names.DisplayName(ownerID), common.FormatMoney(p.Earnings))
	if p.TaxRate != "" {
		fmt.Fprintf(&sb, "Налог (%s): %s.\n", p.TaxRate, common.FormatMoney(p.Tax))
	} else if p.Tax > 0 {
		fmt.Fprintf(&sb, "Налог: %s.\n", common.FormatMoney(p.Tax))
	}
	fmt.Fprintf(&sb, "Итоговая сумма: %s. Опыт: +%d. Ваш priemer: %d", common.FormatMoney(p.Net), p.Size, p.Priemer)

	owner := strconv.FormatInt(ownerID, 10)
	_, _ = h.sender.Send(ctx, gateway.Message{
		ChatID: cb.ChatID,
		EditID: cb.MessageID,
		Text:   sb.String(),
		Buttons: [][]gateway.Button{gateway.Row(
			gateway.Button{Text: "🔁 Начать новый заказ", Data: "work:new:" + owner + ":" + string(p.Kind)},
			gateway.Button{Text: "🚪 Выйти с работы", Data: "work:exit:" + owner},
		)},
	})
}
