package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Names выдаёт отображаемые имена игроков для объявлений.
type Names interface {
	DisplayName(userID int64) string
}

// Handler обрабатывает команды бизнесов.
type Handler struct {
	service *Service
	names   Names
	sender  gateway.Sender
	loc     *time.Location
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, names Names, sender gateway.Sender, loc *time.Location) *Handler {
	return &Handler{service: service, names: names, sender: sender, loc: loc}
}

func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"бизнесы", "businesses", "shop"}, Handle: h.HandleCatalog},
		{Names: []string{"купитьбизнес", "buybusiness"}, Handle: h.HandleBuy},
		{Names: []string{"мойбизнес", "mybusiness", "mybiz"}, Handle: h.HandleList},
		{Names: []string{"улучшить", "upgrade"}, Handle: h.HandleUpgrade},
		{Names: []string{"ремонт", "repair"}, Handle: h.HandleRepair},
		{Names: []string{"продатьбизнес", "sellbusiness"}, Handle: h.HandleSell},
		{Names: []string{"эффекты", "effects"}, Handle: h.HandleEffects},
	}
}

// HandleCatalog показывает каталог с ценой следующей покупки.
func (h *Handler) HandleCatalog(ctx context.Context, cmd gateway.Command) {
	owned := len(h.service.List(cmd.UserID))
	var sb strings.Builder
	sb.WriteString("🏪 Каталог бизнесов\n")
	for _, t := range Catalog {
		fmt.Fprintf(&sb, "\n%s (%s)\n", t.Name, t.Aliases[0])
		if owned < MaxOwned {
			fmt.Fprintf(&sb, "  Цена для вас: %s\n", common.FormatMoney(BuyCost(t, owned)))
		}
		fmt.Fprintf(&sb, "  Доход: %s/день, налог: %s/день\n", common.FormatMoney(t.Profit), common.FormatMoney(t.Tax))
	}
	fmt.Fprintf(&sb, "\nУ вас %d из %d. Покупка: !купитьбизнес <вид> <название>", owned, MaxOwned)
	gateway.Reply(ctx, h.sender, cmd.ChatID, sb.String())
}

// HandleBuy: !купитьбизнес <вид> <название...>.
func (h *Handler) HandleBuy(ctx context.Context, cmd gateway.Command) {
	if len(cmd.Args) < 2 {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, common.Validation("использование: !купитьбизнес <вид> <название>"))
		return
	}
	b, cost, err := h.service.Buy(ctx, cmd.UserID, cmd.Args[0], strings.Join(cmd.Args[1:], " "))
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("🎉 Вы открыли %s «%s» за %s",
		b.Kind().Name, b.Name, common.FormatMoney(cost)))
}

// HandleList: !мойбизнес.
func (h *Handler) HandleList(ctx context.Context, cmd gateway.Command) {
	list := h.service.List(cmd.UserID)
	if len(list) == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "У вас нет бизнесов. Каталог: !бизнесы")
		return
	}
	now := h.service.clock.Now()
	var sb strings.Builder
	sb.WriteString("💼 Ваши бизнесы\n")
	for _, b := range list {
		t := b.Kind()
		fmt.Fprintf(&sb, "\n«%s» (%s)\n", b.Name, t.Name)
		fmt.Fprintf(&sb, "  Доход: %s, налог: %s\n", common.FormatMoney(b.Profit), common.FormatMoney(b.Tax))
		fmt.Fprintf(&sb, "  Улучшений: %d, следующее: %s", b.Upgrades, common.FormatMoney(UpgradeCost(t, b.Upgrades)))
		if b.Upgraded {
			if next := b.LastUpgradeAt.Add(UpgradeCooldown); next.After(now) {
				fmt.Fprintf(&sb, " (с %s)", common.FormatDateTime(next, h.loc))
			}
		}
		sb.WriteString("\n")
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, sb.String())
}

func nameArg(cmd gateway.Command, usage string) (string, error) {
	name := strings.TrimSpace(strings.Join(cmd.Args, " "))
	if name == "" {
		return "", common.Validation("использование: %s", usage)
	}
	return name, nil
}

// HandleUpgrade: !улучшить <название>.
func (h *Handler) HandleUpgrade(ctx context.Context, cmd gateway.Command) {
	name, err := nameArg(cmd, "!улучшить <название>")
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	res, err := h.service.Upgrade(ctx, cmd.UserID, name)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	text := fmt.Sprintf("⬆️ «%s» улучшен за %s. Прибыль ×%s, теперь %s/день",
		res.Business.Name, common.FormatMoney(res.Cost), res.Multiplier, common.FormatMoney(res.Business.Profit))
	if res.Effect != nil {
		text += fmt.Sprintf("\n✨ Серверный эффект «%s» до %s!",
			EffectTitle(res.Effect.Key), common.FormatDateTime(res.Effect.Until, h.loc))
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, text)
}

// HandleRepair: !ремонт <название>.
func (h *Handler) HandleRepair(ctx context.Context, cmd gateway.Command) {
	name, err := nameArg(cmd, "!ремонт <название>")
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	cost, err := h.service.Repair(ctx, cmd.UserID, name)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("🔧 Ремонт «%s» обошёлся в %s", name, common.FormatMoney(cost)))
}

// HandleSell: !продатьбизнес <название>.
func (h *Handler) HandleSell(ctx context.Context, cmd gateway.Command) {
	name, err := nameArg(cmd, "!продатьбизнес <название>")
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	refund, err := h.service.Sell(ctx, cmd.UserID, name)
	if err != nil {
		gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
		return
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("💸 «%s» продан, вы получили %s", name, common.FormatMoney(refund)))
}

// HandleEffects: !эффекты.
func (h *Handler) HandleEffects(ctx context.Context, cmd gateway.Command) {
	active := h.service.Effects().Active(ctx)
	if len(active) == 0 {
		gateway.Reply(ctx, h.sender, cmd.ChatID, "Серверных эффектов сейчас нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("✨ Активные эффекты\n")
	for _, e := range active {
		fmt.Fprintf(&sb, "%s: до %s\n", EffectTitle(e.Key), common.FormatDateTime(e.Until, h.loc))
	}
	gateway.Reply(ctx, h.sender, cmd.ChatID, sb.String())
}

// CompetitionText — объявление итогов недельного конкурса.
func (h *Handler) CompetitionText(winners []Winner) string {
	if len(winners) == 0 {
		return "🏆 Конкурс бизнесов: на этой неделе участников нет"
	}
	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 Итоги недельного конкурса бизнесов\n")
	for _, w := range winners {
		fmt.Fprintf(&sb, "\n%s %s: доход %s, приз %s, бусты: %s",
			medals[w.Place-1], h.names.DisplayName(w.UserID), common.FormatMoney(w.Profit),
			common.FormatMoney(w.Prize), strings.Join(w.Boosted, ", "))
	}
	return sb.String()
}
