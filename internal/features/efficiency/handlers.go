package efficiency

import (
	"context"
	"fmt"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
)

// Handler показывает приемер.
type Handler struct {
	service *Service
	sender  gateway.Sender
}

func NewHandler(service *Service, sender gateway.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"priemer", "приемер", "эффективность"}, Handle: h.HandlePriemer},
	}
}

// HandlePriemer: !priemer.
func (h *Handler) HandlePriemer(ctx context.Context, cmd gateway.Command) {
	score := h.service.Get(cmd.UserID)
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("📈 Ваш приемер: %d / %d", score, MaxScore))
}
