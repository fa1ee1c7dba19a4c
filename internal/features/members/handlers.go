// Package members — handlers.go обрабатывает вход новых участников и !стаж.
package members

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
	sender  gateway.Sender
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, sender gateway.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleNewChatMembers регистрирует всех вошедших.
func (h *Handler) HandleNewChatMembers(ctx context.Context, profiles []Profile) {
	for _, p := range profiles {
		if err := h.service.HandleNewMember(ctx, p); err != nil {
			log.WithError(err).WithField("user_id", p.UserID).Error("Ошибка регистрации нового участника")
		}
	}
}

// Routes — команды участников.
func (h *Handler) Routes() []gateway.Route {
	return []gateway.Route{
		{Names: []string{"стаж", "tenure"}, Handle: h.HandleTenure},
	}
}

// HandleTenure показывает, сколько дней игрок в чате.
func (h *Handler) HandleTenure(ctx context.Context, cmd gateway.Command) {
	target := cmd.UserID
	if len(cmd.Mentions) > 0 || cmd.ReplyToUserID != 0 {
		id, err := h.service.ResolveTarget(cmd)
		if err != nil {
			gateway.ReplyError(ctx, h.sender, cmd.ChatID, err)
			return
		}
		target = id
	}
	days := h.service.TenureDays(target)
	gateway.Reply(ctx, h.sender, cmd.ChatID, fmt.Sprintf("📅 %s в чате %d %s",
		h.service.DisplayName(target), days, common.PluralizeDays(days)))
}
