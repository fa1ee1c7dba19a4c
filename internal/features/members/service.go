// Package members — service.go регистрирует участников, отвечает на вопрос
// о стаже (для кредитов) и находит адресата команды по @username или ответу.
package members

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Service управляет участниками.
type Service struct {
	repo  *Repository
	clock clock.Clock
}

// NewService создаёт сервис участников.
func NewService(repo *Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

// HandleNewMember регистрирует вошедшего участника или обновляет его данные.
// JoinedAt при повторном входе не сбрасывается.
func (s *Service) HandleNewMember(ctx context.Context, p Profile) error {
	now := s.clock.Now()
	if existing := s.repo.GetByUserID(p.UserID); existing != nil {
		existing.Username = p.Username
		existing.FirstName = p.FirstName
		existing.LastName = p.LastName
		existing.UpdatedAt = now
		return s.repo.Upsert(ctx, existing)
	}

	m := &Member{
		UserID:    p.UserID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return fmt.Errorf("ошибка регистрации участника: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  p.UserID,
		"username": p.Username,
	}).Info("Новый участник зарегистрирован")
	return nil
}

// EnsureMember регистрирует автора сообщения, если его ещё нет,
// и обновляет username, если тот сменился.
func (s *Service) EnsureMember(ctx context.Context, p Profile) error {
	existing := s.repo.GetByUserID(p.UserID)
	if existing != nil && existing.Username == p.Username {
		return nil
	}
	return s.HandleNewMember(ctx, p)
}

// GetByUserID возвращает участника или nil.
func (s *Service) GetByUserID(userID int64) *Member {
	return s.repo.GetByUserID(userID)
}

// TenureDays — сколько полных дней игрок в чате. Неизвестный игрок — 0.
func (s *Service) TenureDays(userID int64) int {
	m := s.repo.GetByUserID(userID)
	if m == nil {
		return 0
	}
	d := s.clock.Now().Sub(m.JoinedAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// DisplayName возвращает имя игрока для сообщений.
func (s *Service) DisplayName(userID int64) string {
	if m := s.repo.GetByUserID(userID); m != nil {
		if name := m.DisplayName(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("id%d", userID)
}

// ResolveTarget находит адресата команды: сначала автор сообщения,
// на которое ответили, затем первое @упоминание.
func (s *Service) ResolveTarget(cmd gateway.Command) (int64, error) {
	if cmd.ReplyToUserID != 0 {
		return cmd.ReplyToUserID, nil
	}
	for _, username := range cmd.Mentions {
		if m := s.repo.GetByUsername(username); m != nil {
			return m.UserID, nil
		}
		return 0, common.NotFound("пользователь @%s не найден", username)
	}
	return 0, common.Validation("укажите игрока через @username или ответом на его сообщение")
}
