// Package admin — service.go: вход администратора и его действия.
// Сессии и счётчики попыток живут в памяти (expirable LRU): после
// перезапуска администратор входит заново.
package admin

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/business"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
)

// TickRunner запускает фоновый тик вне расписания.
type TickRunner interface {
	RunNow(ctx context.Context, name string) (string, error)
	TickNames() []string
}

// Options — зависимости админки.
type Options struct {
	AdminIDs     []int64
	PasswordHash string
	SessionTTL   time.Duration
	Ledger       *economy.Service
	Effects      *business.Effects
	Ticks        TickRunner
}

// Service — админка.
type Service struct {
	adminIDs []int64
	hash     string
	ledger   *economy.Service
	effects  *business.Effects
	ticks    TickRunner
	sessions *expirable.LRU[int64, time.Time]
	attempts *expirable.LRU[int64, int]
}

// NewService создаёт админку.
func NewService(o Options) *Service {
	return &Service{
		adminIDs: o.AdminIDs,
		hash:     o.PasswordHash,
		ledger:   o.Ledger,
		effects:  o.Effects,
		ticks:    o.Ticks,
		sessions: expirable.NewLRU[int64, time.Time](maxCached, nil, o.SessionTTL),
		attempts: expirable.NewLRU[int64, int](maxCached, nil, AttemptWindow),
	}
}

// SetTicks подключает запуск тиков: планировщик создаётся позже админки.
func (s *Service) SetTicks(t TickRunner) {
	s.ticks = t
}

// IsAdmin проверяет список ADMIN_IDS.
func (s *Service) IsAdmin(userID int64) bool {
	return slices.Contains(s.adminIDs, userID)
}

// Login проверяет пароль и открывает сессию.
func (s *Service) Login(userID int64, password string) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	failed, _ := s.attempts.Get(userID)
	if failed >= MaxAttempts {
		return common.ErrTooManyAttempts
	}
	if s.hash == "" || !VerifyPassword(password, s.hash) {
		s.attempts.Add(userID, failed+1)
		log.WithFields(log.Fields{"user_id": userID, "attempt": failed + 1}).Warn("Неудачная попытка входа в админку")
		return common.ErrWrongPassword
	}
	s.attempts.Remove(userID)
	s.sessions.Add(userID, time.Now())
	log.WithField("user_id", userID).Info("Администратор вошёл")
	return nil
}

// Logout закрывает сессию.
func (s *Service) Logout(userID int64) {
	s.sessions.Remove(userID)
}

// Authorize проверяет, что у администратора открыта сессия.
func (s *Service) Authorize(userID int64) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	if _, ok := s.sessions.Get(userID); !ok {
		return common.ErrSessionExpired
	}
	return nil
}

// ActivateEffect включает серверный эффект вида бизнеса.
func (s *Service) ActivateEffect(ctx context.Context, adminID int64, typeKey string, d time.Duration) (business.Effect, error) {
	if err := s.Authorize(adminID); err != nil {
		return business.Effect{}, err
	}
	t, ok := business.TypeByKey(typeKey)
	if !ok {
		return business.Effect{}, common.Validation("такого вида бизнеса нет")
	}
	if d <= 0 {
		d = DefaultEffectDuration
	}
	return s.effects.Activate(ctx, t.EffectKey(), d, fmt.Sprintf("admin:%d", adminID))
}

// Give начисляет игроку деньги.
func (s *Service) Give(ctx context.Context, adminID, targetID, amount int64) error {
	if err := s.Authorize(adminID); err != nil {
		return err
	}
	if err := s.ledger.Credit(ctx, targetID, amount, economy.TxAdminGive, "выдано администратором"); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "user_id": targetID, "amount": amount}).Info("Админ выдал деньги")
	return nil
}

// Take списывает деньги, но не больше наличных. Возвращает списанное.
func (s *Service) Take(ctx context.Context, adminID, targetID, amount int64) (int64, error) {
	if err := s.Authorize(adminID); err != nil {
		return 0, err
	}
	taken, err := s.ledger.DebitUpTo(ctx, targetID, amount, economy.TxAdminTake, "списано администратором")
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "user_id": targetID, "amount": taken}).Info("Админ списал деньги")
	return taken, nil
}

// Warn выдаёт предупреждение. Возвращает их общее число.
func (s *Service) Warn(ctx context.Context, adminID, targetID int64, reason string) (int, error) {
	if err := s.Authorize(adminID); err != nil {
		return 0, err
	}
	if reason == "" {
		reason = "без причины"
	}
	return s.ledger.AddWarn(ctx, targetID, adminID, reason)
}

// RunTick запускает тик по имени.
func (s *Service) RunTick(ctx context.Context, adminID int64, name string) (string, error) {
	if err := s.Authorize(adminID); err != nil {
		return "", err
	}
	if s.ticks == nil {
		return "", common.Conflict("планировщик не запущен")
	}
	log.WithFields(log.Fields{"admin_id": adminID, "tick": name}).Info("Админ запускает тик")
	return s.ticks.RunNow(ctx, name)
}

// TickNames — доступные тики.
func (s *Service) TickNames() []string {
	if s.ticks == nil {
		return nil
	}
	return s.ticks.TickNames()
}
