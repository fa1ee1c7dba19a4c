// Package efficiency — service.go ведёт показатели игроков: записывает
// завершённые заказы и раз в минуту пересчитывает показатель.
package efficiency

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Service — модель эффективности.
type Service struct {
	mu     sync.Mutex
	st     store.Store
	scores map[int64]*Score
}

// NewService загружает набор efficiency.
func NewService(ctx context.Context, st store.Store) (*Service, error) {
	s := &Service{st: st, scores: make(map[int64]*Score)}
	if err := store.LoadOrInit(ctx, st, store.DatasetEfficiency, &s.scores); err != nil {
		return nil, fmt.Errorf("ошибка загрузки приемера: %w", err)
	}
	if s.scores == nil {
		s.scores = make(map[int64]*Score)
	}
	return s, nil
}

// Get возвращает текущий показатель игрока.
func (s *Service) Get(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.scores[userID]; ok {
		return sc.Value
	}
	return 0
}

// Record запоминает завершённый заказ размера size до следующего тика.
func (s *Service) Record(ctx context.Context, userID int64, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scores[userID]
	if !ok {
		sc = &Score{}
		s.scores[userID] = sc
	}
	sc.Recent = append(sc.Recent, size)
	if err := s.st.Save(ctx, store.DatasetEfficiency, s.scores); err != nil {
		sc.Recent = sc.Recent[:len(sc.Recent)-1]
		if !ok {
			delete(s.scores, userID)
		}
		return fmt.Errorf("ошибка сохранения приемера: %w", err)
	}
	return nil
}

// Tick пересчитывает показатели всех игроков и очищает недавнюю историю.
// Пересчёт идёт на копии: при ошибке записи показатели остаются прежними,
// и недавние заказы учтутся следующим тиком.
func (s *Service) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[int64]*Score, len(s.scores))
	grown := 0
	for id, sc := range s.scores {
		c := *sc
		c.Recent = slices.Clone(sc.Recent)
		if len(c.Recent) > 0 {
			grown++
		}
		c.Step()
		next[id] = &c
	}
	if err := s.st.Save(ctx, store.DatasetEfficiency, next); err != nil {
		return fmt.Errorf("ошибка сохранения приемера: %w", err)
	}
	s.scores = next
	if grown > 0 {
		log.WithFields(log.Fields{"tick": "efficiency", "grown": grown}).Debug("Приемер пересчитан")
	}
	return nil
}
