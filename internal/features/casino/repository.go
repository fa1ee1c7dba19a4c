// Package casino — repository.go хранит статистику игроков в наборе casino.
package casino

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Repository — статистика казино.
type Repository struct {
	mu    sync.Mutex
	st    store.Store
	stats map[int64]*Stats
}

// NewRepository загружает статистику из store.
func NewRepository(ctx context.Context, st store.Store) (*Repository, error) {
	r := &Repository{st: st, stats: make(map[int64]*Stats)}
	if err := store.LoadOrInit(ctx, st, store.DatasetCasino, &r.stats); err != nil {
		return nil, fmt.Errorf("ошибка загрузки статистики казино: %w", err)
	}
	if r.stats == nil {
		r.stats = make(map[int64]*Stats)
	}
	return r, nil
}

// UpdateStats учитывает одну сыгранную игру.
func (r *Repository) UpdateStats(ctx context.Context, userID int64, s Settlement, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.stats[userID]
	if !ok {
		cur = &Stats{UserID: userID}
		r.stats[userID] = cur
	}
	cur.Games++
	cur.Wagered += s.Bet
	cur.Won += s.Gross
	cur.TaxPaid += s.Tax
	if p := s.Profit(); p > cur.BiggestWin {
		cur.BiggestWin = p
	}
	cur.UpdatedAt = now

	if err := r.st.Save(ctx, store.DatasetCasino, r.stats); err != nil {
		return fmt.Errorf("ошибка сохранения статистики казино: %w", err)
	}
	return nil
}

// GetStatsOrDefault возвращает статистику или пустую запись.
func (r *Repository) GetStatsOrDefault(userID int64) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[userID]; ok {
		return *s
	}
	return Stats{UserID: userID}
}
