// Package work — repository.go хранит активные сессии в наборе sessions.
package work

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Repository — активные сессии по id владельца.
type Repository struct {
	mu       sync.Mutex
	st       store.Store
	sessions map[int64]*Session
}

// NewRepository загружает сессии, пережившие перезапуск.
func NewRepository(ctx context.Context, st store.Store) (*Repository, error) {
	r := &Repository{st: st, sessions: make(map[int64]*Session)}
	if err := store.LoadOrInit(ctx, st, store.DatasetSessions, &r.sessions); err != nil {
		return nil, fmt.Errorf("ошибка загрузки сессий: %w", err)
	}
	if r.sessions == nil {
		r.sessions = make(map[int64]*Session)
	}
	return r, nil
}

// Get возвращает копию сессии игрока.
func (r *Repository) Get(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Put сохраняет сессию. При ошибке записи в памяти остаётся прежняя версия.
func (r *Repository) Put(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.sessions[s.UserID]
	r.sessions[s.UserID] = s.Clone()
	if err := r.st.Save(ctx, store.DatasetSessions, r.sessions); err != nil {
		if had {
			r.sessions[s.UserID] = prev
		} else {
			delete(r.sessions, s.UserID)
		}
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return nil
}

// Delete удаляет сессию безусловно. Ошибка записи только логируется:
// удалённая сессия не должна вернуться и быть оплачена второй раз.
func (r *Repository) Delete(ctx context.Context, userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; !ok {
		return false
	}
	delete(r.sessions, userID)
	if err := r.st.Save(ctx, store.DatasetSessions, r.sessions); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка сохранения после удаления сессии")
	}
	return true
}

// All возвращает копии всех сессий.
func (r *Repository) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	return out
}
