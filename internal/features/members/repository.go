// Package members — repository.go хранит участников в наборе members.
package members

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Repository — участники в памяти с записью в store.
type Repository struct {
	mu      sync.RWMutex
	st      store.Store
	members map[int64]*Member
}

// NewRepository загружает набор members.
func NewRepository(ctx context.Context, st store.Store) (*Repository, error) {
	r := &Repository{st: st, members: make(map[int64]*Member)}
	if err := store.LoadOrInit(ctx, st, store.DatasetMembers, &r.members); err != nil {
		return nil, fmt.Errorf("ошибка загрузки участников: %w", err)
	}
	if r.members == nil {
		r.members = make(map[int64]*Member)
	}
	return r, nil
}

// GetByUserID возвращает копию участника или nil.
func (r *Repository) GetByUserID(userID int64) *Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[userID]
	if !ok {
		return nil
	}
	c := *m
	return &c
}

// GetByUsername ищет участника по @username без учёта регистра.
func (r *Repository) GetByUsername(username string) *Member {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if strings.ToLower(m.Username) == username {
			c := *m
			return &c
		}
	}
	return nil
}

// Upsert сохраняет участника.
func (r *Repository) Upsert(ctx context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.members[m.UserID]
	c := *m
	r.members[m.UserID] = &c
	if err := r.st.Save(ctx, store.DatasetMembers, r.members); err != nil {
		if had {
			r.members[m.UserID] = prev
		} else {
			delete(r.members, m.UserID)
		}
		return fmt.Errorf("ошибка сохранения участника: %w", err)
	}
	return nil
}
