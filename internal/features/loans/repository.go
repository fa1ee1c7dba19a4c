package loans

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Repository — активные кредиты по id игрока (набор loans).
type Repository struct {
	mu    sync.Mutex
	st    store.Store
	loans map[int64]*Loan
}

// NewRepository загружает кредиты.
func NewRepository(ctx context.Context, st store.Store) (*Repository, error) {
	r := &Repository{st: st, loans: make(map[int64]*Loan)}
	if err := store.LoadOrInit(ctx, st, store.DatasetLoans, &r.loans); err != nil {
		return nil, fmt.Errorf("ошибка загрузки кредитов: %w", err)
	}
	if r.loans == nil {
		r.loans = make(map[int64]*Loan)
	}
	return r, nil
}

// Get возвращает копию кредита игрока.
func (r *Repository) Get(userID int64) (*Loan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[userID]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Put сохраняет кредит; nil удаляет. При ошибке записи состояние
// в памяти откатывается.
func (r *Repository) Put(ctx context.Context, userID int64, l *Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.loans[userID]
	if l == nil {
		delete(r.loans, userID)
	} else {
		r.loans[userID] = l.Clone()
	}
	if err := r.st.Save(ctx, store.DatasetLoans, r.loans); err != nil {
		if had {
			r.loans[userID] = prev
		} else {
			delete(r.loans, userID)
		}
		return fmt.Errorf("ошибка сохранения кредитов: %w", err)
	}
	return nil
}

// UserIDs возвращает должников по возрастанию id.
func (r *Repository) UserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.loans))
	for id := range r.loans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
