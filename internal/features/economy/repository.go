// Package economy — repository.go хранит аккаунты в памяти и сбрасывает
// весь набор в store после каждого изменения.
package economy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Repository — хранилище аккаунтов.
//
// Каждая операция Update атомарна: изменения применяются к копии,
// и только после успешного Save копия заменяет оригинал.
type Repository struct {
	mu       sync.Mutex
	st       store.Store
	accounts map[int64]*Account
}

// NewRepository загружает набор accounts из store.
func NewRepository(ctx context.Context, st store.Store) (*Repository, error) {
	r := &Repository{st: st, accounts: make(map[int64]*Account)}
	if err := store.LoadOrInit(ctx, st, store.DatasetAccounts, &r.accounts); err != nil {
		return nil, fmt.Errorf("ошибка загрузки аккаунтов: %w", err)
	}
	if r.accounts == nil {
		r.accounts = make(map[int64]*Account)
	}
	return r, nil
}

// Get возвращает копию аккаунта.
func (r *Repository) Get(userID int64) (*Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// IDs возвращает id всех аккаунтов по возрастанию.
func (r *Repository) IDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Update применяет fn к аккаунтам ids. Отсутствующие аккаунты создаются
// через create. Если fn или сохранение вернули ошибку, ничего не меняется.
func (r *Repository) Update(ctx context.Context, ids []int64, create func(id int64) *Account, fn func(accs map[int64]*Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := make(map[int64]*Account, len(ids))
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			work[id] = a.Clone()
		} else {
			work[id] = create(id)
		}
	}
	if err := fn(work); err != nil {
		return err
	}

	prev := make(map[int64]*Account, len(work))
	for id, a := range work {
		prev[id] = r.accounts[id]
		r.accounts[id] = a
	}
	if err := r.st.Save(ctx, store.DatasetAccounts, r.accounts); err != nil {
		for id, a := range prev {
			if a == nil {
				delete(r.accounts, id)
			} else {
				r.accounts[id] = a
			}
		}
		return fmt.Errorf("ошибка сохранения аккаунтов: %w", err)
	}
	return nil
}

// Sweep применяет fn к каждому существующему аккаунту по отдельности.
// Ошибка одного аккаунта откатывает только его; набор сохраняется один раз.
func (r *Repository) Sweep(ctx context.Context, fn func(a *Account) error) (map[int64]error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := make(map[int64]error)
	prev := make(map[int64]*Account, len(r.accounts))
	for id, a := range r.accounts {
		c := a.Clone()
		if err := fn(c); err != nil {
			failed[id] = err
			continue
		}
		prev[id] = a
		r.accounts[id] = c
	}
	if err := r.st.Save(ctx, store.DatasetAccounts, r.accounts); err != nil {
		for id, a := range prev {
			r.accounts[id] = a
		}
		return failed, fmt.Errorf("ошибка сохранения аккаунтов: %w", err)
	}
	return failed, nil
}
