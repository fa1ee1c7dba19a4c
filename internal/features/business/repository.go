package business

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Repository — бизнесы по id владельца (набор businesses).
type Repository struct {
	mu     sync.Mutex
	st     store.Store
	owners map[int64][]*Business
}

// NewRepository загружает бизнесы.
func NewRepository(ctx context.Context, st store.Store) (*Repository, error) {
	r := &Repository{st: st, owners: make(map[int64][]*Business)}
	if err := store.LoadOrInit(ctx, st, store.DatasetBusinesses, &r.owners); err != nil {
		return nil, fmt.Errorf("ошибка загрузки бизнесов: %w", err)
	}
	if r.owners == nil {
		r.owners = make(map[int64][]*Business)
	}
	return r, nil
}

func cloneAll(list []*Business) []*Business {
	out := make([]*Business, len(list))
	for i, b := range list {
		out[i] = b.Clone()
	}
	return out
}

// List возвращает копии бизнесов игрока в порядке покупки.
func (r *Repository) List(ownerID int64) []*Business {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.owners[ownerID])
}

// Put заменяет список бизнесов игрока. Пустой список удаляет запись.
// При ошибке записи в памяти остаётся прежний список.
func (r *Repository) Put(ctx context.Context, ownerID int64, list []*Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.owners[ownerID]
	if len(list) == 0 {
		delete(r.owners, ownerID)
	} else {
		r.owners[ownerID] = cloneAll(list)
	}
	if err := r.st.Save(ctx, store.DatasetBusinesses, r.owners); err != nil {
		if had {
			r.owners[ownerID] = prev
		} else {
			delete(r.owners, ownerID)
		}
		return fmt.Errorf("ошибка сохранения бизнесов: %w", err)
	}
	return nil
}

// Owners возвращает владельцев по возрастанию id.
func (r *Repository) Owners() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.owners))
	for id := range r.owners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
