package business

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// Effects — общий для всех реестр серверных эффектов (набор effects).
// Истёкшие эффекты удаляются при каждом обращении.
type Effects struct {
	mu      sync.Mutex
	st      store.Store
	clock   clock.Clock
	effects map[string]*Effect
}

// NewEffects загружает эффекты.
func NewEffects(ctx context.Context, st store.Store, clk clock.Clock) (*Effects, error) {
	e := &Effects{st: st, clock: clk, effects: make(map[string]*Effect)}
	if err := store.LoadOrInit(ctx, st, store.DatasetEffects, &e.effects); err != nil {
		return nil, fmt.Errorf("ошибка загрузки эффектов: %w", err)
	}
	if e.effects == nil {
		e.effects = make(map[string]*Effect)
	}
	return e, nil
}

// prune удаляет истёкшие эффекты. Вызывается под mu.
func (e *Effects) prune(ctx context.Context, now time.Time) {
	removed := 0
	for k, eff := range e.effects {
		if !now.Before(eff.Until) {
			delete(e.effects, k)
			removed++
		}
	}
	if removed == 0 {
		return
	}
	if err := e.st.Save(ctx, store.DatasetEffects, e.effects); err != nil {
		log.WithError(err).WithField("dataset", store.DatasetEffects).Warn("Не удалось сохранить очистку эффектов")
	}
}

// Activate включает эффект на d. Если эффект уже активен, срок продлевается
// до более позднего.
func (e *Effects) Activate(ctx context.Context, key string, d time.Duration, source string) (Effect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	e.prune(ctx, now)
	prev, had := e.effects[key]
	next := &Effect{Key: key, Until: now.Add(d), Source: source, CreatedAt: now}
	if had && prev.Until.After(next.Until) {
		next.Until = prev.Until
	}
	e.effects[key] = next
	if err := e.st.Save(ctx, store.DatasetEffects, e.effects); err != nil {
		if had {
			e.effects[key] = prev
		} else {
			delete(e.effects, key)
		}
		return Effect{}, fmt.Errorf("ошибка сохранения эффектов: %w", err)
	}
	log.WithFields(log.Fields{"effect": key, "until": next.Until, "source": source}).Info("Серверный эффект активирован")
	return *next, nil
}

// IsActive проверяет эффект.
func (e *Effects) IsActive(ctx context.Context, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(ctx, e.clock.Now())
	_, ok := e.effects[key]
	return ok
}

// Active возвращает действующие эффекты по времени окончания.
func (e *Effects) Active(ctx context.Context) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(ctx, e.clock.Now())
	out := make([]Effect, 0, len(e.effects))
	for _, eff := range e.effects {
		out = append(out, *eff)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Until.Before(out[j].Until) })
	return out
}
