// Package concurrency содержит блокировки ядра: именованные мьютексы
// на аккаунт и общий «мировой» замок, который фоновые тики берут целиком.
package concurrency

import (
	"slices"
	"strconv"
	"sync"
)

// LockManager выдаёт мьютекс по ключу.
type LockManager struct {
	locks sync.Map
}

// NewLockManager создаёт новый LockManager.
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock возвращает мьютекс для ключа.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Guard сериализует команды пользователей и фоновые тики.
// Команда держит RLock мира и мьютекс своего аккаунта,
// тик держит Lock мира на всё время обхода аккаунтов.
type Guard struct {
	world sync.RWMutex
	users *LockManager
}

// NewGuard создаёт Guard.
func NewGuard() *Guard {
	return &Guard{users: NewLockManager()}
}

// WithUser выполняет fn под замком аккаунта userID.
func (g *Guard) WithUser(userID int64, fn func() error) error {
	g.world.RLock()
	defer g.world.RUnlock()

	mu := g.users.GetLock(strconv.FormatInt(userID, 10))
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// WithUsers блокирует несколько аккаунтов в возрастающем порядке id
// (перевод между двумя игроками без взаимной блокировки).
func (g *Guard) WithUsers(ids []int64, fn func() error) error {
	g.world.RLock()
	defer g.world.RUnlock()

	sorted := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	slices.Sort(sorted)
	for _, id := range sorted {
		mu := g.users.GetLock(strconv.FormatInt(id, 10))
		mu.Lock()
		defer mu.Unlock()
	}
	return fn()
}

// Exclusive выполняет fn, пока ни одна команда не выполняется.
func (g *Guard) Exclusive(fn func() error) error {
	g.world.Lock()
	defer g.world.Unlock()
	return fn()
}
