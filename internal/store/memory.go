package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore держит документы в памяти. Значения сериализуются в JSON,
// поэтому загрузка всегда отдаёт независимую копию, как и файловое хранилище.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	saves map[string]int
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string][]byte),
		saves: make(map[string]int),
	}
}

func (s *MemoryStore) Load(_ context.Context, dataset string, v any) error {
	s.mu.RLock()
	b, ok := s.docs[dataset]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(b, v)
}

func (s *MemoryStore) Save(_ context.Context, dataset string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[dataset] = b
	s.saves[dataset]++
	s.mu.Unlock()
	return nil
}

// Saves возвращает, сколько раз сохранялся набор (для тестов).
func (s *MemoryStore) Saves(dataset string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[dataset]
}
