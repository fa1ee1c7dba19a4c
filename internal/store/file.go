package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

// FileStore хранит каждый набор данных отдельным JSON-файлом в каталоге.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore создаёт каталог (если нужно) и возвращает хранилище.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(dataset string) string {
	return filepath.Join(s.dir, dataset+".json")
}

func (s *FileStore) Load(_ context.Context, dataset string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(s.path(dataset))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка чтения %s: %w", dataset, err)
	}
	if len(b) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("повреждён набор %s: %w", dataset, err)
	}
	return nil
}

// Save пишет во временный файл и переименовывает его поверх старого,
// чтобы падение посреди записи не оставило обрезанный JSON.
func (s *FileStore) Save(_ context.Context, dataset string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", dataset, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path(dataset) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", dataset, err)
	}
	if err := os.Rename(tmp, s.path(dataset)); err != nil {
		return fmt.Errorf("ошибка замены %s: %w", dataset, err)
	}
	log.WithFields(log.Fields{"dataset": dataset, "bytes": len(b)}).Trace("набор сохранён")
	return nil
}
