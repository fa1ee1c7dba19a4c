// Package store — внешнее хранилище ядра. Каждая семья сущностей лежит
// одним документом (dataset) и всегда перезаписывается целиком:
// без частичных записей и транзакций, последняя запись побеждает.
package store

import (
	"context"
	"errors"
)

// Имена наборов данных.
const (
	DatasetAccounts   = "accounts"
	DatasetMembers    = "members"
	DatasetLoans      = "loans"
	DatasetBusinesses = "businesses"
	DatasetEffects    = "effects"
	DatasetEfficiency = "efficiency"
	DatasetSessions   = "sessions"
	DatasetCasino     = "casino"
)

// ErrNotFound — набор данных ещё ни разу не сохранялся.
var ErrNotFound = errors.New("dataset not found")

// Store загружает и сохраняет документы целиком.
type Store interface {
	// Load декодирует документ dataset в v. Если документа нет — ErrNotFound.
	Load(ctx context.Context, dataset string, v any) error
	// Save сериализует v и заменяет документ dataset целиком.
	Save(ctx context.Context, dataset string, v any) error
}

// LoadOrInit загружает документ, а при его отсутствии оставляет v как есть.
func LoadOrInit(ctx context.Context, s Store, dataset string, v any) error {
	err := s.Load(ctx, dataset, v)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
