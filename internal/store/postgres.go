package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore хранит каждый набор данных одной строкой JSONB в таблице datasets.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore создаёт хранилище поверх пула соединений.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// MigrationDatasets — схема для PostgresStore.
const MigrationDatasets = `
CREATE TABLE IF NOT EXISTS datasets (
    name VARCHAR(64) PRIMARY KEY,
    doc JSONB NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
);
`

func (s *PostgresStore) Load(ctx context.Context, dataset string, v any) error {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM datasets WHERE name = $1`, dataset).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка чтения набора %s: %w", dataset, err)
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("повреждён набор %s: %w", dataset, err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, dataset string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", dataset, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO datasets (name, doc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`, dataset, doc)
	if err != nil {
		return fmt.Errorf("ошибка записи набора %s: %w", dataset, err)
	}
	return nil
}
