// Package postgres — migrate.go доводит схему хранилища до последней версии.
package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// migrateLockID — ключ advisory-lock: два процесса бота не мигрируют одновременно.
const migrateLockID = 7_300_451

// Migration — одна версия схемы.
type Migration struct {
	Version int
	SQL     string
}

// Migrate применяет недостающие версии одной транзакцией: либо схема
// доходит до последней версии, либо не меняется вовсе.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	var applied []int
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrateLockID); err != nil {
			return fmt.Errorf("ошибка блокировки миграций: %w", err)
		}

		rows, err := tx.Query(ctx, "SELECT version FROM schema_migrations")
		if err != nil {
			return fmt.Errorf("ошибка чтения версий: %w", err)
		}
		done, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return fmt.Errorf("ошибка чтения версий: %w", err)
		}

		todo, err := pending(done, migrations)
		if err != nil {
			return err
		}
		for _, m := range todo {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("миграция %d: %w", m.Version, err)
			}
			if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
				return fmt.Errorf("ошибка записи версии %d: %w", m.Version, err)
			}
			applied = append(applied, m.Version)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		log.Debug("Схема хранилища актуальна")
		return nil
	}
	log.WithField("versions", applied).Info("Миграции применены")
	return nil
}

// pending возвращает ещё не применённые миграции по возрастанию версии.
func pending(applied []int, migrations []Migration) ([]Migration, error) {
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	seen := make(map[int]bool, len(migrations))
	var out []Migration
	for _, m := range migrations {
		if m.Version <= 0 {
			return nil, fmt.Errorf("некорректная версия миграции: %d", m.Version)
		}
		if seen[m.Version] {
			return nil, fmt.Errorf("версия миграции %d повторяется", m.Version)
		}
		seen[m.Version] = true
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
