package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"waterflow/pkg/config"
	"waterflow/pkg/logger"
)

// Migrator применяет goose-миграции из встроенной файловой системы
type Migrator struct {
	pool       *pgxpool.Pool
	migrations embed.FS
	dir        string
}

// NewMigrator создаёт мигратор поверх пула соединений
func NewMigrator(pool *pgxpool.Pool, migrations embed.FS, dir string) *Migrator {
	return &Migrator{
		pool:       pool,
		migrations: migrations,
		dir:        dir,
	}
}

// withGoose готовит goose и передаёт ему *sql.DB поверх пула.
// goose работает через database/sql, поэтому нужен stdlib-адаптер.
func (m *Migrator) withGoose(fn func(db *sql.DB) error) error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	goose.SetBaseFS(m.migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	return fn(db)
}

// Up применяет все недостающие миграции
func (m *Migrator) Up(ctx context.Context) error {
	err := m.withGoose(func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, m.dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Migrations applied successfully")
	return nil
}

// Down откатывает одну последнюю миграцию
func (m *Migrator) Down(ctx context.Context) error {
	err := m.withGoose(func(db *sql.DB) error {
		if err := goose.DownContext(ctx, db, m.dir); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Migration rolled back successfully")
	return nil
}

// Status печатает состояние миграций
func (m *Migrator) Status(ctx context.Context) error {
	return m.withGoose(func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, m.dir)
	})
}

// RunMigrations применяет миграции, если auto_migrate включён в конфигурации
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, cfg *config.DatabaseConfig, migrations embed.FS, dir string) error {
	if !cfg.AutoMigrate {
		logger.Log.Info("Auto-migration is disabled")
		return nil
	}

	return NewMigrator(pool, migrations, dir).Up(ctx)
}
