// Package store owns the Postgres schema and every operation the pipeline
// performs on it. Migrations run before the pool opens, so a Store handle
// always sees the current schema.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var ErrMigrateFailed = errors.New("migration failed")

type Config struct {
	ConnString     string
	MigrationsPath string
}

type Store struct {
	pool *pgxpool.Pool
}

func Init(ctx context.Context, cfg Config) (*Store, error) {
	if err := runMigrations(ctx, cfg); err != nil {
		return nil, err
	}

	pool, err := pgxpool.Connect(ctx, cfg.ConnString)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func runMigrations(ctx context.Context, cfg Config) error {
	const fn = "Store:runMigrations"
	slog.InfoContext(ctx, "Running database migrations...", "path", cfg.MigrationsPath)

	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.ConnString)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrMigrateFailed, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s:%w:%w", fn, ErrMigrateFailed, err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
