// Package database opens PostgreSQL connections, runs goose migrations and scopes transactions.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/Proton-105/cuteforcute-bot/migrations"
)

var gooseSetup sync.Once

// Migrator applies the embedded goose migrations.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
	fs  fs.FS
}

// NewMigrator constructs a Migrator that logs through the provided logger instance.
func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{
		db:  db,
		log: log,
		fs:  migrations.FS,
	}
}

func (m *Migrator) setup() error {
	var err error
	gooseSetup.Do(func() {
		goose.SetBaseFS(m.fs)
		goose.SetLogger(&gooseLogger{log: m.log})
		err = goose.SetDialect("postgres")
	})
	return err
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return fmt.Errorf("goose setup: %w", err)
	}
	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err == nil {
		m.log.Info("database migrations applied", slog.Int64("version", version))
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return fmt.Errorf("goose setup: %w", err)
	}
	if err := goose.DownContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// Status logs the state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return fmt.Errorf("goose setup: %w", err)
	}
	return goose.StatusContext(ctx, m.db, ".")
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if err := m.setup(); err != nil {
		return 0, fmt.Errorf("goose setup: %w", err)
	}
	return goose.GetDBVersionContext(ctx, m.db)
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(fmt.Sprintf(format, v...), slog.String("component", "goose"))
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), slog.String("component", "goose"))
	panic(fmt.Sprintf(format, v...))
}
