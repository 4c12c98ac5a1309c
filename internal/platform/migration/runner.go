// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package migration applies the session schema with golang-migrate before the
// server accepts traffic. The schema ships inside the binary; a directory can
// replace it for local experiments.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk when a directory override is set.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

//go:embed sql/*.sql
var embedded embed.FS

// Source opens the migration source: the embedded schema when dir is empty,
// otherwise the .sql files under dir.
func Source(dir string) (source.Driver, string, error) {
	if dir == "" {
		driver, err := iofs.New(embedded, "sql")
		if err != nil {
			return nil, "", fmt.Errorf("migration: open embedded schema: %w", err)
		}
		return driver, "embedded", nil
	}

	driver, err := source.Open("file://" + dir)
	if err != nil {
		return nil, "", fmt.Errorf("migration: open %s: %w", dir, err)
	}
	return driver, dir, nil
}

// RunUp applies all pending UP migrations. A dirty database is reported and
// left alone; it needs an operator.
func RunUp(dsn string, dir string, logger *slog.Logger) error {
	sourceDriver, origin, err := Source(dir)
	if err != nil {
		return err
	}

	migrator, err := migrate.NewWithSourceInstance(origin, sourceDriver, Pgx5DSN(dsn))
	if err != nil {
		_ = sourceDriver.Close()
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceErr, databaseErr := migrator.Close()
		if closeErr := errors.Join(sourceErr, databaseErr); closeErr != nil {
			logger.Warn("migration_close_failed", slog.Any("error", closeErr))
		}
	}()
	migrator.Log = &migrateLogger{logger: logger}

	from, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("migration: read version: %w", err)
	case dirty:
		return fmt.Errorf("migration: database is dirty at version %d", from)
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migration_up_to_date", slog.String("source", origin), slog.Uint64("version", uint64(from)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration: up failed: %w", err)
	}

	to, _, _ := migrator.Version()
	logger.Info("migration_applied",
		slog.String("source", origin),
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}

// Pgx5DSN rewrites postgres:// and postgresql:// URLs to the pgx5:// scheme
// golang-migrate registers for pgx v5. Other values pass through.
func Pgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// migrateLogger forwards golang-migrate progress lines to slog at debug level.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug("migration_progress", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (l *migrateLogger) Verbose() bool { return false }
