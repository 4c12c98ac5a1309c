// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package dberr classifies PostgreSQL driver errors so stores can map them to
// their own sentinels without matching on SQLSTATE strings.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

// IsUndefinedTable reports whether the statement hit a table that does not
// exist, which usually means migrations have not run.
func IsUndefinedTable(err error) bool {
	return hasCode(err, pgerrcode.UndefinedTable)
}

// Wrap prefixes err with the failed operation, keeping the chain intact.
// A nil err stays nil.
func Wrap(err error, operation string) error {
	if err == nil {
		return nil
	}
	if IsUndefinedTable(err) {
		return fmt.Errorf("%s: table missing, run migrations: %w", operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
