// Copyright (c) 2026 Blood Bridge. All rights reserved.

package migration_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/platform/migration"
)

func TestPgx5DSN(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"postgres://u:p@db:5432/portal", "pgx5://u:p@db:5432/portal"},
		{"postgresql://u@db/portal?sslmode=disable", "pgx5://u@db/portal?sslmode=disable"},
		{"pgx5://u@db/portal", "pgx5://u@db/portal"},
		{"host=db user=u", "host=db user=u"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, migration.Pgx5DSN(tt.input))
		})
	}
}

func TestSource_Embedded(t *testing.T) {
	driver, origin, err := migration.Source("")
	require.NoError(t, err)
	defer driver.Close()

	assert.Equal(t, "embedded", origin)

	first, err := driver.First()
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)

	up, identifier, err := driver.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "portal_sessions", identifier)

	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS portal_sessions")

	next, err := driver.Next(first)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next)

	rekey, identifier, err := driver.ReadUp(next)
	require.NoError(t, err)
	defer rekey.Close()
	assert.Equal(t, "portal_sessions_hashed_id", identifier)

	body, err = io.ReadAll(rekey)
	require.NoError(t, err)
	assert.Contains(t, string(body), "RENAME COLUMN id TO id_hash")
}

func TestSource_MissingDirectory(t *testing.T) {
	_, _, err := migration.Source(t.TempDir() + "/absent")
	assert.Error(t, err)
}
