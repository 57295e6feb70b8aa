package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmail_auth/internal/config"
	"webmail_auth/internal/storage/postgres/migrations"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		Postgres: config.Postgres{
			Host:     "db",
			Port:     5433,
			User:     "webmail",
			Password: "pw",
			DBName:   "mail",
			SSLMode:  "disable",
		},
	}

	assert.Equal(t, "host=db port=5433 user=webmail password=pw dbname=mail sslmode=disable", dsn(cfg))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}

	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", dup)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "00001_create_users.sql")
}

func TestRunMigrations(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, runMigrations(context.Background(), nil))
	assert.Equal(t, ".", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, runMigrations(context.Background(), nil), "boom")
}
