package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"otl-bot/api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	applied  int
	err      error
	migrated bool
	closed   bool
}

func (f *fakeMigrator) Migrate(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.migrated = true
	f.applied = store.SchemaVersion
	return nil
}

func (f *fakeMigrator) AppliedVersion(context.Context) (int, error) { return f.applied, f.err }

func (f *fakeMigrator) Shutdown() { f.closed = true }

// TestMigrate_MissingEnvFile tests that an env file named on the command line must exist
func TestMigrate_MissingEnvFile(t *testing.T) {
	f := &fakeMigrator{}
	var out bytes.Buffer
	app := newApp(&out, func(context.Context, string) (migrator, error) { return f, nil })
	err := app.Run([]string{"otl-migrate", "--env-file", "testdata/missing.env", "--dsn", "postgres://x", "migrate"})
	require.Error(t, err)
	assert.False(t, f.migrated)
}

func TestMigrate_AppliesSchema(t *testing.T) {
	f := &fakeMigrator{}
	var out bytes.Buffer
	var dsn string
	app := newApp(&out, func(_ context.Context, d string) (migrator, error) {
		dsn = d
		return f, nil
	})
	require.NoError(t, app.Run([]string{"otl-migrate", "--dsn", "postgres://localhost/otl", "migrate"}))
	assert.True(t, f.migrated)
	assert.True(t, f.closed)
	assert.Equal(t, "postgres://localhost/otl", dsn)
	assert.Contains(t, out.String(), "Schema is at version")
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		applied int
		want    string
	}{
		{"never applied", 0, "has not been applied"},
		{"up to date", store.SchemaVersion, "up to date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeMigrator{applied: tt.applied}
			var out bytes.Buffer
			app := newApp(&out, func(context.Context, string) (migrator, error) { return f, nil })
			require.NoError(t, app.Run([]string{"otl-migrate", "--dsn", "postgres://x", "status"}))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestStatus_StoreError(t *testing.T) {
	f := &fakeMigrator{err: errors.New("connection refused")}
	var out bytes.Buffer
	app := newApp(&out, func(context.Context, string) (migrator, error) { return f, nil })
	err := app.Run([]string{"otl-migrate", "--dsn", "postgres://x", "status"})
	assert.ErrorContains(t, err, "connection refused")
	assert.True(t, f.closed)
}
