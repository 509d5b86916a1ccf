/* store.go
 * Contains the Store struct and New function. The methods for this package were split by concern: challenges
 * (create and lookups), facets (map/server/size/time negotiation), lifecycle (clock, report, close, void),
 * extras (caster, streamers, stats, rematch) and teams. Each file contains the SQL for that part of the database
 */

package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// SchemaVersion is bumped whenever schema.sql changes
const SchemaVersion = 1

const (
	createLockKey     = "otl_challenge_id"
	createLockTimeout = "10s"
)

type Store struct {
	Pool  *pgxpool.Pool
	Cache cache.Invalidator
	Log   *slog.Logger
	// Coin breaks creation ties, replaced in tests
	Coin logic.Coin
}

// New connects to postgres and returns a Store
// Preconditions: Receives a context, the postgres DSN, a cache invalidator and a logger (both may be nil)
// Postconditions: Returns a Store with a live pool, or an error if the DSN is invalid or the database is unreachable
func New(ctx context.Context, dsn string, inv cache.Invalidator, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn cannot be empty")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewWithPool(pool, inv, logger), nil
}

// NewWithPool wraps an existing pool
func NewWithPool(pool *pgxpool.Pool, inv cache.Invalidator, logger *slog.Logger) *Store {
	if inv == nil {
		inv = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{Pool: pool, Cache: inv, Log: logger, Coin: logic.RandomCoin}
}

// Shutdown releases the pool
func (s *Store) Shutdown() {
	s.Pool.Close()
}

// Migrate applies the embedded schema and records the schema version. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		current, err := schemaVersion(ctx, tx)
		if err != nil {
			return err
		}
		if current >= SchemaVersion {
			return nil
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// AppliedVersion returns the highest applied schema version, 0 if the schema was never applied
func (s *Store) AppliedVersion(ctx context.Context) (int, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT to_regclass('schema_version') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema: %w", err)
	}
	if !exists {
		return 0, nil
	}
	return schemaVersion(ctx, s.Pool)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func schemaVersion(ctx context.Context, q querier) (int, error) {
	var version int
	if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// execChallenge runs a single statement against one challenge row and reports ErrNotFound when nothing matched
func (s *Store) execChallenge(ctx context.Context, op string, id challenge.ID, sql string, args ...any) error {
	tag, err := s.Pool.Exec(ctx, sql, append([]any{int(id)}, args...)...)
	if err != nil {
		return fmt.Errorf("%s for challenge %d: %w", op, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s for challenge %d: %w", op, id, ErrNotFound)
	}
	return nil
}

func (s *Store) invalidate(ctx context.Context, keys ...cache.Key) {
	if len(keys) == 0 {
		keys = []cache.Key{cache.Challenge()}
	}
	s.Cache.Invalidate(ctx, keys...)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

// nullable conversions between the domain's zero values and SQL NULL

func teamArg(t shared.TeamID) any {
	if t == 0 {
		return nil
	}
	return int(t)
}

func textArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func teamVal(v pgtype.Int4) shared.TeamID {
	if !v.Valid {
		return 0
	}
	return shared.TeamID(v.Int32)
}

func intVal(v pgtype.Int4) int {
	if !v.Valid {
		return 0
	}
	return int(v.Int32)
}

func textVal(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func timeVal(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
