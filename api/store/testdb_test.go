/* testdb_test.go
 * Contains test helpers that start a postgres container once per package run and seed teams and players
 */

package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"otl-bot/api/cache"
	"otl-bot/api/shared"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

func startPostgres(ctx context.Context) (string, error) {
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		return dsn, nil
	}
	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("otl_test"),
		postgres.WithUsername("otl"),
		postgres.WithPassword("otl"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start postgres container: %w", err)
	}
	return pg.ConnectionString(ctx, "sslmode=disable")
}

// NewTestStore returns a migrated Store on an empty database. Skipped in short mode or without docker.
func NewTestStore(t *testing.T) (*Store, *cache.Recorder) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if os.Getenv("POSTGRES_TEST_DSN") == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	ctx := context.Background()
	containerOnce.Do(func() {
		containerDSN, containerErr = startPostgres(ctx)
	})
	require.NoError(t, containerErr)

	pool, err := pgxpool.New(ctx, containerDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)

	rec := &cache.Recorder{}
	s := NewWithPool(pool, rec, nil)
	require.NoError(t, s.Migrate(ctx))
	return s, rec
}

// seedTeam inserts a team with the given home maps and a founder, returning the team
func seedTeam(t *testing.T, s *Store, faker *gofakeit.Faker, homeMaps ...string) shared.Team {
	t.Helper()
	ctx := context.Background()
	name := faker.Company() + " " + faker.LetterN(4)
	tag := faker.LetterN(5)

	var id int
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO teams (name, tag, color, timezone) VALUES ($1, $2, $3, 'America/New_York') RETURNING id`,
		name, tag, faker.IntRange(0, 0xFFFFFF)).Scan(&id)
	require.NoError(t, err)

	for i, m := range homeMaps {
		_, err := s.Pool.Exec(ctx, `INSERT INTO team_home_maps (team_id, number, map) VALUES ($1, $2, $3)`, id, i+1, m)
		require.NoError(t, err)
	}
	seedPlayer(t, s, faker, shared.TeamID(id), shared.RoleFounder)
	return shared.Team{ID: shared.TeamID(id), Name: name, Tag: tag, HomeMaps: homeMaps}
}

func seedPlayer(t *testing.T, s *Store, faker *gofakeit.Faker, team shared.TeamID, role shared.Role) shared.Player {
	t.Helper()
	ctx := context.Background()
	p := shared.Player{Name: faker.Username() + faker.LetterN(3), DiscordID: faker.DigitN(18), TeamID: team, Role: role}
	var id int
	require.NoError(t, s.Pool.QueryRow(ctx, `INSERT INTO players (discord_id, name) VALUES ($1, $2) RETURNING id`, p.DiscordID, p.Name).Scan(&id))
	p.ID = shared.PlayerID(id)
	_, err := s.Pool.Exec(ctx, `INSERT INTO roster (player_id, team_id, role) VALUES ($1, $2, $3)`, id, int(team), string(role))
	require.NoError(t, err)
	return p
}

func setPenalties(t *testing.T, s *Store, team shared.TeamID, remaining int) {
	t.Helper()
	_, err := s.Pool.Exec(context.Background(), `
		INSERT INTO team_penalties (team_id, penalties_remaining, date_penalized) VALUES ($1, $2, now())
		ON CONFLICT (team_id) DO UPDATE SET penalties_remaining = EXCLUDED.penalties_remaining`, int(team), remaining)
	require.NoError(t, err)
}

func penalties(t *testing.T, s *Store, team shared.TeamID) int {
	t.Helper()
	var remaining int
	require.NoError(t, s.Pool.QueryRow(context.Background(), `SELECT penalties_remaining FROM team_penalties WHERE team_id = $1`, int(team)).Scan(&remaining))
	return remaining
}
