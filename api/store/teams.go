/* teams.go
 * Contains the team and player reads the challenge engine and command layer need, plus disbandment and rating
 * recompute requests
 */

package store

import (
	"context"
	"fmt"
	"time"

	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/shared"

	"github.com/jackc/pgx/v5"
)

const teamColumns = `id, name, tag, color, timezone, role_id, channel_id, disbanded`

func scanTeam(row pgx.CollectableRow) (shared.Team, error) {
	var t shared.Team
	var id int
	err := row.Scan(&id, &t.Name, &t.Tag, &t.Color, &t.Timezone, &t.RoleID, &t.ChannelID, &t.Disbanded)
	t.ID = shared.TeamID(id)
	return t, err
}

// GetTeam returns a team, including its home maps
func (s *Store) GetTeam(ctx context.Context, id shared.TeamID) (shared.Team, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, int(id))
	if err != nil {
		return shared.Team{}, fmt.Errorf("get team %d: %w", id, err)
	}
	team, err := pgx.CollectExactlyOneRow(rows, scanTeam)
	if err != nil {
		if isNoRows(err) {
			return shared.Team{}, fmt.Errorf("team %d: %w", id, ErrNotFound)
		}
		return shared.Team{}, fmt.Errorf("get team %d: %w", id, err)
	}

	rows, err = s.Pool.Query(ctx, `SELECT map FROM team_home_maps WHERE team_id = $1 ORDER BY number`, int(id))
	if err != nil {
		return shared.Team{}, fmt.Errorf("get home maps for team %d: %w", id, err)
	}
	if team.HomeMaps, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return shared.Team{}, fmt.Errorf("get home maps for team %d: %w", id, err)
	}
	return team, nil
}

// ListTeams returns every active team ordered by name, without home maps
func (s *Store) ListTeams(ctx context.Context) ([]shared.Team, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+teamColumns+` FROM teams WHERE NOT disbanded ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, scanTeam)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

const playerColumns = `p.id, p.name, p.discord_id, p.timezone, COALESCE(r.team_id, 0), COALESCE(r.role, '')`

func scanPlayer(row pgx.CollectableRow) (shared.Player, error) {
	var p shared.Player
	var id, team int
	var role string
	err := row.Scan(&id, &p.Name, &p.DiscordID, &p.Timezone, &team, &role)
	p.ID, p.TeamID, p.Role = shared.PlayerID(id), shared.TeamID(team), shared.Role(role)
	return p, err
}

// GetRoster returns the players on a team, leaders first
func (s *Store) GetRoster(ctx context.Context, team shared.TeamID) ([]shared.Player, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+playerColumns+`
		FROM roster r JOIN players p ON p.id = r.player_id
		WHERE r.team_id = $1
		ORDER BY CASE r.role WHEN 'founder' THEN 0 WHEN 'captain' THEN 1 ELSE 2 END, p.name`, int(team))
	if err != nil {
		return nil, fmt.Errorf("get roster for team %d: %w", team, err)
	}
	players, err := pgx.CollectRows(rows, scanPlayer)
	if err != nil {
		return nil, fmt.Errorf("get roster for team %d: %w", team, err)
	}
	return players, nil
}

// GetPlayerByDiscordID returns a player and their current team, if any
func (s *Store) GetPlayerByDiscordID(ctx context.Context, discordID string) (shared.Player, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+playerColumns+`
		FROM players p LEFT JOIN roster r ON r.player_id = p.id
		WHERE p.discord_id = $1`, discordID)
	if err != nil {
		return shared.Player{}, fmt.Errorf("get player %s: %w", discordID, err)
	}
	player, err := pgx.CollectExactlyOneRow(rows, scanPlayer)
	if err != nil {
		if isNoRows(err) {
			return shared.Player{}, fmt.Errorf("player %s: %w", discordID, ErrNotFound)
		}
		return shared.Player{}, fmt.Errorf("get player %s: %w", discordID, err)
	}
	return player, nil
}

// DisbandTeam disbands a team, empties its roster and bars its current leaders from leading again.
// Returns the leaders at the time of disbandment.
func (s *Store) DisbandTeam(ctx context.Context, team shared.TeamID, now time.Time) ([]shared.Player, error) {
	var leaders []shared.Player
	var members []int
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE teams SET disbanded = TRUE, date_disbanded = $2 WHERE id = $1`, int(team), now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		rows, err := tx.Query(ctx, `
			SELECT `+playerColumns+`
			FROM roster r JOIN players p ON p.id = r.player_id
			WHERE r.team_id = $1 AND r.role IN ('founder', 'captain')`, int(team))
		if err != nil {
			return err
		}
		if leaders, err = pgx.CollectRows(rows, scanPlayer); err != nil {
			return err
		}
		for _, l := range leaders {
			if _, err := tx.Exec(ctx, `
				INSERT INTO banned_leaders (player_id, date_banned) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				int(l.ID), now); err != nil {
				return err
			}
		}
		rows, err = tx.Query(ctx, `DELETE FROM roster WHERE team_id = $1 RETURNING player_id`, int(team))
		if err != nil {
			return err
		}
		members, err = pgx.CollectRows(rows, pgx.RowTo[int])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("disband team %d: %w", team, err)
	}

	keys := []cache.Key{cache.Team(int(team))}
	for _, m := range members {
		keys = append(keys, cache.Player(m))
	}
	s.invalidate(ctx, keys...)
	return leaders, nil
}

// RequestRatingRecompute queues a season rating recompute for team triggered by challenge id. The rating job is
// external and consumes rating_requests.
func (s *Store) RequestRatingRecompute(ctx context.Context, team shared.TeamID, id challenge.ID, now time.Time) error {
	if _, err := s.Pool.Exec(ctx, `
		INSERT INTO rating_requests (team_id, challenge_id, date_requested) VALUES ($1, $2, $3)`,
		int(team), int(id), now); err != nil {
		return fmt.Errorf("request rating recompute for team %d: %w", team, err)
	}
	s.invalidate(ctx, cache.Team(int(team)))
	return nil
}
