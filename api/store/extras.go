/* extras.go
 * Contains the auxiliary challenge setters: caster, streamers, title, VOD, postseason, overtime, rematch and stats
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

// SetCaster assigns a caster by discord ID, or removes the caster when discordID is empty
func (s *Store) SetCaster(ctx context.Context, id challenge.ID, discordID string) error {
	return s.execChallenge(ctx, "set caster", id, `UPDATE challenges SET caster_discord_id = $2 WHERE id = $1`, textArg(discordID))
}

// AddStreamer adds a streamer, adding the same streamer twice has no effect
func (s *Store) AddStreamer(ctx context.Context, id challenge.ID, discordID string) error {
	if _, err := s.Pool.Exec(ctx, `
		INSERT INTO challenge_streamers (challenge_id, discord_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		int(id), discordID); err != nil {
		return fmt.Errorf("add streamer for challenge %d: %w", id, err)
	}
	return nil
}

// RemoveStreamer removes a streamer if present
func (s *Store) RemoveStreamer(ctx context.Context, id challenge.ID, discordID string) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM challenge_streamers WHERE challenge_id = $1 AND discord_id = $2`, int(id), discordID); err != nil {
		return fmt.Errorf("remove streamer for challenge %d: %w", id, err)
	}
	return nil
}

func (s *Store) SetTitle(ctx context.Context, id challenge.ID, title string) error {
	if err := s.execChallenge(ctx, "set title", id, `UPDATE challenges SET title = $2 WHERE id = $1`, textArg(title)); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) SetVod(ctx context.Context, id challenge.ID, vod string) error {
	if err := s.execChallenge(ctx, "set vod", id, `UPDATE challenges SET vod = $2 WHERE id = $1`, textArg(vod)); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) SetPostseason(ctx context.Context, id challenge.ID, postseason bool) error {
	if err := s.execChallenge(ctx, "set postseason", id, `UPDATE challenges SET postseason = $2 WHERE id = $1`, postseason); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) SetOvertimePeriods(ctx context.Context, id challenge.ID, periods int) error {
	if err := s.execChallenge(ctx, "set overtime periods", id, `UPDATE challenges SET overtime_periods = $2 WHERE id = $1`, periods); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RequestRematch records that team wants a rematch
func (s *Store) RequestRematch(ctx context.Context, id challenge.ID, team shared.TeamID, now time.Time) error {
	return s.execChallenge(ctx, "request rematch", id, `
		UPDATE challenges SET rematch_team_id = $2, date_rematch_requested = $3 WHERE id = $1`, int(team), now)
}

// SetRematched records that the rematch was accepted
func (s *Store) SetRematched(ctx context.Context, id challenge.ID, now time.Time) error {
	return s.execChallenge(ctx, "set rematched", id, `UPDATE challenges SET date_rematched = $2 WHERE id = $1`, now)
}

// AddStat records or replaces one pilot's stat line
func (s *Store) AddStat(ctx context.Context, id challenge.ID, stat shared.Stat) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO challenge_stats (challenge_id, player_id, team_id, kills, assists, deaths, damage)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (challenge_id, player_id) DO UPDATE
		SET team_id = EXCLUDED.team_id, kills = EXCLUDED.kills, assists = EXCLUDED.assists,
			deaths = EXCLUDED.deaths, damage = EXCLUDED.damage`,
		int(id), int(stat.PlayerID), int(stat.TeamID), stat.Kills, stat.Assists, stat.Deaths, stat.Damage)
	if err != nil {
		return fmt.Errorf("add stat for challenge %d: %w", id, err)
	}
	s.invalidate(ctx, cache.Challenge(), cache.Player(int(stat.PlayerID)))
	return nil
}

// ClearStats removes every stat line for the challenge
func (s *Store) ClearStats(ctx context.Context, id challenge.ID) error {
	rows, err := s.Pool.Query(ctx, `DELETE FROM challenge_stats WHERE challenge_id = $1 RETURNING player_id`, int(id))
	if err != nil {
		return fmt.Errorf("clear stats for challenge %d: %w", id, err)
	}
	players, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return fmt.Errorf("clear stats for challenge %d: %w", id, err)
	}
	keys := []cache.Key{cache.Challenge()}
	for _, p := range players {
		keys = append(keys, cache.Player(p))
	}
	s.invalidate(ctx, keys...)
	return nil
}

// GetStats returns the stat lines for the challenge
func (s *Store) GetStats(ctx context.Context, id challenge.ID) ([]shared.Stat, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT player_id, team_id, kills, assists, deaths, damage
		FROM challenge_stats WHERE challenge_id = $1 ORDER BY team_id, player_id`, int(id))
	if err != nil {
		return nil, fmt.Errorf("get stats for challenge %d: %w", id, err)
	}
	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.Stat, error) {
		var st shared.Stat
		var player, team int
		err := row.Scan(&player, &team, &st.Kills, &st.Assists, &st.Deaths, &st.Damage)
		st.PlayerID, st.TeamID = shared.PlayerID(player), shared.TeamID(team)
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("get stats for challenge %d: %w", id, err)
	}
	return stats, nil
}
