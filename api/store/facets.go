/* facets.go
 * Contains the setters for the negotiable facets of a challenge: map, server, team size and match time
 */

package store

import (
	"context"
	"fmt"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/shared"

	"github.com/jackc/pgx/v5"
)

// region map

// SetMap locks a map chosen by an admin. The home map team no longer applies.
func (s *Store) SetMap(ctx context.Context, id challenge.ID, mapName string) error {
	err := s.execChallenge(ctx, "set map", id, `
		UPDATE challenges
		SET map = $2, suggested_map = NULL, suggested_map_team_id = NULL, using_home_map_team = FALSE
		WHERE id = $1`, mapName)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// PickMap locks one of the challenge's home maps by its 1-based number and returns the map name
func (s *Store) PickMap(ctx context.Context, id challenge.ID, number int) (string, error) {
	var mapName string
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT map FROM challenge_home_maps WHERE challenge_id = $1 AND number = $2`, int(id), number).Scan(&mapName)
		if err != nil {
			if isNoRows(err) {
				return fmt.Errorf("home map %d: %w", number, ErrNotFound)
			}
			return fmt.Errorf("failed to read home map: %w", err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE challenges
			SET map = $2, suggested_map = NULL, suggested_map_team_id = NULL, using_home_map_team = TRUE
			WHERE id = $1`, int(id), mapName)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("pick map for challenge %d: %w", id, err)
	}
	s.invalidate(ctx)
	return mapName, nil
}

// SetHomeMapTeam changes the home map team and re-copies that team's current home maps into the challenge
func (s *Store) SetHomeMapTeam(ctx context.Context, id challenge.ID, team shared.TeamID) ([]string, error) {
	var maps []string
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE challenges
			SET home_map_team_id = $2, using_home_map_team = TRUE, map = NULL, suggested_map = NULL, suggested_map_team_id = NULL
			WHERE id = $1`, int(id), int(team))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if maps, err = teamHomeMaps(ctx, tx, team); err != nil {
			return err
		}
		return copyHomeMaps(ctx, tx, id, maps)
	})
	if err != nil {
		return nil, fmt.Errorf("set home map team for challenge %d: %w", id, err)
	}
	s.invalidate(ctx)
	return maps, nil
}

// SuggestMap records a neutral map suggestion, replacing any earlier one and unlocking the current map
func (s *Store) SuggestMap(ctx context.Context, id challenge.ID, team shared.TeamID, mapName string) error {
	err := s.execChallenge(ctx, "suggest map", id, `
		UPDATE challenges SET map = NULL, suggested_map = $3, suggested_map_team_id = $2 WHERE id = $1`,
		int(team), mapName)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ConfirmMap adopts the pending map suggestion and returns it
func (s *Store) ConfirmMap(ctx context.Context, id challenge.ID) (string, error) {
	var mapName string
	err := s.Pool.QueryRow(ctx, `
		UPDATE challenges
		SET map = suggested_map, suggested_map = NULL, suggested_map_team_id = NULL, using_home_map_team = FALSE
		WHERE id = $1 AND suggested_map IS NOT NULL
		RETURNING map`, int(id)).Scan(&mapName)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("confirm map for challenge %d: %w", id, ErrNothingPending)
		}
		return "", fmt.Errorf("confirm map for challenge %d: %w", id, err)
	}
	s.invalidate(ctx)
	return mapName, nil
}

// endregion

// region server

// SetHomeServerTeam makes team the home server team and drops any neutral server suggestion
func (s *Store) SetHomeServerTeam(ctx context.Context, id challenge.ID, team shared.TeamID) error {
	err := s.execChallenge(ctx, "set home server team", id, `
		UPDATE challenges
		SET home_server_team_id = $2, using_home_server_team = TRUE, suggested_neutral_server_team_id = NULL
		WHERE id = $1`, int(team))
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SuggestNeutralServer records that team wants a neutral server
func (s *Store) SuggestNeutralServer(ctx context.Context, id challenge.ID, team shared.TeamID) error {
	return s.execChallenge(ctx, "suggest neutral server", id, `
		UPDATE challenges SET suggested_neutral_server_team_id = $2 WHERE id = $1`, int(team))
}

// ConfirmNeutralServer adopts the pending neutral server suggestion
func (s *Store) ConfirmNeutralServer(ctx context.Context, id challenge.ID) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE challenges
		SET using_home_server_team = FALSE, suggested_neutral_server_team_id = NULL
		WHERE id = $1 AND suggested_neutral_server_team_id IS NOT NULL`, int(id))
	if err != nil {
		return fmt.Errorf("confirm neutral server for challenge %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("confirm neutral server for challenge %d: %w", id, ErrNothingPending)
	}
	s.invalidate(ctx)
	return nil
}

// endregion

// region team size

// SetTeamSize locks the team size and drops any pending suggestion
func (s *Store) SetTeamSize(ctx context.Context, id challenge.ID, size int) error {
	err := s.execChallenge(ctx, "set team size", id, `
		UPDATE challenges SET team_size = $2, suggested_team_size = NULL, suggested_team_size_team_id = NULL WHERE id = $1`, size)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SuggestTeamSize records a team size suggestion, replacing any earlier one
func (s *Store) SuggestTeamSize(ctx context.Context, id challenge.ID, team shared.TeamID, size int) error {
	return s.execChallenge(ctx, "suggest team size", id, `
		UPDATE challenges SET suggested_team_size = $3, suggested_team_size_team_id = $2 WHERE id = $1`, int(team), size)
}

// ConfirmTeamSize adopts the pending team size and returns it
func (s *Store) ConfirmTeamSize(ctx context.Context, id challenge.ID) (int, error) {
	var size int
	err := s.Pool.QueryRow(ctx, `
		UPDATE challenges
		SET team_size = suggested_team_size, suggested_team_size = NULL, suggested_team_size_team_id = NULL
		WHERE id = $1 AND suggested_team_size IS NOT NULL
		RETURNING team_size`, int(id)).Scan(&size)
	if err != nil {
		if isNoRows(err) {
			return 0, fmt.Errorf("confirm team size for challenge %d: %w", id, ErrNothingPending)
		}
		return 0, fmt.Errorf("confirm team size for challenge %d: %w", id, err)
	}
	s.invalidate(ctx)
	return size, nil
}

// endregion

// region time

// SetTime sets or clears the match time directly. Acknowledged notices are reset because they belonged to the old time.
func (s *Store) SetTime(ctx context.Context, id challenge.ID, t *time.Time) error {
	err := s.execChallenge(ctx, "set time", id, `
		UPDATE challenges
		SET match_time = $2, suggested_time = NULL, suggested_time_team_id = NULL,
			date_match_time_notified = NULL, date_match_time_passed_notified = NULL
		WHERE id = $1`, t)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SuggestTime records a match time suggestion, replacing any earlier one
func (s *Store) SuggestTime(ctx context.Context, id challenge.ID, team shared.TeamID, t time.Time) error {
	return s.execChallenge(ctx, "suggest time", id, `
		UPDATE challenges SET suggested_time = $3, suggested_time_team_id = $2 WHERE id = $1`, int(team), t)
}

// ConfirmTime adopts the pending match time and returns it
func (s *Store) ConfirmTime(ctx context.Context, id challenge.ID) (time.Time, error) {
	var t time.Time
	err := s.Pool.QueryRow(ctx, `
		UPDATE challenges
		SET match_time = suggested_time, suggested_time = NULL, suggested_time_team_id = NULL,
			date_match_time_notified = NULL, date_match_time_passed_notified = NULL
		WHERE id = $1 AND suggested_time IS NOT NULL
		RETURNING match_time`, int(id)).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, fmt.Errorf("confirm time for challenge %d: %w", id, ErrNothingPending)
		}
		return time.Time{}, fmt.Errorf("confirm time for challenge %d: %w", id, err)
	}
	s.invalidate(ctx)
	return t, nil
}

// endregion
