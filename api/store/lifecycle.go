/* lifecycle.go
 * Contains the lifecycle setters: clock, extend, report, confirm, close, void (with and without penalties), unvoid
 * and the notification acknowledgements
 */

package store

import (
	"context"
	"fmt"
	"time"

	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Clock puts the challenge on the clock for team and returns the clock state
func (s *Store) Clock(ctx context.Context, id challenge.ID, team shared.TeamID, now time.Time) (ClockResult, error) {
	res := ClockResult{ClockedAt: now, Deadline: logic.ClockDeadline(now)}
	err := s.execChallenge(ctx, "clock", id, `
		UPDATE challenges
		SET clock_team_id = $2, date_clocked = $3, date_clock_deadline = $4, date_clock_deadline_notified = NULL
		WHERE id = $1`, int(team), res.ClockedAt, res.Deadline)
	if err != nil {
		return ClockResult{}, err
	}
	return res, nil
}

// Extend pushes an existing deadline to now + 14 days and clears the match time and any time suggestion.
// Returns the new deadline, nil when the challenge was never clocked.
func (s *Store) Extend(ctx context.Context, id challenge.ID, now time.Time) (*time.Time, error) {
	var deadline pgtype.Timestamptz
	err := s.Pool.QueryRow(ctx, `
		UPDATE challenges
		SET date_clock_deadline = CASE WHEN date_clock_deadline IS NULL THEN NULL ELSE $2::timestamptz END,
			date_clock_deadline_notified = NULL,
			match_time = NULL, suggested_time = NULL, suggested_time_team_id = NULL,
			date_match_time_notified = NULL, date_match_time_passed_notified = NULL
		WHERE id = $1
		RETURNING date_clock_deadline`, int(id), logic.ExtendedDeadline(now)).Scan(&deadline)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("extend challenge %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("extend challenge %d: %w", id, err)
	}
	s.invalidate(ctx)
	return timeVal(deadline), nil
}

// Report records the score reported by reportingTeam
func (s *Store) Report(ctx context.Context, id challenge.ID, reportingTeam shared.TeamID, challengingScore, challengedScore int, now time.Time) error {
	err := s.execChallenge(ctx, "report", id, `
		UPDATE challenges
		SET reporting_team_id = $2, challenging_team_score = $3, challenged_team_score = $4, date_reported = $5
		WHERE id = $1`, int(reportingTeam), challengingScore, challengedScore, now)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SetConfirmed confirms a reported score
func (s *Store) SetConfirmed(ctx context.Context, id challenge.ID, now time.Time) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE challenges SET date_confirmed = $2 WHERE id = $1 AND date_reported IS NOT NULL`, int(id), now)
	if err != nil {
		return fmt.Errorf("confirm challenge %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("confirm challenge %d: %w", id, ErrNotReported)
	}
	s.invalidate(ctx)
	return nil
}

// Close marks the challenge closed
func (s *Store) Close(ctx context.Context, id challenge.ID, now time.Time) error {
	return s.setTerminal(ctx, "close", id, `UPDATE challenges SET date_closed = $2 WHERE id = $1`, now, cache.Key{Event: cache.ChallengeClosed})
}

// Void marks the challenge voided
func (s *Store) Void(ctx context.Context, id challenge.ID, now time.Time) error {
	return s.setTerminal(ctx, "void", id, `UPDATE challenges SET date_voided = $2 WHERE id = $1`, now)
}

// Unvoid clears the voided date
func (s *Store) Unvoid(ctx context.Context, id challenge.ID) error {
	return s.setTerminal(ctx, "unvoid", id, `UPDATE challenges SET date_voided = NULL WHERE id = $1`)
}

// setTerminal runs a close/void style update and invalidates everything the challenge feeds: the challenge views,
// both teams and every pilot with stats in the match.
func (s *Store) setTerminal(ctx context.Context, op string, id challenge.ID, sql string, args ...any) error {
	var keys []cache.Key
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, append([]any{int(id)}, args...)...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		keys, err = affectedKeys(ctx, tx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s challenge %d: %w", op, id, err)
	}
	s.invalidate(ctx, keys...)
	return nil
}

func affectedKeys(ctx context.Context, tx pgx.Tx, id challenge.ID) ([]cache.Key, error) {
	keys := []cache.Key{cache.Challenge()}
	var challenging, challenged int
	if err := tx.QueryRow(ctx, `SELECT challenging_team_id, challenged_team_id FROM challenges WHERE id = $1`, int(id)).Scan(&challenging, &challenged); err != nil {
		return nil, err
	}
	keys = append(keys, cache.Team(challenging), cache.Team(challenged))
	rows, err := tx.Query(ctx, `SELECT player_id FROM challenge_stats WHERE challenge_id = $1`, int(id))
	if err != nil {
		return nil, err
	}
	players, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		keys = append(keys, cache.Player(p))
	}
	return keys, nil
}

// VoidWithPenalties voids the challenge and penalizes each named team. A team with an existing penalty record gets
// three more penalized games and each of its current leaders gets a leadership penalty. A team without a record
// gets a new one. The result reports, per team, whether this was its first penalty.
func (s *Store) VoidWithPenalties(ctx context.Context, id challenge.ID, teams []shared.TeamID, now time.Time) ([]PenaltyResult, error) {
	var results []PenaltyResult
	var keys []cache.Key
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE challenges SET date_voided = $2 WHERE id = $1`, int(id), now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if keys, err = affectedKeys(ctx, tx, id); err != nil {
			return err
		}

		for _, team := range teams {
			var remaining int
			err := tx.QueryRow(ctx, `SELECT penalties_remaining FROM team_penalties WHERE team_id = $1 FOR UPDATE`, int(team)).Scan(&remaining)
			switch {
			case isNoRows(err):
				if _, err := tx.Exec(ctx, `
					INSERT INTO team_penalties (team_id, penalties_remaining, date_penalized) VALUES ($1, $2, $3)`,
					int(team), logic.PenaltyGames, now); err != nil {
					return fmt.Errorf("failed to create penalty for team %d: %w", team, err)
				}
				results = append(results, PenaltyResult{TeamID: team, First: true, Remaining: logic.PenaltyGames})
			case err != nil:
				return fmt.Errorf("failed to read penalty for team %d: %w", team, err)
			default:
				if _, err := tx.Exec(ctx, `
					UPDATE team_penalties SET penalties_remaining = penalties_remaining + $2, date_penalized = $3 WHERE team_id = $1`,
					int(team), logic.PenaltyGames, now); err != nil {
					return fmt.Errorf("failed to add penalty for team %d: %w", team, err)
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO leadership_penalties (player_id, date_penalized)
					SELECT player_id, $2 FROM roster WHERE team_id = $1 AND role IN ('founder', 'captain')`,
					int(team), now); err != nil {
					return fmt.Errorf("failed to penalize leadership of team %d: %w", team, err)
				}
				results = append(results, PenaltyResult{TeamID: team, First: false, Remaining: remaining + logic.PenaltyGames})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("void challenge %d with penalties: %w", id, err)
	}
	s.invalidate(ctx, keys...)
	return results, nil
}

// region notification acknowledgements

func (s *Store) SetNotifyClockExpired(ctx context.Context, id challenge.ID, now time.Time) error {
	return s.execChallenge(ctx, "acknowledge clock expiry", id, `UPDATE challenges SET date_clock_deadline_notified = $2 WHERE id = $1`, now)
}

func (s *Store) SetNotifyMatchMissed(ctx context.Context, id challenge.ID, now time.Time) error {
	return s.execChallenge(ctx, "acknowledge missed match", id, `UPDATE challenges SET date_match_time_passed_notified = $2 WHERE id = $1`, now)
}

func (s *Store) SetNotifyMatchStarting(ctx context.Context, id challenge.ID, now time.Time) error {
	return s.execChallenge(ctx, "acknowledge starting match", id, `UPDATE challenges SET date_match_time_notified = $2 WHERE id = $1`, now)
}

// endregion
