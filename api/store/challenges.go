/* challenges.go
 * Contains challenge creation and the read queries for challenges, their details and pending notifications
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

// Create inserts a new challenge between two teams
// Preconditions: Receives two distinct existing teams and the optional overrides
// Postconditions: Returns the new challenge's identity and the facts needed to announce it, or an error if it occurs.
// IDs are allocated as count + 1 under a transaction scoped advisory lock so concurrent creates cannot collide.
func (s *Store) Create(ctx context.Context, p CreateParams) (CreateResult, error) {
	if p.ChallengingTeam == p.ChallengedTeam {
		return CreateResult{}, fmt.Errorf("a team cannot challenge itself")
	}
	var res CreateResult
	now := p.Now.UTC()
	if p.Now.IsZero() {
		now = time.Now().UTC()
	}

	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", createLockTimeout)); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, createLockKey); err != nil {
			if isLockTimeout(err) {
				return fmt.Errorf("timed out waiting for challenge id lock: %w", err)
			}
			return fmt.Errorf("failed to take challenge id lock: %w", err)
		}

		history, err := sharedHistory(ctx, tx, p.ChallengingTeam, p.ChallengedTeam)
		if err != nil {
			return err
		}
		challenging, err := standing(ctx, tx, p.ChallengingTeam)
		if err != nil {
			return err
		}
		challenged, err := standing(ctx, tx, p.ChallengedTeam)
		if err != nil {
			return err
		}

		plan, err := logic.PlanChallenge(challenging, challenged, history, logic.PlanOptions{
			AdminCreated:   p.AdminCreated,
			HomeMapTeam:    p.HomeMapTeam,
			HomeServerTeam: p.HomeServerTeam,
		}, s.Coin)
		if err != nil {
			return err
		}

		// penalties are consumed one match at a time, at creation
		for team, penalized := range map[shared.TeamID]bool{
			p.ChallengingTeam: plan.ChallengingTeamPenalized,
			p.ChallengedTeam:  plan.ChallengedTeamPenalized,
		} {
			if !penalized {
				continue
			}
			if _, err := tx.Exec(ctx, `UPDATE team_penalties SET penalties_remaining = penalties_remaining - 1 WHERE team_id = $1`, int(team)); err != nil {
				return fmt.Errorf("failed to consume penalty for team %d: %w", team, err)
			}
		}

		var id int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) + 1 FROM challenges`).Scan(&id); err != nil {
			return fmt.Errorf("failed to allocate challenge id: %w", err)
		}

		homeMaps, err := teamHomeMaps(ctx, tx, plan.HomeMapTeam)
		if err != nil {
			return err
		}

		size := logic.DefaultTeamSize
		if p.TeamSize != 0 {
			if !logic.ValidTeamSize(p.TeamSize) {
				return fmt.Errorf("invalid team size %d", p.TeamSize)
			}
			size = p.TeamSize
		}
		var matchTime *time.Time
		switch {
		case p.MatchTime != nil:
			t := p.MatchTime.UTC()
			matchTime = &t
		case p.StartNow:
			t := logic.RoundUpToFiveMinutes(now)
			matchTime = &t
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO challenges (
				id, challenging_team_id, challenged_team_id, orange_team_id, blue_team_id,
				home_map_team_id, using_home_map_team, home_server_team_id, using_home_server_team,
				team_size, match_time, date_added, admin_created,
				challenging_team_penalized, challenged_team_penalized
			) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, TRUE, $8, $9, $10, $11, $12, $13)`,
			id, int(p.ChallengingTeam), int(p.ChallengedTeam), int(plan.OrangeTeam), int(plan.BlueTeam),
			int(plan.HomeMapTeam), int(plan.HomeServerTeam),
			size, matchTime, now, p.AdminCreated,
			plan.ChallengingTeamPenalized, plan.ChallengedTeamPenalized,
		)
		if err != nil {
			return fmt.Errorf("failed to insert challenge: %w", err)
		}
		if err := copyHomeMaps(ctx, tx, challenge.ID(id), homeMaps); err != nil {
			return err
		}

		res = CreateResult{
			Ref:                      challenge.Ref{ID: challenge.ID(id), ChallengingTeam: p.ChallengingTeam, ChallengedTeam: p.ChallengedTeam},
			OrangeTeam:               plan.OrangeTeam,
			BlueTeam:                 plan.BlueTeam,
			HomeMapTeam:              plan.HomeMapTeam,
			HomeServerTeam:           plan.HomeServerTeam,
			HomeMaps:                 homeMaps,
			ChallengingTeamPenalized: plan.ChallengingTeamPenalized,
			ChallengedTeamPenalized:  plan.ChallengedTeamPenalized,
			TeamSize:                 size,
			MatchTime:                matchTime,
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("create challenge: %w", err)
	}

	s.invalidate(ctx, cache.Challenge(), cache.Team(int(p.ChallengingTeam)), cache.Team(int(p.ChallengedTeam)))
	s.Log.Info("challenge created",
		"challenge_id", int(res.Ref.ID),
		"challenging_team", int(p.ChallengingTeam),
		"challenged_team", int(p.ChallengedTeam),
	)
	return res, nil
}

// sharedHistory counts orange, home map and home server appearances between exactly these two teams. Voided
// challenges are excluded.
func sharedHistory(ctx context.Context, tx pgx.Tx, a, b shared.TeamID) (logic.History, error) {
	var h logic.History
	err := tx.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE orange_team_id = $1),
			COUNT(*) FILTER (WHERE orange_team_id = $2),
			COUNT(*) FILTER (WHERE home_map_team_id = $1),
			COUNT(*) FILTER (WHERE home_map_team_id = $2),
			COUNT(*) FILTER (WHERE home_server_team_id = $1),
			COUNT(*) FILTER (WHERE home_server_team_id = $2)
		FROM challenges
		WHERE date_voided IS NULL
			AND ((challenging_team_id = $1 AND challenged_team_id = $2)
				OR (challenging_team_id = $2 AND challenged_team_id = $1))`,
		int(a), int(b),
	).Scan(&h.Orange[0], &h.Orange[1], &h.HomeMap[0], &h.HomeMap[1], &h.HomeServer[0], &h.HomeServer[1])
	if err != nil {
		return logic.History{}, fmt.Errorf("failed to read shared history: %w", err)
	}
	return h, nil
}

func standing(ctx context.Context, tx pgx.Tx, team shared.TeamID) (logic.TeamStanding, error) {
	st := logic.TeamStanding{ID: team}
	err := tx.QueryRow(ctx, `SELECT penalties_remaining FROM team_penalties WHERE team_id = $1 FOR UPDATE`, int(team)).Scan(&st.PenaltiesPending)
	if err != nil && !isNoRows(err) {
		return st, fmt.Errorf("failed to read penalties for team %d: %w", team, err)
	}
	return st, nil
}

func teamHomeMaps(ctx context.Context, tx pgx.Tx, team shared.TeamID) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT map FROM team_home_maps WHERE team_id = $1 ORDER BY number`, int(team))
	if err != nil {
		return nil, fmt.Errorf("failed to read home maps for team %d: %w", team, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read home maps for team %d: %w", team, err)
	}
	return maps, nil
}

func copyHomeMaps(ctx context.Context, tx pgx.Tx, id challenge.ID, maps []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM challenge_home_maps WHERE challenge_id = $1`, int(id)); err != nil {
		return fmt.Errorf("failed to clear home maps: %w", err)
	}
	for i, m := range maps {
		if _, err := tx.Exec(ctx, `INSERT INTO challenge_home_maps (challenge_id, number, map) VALUES ($1, $2, $3)`, int(id), i+1, m); err != nil {
			return fmt.Errorf("failed to copy home map %q: %w", m, err)
		}
	}
	return nil
}

const refColumns = `id, challenging_team_id, challenged_team_id`

func scanRef(row pgx.CollectableRow) (challenge.Ref, error) {
	var id, challenging, challenged int
	if err := row.Scan(&id, &challenging, &challenged); err != nil {
		return challenge.Ref{}, err
	}
	return challenge.Ref{ID: challenge.ID(id), ChallengingTeam: shared.TeamID(challenging), ChallengedTeam: shared.TeamID(challenged)}, nil
}

func (s *Store) queryRefs(ctx context.Context, op, sql string, args ...any) ([]challenge.Ref, error) {
	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refs, err := pgx.CollectRows(rows, scanRef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return refs, nil
}

// GetByID returns the challenge handle for id
func (s *Store) GetByID(ctx context.Context, id challenge.ID) (challenge.Ref, error) {
	refs, err := s.queryRefs(ctx, "get challenge by id", `SELECT `+refColumns+` FROM challenges WHERE id = $1`, int(id))
	if err != nil {
		return challenge.Ref{}, err
	}
	if len(refs) == 0 {
		return challenge.Ref{}, fmt.Errorf("challenge %d: %w", id, ErrNotFound)
	}
	return refs[0], nil
}

// GetByTeams returns the open challenge between two teams, in either order
func (s *Store) GetByTeams(ctx context.Context, a, b shared.TeamID) (challenge.Ref, error) {
	refs, err := s.GetAllByTeams(ctx, a, b)
	if err != nil {
		return challenge.Ref{}, err
	}
	if len(refs) == 0 {
		return challenge.Ref{}, fmt.Errorf("open challenge between %d and %d: %w", a, b, ErrNotFound)
	}
	return refs[0], nil
}

// GetAllByTeam returns every open challenge involving team
func (s *Store) GetAllByTeam(ctx context.Context, team shared.TeamID) ([]challenge.Ref, error) {
	return s.queryRefs(ctx, "get challenges by team", `
		SELECT `+refColumns+` FROM challenges
		WHERE (challenging_team_id = $1 OR challenged_team_id = $1)
			AND date_closed IS NULL AND date_voided IS NULL
		ORDER BY id`, int(team))
}

// GetClockedByTeam returns every challenge team clocked after since, whatever state it is in now
func (s *Store) GetClockedByTeam(ctx context.Context, team shared.TeamID, since time.Time) ([]challenge.Ref, error) {
	return s.queryRefs(ctx, "get challenges clocked by team", `
		SELECT `+refColumns+` FROM challenges
		WHERE clock_team_id = $1 AND date_clocked > $2
		ORDER BY id`, int(team), since)
}

// GetAllByTeams returns every open challenge between two teams, in either order
func (s *Store) GetAllByTeams(ctx context.Context, a, b shared.TeamID) ([]challenge.Ref, error) {
	return s.queryRefs(ctx, "get challenges by teams", `
		SELECT `+refColumns+` FROM challenges
		WHERE ((challenging_team_id = $1 AND challenged_team_id = $2)
				OR (challenging_team_id = $2 AND challenged_team_id = $1))
			AND date_closed IS NULL AND date_voided IS NULL
		ORDER BY id`, int(a), int(b))
}

// GetDetails loads the full projection for one challenge
func (s *Store) GetDetails(ctx context.Context, id challenge.ID) (challenge.Details, error) {
	var d challenge.Details
	var (
		orange, blue, homeMapTeam, homeServerTeam, teamSize int
		mapName, suggestedMap, caster, title, vod         pgtype.Text
		suggestedMapTeam, suggestedServerTeam             pgtype.Int4
		suggestedSize, suggestedSizeTeam                  pgtype.Int4
		suggestedTimeTeam, clockTeam, reportingTeam       pgtype.Int4
		challengingScore, challengedScore, rematchTeam    pgtype.Int4
		matchTime, suggestedTime, matchNotified           pgtype.Timestamptz
		passedNotified, clocked, deadline, deadlineNotice pgtype.Timestamptz
		reported, confirmed, closed, voided               pgtype.Timestamptz
		rematchRequested, rematched                       pgtype.Timestamptz
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT
			orange_team_id, blue_team_id,
			map, suggested_map, suggested_map_team_id, home_map_team_id, using_home_map_team,
			home_server_team_id, using_home_server_team, suggested_neutral_server_team_id,
			team_size, suggested_team_size, suggested_team_size_team_id,
			match_time, suggested_time, suggested_time_team_id, date_match_time_notified, date_match_time_passed_notified,
			clock_team_id, date_clocked, date_clock_deadline, date_clock_deadline_notified,
			reporting_team_id, challenging_team_score, challenged_team_score,
			date_added, date_reported, date_confirmed, date_closed, date_voided,
			admin_created, challenging_team_penalized, challenged_team_penalized,
			caster_discord_id, title, vod, postseason, overtime_periods,
			rematch_team_id, date_rematch_requested, date_rematched
		FROM challenges WHERE id = $1`, int(id),
	).Scan(
		&orange, &blue,
		&mapName, &suggestedMap, &suggestedMapTeam, &homeMapTeam, &d.UsingHomeMapTeam,
		&homeServerTeam, &d.UsingHomeServerTeam, &suggestedServerTeam,
		&teamSize, &suggestedSize, &suggestedSizeTeam,
		&matchTime, &suggestedTime, &suggestedTimeTeam, &matchNotified, &passedNotified,
		&clockTeam, &clocked, &deadline, &deadlineNotice,
		&reportingTeam, &challengingScore, &challengedScore,
		&d.DateAdded, &reported, &confirmed, &closed, &voided,
		&d.AdminCreated, &d.ChallengingTeamPenalized, &d.ChallengedTeamPenalized,
		&caster, &title, &vod, &d.Postseason, &d.OvertimePeriods,
		&rematchTeam, &rematchRequested, &rematched,
	)
	if err != nil {
		if isNoRows(err) {
			return d, fmt.Errorf("challenge %d: %w", id, ErrNotFound)
		}
		return d, fmt.Errorf("failed to read challenge %d: %w", id, err)
	}

	d.OrangeTeam, d.BlueTeam = shared.TeamID(orange), shared.TeamID(blue)
	d.Map, d.SuggestedMap, d.SuggestedMapTeam = textVal(mapName), textVal(suggestedMap), teamVal(suggestedMapTeam)
	d.HomeMapTeam = shared.TeamID(homeMapTeam)
	d.HomeServerTeam, d.SuggestedNeutralServerTeam = shared.TeamID(homeServerTeam), teamVal(suggestedServerTeam)
	d.TeamSize, d.SuggestedTeamSize, d.SuggestedTeamSizeTeam = teamSize, intVal(suggestedSize), teamVal(suggestedSizeTeam)
	d.MatchTime, d.SuggestedTime, d.SuggestedTimeTeam = timeVal(matchTime), timeVal(suggestedTime), teamVal(suggestedTimeTeam)
	d.DateMatchTimeNotified, d.DateMatchTimePassedNotified = timeVal(matchNotified), timeVal(passedNotified)
	d.ClockTeam, d.DateClocked, d.DateClockDeadline, d.DateClockDeadlineNotified = teamVal(clockTeam), timeVal(clocked), timeVal(deadline), timeVal(deadlineNotice)
	d.ReportingTeam, d.ChallengingTeamScore, d.ChallengedTeamScore = teamVal(reportingTeam), intVal(challengingScore), intVal(challengedScore)
	d.DateReported, d.DateConfirmed, d.DateClosed, d.DateVoided = timeVal(reported), timeVal(confirmed), timeVal(closed), timeVal(voided)
	d.Caster, d.Title, d.VOD = textVal(caster), textVal(title), textVal(vod)
	d.RematchTeam, d.DateRematchRequested, d.DateRematched = teamVal(rematchTeam), timeVal(rematchRequested), timeVal(rematched)

	rows, err := s.Pool.Query(ctx, `SELECT map FROM challenge_home_maps WHERE challenge_id = $1 ORDER BY number`, int(id))
	if err != nil {
		return d, fmt.Errorf("failed to read home maps for challenge %d: %w", id, err)
	}
	if d.HomeMaps, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return d, fmt.Errorf("failed to read home maps for challenge %d: %w", id, err)
	}

	rows, err = s.Pool.Query(ctx, `SELECT discord_id FROM challenge_streamers WHERE challenge_id = $1 ORDER BY discord_id`, int(id))
	if err != nil {
		return d, fmt.Errorf("failed to read streamers for challenge %d: %w", id, err)
	}
	if d.Streamers, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return d, fmt.Errorf("failed to read streamers for challenge %d: %w", id, err)
	}
	return d, nil
}

// GetNotifications returns every open challenge with an unacknowledged notice, whatever its date
func (s *Store) GetNotifications(ctx context.Context) (Notifications, error) {
	var n Notifications
	var err error
	const open = `date_closed IS NULL AND date_voided IS NULL AND date_confirmed IS NULL`

	n.ExpiredClocks, err = s.queryNotifications(ctx, `
		SELECT id, date_clock_deadline FROM challenges
		WHERE date_clock_deadline IS NOT NULL AND date_clock_deadline_notified IS NULL AND `+open)
	if err != nil {
		return n, err
	}
	n.Starting, err = s.queryNotifications(ctx, `
		SELECT id, match_time FROM challenges
		WHERE match_time IS NOT NULL AND date_match_time_notified IS NULL AND date_reported IS NULL AND `+open)
	if err != nil {
		return n, err
	}
	n.Missed, err = s.queryNotifications(ctx, `
		SELECT id, match_time FROM challenges
		WHERE match_time IS NOT NULL AND date_match_time_passed_notified IS NULL AND date_reported IS NULL AND `+open)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (s *Store) queryNotifications(ctx context.Context, sql string) ([]Notification, error) {
	rows, err := s.Pool.Query(ctx, sql+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		var id int
		var date time.Time
		err := row.Scan(&id, &date)
		return Notification{ID: challenge.ID(id), Date: date}, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return list, nil
}
