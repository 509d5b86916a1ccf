/* lifecycle.go
 * Contains the lifecycle operations: clock, extend, report, confirm, close, void, unvoid and admin adjudication
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
	"otl-bot/api/store"

	"golang.org/x/sync/errgroup"
)

// Clock puts the challenge on a 28 day clock charged to team
func (a *API) Clock(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (err error) {
	defer a.track(ctx, "clock", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	if c.Confirmed() {
		return ErrAlreadyConfirmed
	}
	res, err := a.Store.Clock(ctx, c.ID, team, a.now())
	if err != nil {
		return persistence("clock", err)
	}
	c.Details.ClockTeam = team
	c.Details.DateClocked = &res.ClockedAt
	c.Details.DateClockDeadline = &res.Deadline
	c.Details.DateClockDeadlineNotified = nil
	a.armClock(c, false)

	challenging, challenged, err := a.parties(ctx, c)
	if err != nil {
		return &CriticalError{Op: "clock", Err: err}
	}
	teams := map[shared.TeamID]shared.Team{challenging.ID: challenging, challenged.ID: challenged}
	fx := &effects{op: "clock"}
	fx.do(a.announce(ctx, "clock", c, info("Challenge clocked",
		"%s has put this challenge on the clock. The match must be played by %s.",
		teams[team].Name, logic.FormatInZone(res.Deadline, teams[team].Timezone))))
	fx.do(a.Notifier.PostAlert(ctx, info("Challenge clocked", "%s clocked %s in #%s.",
		teams[team].Name, teams[mustOpponent(c, team)].Name, c.ChannelName())))
	return fx.err()
}

func mustOpponent(c *challenge.Challenge, team shared.TeamID) shared.TeamID {
	o, _ := c.Opponent(team)
	return o
}

// Extend pushes the clock deadline to now + 14 days. The match time is cleared and its timers cancelled.
func (a *API) Extend(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "extend", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	deadline, err := a.Store.Extend(ctx, c.ID, a.now())
	if err != nil {
		return persistence("extend", err)
	}
	c.Details.DateClockDeadline = deadline
	c.Details.DateClockDeadlineNotified = nil
	c.Details.MatchTime = nil
	c.Details.SuggestedTime = nil
	c.Details.SuggestedTimeTeam = 0
	c.Details.DateMatchTimeNotified = nil
	c.Details.DateMatchTimePassedNotified = nil
	a.armClock(c, false)
	a.armMatch(c, false)

	if deadline == nil {
		return a.announce(ctx, "extend", c, info("Challenge extended", "The match time has been cleared."))
	}
	return a.announce(ctx, "extend", c, info("Challenge extended",
		"The clock deadline has been extended to %s and the match time has been cleared.", logic.FormatInZone(*deadline, "")))
}

// Report records a score anchored on the losing team. The other team then confirms it.
func (a *API) Report(ctx context.Context, c *challenge.Challenge, losingTeam shared.TeamID, winningScore, losingScore int) (err error) {
	defer a.track(ctx, "report", int(c.ID), &err)
	if err := checkParty(c, losingTeam); err != nil {
		return err
	}
	if c.Confirmed() {
		return ErrAlreadyConfirmed
	}
	return a.report(ctx, c, losingTeam, winningScore, losingScore, true)
}

func (a *API) report(ctx context.Context, c *challenge.Challenge, losingTeam shared.TeamID, winningScore, losingScore int, announce bool) error {
	challengingScore, challengedScore, err := logic.ScoresFromReport(c.ChallengingTeam, c.ChallengedTeam, losingTeam, winningScore, losingScore)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	now := a.now()
	if err := a.Store.Report(ctx, c.ID, losingTeam, challengingScore, challengedScore, now); err != nil {
		return persistence("report", err)
	}
	c.Details.ReportingTeam = losingTeam
	c.Details.ChallengingTeamScore = challengingScore
	c.Details.ChallengedTeamScore = challengedScore
	c.Details.DateReported = &now
	a.armMatch(c, false)

	if !announce {
		return nil
	}
	return a.announce(ctx, "report", c, info("Match reported",
		"The match has been reported as %d to %d. The other team can confirm it with `$confirm`, or reject it with `$reject`.",
		winningScore, losingScore))
}

// SetScore reports and confirms a score in one step
func (a *API) SetScore(ctx context.Context, c *challenge.Challenge, challengingScore, challengedScore int) (err error) {
	defer a.track(ctx, "set_score", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	losing, winningScore, losingScore := c.ChallengedTeam, challengingScore, challengedScore
	if challengedScore > challengingScore {
		losing, winningScore, losingScore = c.ChallengingTeam, challengedScore, challengingScore
	}
	if err := a.report(ctx, c, losing, winningScore, losingScore, false); err != nil {
		return err
	}
	return a.confirm(ctx, c)
}

// RejectReport tells the admins that team disputes the reported score. State is unchanged.
func (a *API) RejectReport(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (err error) {
	defer a.track(ctx, "reject_report", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	if !c.Reported() {
		return ErrNotReported
	}
	if c.Confirmed() {
		return ErrAlreadyConfirmed
	}
	fx := &effects{op: "reject_report"}
	fx.do(a.Notifier.PostChallenge(ctx, c.ID, alert("Report rejected", "The reported score has been rejected. An admin will be in touch.")))
	fx.do(a.Notifier.PostAlert(ctx, alert("Report rejected", "The score reported in #%s has been rejected and needs an admin.", c.ChannelName())))
	return fx.err()
}

// ConfirmMatch confirms the reported score and tells both teams the result in their own timezone
func (a *API) ConfirmMatch(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "confirm_match", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if !c.Reported() {
		return ErrNotReported
	}
	if c.Confirmed() {
		return ErrAlreadyConfirmed
	}
	return a.confirm(ctx, c)
}

func (a *API) confirm(ctx context.Context, c *challenge.Challenge) error {
	now := a.now()
	if err := a.Store.SetConfirmed(ctx, c.ID, now); err != nil {
		return persistence("confirm_match", err)
	}
	c.Details.DateConfirmed = &now
	a.Timers.Cancel(c.ID)

	challenging, challenged, err := a.parties(ctx, c)
	if err != nil {
		return &CriticalError{Op: "confirm_match", Err: err}
	}
	fx := &effects{op: "confirm_match"}
	fx.do(a.announce(ctx, "confirm_match", c, resultMessage(c, challenging, challenged, "")))

	var g errgroup.Group
	for _, team := range []shared.Team{challenging, challenged} {
		g.Go(func() error {
			return a.Notifier.PostTeam(ctx, team, resultMessage(c, challenging, challenged, team.Timezone))
		})
	}
	fx.do(g.Wait())
	return fx.err()
}

// Close closes the challenge, removes its channel and updates ratings and team channels
func (a *API) Close(ctx context.Context, c *challenge.Challenge, member shared.Member) (err error) {
	defer a.track(ctx, "close", int(c.ID), &err)
	if c.Closed() {
		return ErrChallengeClosed
	}
	now := a.now()
	if err := a.Store.Close(ctx, c.ID, now); err != nil {
		return persistence("close", err)
	}
	c.Details.DateClosed = &now
	a.Timers.Cancel(c.ID)

	fx := &effects{op: "close"}
	fx.do(a.Notifier.DeleteChallengeChannel(ctx, c.ID))
	challenging, challenged, err := a.parties(ctx, c)
	if err != nil {
		fx.do(err)
		return fx.err()
	}

	if c.Confirmed() && !c.Voided() {
		stats, err := a.Store.GetStats(ctx, c.ID)
		fx.do(err)
		names := a.playerNames(ctx, c)
		fx.do(a.Notifier.PostResults(ctx, statsMessage(c, challenging, challenged, stats, names)))
	}
	if c.Details.Caster != "" {
		fx.do(a.Notifier.DirectMessage(ctx, c.Details.Caster, info("Challenge closed",
			"%s vs %s has been closed by %s.", challenging.Name, challenged.Name, member.Name)))
	}
	fx.do(a.teamFollowUps(ctx, c, challenging, challenged))
	return fx.err()
}

// teamFollowUps recomputes ratings for both teams and refreshes their channels, concurrently
func (a *API) teamFollowUps(ctx context.Context, c *challenge.Challenge, teams ...shared.Team) error {
	var g errgroup.Group
	for _, team := range teams {
		g.Go(func() error {
			var errs []error
			if err := a.Store.RequestRatingRecompute(ctx, team.ID, c.ID, a.now()); err != nil {
				errs = append(errs, err)
			}
			if err := a.Teams.UpdateRatingsForSeasonFromChallenge(ctx, team, c); err != nil {
				errs = append(errs, err)
			}
			if !team.Disbanded {
				if err := a.Teams.UpdateChannels(ctx, team); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		})
	}
	return g.Wait()
}

func (a *API) playerNames(ctx context.Context, c *challenge.Challenge) map[shared.PlayerID]string {
	names := map[shared.PlayerID]string{}
	for _, team := range c.Teams() {
		roster, err := a.Store.GetRoster(ctx, team)
		if err != nil {
			a.Log.Warn("could not read roster for results", "team_id", int(team), "error", err)
			continue
		}
		for _, p := range roster {
			names[p.ID] = p.Name
		}
	}
	return names
}

// Void voids the challenge. When disbanding is set the void is a consequence of that team disbanding and the
// other team is told so.
func (a *API) Void(ctx context.Context, c *challenge.Challenge, member shared.Member, disbanding shared.TeamID) (err error) {
	defer a.track(ctx, "void", int(c.ID), &err)
	if c.Voided() {
		return ErrChallengeVoided
	}
	wasRated := c.Closed() && c.Confirmed()
	now := a.now()
	if err := a.Store.Void(ctx, c.ID, now); err != nil {
		return persistence("void", err)
	}
	c.Details.DateVoided = &now
	a.Timers.Cancel(c.ID)

	fx := &effects{op: "void"}
	if !c.Closed() {
		fx.do(a.Notifier.DeleteChallengeChannel(ctx, c.ID))
	}
	challenging, challenged, err := a.parties(ctx, c)
	if err != nil {
		fx.do(err)
		return fx.err()
	}
	for _, team := range []shared.Team{challenging, challenged} {
		if team.ID == disbanding || team.Disbanded {
			continue
		}
		msg := info("Challenge voided", "Your challenge between %s and %s has been voided.", challenging.Name, challenged.Name)
		if disbanding != 0 {
			msg = info("Challenge voided", "Your challenge between %s and %s has been voided because the other team disbanded.", challenging.Name, challenged.Name)
		}
		fx.do(a.Notifier.PostTeam(ctx, team, msg))
	}
	fx.do(a.Notifier.PostAlert(ctx, info("Challenge voided", "%s voided challenge %d between %s and %s.",
		memberName(member), c.ID, challenging.Name, challenged.Name)))
	if wasRated {
		fx.do(a.teamFollowUps(ctx, c, challenging, challenged))
	}
	return fx.err()
}

// Unvoid reverses a void. Timers whose dates are still in the future are re-armed. An open challenge gets its
// channel back, a closed one has its ratings recomputed.
func (a *API) Unvoid(ctx context.Context, c *challenge.Challenge, member shared.Member) (err error) {
	defer a.track(ctx, "unvoid", int(c.ID), &err)
	if !c.Voided() {
		return ErrNotVoided
	}
	if err := a.Store.Unvoid(ctx, c.ID); err != nil {
		return persistence("unvoid", err)
	}
	c.Details.DateVoided = nil
	a.armClock(c, true)
	a.armMatch(c, true)

	fx := &effects{op: "unvoid"}
	challenging, challenged, err := a.parties(ctx, c)
	if err != nil {
		fx.do(err)
		return fx.err()
	}
	if c.Closed() {
		if c.Confirmed() {
			fx.do(a.teamFollowUps(ctx, c, challenging, challenged))
		}
	} else {
		fx.do(a.Notifier.CreateChallengeChannel(ctx, c, challenging, challenged))
		fx.do(a.Notifier.UpdateChallengeTopic(ctx, c))
		fx.do(a.Notifier.PostChallenge(ctx, c.ID, info("Challenge restored", "This challenge has been unvoided by an admin.")))
	}
	fx.do(a.Notifier.PostAlert(ctx, info("Challenge unvoided", "%s unvoided challenge %d between %s and %s.",
		memberName(member), c.ID, challenging.Name, challenged.Name)))
	return fx.err()
}

// Adjudicate applies an admin decision to a disputed challenge. Penalize voids the challenge and penalizes each
// named team. A team penalized for the first time is warned, one penalized again is disbanded.
func (a *API) Adjudicate(ctx context.Context, c *challenge.Challenge, member shared.Member, decision Decision, teams []shared.TeamID) (results []store.PenaltyResult, err error) {
	switch decision {
	case DecisionCancel:
		return nil, a.Void(ctx, c, member, 0)
	case DecisionExtend:
		return nil, a.Extend(ctx, c)
	case DecisionPenalize:
	default:
		return nil, ErrUnknownDecision
	}

	defer a.track(ctx, "adjudicate_penalize", int(c.ID), &err)
	if c.Voided() {
		return nil, ErrChallengeVoided
	}
	if len(teams) == 0 {
		return nil, ErrNoTeamsNamed
	}
	for _, t := range teams {
		if !c.IsParty(t) {
			return nil, ErrNotParty
		}
	}
	if len(teams) == 2 && teams[0] == teams[1] {
		teams = teams[:1]
	}

	wasRated := c.Closed() && c.Confirmed()
	now := a.now()
	results, err = a.Store.VoidWithPenalties(ctx, c.ID, teams, now)
	if err != nil {
		return nil, persistence("adjudicate_penalize", err)
	}
	c.Details.DateVoided = &now
	a.Timers.Cancel(c.ID)

	fx := &effects{op: "adjudicate_penalize"}
	if !c.Closed() {
		fx.do(a.Notifier.DeleteChallengeChannel(ctx, c.ID))
	}
	var summary []string
	for _, r := range results {
		team, err := a.Teams.Get(ctx, r.TeamID)
		if err != nil {
			fx.do(err)
			continue
		}
		if r.First {
			fx.do(a.Notifier.PostTeam(ctx, team, alert("Team penalized",
				"Your team has been penalized for challenge %d and will play its next %d matches at a disadvantage. A further penalty will disband the team.",
				c.ID, logic.PenaltyGames)))
			summary = append(summary, fmt.Sprintf("%s was penalized", team.Name))
			continue
		}
		fx.do(a.Teams.Disband(ctx, team, member))
		summary = append(summary, fmt.Sprintf("%s was penalized again and disbanded", team.Name))
	}
	fx.do(a.Notifier.PostAlert(ctx, alert("Challenge penalized", "%s voided challenge %d with penalties: %s.",
		memberName(member), c.ID, strings.Join(summary, ", "))))
	if wasRated {
		challenging, challenged, err := a.parties(ctx, c)
		if err != nil {
			fx.do(err)
			return results, fx.err()
		}
		fx.do(a.teamFollowUps(ctx, c, challenging, challenged))
	}
	return results, fx.err()
}

// RequestRematch records that team wants a rematch of a confirmed challenge
func (a *API) RequestRematch(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (err error) {
	defer a.track(ctx, "request_rematch", int(c.ID), &err)
	switch {
	case c.Voided():
		return ErrChallengeVoided
	case c.Closed():
		return ErrChallengeClosed
	case !c.Confirmed():
		return ErrNotConfirmed
	case c.Details.DateRematched != nil:
		return ErrAlreadyRematched
	case !c.IsParty(team):
		return ErrNotParty
	}
	now := a.now()
	if err := a.Store.RequestRematch(ctx, c.ID, team, now); err != nil {
		return persistence("request_rematch", err)
	}
	c.Details.RematchTeam = team
	c.Details.DateRematchRequested = &now
	return a.announce(ctx, "request_rematch", c, info("Rematch requested", "A rematch has been requested. The other team can accept it with `$rematch`."))
}

func memberName(m shared.Member) string {
	if m.Name != "" {
		return m.Name
	}
	if m.DiscordID != "" {
		return "<@" + m.DiscordID + ">"
	}
	return "The system"
}
