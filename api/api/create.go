/* create.go
 * Contains challenge creation and rematches
 */

package api

import (
	"context"
	"fmt"

	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
	"otl-bot/api/store"
)

// parties loads both teams of a challenge, challenging team first
func (a *API) parties(ctx context.Context, c *challenge.Challenge) (shared.Team, shared.Team, error) {
	challenging, err := a.Teams.Get(ctx, c.ChallengingTeam)
	if err != nil {
		return shared.Team{}, shared.Team{}, fmt.Errorf("failed to get team %d: %w", c.ChallengingTeam, err)
	}
	challenged, err := a.Teams.Get(ctx, c.ChallengedTeam)
	if err != nil {
		return shared.Team{}, shared.Team{}, fmt.Errorf("failed to get team %d: %w", c.ChallengedTeam, err)
	}
	return challenging, challenged, nil
}

// Create starts a new challenge between two teams, opens its channel and arms its timers
// Preconditions: Receives two distinct team IDs and the optional overrides
// Postconditions: Returns the loaded challenge. A CriticalError is returned alongside the challenge when the chat
// side effects failed after the challenge was written.
func (a *API) Create(ctx context.Context, p store.CreateParams) (c *challenge.Challenge, err error) {
	defer func() {
		id := 0
		if c != nil {
			id = int(c.ID)
		}
		a.track(ctx, "create", id, &err)
	}()

	if p.ChallengingTeam == p.ChallengedTeam {
		return nil, ErrSameTeam
	}
	if p.TeamSize != 0 && !logic.ValidTeamSize(p.TeamSize) {
		return nil, ErrInvalidTeamSize
	}
	for _, home := range []shared.TeamID{p.HomeMapTeam, p.HomeServerTeam} {
		if home != 0 && home != p.ChallengingTeam && home != p.ChallengedTeam {
			return nil, ErrNotParty
		}
	}

	challenging, err := a.Teams.Get(ctx, p.ChallengingTeam)
	if err != nil {
		return nil, persistence("create", err)
	}
	challenged, err := a.Teams.Get(ctx, p.ChallengedTeam)
	if err != nil {
		return nil, persistence("create", err)
	}

	if p.Now.IsZero() {
		p.Now = a.now()
	}
	res, err := a.Store.Create(ctx, p)
	if err != nil {
		return nil, persistence("create", err)
	}
	c, err = res.Ref.Load(ctx, a.Store)
	if err != nil {
		return nil, persistence("create", err)
	}

	fx := &effects{op: "create"}
	fx.do(a.Notifier.CreateChallengeChannel(ctx, c, challenging, challenged))
	fx.do(a.Notifier.PostChallenge(ctx, c.ID, createdMessage(c, challenging, challenged)))
	fx.do(a.Notifier.UpdateChallengeTopic(ctx, c))
	a.armClock(c, false)
	a.armMatch(c, false)
	return c, fx.err()
}

// CreateRematch accepts a pending rematch request on a confirmed challenge. The new challenge has the roles
// reversed, the other team hosting the server, the same team size and starts now.
func (a *API) CreateRematch(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (next *challenge.Challenge, err error) {
	defer a.track(ctx, "create_rematch", int(c.ID), &err)

	switch {
	case c.Voided():
		return nil, ErrChallengeVoided
	case !c.Confirmed():
		return nil, ErrNotConfirmed
	case c.Details.RematchTeam == 0:
		return nil, ErrNoRematchRequested
	case c.Details.DateRematched != nil:
		return nil, ErrAlreadyRematched
	case !c.IsParty(team):
		return nil, ErrNotParty
	}

	now := a.now()
	if err := a.Store.SetRematched(ctx, c.ID, now); err != nil {
		return nil, persistence("create_rematch", err)
	}
	c.Details.DateRematched = &now

	homeServer, err := c.Opponent(c.Details.HomeServerTeam)
	if err != nil {
		homeServer = 0
	}
	next, err = a.Create(ctx, store.CreateParams{
		ChallengingTeam: c.ChallengedTeam,
		ChallengedTeam:  c.ChallengingTeam,
		HomeServerTeam:  homeServer,
		TeamSize:        c.Details.TeamSize,
		MatchTime:       &now,
	})
	if next == nil {
		return nil, err
	}

	fx := &effects{op: "create_rematch"}
	if err != nil {
		fx.do(err)
	}
	if !c.Closed() {
		fx.do(a.Notifier.PostChallenge(ctx, c.ID, info("Rematch created", "The rematch is on in #%s.", next.ChannelName())))
	}
	return next, fx.err()
}
