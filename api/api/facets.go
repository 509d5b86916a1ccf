/* facets.go
 * Contains the negotiation of the four match facets: map, server, team size and time. Each facet is either set by
 * an admin, or suggested by one team and confirmed later. Confirming never checks which team confirms, that is the
 * command layer's job via Challenge.CanConfirm.
 */

package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
	"otl-bot/api/timers"
)

// announce posts msg to the challenge channel and refreshes its topic
func (a *API) announce(ctx context.Context, op string, c *challenge.Challenge, msg shared.Message) error {
	fx := &effects{op: op}
	fx.do(a.Notifier.PostChallenge(ctx, c.ID, msg))
	fx.do(a.Notifier.UpdateChallengeTopic(ctx, c))
	return fx.err()
}

func checkParty(c *challenge.Challenge, team shared.TeamID) error {
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if !c.IsParty(team) {
		return ErrNotParty
	}
	return nil
}

func checkPending(c *challenge.Challenge, f challenge.Facet) error {
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if c.Pending(f) == 0 {
		return ErrNothingPending
	}
	return nil
}

// region map

// SuggestMap records team's map suggestion. The locked map is cleared until the suggestion is confirmed.
func (a *API) SuggestMap(ctx context.Context, c *challenge.Challenge, team shared.TeamID, mapName string) (err error) {
	defer a.track(ctx, "suggest_map", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	mapName = strings.TrimSpace(mapName)
	if mapName == "" {
		return fmt.Errorf("a map name is required")
	}
	if err := a.Store.SuggestMap(ctx, c.ID, team, mapName); err != nil {
		return persistence("suggest_map", err)
	}
	c.Details.Map = ""
	c.Details.SuggestedMap = mapName
	c.Details.SuggestedMapTeam = team
	return a.announce(ctx, "suggest_map", c, info("Map suggested", "%s has been suggested as a neutral map. The other team can confirm it with `$confirmmap`.", mapName))
}

// ConfirmMap locks the suggested map
func (a *API) ConfirmMap(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "confirm_map", int(c.ID), &err)
	if err := checkPending(c, challenge.FacetMap); err != nil {
		return err
	}
	mapName, err := a.Store.ConfirmMap(ctx, c.ID)
	if err != nil {
		return persistence("confirm_map", err)
	}
	c.Details.Map = mapName
	c.Details.SuggestedMap = ""
	c.Details.SuggestedMapTeam = 0
	c.Details.UsingHomeMapTeam = false
	return a.announce(ctx, "confirm_map", c, info("Map confirmed", "The map for this match is %s.", mapName))
}

// PickMap locks one of the home map team's maps, numbered from 1
func (a *API) PickMap(ctx context.Context, c *challenge.Challenge, number int) (err error) {
	defer a.track(ctx, "pick_map", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if number < 1 || number > len(c.Details.HomeMaps) {
		return ErrInvalidHomeMap
	}
	mapName, err := a.Store.PickMap(ctx, c.ID, number)
	if err != nil {
		return persistence("pick_map", err)
	}
	c.Details.Map = mapName
	c.Details.UsingHomeMapTeam = true
	c.Details.SuggestedMap = ""
	c.Details.SuggestedMapTeam = 0
	return a.announce(ctx, "pick_map", c, info("Map picked", "The map for this match is %s.", mapName))
}

// SetMap locks a map directly
func (a *API) SetMap(ctx context.Context, c *challenge.Challenge, mapName string) (err error) {
	defer a.track(ctx, "set_map", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	mapName = strings.TrimSpace(mapName)
	if mapName == "" {
		return fmt.Errorf("a map name is required")
	}
	if err := a.Store.SetMap(ctx, c.ID, mapName); err != nil {
		return persistence("set_map", err)
	}
	c.Details.Map = mapName
	c.Details.SuggestedMap = ""
	c.Details.SuggestedMapTeam = 0
	c.Details.UsingHomeMapTeam = false
	return a.announce(ctx, "set_map", c, info("Map set", "An admin has set the map for this match to %s.", mapName))
}

// SetHomeMapTeam makes team the home map team and replaces the home map list with its maps
func (a *API) SetHomeMapTeam(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (err error) {
	defer a.track(ctx, "set_home_map_team", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	maps, err := a.Store.SetHomeMapTeam(ctx, c.ID, team)
	if err != nil {
		return persistence("set_home_map_team", err)
	}
	c.Details.HomeMapTeam = team
	c.Details.HomeMaps = maps
	c.Details.UsingHomeMapTeam = true
	c.Details.Map = ""
	c.Details.SuggestedMap = ""
	c.Details.SuggestedMapTeam = 0

	var list []string
	for i, m := range maps {
		list = append(list, fmt.Sprintf("%d. %s", i+1, m))
	}
	msg := info("Home map team changed", "The home maps are now:\n%s", strings.Join(list, "\n"))
	return a.announce(ctx, "set_home_map_team", c, msg)
}

// endregion

// region server

// SetHomeServerTeam makes team the home server team and cancels any neutral server suggestion
func (a *API) SetHomeServerTeam(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (err error) {
	defer a.track(ctx, "set_home_server_team", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	if err := a.Store.SetHomeServerTeam(ctx, c.ID, team); err != nil {
		return persistence("set_home_server_team", err)
	}
	c.Details.HomeServerTeam = team
	c.Details.UsingHomeServerTeam = true
	c.Details.SuggestedNeutralServerTeam = 0
	return a.announce(ctx, "set_home_server_team", c, info("Home server team changed", "The home server team has been changed."))
}

// SuggestNeutralServer records team's request to play on a neutral server
func (a *API) SuggestNeutralServer(ctx context.Context, c *challenge.Challenge, team shared.TeamID) (err error) {
	defer a.track(ctx, "suggest_neutral_server", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	if err := a.Store.SuggestNeutralServer(ctx, c.ID, team); err != nil {
		return persistence("suggest_neutral_server", err)
	}
	c.Details.SuggestedNeutralServerTeam = team
	return a.announce(ctx, "suggest_neutral_server", c, info("Neutral server suggested", "A neutral server has been suggested. The other team can confirm it with `$confirmneutralserver`."))
}

// ConfirmNeutralServer moves the match to a neutral server
func (a *API) ConfirmNeutralServer(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "confirm_neutral_server", int(c.ID), &err)
	if err := checkPending(c, challenge.FacetServer); err != nil {
		return err
	}
	if err := a.Store.ConfirmNeutralServer(ctx, c.ID); err != nil {
		return persistence("confirm_neutral_server", err)
	}
	c.Details.UsingHomeServerTeam = false
	c.Details.SuggestedNeutralServerTeam = 0
	return a.announce(ctx, "confirm_neutral_server", c, info("Neutral server confirmed", "This match will be played on a neutral server."))
}

// endregion

// region team size

// SuggestTeamSize records team's team size suggestion
func (a *API) SuggestTeamSize(ctx context.Context, c *challenge.Challenge, team shared.TeamID, size int) (err error) {
	defer a.track(ctx, "suggest_team_size", int(c.ID), &err)
	if !logic.ValidTeamSize(size) {
		return ErrInvalidTeamSize
	}
	if err := checkParty(c, team); err != nil {
		return err
	}
	if err := a.Store.SuggestTeamSize(ctx, c.ID, team, size); err != nil {
		return persistence("suggest_team_size", err)
	}
	c.Details.SuggestedTeamSize = size
	c.Details.SuggestedTeamSizeTeam = team
	return a.announce(ctx, "suggest_team_size", c, info("Team size suggested", "A team size of %dv%d has been suggested. The other team can confirm it with `$confirmteamsize`.", size, size))
}

// ConfirmTeamSize locks the suggested team size
func (a *API) ConfirmTeamSize(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "confirm_team_size", int(c.ID), &err)
	if err := checkPending(c, challenge.FacetTeamSize); err != nil {
		return err
	}
	size, err := a.Store.ConfirmTeamSize(ctx, c.ID)
	if err != nil {
		return persistence("confirm_team_size", err)
	}
	c.Details.TeamSize = size
	c.Details.SuggestedTeamSize = 0
	c.Details.SuggestedTeamSizeTeam = 0
	return a.announce(ctx, "confirm_team_size", c, info("Team size confirmed", "This match will be played %dv%d.", size, size))
}

// SetTeamSize locks a team size directly
func (a *API) SetTeamSize(ctx context.Context, c *challenge.Challenge, size int) (err error) {
	defer a.track(ctx, "set_team_size", int(c.ID), &err)
	if !logic.ValidTeamSize(size) {
		return ErrInvalidTeamSize
	}
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if err := a.Store.SetTeamSize(ctx, c.ID, size); err != nil {
		return persistence("set_team_size", err)
	}
	c.Details.TeamSize = size
	c.Details.SuggestedTeamSize = 0
	c.Details.SuggestedTeamSizeTeam = 0
	return a.announce(ctx, "set_team_size", c, info("Team size set", "An admin has set this match to %dv%d.", size, size))
}

// endregion

// region time

// SuggestTime records team's match time suggestion. Timers are not touched until the time is confirmed.
func (a *API) SuggestTime(ctx context.Context, c *challenge.Challenge, team shared.TeamID, t time.Time) (err error) {
	defer a.track(ctx, "suggest_time", int(c.ID), &err)
	if err := checkParty(c, team); err != nil {
		return err
	}
	t = t.UTC()
	if err := a.Store.SuggestTime(ctx, c.ID, team, t); err != nil {
		return persistence("suggest_time", err)
	}
	c.Details.SuggestedTime = &t
	c.Details.SuggestedTimeTeam = team
	return a.announce(ctx, "suggest_time", c, a.timeMessage(ctx, c, "Match time suggested", t, "The other team can confirm it with `$confirmtime`."))
}

// ConfirmTime locks the suggested match time and re-arms the starting and missed timers
func (a *API) ConfirmTime(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "confirm_time", int(c.ID), &err)
	if err := checkPending(c, challenge.FacetTime); err != nil {
		return err
	}
	t, err := a.Store.ConfirmTime(ctx, c.ID)
	if err != nil {
		return persistence("confirm_time", err)
	}
	t = t.UTC()
	c.Details.MatchTime = &t
	c.Details.SuggestedTime = nil
	c.Details.SuggestedTimeTeam = 0
	c.Details.DateMatchTimeNotified = nil
	c.Details.DateMatchTimePassedNotified = nil
	a.armMatch(c, false)
	return a.announce(ctx, "confirm_time", c, a.timeMessage(ctx, c, "Match time confirmed", t, ""))
}

// SetTime sets or clears the match time directly and re-arms the starting and missed timers
func (a *API) SetTime(ctx context.Context, c *challenge.Challenge, t *time.Time) (err error) {
	defer a.track(ctx, "set_time", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if t != nil {
		u := t.UTC()
		t = &u
	}
	if err := a.Store.SetTime(ctx, c.ID, t); err != nil {
		return persistence("set_time", err)
	}
	c.Details.MatchTime = t
	c.Details.SuggestedTime = nil
	c.Details.SuggestedTimeTeam = 0
	c.Details.DateMatchTimeNotified = nil
	c.Details.DateMatchTimePassedNotified = nil
	a.armMatch(c, false)

	if t == nil {
		return a.announce(ctx, "set_time", c, info("Match time cleared", "An admin has cleared the match time."))
	}
	return a.announce(ctx, "set_time", c, a.timeMessage(ctx, c, "Match time set", *t, ""))
}

// timeMessage renders t in each team's timezone. A team that cannot be read falls back to UTC.
func (a *API) timeMessage(ctx context.Context, c *challenge.Challenge, title string, t time.Time, footer string) shared.Message {
	msg := shared.Message{Title: title, Description: footer, Color: colorInfo}
	for _, id := range c.Teams() {
		team, err := a.Teams.Get(ctx, id)
		if err != nil {
			a.Log.Warn("could not read team for time message", "team_id", int(id), "error", err)
			team = shared.Team{ID: id, Name: fmt.Sprintf("Team %d", id)}
		}
		msg.Fields = append(msg.Fields, shared.Field{Name: team.Name, Value: logic.FormatInZone(t, team.Timezone)})
	}
	return msg
}

// endregion

// armMatch sets the starting and missed timers from the match time. Acknowledged notices are not re-armed. With
// futureOnly set a notice whose date has already passed is left alone.
func (a *API) armMatch(c *challenge.Challenge, futureOnly bool) {
	d := c.Details
	if c.Closed() || c.Voided() || c.Confirmed() || c.Reported() || d.MatchTime == nil {
		a.Timers.Set(timers.MatchStarting, c.ID, nil)
		a.Timers.Set(timers.MatchMissed, c.ID, nil)
		return
	}
	now := a.now()
	starting := logic.StartingNotificationDate(*d.MatchTime)
	missed := logic.MissedNotificationDate(*d.MatchTime)
	if d.DateMatchTimeNotified == nil && (!futureOnly || starting.After(now)) {
		a.Timers.Set(timers.MatchStarting, c.ID, &starting)
	} else {
		a.Timers.Set(timers.MatchStarting, c.ID, nil)
	}
	if d.DateMatchTimePassedNotified == nil && (!futureOnly || missed.After(now)) {
		a.Timers.Set(timers.MatchMissed, c.ID, &missed)
	} else {
		a.Timers.Set(timers.MatchMissed, c.ID, nil)
	}
}

// armClock sets the clock expiry timer from the deadline
func (a *API) armClock(c *challenge.Challenge, futureOnly bool) {
	d := c.Details
	if c.Closed() || c.Voided() || c.Confirmed() || d.DateClockDeadline == nil || d.DateClockDeadlineNotified != nil {
		a.Timers.Set(timers.ClockExpired, c.ID, nil)
		return
	}
	if futureOnly && !d.DateClockDeadline.After(a.now()) {
		a.Timers.Set(timers.ClockExpired, c.ID, nil)
		return
	}
	a.Timers.Set(timers.ClockExpired, c.ID, d.DateClockDeadline)
}
