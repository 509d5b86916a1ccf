/* extras.go
 * Contains the auxiliary challenge fields (caster, streamers, title, VOD, postseason, overtime) and match stats
 */

package api

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"otl-bot/api/challenge"
	"otl-bot/api/external"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
)

func checkNotVoided(c *challenge.Challenge) error {
	if c.Voided() {
		return ErrChallengeVoided
	}
	return nil
}

// SetCaster assigns or clears (empty discordID) the caster and lets them know
func (a *API) SetCaster(ctx context.Context, c *challenge.Challenge, discordID string) (err error) {
	defer a.track(ctx, "set_caster", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	previous := c.Details.Caster
	if err := a.Store.SetCaster(ctx, c.ID, discordID); err != nil {
		return persistence("set_caster", err)
	}
	c.Details.Caster = discordID

	fx := &effects{op: "set_caster"}
	if discordID != "" {
		fx.do(a.Notifier.DirectMessage(ctx, discordID, info("Casting assignment", "You are now casting challenge %d.", c.ID)))
		if !c.Closed() {
			fx.do(a.announce(ctx, "set_caster", c, info("Caster assigned", "<@%s> will be casting this match.", discordID)))
		}
	} else if previous != "" {
		fx.do(a.Notifier.DirectMessage(ctx, previous, info("Casting assignment", "You are no longer casting challenge %d.", c.ID)))
		if !c.Closed() {
			fx.do(a.Notifier.UpdateChallengeTopic(ctx, c))
		}
	}
	return fx.err()
}

// AddStreamer adds a streamer, adding one twice is a no-op
func (a *API) AddStreamer(ctx context.Context, c *challenge.Challenge, discordID string) (err error) {
	defer a.track(ctx, "add_streamer", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	if err := a.Store.AddStreamer(ctx, c.ID, discordID); err != nil {
		return persistence("add_streamer", err)
	}
	if !slices.Contains(c.Details.Streamers, discordID) {
		c.Details.Streamers = append(c.Details.Streamers, discordID)
	}
	if c.Closed() {
		return nil
	}
	return a.announce(ctx, "add_streamer", c, info("Streamer added", "<@%s> will be streaming this match.", discordID))
}

// RemoveStreamer removes a streamer
func (a *API) RemoveStreamer(ctx context.Context, c *challenge.Challenge, discordID string) (err error) {
	defer a.track(ctx, "remove_streamer", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	if err := a.Store.RemoveStreamer(ctx, c.ID, discordID); err != nil {
		return persistence("remove_streamer", err)
	}
	c.Details.Streamers = slices.DeleteFunc(c.Details.Streamers, func(s string) bool { return s == discordID })
	if c.Closed() {
		return nil
	}
	return a.announce(ctx, "remove_streamer", c, info("Streamer removed", "<@%s> is no longer streaming this match.", discordID))
}

// SetTitle sets or clears the match title
func (a *API) SetTitle(ctx context.Context, c *challenge.Challenge, title string) (err error) {
	defer a.track(ctx, "set_title", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if err := a.Store.SetTitle(ctx, c.ID, title); err != nil {
		return persistence("set_title", err)
	}
	c.Details.Title = title
	if c.Closed() {
		return nil
	}
	if err := a.Notifier.UpdateChallengeTopic(ctx, c); err != nil {
		return &CriticalError{Op: "set_title", Err: err}
	}
	return nil
}

// SetVod records the VOD link, allowed after close
func (a *API) SetVod(ctx context.Context, c *challenge.Challenge, vod string) (err error) {
	defer a.track(ctx, "set_vod", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	vod = strings.TrimSpace(vod)
	if err := a.Store.SetVod(ctx, c.ID, vod); err != nil {
		return persistence("set_vod", err)
	}
	c.Details.VOD = vod
	if vod == "" || c.Details.Caster == "" {
		return nil
	}
	if err := a.Notifier.DirectMessage(ctx, c.Details.Caster, info("VOD recorded", "The VOD for challenge %d has been set to %s.", c.ID, vod)); err != nil {
		return &CriticalError{Op: "set_vod", Err: err}
	}
	return nil
}

// SetPostseason flags the challenge as a postseason match
func (a *API) SetPostseason(ctx context.Context, c *challenge.Challenge, postseason bool) (err error) {
	defer a.track(ctx, "set_postseason", int(c.ID), &err)
	if err := c.CheckOpen(); err != nil {
		return err
	}
	if err := a.Store.SetPostseason(ctx, c.ID, postseason); err != nil {
		return persistence("set_postseason", err)
	}
	c.Details.Postseason = postseason
	word := "regular season"
	if postseason {
		word = "postseason"
	}
	return a.announce(ctx, "set_postseason", c, info("Season updated", "This is now a %s match.", word))
}

// SetOvertimePeriods records how many overtime periods were played
func (a *API) SetOvertimePeriods(ctx context.Context, c *challenge.Challenge, periods int) (err error) {
	defer a.track(ctx, "set_overtime_periods", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	if periods < 0 {
		return fmt.Errorf("overtime periods cannot be negative")
	}
	if err := a.Store.SetOvertimePeriods(ctx, c.ID, periods); err != nil {
		return persistence("set_overtime_periods", err)
	}
	c.Details.OvertimePeriods = periods
	return nil
}

// AddStat records one pilot's line for the match
func (a *API) AddStat(ctx context.Context, c *challenge.Challenge, stat shared.Stat) (err error) {
	defer a.track(ctx, "add_stat", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	if !c.IsParty(stat.TeamID) {
		return ErrNotParty
	}
	if stat.Kills < 0 || stat.Assists < 0 || stat.Deaths < 0 {
		return fmt.Errorf("stats cannot be negative")
	}
	if err := a.Store.AddStat(ctx, c.ID, stat); err != nil {
		return persistence("add_stat", err)
	}
	return nil
}

// ClearStats removes every stat line for the match
func (a *API) ClearStats(ctx context.Context, c *challenge.Challenge) (err error) {
	defer a.track(ctx, "clear_stats", int(c.ID), &err)
	if err := checkNotVoided(c); err != nil {
		return err
	}
	if err := a.Store.ClearStats(ctx, c.ID); err != nil {
		return persistence("clear_stats", err)
	}
	return nil
}

// AddStatsFromTracker imports stats for a tracked game. Pilots are matched to roster names, orange pilots against
// the orange team. Pilots that match nobody are returned in Unmatched.
func (a *API) AddStatsFromTracker(ctx context.Context, c *challenge.Challenge, gameID int) (res TrackerImport, err error) {
	defer a.track(ctx, "add_stats_from_tracker", int(c.ID), &err)
	if a.Tracker == nil {
		return res, ErrTrackerUnavailable
	}
	if err := checkNotVoided(c); err != nil {
		return res, err
	}

	game, err := a.Tracker.GetGame(ctx, gameID)
	if err != nil {
		return res, fmt.Errorf("failed to get game %d from tracker: %w", gameID, err)
	}
	orange, blue := game.ByColour()

	var stats []shared.Stat
	for _, side := range []struct {
		team   shared.TeamID
		pilots []external.PilotStat
	}{{c.Details.OrangeTeam, orange}, {c.Details.BlueTeam, blue}} {
		team := side.team
		roster, err := a.Store.GetRoster(ctx, team)
		if err != nil {
			return res, persistence("add_stats_from_tracker", err)
		}
		byName := map[string]shared.Player{}
		var names []string
		for _, p := range roster {
			byName[p.Name] = p
			names = append(names, p.Name)
		}
		for _, pl := range side.pilots {
			name, ok := logic.MatchName(pl.Name, names)
			if !ok {
				res.Unmatched = append(res.Unmatched, pl.Name)
				continue
			}
			stats = append(stats, shared.Stat{
				PlayerID: byName[name].ID,
				TeamID:   team,
				Kills:    pl.Kills,
				Assists:  pl.Assists,
				Deaths:   pl.Deaths,
				Damage:   pl.Damage,
			})
		}
	}

	for _, s := range stats {
		if err := a.Store.AddStat(ctx, c.ID, s); err != nil {
			return res, persistence("add_stats_from_tracker", err)
		}
		res.Imported++
	}
	slices.Sort(res.Unmatched)
	return res, nil
}
