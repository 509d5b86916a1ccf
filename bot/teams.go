/* teams.go
 * Contains the team collaborator used by the engine: team lookups, disbanding a team, refreshing a team's channel
 * and handing a finished challenge to the season ratings.
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"otl-bot/api/api"
	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
	"otl-bot/api/store"

	"github.com/bwmarrin/discordgo"
)

// Teams implements api.Teams over the store and discord
type Teams struct {
	session DiscordSession
	store   store.Interface
	cache   cache.Invalidator
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

var _ api.Teams = (*Teams)(nil)

// NewTeams creates the team collaborator. invalidator may be nil.
func NewTeams(session DiscordSession, s store.Interface, invalidator cache.Invalidator, cfg Config, logger *slog.Logger) *Teams {
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Teams{
		session: session,
		store:   s,
		cache:   invalidator,
		cfg:     cfg,
		log:     logger.With("component", "teams"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the team with id
func (t *Teams) Get(ctx context.Context, id shared.TeamID) (shared.Team, error) {
	return t.store.GetTeam(ctx, id)
}

// Disband marks the team disbanded, bars its leaders, strips the team role from its pilots and removes its channel
// Preconditions: Receives the team and the member responsible
// Postconditions: The team is disbanded in the store. Discord clean up failures are joined into the returned error.
func (t *Teams) Disband(ctx context.Context, team shared.Team, actor shared.Member) error {
	roster, err := t.store.GetRoster(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("disband %s: %w", team.Name, err)
	}
	leaders, err := t.store.DisbandTeam(ctx, team.ID, t.now())
	if err != nil {
		return fmt.Errorf("disband %s: %w", team.Name, err)
	}

	var errs []error
	if team.RoleID != "" {
		for _, p := range roster {
			if p.DiscordID == "" {
				continue
			}
			if err := t.session.GuildMemberRoleRemove(t.cfg.GuildID, p.DiscordID, team.RoleID, discordgo.WithContext(ctx)); err != nil {
				errs = append(errs, fmt.Errorf("remove role from %s: %w", p.Name, err))
			}
		}
	}
	if team.ChannelID != "" {
		if _, err := t.session.ChannelDelete(team.ChannelID, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("delete channel of %s: %w", team.Name, err))
		}
	}

	names := make([]string, 0, len(leaders))
	for _, l := range leaders {
		names = append(names, l.Name)
	}
	t.log.Info("team disbanded",
		slog.Int("team_id", int(team.ID)),
		slog.String("actor", actor.Name),
		slog.String("barred_leaders", strings.Join(names, ", ")),
	)
	return errors.Join(errs...)
}

// UpdateChannels refreshes the topic of the team's channel with its open challenges
func (t *Teams) UpdateChannels(ctx context.Context, team shared.Team) error {
	if team.Disbanded || team.ChannelID == "" {
		return nil
	}
	refs, err := t.store.GetAllByTeam(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("challenges of %s: %w", team.Name, err)
	}

	lines := make([]string, 0, len(refs))
	for _, ref := range refs {
		c, err := ref.Load(ctx, t.store)
		if err != nil {
			return fmt.Errorf("challenges of %s: %w", team.Name, err)
		}
		opponentID, _ := c.Opponent(team.ID)
		opponent, err := t.store.GetTeam(ctx, opponentID)
		if err != nil {
			return fmt.Errorf("challenges of %s: %w", team.Name, err)
		}
		line := "vs " + opponent.Name
		if c.Details.MatchTime != nil {
			line += " at " + logic.FormatInZone(*c.Details.MatchTime, team.Timezone)
		}
		lines = append(lines, line)
	}

	topic := fmt.Sprintf("%s (%s) | No open challenges", team.Name, team.Tag)
	if len(lines) > 0 {
		topic = fmt.Sprintf("%s (%s) | Open challenges: %s", team.Name, team.Tag, strings.Join(lines, ", "))
	}
	if _, err := t.session.ChannelEdit(team.ChannelID, &discordgo.ChannelEdit{Topic: truncate(topic, maxTopicLength)}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("update channel of %s: %w", team.Name, err)
	}
	return nil
}

// UpdateRatingsForSeasonFromChallenge drops every cached view the challenge's result feeds into. The rating
// itself is recomputed from the request the engine queues in the store.
func (t *Teams) UpdateRatingsForSeasonFromChallenge(ctx context.Context, team shared.Team, c *challenge.Challenge) error {
	roster, err := t.store.GetRoster(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("ratings of %s: %w", team.Name, err)
	}
	keys := []cache.Key{cache.Team(int(team.ID)), {Event: cache.ChallengeClosed}}
	for _, p := range roster {
		keys = append(keys, cache.Player(int(p.ID)))
	}
	t.cache.Invalidate(ctx, keys...)
	t.log.Debug("season ratings refreshed", slog.Int("team_id", int(team.ID)), slog.Int("challenge_id", int(c.ID)))
	return nil
}
