/* notifier.go
 * Contains the discord implementation of the engine's notification sink. Challenge channels are created under the
 * challenges category, visible only to the two teams and the admins. Every failure is returned to the engine.
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"otl-bot/api/api"
	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"

	"github.com/bwmarrin/discordgo"
)

const (
	// discord rejects topics longer than this
	maxTopicLength = 1024
	teamPerms      = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory
)

var errNoChannel = errors.New("channel not found")

// TeamGetter resolves a team for display
type TeamGetter interface {
	Get(ctx context.Context, id shared.TeamID) (shared.Team, error)
}

// Notifier posts engine notifications to discord
type Notifier struct {
	session DiscordSession
	teams   TeamGetter
	cfg     Config
	log     *slog.Logger

	mu       sync.Mutex
	channels map[challenge.ID]string
}

var _ api.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier over the session. teams may be nil, topics then show team IDs.
func NewNotifier(session DiscordSession, teams TeamGetter, cfg Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		session:  session,
		teams:    teams,
		cfg:      cfg,
		log:      logger.With("component", "notifier"),
		channels: make(map[challenge.ID]string),
	}
}

// CreateChallengeChannel creates the private channel for a challenge
// Preconditions: Receives the challenge and both teams, whose RoleIDs should be set
// Postconditions: The channel exists and is remembered, or an error is returned
func (n *Notifier) CreateChallengeChannel(ctx context.Context, c *challenge.Challenge, challenging, challenged shared.Team) error {
	overwrites := []*discordgo.PermissionOverwrite{
		// the @everyone role shares the guild's ID
		{ID: n.cfg.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	for _, role := range []string{challenging.RoleID, challenged.RoleID, n.cfg.AdminRoleID} {
		if role == "" {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{ID: role, Type: discordgo.PermissionOverwriteTypeRole, Allow: teamPerms})
	}

	ch, err := n.session.GuildChannelCreateComplex(n.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 c.ChannelName(),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                truncate(Topic(c, challenging, challenged), maxTopicLength),
		ParentID:             n.cfg.ChallengesCategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create channel %s: %w", c.ChannelName(), err)
	}

	n.mu.Lock()
	n.channels[c.ID] = ch.ID
	n.mu.Unlock()
	n.log.Debug("challenge channel created", slog.Int("challenge_id", int(c.ID)), slog.String("channel_id", ch.ID))
	return nil
}

// DeleteChallengeChannel removes the channel for a challenge. A channel that is already gone is not an error.
func (n *Notifier) DeleteChallengeChannel(ctx context.Context, id challenge.ID) error {
	channelID, err := n.channelID(ctx, id)
	if errors.Is(err, errNoChannel) {
		n.log.Warn("challenge channel already gone", slog.Int("challenge_id", int(id)))
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := n.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel %s: %w", challenge.ChannelName(id), err)
	}
	n.mu.Lock()
	delete(n.channels, id)
	n.mu.Unlock()
	return nil
}

// UpdateChallengeTopic rewrites the channel topic from the challenge's details
func (n *Notifier) UpdateChallengeTopic(ctx context.Context, c *challenge.Challenge) error {
	channelID, err := n.channelID(ctx, c.ID)
	if err != nil {
		return err
	}
	challenging, challenged := n.team(ctx, c.ChallengingTeam), n.team(ctx, c.ChallengedTeam)
	topic := truncate(Topic(c, challenging, challenged), maxTopicLength)
	if _, err := n.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Topic: topic}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("update topic of %s: %w", c.ChannelName(), err)
	}
	return nil
}

// PostChallenge posts msg in the challenge's channel
func (n *Notifier) PostChallenge(ctx context.Context, id challenge.ID, msg shared.Message) error {
	channelID, err := n.channelID(ctx, id)
	if err != nil {
		return err
	}
	return n.post(ctx, channelID, msg)
}

// PostTeam posts msg in the team's own channel
func (n *Notifier) PostTeam(ctx context.Context, team shared.Team, msg shared.Message) error {
	if team.ChannelID == "" {
		return fmt.Errorf("team %d has no channel: %w", team.ID, errNoChannel)
	}
	return n.post(ctx, team.ChannelID, msg)
}

// PostAlert posts msg for the admins
func (n *Notifier) PostAlert(ctx context.Context, msg shared.Message) error {
	if n.cfg.AlertsChannelID == "" {
		n.log.Warn("no alerts channel configured, dropping alert", slog.String("title", msg.Title))
		return nil
	}
	return n.post(ctx, n.cfg.AlertsChannelID, msg)
}

// PostResults posts msg in the public results channel
func (n *Notifier) PostResults(ctx context.Context, msg shared.Message) error {
	if n.cfg.ResultsChannelID == "" {
		n.log.Warn("no results channel configured, dropping result", slog.String("title", msg.Title))
		return nil
	}
	return n.post(ctx, n.cfg.ResultsChannelID, msg)
}

// DirectMessage sends msg to a single user
func (n *Notifier) DirectMessage(ctx context.Context, discordID string, msg shared.Message) error {
	dm, err := n.session.UserChannelCreate(discordID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", discordID, err)
	}
	return n.post(ctx, dm.ID, msg)
}

func (n *Notifier) team(ctx context.Context, id shared.TeamID) shared.Team {
	if n.teams == nil {
		return shared.Team{ID: id}
	}
	team, err := n.teams.Get(ctx, id)
	if err != nil {
		n.log.Warn("team lookup failed", slog.Int("team_id", int(id)), slog.Any("error", err))
		return shared.Team{ID: id}
	}
	return team
}

func (n *Notifier) post(ctx context.Context, channelID string, msg shared.Message) error {
	if _, err := n.session.ChannelMessageSendEmbed(channelID, Embed(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("post %q to %s: %w", msg.Title, channelID, err)
	}
	return nil
}

// channelID resolves the discord channel of a challenge, falling back to a lookup by name after a restart
func (n *Notifier) channelID(ctx context.Context, id challenge.ID) (string, error) {
	n.mu.Lock()
	channelID, ok := n.channels[id]
	n.mu.Unlock()
	if ok {
		return channelID, nil
	}

	channels, err := n.session.GuildChannels(n.cfg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list guild channels: %w", err)
	}
	name := challenge.ChannelName(id)
	for _, ch := range channels {
		if ch.Name != name {
			continue
		}
		if n.cfg.ChallengesCategoryID != "" && ch.ParentID != n.cfg.ChallengesCategoryID {
			continue
		}
		n.mu.Lock()
		n.channels[id] = ch.ID
		n.mu.Unlock()
		return ch.ID, nil
	}
	return "", fmt.Errorf("%s: %w", name, errNoChannel)
}

// Embed converts a platform independent message to a discord embed
func Embed(msg shared.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: msg.Title, Description: msg.Description, Color: msg.Color}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	return embed
}

// Topic summarises the agreed facets of a challenge on one line. Team names are used when known.
func Topic(c *challenge.Challenge, challenging, challenged shared.Team) string {
	d := c.Details
	name := func(id shared.TeamID) string {
		switch {
		case id == challenging.ID && challenging.Name != "":
			return challenging.Name
		case id == challenged.ID && challenged.Name != "":
			return challenged.Name
		}
		return fmt.Sprintf("team %d", id)
	}

	parts := []string{fmt.Sprintf("%s vs %s", name(c.ChallengingTeam), name(c.ChallengedTeam))}
	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	switch {
	case d.Map != "":
		parts = append(parts, "Map: "+d.Map)
	case d.UsingHomeMapTeam && d.HomeMapTeam != 0:
		parts = append(parts, fmt.Sprintf("Map: %s home map, pick with $pickmap", name(d.HomeMapTeam)))
	}
	if d.UsingHomeServerTeam && d.HomeServerTeam != 0 {
		parts = append(parts, fmt.Sprintf("Server: %s", name(d.HomeServerTeam)))
	} else {
		parts = append(parts, "Server: neutral")
	}
	if d.TeamSize != 0 {
		parts = append(parts, fmt.Sprintf("Team size: %dv%d", d.TeamSize, d.TeamSize))
	}
	if d.MatchTime != nil {
		parts = append(parts, "Time: "+logic.FormatInZone(*d.MatchTime, ""))
	}
	if d.DateClockDeadline != nil {
		parts = append(parts, fmt.Sprintf("Clocked by %s, deadline %s", name(d.ClockTeam), logic.FormatInZone(*d.DateClockDeadline, "")))
	}
	if d.DateConfirmed != nil {
		parts = append(parts, fmt.Sprintf("Final: %d to %d", d.ChallengingTeamScore, d.ChallengedTeamScore))
	} else if c.Reported() {
		parts = append(parts, fmt.Sprintf("Reported: %d to %d, awaiting confirmation", d.ChallengingTeamScore, d.ChallengedTeamScore))
	}
	if d.Caster != "" {
		parts = append(parts, fmt.Sprintf("Caster: <@%s>", d.Caster))
	}
	return strings.Join(parts, " | ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
