/* handlers.go
 * Contains testable handler methods that accept DiscordSession interface. The handlers own who may do what:
 * leadership, which team may confirm, clock eligibility and penalty gates. The engine applies the change and
 * announces it in the challenge channel, so a successful command usually needs no reply.
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"otl-bot/api/api"
	"otl-bot/api/challenge"
	"otl-bot/api/external"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
	"otl-bot/api/store"

	"github.com/bwmarrin/discordgo"
	"github.com/go-andiamo/splitter"
	"github.com/google/uuid"
)

const (
	commandTimeout = 30 * time.Second
	unexpectedErr  = "An unexpected error occured"
)

// ruleErrors are shown to the user as they are. Anything else gets the generic reply.
var ruleErrors = []error{
	api.ErrChallengeClosed, api.ErrChallengeVoided, api.ErrNotParty, api.ErrNothingPending, api.ErrNotReported,
	api.ErrAlreadyConfirmed, api.ErrNotConfirmed, api.ErrNotVoided, api.ErrInvalidTeamSize, api.ErrInvalidHomeMap,
	api.ErrInvalidScore, api.ErrSameTeam, api.ErrNoRematchRequested, api.ErrAlreadyRematched, api.ErrUnknownDecision,
	api.ErrNoTeamsNamed, api.ErrTrackerUnavailable, external.ErrGameNotFound,
}

// command is one invocation of a message command
type command struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session DiscordSession
	message *discordgo.MessageCreate
	name    string
	rest    string
	args    []string
	log     *slog.Logger
}

func (b *Bot) newCommand(session DiscordSession, message *discordgo.MessageCreate) *command {
	invocation := uuid.NewString()
	ctx, cancel := context.WithTimeout(api.WithInvocation(context.Background(), invocation), commandTimeout)
	name, rest, _ := strings.Cut(strings.TrimSpace(message.Content), " ")
	rest = strings.TrimSpace(rest)
	return &command{
		ctx:     ctx,
		cancel:  cancel,
		session: session,
		message: message,
		name:    strings.ToLower(name),
		rest:    rest,
		args:    splitArgs(rest),
		log: b.Log.With(
			slog.String("invocation_id", invocation),
			slog.String("command", strings.ToLower(name)),
			slog.String("user_id", message.Author.ID),
		),
	}
}

// splitArgs splits on spaces, keeping quoted names such as "Cronus Frontier" together
func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	spaceSplitter, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err == nil {
		if split, err := spaceSplitter.Split(s); err == nil {
			parts = split
		}
	}
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = logic.CleanQuotes(p); p != "" {
			args = append(args, p)
		}
	}
	return args
}

func (cmd *command) reply(format string, a ...any) {
	if _, err := cmd.session.ChannelMessageSend(cmd.message.ChannelID, fmt.Sprintf(format, a...), discordgo.WithContext(cmd.ctx)); err != nil {
		cmd.log.Error("reply failed", slog.Any("error", err))
	}
}

func (cmd *command) replyEmbed(msg shared.Message) {
	if _, err := cmd.session.ChannelMessageSendEmbed(cmd.message.ChannelID, Embed(msg), discordgo.WithContext(cmd.ctx)); err != nil {
		cmd.log.Error("reply failed", slog.Any("error", err))
	}
}

func (cmd *command) member() shared.Member {
	return shared.Member{DiscordID: cmd.message.Author.ID, Name: cmd.message.Author.Username}
}

// fail reports err to the user. Persistence failures get the generic reply, critical failures also alert the admins.
func (b *Bot) fail(cmd *command, err error) {
	switch {
	case api.IsCritical(err):
		cmd.log.Error("chat is out of step with the store", slog.Any("error", err))
		cmd.reply("The change was saved, but not every notification could be sent. The admins have been alerted.")
		alert := shared.Message{
			Title:       "Notification failure",
			Description: fmt.Sprintf("`%s` by %s did not finish posting: %v", cmd.name, cmd.message.Author.Username, err),
			Color:       0xcc0000,
		}
		if err := b.APIPtr.Notifier.PostAlert(cmd.ctx, alert); err != nil {
			cmd.log.Error("alert failed", slog.Any("error", err))
		}
	case !api.IsPersistence(err) && slices.ContainsFunc(ruleErrors, func(rule error) bool { return errors.Is(err, rule) }):
		cmd.log.Info("command rejected", slog.Any("error", err))
		cmd.reply("%s", sentence(err.Error()))
	default:
		cmd.log.Error("command failed", slog.Any("error", err))
		cmd.reply(unexpectedErr)
	}
}

// sentence capitalises s and ends it with a full stop
func sentence(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	s = string(r)
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

func (b *Bot) now() time.Time {
	return b.APIPtr.Timers.Clock().Now().UTC()
}

func (b *Bot) isAdmin(cmd *command) bool {
	m := cmd.message.Member
	return b.Config.AdminRoleID != "" && m != nil && slices.Contains(m.Roles, b.Config.AdminRoleID)
}

// player returns the caller's registration
func (b *Bot) player(cmd *command) (shared.Player, bool) {
	p, err := b.APIPtr.Store.GetPlayerByDiscordID(cmd.ctx, cmd.message.Author.ID)
	if api.IsNotFound(err) || (err == nil && p.TeamID == 0) {
		cmd.reply("You are not on a team.")
		return p, false
	}
	if err != nil {
		cmd.log.Error("player lookup failed", slog.Any("error", err))
		cmd.reply(unexpectedErr)
		return p, false
	}
	return p, true
}

// leader returns the caller if they lead their team
func (b *Bot) leader(cmd *command) (shared.Player, bool) {
	p, ok := b.player(cmd)
	if !ok {
		return p, false
	}
	if !p.IsLeader() {
		cmd.reply("Only team founders and captains can use this command.")
		return p, false
	}
	return p, true
}

// here loads the challenge whose channel the command was sent in
func (b *Bot) here(cmd *command) (*challenge.Challenge, bool) {
	ch, err := cmd.session.Channel(cmd.message.ChannelID, discordgo.WithContext(cmd.ctx))
	if err != nil {
		cmd.log.Error("channel lookup failed", slog.Any("error", err))
		cmd.reply(unexpectedErr)
		return nil, false
	}
	c, err := b.APIPtr.LoadByChannel(cmd.ctx, ch.Name)
	if api.IsNotFound(err) {
		cmd.reply("This command can only be used in a challenge channel.")
		return nil, false
	}
	if err != nil {
		cmd.log.Error("challenge lookup failed", slog.Any("error", err))
		cmd.reply(unexpectedErr)
		return nil, false
	}
	return c, true
}

// teamCommand checks that a leader of one of the challenge's teams sent the command in its channel
func (b *Bot) teamCommand(cmd *command) (*challenge.Challenge, shared.Player, bool) {
	p, ok := b.leader(cmd)
	if !ok {
		return nil, p, false
	}
	c, ok := b.here(cmd)
	if !ok {
		return nil, p, false
	}
	if !c.IsParty(p.TeamID) {
		cmd.reply("Your team is not part of this challenge.")
		return nil, p, false
	}
	return c, p, true
}

// canConfirm checks the caller's team may accept the pending suggestion for f
func canConfirm(cmd *command, c *challenge.Challenge, f challenge.Facet, team shared.TeamID) bool {
	if c.CanConfirm(f, team) {
		return true
	}
	if c.Pending(f) == 0 {
		cmd.reply("There is no pending %s suggestion to confirm.", f)
	} else {
		cmd.reply("The other team must confirm your %s suggestion.", f)
	}
	return false
}

func penalized(c *challenge.Challenge, team shared.TeamID) bool {
	if team == c.ChallengingTeam {
		return c.Details.ChallengingTeamPenalized
	}
	return c.Details.ChallengedTeamPenalized
}

// helpHandler handles the $help command with a DiscordSession interface
func (b *Bot) helpHandler(cmd *command) {
	var res strings.Builder
	res.WriteString("OTL Bot\n")
	res.WriteString("`$challenge <team>`: challenge another team. Names with spaces need quotes (e.g. \"Cronus Frontier\")\n")
	res.WriteString("`$pickmap <a|b|c>`: pick one of the home team's maps\n")
	res.WriteString("`$suggestmap <map>` / `$confirmmap`: suggest or accept a neutral map\n")
	res.WriteString("`$suggestserver` / `$confirmserver`: suggest or accept a neutral server\n")
	res.WriteString("`$suggestteamsize <n>` / `$confirmteamsize`: suggest or accept a team size\n")
	res.WriteString("`$suggesttime <time>` / `$confirmtime`: suggest or accept a match time, e.g. `$suggesttime saturday 8pm`. Times are in your team's timezone\n")
	res.WriteString("`$clock`: put the challenge on a 28 day clock\n")
	res.WriteString("`$report <score> <score>`: as the losing team, report the score\n")
	res.WriteString("`$confirm` / `$reject`: accept or dispute the reported score\n")
	res.WriteString("`$rematch`: request or accept a rematch of a confirmed match\n")
	res.WriteString("`$cast` / `$uncast`, `$stream` / `$unstream`: sign up to cast or stream a match\n")
	res.WriteString("`$details`: show the state of this challenge\n")
	if b.isAdmin(cmd) {
		res.WriteString("Admin: `$extend`, `$void`, `$unvoid <id>`, `$close`, `$adjudicate <cancel|extend|penalize> [teams]`, ")
		res.WriteString("`$settime <time in UTC|clear>`, `$setmap <map>`, `$setteamsize <n>`, `$sethomemapteam <team>`, `$sethomeserverteam <team>`, ")
		res.WriteString("`$setscore <challenging> <challenged>`, `$addstats <game id>`, `$addstat <pilot> <kills> <assists> <deaths>`, `$clearstats`, ")
		res.WriteString("`$title <text>`, `$vod <url>`, `$postseason`, `$regularseason`, `$overtime <periods>`\n")
	}
	cmd.reply("%s", res.String())
}

// challengeHandler handles `$challenge <team>`, creating a challenge against the named team
func (b *Bot) challengeHandler(cmd *command) {
	p, ok := b.leader(cmd)
	if !ok {
		return
	}
	if len(cmd.args) == 0 {
		cmd.reply("Usage: `$challenge <team>`")
		return
	}
	teams, err := b.APIPtr.Store.ListTeams(cmd.ctx)
	if err != nil {
		b.fail(cmd, err)
		return
	}
	names := make([]string, 0, len(teams))
	byName := make(map[string]shared.Team, len(teams))
	for _, t := range teams {
		if t.ID == p.TeamID {
			continue
		}
		names = append(names, t.Name)
		byName[t.Name] = t
	}
	name, ok := logic.MatchName(strings.Join(cmd.args, " "), names)
	if !ok {
		cmd.reply("Could not find a team called %s.", strings.Join(cmd.args, " "))
		return
	}
	target := byName[name]

	existing, err := b.APIPtr.Store.GetByTeams(cmd.ctx, p.TeamID, target.ID)
	switch {
	case err == nil:
		cmd.reply("There is already an open challenge against %s in #%s.", target.Name, challenge.ChannelName(existing.ID))
		return
	case !api.IsNotFound(err):
		b.fail(cmd, err)
		return
	}

	c, err := b.APIPtr.Create(cmd.ctx, store.CreateParams{ChallengingTeam: p.TeamID, ChallengedTeam: target.ID})
	if err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("You have challenged %s. Head over to #%s to schedule the match.", target.Name, c.ChannelName())
}

// pickMapHandler handles `$pickmap <a|b|c>`, picking one of the home map team's maps
func (b *Bot) pickMapHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	if !c.Details.UsingHomeMapTeam {
		cmd.reply("This match is not using home maps.")
		return
	}
	if c.Details.HomeMapTeam == p.TeamID {
		cmd.reply("The other team picks from your home maps.")
		return
	}
	number, ok := mapChoice(cmd.args)
	if !ok {
		cmd.reply("Usage: `$pickmap <a|b|c>`")
		return
	}
	if err := b.APIPtr.PickMap(cmd.ctx, c, number); err != nil {
		b.fail(cmd, err)
	}
}

// mapChoice reads a home map choice as a letter or a 1 based number
func mapChoice(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	arg := strings.ToLower(args[0])
	if len(arg) == 1 && arg[0] >= 'a' && arg[0] <= 'z' {
		return int(arg[0]-'a') + 1, true
	}
	n, err := strconv.Atoi(arg)
	return n, err == nil
}

// suggestMapHandler handles `$suggestmap <map>`, suggesting a neutral map
func (b *Bot) suggestMapHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	if penalized(c, p.TeamID) {
		cmd.reply("Your team is penalized and cannot suggest a neutral map.")
		return
	}
	if len(cmd.args) == 0 {
		cmd.reply("Usage: `$suggestmap <map>`")
		return
	}
	if err := b.APIPtr.SuggestMap(cmd.ctx, c, p.TeamID, strings.Join(cmd.args, " ")); err != nil {
		b.fail(cmd, err)
	}
}

// confirmMapHandler handles `$confirmmap`
func (b *Bot) confirmMapHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok || !canConfirm(cmd, c, challenge.FacetMap, p.TeamID) {
		return
	}
	if err := b.APIPtr.ConfirmMap(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
	}
}

// suggestServerHandler handles `$suggestserver`, suggesting a neutral server
func (b *Bot) suggestServerHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	if penalized(c, p.TeamID) {
		cmd.reply("Your team is penalized and cannot suggest a neutral server.")
		return
	}
	if !c.Details.UsingHomeServerTeam {
		cmd.reply("This match is already on a neutral server.")
		return
	}
	if err := b.APIPtr.SuggestNeutralServer(cmd.ctx, c, p.TeamID); err != nil {
		b.fail(cmd, err)
	}
}

// confirmServerHandler handles `$confirmserver`
func (b *Bot) confirmServerHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok || !canConfirm(cmd, c, challenge.FacetServer, p.TeamID) {
		return
	}
	if err := b.APIPtr.ConfirmNeutralServer(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
	}
}

// suggestTeamSizeHandler handles `$suggestteamsize <n>`. "3v3" is accepted as well as "3".
func (b *Bot) suggestTeamSizeHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	size, ok := teamSize(cmd.args)
	if !ok {
		cmd.reply("Usage: `$suggestteamsize <n>`")
		return
	}
	if err := b.APIPtr.SuggestTeamSize(cmd.ctx, c, p.TeamID, size); err != nil {
		b.fail(cmd, err)
	}
}

func teamSize(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	n, _, _ := strings.Cut(strings.ToLower(args[0]), "v")
	size, err := strconv.Atoi(n)
	return size, err == nil
}

// confirmTeamSizeHandler handles `$confirmteamsize`
func (b *Bot) confirmTeamSizeHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok || !canConfirm(cmd, c, challenge.FacetTeamSize, p.TeamID) {
		return
	}
	if err := b.APIPtr.ConfirmTeamSize(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
	}
}

// suggestTimeHandler handles `$suggesttime <time>`, read in the suggesting team's timezone
func (b *Bot) suggestTimeHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	if cmd.rest == "" {
		cmd.reply("Usage: `$suggesttime <time>`, e.g. `$suggesttime saturday 8pm`")
		return
	}
	team, err := b.APIPtr.Teams.Get(cmd.ctx, p.TeamID)
	if err != nil {
		b.fail(cmd, err)
		return
	}
	t, err := logic.ParseMatchTime(logic.CleanQuotes(cmd.rest), b.now(), team.Location())
	if err != nil {
		cmd.reply("%s", sentence(err.Error()))
		return
	}
	if err := b.APIPtr.SuggestTime(cmd.ctx, c, p.TeamID, t); err != nil {
		b.fail(cmd, err)
	}
}

// confirmTimeHandler handles `$confirmtime`
func (b *Bot) confirmTimeHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok || !canConfirm(cmd, c, challenge.FacetTime, p.TeamID) {
		return
	}
	if err := b.APIPtr.ConfirmTime(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
	}
}

// clockHandler handles `$clock`. A challenge is clocked once, only while unscheduled, and a team may clock one
// challenge per clock window.
func (b *Bot) clockHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	switch {
	case c.Details.DateClocked != nil:
		cmd.reply("This challenge has already been clocked.")
		return
	case c.Details.MatchTime != nil:
		cmd.reply("This match is already scheduled.")
		return
	case c.Reported():
		cmd.reply("This match has already been reported.")
		return
	}

	// closed and voided challenges still use up the team's clock
	refs, err := b.APIPtr.Store.GetClockedByTeam(cmd.ctx, p.TeamID, b.now().Add(-logic.ClockWindow))
	if err != nil {
		b.fail(cmd, err)
		return
	}
	for _, ref := range refs {
		if ref.ID != c.ID {
			cmd.reply("Your team already clocked #%s in the last 28 days.", challenge.ChannelName(ref.ID))
			return
		}
	}

	if err := b.APIPtr.Clock(cmd.ctx, c, p.TeamID); err != nil {
		b.fail(cmd, err)
	}
}

// reportHandler handles `$report <score> <score>`, sent by the losing team
func (b *Bot) reportHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	scores, ok := intArgs(cmd.args, 2)
	if !ok {
		cmd.reply("Usage: `$report <score> <score>`, sent by the losing team")
		return
	}
	if c.Confirmed() {
		cmd.reply("This match has already been confirmed.")
		return
	}
	winning, losing := max(scores[0], scores[1]), min(scores[0], scores[1])
	if err := b.APIPtr.Report(cmd.ctx, c, p.TeamID, winning, losing); err != nil {
		b.fail(cmd, err)
	}
}

func intArgs(args []string, n int) ([]int, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// confirmHandler handles `$confirm`, accepting the other team's report
func (b *Bot) confirmHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	switch {
	case c.Confirmed():
		cmd.reply("This match has already been confirmed.")
		return
	case !c.Reported():
		cmd.reply("This match has not been reported yet.")
		return
	case !c.CanConfirmReport(p.TeamID):
		cmd.reply("The other team must confirm your report.")
		return
	}
	if err := b.APIPtr.ConfirmMatch(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
	}
}

// rejectHandler handles `$reject`, disputing the other team's report
func (b *Bot) rejectHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	if c.Reported() && c.Details.ReportingTeam == p.TeamID {
		cmd.reply("You cannot reject your own report.")
		return
	}
	if err := b.APIPtr.RejectReport(cmd.ctx, c, p.TeamID); err != nil {
		b.fail(cmd, err)
	}
}

// rematchHandler handles `$rematch`. The first team asks, the other team accepts.
func (b *Bot) rematchHandler(cmd *command) {
	c, p, ok := b.teamCommand(cmd)
	if !ok {
		return
	}
	switch c.Details.RematchTeam {
	case 0:
		if err := b.APIPtr.RequestRematch(cmd.ctx, c, p.TeamID); err != nil {
			b.fail(cmd, err)
		}
	case p.TeamID:
		cmd.reply("Your team has already requested a rematch. The other team must accept it.")
	default:
		next, err := b.APIPtr.CreateRematch(cmd.ctx, c, p.TeamID)
		if err != nil {
			b.fail(cmd, err)
			return
		}
		cmd.reply("The rematch is on in #%s.", next.ChannelName())
	}
}

// detailsHandler handles `$details`, showing the state of the challenge
func (b *Bot) detailsHandler(cmd *command) {
	if !b.isAdmin(cmd) {
		if _, ok := b.player(cmd); !ok {
			return
		}
	}
	c, ok := b.here(cmd)
	if !ok {
		return
	}
	challenging, err := b.APIPtr.Teams.Get(cmd.ctx, c.ChallengingTeam)
	if err != nil {
		b.fail(cmd, err)
		return
	}
	challenged, err := b.APIPtr.Teams.Get(cmd.ctx, c.ChallengedTeam)
	if err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.replyEmbed(detailsMessage(c, challenging, challenged))
}

func detailsMessage(c *challenge.Challenge, challenging, challenged shared.Team) shared.Message {
	d := c.Details
	name := map[shared.TeamID]string{challenging.ID: challenging.Name, challenged.ID: challenged.Name}
	or := func(s, fallback string) string {
		if s == "" {
			return fallback
		}
		return s
	}

	msg := shared.Message{
		Title:       fmt.Sprintf("%s vs %s", challenging.Name, challenged.Name),
		Description: or(d.Title, fmt.Sprintf("Challenge %d", c.ID)),
		Color:       challenging.Color,
	}
	add := func(field, value string) {
		msg.Fields = append(msg.Fields, shared.Field{Name: field, Value: value})
	}
	add("Orange", name[d.OrangeTeam])
	add("Blue", name[d.BlueTeam])

	switch {
	case d.Map != "":
		add("Map", d.Map)
	case d.UsingHomeMapTeam:
		add("Map", fmt.Sprintf("%s's home maps: %s", name[d.HomeMapTeam], strings.Join(d.HomeMaps, ", ")))
	default:
		add("Map", "Not set")
	}
	if d.SuggestedMap != "" {
		add("Suggested map", fmt.Sprintf("%s by %s", d.SuggestedMap, name[d.SuggestedMapTeam]))
	}

	if d.UsingHomeServerTeam {
		add("Server", name[d.HomeServerTeam]+" hosts")
	} else {
		add("Server", "Neutral")
	}
	if d.SuggestedNeutralServerTeam != 0 {
		add("Suggested server", "Neutral by "+name[d.SuggestedNeutralServerTeam])
	}

	if d.TeamSize != 0 {
		add("Team size", fmt.Sprintf("%dv%d", d.TeamSize, d.TeamSize))
	}
	if d.SuggestedTeamSize != 0 {
		add("Suggested team size", fmt.Sprintf("%dv%d by %s", d.SuggestedTeamSize, d.SuggestedTeamSize, name[d.SuggestedTeamSizeTeam]))
	}

	if d.MatchTime != nil {
		add("Match time", logic.FormatInZone(*d.MatchTime, ""))
	}
	if d.SuggestedTime != nil {
		add("Suggested time", fmt.Sprintf("%s by %s", logic.FormatInZone(*d.SuggestedTime, ""), name[d.SuggestedTimeTeam]))
	}
	if d.DateClockDeadline != nil {
		add("Clock", fmt.Sprintf("Clocked by %s, deadline %s", name[d.ClockTeam], logic.FormatInZone(*d.DateClockDeadline, "")))
	}

	switch {
	case c.Confirmed():
		add("Score", fmt.Sprintf("%d to %d, confirmed", d.ChallengingTeamScore, d.ChallengedTeamScore))
	case c.Reported():
		add("Score", fmt.Sprintf("%d to %d, reported by %s", d.ChallengingTeamScore, d.ChallengedTeamScore, name[d.ReportingTeam]))
	}
	if d.Caster != "" {
		add("Caster", "<@"+d.Caster+">")
	}
	if len(d.Streamers) > 0 {
		streamers := make([]string, 0, len(d.Streamers))
		for _, s := range d.Streamers {
			streamers = append(streamers, "<@"+s+">")
		}
		add("Streamers", strings.Join(streamers, ", "))
	}
	if d.Postseason {
		add("Season", "Postseason")
	}
	return msg
}
