/* admin.go
 * Contains the admin commands, plus casting and streaming sign ups which are open to anyone
 */

package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"otl-bot/api/api"
	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
)

// adminHere checks the caller is an admin and loads the challenge of the current channel
func (b *Bot) adminHere(cmd *command) (*challenge.Challenge, bool) {
	if !b.isAdmin(cmd) {
		cmd.reply("This command is for admins only.")
		return nil, false
	}
	return b.here(cmd)
}

// party resolves a typed team name against the two teams of the challenge
func (b *Bot) party(cmd *command, c *challenge.Challenge, input string) (shared.Team, bool) {
	teams := make(map[string]shared.Team, 2)
	names := make([]string, 0, 2)
	for _, id := range c.Teams() {
		t, err := b.APIPtr.Teams.Get(cmd.ctx, id)
		if err != nil {
			b.fail(cmd, err)
			return shared.Team{}, false
		}
		teams[t.Name] = t
		teams[t.Tag] = t
		names = append(names, t.Name, t.Tag)
	}
	name, ok := logic.MatchName(input, names)
	if !ok {
		cmd.reply("%s is not part of this challenge.", input)
		return shared.Team{}, false
	}
	return teams[name], true
}

// extendHandler handles `$extend`
func (b *Bot) extendHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if err := b.APIPtr.Extend(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
	}
}

// voidHandler handles `$void`
func (b *Bot) voidHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if err := b.APIPtr.Void(cmd.ctx, c, cmd.member(), 0); err != nil {
		b.fail(cmd, err)
	}
}

// unvoidHandler handles `$unvoid <id>`. A voided challenge has no channel, so it is named by ID.
func (b *Bot) unvoidHandler(cmd *command) {
	if !b.isAdmin(cmd) {
		cmd.reply("This command is for admins only.")
		return
	}
	ids, ok := intArgs(cmd.args, 1)
	if !ok {
		cmd.reply("Usage: `$unvoid <challenge id>`")
		return
	}
	c, err := b.APIPtr.Load(cmd.ctx, challenge.ID(ids[0]))
	if api.IsNotFound(err) {
		cmd.reply("Challenge %d does not exist.", ids[0])
		return
	}
	if err != nil {
		b.fail(cmd, err)
		return
	}
	if err := b.APIPtr.Unvoid(cmd.ctx, c, cmd.member()); err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("Challenge %d has been unvoided.", c.ID)
}

// closeHandler handles `$close`
func (b *Bot) closeHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if !c.Confirmed() {
		cmd.reply("Only a confirmed match can be closed. Use `$void` to throw it out.")
		return
	}
	if err := b.APIPtr.Close(cmd.ctx, c, cmd.member()); err != nil {
		b.fail(cmd, err)
	}
}

// adjudicateHandler handles `$adjudicate <cancel|extend|penalize> [team] [team]`
func (b *Bot) adjudicateHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if len(cmd.args) == 0 {
		cmd.reply("Usage: `$adjudicate <cancel|extend|penalize> [team] [team]`")
		return
	}
	decision, err := api.ParseDecision(cmd.args[0])
	if err != nil {
		b.fail(cmd, err)
		return
	}
	var teams []shared.TeamID
	for _, input := range cmd.args[1:] {
		t, ok := b.party(cmd, c, input)
		if !ok {
			return
		}
		teams = append(teams, t.ID)
	}
	if _, err := b.APIPtr.Adjudicate(cmd.ctx, c, cmd.member(), decision, teams); err != nil {
		b.fail(cmd, err)
	}
}

// setTimeHandler handles `$settime <time|clear>`. Admin times are read in UTC.
func (b *Bot) setTimeHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if cmd.rest == "" {
		cmd.reply("Usage: `$settime <time in UTC|clear>`")
		return
	}
	var t *time.Time
	if !strings.EqualFold(cmd.rest, "clear") {
		parsed, err := logic.ParseMatchTime(logic.CleanQuotes(cmd.rest), b.now(), time.UTC)
		if err != nil {
			cmd.reply("%s", sentence(err.Error()))
			return
		}
		t = &parsed
	}
	if err := b.APIPtr.SetTime(cmd.ctx, c, t); err != nil {
		b.fail(cmd, err)
	}
}

// setMapHandler handles `$setmap <map>`
func (b *Bot) setMapHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if len(cmd.args) == 0 {
		cmd.reply("Usage: `$setmap <map>`")
		return
	}
	if err := b.APIPtr.SetMap(cmd.ctx, c, strings.Join(cmd.args, " ")); err != nil {
		b.fail(cmd, err)
	}
}

// setTeamSizeHandler handles `$setteamsize <n>`
func (b *Bot) setTeamSizeHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	size, ok := teamSize(cmd.args)
	if !ok {
		cmd.reply("Usage: `$setteamsize <n>`")
		return
	}
	if err := b.APIPtr.SetTeamSize(cmd.ctx, c, size); err != nil {
		b.fail(cmd, err)
	}
}

// setHomeMapTeamHandler handles `$sethomemapteam <team>`
func (b *Bot) setHomeMapTeamHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if len(cmd.args) == 0 {
		cmd.reply("Usage: `$sethomemapteam <team>`")
		return
	}
	t, ok := b.party(cmd, c, strings.Join(cmd.args, " "))
	if !ok {
		return
	}
	if err := b.APIPtr.SetHomeMapTeam(cmd.ctx, c, t.ID); err != nil {
		b.fail(cmd, err)
	}
}

// setHomeServerTeamHandler handles `$sethomeserverteam <team>`
func (b *Bot) setHomeServerTeamHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if len(cmd.args) == 0 {
		cmd.reply("Usage: `$sethomeserverteam <team>`")
		return
	}
	t, ok := b.party(cmd, c, strings.Join(cmd.args, " "))
	if !ok {
		return
	}
	if err := b.APIPtr.SetHomeServerTeam(cmd.ctx, c, t.ID); err != nil {
		b.fail(cmd, err)
	}
}

// setScoreHandler handles `$setscore <challenging> <challenged>`, reporting and confirming in one step
func (b *Bot) setScoreHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	scores, ok := intArgs(cmd.args, 2)
	if !ok {
		cmd.reply("Usage: `$setscore <challenging team score> <challenged team score>`")
		return
	}
	if err := b.APIPtr.SetScore(cmd.ctx, c, scores[0], scores[1]); err != nil {
		b.fail(cmd, err)
	}
}

// addStatsHandler handles `$addstats <game id>`, importing stats from the game tracker
func (b *Bot) addStatsHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	ids, ok := intArgs(cmd.args, 1)
	if !ok {
		cmd.reply("Usage: `$addstats <game id>`")
		return
	}
	res, err := b.APIPtr.AddStatsFromTracker(cmd.ctx, c, ids[0])
	if err != nil {
		b.fail(cmd, err)
		return
	}
	msg := fmt.Sprintf("Imported stats for %d pilots.", res.Imported)
	if len(res.Unmatched) > 0 {
		msg += fmt.Sprintf(" Could not match: %s. Add them with `$addstat`.", strings.Join(res.Unmatched, ", "))
	}
	cmd.reply("%s", msg)
}

// addStatHandler handles `$addstat <pilot> <kills> <assists> <deaths> [damage]`
func (b *Bot) addStatHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if len(cmd.args) != 4 && len(cmd.args) != 5 {
		cmd.reply("Usage: `$addstat <pilot> <kills> <assists> <deaths> [damage]`")
		return
	}
	numbers, ok := intArgs(cmd.args[1:4], 3)
	if !ok || numbers[0] < 0 || numbers[1] < 0 || numbers[2] < 0 {
		cmd.reply("Kills, assists and deaths must be whole numbers of zero or more.")
		return
	}
	var damage float64
	if len(cmd.args) == 5 {
		d, err := strconv.ParseFloat(cmd.args[4], 64)
		if err != nil || d < 0 {
			cmd.reply("Damage must be a number of zero or more.")
			return
		}
		damage = d
	}

	pilots := make(map[string]shared.Player)
	var names []string
	for _, team := range c.Teams() {
		roster, err := b.APIPtr.Store.GetRoster(cmd.ctx, team)
		if err != nil {
			b.fail(cmd, err)
			return
		}
		for _, p := range roster {
			pilots[p.Name] = p
			names = append(names, p.Name)
		}
	}
	name, ok := logic.MatchName(cmd.args[0], names)
	if !ok {
		cmd.reply("%s is not on either roster.", cmd.args[0])
		return
	}
	p := pilots[name]
	stat := shared.Stat{PlayerID: p.ID, TeamID: p.TeamID, Kills: numbers[0], Assists: numbers[1], Deaths: numbers[2], Damage: damage}
	if err := b.APIPtr.AddStat(cmd.ctx, c, stat); err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("Added stats for %s.", p.Name)
}

// clearStatsHandler handles `$clearstats`
func (b *Bot) clearStatsHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if err := b.APIPtr.ClearStats(cmd.ctx, c); err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("Stats cleared.")
}

// titleHandler handles `$title [text]`, an empty title clears it
func (b *Bot) titleHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if err := b.APIPtr.SetTitle(cmd.ctx, c, logic.CleanQuotes(cmd.rest)); err != nil {
		b.fail(cmd, err)
	}
}

// vodHandler handles `$vod <url>`
func (b *Bot) vodHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if err := b.APIPtr.SetVod(cmd.ctx, c, cmd.rest); err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("VOD updated.")
}

// postseasonHandler handles `$postseason` and `$regularseason`
func (b *Bot) postseasonHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	if err := b.APIPtr.SetPostseason(cmd.ctx, c, cmd.name == "$postseason"); err != nil {
		b.fail(cmd, err)
	}
}

// overtimeHandler handles `$overtime <periods>`
func (b *Bot) overtimeHandler(cmd *command) {
	c, ok := b.adminHere(cmd)
	if !ok {
		return
	}
	periods, ok := intArgs(cmd.args, 1)
	if !ok || periods[0] < 0 {
		cmd.reply("Usage: `$overtime <periods>`")
		return
	}
	if err := b.APIPtr.SetOvertimePeriods(cmd.ctx, c, periods[0]); err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("Overtime periods set to %d.", periods[0])
}

// castHandler handles `$cast`, signing the caller up to cast the match
func (b *Bot) castHandler(cmd *command) {
	c, ok := b.here(cmd)
	if !ok {
		return
	}
	switch c.Details.Caster {
	case cmd.message.Author.ID:
		cmd.reply("You are already casting this match.")
		return
	case "":
	default:
		cmd.reply("<@%s> is already casting this match.", c.Details.Caster)
		return
	}
	if err := b.APIPtr.SetCaster(cmd.ctx, c, cmd.message.Author.ID); err != nil {
		b.fail(cmd, err)
	}
}

// uncastHandler handles `$uncast`. Admins may remove any caster.
func (b *Bot) uncastHandler(cmd *command) {
	c, ok := b.here(cmd)
	if !ok {
		return
	}
	if c.Details.Caster == "" {
		cmd.reply("Nobody is casting this match.")
		return
	}
	if c.Details.Caster != cmd.message.Author.ID && !b.isAdmin(cmd) {
		cmd.reply("You are not casting this match.")
		return
	}
	if err := b.APIPtr.SetCaster(cmd.ctx, c, ""); err != nil {
		b.fail(cmd, err)
		return
	}
	cmd.reply("The caster has been removed.")
}

// streamHandler handles `$stream` and `$unstream`
func (b *Bot) streamHandler(cmd *command) {
	c, ok := b.here(cmd)
	if !ok {
		return
	}
	var err error
	if cmd.name == "$stream" {
		err = b.APIPtr.AddStreamer(cmd.ctx, c, cmd.message.Author.ID)
	} else {
		err = b.APIPtr.RemoveStreamer(cmd.ctx, c, cmd.message.Author.ID)
	}
	if err != nil {
		b.fail(cmd, err)
	}
}
