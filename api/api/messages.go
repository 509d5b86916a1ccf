/* messages.go
 * Contains builders for the messages the engine posts
 */

package api

import (
	"fmt"
	"strings"

	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
)

const (
	colorInfo   = 0x3498db
	colorAlert  = 0xe74c3c
	colorResult = 0x2ecc71
)

func info(title, format string, args ...any) shared.Message {
	return shared.Message{Title: title, Description: fmt.Sprintf(format, args...), Color: colorInfo}
}

func alert(title, format string, args ...any) shared.Message {
	return shared.Message{Title: title, Description: fmt.Sprintf(format, args...), Color: colorAlert}
}

func teamLabel(t shared.Team) string {
	if t.Tag == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Tag)
}

func tagOf(teams map[shared.TeamID]shared.Team, id shared.TeamID) string {
	if t, ok := teams[id]; ok && t.Tag != "" {
		return t.Tag
	}
	return fmt.Sprintf("team %d", id)
}

func createdMessage(c *challenge.Challenge, challenging, challenged shared.Team) shared.Message {
	teams := map[shared.TeamID]shared.Team{challenging.ID: challenging, challenged.ID: challenged}
	d := c.Details
	msg := shared.Message{
		Title:       fmt.Sprintf("%s vs %s", teamLabel(challenging), teamLabel(challenged)),
		Description: fmt.Sprintf("%s has challenged %s. Use this channel to agree on the map, server, team size and time.", challenging.Name, challenged.Name),
		Color:       colorInfo,
		Fields: []shared.Field{
			{Name: "Orange", Value: tagOf(teams, d.OrangeTeam)},
			{Name: "Blue", Value: tagOf(teams, d.BlueTeam)},
			{Name: "Home map team", Value: tagOf(teams, d.HomeMapTeam)},
			{Name: "Home server team", Value: tagOf(teams, d.HomeServerTeam)},
			{Name: "Team size", Value: fmt.Sprintf("%dv%d", d.TeamSize, d.TeamSize)},
		},
	}
	if len(d.HomeMaps) > 0 {
		var maps []string
		for i, m := range d.HomeMaps {
			maps = append(maps, fmt.Sprintf("%d. %s", i+1, m))
		}
		msg.Fields = append(msg.Fields, shared.Field{Name: "Home maps", Value: strings.Join(maps, "\n")})
	}
	for _, p := range []struct {
		team      shared.Team
		penalized bool
	}{{challenging, d.ChallengingTeamPenalized}, {challenged, d.ChallengedTeamPenalized}} {
		if p.penalized {
			msg.Fields = append(msg.Fields, shared.Field{Name: "Penalized", Value: fmt.Sprintf("%s is playing this match penalized.", p.team.Name)})
		}
	}
	if d.MatchTime != nil {
		msg.Fields = append(msg.Fields, shared.Field{Name: "Match time", Value: logic.FormatInZone(*d.MatchTime, challenging.Timezone)})
	}
	return msg
}

func resultMessage(c *challenge.Challenge, challenging, challenged shared.Team, zone string) shared.Message {
	d := c.Details
	played := d.DateConfirmed
	if d.MatchTime != nil {
		played = d.MatchTime
	}
	when := ""
	if played != nil {
		when = " Played " + logic.FormatInZone(*played, zone) + "."
	}

	winner, tie := c.Winner()
	if tie {
		return shared.Message{
			Title:       "Match tied",
			Description: fmt.Sprintf("%s and %s tied, %d to %d.%s", challenging.Name, challenged.Name, d.ChallengingTeamScore, d.ChallengedTeamScore, when),
			Color:       colorResult,
		}
	}
	win, lose := challenging, challenged
	winScore, loseScore := d.ChallengingTeamScore, d.ChallengedTeamScore
	if winner == challenged.ID {
		win, lose = challenged, challenging
		winScore, loseScore = loseScore, winScore
	}
	return shared.Message{
		Title:       "Match confirmed",
		Description: fmt.Sprintf("%s defeated %s, %d to %d.%s", win.Name, lose.Name, winScore, loseScore, when),
		Color:       colorResult,
	}
}

func statsMessage(c *challenge.Challenge, challenging, challenged shared.Team, stats []shared.Stat, names map[shared.PlayerID]string) shared.Message {
	msg := resultMessage(c, challenging, challenged, "")
	for _, team := range []shared.Team{challenging, challenged} {
		var lines []string
		for _, s := range stats {
			if s.TeamID != team.ID {
				continue
			}
			name := names[s.PlayerID]
			if name == "" {
				name = fmt.Sprintf("pilot %d", s.PlayerID)
			}
			lines = append(lines, fmt.Sprintf("%s: %.2f KDA (%d/%d/%d)", name, s.KDA(), s.Kills, s.Assists, s.Deaths))
		}
		if len(lines) > 0 {
			msg.Fields = append(msg.Fields, shared.Field{Name: team.Name, Value: strings.Join(lines, "\n")})
		}
	}
	return msg
}
