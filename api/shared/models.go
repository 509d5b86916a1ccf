/* models.go
 * This file contain the identifiers, structs and helper functions that are shared between sub packages
 */

package shared

import (
	"strings"
	"time"
)

// TeamID identifies a team. The zero value means "no team".
type TeamID int

// PlayerID identifies a registered pilot.
type PlayerID int

// Role is a pilot's position on a roster
type Role string

const (
	RoleFounder Role = "founder"
	RoleCaptain Role = "captain"
	RoleMember  Role = "member"
)

// Team is the read model of a team as consumed by the challenge engine
type Team struct {
	ID        TeamID
	Name      string
	Tag       string
	Color     int
	Timezone  string
	RoleID    string
	ChannelID string
	Disbanded bool
	HomeMaps  []string
}

// Location returns the team's timezone, defaulting to UTC when unset or unknown
func (t Team) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Player is a registered pilot
type Player struct {
	ID        PlayerID
	Name      string
	DiscordID string
	Timezone  string
	TeamID    TeamID
	Role      Role
}

// IsLeader reports whether the player is a founder or captain of their team
func (p Player) IsLeader() bool {
	return p.Role == RoleFounder || p.Role == RoleCaptain
}

// Member is the actor invoking an operation, usually an admin
type Member struct {
	DiscordID string
	Name      string
}

// Stat is one pilot's line for a match
type Stat struct {
	PlayerID PlayerID
	TeamID   TeamID
	Kills    int
	Assists  int
	Deaths   int
	Damage   float64
}

// KDA returns (kills + assists) / deaths, treating zero deaths as one
func (s Stat) KDA() float64 {
	deaths := s.Deaths
	if deaths < 1 {
		deaths = 1
	}
	return float64(s.Kills+s.Assists) / float64(deaths)
}

// Field is a single name/value pair within a Message
type Field struct {
	Name  string
	Value string
}

// Message is a platform independent rich message
type Message struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// Text flattens the message into plain text for sinks that cannot render embeds
func (m Message) Text() string {
	var str strings.Builder
	if m.Title != "" {
		str.WriteString("**" + m.Title + "**\n")
	}
	if m.Description != "" {
		str.WriteString(m.Description + "\n")
	}
	for _, f := range m.Fields {
		str.WriteString(f.Name + ": " + f.Value + "\n")
	}
	return strings.TrimRight(str.String(), "\n")
}
