/* models.go
 * Contains the tracker's wire structs
 */

package external

import (
	"errors"
	"time"
)

var ErrGameNotFound = errors.New("game not found on tracker")

// Game is a tracked game
type Game struct {
	ID       int         `json:"id"`
	Server   string      `json:"server"`
	Map      string      `json:"map"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	Players  []PilotStat `json:"players"`
	TeamSize int         `json:"teamSize"`
}

// PilotStat is one pilot's line in a game. Team is the in game colour, "ORANGE" or "BLUE".
type PilotStat struct {
	Name    string  `json:"name"`
	Team    string  `json:"team"`
	Kills   int     `json:"kills"`
	Assists int     `json:"assists"`
	Deaths  int     `json:"deaths"`
	Damage  float64 `json:"damage"`
}

// ByColour splits the players by in game colour
func (g Game) ByColour() (orange, blue []PilotStat) {
	for _, p := range g.Players {
		switch p.Team {
		case "ORANGE", "orange", "Orange":
			orange = append(orange, p)
		case "BLUE", "blue", "Blue":
			blue = append(blue, p)
		}
	}
	return orange, blue
}
