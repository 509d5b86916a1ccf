/* rules.go
 * Contains the league rules used when a challenge is created: orange/blue sides, home map and home server team
 * selection and penalty consumption. Nothing here touches storage, callers supply the history counts.
 */

package logic

import (
	"fmt"
	"math/rand/v2"

	"otl-bot/api/shared"
)

const (
	DefaultTeamSize = 2
	MinTeamSize     = 2
	MaxTeamSize     = 8

	// PenaltyGames is how many future games a penalized team plays at a disadvantage
	PenaltyGames = 3
)

// Coin is a fair random draw, true meaning the first team wins the toss
type Coin func() bool

// RandomCoin is the production coin
func RandomCoin() bool {
	return rand.IntN(2) == 0
}

// History is the shared record of two teams, excluding voided challenges.
// Index 0 is the challenging team and index 1 the challenged team.
type History struct {
	Orange     [2]int
	HomeMap    [2]int
	HomeServer [2]int
}

// TeamStanding is what creation needs to know about one party
type TeamStanding struct {
	ID               shared.TeamID
	PenaltiesPending int
}

// CreatePlan is the outcome of the creation rules
type CreatePlan struct {
	OrangeTeam               shared.TeamID
	BlueTeam                 shared.TeamID
	HomeMapTeam              shared.TeamID
	HomeServerTeam           shared.TeamID
	ChallengingTeamPenalized bool
	ChallengedTeamPenalized  bool
}

// PlanOptions are the explicit overrides supplied at creation
type PlanOptions struct {
	AdminCreated   bool
	HomeMapTeam    shared.TeamID
	HomeServerTeam shared.TeamID
}

// PlanChallenge applies the creation rules for two teams
// Preconditions: Receives the two parties (challenging first), their shared history, the overrides and a coin
// Postconditions: Returns the full plan, or an error if an override names a team that is not a party
func PlanChallenge(challenging, challenged TeamStanding, history History, opts PlanOptions, coin Coin) (CreatePlan, error) {
	if coin == nil {
		coin = RandomCoin
	}
	teams := [2]shared.TeamID{challenging.ID, challenged.ID}
	penalties := [2]bool{challenging.PenaltiesPending > 0, challenged.PenaltiesPending > 0}
	for _, override := range []shared.TeamID{opts.HomeMapTeam, opts.HomeServerTeam} {
		if override != 0 && override != teams[0] && override != teams[1] {
			return CreatePlan{}, fmt.Errorf("home team %d is not part of the challenge", override)
		}
	}

	plan := CreatePlan{}
	plan.OrangeTeam, plan.BlueTeam = ChooseOrange(teams, history.Orange, coin)
	plan.HomeMapTeam = ChooseHome(teams, opts.HomeMapTeam, penalties, history.HomeMap, coin)
	plan.HomeServerTeam = ChooseHome(teams, opts.HomeServerTeam, penalties, history.HomeServer, coin)
	plan.ChallengingTeamPenalized = IsPenalized(opts.AdminCreated, challenging.PenaltiesPending)
	plan.ChallengedTeamPenalized = IsPenalized(opts.AdminCreated, challenged.PenaltiesPending)
	return plan, nil
}

// ChooseOrange gives orange to the team that has been orange less often against this opponent.
// The coin is only consulted on a tie.
func ChooseOrange(teams [2]shared.TeamID, orangeCounts [2]int, coin Coin) (orange, blue shared.TeamID) {
	first := orangeCounts[0] < orangeCounts[1]
	if orangeCounts[0] == orangeCounts[1] {
		first = coin()
	}
	if first {
		return teams[0], teams[1]
	}
	return teams[1], teams[0]
}

// ChooseHome picks the home team for a map or server. An explicit override wins. Otherwise when exactly one team
// has outstanding penalties the other is home, then the team with fewer prior home appearances, then the coin.
func ChooseHome(teams [2]shared.TeamID, override shared.TeamID, penalties [2]bool, homeCounts [2]int, coin Coin) shared.TeamID {
	if override != 0 {
		return override
	}
	if penalties[0] != penalties[1] {
		if penalties[0] {
			return teams[1]
		}
		return teams[0]
	}
	if homeCounts[0] != homeCounts[1] {
		if homeCounts[0] < homeCounts[1] {
			return teams[0]
		}
		return teams[1]
	}
	if coin() {
		return teams[0]
	}
	return teams[1]
}

// IsPenalized reports whether a team plays this challenge penalized. When true the caller consumes one penalty.
func IsPenalized(adminCreated bool, penaltiesPending int) bool {
	return !adminCreated && penaltiesPending > 0
}

// ValidTeamSize reports whether n is an allowed team size
func ValidTeamSize(n int) bool {
	return n >= MinTeamSize && n <= MaxTeamSize
}

// ScoresFromReport maps a report anchored on the losing team onto challenging/challenged scores.
// Ties are allowed, a losing score greater than the winning score is not.
func ScoresFromReport(challenging, challenged, losing shared.TeamID, winningScore, losingScore int) (challengingScore, challengedScore int, err error) {
	if winningScore < 0 || losingScore < 0 {
		return 0, 0, fmt.Errorf("scores cannot be negative")
	}
	if losingScore > winningScore {
		return 0, 0, fmt.Errorf("losing score %d is greater than winning score %d", losingScore, winningScore)
	}
	switch losing {
	case challenging:
		return losingScore, winningScore, nil
	case challenged:
		return winningScore, losingScore, nil
	}
	return 0, 0, fmt.Errorf("team %d is not part of the challenge", losing)
}
