/* rules_test.go
 * Contains unit tests for rules.go functions
 */

package logic

import (
	"testing"

	"otl-bot/api/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingCoin fails the test if the rules consult randomness
func failingCoin(t *testing.T) Coin {
	return func() bool {
		t.Helper()
		t.Fatal("coin should not be tossed")
		return false
	}
}

func fixedCoin(result bool) Coin {
	return func() bool { return result }
}

var pair = [2]shared.TeamID{10, 20}

// region ChooseOrange tests

func TestChooseOrange_FewerAppearancesWins(t *testing.T) {
	// team 10 has been orange three times, team 20 once
	orange, blue := ChooseOrange(pair, [2]int{3, 1}, failingCoin(t))
	assert.Equal(t, shared.TeamID(20), orange)
	assert.Equal(t, shared.TeamID(10), blue)

	orange, _ = ChooseOrange(pair, [2]int{0, 2}, failingCoin(t))
	assert.Equal(t, shared.TeamID(10), orange)
}

func TestChooseOrange_TieUsesCoin(t *testing.T) {
	orange, blue := ChooseOrange(pair, [2]int{2, 2}, fixedCoin(true))
	assert.Equal(t, shared.TeamID(10), orange)
	assert.Equal(t, shared.TeamID(20), blue)

	orange, _ = ChooseOrange(pair, [2]int{2, 2}, fixedCoin(false))
	assert.Equal(t, shared.TeamID(20), orange)
}

// endregion

// region ChooseHome tests

func TestChooseHome_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		override  shared.TeamID
		penalties [2]bool
		counts    [2]int
		coin      bool
		expected  shared.TeamID
	}{
		{"override wins over everything", 20, [2]bool{false, true}, [2]int{0, 5}, true, 20},
		{"penalized first team gives home to second", 0, [2]bool{true, false}, [2]int{0, 5}, true, 20},
		{"penalized second team gives home to first", 0, [2]bool{false, true}, [2]int{5, 0}, false, 10},
		{"both penalized falls through to counts", 0, [2]bool{true, true}, [2]int{4, 1}, true, 20},
		{"fewer home appearances", 0, [2]bool{}, [2]int{1, 2}, false, 10},
		{"tie uses coin heads", 0, [2]bool{}, [2]int{1, 1}, true, 10},
		{"tie uses coin tails", 0, [2]bool{}, [2]int{1, 1}, false, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseHome(pair, tt.override, tt.penalties, tt.counts, fixedCoin(tt.coin))
			assert.Equal(t, tt.expected, got)
		})
	}
}

// endregion

// region PlanChallenge tests

func TestPlanChallenge_PenaltiesAndHomes(t *testing.T) {
	plan, err := PlanChallenge(
		TeamStanding{ID: 10, PenaltiesPending: 2},
		TeamStanding{ID: 20},
		History{Orange: [2]int{3, 1}},
		PlanOptions{},
		fixedCoin(true),
	)
	require.NoError(t, err)

	assert.Equal(t, shared.TeamID(20), plan.OrangeTeam)
	assert.Equal(t, shared.TeamID(10), plan.BlueTeam)
	assert.Equal(t, shared.TeamID(20), plan.HomeMapTeam)
	assert.Equal(t, shared.TeamID(20), plan.HomeServerTeam)
	assert.True(t, plan.ChallengingTeamPenalized)
	assert.False(t, plan.ChallengedTeamPenalized)
}

func TestPlanChallenge_AdminCreatedIsNeverPenalized(t *testing.T) {
	plan, err := PlanChallenge(
		TeamStanding{ID: 10, PenaltiesPending: 2},
		TeamStanding{ID: 20, PenaltiesPending: 1},
		History{},
		PlanOptions{AdminCreated: true, HomeMapTeam: 10, HomeServerTeam: 20},
		fixedCoin(false),
	)
	require.NoError(t, err)
	assert.False(t, plan.ChallengingTeamPenalized)
	assert.False(t, plan.ChallengedTeamPenalized)
	assert.Equal(t, shared.TeamID(10), plan.HomeMapTeam)
	assert.Equal(t, shared.TeamID(20), plan.HomeServerTeam)
}

func TestPlanChallenge_InvalidOverride(t *testing.T) {
	_, err := PlanChallenge(TeamStanding{ID: 10}, TeamStanding{ID: 20}, History{}, PlanOptions{HomeMapTeam: 99}, fixedCoin(true))
	assert.Error(t, err)
}

// endregion

// region ScoresFromReport tests

func TestScoresFromReport(t *testing.T) {
	challengingScore, challengedScore, err := ScoresFromReport(10, 20, 20, 30, 20)
	require.NoError(t, err)
	assert.Equal(t, 30, challengingScore)
	assert.Equal(t, 20, challengedScore)

	challengingScore, challengedScore, err = ScoresFromReport(10, 20, 10, 30, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, challengingScore)
	assert.Equal(t, 30, challengedScore)
}

func TestScoresFromReport_Tie(t *testing.T) {
	challengingScore, challengedScore, err := ScoresFromReport(10, 20, 10, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, challengingScore)
	assert.Equal(t, 10, challengedScore)
}

func TestScoresFromReport_Invalid(t *testing.T) {
	_, _, err := ScoresFromReport(10, 20, 30, 5, 1)
	assert.Error(t, err)

	_, _, err = ScoresFromReport(10, 20, 10, 5, 6)
	assert.Error(t, err)

	_, _, err = ScoresFromReport(10, 20, 10, -1, -2)
	assert.Error(t, err)
}

// endregion

func TestValidTeamSize(t *testing.T) {
	assert.False(t, ValidTeamSize(1))
	assert.True(t, ValidTeamSize(2))
	assert.True(t, ValidTeamSize(8))
	assert.False(t, ValidTeamSize(9))
}
