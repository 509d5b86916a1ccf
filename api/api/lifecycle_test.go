/* lifecycle_test.go
 * Contains unit tests for clocking, reporting, confirming, closing, voiding and adjudicating challenges
 */

package api

import (
	"errors"
	"testing"
	"time"

	"otl-bot/api/external"
	"otl-bot/api/shared"
	"otl-bot/api/store"
	"otl-bot/api/timers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// region clock tests

func TestClock_SetsDeadlineAndTimer(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})

	require.NoError(t, h.api.Clock(h.ctx, c, cronus))
	assert.Equal(t, cronus, c.Details.ClockTeam)
	require.NotNil(t, c.Details.DateClockDeadline)
	assert.Equal(t, start.Add(28*24*time.Hour), *c.Details.DateClockDeadline)

	at, ok := h.registry.Pending(timers.ClockExpired, c.ID)
	require.True(t, ok)
	assert.Equal(t, start.Add(28*24*time.Hour), at)
	assert.Equal(t, 1, h.notifier.Count("PostAlert"))
}

func TestExtend_MovesDeadlineAndClearsTime(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, cronus))
	matchTime := start.Add(72 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))

	h.clock.Advance(24 * time.Hour)
	require.NoError(t, h.api.Extend(h.ctx, c))

	require.NotNil(t, c.Details.DateClockDeadline)
	assert.Equal(t, start.Add(24*time.Hour+14*24*time.Hour), *c.Details.DateClockDeadline)
	assert.Nil(t, c.Details.MatchTime)
	assert.Equal(t, 0, h.registry.Len(timers.MatchStarting))
	assert.Equal(t, 0, h.registry.Len(timers.MatchMissed))
	at, ok := h.registry.Pending(timers.ClockExpired, c.ID)
	require.True(t, ok)
	assert.Equal(t, *c.Details.DateClockDeadline, at)
}

func TestExtend_UnclockedKeepsNoDeadline(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Extend(h.ctx, c))
	assert.Nil(t, c.Details.DateClockDeadline)
	assert.Equal(t, 0, h.registry.Len(timers.ClockExpired))
}

// endregion

// region report and confirm tests

func TestReport_AnchoredOnLosingTeam(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})

	require.NoError(t, h.api.Report(h.ctx, c, cronus, 20, 12))
	assert.Equal(t, 20, c.Details.ChallengingTeamScore)
	assert.Equal(t, 12, c.Details.ChallengedTeamScore)
	assert.Equal(t, cronus, c.Details.ReportingTeam)
	assert.True(t, c.CanConfirmReport(juniors))
	assert.False(t, c.CanConfirmReport(cronus))
}

func TestReport_InvalidScores(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	assert.ErrorIs(t, h.api.Report(h.ctx, c, cronus, 5, 10), ErrInvalidScore)
	assert.ErrorIs(t, h.api.Report(h.ctx, c, cronus, -1, 0), ErrInvalidScore)
	assert.ErrorIs(t, h.api.Report(h.ctx, c, outside, 10, 5), ErrNotParty)
	assert.False(t, h.store.Called("Report"))
}

func TestConfirmMatch_RequiresReport(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	assert.ErrorIs(t, h.api.ConfirmMatch(h.ctx, c), ErrNotReported)
}

func TestConfirmMatch_PostsResultInEachTimezone(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	matchTime := start.Add(2 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))
	require.NoError(t, h.api.Report(h.ctx, c, juniors, 15, 9))

	require.NoError(t, h.api.ConfirmMatch(h.ctx, c))
	assert.True(t, c.Confirmed())
	assert.ErrorIs(t, h.api.ConfirmMatch(h.ctx, c), ErrAlreadyConfirmed)
	for _, k := range timers.Kinds {
		assert.Equal(t, 0, h.registry.Len(k), k.String())
	}

	posts := h.notifier.Find("PostTeam")
	require.Len(t, posts, 2)
	byTeam := map[shared.TeamID]string{}
	for _, p := range posts {
		byTeam[p.Team] = p.Message.Description
	}
	assert.Contains(t, byTeam[juniors], "Cronus Frontier defeated Juniors, 15 to 9")
	assert.Contains(t, byTeam[juniors], "EST")
	assert.Contains(t, byTeam[cronus], "GMT")
}

func TestConfirmMatch_Tie(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Report(h.ctx, c, juniors, 10, 10))
	require.NoError(t, h.api.ConfirmMatch(h.ctx, c))

	_, tie := c.Winner()
	assert.True(t, tie)
	call, ok := h.notifier.Last("PostTeam")
	require.True(t, ok)
	assert.Equal(t, "Match tied", call.Message.Title)
}

func TestRejectReport(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	assert.ErrorIs(t, h.api.RejectReport(h.ctx, c, juniors), ErrNotReported)

	require.NoError(t, h.api.Report(h.ctx, c, cronus, 20, 12))
	h.notifier.Reset()
	require.NoError(t, h.api.RejectReport(h.ctx, c, juniors))
	assert.Equal(t, 1, h.notifier.Count("PostAlert"))
	assert.True(t, h.reload(t, c.ID).Reported())
}

func TestSetScore_ReportsAndConfirms(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.SetScore(h.ctx, c, 8, 14))

	stored := h.reload(t, c.ID)
	assert.True(t, stored.Confirmed())
	assert.Equal(t, 8, stored.Details.ChallengingTeamScore)
	assert.Equal(t, 14, stored.Details.ChallengedTeamScore)
	assert.Equal(t, juniors, stored.Details.ReportingTeam)
}

// endregion

// region close tests

func TestClose_FollowUps(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.SetCaster(h.ctx, c, "555"))
	require.NoError(t, h.api.AddStat(h.ctx, c, shared.Stat{PlayerID: 10, TeamID: juniors, Kills: 10, Assists: 2, Deaths: 4}))
	require.NoError(t, h.api.Report(h.ctx, c, cronus, 20, 12))
	require.NoError(t, h.api.ConfirmMatch(h.ctx, c))

	require.NoError(t, h.api.Close(h.ctx, c, admin))
	assert.False(t, h.notifier.Channels[c.ID])
	assert.Equal(t, 1, h.teams.Ratings(juniors))
	assert.Equal(t, 1, h.teams.Ratings(cronus))
	assert.Equal(t, 1, h.teams.ChannelUpdates[juniors])
	assert.Len(t, h.store.RatingRequests, 2)

	results, ok := h.notifier.Last("PostResults")
	require.True(t, ok)
	require.NotEmpty(t, results.Message.Fields)
	assert.Contains(t, results.Message.Fields[0].Value, "roncli: 3.00 KDA")

	dm, ok := h.notifier.Last("DirectMessage")
	require.True(t, ok)
	assert.Equal(t, "555", dm.DiscordID)

	assert.ErrorIs(t, h.api.Close(h.ctx, c, admin), ErrChallengeClosed)
}

// TestScenario_NegotiateReportConfirmClose walks one challenge from time negotiation to closure
func TestScenario_NegotiateReportConfirmClose(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	matchTime := start.Add(72 * time.Hour)

	require.NoError(t, h.api.SuggestTime(h.ctx, c, juniors, matchTime))
	require.NoError(t, h.api.ConfirmTime(h.ctx, c))
	_, ok := h.registry.Pending(timers.MatchStarting, c.ID)
	require.True(t, ok)
	_, ok = h.registry.Pending(timers.MatchMissed, c.ID)
	require.True(t, ok)

	require.NoError(t, h.api.Report(h.ctx, c, cronus, 30, 20))
	assert.Equal(t, 30, c.Details.ChallengingTeamScore)
	assert.Equal(t, 20, c.Details.ChallengedTeamScore)
	assert.Equal(t, cronus, c.Details.ReportingTeam)

	require.NoError(t, h.api.ConfirmMatch(h.ctx, c))
	require.NoError(t, h.api.Close(h.ctx, c, admin))

	stored := h.reload(t, c.ID)
	assert.True(t, stored.Confirmed())
	assert.True(t, stored.Closed())
	assert.False(t, stored.Voided())
	require.NotNil(t, stored.Details.MatchTime)
	assert.Equal(t, matchTime, *stored.Details.MatchTime)
	for _, k := range timers.Kinds {
		assert.Equal(t, 0, h.registry.Len(k), k.String())
	}
	assert.False(t, h.notifier.Channels[c.ID])
	assert.Equal(t, 1, h.notifier.Count("PostResults"))

	// nothing fires later either
	h.clock.Advance(30 * 24 * time.Hour)
	assert.False(t, h.store.Called("SetNotifyMatchStarting"))
	assert.False(t, h.store.Called("SetNotifyMatchMissed"))
}

func TestClose_DisbandedTeamChannelsNotUpdated(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	_, err := h.store.DisbandTeam(h.ctx, cronus, start)
	require.NoError(t, err)

	require.NoError(t, h.api.Close(h.ctx, c, admin))
	assert.Equal(t, 1, h.teams.ChannelUpdates[juniors])
	assert.Equal(t, 0, h.teams.ChannelUpdates[cronus])
	assert.Equal(t, 1, h.teams.Ratings(cronus))
}

func TestClose_SinkFailureIsCriticalAfterWrite(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	h.notifier.Errors["DeleteChallengeChannel"] = errors.New("unknown channel")

	err := h.api.Close(h.ctx, c, admin)
	assert.True(t, IsCritical(err))
	assert.True(t, h.reload(t, c.ID).Closed())
	assert.Equal(t, 1, h.teams.Ratings(juniors))
}

// endregion

// region void and unvoid tests

func TestVoid_CancelsTimersAndNotifiesOtherTeam(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))
	matchTime := start.Add(3 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))
	h.notifier.Reset()

	require.NoError(t, h.api.Void(h.ctx, c, admin, juniors))
	for _, k := range timers.Kinds {
		assert.Equal(t, 0, h.registry.Len(k), k.String())
	}
	posts := h.notifier.Find("PostTeam")
	require.Len(t, posts, 1)
	assert.Equal(t, cronus, posts[0].Team)
	assert.Contains(t, posts[0].Message.Description, "disbanded")
	assert.False(t, h.notifier.Channels[c.ID])

	// nothing fires once voided
	h.clock.Advance(30 * 24 * time.Hour)
	assert.False(t, h.store.Called("SetNotifyClockExpired"))
	assert.False(t, h.store.Called("SetNotifyMatchStarting"))

	assert.ErrorIs(t, h.api.Void(h.ctx, c, admin, 0), ErrChallengeVoided)
}

func TestUnvoid_RearmsOnlyFutureTimers(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))
	matchTime := start.Add(2 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))
	require.NoError(t, h.api.Void(h.ctx, c, admin, 0))

	// the starting notice date passes while voided
	h.clock.Advance(100 * time.Minute)
	require.NoError(t, h.api.Unvoid(h.ctx, c, admin))

	assert.Nil(t, c.Details.DateVoided)
	_, ok := h.registry.Pending(timers.MatchStarting, c.ID)
	assert.False(t, ok)
	at, ok := h.registry.Pending(timers.MatchMissed, c.ID)
	require.True(t, ok)
	assert.Equal(t, matchTime.Add(time.Hour), at)
	_, ok = h.registry.Pending(timers.ClockExpired, c.ID)
	assert.True(t, ok)

	assert.True(t, h.notifier.Channels[c.ID])
	assert.ErrorIs(t, h.api.Unvoid(h.ctx, c, admin), ErrNotVoided)
}

func TestVoidUnvoid_ClosedConfirmedRecomputesRatings(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.SetScore(h.ctx, c, 10, 3))
	require.NoError(t, h.api.Close(h.ctx, c, admin))
	require.Equal(t, 1, h.teams.Ratings(juniors))

	require.NoError(t, h.api.Void(h.ctx, c, admin, 0))
	assert.Equal(t, 2, h.teams.Ratings(juniors))
	assert.Equal(t, 1, h.notifier.Count("DeleteChallengeChannel"))

	require.NoError(t, h.api.Unvoid(h.ctx, c, admin))
	assert.Equal(t, 3, h.teams.Ratings(juniors))
	assert.Equal(t, 1, h.notifier.Count("CreateChallengeChannel"))
	for _, k := range timers.Kinds {
		assert.Equal(t, 0, h.registry.Len(k), k.String())
	}
}

// endregion

// region adjudicate tests

func TestAdjudicate_PenalizeEscalates(t *testing.T) {
	h := newHarness(t)
	first := h.create(t, store.CreateParams{})

	results, err := h.api.Adjudicate(h.ctx, first, admin, DecisionPenalize, []shared.TeamID{juniors})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].First)
	assert.Equal(t, 3, h.store.Penalties[juniors])
	assert.True(t, first.Voided())
	assert.Empty(t, h.teams.Disbanded)
	assert.Empty(t, h.store.LeadershipPenalties)

	second := h.create(t, store.CreateParams{AdminCreated: true})
	results, err = h.api.Adjudicate(h.ctx, second, admin, DecisionPenalize, []shared.TeamID{juniors})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].First)
	assert.Equal(t, 6, results[0].Remaining)
	assert.Equal(t, []shared.TeamID{juniors}, h.teams.Disbanded)
	assert.Equal(t, 1, h.store.LeadershipPenalties[10])
	assert.Zero(t, h.store.LeadershipPenalties[11])
}

// TestAdjudicate_PenalizeClosedConfirmedRecomputesRatings tests that penalizing a rated match takes it back out of
// the ratings, and that penalizing an unplayed one does not touch them
func TestAdjudicate_PenalizeClosedConfirmedRecomputesRatings(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.SetScore(h.ctx, c, 10, 3))
	require.NoError(t, h.api.Close(h.ctx, c, admin))
	require.Equal(t, 1, h.teams.Ratings(juniors))

	_, err := h.api.Adjudicate(h.ctx, c, admin, DecisionPenalize, []shared.TeamID{juniors})
	require.NoError(t, err)
	assert.True(t, c.Voided())
	assert.Equal(t, 2, h.teams.Ratings(juniors))
	assert.Equal(t, 2, h.teams.Ratings(cronus))
	assert.Len(t, h.store.RatingRequests, 4)

	open := h.create(t, store.CreateParams{})
	_, err = h.api.Adjudicate(h.ctx, open, admin, DecisionPenalize, []shared.TeamID{cronus})
	require.NoError(t, err)
	assert.Equal(t, 2, h.teams.Ratings(cronus))
}

func TestAdjudicate_CancelAndExtend(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))

	_, err := h.api.Adjudicate(h.ctx, c, admin, DecisionExtend, nil)
	require.NoError(t, err)
	assert.Equal(t, start.Add(14*24*time.Hour), *c.Details.DateClockDeadline)

	_, err = h.api.Adjudicate(h.ctx, c, admin, DecisionCancel, nil)
	require.NoError(t, err)
	assert.True(t, c.Voided())
}

func TestAdjudicate_Validation(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})

	_, err := h.api.Adjudicate(h.ctx, c, admin, Decision("forfeit"), nil)
	assert.ErrorIs(t, err, ErrUnknownDecision)
	_, err = h.api.Adjudicate(h.ctx, c, admin, DecisionPenalize, nil)
	assert.ErrorIs(t, err, ErrNoTeamsNamed)
	_, err = h.api.Adjudicate(h.ctx, c, admin, DecisionPenalize, []shared.TeamID{outside})
	assert.ErrorIs(t, err, ErrNotParty)
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision(" Penalize ")
	require.NoError(t, err)
	assert.Equal(t, DecisionPenalize, d)
	_, err = ParseDecision("nope")
	assert.ErrorIs(t, err, ErrUnknownDecision)
}

// endregion

// region rematch tests

func TestRematch(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{HomeServerTeam: juniors, TeamSize: 3})

	assert.ErrorIs(t, h.api.RequestRematch(h.ctx, c, cronus), ErrNotConfirmed)
	require.NoError(t, h.api.SetScore(h.ctx, c, 10, 4))

	_, err := h.api.CreateRematch(h.ctx, c, juniors)
	assert.ErrorIs(t, err, ErrNoRematchRequested)

	require.NoError(t, h.api.RequestRematch(h.ctx, c, cronus))
	next, err := h.api.CreateRematch(h.ctx, c, juniors)
	require.NoError(t, err)

	assert.Equal(t, cronus, next.ChallengingTeam)
	assert.Equal(t, juniors, next.ChallengedTeam)
	assert.Equal(t, cronus, next.Details.HomeServerTeam)
	assert.Equal(t, 3, next.Details.TeamSize)
	require.NotNil(t, next.Details.MatchTime)
	assert.Equal(t, start, *next.Details.MatchTime)

	at, ok := h.registry.Pending(timers.MatchStarting, next.ID)
	require.True(t, ok)
	assert.Equal(t, start.Add(5*time.Second), at)

	_, err = h.api.CreateRematch(h.ctx, c, juniors)
	assert.ErrorIs(t, err, ErrAlreadyRematched)
}

// endregion

// region stats tests

func TestAddStatsFromTracker(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	h.api.Tracker = &MockTracker{Games: map[int]external.Game{
		7: {ID: 7, Players: []external.PilotStat{
			{Name: "RONCLI", Team: "ORANGE", Kills: 9, Deaths: 3},
			{Name: "Tuna", Team: "BLUE", Kills: 4, Deaths: 8},
			{Name: "zzz", Team: "BLUE"},
		}},
	}}
	orange := c.Details.OrangeTeam
	require.Equal(t, juniors, orange)

	res, err := h.api.AddStatsFromTracker(h.ctx, c, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"zzz"}, res.Unmatched)

	stats := h.store.Stats[c.ID]
	require.Len(t, stats, 2)
	assert.Equal(t, shared.PlayerID(10), stats[0].PlayerID)
	assert.Equal(t, juniors, stats[0].TeamID)

	_, err = h.api.AddStatsFromTracker(h.ctx, c, 8)
	assert.ErrorIs(t, err, external.ErrGameNotFound)
}

func TestAddStatsFromTracker_NoTracker(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	_, err := h.api.AddStatsFromTracker(h.ctx, c, 1)
	assert.ErrorIs(t, err, ErrTrackerUnavailable)
}

func TestAddStat_RejectsOutsider(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	assert.ErrorIs(t, h.api.AddStat(h.ctx, c, shared.Stat{PlayerID: 1, TeamID: outside}), ErrNotParty)
}

func TestStreamers(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.AddStreamer(h.ctx, c, "700"))
	require.NoError(t, h.api.AddStreamer(h.ctx, c, "700"))
	assert.Equal(t, []string{"700"}, h.reload(t, c.ID).Details.Streamers)

	require.NoError(t, h.api.RemoveStreamer(h.ctx, c, "700"))
	assert.Empty(t, h.reload(t, c.ID).Details.Streamers)
}

// endregion
