/* store_integration_test.go
 * Contains integration tests for the postgres Store
 */

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/shared"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heads() bool { return true }

// region Create tests

func TestCreate_DefaultsAndSnapshot(t *testing.T) {
	s, rec := NewTestStore(t)
	s.Coin = heads
	faker := gofakeit.New(1)
	ctx := context.Background()

	a := seedTeam(t, s, faker, "Vault", "Fissure", "Burning Indika")
	b := seedTeam(t, s, faker, "Foundry")

	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)

	assert.Equal(t, challenge.ID(1), res.Ref.ID)
	assert.Equal(t, a.ID, res.OrangeTeam, "coin decides on empty history")
	assert.Equal(t, a.ID, res.HomeMapTeam)
	assert.Equal(t, []string{"Vault", "Fissure", "Burning Indika"}, res.HomeMaps)
	assert.Equal(t, 2, res.TeamSize)
	assert.Nil(t, res.MatchTime)
	assert.True(t, rec.Has(cache.Challenge()))

	// later changes to the team's home maps do not leak into the challenge
	_, err = s.Pool.Exec(ctx, `UPDATE team_home_maps SET map = 'Pandora' WHERE team_id = $1 AND number = 1`, int(a.ID))
	require.NoError(t, err)

	d, err := s.GetDetails(ctx, res.Ref.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vault", "Fissure", "Burning Indika"}, d.HomeMaps)
	assert.True(t, d.UsingHomeMapTeam)
	assert.True(t, d.UsingHomeServerTeam)
}

func TestCreate_OrangeBalanceFromHistory(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(2)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)

	// a is orange three times, b once
	s.Coin = heads
	for i := 0; i < 4; i++ {
		res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
		require.NoError(t, err)
		if i == 3 {
			continue
		}
		_, err = s.Pool.Exec(ctx, `UPDATE challenges SET orange_team_id = $2, blue_team_id = $3 WHERE id = $1`,
			int(res.Ref.ID), int(a.ID), int(b.ID))
		require.NoError(t, err)
	}
	_, err := s.Pool.Exec(ctx, `UPDATE challenges SET orange_team_id = $1, blue_team_id = $2 WHERE id = 4`, int(b.ID), int(a.ID))
	require.NoError(t, err)

	s.Coin = func() bool { t.Fatal("coin should not be tossed"); return false }
	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID, HomeMapTeam: a.ID, HomeServerTeam: b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.ID, res.OrangeTeam)
	assert.Equal(t, challenge.ID(5), res.Ref.ID)
}

func TestCreate_PenaltyConsumed(t *testing.T) {
	s, _ := NewTestStore(t)
	s.Coin = heads
	faker := gofakeit.New(3)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)
	setPenalties(t, s, a.ID, 2)

	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)
	assert.True(t, res.ChallengingTeamPenalized)
	assert.False(t, res.ChallengedTeamPenalized)
	assert.Equal(t, b.ID, res.HomeMapTeam, "unpenalized team gets home advantage")
	assert.Equal(t, b.ID, res.HomeServerTeam)
	assert.Equal(t, 1, penalties(t, s, a.ID))

	// admin created challenges never consume penalties
	res, err = s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID, AdminCreated: true})
	require.NoError(t, err)
	assert.False(t, res.ChallengingTeamPenalized)
	assert.Equal(t, 1, penalties(t, s, a.ID))
}

func TestCreate_StartNowAndSize(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(4)
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)

	now := time.Date(2026, 3, 2, 18, 2, 30, 0, time.UTC)
	res, err := s.Create(context.Background(), CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID, StartNow: true, TeamSize: 4, Now: now})
	require.NoError(t, err)
	require.NotNil(t, res.MatchTime)
	assert.True(t, res.MatchTime.Equal(time.Date(2026, 3, 2, 18, 5, 0, 0, time.UTC)), "rounded from the given time, got %s", res.MatchTime)
	assert.Equal(t, 4, res.TeamSize)

	d, err := s.GetDetails(context.Background(), res.Ref.ID)
	require.NoError(t, err)
	assert.True(t, d.DateAdded.Equal(now), "date added is the given time, got %s", d.DateAdded)
}

func TestCreate_ConcurrentIDsAreUnique(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(5)
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)

	const n = 8
	ids := make(chan challenge.ID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Create(context.Background(), CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
			if assert.NoError(t, err) {
				ids <- res.Ref.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[challenge.ID]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

// endregion

// region facet tests

func TestFacets_RoundTrip(t *testing.T) {
	s, rec := NewTestStore(t)
	faker := gofakeit.New(6)
	ctx := context.Background()
	a := seedTeam(t, s, faker, "Vault")
	b := seedTeam(t, s, faker)
	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID, HomeMapTeam: a.ID})
	require.NoError(t, err)
	id := res.Ref.ID

	picked, err := s.PickMap(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Vault", picked)

	rec.Reset()
	require.NoError(t, s.SuggestMap(ctx, id, b.ID, "Foundry"))
	assert.True(t, rec.Has(cache.Challenge()), "unlocking the map invalidates the view")
	d, err := s.GetDetails(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, d.Map, "suggesting unlocks the map")
	assert.Equal(t, "Foundry", d.SuggestedMap)

	rec.Reset()
	m, err := s.ConfirmMap(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Foundry", m)
	assert.True(t, rec.Has(cache.Challenge()))

	_, err = s.ConfirmMap(ctx, id)
	assert.ErrorIs(t, err, ErrNothingPending)

	rec.Reset()
	require.NoError(t, s.SetHomeServerTeam(ctx, id, b.ID))
	assert.True(t, rec.Has(cache.Challenge()))
	d, err = s.GetDetails(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, b.ID, d.HomeServerTeam)

	require.NoError(t, s.SuggestNeutralServer(ctx, id, a.ID))
	rec.Reset()
	require.NoError(t, s.ConfirmNeutralServer(ctx, id))
	assert.True(t, rec.Has(cache.Challenge()))
	require.NoError(t, s.SuggestTeamSize(ctx, id, a.ID, 3))
	size, err := s.ConfirmTeamSize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	when := time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, s.SuggestTime(ctx, id, b.ID, when))
	confirmed, err := s.ConfirmTime(ctx, id)
	require.NoError(t, err)
	assert.True(t, when.Equal(confirmed))

	d, err = s.GetDetails(ctx, id)
	require.NoError(t, err)
	expected := challenge.Details{
		Map:                 "Foundry",
		HomeMaps:            []string{"Vault"},
		HomeMapTeam:         a.ID,
		UsingHomeMapTeam:    false,
		UsingHomeServerTeam: false,
		TeamSize:            3,
	}
	got := challenge.Details{
		Map:                 d.Map,
		HomeMaps:            d.HomeMaps,
		HomeMapTeam:         d.HomeMapTeam,
		UsingHomeMapTeam:    d.UsingHomeMapTeam,
		UsingHomeServerTeam: d.UsingHomeServerTeam,
		TeamSize:            d.TeamSize,
		SuggestedMap:        d.SuggestedMap,
		SuggestedTeamSize:   d.SuggestedTeamSize,
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, d.MatchTime)
	assert.Nil(t, d.SuggestedTime)
}

func TestSetHomeMapTeam_Recopies(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(7)
	ctx := context.Background()
	a := seedTeam(t, s, faker, "Vault")
	b := seedTeam(t, s, faker, "Foundry", "Pandora")
	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID, HomeMapTeam: a.ID})
	require.NoError(t, err)

	maps, err := s.SetHomeMapTeam(ctx, res.Ref.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foundry", "Pandora"}, maps)

	d, err := s.GetDetails(ctx, res.Ref.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, d.HomeMapTeam)
	assert.Equal(t, []string{"Foundry", "Pandora"}, d.HomeMaps)
}

// endregion

// region lifecycle tests

func TestClockAndExtend(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(8)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)
	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)
	id := res.Ref.ID

	deadline, err := s.Extend(ctx, id, time.Now())
	require.NoError(t, err)
	assert.Nil(t, deadline, "extend without a clock leaves no deadline")

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clock, err := s.Clock(ctx, id, a.ID, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(28*24*time.Hour), clock.Deadline)

	match := now.Add(48 * time.Hour)
	require.NoError(t, s.SetTime(ctx, id, &match))

	later := now.Add(10 * 24 * time.Hour)
	deadline, err = s.Extend(ctx, id, later)
	require.NoError(t, err)
	require.NotNil(t, deadline)
	assert.True(t, later.Add(14*24*time.Hour).Equal(*deadline))

	d, err := s.GetDetails(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, d.MatchTime)
	assert.Equal(t, a.ID, d.ClockTeam)

	// a voided challenge still counts against the clocking team
	require.NoError(t, s.Void(ctx, id, later))
	clocked, err := s.GetClockedByTeam(ctx, a.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, clocked, 1)
	assert.Equal(t, id, clocked[0].ID)
	clocked, err = s.GetClockedByTeam(ctx, a.ID, now)
	require.NoError(t, err)
	assert.Empty(t, clocked)
	clocked, err = s.GetClockedByTeam(ctx, b.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, clocked)
}

func TestReportConfirmClose(t *testing.T) {
	s, rec := NewTestStore(t)
	faker := gofakeit.New(9)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)
	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)
	id := res.Ref.ID
	now := time.Now().UTC()

	assert.ErrorIs(t, s.SetConfirmed(ctx, id, now), ErrNotReported)

	require.NoError(t, s.Report(ctx, id, b.ID, 30, 20, now))
	require.NoError(t, s.SetConfirmed(ctx, id, now))

	roster, err := s.GetRoster(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, s.AddStat(ctx, id, shared.Stat{PlayerID: roster[0].ID, TeamID: a.ID, Kills: 10, Deaths: 2}))

	rec.Reset()
	require.NoError(t, s.Close(ctx, id, now))
	assert.True(t, rec.Has(cache.Key{Event: cache.ChallengeClosed}))
	assert.True(t, rec.Has(cache.Team(int(a.ID))))
	assert.True(t, rec.Has(cache.Player(int(roster[0].ID))))

	d, err := s.GetDetails(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 30, d.ChallengingTeamScore)
	assert.Equal(t, 20, d.ChallengedTeamScore)
	assert.NotNil(t, d.DateClosed)

	_, err = s.GetByTeams(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrNotFound, "closed challenges are not open")
}

func TestVoidWithPenalties_Escalation(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(10)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)
	now := time.Now().UTC()

	first, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)
	results, err := s.VoidWithPenalties(ctx, first.Ref.ID, []shared.TeamID{a.ID}, now)
	require.NoError(t, err)
	assert.Equal(t, []PenaltyResult{{TeamID: a.ID, First: true, Remaining: 3}}, results)

	setPenalties(t, s, a.ID, 1)
	second, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID, AdminCreated: true})
	require.NoError(t, err)
	results, err = s.VoidWithPenalties(ctx, second.Ref.ID, []shared.TeamID{a.ID}, now)
	require.NoError(t, err)
	assert.Equal(t, []PenaltyResult{{TeamID: a.ID, First: false, Remaining: 4}}, results)
	assert.Equal(t, 4, penalties(t, s, a.ID))

	var leadership int
	require.NoError(t, s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM leadership_penalties`).Scan(&leadership))
	assert.Equal(t, 1, leadership)
}

func TestVoidUnvoid(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(11)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)
	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)

	require.NoError(t, s.Void(ctx, res.Ref.ID, time.Now()))
	refs, err := s.GetAllByTeam(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	require.NoError(t, s.Unvoid(ctx, res.Ref.ID))
	refs, err = s.GetAllByTeam(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []challenge.Ref{res.Ref}, refs)

	assert.ErrorIs(t, s.Void(ctx, 999, time.Now()), ErrNotFound)
}

// endregion

// region notification tests

func TestGetNotifications(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(12)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	b := seedTeam(t, s, faker)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	res, err := s.Create(ctx, CreateParams{ChallengingTeam: a.ID, ChallengedTeam: b.ID})
	require.NoError(t, err)
	id := res.Ref.ID
	_, err = s.Clock(ctx, id, a.ID, now)
	require.NoError(t, err)
	match := now.Add(time.Hour)
	require.NoError(t, s.SetTime(ctx, id, &match))

	n, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, n.ExpiredClocks, 1)
	require.Len(t, n.Starting, 1)
	require.Len(t, n.Missed, 1)
	assert.True(t, match.Equal(n.Starting[0].Date))

	require.NoError(t, s.SetNotifyMatchStarting(ctx, id, now))
	require.NoError(t, s.SetNotifyClockExpired(ctx, id, now))
	n, err = s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, n.ExpiredClocks)
	assert.Empty(t, n.Starting)
	assert.Len(t, n.Missed, 1)

	require.NoError(t, s.Report(ctx, id, a.ID, 5, 1, now))
	n, err = s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, n.Missed, "reported matches are never missed")
}

// endregion

// region team tests

func TestDisbandTeam(t *testing.T) {
	s, _ := NewTestStore(t)
	faker := gofakeit.New(13)
	ctx := context.Background()
	a := seedTeam(t, s, faker)
	seedPlayer(t, s, faker, a.ID, shared.RoleMember)

	leaders, err := s.DisbandTeam(ctx, a.ID, time.Now())
	require.NoError(t, err)
	assert.Len(t, leaders, 1)

	team, err := s.GetTeam(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, team.Disbanded)

	roster, err := s.GetRoster(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)

	player, err := s.GetPlayerByDiscordID(ctx, leaders[0].DiscordID)
	require.NoError(t, err)
	assert.Zero(t, player.TeamID)
}

func TestMigrate_Idempotent(t *testing.T) {
	s, _ := NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	version, err := s.AppliedVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

// endregion
