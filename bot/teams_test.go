/* teams_test.go
 * Contains unit tests for the team collaborator
 */

package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"otl-bot/api/api"
	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/shared"
	"otl-bot/api/store"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTeams(t *testing.T) (*Teams, *api.MockStore, *MockDiscordSession, *cache.Recorder) {
	t.Helper()
	s := api.NewMockStore()
	s.Now = func() time.Time { return start }
	s.AddTeam(shared.Team{ID: juniors, Name: "Juniors", Tag: "JR", RoleID: "role_jr", ChannelID: "team_jr"},
		shared.Player{ID: 10, Name: "roncli", DiscordID: roncli, Role: shared.RoleFounder},
		shared.Player{ID: 11, Name: "Kryptic", DiscordID: kryptic, Role: shared.RoleMember},
	)
	s.AddTeam(shared.Team{ID: cronus, Name: "Cronus Frontier", Tag: "CF", RoleID: "role_cf", ChannelID: "team_cf"},
		shared.Player{ID: 20, Name: "Tuna", DiscordID: tuna, Role: shared.RoleFounder},
	)
	session := NewMockDiscordSession()
	session.AddChannel(&discordgo.Channel{ID: "team_jr", Name: "juniors"})
	session.AddChannel(&discordgo.Channel{ID: "team_cf", Name: "cronus-frontier"})
	recorder := &cache.Recorder{}
	return NewTeams(session, s, recorder, testConfig, nil), s, session, recorder
}

// region disband tests

func TestTeams_Disband(t *testing.T) {
	teams, s, session, _ := createTestTeams(t)
	team := s.TeamsByID[juniors]

	require.NoError(t, teams.Disband(context.Background(), team, shared.Member{Name: "admin"}))
	assert.True(t, s.TeamsByID[juniors].Disbanded)
	assert.True(t, s.BannedLeaders[10])
	assert.False(t, s.BannedLeaders[11])
	assert.ElementsMatch(t, []string{roncli + ":role_jr", kryptic + ":role_jr"}, session.RemovedRoles)
	_, exists := session.Channels["team_jr"]
	assert.False(t, exists)
}

// TestTeams_DisbandDiscordFailure tests the store change stands when discord clean up fails
func TestTeams_DisbandDiscordFailure(t *testing.T) {
	teams, s, session, _ := createTestTeams(t)
	session.Errors["GuildMemberRoleRemove"] = errors.New("missing permissions")

	err := teams.Disband(context.Background(), s.TeamsByID[juniors], shared.Member{Name: "admin"})
	assert.ErrorContains(t, err, "missing permissions")
	assert.True(t, s.TeamsByID[juniors].Disbanded)
	_, exists := session.Channels["team_jr"]
	assert.False(t, exists, "channel is still removed")
}

func TestTeams_DisbandUnknownTeam(t *testing.T) {
	teams, _, session, _ := createTestTeams(t)
	err := teams.Disband(context.Background(), shared.Team{ID: 99, Name: "Ghosts"}, shared.Member{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, session.RemovedRoles)
}

// endregion

// region channel tests

func TestTeams_UpdateChannels(t *testing.T) {
	teams, s, session, _ := createTestTeams(t)
	ctx := context.Background()

	require.NoError(t, teams.UpdateChannels(ctx, s.TeamsByID[juniors]))
	assert.Equal(t, "Juniors (JR) | No open challenges", session.Channels["team_jr"].Topic)

	_, err := s.Create(ctx, store.CreateParams{ChallengingTeam: juniors, ChallengedTeam: cronus})
	require.NoError(t, err)
	matchTime := time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetTime(ctx, 1, &matchTime))

	require.NoError(t, teams.UpdateChannels(ctx, s.TeamsByID[juniors]))
	assert.Equal(t, "Juniors (JR) | Open challenges: vs Cronus Frontier at Thu Mar 5 2026 8:00 PM UTC", session.Channels["team_jr"].Topic)
}

func TestTeams_UpdateChannelsSkipsDisbanded(t *testing.T) {
	teams, s, session, _ := createTestTeams(t)
	team := s.TeamsByID[juniors]
	team.Disbanded = true
	require.NoError(t, teams.UpdateChannels(context.Background(), team))
	require.NoError(t, teams.UpdateChannels(context.Background(), shared.Team{ID: 5}))
	assert.Empty(t, session.Channels["team_jr"].Topic)
}

// endregion

// region ratings tests

func TestTeams_UpdateRatingsInvalidatesViews(t *testing.T) {
	teams, s, _, recorder := createTestTeams(t)
	c := &challenge.Challenge{Ref: challenge.Ref{ID: 1, ChallengingTeam: juniors, ChallengedTeam: cronus}}

	require.NoError(t, teams.UpdateRatingsForSeasonFromChallenge(context.Background(), s.TeamsByID[juniors], c))
	assert.True(t, recorder.Has(cache.Team(int(juniors))))
	assert.True(t, recorder.Has(cache.Key{Event: cache.ChallengeClosed}))
	assert.True(t, recorder.Has(cache.Player(10)))
	assert.True(t, recorder.Has(cache.Player(11)))
	assert.False(t, recorder.Has(cache.Player(20)))
}

// endregion
