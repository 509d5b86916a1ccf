/* test_mocks.go
 * Contains mock structures and interfaces for testing the API package and its consumers. MockStore is an in memory
 * store.Interface that applies the same creation rules as the postgres store.
 */

package api

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/external"
	"otl-bot/api/logic"
	"otl-bot/api/shared"
	"otl-bot/api/store"
)

// RatingRequest is a recorded call to RequestRatingRecompute
type RatingRequest struct {
	Team      shared.TeamID
	Challenge challenge.ID
}

// MockStore implements the Store interface for testing
type MockStore struct {
	mu sync.Mutex

	// Storage for mock data
	Challenges          map[challenge.ID]*challenge.Challenge
	TeamsByID           map[shared.TeamID]shared.Team
	Rosters             map[shared.TeamID][]shared.Player
	Penalties           map[shared.TeamID]int
	LeadershipPenalties map[shared.PlayerID]int
	BannedLeaders       map[shared.PlayerID]bool
	Stats               map[challenge.ID][]shared.Stat
	RatingRequests      []RatingRequest

	Coin logic.Coin
	Now  func() time.Time

	// Error injection for testing error paths, keyed by method name
	Errors map[string]error
	// Calls lists every method invoked, in order
	Calls []string
}

// NewMockStore creates a new MockStore with no teams
func NewMockStore() *MockStore {
	return &MockStore{
		Challenges:          make(map[challenge.ID]*challenge.Challenge),
		TeamsByID:           make(map[shared.TeamID]shared.Team),
		Rosters:             make(map[shared.TeamID][]shared.Player),
		Penalties:           make(map[shared.TeamID]int),
		LeadershipPenalties: make(map[shared.PlayerID]int),
		BannedLeaders:       make(map[shared.PlayerID]bool),
		Stats:               make(map[challenge.ID][]shared.Stat),
		Errors:              make(map[string]error),
		Coin:                func() bool { return true },
		Now:                 func() time.Time { return time.Now().UTC() },
	}
}

// AddTeam registers a team and its roster
func (m *MockStore) AddTeam(team shared.Team, roster ...shared.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TeamsByID[team.ID] = team
	for i := range roster {
		roster[i].TeamID = team.ID
	}
	m.Rosters[team.ID] = roster
}

// Snapshot returns a copy of the stored challenge
func (m *MockStore) Snapshot(id challenge.ID) (challenge.Challenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Challenges[id]
	if !ok {
		return challenge.Challenge{}, false
	}
	return copyChallenge(c), true
}

// Called reports whether method was invoked
func (m *MockStore) Called(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.Calls, method)
}

func copyChallenge(c *challenge.Challenge) challenge.Challenge {
	cp := *c
	cp.Details.HomeMaps = slices.Clone(c.Details.HomeMaps)
	cp.Details.Streamers = slices.Clone(c.Details.Streamers)
	return cp
}

// begin records the call and returns the injected error. The caller holds the lock until it returns.
func (m *MockStore) begin(method string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, method)
	return m.Errors[method]
}

// update runs fn against the stored challenge under the lock
func (m *MockStore) update(method string, id challenge.ID, fn func(d *challenge.Details) error) error {
	err := m.begin(method)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	c, ok := m.Challenges[id]
	if !ok {
		return fmt.Errorf("%s challenge %d: %w", method, id, store.ErrNotFound)
	}
	return fn(&c.Details)
}

func ptr[T any](v T) *T { return &v }

// region lookups

// GetDetails mock implementation
func (m *MockStore) GetDetails(ctx context.Context, id challenge.ID) (challenge.Details, error) {
	err := m.begin("GetDetails")
	defer m.mu.Unlock()
	if err != nil {
		return challenge.Details{}, err
	}
	c, ok := m.Challenges[id]
	if !ok {
		return challenge.Details{}, fmt.Errorf("get details %d: %w", id, store.ErrNotFound)
	}
	return copyChallenge(c).Details, nil
}

// Create mock implementation
func (m *MockStore) Create(ctx context.Context, p store.CreateParams) (store.CreateResult, error) {
	err := m.begin("Create")
	defer m.mu.Unlock()
	if err != nil {
		return store.CreateResult{}, err
	}
	if p.ChallengingTeam == p.ChallengedTeam {
		return store.CreateResult{}, fmt.Errorf("a team cannot challenge itself")
	}
	for _, t := range []shared.TeamID{p.ChallengingTeam, p.ChallengedTeam} {
		if _, ok := m.TeamsByID[t]; !ok {
			return store.CreateResult{}, fmt.Errorf("team %d: %w", t, store.ErrNotFound)
		}
	}

	var history logic.History
	for _, c := range m.Challenges {
		if c.Voided() || !(c.IsParty(p.ChallengingTeam) && c.IsParty(p.ChallengedTeam)) {
			continue
		}
		for i, t := range []shared.TeamID{p.ChallengingTeam, p.ChallengedTeam} {
			if c.Details.OrangeTeam == t {
				history.Orange[i]++
			}
			if c.Details.HomeMapTeam == t {
				history.HomeMap[i]++
			}
			if c.Details.HomeServerTeam == t {
				history.HomeServer[i]++
			}
		}
	}

	plan, err := logic.PlanChallenge(
		logic.TeamStanding{ID: p.ChallengingTeam, PenaltiesPending: m.Penalties[p.ChallengingTeam]},
		logic.TeamStanding{ID: p.ChallengedTeam, PenaltiesPending: m.Penalties[p.ChallengedTeam]},
		history,
		logic.PlanOptions{AdminCreated: p.AdminCreated, HomeMapTeam: p.HomeMapTeam, HomeServerTeam: p.HomeServerTeam},
		m.Coin,
	)
	if err != nil {
		return store.CreateResult{}, err
	}
	if plan.ChallengingTeamPenalized {
		m.Penalties[p.ChallengingTeam]--
	}
	if plan.ChallengedTeamPenalized {
		m.Penalties[p.ChallengedTeam]--
	}

	now := p.Now
	if now.IsZero() {
		now = m.Now()
	}
	size := logic.DefaultTeamSize
	if p.TeamSize != 0 {
		if !logic.ValidTeamSize(p.TeamSize) {
			return store.CreateResult{}, fmt.Errorf("invalid team size %d", p.TeamSize)
		}
		size = p.TeamSize
	}
	var matchTime *time.Time
	switch {
	case p.MatchTime != nil:
		matchTime = ptr(p.MatchTime.UTC())
	case p.StartNow:
		matchTime = ptr(logic.RoundUpToFiveMinutes(now))
	}

	id := challenge.ID(len(m.Challenges) + 1)
	ref := challenge.Ref{ID: id, ChallengingTeam: p.ChallengingTeam, ChallengedTeam: p.ChallengedTeam}
	homeMaps := slices.Clone(m.TeamsByID[plan.HomeMapTeam].HomeMaps)
	m.Challenges[id] = &challenge.Challenge{Ref: ref, Details: challenge.Details{
		OrangeTeam:               plan.OrangeTeam,
		BlueTeam:                 plan.BlueTeam,
		HomeMapTeam:              plan.HomeMapTeam,
		HomeMaps:                 homeMaps,
		UsingHomeMapTeam:         true,
		HomeServerTeam:           plan.HomeServerTeam,
		UsingHomeServerTeam:      true,
		TeamSize:                 size,
		MatchTime:                matchTime,
		DateAdded:                now,
		AdminCreated:             p.AdminCreated,
		ChallengingTeamPenalized: plan.ChallengingTeamPenalized,
		ChallengedTeamPenalized:  plan.ChallengedTeamPenalized,
	}}

	return store.CreateResult{
		Ref:                      ref,
		OrangeTeam:               plan.OrangeTeam,
		BlueTeam:                 plan.BlueTeam,
		HomeMapTeam:              plan.HomeMapTeam,
		HomeServerTeam:           plan.HomeServerTeam,
		HomeMaps:                 slices.Clone(homeMaps),
		ChallengingTeamPenalized: plan.ChallengingTeamPenalized,
		ChallengedTeamPenalized:  plan.ChallengedTeamPenalized,
		TeamSize:                 size,
		MatchTime:                matchTime,
	}, nil
}

// GetByID mock implementation
func (m *MockStore) GetByID(ctx context.Context, id challenge.ID) (challenge.Ref, error) {
	err := m.begin("GetByID")
	defer m.mu.Unlock()
	if err != nil {
		return challenge.Ref{}, err
	}
	c, ok := m.Challenges[id]
	if !ok {
		return challenge.Ref{}, fmt.Errorf("challenge %d: %w", id, store.ErrNotFound)
	}
	return c.Ref, nil
}

// GetByTeams mock implementation
func (m *MockStore) GetByTeams(ctx context.Context, a, b shared.TeamID) (challenge.Ref, error) {
	refs, err := m.GetAllByTeams(ctx, a, b)
	if err != nil {
		return challenge.Ref{}, err
	}
	if len(refs) == 0 {
		return challenge.Ref{}, fmt.Errorf("open challenge between %d and %d: %w", a, b, store.ErrNotFound)
	}
	return refs[0], nil
}

func (m *MockStore) openRefs(match func(c *challenge.Challenge) bool) []challenge.Ref {
	var refs []challenge.Ref
	for _, c := range m.Challenges {
		if c.Closed() || c.Voided() || !match(c) {
			continue
		}
		refs = append(refs, c.Ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// GetClockedByTeam mock implementation
func (m *MockStore) GetClockedByTeam(ctx context.Context, team shared.TeamID, since time.Time) ([]challenge.Ref, error) {
	err := m.begin("GetClockedByTeam")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var refs []challenge.Ref
	for _, c := range m.Challenges {
		if c.Details.ClockTeam == team && c.Details.DateClocked != nil && c.Details.DateClocked.After(since) {
			refs = append(refs, c.Ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// GetAllByTeam mock implementation
func (m *MockStore) GetAllByTeam(ctx context.Context, team shared.TeamID) ([]challenge.Ref, error) {
	err := m.begin("GetAllByTeam")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.openRefs(func(c *challenge.Challenge) bool { return c.IsParty(team) }), nil
}

// GetAllByTeams mock implementation
func (m *MockStore) GetAllByTeams(ctx context.Context, a, b shared.TeamID) ([]challenge.Ref, error) {
	err := m.begin("GetAllByTeams")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.openRefs(func(c *challenge.Challenge) bool { return c.IsParty(a) && c.IsParty(b) }), nil
}

// GetNotifications mock implementation
func (m *MockStore) GetNotifications(ctx context.Context) (store.Notifications, error) {
	err := m.begin("GetNotifications")
	defer m.mu.Unlock()
	if err != nil {
		return store.Notifications{}, err
	}
	var n store.Notifications
	ids := make([]challenge.ID, 0, len(m.Challenges))
	for id := range m.Challenges {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		c := m.Challenges[id]
		d := c.Details
		if c.Closed() || c.Voided() || c.Confirmed() {
			continue
		}
		if d.DateClockDeadline != nil && d.DateClockDeadlineNotified == nil {
			n.ExpiredClocks = append(n.ExpiredClocks, store.Notification{ID: id, Date: *d.DateClockDeadline})
		}
		if d.MatchTime == nil || d.DateReported != nil {
			continue
		}
		if d.DateMatchTimeNotified == nil {
			n.Starting = append(n.Starting, store.Notification{ID: id, Date: *d.MatchTime})
		}
		if d.DateMatchTimePassedNotified == nil {
			n.Missed = append(n.Missed, store.Notification{ID: id, Date: *d.MatchTime})
		}
	}
	return n, nil
}

// endregion

// region facets

// SetMap mock implementation
func (m *MockStore) SetMap(ctx context.Context, id challenge.ID, mapName string) error {
	return m.update("SetMap", id, func(d *challenge.Details) error {
		d.Map, d.SuggestedMap, d.SuggestedMapTeam, d.UsingHomeMapTeam = mapName, "", 0, false
		return nil
	})
}

// PickMap mock implementation
func (m *MockStore) PickMap(ctx context.Context, id challenge.ID, number int) (string, error) {
	var picked string
	err := m.update("PickMap", id, func(d *challenge.Details) error {
		if number < 1 || number > len(d.HomeMaps) {
			return fmt.Errorf("home map %d: %w", number, store.ErrNotFound)
		}
		picked = d.HomeMaps[number-1]
		d.Map, d.SuggestedMap, d.SuggestedMapTeam, d.UsingHomeMapTeam = picked, "", 0, true
		return nil
	})
	return picked, err
}

// SetHomeMapTeam mock implementation
func (m *MockStore) SetHomeMapTeam(ctx context.Context, id challenge.ID, team shared.TeamID) ([]string, error) {
	var maps []string
	err := m.update("SetHomeMapTeam", id, func(d *challenge.Details) error {
		maps = slices.Clone(m.TeamsByID[team].HomeMaps)
		d.HomeMapTeam, d.HomeMaps, d.UsingHomeMapTeam = team, slices.Clone(maps), true
		d.Map, d.SuggestedMap, d.SuggestedMapTeam = "", "", 0
		return nil
	})
	return maps, err
}

// SuggestMap mock implementation
func (m *MockStore) SuggestMap(ctx context.Context, id challenge.ID, team shared.TeamID, mapName string) error {
	return m.update("SuggestMap", id, func(d *challenge.Details) error {
		d.Map, d.SuggestedMap, d.SuggestedMapTeam = "", mapName, team
		return nil
	})
}

// ConfirmMap mock implementation
func (m *MockStore) ConfirmMap(ctx context.Context, id challenge.ID) (string, error) {
	var confirmed string
	err := m.update("ConfirmMap", id, func(d *challenge.Details) error {
		if d.SuggestedMapTeam == 0 {
			return store.ErrNothingPending
		}
		confirmed = d.SuggestedMap
		d.Map, d.SuggestedMap, d.SuggestedMapTeam, d.UsingHomeMapTeam = confirmed, "", 0, false
		return nil
	})
	return confirmed, err
}

// SetHomeServerTeam mock implementation
func (m *MockStore) SetHomeServerTeam(ctx context.Context, id challenge.ID, team shared.TeamID) error {
	return m.update("SetHomeServerTeam", id, func(d *challenge.Details) error {
		d.HomeServerTeam, d.UsingHomeServerTeam, d.SuggestedNeutralServerTeam = team, true, 0
		return nil
	})
}

// SuggestNeutralServer mock implementation
func (m *MockStore) SuggestNeutralServer(ctx context.Context, id challenge.ID, team shared.TeamID) error {
	return m.update("SuggestNeutralServer", id, func(d *challenge.Details) error {
		d.SuggestedNeutralServerTeam = team
		return nil
	})
}

// ConfirmNeutralServer mock implementation
func (m *MockStore) ConfirmNeutralServer(ctx context.Context, id challenge.ID) error {
	return m.update("ConfirmNeutralServer", id, func(d *challenge.Details) error {
		if d.SuggestedNeutralServerTeam == 0 {
			return store.ErrNothingPending
		}
		d.UsingHomeServerTeam, d.SuggestedNeutralServerTeam = false, 0
		return nil
	})
}

// SetTeamSize mock implementation
func (m *MockStore) SetTeamSize(ctx context.Context, id challenge.ID, size int) error {
	return m.update("SetTeamSize", id, func(d *challenge.Details) error {
		d.TeamSize, d.SuggestedTeamSize, d.SuggestedTeamSizeTeam = size, 0, 0
		return nil
	})
}

// SuggestTeamSize mock implementation
func (m *MockStore) SuggestTeamSize(ctx context.Context, id challenge.ID, team shared.TeamID, size int) error {
	return m.update("SuggestTeamSize", id, func(d *challenge.Details) error {
		d.SuggestedTeamSize, d.SuggestedTeamSizeTeam = size, team
		return nil
	})
}

// ConfirmTeamSize mock implementation
func (m *MockStore) ConfirmTeamSize(ctx context.Context, id challenge.ID) (int, error) {
	var size int
	err := m.update("ConfirmTeamSize", id, func(d *challenge.Details) error {
		if d.SuggestedTeamSizeTeam == 0 {
			return store.ErrNothingPending
		}
		size = d.SuggestedTeamSize
		d.TeamSize, d.SuggestedTeamSize, d.SuggestedTeamSizeTeam = size, 0, 0
		return nil
	})
	return size, err
}

// SetTime mock implementation
func (m *MockStore) SetTime(ctx context.Context, id challenge.ID, t *time.Time) error {
	return m.update("SetTime", id, func(d *challenge.Details) error {
		if t != nil {
			t = ptr(t.UTC())
		}
		d.MatchTime, d.SuggestedTime, d.SuggestedTimeTeam = t, nil, 0
		d.DateMatchTimeNotified, d.DateMatchTimePassedNotified = nil, nil
		return nil
	})
}

// SuggestTime mock implementation
func (m *MockStore) SuggestTime(ctx context.Context, id challenge.ID, team shared.TeamID, t time.Time) error {
	return m.update("SuggestTime", id, func(d *challenge.Details) error {
		d.SuggestedTime, d.SuggestedTimeTeam = ptr(t.UTC()), team
		return nil
	})
}

// ConfirmTime mock implementation
func (m *MockStore) ConfirmTime(ctx context.Context, id challenge.ID) (time.Time, error) {
	var confirmed time.Time
	err := m.update("ConfirmTime", id, func(d *challenge.Details) error {
		if d.SuggestedTimeTeam == 0 || d.SuggestedTime == nil {
			return store.ErrNothingPending
		}
		confirmed = *d.SuggestedTime
		d.MatchTime, d.SuggestedTime, d.SuggestedTimeTeam = ptr(confirmed), nil, 0
		d.DateMatchTimeNotified, d.DateMatchTimePassedNotified = nil, nil
		return nil
	})
	return confirmed, err
}

// endregion

// region lifecycle

// Clock mock implementation
func (m *MockStore) Clock(ctx context.Context, id challenge.ID, team shared.TeamID, now time.Time) (store.ClockResult, error) {
	res := store.ClockResult{ClockedAt: now, Deadline: logic.ClockDeadline(now)}
	err := m.update("Clock", id, func(d *challenge.Details) error {
		d.ClockTeam, d.DateClocked, d.DateClockDeadline, d.DateClockDeadlineNotified = team, ptr(res.ClockedAt), ptr(res.Deadline), nil
		return nil
	})
	if err != nil {
		return store.ClockResult{}, err
	}
	return res, nil
}

// Extend mock implementation
func (m *MockStore) Extend(ctx context.Context, id challenge.ID, now time.Time) (*time.Time, error) {
	var deadline *time.Time
	err := m.update("Extend", id, func(d *challenge.Details) error {
		if d.DateClockDeadline != nil {
			d.DateClockDeadline = ptr(logic.ExtendedDeadline(now))
			deadline = ptr(*d.DateClockDeadline)
		}
		d.DateClockDeadlineNotified = nil
		d.MatchTime, d.SuggestedTime, d.SuggestedTimeTeam = nil, nil, 0
		d.DateMatchTimeNotified, d.DateMatchTimePassedNotified = nil, nil
		return nil
	})
	return deadline, err
}

// Report mock implementation
func (m *MockStore) Report(ctx context.Context, id challenge.ID, reportingTeam shared.TeamID, challengingScore, challengedScore int, now time.Time) error {
	return m.update("Report", id, func(d *challenge.Details) error {
		d.ReportingTeam, d.ChallengingTeamScore, d.ChallengedTeamScore, d.DateReported = reportingTeam, challengingScore, challengedScore, ptr(now)
		return nil
	})
}

// SetConfirmed mock implementation
func (m *MockStore) SetConfirmed(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("SetConfirmed", id, func(d *challenge.Details) error {
		if d.DateReported == nil {
			return store.ErrNotReported
		}
		d.DateConfirmed = ptr(now)
		return nil
	})
}

// Close mock implementation
func (m *MockStore) Close(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("Close", id, func(d *challenge.Details) error {
		d.DateClosed = ptr(now)
		return nil
	})
}

// Void mock implementation
func (m *MockStore) Void(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("Void", id, func(d *challenge.Details) error {
		d.DateVoided = ptr(now)
		return nil
	})
}

// VoidWithPenalties mock implementation
func (m *MockStore) VoidWithPenalties(ctx context.Context, id challenge.ID, teams []shared.TeamID, now time.Time) ([]store.PenaltyResult, error) {
	var results []store.PenaltyResult
	err := m.update("VoidWithPenalties", id, func(d *challenge.Details) error {
		d.DateVoided = ptr(now)
		for _, team := range teams {
			remaining, ok := m.Penalties[team]
			if !ok {
				m.Penalties[team] = logic.PenaltyGames
				results = append(results, store.PenaltyResult{TeamID: team, First: true, Remaining: logic.PenaltyGames})
				continue
			}
			m.Penalties[team] = remaining + logic.PenaltyGames
			for _, p := range m.Rosters[team] {
				if p.IsLeader() {
					m.LeadershipPenalties[p.ID]++
				}
			}
			results = append(results, store.PenaltyResult{TeamID: team, Remaining: remaining + logic.PenaltyGames})
		}
		return nil
	})
	return results, err
}

// Unvoid mock implementation
func (m *MockStore) Unvoid(ctx context.Context, id challenge.ID) error {
	return m.update("Unvoid", id, func(d *challenge.Details) error {
		d.DateVoided = nil
		return nil
	})
}

// SetNotifyClockExpired mock implementation
func (m *MockStore) SetNotifyClockExpired(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("SetNotifyClockExpired", id, func(d *challenge.Details) error {
		d.DateClockDeadlineNotified = ptr(now)
		return nil
	})
}

// SetNotifyMatchMissed mock implementation
func (m *MockStore) SetNotifyMatchMissed(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("SetNotifyMatchMissed", id, func(d *challenge.Details) error {
		d.DateMatchTimePassedNotified = ptr(now)
		return nil
	})
}

// SetNotifyMatchStarting mock implementation
func (m *MockStore) SetNotifyMatchStarting(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("SetNotifyMatchStarting", id, func(d *challenge.Details) error {
		d.DateMatchTimeNotified = ptr(now)
		return nil
	})
}

// endregion

// region auxiliary

// SetCaster mock implementation
func (m *MockStore) SetCaster(ctx context.Context, id challenge.ID, discordID string) error {
	return m.update("SetCaster", id, func(d *challenge.Details) error {
		d.Caster = discordID
		return nil
	})
}

// AddStreamer mock implementation
func (m *MockStore) AddStreamer(ctx context.Context, id challenge.ID, discordID string) error {
	return m.update("AddStreamer", id, func(d *challenge.Details) error {
		if !slices.Contains(d.Streamers, discordID) {
			d.Streamers = append(d.Streamers, discordID)
		}
		return nil
	})
}

// RemoveStreamer mock implementation
func (m *MockStore) RemoveStreamer(ctx context.Context, id challenge.ID, discordID string) error {
	return m.update("RemoveStreamer", id, func(d *challenge.Details) error {
		d.Streamers = slices.DeleteFunc(d.Streamers, func(s string) bool { return s == discordID })
		return nil
	})
}

// SetTitle mock implementation
func (m *MockStore) SetTitle(ctx context.Context, id challenge.ID, title string) error {
	return m.update("SetTitle", id, func(d *challenge.Details) error {
		d.Title = title
		return nil
	})
}

// SetVod mock implementation
func (m *MockStore) SetVod(ctx context.Context, id challenge.ID, vod string) error {
	return m.update("SetVod", id, func(d *challenge.Details) error {
		d.VOD = vod
		return nil
	})
}

// SetPostseason mock implementation
func (m *MockStore) SetPostseason(ctx context.Context, id challenge.ID, postseason bool) error {
	return m.update("SetPostseason", id, func(d *challenge.Details) error {
		d.Postseason = postseason
		return nil
	})
}

// SetOvertimePeriods mock implementation
func (m *MockStore) SetOvertimePeriods(ctx context.Context, id challenge.ID, periods int) error {
	return m.update("SetOvertimePeriods", id, func(d *challenge.Details) error {
		d.OvertimePeriods = periods
		return nil
	})
}

// RequestRematch mock implementation
func (m *MockStore) RequestRematch(ctx context.Context, id challenge.ID, team shared.TeamID, now time.Time) error {
	return m.update("RequestRematch", id, func(d *challenge.Details) error {
		d.RematchTeam, d.DateRematchRequested = team, ptr(now)
		return nil
	})
}

// SetRematched mock implementation
func (m *MockStore) SetRematched(ctx context.Context, id challenge.ID, now time.Time) error {
	return m.update("SetRematched", id, func(d *challenge.Details) error {
		d.DateRematched = ptr(now)
		return nil
	})
}

// AddStat mock implementation, replacing any existing line for the pilot
func (m *MockStore) AddStat(ctx context.Context, id challenge.ID, stat shared.Stat) error {
	return m.update("AddStat", id, func(d *challenge.Details) error {
		stats := slices.DeleteFunc(m.Stats[id], func(s shared.Stat) bool { return s.PlayerID == stat.PlayerID })
		m.Stats[id] = append(stats, stat)
		return nil
	})
}

// ClearStats mock implementation
func (m *MockStore) ClearStats(ctx context.Context, id challenge.ID) error {
	return m.update("ClearStats", id, func(d *challenge.Details) error {
		delete(m.Stats, id)
		return nil
	})
}

// GetStats mock implementation
func (m *MockStore) GetStats(ctx context.Context, id challenge.ID) ([]shared.Stat, error) {
	err := m.begin("GetStats")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return slices.Clone(m.Stats[id]), nil
}

// endregion

// region teams and players

// GetTeam mock implementation
func (m *MockStore) GetTeam(ctx context.Context, id shared.TeamID) (shared.Team, error) {
	err := m.begin("GetTeam")
	defer m.mu.Unlock()
	if err != nil {
		return shared.Team{}, err
	}
	t, ok := m.TeamsByID[id]
	if !ok {
		return shared.Team{}, fmt.Errorf("team %d: %w", id, store.ErrNotFound)
	}
	return t, nil
}

// ListTeams mock implementation
func (m *MockStore) ListTeams(ctx context.Context) ([]shared.Team, error) {
	err := m.begin("ListTeams")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var teams []shared.Team
	for _, t := range m.TeamsByID {
		if !t.Disbanded {
			teams = append(teams, t)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

// GetRoster mock implementation
func (m *MockStore) GetRoster(ctx context.Context, team shared.TeamID) ([]shared.Player, error) {
	err := m.begin("GetRoster")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return slices.Clone(m.Rosters[team]), nil
}

// GetPlayerByDiscordID mock implementation
func (m *MockStore) GetPlayerByDiscordID(ctx context.Context, discordID string) (shared.Player, error) {
	err := m.begin("GetPlayerByDiscordID")
	defer m.mu.Unlock()
	if err != nil {
		return shared.Player{}, err
	}
	for _, roster := range m.Rosters {
		for _, p := range roster {
			if p.DiscordID == discordID {
				return p, nil
			}
		}
	}
	return shared.Player{}, fmt.Errorf("player %s: %w", discordID, store.ErrNotFound)
}

// DisbandTeam mock implementation
func (m *MockStore) DisbandTeam(ctx context.Context, team shared.TeamID, now time.Time) ([]shared.Player, error) {
	err := m.begin("DisbandTeam")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	t, ok := m.TeamsByID[team]
	if !ok {
		return nil, fmt.Errorf("disband team %d: %w", team, store.ErrNotFound)
	}
	t.Disbanded = true
	m.TeamsByID[team] = t

	var leaders []shared.Player
	for _, p := range m.Rosters[team] {
		if p.IsLeader() {
			leaders = append(leaders, p)
			m.BannedLeaders[p.ID] = true
		}
	}
	delete(m.Rosters, team)
	return leaders, nil
}

// RequestRatingRecompute mock implementation
func (m *MockStore) RequestRatingRecompute(ctx context.Context, team shared.TeamID, id challenge.ID, now time.Time) error {
	err := m.begin("RequestRatingRecompute")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	m.RatingRequests = append(m.RatingRequests, RatingRequest{Team: team, Challenge: id})
	return nil
}

// endregion

// NotifierCall is one recorded call on MockNotifier
type NotifierCall struct {
	Method    string
	Challenge challenge.ID
	Team      shared.TeamID
	DiscordID string
	Message   shared.Message
}

// MockNotifier records every notification instead of sending it
type MockNotifier struct {
	mu    sync.Mutex
	Calls []NotifierCall
	// Channels holds the challenge channels that currently exist
	Channels map[challenge.ID]bool

	// Error injection for testing error paths, keyed by method name
	Errors map[string]error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Channels: make(map[challenge.ID]bool), Errors: make(map[string]error)}
}

func (n *MockNotifier) record(call NotifierCall) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, call)
	return n.Errors[call.Method]
}

// Count returns how many times method was called
func (n *MockNotifier) Count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, c := range n.Calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Find returns the calls to method
func (n *MockNotifier) Find(method string) []NotifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var calls []NotifierCall
	for _, c := range n.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// Last returns the most recent call to method
func (n *MockNotifier) Last(method string) (NotifierCall, bool) {
	calls := n.Find(method)
	if len(calls) == 0 {
		return NotifierCall{}, false
	}
	return calls[len(calls)-1], true
}

// Reset forgets the recorded calls
func (n *MockNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = nil
}

func (n *MockNotifier) CreateChallengeChannel(ctx context.Context, c *challenge.Challenge, challenging, challenged shared.Team) error {
	if err := n.record(NotifierCall{Method: "CreateChallengeChannel", Challenge: c.ID}); err != nil {
		return err
	}
	n.mu.Lock()
	n.Channels[c.ID] = true
	n.mu.Unlock()
	return nil
}

func (n *MockNotifier) DeleteChallengeChannel(ctx context.Context, id challenge.ID) error {
	if err := n.record(NotifierCall{Method: "DeleteChallengeChannel", Challenge: id}); err != nil {
		return err
	}
	n.mu.Lock()
	delete(n.Channels, id)
	n.mu.Unlock()
	return nil
}

func (n *MockNotifier) UpdateChallengeTopic(ctx context.Context, c *challenge.Challenge) error {
	return n.record(NotifierCall{Method: "UpdateChallengeTopic", Challenge: c.ID})
}

func (n *MockNotifier) PostChallenge(ctx context.Context, id challenge.ID, msg shared.Message) error {
	return n.record(NotifierCall{Method: "PostChallenge", Challenge: id, Message: msg})
}

func (n *MockNotifier) PostTeam(ctx context.Context, team shared.Team, msg shared.Message) error {
	return n.record(NotifierCall{Method: "PostTeam", Team: team.ID, Message: msg})
}

func (n *MockNotifier) PostAlert(ctx context.Context, msg shared.Message) error {
	return n.record(NotifierCall{Method: "PostAlert", Message: msg})
}

func (n *MockNotifier) PostResults(ctx context.Context, msg shared.Message) error {
	return n.record(NotifierCall{Method: "PostResults", Message: msg})
}

func (n *MockNotifier) DirectMessage(ctx context.Context, discordID string, msg shared.Message) error {
	return n.record(NotifierCall{Method: "DirectMessage", DiscordID: discordID, Message: msg})
}

// MockTeams implements Teams on top of a MockStore
type MockTeams struct {
	Store *MockStore

	mu             sync.Mutex
	Disbanded      []shared.TeamID
	ChannelUpdates map[shared.TeamID]int
	RatingUpdates  map[shared.TeamID]int
	DisbandError   error
	UpdateError    error
}

// NewMockTeams creates a new MockTeams
func NewMockTeams(s *MockStore) *MockTeams {
	return &MockTeams{
		Store:          s,
		ChannelUpdates: make(map[shared.TeamID]int),
		RatingUpdates:  make(map[shared.TeamID]int),
	}
}

func (t *MockTeams) Get(ctx context.Context, id shared.TeamID) (shared.Team, error) {
	return t.Store.GetTeam(ctx, id)
}

func (t *MockTeams) Disband(ctx context.Context, team shared.Team, actor shared.Member) error {
	if t.DisbandError != nil {
		return t.DisbandError
	}
	if _, err := t.Store.DisbandTeam(ctx, team.ID, time.Now().UTC()); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Disbanded = append(t.Disbanded, team.ID)
	return nil
}

func (t *MockTeams) UpdateChannels(ctx context.Context, team shared.Team) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ChannelUpdates[team.ID]++
	return t.UpdateError
}

func (t *MockTeams) UpdateRatingsForSeasonFromChallenge(ctx context.Context, team shared.Team, c *challenge.Challenge) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RatingUpdates[team.ID]++
	return t.UpdateError
}

// Ratings returns how many rating updates team received
func (t *MockTeams) Ratings(team shared.TeamID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.RatingUpdates[team]
}

// MockTracker serves canned games
type MockTracker struct {
	Games map[int]external.Game
	Err   error
}

func (t *MockTracker) GetGame(ctx context.Context, gameID int) (external.Game, error) {
	if t.Err != nil {
		return external.Game{}, t.Err
	}
	g, ok := t.Games[gameID]
	if !ok {
		return external.Game{}, external.ErrGameNotFound
	}
	return g, nil
}

var (
	_ store.Interface = (*MockStore)(nil)
	_ Notifier        = (*MockNotifier)(nil)
	_ Teams           = (*MockTeams)(nil)
	_ Tracker         = (*MockTracker)(nil)
)
