/* notify_test.go
 * Contains unit tests for timer reconciliation and the timer handlers, driven by a fake clock
 */

package api

import (
	"errors"
	"testing"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/store"
	"otl-bot/api/timers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// region Notify tests

func TestNotify_ArmsUnacknowledgedNotices(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))
	matchTime := start.Add(6 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))

	// a restart loses every in memory timer
	h.registry.Stop()
	require.NoError(t, h.api.Notify(h.ctx))

	at, ok := h.registry.Pending(timers.ClockExpired, c.ID)
	require.True(t, ok)
	assert.Equal(t, start.Add(28*24*time.Hour), at)
	at, ok = h.registry.Pending(timers.MatchStarting, c.ID)
	require.True(t, ok)
	assert.Equal(t, matchTime.Add(-30*time.Minute), at)
	at, ok = h.registry.Pending(timers.MatchMissed, c.ID)
	require.True(t, ok)
	assert.Equal(t, matchTime.Add(time.Hour), at)
}

func TestNotify_PastDatesFireAfterFloor(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))
	h.registry.Stop()

	h.clock.Set(start.Add(40 * 24 * time.Hour))
	require.NoError(t, h.api.Notify(h.ctx))
	at, ok := h.registry.Pending(timers.ClockExpired, c.ID)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(5*time.Second), at)

	h.clock.Advance(5 * time.Second)
	assert.NotNil(t, h.reload(t, c.ID).Details.DateClockDeadlineNotified)
}

func TestNotify_SkipsClosedVoidedAndConfirmed(t *testing.T) {
	h := newHarness(t)
	matchTime := start.Add(6 * time.Hour)
	finishers := []func(c *challenge.Challenge) error{
		func(c *challenge.Challenge) error { return h.api.Close(h.ctx, c, admin) },
		func(c *challenge.Challenge) error { return h.api.Void(h.ctx, c, admin, 0) },
		func(c *challenge.Challenge) error { return h.api.SetScore(h.ctx, c, 5, 1) },
	}
	for _, finish := range finishers {
		c := h.create(t, store.CreateParams{MatchTime: &matchTime})
		require.NoError(t, h.api.Clock(h.ctx, c, juniors))
		require.NoError(t, finish(h.reload(t, c.ID)))
	}
	h.registry.Stop()

	require.NoError(t, h.api.Notify(h.ctx))
	for _, k := range timers.Kinds {
		assert.Equal(t, 0, h.registry.Len(k), k.String())
	}
}

func TestNotify_StoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.Errors["GetNotifications"] = errors.New("timeout")
	assert.True(t, IsPersistence(h.api.Notify(h.ctx)))
}

// endregion

// region handler tests

func TestClockExpired_NotifiesOnce(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))
	h.notifier.Reset()

	h.clock.Advance(28 * 24 * time.Hour)
	assert.Equal(t, 1, h.notifier.Count("PostAlert"))
	assert.NotNil(t, h.reload(t, c.ID).Details.DateClockDeadlineNotified)

	// a second reconciliation finds nothing left to say
	require.NoError(t, h.api.Notify(h.ctx))
	assert.Equal(t, 0, h.registry.Len(timers.ClockExpired))
}

func TestClockExpired_RearmsWhenDeadlineMoved(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))

	// move the stored deadline behind the engine's back, as another process would
	later := start.Add(35 * 24 * time.Hour)
	h.store.Challenges[c.ID].Details.DateClockDeadline = &later
	h.notifier.Reset()

	h.clock.Advance(28 * 24 * time.Hour)
	assert.Equal(t, 0, h.notifier.Count("PostAlert"))
	at, ok := h.registry.Pending(timers.ClockExpired, c.ID)
	require.True(t, ok)
	assert.Equal(t, later, at)

	h.clock.Advance(7 * 24 * time.Hour)
	assert.Equal(t, 1, h.notifier.Count("PostAlert"))
}

func TestClockExpired_FailedPostIsNotAcknowledged(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))
	h.notifier.Errors["PostAlert"] = errors.New("discord down")

	h.clock.Advance(28 * 24 * time.Hour)
	assert.Nil(t, h.reload(t, c.ID).Details.DateClockDeadlineNotified)
	assert.False(t, h.store.Called("SetNotifyClockExpired"))
}

func TestMatchStartingAndMissed(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	matchTime := start.Add(2 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))
	h.notifier.Reset()

	h.clock.Advance(90 * time.Minute)
	starting, ok := h.notifier.Last("PostChallenge")
	require.True(t, ok)
	assert.Equal(t, "Match starting soon", starting.Message.Title)
	assert.NotNil(t, h.reload(t, c.ID).Details.DateMatchTimeNotified)

	h.clock.Advance(90 * time.Minute)
	missed, ok := h.notifier.Last("PostChallenge")
	require.True(t, ok)
	assert.Equal(t, "Match not reported", missed.Message.Title)
	assert.Equal(t, 1, h.notifier.Count("PostAlert"))
	assert.NotNil(t, h.reload(t, c.ID).Details.DateMatchTimePassedNotified)
}

func TestMatchMissed_SkippedWhenReported(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	matchTime := start.Add(2 * time.Hour)
	require.NoError(t, h.api.SetTime(h.ctx, c, &matchTime))

	h.clock.Advance(2*time.Hour + 10*time.Minute)
	c = h.reload(t, c.ID)
	require.NoError(t, h.api.Report(h.ctx, c, cronus, 10, 2))
	h.notifier.Reset()

	h.clock.Advance(time.Hour)
	assert.Equal(t, 0, h.notifier.Count("PostAlert"))
	assert.False(t, h.store.Called("SetNotifyMatchMissed"))
}

func TestHandler_StaleTimerAfterVoidIsHarmless(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, store.CreateParams{})
	require.NoError(t, h.api.Clock(h.ctx, c, juniors))

	// void directly in the store so the timer is left armed
	now := start
	h.store.Challenges[c.ID].Details.DateVoided = &now
	h.notifier.Reset()

	h.clock.Advance(28 * 24 * time.Hour)
	assert.Equal(t, 0, h.notifier.Count("PostAlert"))
	assert.False(t, h.store.Called("SetNotifyClockExpired"))
}

// endregion
