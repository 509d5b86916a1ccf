/* notify.go
 * Contains timer reconciliation on startup and the three timer handlers. Handlers reload the challenge from the
 * store, so a timer that outlived a state change is harmless. A notice is acknowledged only after it was posted.
 */

package api

import (
	"context"
	"log/slog"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/logic"
	"otl-bot/api/timers"
)

// Notify arms a timer for every unacknowledged notice in the store. Notices whose dates have passed fire five
// seconds later. Run once at startup, after handlers are registered.
// Preconditions: Receives a context
// Postconditions: The timer tables reflect the store, or an error is returned if the store could not be read
func (a *API) Notify(ctx context.Context) (err error) {
	defer a.track(ctx, "notify", 0, &err)
	n, err := a.Store.GetNotifications(ctx)
	if err != nil {
		return persistence("notify", err)
	}
	for _, e := range n.ExpiredClocks {
		date := e.Date
		a.Timers.Set(timers.ClockExpired, e.ID, &date)
	}
	for _, e := range n.Starting {
		date := logic.StartingNotificationDate(e.Date)
		a.Timers.Set(timers.MatchStarting, e.ID, &date)
	}
	for _, e := range n.Missed {
		date := logic.MissedNotificationDate(e.Date)
		a.Timers.Set(timers.MatchMissed, e.ID, &date)
	}
	a.Log.Info("timers reconciled",
		slog.Int("clock_expired", len(n.ExpiredClocks)),
		slog.Int("match_starting", len(n.Starting)),
		slog.Int("match_missed", len(n.Missed)),
	)
	return nil
}

// stale reports whether a timer for c should do nothing
func stale(c *challenge.Challenge) bool {
	return c.Closed() || c.Voided() || c.Confirmed()
}

// rearm sets the timer again when its due date has moved into the future, and reports whether it did
func (a *API) rearm(kind timers.Kind, id challenge.ID, due time.Time) bool {
	if !due.After(a.now()) {
		return false
	}
	a.Timers.Set(kind, id, &due)
	return true
}

func (a *API) onClockExpired(ctx context.Context, id challenge.ID) (err error) {
	defer a.track(ctx, "clock_expired", int(id), &err)
	c, err := a.Load(ctx, id)
	if err != nil {
		return err
	}
	d := c.Details
	if stale(c) || d.DateClockDeadline == nil || d.DateClockDeadlineNotified != nil {
		return nil
	}
	if a.rearm(timers.ClockExpired, id, *d.DateClockDeadline) {
		return nil
	}

	fx := &effects{op: "clock_expired"}
	fx.do(a.Notifier.PostChallenge(ctx, id, alert("Clock deadline passed",
		"The clock deadline for this challenge has passed. An admin will decide how to proceed.")))
	fx.do(a.Notifier.PostAlert(ctx, alert("Clock deadline passed",
		"The clock deadline for #%s has passed.", c.ChannelName())))
	if err := fx.err(); err != nil {
		return err
	}
	if err := a.Store.SetNotifyClockExpired(ctx, id, a.now()); err != nil {
		return persistence("clock_expired", err)
	}
	return nil
}

func (a *API) onMatchStarting(ctx context.Context, id challenge.ID) (err error) {
	defer a.track(ctx, "match_starting", int(id), &err)
	c, err := a.Load(ctx, id)
	if err != nil {
		return err
	}
	d := c.Details
	if stale(c) || c.Reported() || d.MatchTime == nil || d.DateMatchTimeNotified != nil {
		return nil
	}
	if a.rearm(timers.MatchStarting, id, logic.StartingNotificationDate(*d.MatchTime)) {
		return nil
	}

	msg := info("Match starting soon", "This match is scheduled for %s. Good luck!", logic.FormatInZone(*d.MatchTime, ""))
	if err := a.Notifier.PostChallenge(ctx, id, msg); err != nil {
		return &CriticalError{Op: "match_starting", Err: err}
	}
	if err := a.Store.SetNotifyMatchStarting(ctx, id, a.now()); err != nil {
		return persistence("match_starting", err)
	}
	return nil
}

func (a *API) onMatchMissed(ctx context.Context, id challenge.ID) (err error) {
	defer a.track(ctx, "match_missed", int(id), &err)
	c, err := a.Load(ctx, id)
	if err != nil {
		return err
	}
	d := c.Details
	if stale(c) || c.Reported() || d.MatchTime == nil || d.DateMatchTimePassedNotified != nil {
		return nil
	}
	if a.rearm(timers.MatchMissed, id, logic.MissedNotificationDate(*d.MatchTime)) {
		return nil
	}

	fx := &effects{op: "match_missed"}
	fx.do(a.Notifier.PostChallenge(ctx, id, alert("Match not reported",
		"This match was scheduled an hour ago and has not been reported. Please report the result with `$report`.")))
	fx.do(a.Notifier.PostAlert(ctx, alert("Match not reported",
		"The match in #%s was scheduled for %s and has not been reported.", c.ChannelName(), logic.FormatInZone(*d.MatchTime, ""))))
	if err := fx.err(); err != nil {
		return err
	}
	if err := a.Store.SetNotifyMatchMissed(ctx, id, a.now()); err != nil {
		return persistence("match_missed", err)
	}
	return nil
}
