/* api.go
 * This file contains the public entry point for the challenge engine. Every operation goes through an *API so the
 * store write, the timer table and the notifications stay in step. For details about functionality see `api.md`
 */

package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/store"
	"otl-bot/api/timers"
)

// API is the challenge engine
type API struct {
	Store    store.Interface
	Timers   *timers.Registry
	Notifier Notifier
	Teams    Teams
	Tracker  Tracker
	Log      *slog.Logger

	metrics *Metrics
}

// Config holds the collaborators of the engine. Tracker and Metrics are optional.
type Config struct {
	Store    store.Interface
	Timers   *timers.Registry
	Notifier Notifier
	Teams    Teams
	Tracker  Tracker
	Logger   *slog.Logger
	Metrics  *Metrics
}

// NewAPI creates a new engine and registers its timer handlers
// Preconditions: Receives a Config with at least Store, Timers, Notifier and Teams set
// Postconditions: Returns the engine, or an error if a required collaborator is missing
func NewAPI(cfg Config) (*API, error) {
	if cfg.Store == nil || cfg.Timers == nil || cfg.Notifier == nil || cfg.Teams == nil {
		return nil, fmt.Errorf("store, timers, notifier and teams are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		Store:    cfg.Store,
		Timers:   cfg.Timers,
		Notifier: cfg.Notifier,
		Teams:    cfg.Teams,
		Tracker:  cfg.Tracker,
		Log:      logger.With("component", "engine"),
		metrics:  cfg.Metrics,
	}
	a.Timers.Handle(timers.ClockExpired, a.onClockExpired)
	a.Timers.Handle(timers.MatchStarting, a.onMatchStarting)
	a.Timers.Handle(timers.MatchMissed, a.onMatchMissed)
	return a, nil
}

func (a *API) now() time.Time {
	return a.Timers.Clock().Now().UTC()
}

// Load resolves a challenge ID into a loaded challenge
func (a *API) Load(ctx context.Context, id challenge.ID) (*challenge.Challenge, error) {
	ref, err := a.Store.GetByID(ctx, id)
	if err != nil {
		return nil, persistence("load", err)
	}
	c, err := ref.Load(ctx, a.Store)
	if err != nil {
		return nil, persistence("load", err)
	}
	return c, nil
}

// LoadByChannel resolves a challenge channel name such as "challenge-12" into a loaded challenge
func (a *API) LoadByChannel(ctx context.Context, channelName string) (*challenge.Challenge, error) {
	var id int
	if _, err := fmt.Sscanf(channelName, "challenge-%d", &id); err != nil || id <= 0 {
		return nil, fmt.Errorf("%q is not a challenge channel: %w", channelName, store.ErrNotFound)
	}
	return a.Load(ctx, challenge.ID(id))
}
