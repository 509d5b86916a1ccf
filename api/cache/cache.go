/* cache.go
 * Contains the closed set of cache invalidation events and the Invalidator port the store reports changes to
 */

package cache

import (
	"context"
	"fmt"
	"sync"
)

// Event is a kind of change that makes cached views stale
type Event int

const (
	ChallengeUpdated Event = iota + 1
	ChallengeClosed
	PlayerUpdated
	TeamUpdated
)

func (e Event) String() string {
	switch e {
	case ChallengeUpdated:
		return "challenge:updated"
	case ChallengeClosed:
		return "challenge:closed"
	case PlayerUpdated:
		return "player:updated"
	case TeamUpdated:
		return "team:updated"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Key is one invalidation. ID scopes player and team events, it is ignored for challenge events.
type Key struct {
	Event Event
	ID    int
}

// String renders the tag views are filed under, e.g. "challenge:updated" or "player:12:updated"
func (k Key) String() string {
	switch k.Event {
	case PlayerUpdated:
		return fmt.Sprintf("player:%d:updated", k.ID)
	case TeamUpdated:
		return fmt.Sprintf("team:%d:updated", k.ID)
	}
	return k.Event.String()
}

// Challenge is shorthand for the key every challenge mutation emits
func Challenge() Key { return Key{Event: ChallengeUpdated} }

// Player is shorthand for a player scoped key
func Player(id int) Key { return Key{Event: PlayerUpdated, ID: id} }

// Team is shorthand for a team scoped key
func Team(id int) Key { return Key{Event: TeamUpdated, ID: id} }

// Invalidator drops cached views. It is fire and forget, implementations log their own failures.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...Key)
}

// Nop discards invalidations
type Nop struct{}

func (Nop) Invalidate(context.Context, ...Key) {}

// Recorder keeps every invalidation, for tests
type Recorder struct {
	mu   sync.Mutex
	Keys []Key
}

func (r *Recorder) Invalidate(_ context.Context, keys ...Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys = append(r.Keys, keys...)
}

// Has reports whether key was recorded
func (r *Recorder) Has(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Reset forgets recorded keys
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys = nil
}
