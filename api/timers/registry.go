/* registry.go
 * Contains the Registry of pending timed challenge callbacks. There are three tables (clock expiry, match starting,
 * match missed), each holding at most one timer per challenge.
 */

package timers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/logic"
)

// Kind selects one of the three timer tables
type Kind int

const (
	ClockExpired Kind = iota
	MatchStarting
	MatchMissed
)

// Kinds lists every timer table
var Kinds = []Kind{ClockExpired, MatchStarting, MatchMissed}

func (k Kind) String() string {
	switch k {
	case ClockExpired:
		return "clock_expired"
	case MatchStarting:
		return "match_starting"
	case MatchMissed:
		return "match_missed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Handler is invoked when a timer fires. It must reload the challenge itself.
type Handler func(ctx context.Context, id challenge.ID) error

type entry struct {
	timer Timer
	at    time.Time
	gen   uint64
}

// Registry owns the pending timers. The zero value is not usable, use NewRegistry.
type Registry struct {
	mu       sync.Mutex
	clock    Clock
	logger   *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
	gen      uint64
	handlers map[Kind]Handler
	tables   map[Kind]map[challenge.ID]*entry
}

// Option configures a Registry
type Option func(*Registry)

// WithMetrics records armed, fired and pending timers
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithHandlerTimeout bounds each callback invocation
func WithHandlerTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// NewRegistry creates an empty registry
// Preconditions: Receives a clock and a logger, either may be nil
// Postconditions: Returns a registry with no handlers and no pending timers
func NewRegistry(clock Clock, logger *slog.Logger, opts ...Option) *Registry {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		clock:    clock,
		logger:   logger,
		timeout:  30 * time.Second,
		handlers: make(map[Kind]Handler),
		tables:   make(map[Kind]map[challenge.ID]*entry),
	}
	for _, k := range Kinds {
		r.tables[k] = make(map[challenge.ID]*entry)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clock returns the clock the registry schedules against
func (r *Registry) Clock() Clock {
	return r.clock
}

// Handle registers the callback for a timer kind, replacing any previous one
func (r *Registry) Handle(kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Set cancels any timer of this kind for the challenge, then schedules a new one at max(date, now + 5s) if a
// date is given. A nil date only cancels.
func (r *Registry) Set(kind Kind, id challenge.ID, date *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked(kind, id)
	if date == nil {
		return
	}

	now := r.clock.Now()
	at := logic.TimerDate(*date, now)
	r.gen++
	e := &entry{at: at, gen: r.gen}
	gen := r.gen
	e.timer = r.clock.AfterFunc(at.Sub(now), func() { r.fire(kind, id, gen) })
	r.tables[kind][id] = e

	if r.metrics != nil {
		r.metrics.armed.WithLabelValues(kind.String()).Inc()
		r.metrics.pending.WithLabelValues(kind.String()).Set(float64(len(r.tables[kind])))
	}
	r.logger.Debug("timer armed",
		slog.String("kind", kind.String()),
		slog.Int("challenge_id", int(id)),
		slog.Time("fire_at", at),
	)
}

// Cancel removes every timer for the challenge
func (r *Registry) Cancel(id challenge.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range Kinds {
		r.cancelLocked(k, id)
	}
}

// Pending returns the fire time of the timer for the challenge, if one is armed
func (r *Registry) Pending(kind Kind, id challenge.ID) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tables[kind][id]
	if !ok {
		return time.Time{}, false
	}
	return e.at, true
}

// Len returns the number of armed timers of the kind
func (r *Registry) Len(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables[kind])
}

// Stop cancels every timer. Used on shutdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range Kinds {
		for id := range r.tables[k] {
			r.cancelLocked(k, id)
		}
	}
}

func (r *Registry) cancelLocked(kind Kind, id challenge.ID) {
	e, ok := r.tables[kind][id]
	if !ok {
		return
	}
	e.timer.Stop()
	delete(r.tables[kind], id)
	if r.metrics != nil {
		r.metrics.pending.WithLabelValues(kind.String()).Set(float64(len(r.tables[kind])))
	}
}

// fire clears the slot if it still belongs to this timer, then runs the handler. Failures are logged, never retried.
func (r *Registry) fire(kind Kind, id challenge.ID, gen uint64) {
	r.mu.Lock()
	e, ok := r.tables[kind][id]
	if !ok || e.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.tables[kind], id)
	h := r.handlers[kind]
	if r.metrics != nil {
		r.metrics.pending.WithLabelValues(kind.String()).Set(float64(len(r.tables[kind])))
	}
	r.mu.Unlock()

	if h == nil {
		r.logger.Warn("timer fired with no handler", slog.String("kind", kind.String()), slog.Int("challenge_id", int(id)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	outcome := "ok"
	if err := h(ctx, id); err != nil {
		outcome = "error"
		r.logger.Error("timer handler failed",
			slog.String("kind", kind.String()),
			slog.Int("challenge_id", int(id)),
			slog.Any("error", err),
		)
	}
	if r.metrics != nil {
		r.metrics.fired.WithLabelValues(kind.String(), outcome).Inc()
	}
}
