/* router.go
 * Contains the chi router and the read only JSON handlers: a challenge view read through the view cache, a health
 * check and the prometheus metrics endpoint.
 */

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"otl-bot/api/api"
	"otl-bot/api/cache"
	"otl-bot/api/challenge"
	"otl-bot/api/shared"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 3 * time.Second

// NewRouter builds the routes over cfg
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{api: cfg.API, cache: cfg.Cache, checks: cfg.Checks, log: logger.With("component", "web")}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/challenges", func(r chi.Router) {
		r.Get("/{id}", s.handleChallenge)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth runs every configured check and reports 503 if any failed
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.checks))
	status := http.StatusOK
	for name, check := range s.checks {
		checks[name] = "ok"
		if err := check(ctx); err != nil {
			s.log.Error("health check failed", "name", name, "error", err)
			checks[name] = "error"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}

func viewKey(id challenge.ID) string {
	return fmt.Sprintf("challenge:%d", id)
}

// handleChallenge serves GET /challenges/{id}
// Preconditions: The router has an engine configured
// Postconditions: Writes the challenge view, 404 for an unknown challenge or 400 for a malformed ID
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "challenge id must be a positive number")
		return
	}
	id := challenge.ID(n)
	ctx := r.Context()

	if s.cache != nil {
		var view ChallengeView
		hit, err := s.cache.Get(ctx, viewKey(id), &view)
		if err != nil {
			s.log.Warn("view cache read failed", slog.Int("challenge_id", n), slog.Any("error", err))
		}
		if hit {
			writeJSON(w, http.StatusOK, view)
			return
		}
	}

	c, err := s.api.Load(ctx, id)
	if api.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	if err != nil {
		s.log.Error("challenge load failed", slog.Int("challenge_id", n), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	challenging, err := s.api.Teams.Get(ctx, c.ChallengingTeam)
	if err != nil {
		s.log.Error("team load failed", slog.Int("team_id", int(c.ChallengingTeam)), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	challenged, err := s.api.Teams.Get(ctx, c.ChallengedTeam)
	if err != nil {
		s.log.Error("team load failed", slog.Int("team_id", int(c.ChallengedTeam)), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	view := NewChallengeView(c, challenging, challenged)
	if s.cache != nil {
		tags := []cache.Key{cache.Challenge(), cache.Team(int(challenging.ID)), cache.Team(int(challenged.ID))}
		if err := s.cache.Put(ctx, viewKey(id), tags, view); err != nil {
			s.log.Warn("view cache write failed", slog.Int("challenge_id", n), slog.Any("error", err))
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// Status names where a challenge is in its lifecycle
func Status(c *challenge.Challenge) string {
	switch {
	case c.Voided():
		return "voided"
	case c.Closed():
		return "closed"
	case c.Confirmed():
		return "confirmed"
	case c.Reported():
		return "reported"
	case c.Details.MatchTime != nil:
		return "scheduled"
	}
	return "open"
}

// NewChallengeView projects a loaded challenge into its public JSON shape
func NewChallengeView(c *challenge.Challenge, challenging, challenged shared.Team) ChallengeView {
	d := c.Details
	name := func(id shared.TeamID) string {
		switch id {
		case challenging.ID:
			return challenging.Name
		case challenged.ID:
			return challenged.Name
		}
		return ""
	}

	view := ChallengeView{
		ID:              int(c.ID),
		Status:          Status(c),
		Title:           d.Title,
		ChallengingTeam: TeamView{ID: int(challenging.ID), Name: challenging.Name, Tag: challenging.Tag},
		ChallengedTeam:  TeamView{ID: int(challenged.ID), Name: challenged.Name, Tag: challenged.Tag},
		OrangeTeam:      name(d.OrangeTeam),
		BlueTeam:        name(d.BlueTeam),
		Map:             d.Map,
		TeamSize:        d.TeamSize,
		MatchTime:       d.MatchTime,
		ClockDeadline:   d.DateClockDeadline,
		Caster:          d.Caster,
		Streamers:       d.Streamers,
		VOD:             d.VOD,
		Postseason:      d.Postseason,
		OvertimePeriods: d.OvertimePeriods,
	}
	if d.Map == "" && d.UsingHomeMapTeam {
		view.HomeMapTeam = name(d.HomeMapTeam)
		view.HomeMaps = d.HomeMaps
	}
	if d.UsingHomeServerTeam {
		view.HomeServerTeam = name(d.HomeServerTeam)
	}
	if c.Reported() {
		view.Score = &ScoreView{Challenging: d.ChallengingTeamScore, Challenged: d.ChallengedTeamScore, Confirmed: c.Confirmed()}
	}
	return view
}
