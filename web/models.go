package web

import (
	"context"
	"log/slog"
	"time"

	"otl-bot/api/api"
	"otl-bot/api/cache"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the configuration for the web server
type Config struct {
	Addr string
	API  *api.API
	// Cache is read through for challenge views, nil disables caching
	Cache cache.ViewCache
	// Gatherer backs /metrics, nil uses the default registry
	Gatherer prometheus.Gatherer
	// Checks are run by /healthz, keyed by name
	Checks map[string]Checker
	Logger *slog.Logger
}

// Checker reports whether a dependency is reachable
type Checker func(ctx context.Context) error

// Server serves the read only views
type Server struct {
	api    *api.API
	cache  cache.ViewCache
	checks map[string]Checker
	log    *slog.Logger
}

// ChallengeView is the public JSON shape of a challenge
type ChallengeView struct {
	ID              int        `json:"id"`
	Status          string     `json:"status"`
	Title           string     `json:"title,omitempty"`
	ChallengingTeam TeamView   `json:"challengingTeam"`
	ChallengedTeam  TeamView   `json:"challengedTeam"`
	OrangeTeam      string     `json:"orangeTeam,omitempty"`
	BlueTeam        string     `json:"blueTeam,omitempty"`
	Map             string     `json:"map,omitempty"`
	HomeMapTeam     string     `json:"homeMapTeam,omitempty"`
	HomeMaps        []string   `json:"homeMaps,omitempty"`
	HomeServerTeam  string     `json:"homeServerTeam,omitempty"`
	TeamSize        int        `json:"teamSize"`
	MatchTime       *time.Time `json:"matchTime,omitempty"`
	ClockDeadline   *time.Time `json:"clockDeadline,omitempty"`
	Score           *ScoreView `json:"score,omitempty"`
	Caster          string     `json:"caster,omitempty"`
	Streamers       []string   `json:"streamers,omitempty"`
	VOD             string     `json:"vod,omitempty"`
	Postseason      bool       `json:"postseason"`
	OvertimePeriods int        `json:"overtimePeriods,omitempty"`
}

// TeamView names one side of a challenge
type TeamView struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// ScoreView is a reported or final score
type ScoreView struct {
	Challenging int  `json:"challenging"`
	Challenged  int  `json:"challenged"`
	Confirmed   bool `json:"confirmed"`
}
