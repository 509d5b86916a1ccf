/* store_interface.go
 * Contains the Store interface for dependency injection and testing
 */

package store

import (
	"context"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/shared"
)

// Interface defines the methods that Store implements.
// Each method is one transaction. Setters return only the derived state the caller needs.
type Interface interface {
	challenge.Loader

	// Challenge lookups
	Create(ctx context.Context, p CreateParams) (CreateResult, error)
	GetByID(ctx context.Context, id challenge.ID) (challenge.Ref, error)
	GetByTeams(ctx context.Context, a, b shared.TeamID) (challenge.Ref, error)
	GetAllByTeam(ctx context.Context, team shared.TeamID) ([]challenge.Ref, error)
	GetAllByTeams(ctx context.Context, a, b shared.TeamID) ([]challenge.Ref, error)
	GetClockedByTeam(ctx context.Context, team shared.TeamID, since time.Time) ([]challenge.Ref, error)
	GetNotifications(ctx context.Context) (Notifications, error)

	// Map
	SetMap(ctx context.Context, id challenge.ID, mapName string) error
	PickMap(ctx context.Context, id challenge.ID, number int) (string, error)
	SetHomeMapTeam(ctx context.Context, id challenge.ID, team shared.TeamID) ([]string, error)
	SuggestMap(ctx context.Context, id challenge.ID, team shared.TeamID, mapName string) error
	ConfirmMap(ctx context.Context, id challenge.ID) (string, error)

	// Server
	SetHomeServerTeam(ctx context.Context, id challenge.ID, team shared.TeamID) error
	SuggestNeutralServer(ctx context.Context, id challenge.ID, team shared.TeamID) error
	ConfirmNeutralServer(ctx context.Context, id challenge.ID) error

	// Team size
	SetTeamSize(ctx context.Context, id challenge.ID, size int) error
	SuggestTeamSize(ctx context.Context, id challenge.ID, team shared.TeamID, size int) error
	ConfirmTeamSize(ctx context.Context, id challenge.ID) (int, error)

	// Match time
	SetTime(ctx context.Context, id challenge.ID, t *time.Time) error
	SuggestTime(ctx context.Context, id challenge.ID, team shared.TeamID, t time.Time) error
	ConfirmTime(ctx context.Context, id challenge.ID) (time.Time, error)

	// Lifecycle
	Clock(ctx context.Context, id challenge.ID, team shared.TeamID, now time.Time) (ClockResult, error)
	Extend(ctx context.Context, id challenge.ID, now time.Time) (*time.Time, error)
	Report(ctx context.Context, id challenge.ID, reportingTeam shared.TeamID, challengingScore, challengedScore int, now time.Time) error
	SetConfirmed(ctx context.Context, id challenge.ID, now time.Time) error
	Close(ctx context.Context, id challenge.ID, now time.Time) error
	Void(ctx context.Context, id challenge.ID, now time.Time) error
	VoidWithPenalties(ctx context.Context, id challenge.ID, teams []shared.TeamID, now time.Time) ([]PenaltyResult, error)
	Unvoid(ctx context.Context, id challenge.ID) error
	SetNotifyClockExpired(ctx context.Context, id challenge.ID, now time.Time) error
	SetNotifyMatchMissed(ctx context.Context, id challenge.ID, now time.Time) error
	SetNotifyMatchStarting(ctx context.Context, id challenge.ID, now time.Time) error

	// Auxiliary
	SetCaster(ctx context.Context, id challenge.ID, discordID string) error
	AddStreamer(ctx context.Context, id challenge.ID, discordID string) error
	RemoveStreamer(ctx context.Context, id challenge.ID, discordID string) error
	SetTitle(ctx context.Context, id challenge.ID, title string) error
	SetVod(ctx context.Context, id challenge.ID, vod string) error
	SetPostseason(ctx context.Context, id challenge.ID, postseason bool) error
	SetOvertimePeriods(ctx context.Context, id challenge.ID, periods int) error
	RequestRematch(ctx context.Context, id challenge.ID, team shared.TeamID, now time.Time) error
	SetRematched(ctx context.Context, id challenge.ID, now time.Time) error
	AddStat(ctx context.Context, id challenge.ID, stat shared.Stat) error
	ClearStats(ctx context.Context, id challenge.ID) error
	GetStats(ctx context.Context, id challenge.ID) ([]shared.Stat, error)

	// Teams and players, read by the engine and the command layer
	GetTeam(ctx context.Context, id shared.TeamID) (shared.Team, error)
	ListTeams(ctx context.Context) ([]shared.Team, error)
	GetRoster(ctx context.Context, team shared.TeamID) ([]shared.Player, error)
	GetPlayerByDiscordID(ctx context.Context, discordID string) (shared.Player, error)
	DisbandTeam(ctx context.Context, team shared.TeamID, now time.Time) ([]shared.Player, error)
	RequestRatingRecompute(ctx context.Context, team shared.TeamID, id challenge.ID, now time.Time) error
}

// Ensure Store implements Interface
var _ Interface = (*Store)(nil)
