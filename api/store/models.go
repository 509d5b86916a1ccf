/* models.go
 * Contains the parameter and result structs exchanged with the store
 */

package store

import (
	"errors"
	"time"

	"otl-bot/api/challenge"
	"otl-bot/api/shared"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNothingPending = errors.New("nothing pending to confirm")
	ErrNotReported    = errors.New("challenge has not been reported")
)

// CreateParams are the inputs to Create. Zero team IDs and sizes mean "not given".
type CreateParams struct {
	ChallengingTeam shared.TeamID
	ChallengedTeam  shared.TeamID
	AdminCreated    bool
	HomeMapTeam     shared.TeamID
	HomeServerTeam  shared.TeamID
	TeamSize        int
	StartNow        bool
	// MatchTime sets an exact match time and takes precedence over StartNow
	MatchTime *time.Time
	// Now is the creation time. Zero means the wall clock.
	Now time.Time
}

// CreateResult is what a caller needs to announce a new challenge
type CreateResult struct {
	Ref                      challenge.Ref
	OrangeTeam               shared.TeamID
	BlueTeam                 shared.TeamID
	HomeMapTeam              shared.TeamID
	HomeServerTeam           shared.TeamID
	HomeMaps                 []string
	ChallengingTeamPenalized bool
	ChallengedTeamPenalized  bool
	TeamSize                 int
	MatchTime                *time.Time
}

// ClockResult is the new clock state
type ClockResult struct {
	ClockedAt time.Time
	Deadline  time.Time
}

// PenaltyResult is the outcome of penalizing one team
type PenaltyResult struct {
	TeamID    shared.TeamID
	First     bool
	Remaining int
}

// Notification is a pending timed notice for one challenge
type Notification struct {
	ID   challenge.ID
	Date time.Time
}

// Notifications are the unacknowledged notices, by kind. Dates are the underlying fact (deadline or match time).
type Notifications struct {
	ExpiredClocks []Notification
	Starting      []Notification
	Missed        []Notification
}
