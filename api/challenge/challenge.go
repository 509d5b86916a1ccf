/* challenge.go
 * Contains the challenge entity. A Ref is an identity only handle as returned by lookups, and a Challenge is a Ref
 * whose Details have been loaded. Every mutating engine method takes a *Challenge, so a handle must be loaded first.
 */

package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otl-bot/api/shared"
)

// ID identifies a challenge
type ID int

var (
	ErrChallengeClosed = errors.New("challenge is closed")
	ErrChallengeVoided = errors.New("challenge is voided")
	ErrNotParty        = errors.New("team is not part of this challenge")
)

// Ref is a challenge that has not been loaded yet
type Ref struct {
	ID              ID
	ChallengingTeam shared.TeamID
	ChallengedTeam  shared.TeamID
}

// Loader is the part of the store needed to populate a Ref
type Loader interface {
	GetDetails(ctx context.Context, id ID) (Details, error)
}

// Load fetches the details projection for the handle
// Preconditions: Receives a context and something that can read challenge details
// Postconditions: Returns a fully populated *Challenge, or an error if the read failed
func (r Ref) Load(ctx context.Context, loader Loader) (*Challenge, error) {
	details, err := loader.GetDetails(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("load challenge %d: %w", r.ID, err)
	}
	return &Challenge{Ref: r, Details: details}, nil
}

// Challenge is a loaded challenge. It is owned by one command invocation and must not be shared.
type Challenge struct {
	Ref
	Details Details
}

// Details is the mutable projection of a challenge row
type Details struct {
	OrangeTeam shared.TeamID
	BlueTeam   shared.TeamID

	Map              string
	SuggestedMap     string
	SuggestedMapTeam shared.TeamID
	HomeMapTeam      shared.TeamID
	HomeMaps         []string
	UsingHomeMapTeam bool

	HomeServerTeam             shared.TeamID
	UsingHomeServerTeam        bool
	SuggestedNeutralServerTeam shared.TeamID

	TeamSize              int
	SuggestedTeamSize     int
	SuggestedTeamSizeTeam shared.TeamID

	MatchTime                   *time.Time
	SuggestedTime               *time.Time
	SuggestedTimeTeam           shared.TeamID
	DateMatchTimeNotified       *time.Time
	DateMatchTimePassedNotified *time.Time

	ClockTeam                 shared.TeamID
	DateClocked               *time.Time
	DateClockDeadline         *time.Time
	DateClockDeadlineNotified *time.Time

	ReportingTeam        shared.TeamID
	ChallengingTeamScore int
	ChallengedTeamScore  int

	DateAdded     time.Time
	DateReported  *time.Time
	DateConfirmed *time.Time
	DateClosed    *time.Time
	DateVoided    *time.Time

	AdminCreated             bool
	ChallengingTeamPenalized bool
	ChallengedTeamPenalized  bool

	Caster          string
	Streamers       []string
	Title           string
	VOD             string
	Postseason      bool
	OvertimePeriods int

	RematchTeam          shared.TeamID
	DateRematchRequested *time.Time
	DateRematched        *time.Time
}

// Facet is one of the independently negotiable parts of a match
type Facet int

const (
	FacetMap Facet = iota
	FacetServer
	FacetTeamSize
	FacetTime
)

func (f Facet) String() string {
	switch f {
	case FacetMap:
		return "map"
	case FacetServer:
		return "server"
	case FacetTeamSize:
		return "team size"
	case FacetTime:
		return "time"
	}
	return fmt.Sprintf("facet(%d)", int(f))
}

// Teams returns both parties, challenging team first
func (c *Challenge) Teams() [2]shared.TeamID {
	return [2]shared.TeamID{c.ChallengingTeam, c.ChallengedTeam}
}

// IsParty reports whether team is one of the two parties
func (c *Challenge) IsParty(team shared.TeamID) bool {
	return team == c.ChallengingTeam || team == c.ChallengedTeam
}

// Opponent returns the other party, or ErrNotParty
func (c *Challenge) Opponent(team shared.TeamID) (shared.TeamID, error) {
	switch team {
	case c.ChallengingTeam:
		return c.ChallengedTeam, nil
	case c.ChallengedTeam:
		return c.ChallengingTeam, nil
	}
	return 0, ErrNotParty
}

func (c *Challenge) Closed() bool    { return c.Details.DateClosed != nil }
func (c *Challenge) Voided() bool    { return c.Details.DateVoided != nil }
func (c *Challenge) Reported() bool  { return c.Details.DateReported != nil && c.Details.ReportingTeam != 0 }
func (c *Challenge) Confirmed() bool { return c.Details.DateConfirmed != nil }

// CheckOpen returns an error when the challenge no longer accepts lifecycle or scheduling changes
func (c *Challenge) CheckOpen() error {
	if c.Closed() {
		return ErrChallengeClosed
	}
	if c.Voided() {
		return ErrChallengeVoided
	}
	return nil
}

// Pending returns the team with an outstanding suggestion for the facet, or zero
func (c *Challenge) Pending(f Facet) shared.TeamID {
	switch f {
	case FacetMap:
		return c.Details.SuggestedMapTeam
	case FacetServer:
		return c.Details.SuggestedNeutralServerTeam
	case FacetTeamSize:
		return c.Details.SuggestedTeamSizeTeam
	case FacetTime:
		return c.Details.SuggestedTimeTeam
	}
	return 0
}

// CanConfirm reports whether team may accept the pending suggestion for the facet. Only the opponent of the
// suggesting team may confirm. The engine does not call this, the command layer does.
func (c *Challenge) CanConfirm(f Facet, team shared.TeamID) bool {
	suggesting := c.Pending(f)
	return suggesting != 0 && c.IsParty(team) && suggesting != team
}

// CanConfirmReport reports whether team may confirm the reported score
func (c *Challenge) CanConfirmReport(team shared.TeamID) bool {
	return c.Reported() && c.IsParty(team) && c.Details.ReportingTeam != team
}

// Winner returns the winning team and whether the result is a tie
func (c *Challenge) Winner() (shared.TeamID, bool) {
	d := c.Details
	switch {
	case d.ChallengingTeamScore > d.ChallengedTeamScore:
		return c.ChallengingTeam, false
	case d.ChallengedTeamScore > d.ChallengingTeamScore:
		return c.ChallengedTeam, false
	}
	return 0, true
}

// ChannelName is the name of the challenge's discussion channel
func (c *Challenge) ChannelName() string {
	return ChannelName(c.ID)
}

// ChannelName returns the channel name for a challenge ID
func ChannelName(id ID) string {
	return fmt.Sprintf("challenge-%d", id)
}
