/* ports.go
 * Contains the collaborator interfaces the engine depends on. The discord package implements Notifier and Teams.
 */

package api

import (
	"context"

	"otl-bot/api/challenge"
	"otl-bot/api/external"
	"otl-bot/api/shared"
)

// Notifier is the chat platform as seen by the engine. Every method is awaited and its error is treated as a
// critical failure when it happens after a state change.
type Notifier interface {
	CreateChallengeChannel(ctx context.Context, c *challenge.Challenge, challenging, challenged shared.Team) error
	DeleteChallengeChannel(ctx context.Context, id challenge.ID) error
	UpdateChallengeTopic(ctx context.Context, c *challenge.Challenge) error
	PostChallenge(ctx context.Context, id challenge.ID, msg shared.Message) error
	PostTeam(ctx context.Context, team shared.Team, msg shared.Message) error
	PostAlert(ctx context.Context, msg shared.Message) error
	PostResults(ctx context.Context, msg shared.Message) error
	DirectMessage(ctx context.Context, discordID string, msg shared.Message) error
}

// Teams reads teams and triggers the team level side effects of a challenge
type Teams interface {
	Get(ctx context.Context, id shared.TeamID) (shared.Team, error)
	Disband(ctx context.Context, team shared.Team, actor shared.Member) error
	UpdateChannels(ctx context.Context, team shared.Team) error
	UpdateRatingsForSeasonFromChallenge(ctx context.Context, team shared.Team, c *challenge.Challenge) error
}

// Tracker looks up games recorded by the game tracker
type Tracker interface {
	GetGame(ctx context.Context, gameID int) (external.Game, error)
}

var _ Tracker = (*external.Tracker)(nil)
