/* bot.go
 * Contains the Bot type and command routing. The bot needs a discord token and the engine, both passed in from
 * main.go. Discord specific wiring lives in bot_runtime.go, the testable handlers in handlers.go.
 */

package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"otl-bot/api/api"

	"github.com/bwmarrin/discordgo"
)

// Config names the guild objects the bot works with
type Config struct {
	GuildID              string
	ChallengesCategoryID string
	AlertsChannelID      string
	ResultsChannelID     string
	AdminRoleID          string
}

type Bot struct {
	BotToken string
	APIPtr   *api.API
	Config   Config
	Log      *slog.Logger
}

// NewBot creates a new bot
// Preconditions: Receives a bot token, the engine and the guild config
// Postconditions: Returns the bot, or an error if the token or engine is missing
func NewBot(botToken string, apiPtr *api.API, cfg Config, logger *slog.Logger) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if apiPtr == nil {
		return nil, fmt.Errorf("api is required but none was provided")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		BotToken: botToken,
		APIPtr:   apiPtr,
		Config:   cfg,
		Log:      logger.With("component", "bot"),
	}, nil
}

type handlerFunc func(b *Bot, cmd *command)

// commands maps the first word of a message to its handler
var commands = map[string]handlerFunc{
	"$help":              (*Bot).helpHandler,
	"$challenge":         (*Bot).challengeHandler,
	"$details":           (*Bot).detailsHandler,
	"$pickmap":           (*Bot).pickMapHandler,
	"$suggestmap":        (*Bot).suggestMapHandler,
	"$confirmmap":        (*Bot).confirmMapHandler,
	"$suggestserver":     (*Bot).suggestServerHandler,
	"$confirmserver":     (*Bot).confirmServerHandler,
	"$suggestteamsize":   (*Bot).suggestTeamSizeHandler,
	"$confirmteamsize":   (*Bot).confirmTeamSizeHandler,
	"$suggesttime":       (*Bot).suggestTimeHandler,
	"$confirmtime":       (*Bot).confirmTimeHandler,
	"$clock":             (*Bot).clockHandler,
	"$report":            (*Bot).reportHandler,
	"$confirm":           (*Bot).confirmHandler,
	"$reject":            (*Bot).rejectHandler,
	"$rematch":           (*Bot).rematchHandler,
	"$extend":            (*Bot).extendHandler,
	"$void":              (*Bot).voidHandler,
	"$unvoid":            (*Bot).unvoidHandler,
	"$close":             (*Bot).closeHandler,
	"$adjudicate":        (*Bot).adjudicateHandler,
	"$settime":           (*Bot).setTimeHandler,
	"$setmap":            (*Bot).setMapHandler,
	"$setteamsize":       (*Bot).setTeamSizeHandler,
	"$sethomemapteam":    (*Bot).setHomeMapTeamHandler,
	"$sethomeserverteam": (*Bot).setHomeServerTeamHandler,
	"$setscore":          (*Bot).setScoreHandler,
	"$addstats":          (*Bot).addStatsHandler,
	"$addstat":           (*Bot).addStatHandler,
	"$clearstats":        (*Bot).clearStatsHandler,
	"$title":             (*Bot).titleHandler,
	"$vod":               (*Bot).vodHandler,
	"$postseason":        (*Bot).postseasonHandler,
	"$regularseason":     (*Bot).postseasonHandler,
	"$overtime":          (*Bot).overtimeHandler,
	"$cast":              (*Bot).castHandler,
	"$uncast":            (*Bot).uncastHandler,
	"$stream":            (*Bot).streamHandler,
	"$unstream":          (*Bot).streamHandler,
}

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author == nil || message.Author.ID == botUserID || message.Author.Bot {
		return
	}
	if !startsWith(message.Content, "$") {
		return
	}

	word, _, _ := strings.Cut(strings.TrimSpace(message.Content), " ")
	if handler, ok := commands[strings.ToLower(word)]; ok {
		cmd := b.newCommand(session, message)
		defer cmd.cancel()
		handler(b, cmd)
	}
}

// Helper function to check if a string starts with a given substring
// Preconditions: Recieves an input string and a substring
// Postconditions: Returns true if the substring is at the start of the string, else returns false
func startsWith(inputString string, substring string) bool {
	//Check if the substring is present in the input string
	if !strings.Contains(inputString, substring) {
		return false
	}
	strLength := len(substring)
	for i := range strLength {
		if inputString[i] != substring[i] {
			return false
		}
	}
	return true
}
