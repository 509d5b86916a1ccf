//go:build !test

/* bot_runtime.go
 * Contains runtime-only Discord bot methods that use *discordgo.Session directly.
 * Delegates to testable handlers in handlers.go to avoid code duplication.
 */

package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// NewSession creates a discord session for the token without connecting it. The notifier and team collaborator are
// built on it before the engine exists, Run connects it.
func NewSession(botToken string) (*discordgo.Session, error) {
	discord, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return discord, nil
}

// Run connects the session and handles messages until ctx is done
func (b *Bot) Run(ctx context.Context, discord *discordgo.Session) error {
	// add a event handler
	remove := discord.AddHandler(b.newMessage)
	defer remove()

	if err := discord.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer discord.Close() // close session, after function termination

	b.Log.Info("OTL bot started")
	<-ctx.Done()
	b.Log.Info("OTL bot stopping")
	return nil
}

// newMessage delegates to the testable newMessageHandler
// *discordgo.Session implements DiscordSession interface
func (b *Bot) newMessage(discord *discordgo.Session, message *discordgo.MessageCreate) {
	b.newMessageHandler(discord, message, discord.State.User.ID)
}
