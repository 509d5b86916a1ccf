/* mock_session.go
 * Contains mock implementation of DiscordSession for testing. Channels live in memory so a test can create,
 * rename and delete them and look at what was posted where.
 */

package bot

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// MockDiscordSession implements DiscordSession for testing purposes
type MockDiscordSession struct {
	mu sync.Mutex
	// SentMessages stores all messages sent during tests, plain and embedded
	SentMessages []MockMessage
	// Channels is the fake guild, keyed by channel ID
	Channels map[string]*discordgo.Channel
	// RemovedRoles records user:role pairs passed to GuildMemberRoleRemove
	RemovedRoles []string
	// ErrorToReturn allows tests to simulate errors on every call
	ErrorToReturn error
	// Errors simulates failures of a single method, keyed by method name
	Errors map[string]error

	nextID int
}

// MockMessage represents a message sent to a channel
type MockMessage struct {
	ChannelID string
	Content   string
	Embed     *discordgo.MessageEmbed
}

func (m *MockDiscordSession) fail(method string) error {
	if m.ErrorToReturn != nil {
		return m.ErrorToReturn
	}
	return m.Errors[method]
}

func (m *MockDiscordSession) send(method string, msg MockMessage) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return nil, err
	}
	m.SentMessages = append(m.SentMessages, msg)
	return &discordgo.Message{ID: "mock_message_id", ChannelID: msg.ChannelID, Content: msg.Content}, nil
}

// ChannelMessageSend implements DiscordSession.ChannelMessageSend
func (m *MockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.send("ChannelMessageSend", MockMessage{ChannelID: channelID, Content: content})
}

// ChannelMessageSendEmbed implements DiscordSession.ChannelMessageSendEmbed
func (m *MockDiscordSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.send("ChannelMessageSendEmbed", MockMessage{ChannelID: channelID, Embed: embed})
}

// GuildChannelCreateComplex implements DiscordSession.GuildChannelCreateComplex
func (m *MockDiscordSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GuildChannelCreateComplex"); err != nil {
		return nil, err
	}
	m.nextID++
	ch := &discordgo.Channel{
		ID:                   fmt.Sprintf("mock_channel_%d", m.nextID),
		GuildID:              guildID,
		Name:                 data.Name,
		Topic:                data.Topic,
		Type:                 data.Type,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	m.Channels[ch.ID] = ch
	return ch, nil
}

// GuildChannels implements DiscordSession.GuildChannels
func (m *MockDiscordSession) GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GuildChannels"); err != nil {
		return nil, err
	}
	channels := make([]*discordgo.Channel, 0, len(m.Channels))
	for _, ch := range m.Channels {
		channels = append(channels, ch)
	}
	return channels, nil
}

// Channel implements DiscordSession.Channel
func (m *MockDiscordSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Channel"); err != nil {
		return nil, err
	}
	ch, ok := m.Channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	return ch, nil
}

// ChannelEdit implements DiscordSession.ChannelEdit
func (m *MockDiscordSession) ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ChannelEdit"); err != nil {
		return nil, err
	}
	ch, ok := m.Channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	if data.Name != "" {
		ch.Name = data.Name
	}
	ch.Topic = data.Topic
	return ch, nil
}

// ChannelDelete implements DiscordSession.ChannelDelete
func (m *MockDiscordSession) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ChannelDelete"); err != nil {
		return nil, err
	}
	ch, ok := m.Channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	delete(m.Channels, channelID)
	return ch, nil
}

// UserChannelCreate implements DiscordSession.UserChannelCreate. The DM channel ID is "dm_" plus the user ID.
func (m *MockDiscordSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UserChannelCreate"); err != nil {
		return nil, err
	}
	return &discordgo.Channel{ID: "dm_" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

// GuildMemberRoleRemove implements DiscordSession.GuildMemberRoleRemove
func (m *MockDiscordSession) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GuildMemberRoleRemove"); err != nil {
		return err
	}
	m.RemovedRoles = append(m.RemovedRoles, userID+":"+roleID)
	return nil
}

// AddChannel puts an existing channel in the fake guild
func (m *MockDiscordSession) AddChannel(ch *discordgo.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Channels[ch.ID] = ch
}

// ChannelByName returns the channel with the name, if any
func (m *MockDiscordSession) ChannelByName(name string) (*discordgo.Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return nil, false
}

// MessagesIn returns every message sent to the channel, in order
func (m *MockDiscordSession) MessagesIn(channelID string) []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockMessage
	for _, msg := range m.SentMessages {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	return out
}

// GetLastMessage returns the last message sent, or empty MockMessage if none
func (m *MockDiscordSession) GetLastMessage() MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentMessages) == 0 {
		return MockMessage{}
	}
	return m.SentMessages[len(m.SentMessages)-1]
}

// ClearMessages clears all stored messages
func (m *MockDiscordSession) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = nil
}

// NewMockDiscordSession creates a new MockDiscordSession for testing
func NewMockDiscordSession() *MockDiscordSession {
	return &MockDiscordSession{
		SentMessages: make([]MockMessage, 0),
		Channels:     make(map[string]*discordgo.Channel),
		Errors:       make(map[string]error),
	}
}
