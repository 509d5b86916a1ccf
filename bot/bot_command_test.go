/* bot_command_test.go
 * Contains unit tests for bot.go
 */

package bot

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"otl-bot/api/api"
	"otl-bot/api/timers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Create an engine over the in memory store for testing
func createMockAPI(t *testing.T) *api.API {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := timers.NewRegistry(timers.NewFakeClock(start), logger)
	t.Cleanup(registry.Stop)
	s := api.NewMockStore()
	a, err := api.NewAPI(api.Config{
		Store:    s,
		Timers:   registry,
		Notifier: api.NewMockNotifier(),
		Teams:    api.NewMockTeams(s),
		Logger:   logger,
	})
	require.NoError(t, err)
	return a
}

// region NewBot tests

func TestNewBot_Success(t *testing.T) {
	apiPtr := createMockAPI(t)
	bot, err := NewBot("test_token", apiPtr, testConfig, nil)

	require.NoError(t, err)
	assert.Equal(t, "test_token", bot.BotToken)
	assert.Same(t, apiPtr, bot.APIPtr)
	assert.Equal(t, testConfig, bot.Config)
	assert.NotNil(t, bot.Log)
}

func TestNewBot_EmptyToken(t *testing.T) {
	_, err := NewBot("", createMockAPI(t), testConfig, nil)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "botToken is required"))
}

func TestNewBot_NoAPI(t *testing.T) {
	_, err := NewBot("test_token", nil, testConfig, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api is required")
}

// endregion

// region command table tests

// TestCommands_AllLowercase tests every command is reachable after the first word is lowercased
func TestCommands_AllLowercase(t *testing.T) {
	for name, handler := range commands {
		assert.Equal(t, strings.ToLower(name), name)
		assert.True(t, startsWith(name, "$"), name)
		assert.NotNil(t, handler, name)
	}
}

// endregion
