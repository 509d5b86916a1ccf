/* config.go
 * Contains the process configuration, read from the environment after an optional .env file is loaded
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"otl-bot/bot"

	"github.com/caarlos0/env/v11"
)

// Config is everything the bot reads from its environment
type Config struct {
	DiscordProdToken string `env:"DISCORD_PROD_TOKEN"`
	DiscordBetaToken string `env:"DISCORD_BETA_TOKEN"`

	GuildID              string `env:"DISCORD_GUILD_ID,required"`
	ChallengesCategoryID string `env:"DISCORD_CHALLENGES_CATEGORY_ID"`
	AlertsChannelID      string `env:"DISCORD_ALERTS_CHANNEL_ID"`
	ResultsChannelID     string `env:"DISCORD_RESULTS_CHANNEL_ID"`
	AdminRoleID          string `env:"DISCORD_ADMIN_ROLE_ID"`

	PostgresDSN string `env:"POSTGRES_DSN,required"`

	MongoURI string        `env:"MONGO_URI"`
	MongoDB  string        `env:"MONGO_DB" envDefault:"otl"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	TrackerURL  string  `env:"TRACKER_URL"`
	TrackerRate float64 `env:"TRACKER_RATE" envDefault:"2"`

	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`
}

// loadConfig parses the environment into a Config
func loadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// token returns the discord token for the production or the beta bot
// Preconditions: Receives whether the beta bot was asked for
// Postconditions: Returns the token, or an error if the matching variable is empty
func (c *Config) token(beta bool) (string, error) {
	if beta {
		if c.DiscordBetaToken == "" {
			return "", fmt.Errorf("DISCORD_BETA_TOKEN is required when running the test bot")
		}
		return c.DiscordBetaToken, nil
	}
	if c.DiscordProdToken == "" {
		return "", fmt.Errorf("DISCORD_PROD_TOKEN is required")
	}
	return c.DiscordProdToken, nil
}

func (c *Config) bot() bot.Config {
	return bot.Config{
		GuildID:              c.GuildID,
		ChallengesCategoryID: c.ChallengesCategoryID,
		AlertsChannelID:      c.AlertsChannelID,
		ResultsChannelID:     c.ResultsChannelID,
		AdminRoleID:          c.AdminRoleID,
	}
}

// newLogger writes JSON logs unless LOG_FORMAT=text
func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
