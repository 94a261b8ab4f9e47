package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envPrefix namespaces every variable the overlay reads.
const envPrefix = "PIZZABOT_"

// envConfig is the environment overlay. Zero values mean unset.
type envConfig struct {
	Mode string `env:"MODE"`

	ChatDriver    string `env:"CHAT_DRIVER"`
	BotID         string `env:"BOT_ID"`
	BotName       string `env:"BOT_NAME"`
	WorkspaceFile string `env:"WORKSPACE_FILE"`

	Room     string `env:"ROOM"`
	City     string `env:"CITY"`
	BotRoom  string `env:"BOT_ROOM"`
	Timezone string `env:"TIMEZONE"`

	InvitesPerEvent     int           `env:"INVITES_PER_EVENT"`
	MinimumParticipants int           `env:"MINIMUM_PARTICIPANTS"`
	RemindAfter         time.Duration `env:"REMIND_AFTER"`
	ExpireAfter         time.Duration `env:"EXPIRE_AFTER"`

	StoreDriver string `env:"STORE_DRIVER"`
	DataDir     string `env:"DATA_DIR"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	ListenAddr   string `env:"LISTEN_ADDR"`
	HTTPEnabled  *bool  `env:"HTTP_ENABLED"`
	AuthUsername string `env:"HTTP_USERNAME"`
	AuthPassHash string `env:"HTTP_PASSWORD_HASH"`
	LoggingLevel string `env:"LOG_LEVEL"`
}

// parseEnv reads PIZZABOT_* variables from environment, or the process
// environment when nil.
func parseEnv(environment map[string]string) (envConfig, error) {
	var ec envConfig
	opts := env.Options{Prefix: envPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return envConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return ec, nil
}

// overlayEnv applies environment values onto cfg.
func overlayEnv(cfg *Config, ec envConfig) {
	setString(&cfg.Chat.Driver, ec.ChatDriver)
	setString(&cfg.Chat.BotID, ec.BotID)
	setString(&cfg.Chat.BotName, ec.BotName)
	setString(&cfg.Chat.WorkspaceFile, ec.WorkspaceFile)

	setString(&cfg.Room.Room, ec.Room)
	setString(&cfg.Room.City, ec.City)
	setString(&cfg.Room.BotRoom, ec.BotRoom)
	setString(&cfg.Room.Timezone, ec.Timezone)

	setInt(&cfg.Invites.PerEvent, ec.InvitesPerEvent)
	setInt(&cfg.Invites.MinimumParticipants, ec.MinimumParticipants)
	setDuration(&cfg.Invites.RemindAfter, ec.RemindAfter)
	setDuration(&cfg.Invites.ExpireAfter, ec.ExpireAfter)

	setString(&cfg.Store.Driver, ec.StoreDriver)
	setString(&cfg.Store.DataDir, ec.DataDir)
	if ec.PostgresDSN != "" {
		if cfg.Store.Drivers == nil {
			cfg.Store.Drivers = map[string]map[string]any{}
		}
		pg := cfg.Store.Drivers["postgres"]
		if pg == nil {
			pg = map[string]any{}
			cfg.Store.Drivers["postgres"] = pg
		}
		pg["dsn"] = ec.PostgresDSN
	}

	if ec.HTTPEnabled != nil {
		cfg.HTTP.Enabled = ptrBool(*ec.HTTPEnabled)
	}
	setString(&cfg.HTTP.ListenAddr, ec.ListenAddr)
	setString(&cfg.HTTP.BasicAuth.Username, ec.AuthUsername)
	setString(&cfg.HTTP.BasicAuth.PasswordHash, ec.AuthPassHash)
	setString(&cfg.Logging.Level, ec.LoggingLevel)
}
