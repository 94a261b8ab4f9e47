// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the bot configuration.
type Config struct {
	// Mode is the operating mode: production or dev.
	Mode string `toml:"mode"`

	// Chat selects and configures the chat transport.
	Chat ChatConfig `toml:"chat"`

	// Room is the single channel this process recruits from.
	Room RoomConfig `toml:"room"`

	// Invites holds per-invitation timing and plan size.
	Invites InvitesConfig `toml:"invites"`

	// Planner holds plan deadlines.
	Planner PlannerConfig `toml:"planner"`

	// OptOut holds opt-out confirmation settings.
	OptOut OptOutConfig `toml:"optout"`

	// Schedule holds tick cadences.
	Schedule ScheduleConfig `toml:"schedule"`

	// Store selects the persistence driver.
	Store StoreConfig `toml:"store"`

	// Cache configuration
	Cache CacheConfig `toml:"cache"`

	// HTTP configures the status API.
	HTTP HTTPConfig `toml:"http"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// ChatConfig holds chat transport settings.
type ChatConfig struct {
	// Driver is the transport: console.
	Driver string `toml:"driver"`

	// BotID and BotName identify the bot so channel messages addressed to it
	// can be told apart from chatter.
	BotID   string `toml:"bot_id"`
	BotName string `toml:"bot_name"`

	// WorkspaceFile is the YAML workspace description used by the console driver.
	WorkspaceFile string `toml:"workspace_file"`
}

// RoomConfig identifies where meetups are organized.
type RoomConfig struct {
	// Room is the channel whose members are invited. Required at planner start.
	Room string `toml:"room"`

	// City is shown in invitations. Required at planner start.
	City string `toml:"city"`

	// BotRoom is the help channel mentioned in messages.
	BotRoom string `toml:"bot_room"`

	// Timezone is the IANA zone for event times. Default: Local.
	Timezone string `toml:"timezone"`
}

// InvitesConfig holds invitation settings.
type InvitesConfig struct {
	// PerEvent is the target guest count of a plan. Default: 5.
	PerEvent int `toml:"per_event"`

	// MinimumParticipants is the accepted count needed to hold a plan at the
	// cancellation deadline. Default: 4. Must be between 2 and PerEvent.
	MinimumParticipants int `toml:"minimum_participants"`

	// RemindAfter is the wait between invite and reminder. Default: 23h.
	RemindAfter time.Duration `toml:"remind_after"`

	// ExpireAfter is the wait between reminder and expiry. Default: 25h.
	ExpireAfter time.Duration `toml:"expire_after"`
}

// PlannerConfig holds plan deadlines.
type PlannerConfig struct {
	// DaysBeforeEventToCancel is the lock-in-or-cancel deadline. Default: 5.
	DaysBeforeEventToCancel int `toml:"days_before_event_to_cancel"`

	// HoursBeforeRemind is when participants get the final reminder. Default: 47.
	HoursBeforeRemind int `toml:"hours_before_remind"`

	// EventHour is the local start hour of every event. Default: 17.
	EventHour int `toml:"event_hour"`

	// WeeksAhead is how far ahead plans are created. Default: 2.
	WeeksAhead int `toml:"weeks_ahead"`
}

// OptOutConfig holds opt-out settings.
type OptOutConfig struct {
	// ConfirmWindow is how long a pending opt-out waits for its repeat. Default: 2m.
	ConfirmWindow time.Duration `toml:"confirm_window"`
}

// ScheduleConfig holds tick cadences.
type ScheduleConfig struct {
	Inviter JobConfig `toml:"inviter"`
	Planner JobConfig `toml:"planner"`
}

// JobConfig is one periodic job: first run after InitialDelay, then every Period.
type JobConfig struct {
	InitialDelay time.Duration `toml:"initial_delay"`
	Period       time.Duration `toml:"period"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver is one of memory, json, sqlite, postgres, mirror. Default: json.
	Driver string `toml:"driver"`

	// DataDir is where file-backed drivers keep their data. Default: data.
	DataDir string `toml:"data_dir"`

	// Drivers holds per-driver options, e.g. [store.drivers.postgres] dsn = "...".
	Drivers map[string]map[string]any `toml:"drivers"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	// Driver is the cache driver name: "memory" (default).
	Driver string `toml:"driver"`

	// Drivers holds per-driver configuration.
	// Example: [cache.drivers.memory] default_ttl = "10m"
	Drivers map[string]any `toml:"drivers"`
}

// HTTPConfig holds status API settings.
type HTTPConfig struct {
	// Enabled controls whether the status API listens at all.
	// Pointer for presence detection; nil = use preset default.
	Enabled *bool `toml:"enabled"`

	// ListenAddr is the address to listen on. Example: ":8080"
	ListenAddr string `toml:"listen_addr"`

	// BasicAuth protects everything except /health when both fields are set.
	BasicAuth BasicAuthConfig `toml:"basic_auth"`
}

// BasicAuthConfig holds status API credentials.
type BasicAuthConfig struct {
	Username string `toml:"username"`

	// PasswordHash is a bcrypt hash; the plain password is never configured.
	PasswordHash string `toml:"password_hash"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `toml:"level"`
}

// HTTPEnabled returns whether the status API is enabled.
func (c *Config) HTTPEnabled() bool {
	return c.HTTP.Enabled != nil && *c.HTTP.Enabled
}

// Location resolves Room.Timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Room.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid room.timezone %q: %w", c.Room.Timezone, err)
	}
	return loc, nil
}

// StoreDriverOptions returns a copy of the [store.drivers.<driver>] table for
// the selected driver, or nil.
func (c *Config) StoreDriverOptions() map[string]any {
	src, ok := c.Store.Drivers[c.Store.Driver]
	if !ok {
		return nil
	}
	result := make(map[string]any, len(src))
	for k, v := range src {
		result[k] = v
	}
	return result
}

// Redacted returns a string representation of the config with secrets redacted.
func (c *Config) Redacted() string {
	var sb strings.Builder
	sb.WriteString("Config{\n")
	sb.WriteString(fmt.Sprintf("  Mode: %q,\n", c.Mode))
	sb.WriteString("  Chat: {\n")
	sb.WriteString(fmt.Sprintf("    Driver: %q,\n", c.Chat.Driver))
	sb.WriteString(fmt.Sprintf("    BotID: %q,\n", c.Chat.BotID))
	sb.WriteString(fmt.Sprintf("    BotName: %q,\n", c.Chat.BotName))
	sb.WriteString(fmt.Sprintf("    WorkspaceFile: %q,\n", c.Chat.WorkspaceFile))
	sb.WriteString("  },\n")
	sb.WriteString("  Room: {\n")
	sb.WriteString(fmt.Sprintf("    Room: %q,\n", c.Room.Room))
	sb.WriteString(fmt.Sprintf("    City: %q,\n", c.Room.City))
	sb.WriteString(fmt.Sprintf("    BotRoom: %q,\n", c.Room.BotRoom))
	sb.WriteString(fmt.Sprintf("    Timezone: %q,\n", c.Room.Timezone))
	sb.WriteString("  },\n")
	sb.WriteString("  Invites: {\n")
	sb.WriteString(fmt.Sprintf("    PerEvent: %d,\n", c.Invites.PerEvent))
	sb.WriteString(fmt.Sprintf("    MinimumParticipants: %d,\n", c.Invites.MinimumParticipants))
	sb.WriteString(fmt.Sprintf("    RemindAfter: %s,\n", c.Invites.RemindAfter))
	sb.WriteString(fmt.Sprintf("    ExpireAfter: %s,\n", c.Invites.ExpireAfter))
	sb.WriteString("  },\n")
	sb.WriteString("  Planner: {\n")
	sb.WriteString(fmt.Sprintf("    DaysBeforeEventToCancel: %d,\n", c.Planner.DaysBeforeEventToCancel))
	sb.WriteString(fmt.Sprintf("    HoursBeforeRemind: %d,\n", c.Planner.HoursBeforeRemind))
	sb.WriteString(fmt.Sprintf("    EventHour: %d,\n", c.Planner.EventHour))
	sb.WriteString(fmt.Sprintf("    WeeksAhead: %d,\n", c.Planner.WeeksAhead))
	sb.WriteString("  },\n")
	sb.WriteString(fmt.Sprintf("  OptOut.ConfirmWindow: %s,\n", c.OptOut.ConfirmWindow))
	sb.WriteString("  Schedule: {\n")
	sb.WriteString(fmt.Sprintf("    Inviter: %s then every %s,\n", c.Schedule.Inviter.InitialDelay, c.Schedule.Inviter.Period))
	sb.WriteString(fmt.Sprintf("    Planner: %s then every %s,\n", c.Schedule.Planner.InitialDelay, c.Schedule.Planner.Period))
	sb.WriteString("  },\n")
	sb.WriteString("  Store: {\n")
	sb.WriteString(fmt.Sprintf("    Driver: %q,\n", c.Store.Driver))
	sb.WriteString(fmt.Sprintf("    DataDir: %q,\n", c.Store.DataDir))
	// Driver tables may hold DSNs with passwords; only count them.
	sb.WriteString(fmt.Sprintf("    DriversCount: %d,\n", len(c.Store.Drivers)))
	sb.WriteString("  },\n")
	sb.WriteString("  Cache: {\n")
	sb.WriteString(fmt.Sprintf("    Driver: %q,\n", c.Cache.Driver))
	sb.WriteString(fmt.Sprintf("    DriversCount: %d,\n", len(c.Cache.Drivers)))
	sb.WriteString("  },\n")
	sb.WriteString("  HTTP: {\n")
	sb.WriteString(fmt.Sprintf("    Enabled: %v,\n", c.HTTPEnabled()))
	sb.WriteString(fmt.Sprintf("    ListenAddr: %q,\n", c.HTTP.ListenAddr))
	sb.WriteString(fmt.Sprintf("    BasicAuth.Username: %q,\n", c.HTTP.BasicAuth.Username))
	if c.HTTP.BasicAuth.PasswordHash != "" {
		sb.WriteString("    BasicAuth.PasswordHash: [REDACTED],\n")
	}
	sb.WriteString("  },\n")
	sb.WriteString("  Logging: {\n")
	sb.WriteString(fmt.Sprintf("    Level: %q,\n", c.Logging.Level))
	sb.WriteString("  },\n")
	sb.WriteString("}")
	return sb.String()
}
