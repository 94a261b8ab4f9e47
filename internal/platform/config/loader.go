package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Mode represents the bot operating mode.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeDev        Mode = "dev"
)

// ParseMode parses a mode string, returning an error for invalid values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod", "":
		return ModeProduction, nil
	case "dev":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of production, dev", s)
	}
}

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but file is missing or invalid, loading fails.
	ConfigPath string

	// EnvFile is a dotenv file loaded into the process environment before
	// the environment overlay runs. Empty skips it.
	EnvFile string

	// EnvFileOptional tolerates a missing EnvFile.
	EnvFileOptional bool

	// Environment replaces the process environment for the overlay step.
	// Nil reads os.Environ. Tests use this.
	Environment map[string]string

	// ModeFlag is the --mode flag value (overrides config file and env mode).
	ModeFlag string

	// FlagOverrides are CLI flag values that override everything else.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr    *string
	Room          *string
	City          *string
	StoreDriver   *string
	DataDir       *string
	WorkspaceFile *string
	LoggingLevel  *string
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	Mode     string          `toml:"mode"`
	Chat     *ChatConfig     `toml:"chat"`
	Room     *RoomConfig     `toml:"room"`
	Invites  *InvitesConfig  `toml:"invites"`
	Planner  *plannerConfig  `toml:"planner"`
	OptOut   *OptOutConfig   `toml:"optout"`
	Schedule *ScheduleConfig `toml:"schedule"`
	Store    *StoreConfig    `toml:"store"`
	Cache    *CacheConfig    `toml:"cache"`
	HTTP     *HTTPConfig     `toml:"http"`
	Logging  *LoggingConfig  `toml:"logging"`
}

// plannerConfig uses pointers where zero is a legal value.
type plannerConfig struct {
	DaysBeforeEventToCancel *int `toml:"days_before_event_to_cancel"`
	HoursBeforeRemind       *int `toml:"hours_before_remind"`
	EventHour               *int `toml:"event_hour"`
	WeeksAhead              *int `toml:"weeks_ahead"`
}

// Load loads configuration with the following precedence:
//  1. Determine effective mode: --mode flag > PIZZABOT_MODE > mode in config file > default (production)
//  2. Start from mode preset defaults
//  3. Overlay TOML config file values
//  4. Overlay PIZZABOT_* environment variables (after loading EnvFile)
//  5. Overlay CLI flags
//  6. Validate
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid TOML,
// Load returns an error (fail fast). Unknown/undecoded TOML keys produce a warning
// but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	// Step 1: Load TOML file if provided
	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	// Step 2: Load dotenv and parse the environment overlay
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			if !(opts.EnvFileOptional && errors.Is(err, fs.ErrNotExist)) {
				return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
			}
		}
	}
	ec, err := parseEnv(opts.Environment)
	if err != nil {
		return nil, err
	}

	// Step 3: Determine effective mode
	modeStr := fc.Mode
	if ec.Mode != "" {
		modeStr = ec.Mode
	}
	if opts.ModeFlag != "" {
		modeStr = opts.ModeFlag
	}
	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	// Step 4: Start from mode preset, then overlay in precedence order
	cfg := presetForMode(mode)
	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}
	overlayEnv(cfg, ec)
	overlayFlags(cfg, opts.FlagOverrides)

	// Step 5: Validate (fatal on invalid values)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ptrBool returns a pointer to the given bool value.
func ptrBool(b bool) *bool { return &b }

// presetForMode returns the base config for a given mode.
func presetForMode(mode Mode) *Config {
	if mode == ModeDev {
		return DevConfig()
	}
	return ProductionConfig()
}

// ProductionConfig returns production defaults.
func ProductionConfig() *Config {
	return &Config{
		Mode: string(ModeProduction),
		Chat: ChatConfig{
			Driver:        "console",
			BotName:       "pizzabot",
			WorkspaceFile: "workspace.yaml",
		},
		Room: RoomConfig{
			BotRoom:  "pizzalight",
			Timezone: "Local",
		},
		Invites: InvitesConfig{
			PerEvent:            5,
			MinimumParticipants: 4,
			RemindAfter:         23 * time.Hour,
			ExpireAfter:         25 * time.Hour,
		},
		Planner: PlannerConfig{
			DaysBeforeEventToCancel: 5,
			HoursBeforeRemind:       47,
			EventHour:               17,
			WeeksAhead:              2,
		},
		OptOut: OptOutConfig{
			ConfirmWindow: 2 * time.Minute,
		},
		Schedule: ScheduleConfig{
			Inviter: JobConfig{InitialDelay: time.Minute, Period: time.Minute},
			Planner: JobConfig{InitialDelay: 10 * time.Second, Period: 10 * time.Minute},
		},
		Store: StoreConfig{
			Driver:  "json",
			DataDir: "data",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		HTTP: HTTPConfig{
			Enabled:    ptrBool(true),
			ListenAddr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DevConfig returns development mode defaults.
func DevConfig() *Config {
	cfg := ProductionConfig()
	cfg.Mode = string(ModeDev)
	cfg.Store.Driver = "memory"
	cfg.HTTP.ListenAddr = "127.0.0.1:8080"
	cfg.Schedule.Inviter = JobConfig{InitialDelay: 5 * time.Second, Period: 15 * time.Second}
	cfg.Schedule.Planner = JobConfig{InitialDelay: 2 * time.Second, Period: 30 * time.Second}
	cfg.Logging.Level = "debug"
	return cfg
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if c := fc.Chat; c != nil {
		setString(&cfg.Chat.Driver, c.Driver)
		setString(&cfg.Chat.BotID, c.BotID)
		setString(&cfg.Chat.BotName, c.BotName)
		setString(&cfg.Chat.WorkspaceFile, c.WorkspaceFile)
	}

	if r := fc.Room; r != nil {
		setString(&cfg.Room.Room, r.Room)
		setString(&cfg.Room.City, r.City)
		setString(&cfg.Room.BotRoom, r.BotRoom)
		setString(&cfg.Room.Timezone, r.Timezone)
	}

	if i := fc.Invites; i != nil {
		setInt(&cfg.Invites.PerEvent, i.PerEvent)
		setInt(&cfg.Invites.MinimumParticipants, i.MinimumParticipants)
		setDuration(&cfg.Invites.RemindAfter, i.RemindAfter)
		setDuration(&cfg.Invites.ExpireAfter, i.ExpireAfter)
	}

	if p := fc.Planner; p != nil {
		if p.DaysBeforeEventToCancel != nil {
			cfg.Planner.DaysBeforeEventToCancel = *p.DaysBeforeEventToCancel
		}
		if p.HoursBeforeRemind != nil {
			cfg.Planner.HoursBeforeRemind = *p.HoursBeforeRemind
		}
		if p.EventHour != nil {
			cfg.Planner.EventHour = *p.EventHour
		}
		if p.WeeksAhead != nil {
			cfg.Planner.WeeksAhead = *p.WeeksAhead
		}
	}

	if o := fc.OptOut; o != nil {
		setDuration(&cfg.OptOut.ConfirmWindow, o.ConfirmWindow)
	}

	if s := fc.Schedule; s != nil {
		setDuration(&cfg.Schedule.Inviter.InitialDelay, s.Inviter.InitialDelay)
		setDuration(&cfg.Schedule.Inviter.Period, s.Inviter.Period)
		setDuration(&cfg.Schedule.Planner.InitialDelay, s.Planner.InitialDelay)
		setDuration(&cfg.Schedule.Planner.Period, s.Planner.Period)
	}

	if s := fc.Store; s != nil {
		setString(&cfg.Store.Driver, s.Driver)
		setString(&cfg.Store.DataDir, s.DataDir)
		if s.Drivers != nil {
			cfg.Store.Drivers = s.Drivers
		}
	}

	if c := fc.Cache; c != nil {
		setString(&cfg.Cache.Driver, c.Driver)
		if c.Drivers != nil {
			cfg.Cache.Drivers = c.Drivers
		}
	}

	if h := fc.HTTP; h != nil {
		if h.Enabled != nil {
			cfg.HTTP.Enabled = ptrBool(*h.Enabled)
		}
		setString(&cfg.HTTP.ListenAddr, h.ListenAddr)
		setString(&cfg.HTTP.BasicAuth.Username, h.BasicAuth.Username)
		setString(&cfg.HTTP.BasicAuth.PasswordHash, h.BasicAuth.PasswordHash)
	}

	if l := fc.Logging; l != nil {
		setString(&cfg.Logging.Level, l.Level)
	}
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.HTTP.ListenAddr = *f.ListenAddr
	}
	if f.Room != nil && *f.Room != "" {
		cfg.Room.Room = *f.Room
	}
	if f.City != nil && *f.City != "" {
		cfg.Room.City = *f.City
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.DataDir != nil && *f.DataDir != "" {
		cfg.Store.DataDir = *f.DataDir
	}
	if f.WorkspaceFile != nil && *f.WorkspaceFile != "" {
		cfg.Chat.WorkspaceFile = *f.WorkspaceFile
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

var (
	validChatDrivers  = []string{"console"}
	validStoreDrivers = []string{"memory", "json", "sqlite", "postgres", "mirror"}
	validCacheDrivers = []string{"memory"}
	validLogLevels    = []string{"trace", "debug", "info", "warn", "error"}
)

// validate checks enum fields and numeric ranges.
func validate(cfg *Config) error {
	if !slices.Contains(validChatDrivers, cfg.Chat.Driver) {
		return fmt.Errorf("invalid chat.driver %q: must be one of %s", cfg.Chat.Driver, strings.Join(validChatDrivers, ", "))
	}
	if !slices.Contains(validStoreDrivers, cfg.Store.Driver) {
		return fmt.Errorf("invalid store.driver %q: must be one of %s", cfg.Store.Driver, strings.Join(validStoreDrivers, ", "))
	}
	if cfg.Cache.Driver != "" && !slices.Contains(validCacheDrivers, cfg.Cache.Driver) {
		return fmt.Errorf("invalid cache.driver %q: must be one of %s", cfg.Cache.Driver, strings.Join(validCacheDrivers, ", "))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(cfg.Logging.Level)) {
		return fmt.Errorf("invalid logging.level %q: must be one of %s", cfg.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}

	if cfg.Invites.PerEvent < 1 {
		return fmt.Errorf("invites.per_event must be at least 1, got %d", cfg.Invites.PerEvent)
	}
	if cfg.Invites.MinimumParticipants < 2 || cfg.Invites.MinimumParticipants > cfg.Invites.PerEvent {
		return fmt.Errorf("invites.minimum_participants must be between 2 and per_event (%d), got %d",
			cfg.Invites.PerEvent, cfg.Invites.MinimumParticipants)
	}
	if cfg.Invites.RemindAfter <= 0 || cfg.Invites.ExpireAfter <= 0 {
		return fmt.Errorf("invites.remind_after and invites.expire_after must be positive")
	}

	if cfg.Planner.DaysBeforeEventToCancel < 0 {
		return fmt.Errorf("planner.days_before_event_to_cancel must not be negative")
	}
	if cfg.Planner.HoursBeforeRemind < 0 {
		return fmt.Errorf("planner.hours_before_remind must not be negative")
	}
	if cfg.Planner.EventHour < 0 || cfg.Planner.EventHour > 23 {
		return fmt.Errorf("planner.event_hour must be between 0 and 23, got %d", cfg.Planner.EventHour)
	}
	if cfg.Planner.WeeksAhead < 1 {
		return fmt.Errorf("planner.weeks_ahead must be at least 1, got %d", cfg.Planner.WeeksAhead)
	}

	if cfg.OptOut.ConfirmWindow <= 0 {
		return fmt.Errorf("optout.confirm_window must be positive")
	}

	for name, job := range map[string]JobConfig{"inviter": cfg.Schedule.Inviter, "planner": cfg.Schedule.Planner} {
		if job.InitialDelay < 0 {
			return fmt.Errorf("schedule.%s.initial_delay must not be negative", name)
		}
		if job.Period <= 0 {
			return fmt.Errorf("schedule.%s.period must be positive", name)
		}
	}

	if cfg.HTTPEnabled() && cfg.HTTP.ListenAddr == "" {
		return fmt.Errorf("http.listen_addr is required when http is enabled")
	}
	ba := cfg.HTTP.BasicAuth
	if (ba.Username == "") != (ba.PasswordHash == "") {
		return fmt.Errorf("http.basic_auth requires both username and password_hash")
	}
	if ba.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(ba.PasswordHash)); err != nil {
			return fmt.Errorf("http.basic_auth.password_hash is not a bcrypt hash: %w", err)
		}
	}

	return nil
}
