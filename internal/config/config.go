package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration: process-level settings come from
// GCB_* environment variables, the calendar list and display rules from a
// YAML file so multi-calendar setups stay editable in one place.
type Config struct {
	ConfigPath         string
	CredentialsPath    string
	TokenPath          string
	TokenPassword      string
	BindAddress        string
	UnixSocketPath     string
	RequireBearerToken bool
	BearerToken        string
	LogLevel           string
	EnableTray         bool

	Timezone  string           `yaml:"timezone"`
	Display   DisplayConfig    `yaml:"display"`
	Calendars []CalendarConfig `yaml:"calendars"`
}

// DisplayConfig mirrors the host display settings the pipeline honors.
// Per-calendar entries override the zero-valued fields.
type DisplayConfig struct {
	MaximumEntries      int      `yaml:"maximum_entries"`
	MaximumNumberOfDays int      `yaml:"maximum_number_of_days"`
	LimitDays           int      `yaml:"limit_days"`
	HidePrivate         bool     `yaml:"hide_private"`
	HideOngoing         bool     `yaml:"hide_ongoing"`
	HideDuplicates      *bool    `yaml:"hide_duplicates"`
	SliceMultiDayEvents bool     `yaml:"slice_multi_day_events"`
	ExcludedEvents      []string `yaml:"excluded_events"`
}

// CalendarConfig describes one subscribed calendar.
type CalendarConfig struct {
	ID                  string   `yaml:"id"`
	CalendarID          string   `yaml:"calendar_id"`
	Name                string   `yaml:"name"`
	FetchInterval       string   `yaml:"fetch_interval"`
	MaximumEntries      int64    `yaml:"maximum_entries"`
	MaximumNumberOfDays int      `yaml:"maximum_number_of_days"`
	PastDaysCount       int      `yaml:"past_days_count"`
	ExcludedEvents      []string `yaml:"excluded_events"`
	BroadcastPastEvents bool     `yaml:"broadcast_past_events"`
}

const defaultFetchInterval = 5 * time.Minute

func Load() (Config, error) {
	cfg := Config{
		ConfigPath:         getenvDefault("GCB_CONFIG", "config.yaml"),
		CredentialsPath:    getenvDefault("GCB_CREDENTIALS_FILE", "credentials.json"),
		TokenPath:          getenvDefault("GCB_TOKEN_FILE", "token.json"),
		TokenPassword:      strings.TrimSpace(os.Getenv("GCB_TOKEN_PASSWORD")),
		BindAddress:        getenvDefault("GCB_BIND_ADDRESS", "127.0.0.1:9843"),
		UnixSocketPath:     strings.TrimSpace(os.Getenv("GCB_UNIX_SOCKET")),
		RequireBearerToken: getenvBool("GCB_REQUIRE_TOKEN", false),
		BearerToken:        strings.TrimSpace(os.Getenv("GCB_BEARER_TOKEN")),
		LogLevel:           getenvDefault("GCB_LOG_LEVEL", "info"),
		EnableTray:         getenvBool("GCB_ENABLE_TRAY", false),
	}

	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", cfg.ConfigPath, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", cfg.ConfigPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BindAddress == "" && c.UnixSocketPath == "" {
		return errors.New("either bind address or unix socket path must be configured")
	}
	if c.RequireBearerToken && c.BearerToken == "" {
		return errors.New("GCB_BEARER_TOKEN is required when token auth is enabled")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.CredentialsPath == "" {
		return errors.New("credentials file path is required")
	}
	if c.TokenPath == "" {
		return errors.New("token file path is required")
	}
	if len(c.Calendars) == 0 {
		return errors.New("at least one calendar must be configured")
	}
	for i, cal := range c.Calendars {
		if cal.CalendarID == "" {
			return fmt.Errorf("calendar %d: calendar_id is required", i)
		}
		if cal.FetchInterval != "" {
			d, err := time.ParseDuration(cal.FetchInterval)
			if err != nil {
				return fmt.Errorf("calendar %d: invalid fetch_interval: %w", i, err)
			}
			if d <= 0 {
				return fmt.Errorf("calendar %d: fetch_interval must be > 0", i)
			}
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

// Location resolves the configured display timezone, defaulting to the
// process-local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// HideDuplicatesEnabled defaults to true when the YAML leaves the flag
// unset.
func (c Config) HideDuplicatesEnabled() bool {
	if c.Display.HideDuplicates == nil {
		return true
	}
	return *c.Display.HideDuplicates
}

// Subscriptions builds the read-only subscription records, one per
// configured calendar, filling per-calendar gaps from the display
// defaults. Calendars without an explicit id get a generated one.
func (c Config) Subscriptions() []domain.CalendarSubscription {
	maxEntries := c.Display.MaximumEntries
	if maxEntries <= 0 {
		maxEntries = 10
	}
	maxDays := c.Display.MaximumNumberOfDays
	if maxDays <= 0 {
		maxDays = 365
	}

	subs := make([]domain.CalendarSubscription, 0, len(c.Calendars))
	for _, cal := range c.Calendars {
		sub := domain.CalendarSubscription{
			ID:                  cal.ID,
			CalendarID:          cal.CalendarID,
			Name:                cal.Name,
			FetchInterval:       defaultFetchInterval,
			MaximumEntries:      int64(maxEntries),
			MaximumNumberOfDays: maxDays,
			PastDaysCount:       cal.PastDaysCount,
			ExcludedEvents:      cal.ExcludedEvents,
			BroadcastPastEvents: cal.BroadcastPastEvents,
		}
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		if cal.FetchInterval != "" {
			if d, err := time.ParseDuration(cal.FetchInterval); err == nil && d > 0 {
				sub.FetchInterval = d
			}
		}
		if cal.MaximumEntries > 0 {
			sub.MaximumEntries = cal.MaximumEntries
		}
		if cal.MaximumNumberOfDays > 0 {
			sub.MaximumNumberOfDays = cal.MaximumNumberOfDays
		}
		subs = append(subs, sub)
	}
	return subs
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
