package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/melnik909-create/wechselmodell/calendar"
	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

// Session seeds the in-memory token table
type Session struct {
	Token    string
	FamilyID uuid.UUID
	Parent   custody.Parent
	Name     string
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	HTTPAddr          string
	DatabaseURL       string // empty selects in-memory storage
	LogLevel          string
	Environment       string
	Locale            string
	Location          *time.Location
	CacheProfile      string
	CacheEnabled      bool
	CacheTTL          time.Duration // zero keeps the profile's value
	CacheMaxEntries   int           // zero keeps the profile's value
	CronSpecHandovers string
	ParentAName       string
	ParentBName       string
	Sessions          []Session
	ShutdownTimeout   time.Duration
	WebhookURL        string // empty disables push reminders
	WebhookToken      string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		Environment:       strings.ToLower(getenv("ENVIRONMENT", "development")),
		Locale:            strings.ToLower(getenv("LOCALE", dateutil.DefaultLocale)),
		CacheProfile:      strings.ToLower(getenv("CACHE_PROFILE", calendar.ProfileDefault)),
		CronSpecHandovers: getenv("CRON_SPEC_HANDOVER", "0 18 * * *"),
		ParentAName:       getenv("PARENT_A_NAME", "Elternteil A"),
		ParentBName:       getenv("PARENT_B_NAME", "Elternteil B"),
		WebhookURL:        getenv("WEBHOOK_URL", ""),
		WebhookToken:      getenv("WEBHOOK_TOKEN", ""),
	}
	var err error

	if _, err = dateutil.NewFormatter(cfg.Locale); err != nil {
		return nil, fmt.Errorf("invalid LOCALE: %w", err)
	}

	cfg.Location, err = time.LoadLocation(getenv("TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.CacheEnabled, err = strconv.ParseBool(getenv("CACHE_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_ENABLED: %w", err)
	}

	if _, err = calendar.ConfigForProfile(cfg.CacheProfile); err != nil {
		return nil, fmt.Errorf("invalid CACHE_PROFILE: %w", err)
	}

	if raw := getenv("CACHE_TTL", ""); raw != "" {
		cfg.CacheTTL, err = time.ParseDuration(raw)
		if err != nil || cfg.CacheTTL <= 0 {
			return nil, fmt.Errorf("invalid CACHE_TTL %q", raw)
		}
	}

	if raw := getenv("CACHE_MAX_ENTRIES", ""); raw != "" {
		cfg.CacheMaxEntries, err = strconv.Atoi(raw)
		if err != nil || cfg.CacheMaxEntries <= 0 {
			return nil, fmt.Errorf("invalid CACHE_MAX_ENTRIES %q", raw)
		}
	}

	cfg.ShutdownTimeout, err = time.ParseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.Sessions, err = ParseSessions(os.Getenv("AUTH_TOKENS"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKENS: %w", err)
	}

	return cfg, nil
}

// ParseSessions parses a comma separated list of token:family-uuid:parent[:name] entries.
func ParseSessions(raw string) ([]Session, error) {
	var sessions []Session
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("entry %q needs token:family:parent", entry)
		}
		familyID, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("entry %q: invalid family id: %w", entry, err)
		}
		parent := custody.Parent(parts[2])
		if !parent.Valid() {
			return nil, fmt.Errorf("entry %q: invalid parent %q", entry, parts[2])
		}
		s := Session{Token: parts[0], FamilyID: familyID, Parent: parent, Name: string(parent)}
		if len(parts) == 4 && parts[3] != "" {
			s.Name = parts[3]
		}
		if s.Token == "" {
			return nil, fmt.Errorf("entry %q: empty token", entry)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// ParentNames returns the display names of both parents.
func (c *AppConfig) ParentNames() map[custody.Parent]string {
	return map[custody.Parent]string{
		custody.ParentA: c.ParentAName,
		custody.ParentB: c.ParentBName,
	}
}

// ServiceConfig builds the calendar service configuration from the cache
// profile and the individual overrides.
func (c *AppConfig) ServiceConfig() (calendar.ServiceConfig, error) {
	sc, err := calendar.ConfigForProfile(c.CacheProfile)
	if err != nil {
		return calendar.ServiceConfig{}, err
	}
	if !c.CacheEnabled {
		sc.CacheEnabled = false
	}
	if c.CacheTTL > 0 {
		sc.CacheConfig.TTL = c.CacheTTL
	}
	if c.CacheMaxEntries > 0 {
		sc.CacheConfig.MaxEntries = c.CacheMaxEntries
	}
	sc.Location = c.Location
	return sc, nil
}
