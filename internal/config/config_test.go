package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnik909-create/wechselmodell/calendar"
	"github.com/melnik909-create/wechselmodell/custody"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DATABASE_URL", "LOG_LEVEL", "ENVIRONMENT", "LOCALE", "TIMEZONE",
		"CACHE_PROFILE", "CACHE_ENABLED", "CACHE_TTL", "CACHE_MAX_ENTRIES", "CRON_SPEC_HANDOVER", "AUTH_TOKENS", "SHUTDOWN_TIMEOUT",
		"PARENT_A_NAME", "PARENT_B_NAME", "WEBHOOK_URL", "WEBHOOK_TOKEN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "de", cfg.Locale)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, "default", cfg.CacheProfile)
	assert.Zero(t, cfg.CacheTTL)
	assert.Zero(t, cfg.CacheMaxEntries)
	assert.Equal(t, "0 18 * * *", cfg.CronSpecHandovers)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.Sessions)
	assert.Equal(t, "Elternteil A", cfg.ParentNames()[custody.ParentA])
	assert.Empty(t, cfg.WebhookURL)
}

func TestLoad_Overrides(t *testing.T) {
	family := uuid.New()
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("LOCALE", "en")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CACHE_MAX_ENTRIES", "10")
	t.Setenv("WEBHOOK_URL", "https://push.example.com/hook")
	t.Setenv("AUTH_TOKENS", "abc:"+family.String()+":parent_a:Anna, def:"+family.String()+":parent_b")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.CacheMaxEntries)
	assert.Equal(t, "https://push.example.com/hook", cfg.WebhookURL)
	require.Len(t, cfg.Sessions, 2)
	assert.Equal(t, Session{Token: "abc", FamilyID: family, Parent: custody.ParentA, Name: "Anna"}, cfg.Sessions[0])
	assert.Equal(t, "parent_b", cfg.Sessions[1].Name)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		description string
		key, value  string
	}{
		{"unknown locale", "LOCALE", "fr"},
		{"unknown timezone", "TIMEZONE", "Mars/Olympus"},
		{"bad cache flag", "CACHE_ENABLED", "sometimes"},
		{"unknown cache profile", "CACHE_PROFILE", "huge"},
		{"bad ttl", "CACHE_TTL", "forever"},
		{"negative ttl", "CACHE_TTL", "-1m"},
		{"zero entries", "CACHE_MAX_ENTRIES", "0"},
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
		{"bad tokens", "AUTH_TOKENS", "only-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseSessions(t *testing.T) {
	family := uuid.NewString()

	tests := []struct {
		description string
		raw         string
		want        int
		wantErr     bool
	}{
		{description: "empty", raw: "", want: 0},
		{description: "trailing comma", raw: "t:" + family + ":parent_a,", want: 1},
		{description: "bad family", raw: "t:nope:parent_a", wantErr: true},
		{description: "bad parent", raw: "t:" + family + ":parent_c", wantErr: true},
		{description: "empty token", raw: ":" + family + ":parent_a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			sessions, err := ParseSessions(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, sessions, tt.want)
		})
	}
}

func TestAppConfig_ServiceConfig(t *testing.T) {
	tests := []struct {
		description string
		cfg         AppConfig
		expected    calendar.ServiceConfig
	}{
		{
			description: "default profile",
			cfg:         AppConfig{CacheProfile: "default", CacheEnabled: true, Location: time.UTC},
			expected:    withLocation(calendar.DefaultServiceConfig),
		},
		{
			description: "low memory profile",
			cfg:         AppConfig{CacheProfile: "low_memory", CacheEnabled: true, Location: time.UTC},
			expected:    withLocation(calendar.LowMemoryConfig),
		},
		{
			description: "overrides win over the profile",
			cfg: AppConfig{
				CacheProfile: "low_memory", CacheEnabled: true, Location: time.UTC,
				CacheTTL: time.Hour, CacheMaxEntries: 50,
			},
			expected: func() calendar.ServiceConfig {
				sc := withLocation(calendar.LowMemoryConfig)
				sc.CacheConfig.TTL = time.Hour
				sc.CacheConfig.MaxEntries = 50
				return sc
			}(),
		},
		{
			description: "cache flag disables any profile",
			cfg:         AppConfig{CacheProfile: "default", CacheEnabled: false, Location: time.UTC},
			expected: func() calendar.ServiceConfig {
				sc := withLocation(calendar.DefaultServiceConfig)
				sc.CacheEnabled = false
				return sc
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			sc, err := tt.cfg.ServiceConfig()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sc)
		})
	}

	_, err := (&AppConfig{CacheProfile: "huge"}).ServiceConfig()
	assert.Error(t, err)
}

func withLocation(sc calendar.ServiceConfig) calendar.ServiceConfig {
	sc.Location = time.UTC
	return sc
}
