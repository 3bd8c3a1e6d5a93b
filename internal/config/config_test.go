package config

import (
	"testing"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Environment: "development",
		Providers: ProvidersConfig{
			Yahoo: YahooConfig{Concurrency: 4},
			FRED: FREDConfig{Series: []SeriesConfig{
				{ID: "FEDFUNDS", Name: "Fed Funds Rate"},
				{ID: "CPIAUCSL", Name: "CPI"},
			}},
		},
		Rotation: RotationConfig{
			LookbackPeriods:  12,
			MinOverlapMonths: 3,
			HistoryYears:     10,
			CacheTTL:         "24h",
		},
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "sector_rotation", config.Database.DBName)
	assert.Equal(t, 6379, config.Redis.Port)
	assert.Equal(t, "https://query1.finance.yahoo.com", config.Providers.Yahoo.BaseURL)
	assert.Equal(t, 8, config.Providers.Yahoo.Concurrency)
	assert.Equal(t, 12, config.Rotation.LookbackPeriods)
	assert.Equal(t, 3, config.Rotation.MinOverlapMonths)
	assert.Equal(t, 10, config.Rotation.HistoryYears)
	assert.Equal(t, 24*time.Hour, config.Rotation.GetCacheTTL())
	assert.Equal(t, []SeriesConfig{
		{ID: "FEDFUNDS", Name: "Fed Funds Rate"},
		{ID: "CPIAUCSL", Name: "CPI"},
		{ID: "GDP", Name: "GDP"},
	}, config.Providers.FRED.Series)
	assert.False(t, config.Telemetry.Enabled)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("PROVIDERS_YAHOO_CONCURRENCY", "3")
	t.Setenv("ROTATION_LOOKBACK_PERIODS", "6")
	t.Setenv("FRED_API_KEY", "fred-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("JWT_SECRET", "secret")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, 2, config.Redis.DB)
	assert.Equal(t, 3, config.Providers.Yahoo.Concurrency)
	assert.Equal(t, 6, config.Rotation.LookbackPeriods)
	assert.Equal(t, "fred-key", config.Providers.FRED.APIKey)
	assert.Equal(t, "bot-token", config.Telegram.BotToken)
	assert.Equal(t, int64(-100123), config.Telegram.ChatID)
	assert.True(t, config.Telegram.Enabled())
	assert.Equal(t, "secret", config.Security.JWTSecret)
}

func TestLoad_RequiresFREDKeyOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("FRED_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.Contains(t, err.Error(), "FRED_API_KEY")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero lookback", func(c *Config) { c.Rotation.LookbackPeriods = 0 }, "rotation.lookback_periods"},
		{"overlap below three", func(c *Config) { c.Rotation.MinOverlapMonths = 2 }, "rotation.min_overlap_months"},
		{"no history", func(c *Config) { c.Rotation.HistoryYears = 0 }, "rotation.history_years"},
		{"bad ttl", func(c *Config) { c.Rotation.CacheTTL = "tomorrow" }, "rotation.cache_ttl"},
		{"no concurrency", func(c *Config) { c.Providers.Yahoo.Concurrency = 0 }, "providers.yahoo.concurrency"},
		{"duplicate series", func(c *Config) {
			c.Providers.FRED.Series = append(c.Providers.FRED.Series, SeriesConfig{ID: "CPILFESL", Name: "CPI"})
		}, "duplicate series name"},
		{"unnamed series", func(c *Config) {
			c.Providers.FRED.Series = []SeriesConfig{{ID: "GDP"}}
		}, "id and name are required"},
		{"bad db duration", func(c *Config) { c.Database.ConnMaxLifetime = "forever" }, "invalid database duration"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	assert.Equal(t, 30*time.Second, YahooConfig{}.GetTimeout())
	assert.Equal(t, 5*time.Second, YahooConfig{Timeout: 5}.GetTimeout())
	assert.Equal(t, 30*time.Second, FREDConfig{}.GetTimeout())
	assert.Equal(t, 24*time.Hour, RotationConfig{CacheTTL: "bad"}.GetCacheTTL())
	assert.Equal(t, time.Hour, RotationConfig{CacheTTL: "1h"}.GetCacheTTL())
	assert.False(t, TelegramConfig{BotToken: "x"}.Enabled())
}
