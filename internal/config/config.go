package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Providers   ProvidersConfig `mapstructure:"providers"`
	Rotation    RotationConfig  `mapstructure:"rotation"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Security    SecurityConfig  `mapstructure:"security"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ProvidersConfig struct {
	Yahoo YahooConfig `mapstructure:"yahoo"`
	FRED  FREDConfig  `mapstructure:"fred"`
}

// YahooConfig configures the market-data client. Timeout is in seconds.
type YahooConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Timeout     int    `mapstructure:"timeout"`
	Concurrency int    `mapstructure:"concurrency"`
	MaxRetries  int    `mapstructure:"max_retries"`
}

// FREDConfig configures the macro-data client. Timeout is in seconds.
type FREDConfig struct {
	BaseURL string         `mapstructure:"base_url"`
	APIKey  string         `mapstructure:"api_key" json:"-" yaml:"-"`
	Timeout int            `mapstructure:"timeout"`
	Series  []SeriesConfig `mapstructure:"series"`
}

// SeriesConfig names one macro indicator to correlate against.
type SeriesConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type RotationConfig struct {
	LookbackPeriods  int    `mapstructure:"lookback_periods"`
	MinOverlapMonths int    `mapstructure:"min_overlap_months"`
	HistoryYears     int    `mapstructure:"history_years"`
	CacheTTL         string `mapstructure:"cache_ttl"`
	DefaultSectors   int    `mapstructure:"default_sectors"`
	TrendPeriod      int    `mapstructure:"trend_period"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// GetTimeout returns the client timeout, defaulting to 30 seconds.
func (c YahooConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// GetTimeout returns the client timeout, defaulting to 30 seconds.
func (c FREDConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// GetCacheTTL parses CacheTTL. Load has already validated it.
func (c RotationConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Enabled reports whether digests can be sent.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"providers.fred.api_key": "FRED_API_KEY",
		"telegram.bot_token":     "TELEGRAM_BOT_TOKEN",
		"telegram.chat_id":       "TELEGRAM_CHAT_ID",
		"security.jwt_secret":    "JWT_SECRET",
		"database.database_url":  "DATABASE_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values Load cannot express as defaults.
func (c *Config) Validate() error {
	if c.Rotation.LookbackPeriods < 1 {
		return utils.NewFieldError("rotation.lookback_periods", "must be at least 1, got %d", c.Rotation.LookbackPeriods)
	}
	if c.Rotation.MinOverlapMonths < 3 {
		return utils.NewFieldError("rotation.min_overlap_months", "must be at least 3, got %d", c.Rotation.MinOverlapMonths)
	}
	if c.Rotation.HistoryYears < 1 {
		return utils.NewFieldError("rotation.history_years", "must be at least 1, got %d", c.Rotation.HistoryYears)
	}
	if _, err := time.ParseDuration(c.Rotation.CacheTTL); err != nil {
		return utils.NewFieldError("rotation.cache_ttl", "invalid duration: %v", err)
	}
	if c.Providers.Yahoo.Concurrency < 1 {
		return utils.NewFieldError("providers.yahoo.concurrency", "must be at least 1, got %d", c.Providers.Yahoo.Concurrency)
	}
	if c.Environment != "development" && c.Providers.FRED.APIKey == "" {
		return utils.NewValidationError("FRED_API_KEY environment variable is required in non-development environments")
	}

	seen := make(map[string]bool, len(c.Providers.FRED.Series))
	for _, s := range c.Providers.FRED.Series {
		if s.ID == "" || s.Name == "" {
			return utils.NewFieldError("providers.fred.series", "id and name are required")
		}
		if seen[s.Name] {
			return utils.NewFieldError("providers.fred.series", "duplicate series name %q", s.Name)
		}
		seen[s.Name] = true
	}

	for _, d := range []string{c.Database.ConnMaxLifetime, c.Database.ConnMaxIdleTime} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid database duration %q: %w", d, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", 1<<20)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sector_rotation")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Providers
	v.SetDefault("providers.yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("providers.yahoo.timeout", 30)
	v.SetDefault("providers.yahoo.concurrency", 8)
	v.SetDefault("providers.yahoo.max_retries", 2)
	v.SetDefault("providers.fred.base_url", "https://api.stlouisfed.org")
	v.SetDefault("providers.fred.api_key", "")
	v.SetDefault("providers.fred.timeout", 30)
	v.SetDefault("providers.fred.series", []map[string]string{
		{"id": "FEDFUNDS", "name": "Fed Funds Rate"},
		{"id": "CPIAUCSL", "name": "CPI"},
		{"id": "GDP", "name": "GDP"},
	})

	// Rotation
	v.SetDefault("rotation.lookback_periods", 12)
	v.SetDefault("rotation.min_overlap_months", 3)
	v.SetDefault("rotation.history_years", 10)
	v.SetDefault("rotation.cache_ttl", "24h")
	v.SetDefault("rotation.default_sectors", 5)
	v.SetDefault("rotation.trend_period", 3)

	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)

	// Security
	v.SetDefault("security.jwt_secret", "")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "sector-rotation")
	v.SetDefault("telemetry.service_version", "1.0.0")
}
