package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	// DatabaseURL selects the driver by scheme: postgres://, mysql:// or sqlite://.
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	StoreRetryDelay time.Duration `mapstructure:"STORE_RETRY_DELAY"`

	// AdminID is the Matrix user allowed to use the admin commands.
	AdminID string `mapstructure:"ADMIN_ID"`

	MatrixHomeserver  string `mapstructure:"MATRIX_HOMESERVER"`
	MatrixUserID      string `mapstructure:"MATRIX_USER_ID"`
	MatrixAccessToken string `mapstructure:"MATRIX_ACCESS_TOKEN"`

	// Gift advisor backend: "openai" (any OpenAI-compatible endpoint) or "gemini".
	LLMProvider  string `mapstructure:"LLM_PROVIDER"`
	LLMAPIKey    string `mapstructure:"LLM_API_KEY"`
	LLMBaseURL   string `mapstructure:"LLM_BASE_URL"`
	LLMModel     string `mapstructure:"LLM_MODEL"`
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	Timezone         string `mapstructure:"TIMEZONE"`
	ReminderHour     int    `mapstructure:"REMINDER_HOUR"`
	GiftDailyLimit   int    `mapstructure:"GIFT_DAILY_LIMIT"`
	MaxEventsPerUser int    `mapstructure:"MAX_EVENTS_PER_USER"`

	// Redis is optional; when RedisAddr is empty the notification cache lives in memory.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	HTTPAddr           string  `mapstructure:"HTTP_ADDR"`
	AdminAPIToken      string  `mapstructure:"ADMIN_API_TOKEN"`
	BroadcastPerSecond float64 `mapstructure:"BROADCAST_PER_SECOND"`

	SendGridAPIKey    string `mapstructure:"SENDGRID_API_KEY"`
	SendGridFromEmail string `mapstructure:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `mapstructure:"SENDGRID_FROM_NAME"`
	AdminEmail        string `mapstructure:"ADMIN_EMAIL"`
}

var defaults = map[string]interface{}{
	"ENV":                  "development",
	"LOG_LEVEL":            "info",
	"LOG_FILE":             "",
	"DATABASE_URL":         "sqlite://datekeeper.db",
	"STORE_RETRY_DELAY":    "5s",
	"ADMIN_ID":             "",
	"MATRIX_HOMESERVER":    "",
	"MATRIX_USER_ID":       "",
	"MATRIX_ACCESS_TOKEN":  "",
	"LLM_PROVIDER":         "openai",
	"LLM_API_KEY":          "",
	"LLM_BASE_URL":         "https://openrouter.ai/api/v1",
	"LLM_MODEL":            "deepseek/deepseek-chat-v3-0324:free",
	"GEMINI_API_KEY":       "",
	"TIMEZONE":             "Local",
	"REMINDER_HOUR":        20,
	"GIFT_DAILY_LIMIT":     5,
	"MAX_EVENTS_PER_USER":  10,
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"HTTP_ADDR":            ":8080",
	"ADMIN_API_TOKEN":      "",
	"BROADCAST_PER_SECOND": 10.0,
	"SENDGRID_API_KEY":     "",
	"SENDGRID_FROM_EMAIL":  "",
	"SENDGRID_FROM_NAME":   "datekeeper",
	"ADMIN_EMAIL":          "",
}

// Load reads .env (if present), an optional config.yaml and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	// Every key needs a default, otherwise Unmarshal ignores its env var.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail much later at runtime.
func (c *Config) Validate() error {
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be within 0-23, got %d", c.ReminderHour)
	}
	if c.GiftDailyLimit <= 0 {
		return fmt.Errorf("GIFT_DAILY_LIMIT must be positive, got %d", c.GiftDailyLimit)
	}
	if c.MaxEventsPerUser <= 0 {
		return fmt.Errorf("MAX_EVENTS_PER_USER must be positive, got %d", c.MaxEventsPerUser)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", c.LLMProvider)
	}
	return nil
}

// Location resolves TIMEZONE; "Local" means the process time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MatrixEnabled reports whether enough Matrix credentials are set to run the chat frontend.
func (c *Config) MatrixEnabled() bool {
	return c.MatrixHomeserver != "" && c.MatrixUserID != "" && c.MatrixAccessToken != ""
}
