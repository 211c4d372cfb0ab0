// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ghost-vault/internal/vitality"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`
	DBURL            string        `mapstructure:"DB_URL"`
	MigrationsURL    string        `mapstructure:"MIGRATIONS_URL"`
	GithubToken      string        `mapstructure:"GITHUB_TOKEN"`
	SyncInterval     time.Duration `mapstructure:"SYNC_INTERVAL"`
	NarrativeTimeout time.Duration `mapstructure:"NARRATIVE_TIMEOUT"`
	ActiveThreshold  int           `mapstructure:"ACTIVE_THRESHOLD"`

	GeminiAPIKey  string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel   string `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL string `mapstructure:"GEMINI_BASE_URL"`

	EmailJSURL        string `mapstructure:"EMAILJS_URL"`
	EmailJSServiceID  string `mapstructure:"EMAILJS_SERVICE_ID"`
	EmailJSTemplateID string `mapstructure:"EMAILJS_TEMPLATE_ID"`
	EmailJSPublicKey  string `mapstructure:"EMAILJS_PUBLIC_KEY"`

	Weights vitality.Weights `mapstructure:",squash"`
}

// NarrativeEnabled reports whether a Gemini key was configured.
func (c *Config) NarrativeEnabled() bool {
	return c.GeminiAPIKey != ""
}

// EmailEnabled reports whether EmailJS credentials were configured.
func (c *Config) EmailEnabled() bool {
	return c.EmailJSServiceID != "" && c.EmailJSTemplateID != "" && c.EmailJSPublicKey != ""
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MIGRATIONS_URL", "file://migrations")
	v.SetDefault("SYNC_INTERVAL", "6h")
	v.SetDefault("NARRATIVE_TIMEOUT", "8s")
	v.SetDefault("ACTIVE_THRESHOLD", vitality.DefaultActiveThreshold)
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("EMAILJS_URL", "https://api.emailjs.com/api/v1.0/email/send")
	v.SetDefault("SCORE_WEIGHT_POPULARITY", vitality.DefaultWeights.Popularity)
	v.SetDefault("SCORE_WEIGHT_ACTIVITY", vitality.DefaultWeights.Activity)
	v.SetDefault("SCORE_WEIGHT_RECENCY", vitality.DefaultWeights.Recency)

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.SyncInterval <= 0 {
		return nil, errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if cfg.NarrativeTimeout <= 0 {
		return nil, errors.New("NARRATIVE_TIMEOUT must be a positive duration")
	}
	if cfg.ActiveThreshold < 0 || cfg.ActiveThreshold > 100 {
		return nil, errors.New("ACTIVE_THRESHOLD must be between 0 and 100")
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SCORE_WEIGHT_* configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnvs registers keys without defaults so Unmarshal sees them.
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"DB_URL",
		"GITHUB_TOKEN",
		"GEMINI_API_KEY",
		"EMAILJS_SERVICE_ID",
		"EMAILJS_TEMPLATE_ID",
		"EMAILJS_PUBLIC_KEY",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
