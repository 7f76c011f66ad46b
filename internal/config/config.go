package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	SessionSecret      string
	DatabaseURL        string
	SQLitePath         string
	AIProvider         string
	AIKey              string
	AIModel            string
	AIBaseURL          string
	SentExemplarFetch  int
	InboxFetch         int
	InboxPollInterval  time.Duration
	LogLevel           string
	Env                string
}

var defaults = map[string]interface{}{
	"PORT":                 "8080",
	"BASE_URL":             "http://localhost:8080",
	"GOOGLE_CLIENT_ID":     "",
	"GOOGLE_CLIENT_SECRET": "",
	"SESSION_SECRET":       "",
	"DATABASE_URL":         "",
	"SQLITE_PATH":          "",
	"AI_PROVIDER":          "openai",
	"AI_API_KEY":           "",
	"AI_MODEL":             "",
	"AI_BASE_URL":          "",
	"SENT_EXEMPLAR_FETCH":  10,
	"INBOX_FETCH":          20,
	"INBOX_POLL_SECONDS":   30,
	"LOG_LEVEL":            "debug",
	"ENV":                  "development",
}

// NewViper returns a viper instance with defaults registered and the
// environment bound. A config file named draftly.{yaml,json,toml} in the
// working directory is read when present.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("draftly")
	v.AddConfigPath(".")
	return v
}

func LoadConfig() (*Config, error) {
	return Load(NewViper())
}

// Load reads .env and the optional config file into v, then builds the Config.
func Load(v *viper.Viper) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v), nil
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:               v.GetString("PORT"),
		BaseURL:            v.GetString("BASE_URL"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		SessionSecret:      v.GetString("SESSION_SECRET"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		SQLitePath:         v.GetString("SQLITE_PATH"),
		AIProvider:         strings.ToLower(v.GetString("AI_PROVIDER")),
		AIKey:              v.GetString("AI_API_KEY"),
		AIModel:            v.GetString("AI_MODEL"),
		AIBaseURL:          v.GetString("AI_BASE_URL"),
		SentExemplarFetch:  v.GetInt("SENT_EXEMPLAR_FETCH"),
		InboxFetch:         v.GetInt("INBOX_FETCH"),
		InboxPollInterval:  time.Duration(v.GetInt("INBOX_POLL_SECONDS")) * time.Second,
		LogLevel:           v.GetString("LOG_LEVEL"),
		Env:                v.GetString("ENV"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// StorageDriver reports which repository backend the config selects.
func (c *Config) StorageDriver() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

func (c *Config) Validate() error {
	if c.GoogleClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.AIKey == "" {
		return fmt.Errorf("AI_API_KEY is required")
	}
	switch c.AIProvider {
	case "openai", "deepseek", "gemini":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}
	if c.SentExemplarFetch < 1 {
		return fmt.Errorf("SENT_EXEMPLAR_FETCH must be positive")
	}
	return nil
}
