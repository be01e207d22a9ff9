package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"questbot/internal/ai"
	"questbot/internal/calendar"
	"questbot/internal/reminder"
	"questbot/internal/repository"
	"questbot/internal/scheduler"
	"questbot/internal/telegram"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`
	Telegram telegram.Config   `yaml:"telegram"`
	OpenAI   ai.Config         `yaml:"openai"`
	Calendar CalendarConfig    `yaml:"calendar"`
	Reminder ReminderConfig    `yaml:"reminder"`

	SessionTTL  time.Duration `yaml:"sessionTTL"`
	EventBuffer int           `yaml:"eventBuffer"`

	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	// DebugAuth skips init data signature checks. Local development only.
	DebugAuth bool `yaml:"debugAuth"`
}

type CalendarConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
	Enabled bool          `yaml:"enabled"`
}

type ReminderConfig struct {
	Interval          time.Duration `yaml:"interval"`
	Concurrency       int           `yaml:"concurrency"`
	DeadlineLookahead time.Duration `yaml:"deadlineLookahead"`
}

func (c ReminderConfig) Engine() reminder.Config {
	return reminder.Config{
		Concurrency:       c.Concurrency,
		DeadlineLookahead: c.DeadlineLookahead,
	}
}

func setDefaults() {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "questbot")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.debugAuth", false)

	viper.SetDefault("telegram.botToken", "")
	viper.SetDefault("telegram.debug", false)
	viper.SetDefault("telegram.adminIds", []int64{})
	viper.SetDefault("telegram.workers", 16)

	viper.SetDefault("openai.apiKey", "")
	viper.SetDefault("openai.apiURL", ai.DefaultAPIURL)
	viper.SetDefault("openai.model", ai.DefaultModel)
	viper.SetDefault("openai.timeout", ai.DefaultTimeout)

	viper.SetDefault("calendar.baseURL", calendar.DefaultHebcalURL)
	viper.SetDefault("calendar.timeout", calendar.DefaultHebcalTimeout)
	viper.SetDefault("calendar.enabled", true)

	viper.SetDefault("reminder.interval", scheduler.DefaultInterval)
	viper.SetDefault("reminder.concurrency", reminder.DefaultConcurrency)
	viper.SetDefault("reminder.deadlineLookahead", reminder.DefaultDeadlineLookahead)

	viper.SetDefault("sessionTTL", telegram.DefaultSessionTTL)
	viper.SetDefault("eventBuffer", 256)

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFile", "")
}

// LoadConfig reads config.yaml, then .env, then APP_* environment overrides.
// Neither file is required.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		return nil, errors.New("telegram.botToken is required")
	}

	return &cfg, nil
}
