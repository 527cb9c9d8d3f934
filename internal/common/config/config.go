package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Patterns PatternsConfig
	API      APIConfig
	Import   ImportConfig
}

type DatabaseConfig struct {
	Driver   string `validate:"oneof=sqlite postgres"`
	Path     string `validate:"required_if=Driver sqlite"`
	Host     string `validate:"required_if=Driver postgres"`
	Port     string `validate:"required_if=Driver postgres"`
	User     string
	Password string
	DBName   string `validate:"required_if=Driver postgres"`
	SSLMode  string
}

type LoggingConfig struct {
	Level      string `validate:"omitempty,oneof=trace debug info warn warning error fatal disabled off"`
	Console    bool
	File       bool
	FilePath   string `validate:"required_if=File true"`
	DiscordURL string `validate:"omitempty,url"`
}

// PatternsConfig drives the identification pass.
type PatternsConfig struct {
	Strategy         string `validate:"oneof=stop_ids stop_names route_id route_short_name route_long_name"`
	Kind             string `validate:"oneof=service_route course"`
	DefaultDirection string `validate:"oneof=outbound inbound 0 1"`
	StrictJoins      bool
	KeepRuns         int `validate:"gte=0"`
}

type APIConfig struct {
	Addr           string `validate:"required"`
	DataDir        string `validate:"required"`
	AllowedOrigins []string
	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gt=0"`
}

type ImportConfig struct {
	BatchSize   int `validate:"gt=0,lte=5000"`
	DownloadDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "gtfs.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "diamant"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Console:    getBoolEnv("LOG_CONSOLE", true),
			File:       getBoolEnv("LOG_TO_FILE", false),
			FilePath:   getEnv("LOG_FILE", "diamant.log"),
			DiscordURL: getEnv("LOG_DISCORD_URL", ""),
		},
		Patterns: PatternsConfig{
			Strategy:         getEnv("PATTERN_STRATEGY", "stop_ids"),
			Kind:             getEnv("PATTERN_KIND", "service_route"),
			DefaultDirection: getEnv("PATTERN_DEFAULT_DIRECTION", "outbound"),
			StrictJoins:      getBoolEnv("PATTERN_STRICT_JOINS", false),
			KeepRuns:         getIntEnv("PATTERN_KEEP_RUNS", 20),
		},
		API: APIConfig{
			Addr:           getEnv("API_ADDR", ":8000"),
			DataDir:        getEnv("API_DATA_DIR", "db"),
			AllowedOrigins: getListEnv("API_ALLOWED_ORIGINS", []string{"*"}),
			ReadTimeout:    getDurationEnv("API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("API_WRITE_TIMEOUT", 60*time.Second),
		},
		Import: ImportConfig{
			BatchSize:   getIntEnv("IMPORT_BATCH_SIZE", 500),
			DownloadDir: getEnv("IMPORT_DOWNLOAD_DIR", os.TempDir()),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section against its struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
