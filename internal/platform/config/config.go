package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	// LogFormat is "json" (default) or "console".
	LogFormat string
	Env       string
	HTTP      HTTPConfig
}

// IsProduction reports whether APP_ENV is "production" (case-insensitive).
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads the platform settings from the environment. A .env file in the
// working directory (or ENV_FILE) is applied first; variables already set in
// the process environment win.
func Load() (AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:   strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		Env:         strings.TrimSpace(os.Getenv("APP_ENV")),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "anime"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat != "console" {
		cfg.LogFormat = "json"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	return cfg, nil
}

func loadDotEnv() error {
	file := strings.TrimSpace(os.Getenv("ENV_FILE"))
	explicit := file != ""
	if !explicit {
		file = ".env"
	}
	err := godotenv.Load(file)
	if err == nil {
		return nil
	}
	// A missing default .env is normal outside local development.
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
