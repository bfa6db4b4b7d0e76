package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxMemory       int64         `env:"FORM_MAX_MEMORY" envDefault:"33554432"`

	// Users are seeded as username:password pairs.
	Users    []string `env:"LOGIN_USERS" envSeparator:"," envDefault:"admin:admin"`
	HomePath string   `env:"LOGIN_HOME_PATH" envDefault:"/home"`
}

// LoadConfig loads the given .env files, ignoring a missing default one,
// and parses the environment into a Config.
func LoadConfig(files ...string) (Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("loading env files: %w", err)
		}
	} else {
		// The default .env is optional.
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
