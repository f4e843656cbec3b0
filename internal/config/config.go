package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// EnvProduction is the APP_ENV value that forces the production endpoints.
	EnvProduction = "production"

	ProductionAPIURL = "https://api.pods.network"
	ProductionWSURL  = "wss://api.pods.network/ws"
	DefaultAPIURL    = "http://localhost:5000"
	DefaultWSURL     = "ws://localhost:5000/ws"

	DefaultRequestTimeout    = 30 * time.Second
	DefaultRealtimeRetries   = 5
	DefaultRealtimeMinDelay  = time.Second
	DefaultRealtimeMaxDelay  = 5 * time.Second
	defaultTokenDirName      = ".podclient"
	defaultRealtimeDialLimit = 10 * time.Second
)

// Config holds all configuration for the client.
type Config struct {
	Env            string
	APIBaseURL     string        `validate:"required,url"`
	WSURL          string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	TokenDir       string        `validate:"required"`
	Realtime       Realtime
}

// Realtime holds the reconnection policy of the realtime channel.
type Realtime struct {
	MaxRetries  int           `validate:"gte=1"`
	MinDelay    time.Duration `validate:"gt=0"`
	MaxDelay    time.Duration `validate:"gtefield=MinDelay"`
	DialTimeout time.Duration `validate:"gt=0"`
}

// IsProduction reports whether APP_ENV selected the production endpoints.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	cfg := &Config{
		Env:            env,
		APIBaseURL:     ResolveURL(env, os.Getenv("API_URL"), ProductionAPIURL, DefaultAPIURL),
		WSURL:          ResolveURL(env, os.Getenv("WS_URL"), ProductionWSURL, DefaultWSURL),
		RequestTimeout: DefaultRequestTimeout,
		TokenDir:       os.Getenv("TOKEN_DIR"),
		Realtime: Realtime{
			MaxRetries:  DefaultRealtimeRetries,
			MinDelay:    DefaultRealtimeMinDelay,
			MaxDelay:    DefaultRealtimeMaxDelay,
			DialTimeout: defaultRealtimeDialLimit,
		},
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.Realtime.MinDelay, err = durationEnv("REALTIME_MIN_DELAY", cfg.Realtime.MinDelay); err != nil {
		return nil, err
	}
	if cfg.Realtime.MaxDelay, err = durationEnv("REALTIME_MAX_DELAY", cfg.Realtime.MaxDelay); err != nil {
		return nil, err
	}
	if v := os.Getenv("REALTIME_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REALTIME_MAX_RETRIES %q: %w", v, err)
		}
		cfg.Realtime.MaxRetries = n
	}

	if cfg.TokenDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.TokenDir = filepath.Join(home, defaultTokenDirName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ResolveURL picks an endpoint: the production URL when env is production,
// else the override when set, else the local default.
func ResolveURL(env, override, production, local string) string {
	if env == EnvProduction {
		return production
	}
	if o := strings.TrimSpace(override); o != "" {
		return strings.TrimSuffix(o, "/")
	}
	return local
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
