// Package config provides configuration settings for the signing gateway.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends for the template registry.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds the configuration settings for the application.
type Config struct {
	APIID  string `validate:"required"`
	APIKey string `validate:"required"`
	Host   string `validate:"required,url"`

	RateLimit        int           `validate:"gte=1"`
	RatePeriod       time.Duration `validate:"gt=0"`
	RequestTimeout   time.Duration `validate:"gt=0"`
	ServerPort       int           `validate:"gte=1,lte=65535"`
	DisableRateLimit bool

	StorageBackend  string `validate:"oneof=memory redis"`
	StorageCapacity int    `validate:"gte=0"`
	RedisAddr       string `validate:"required_if=StorageBackend redis"`
	RedisPassword   string
	RedisDB         int `validate:"gte=0,lte=15"`
}

// DefaultConfig returns the default configuration settings. Credentials are
// left empty and must come from the environment.
func DefaultConfig() *Config {
	return &Config{
		Host:             "https://hcti.io",
		RateLimit:        10,
		RatePeriod:       time.Second,
		RequestTimeout:   5 * time.Second,
		ServerPort:       3000,
		DisableRateLimit: false,
		StorageBackend:   StorageMemory,
		StorageCapacity:  10000,
		RedisAddr:        "localhost:6379",
	}
}

// Load reads envFile when it exists, then overlays HCTI_* environment
// variables on the defaults. Variables already set in the process win over
// the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	cfg.APIID = getEnv("HCTI_API_ID", cfg.APIID)
	cfg.APIKey = getEnv("HCTI_API_KEY", cfg.APIKey)
	cfg.Host = getEnv("HCTI_HOST", cfg.Host)
	cfg.StorageBackend = getEnv("HCTI_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.RedisAddr = getEnv("HCTI_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("HCTI_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.DisableRateLimit = getBoolEnv("HCTI_DISABLE_RATE_LIMIT", cfg.DisableRateLimit)

	var err error
	if cfg.ServerPort, err = getIntEnv("HCTI_PORT", cfg.ServerPort); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getIntEnv("HCTI_RATE_LIMIT", cfg.RateLimit); err != nil {
		return nil, err
	}
	if cfg.StorageCapacity, err = getIntEnv("HCTI_STORAGE_CAPACITY", cfg.StorageCapacity); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getIntEnv("HCTI_REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.RatePeriod, err = getDurationEnv("HCTI_RATE_PERIOD", cfg.RatePeriod); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDurationEnv("HCTI_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration before the server starts.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
