// Package config loads server settings from the environment, an optional
// .env file and an optional YAML file named by REPOFETCH_CONFIG.
//
// Precedence, lowest to highest: built-in defaults, YAML file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tilsley/repofetch/pkg/githost"
	"github.com/tilsley/repofetch/pkg/repofiles"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port        string
	RepoHost    string
	GitHub      githost.Options
	MaxInFlight int
	// Exclusions are added to the built-in exclusion set.
	Exclusions  []string
	RedisAddr   string
	CacheSize   int
	PostgresURL string
	OTelEnabled bool
	WarmupURL   string
}

// fileConfig is the shape of the REPOFETCH_CONFIG YAML file.
type fileConfig struct {
	RepoHost       string   `yaml:"repoHost"`
	MaxInFlight    int      `yaml:"maxInFlight"`
	MaxRetries     *int     `yaml:"maxRetries"`
	RequestTimeout string   `yaml:"requestTimeout"`
	Exclusions     []string `yaml:"exclusions"`
	CacheSize      int      `yaml:"cacheSize"`
}

const (
	defaultPort      = "5000"
	defaultCacheSize = 64
	defaultTimeout   = 30 * time.Second
)

// Load reads .env (if present), the YAML file named by REPOFETCH_CONFIG (if
// set) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        defaultPort,
		RepoHost:    repofiles.DefaultHost,
		MaxInFlight: repofiles.DefaultMaxInFlight,
		CacheSize:   defaultCacheSize,
		GitHub: githost.Options{
			MaxRetries: githost.DefaultMaxRetries,
			Timeout:    defaultTimeout,
		},
	}

	if path := os.Getenv("REPOFETCH_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.RepoHost != "" {
		c.RepoHost = fc.RepoHost
	}
	if fc.MaxInFlight != 0 {
		c.MaxInFlight = fc.MaxInFlight
	}
	if fc.MaxRetries != nil {
		c.GitHub.MaxRetries = *fc.MaxRetries
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("config file requestTimeout: %w", err)
		}
		c.GitHub.Timeout = d
	}
	if fc.CacheSize != 0 {
		c.CacheSize = fc.CacheSize
	}
	c.Exclusions = append(c.Exclusions, fc.Exclusions...)
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = envOr("PORT", c.Port)
	c.RepoHost = envOr("REPO_HOST", c.RepoHost)
	c.RedisAddr = os.Getenv("REDIS_ADDR")
	c.PostgresURL = os.Getenv("POSTGRES_URL")
	c.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"
	c.WarmupURL = strings.TrimSpace(os.Getenv("WARMUP_URL"))

	c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	c.GitHub.BaseURL = os.Getenv("GITHUB_API_URL")
	c.GitHub.PrivateKeyPath = os.Getenv("GITHUB_APP_PRIVATE_KEY_PATH")

	var err error
	if c.GitHub.AppID, err = envInt64("GITHUB_APP_ID", 0); err != nil {
		return err
	}
	if c.GitHub.InstallationID, err = envInt64("GITHUB_APP_INSTALLATION_ID", 0); err != nil {
		return err
	}
	if c.MaxInFlight, err = envInt("MAX_IN_FLIGHT", c.MaxInFlight); err != nil {
		return err
	}
	if c.GitHub.MaxRetries, err = envInt("HTTP_MAX_RETRIES", c.GitHub.MaxRetries); err != nil {
		return err
	}
	if c.CacheSize, err = envInt("CACHE_SIZE", c.CacheSize); err != nil {
		return err
	}
	if v := os.Getenv("EXCLUDE"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Exclusions = append(c.Exclusions, name)
			}
		}
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("MAX_IN_FLIGHT must be at least 1, got %d", c.MaxInFlight))
	}
	if c.GitHub.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("HTTP_MAX_RETRIES must not be negative, got %d", c.GitHub.MaxRetries))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be at least 1, got %d", c.CacheSize))
	}
	if c.GitHub.AppID != 0 && (c.GitHub.InstallationID == 0 || c.GitHub.PrivateKeyPath == "") {
		errs = append(errs, errors.New(
			"GITHUB_APP_ID requires GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
