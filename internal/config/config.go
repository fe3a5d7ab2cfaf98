// Package config handles loading and validation of service configuration.
// Supports both development (env vars or CONFIG_FILE) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"gopkg.in/yaml.v3"

	"storefront-sync/internal/cart"
	"storefront-sync/internal/hydrate"
	"storefront-sync/internal/session"
)

// Config holds all service configuration.
// Environment determines whether store settings load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Sync settings
	LocalStorePath     string // empty keeps guest carts in memory
	MergePolicy        cart.MergePolicy
	HydrateConcurrency int
	SessionTTL         time.Duration

	// Store API settings (loaded from secrets in production)
	Store StoreConfig
}

// StoreConfig describes the shop API the service talks to.
// In production, this is loaded from Secret Manager as JSON.
type StoreConfig struct {
	APIURL         string   `json:"api_url" yaml:"api_url"`
	RequestTimeout Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	FingerprintTLS bool     `json:"fingerprint_tls,omitempty" yaml:"fingerprint_tls,omitempty"`
}

// Duration is a time.Duration written as "15s" in JSON and YAML.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"15s\": %w", err)
	}
	return d.set(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// fileConfig mirrors the CONFIG_FILE layout.
type fileConfig struct {
	Port               string      `json:"port" yaml:"port"`
	Environment        string      `json:"environment" yaml:"environment"`
	LogLevel           string      `json:"log_level" yaml:"log_level"`
	StoreID            string      `json:"store_id" yaml:"store_id"`
	LocalStorePath     string      `json:"local_store_path" yaml:"local_store_path"`
	MergePolicy        string      `json:"merge_policy" yaml:"merge_policy"`
	HydrateConcurrency int         `json:"hydrate_concurrency" yaml:"hydrate_concurrency"`
	SessionTTL         Duration    `json:"session_ttl" yaml:"session_ttl"`
	Store              StoreConfig `json:"store" yaml:"store"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:           envOrDefault("PORT", "8080"),
		Environment:    envOrDefault("ENVIRONMENT", "development"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		GCPProject:     os.Getenv("GCP_PROJECT"),
		StoreID:        envOrDefault("STORE_ID", "storefront"),
		LocalStorePath: os.Getenv("LOCAL_STORE_PATH"),
	}

	if err := cfg.loadSyncFromEnv(); err != nil {
		return nil, err
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadStoreFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON or YAML file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	policy, err := cart.ParseMergePolicy(fc.MergePolicy)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               withDefault(fc.Port, "8080"),
		Environment:        withDefault(fc.Environment, "development"),
		LogLevel:           withDefault(fc.LogLevel, "info"),
		StoreID:            withDefault(fc.StoreID, "storefront"),
		LocalStorePath:     fc.LocalStorePath,
		MergePolicy:        policy,
		HydrateConcurrency: fc.HydrateConcurrency,
		SessionTTL:         time.Duration(fc.SessionTTL),
		Store:              fc.Store,
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadSyncFromEnv reads the cart and session tuning knobs.
func (c *Config) loadSyncFromEnv() error {
	policy, err := cart.ParseMergePolicy(os.Getenv("MERGE_POLICY"))
	if err != nil {
		return err
	}
	c.MergePolicy = policy

	if v := os.Getenv("HYDRATE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing HYDRATE_CONCURRENCY: %w", err)
		}
		c.HydrateConcurrency = n
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}

	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.HydrateConcurrency == 0 {
		c.HydrateConcurrency = hydrate.DefaultLimit
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = session.DefaultTTL
	}
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadStoreFromEnv reads store config from individual environment variables.
func (c *Config) loadStoreFromEnv() error {
	c.Store = StoreConfig{APIURL: os.Getenv("STORE_API_URL")}

	if v := os.Getenv("STORE_REQUEST_TIMEOUT"); v != "" {
		if err := c.Store.RequestTimeout.set(v); err != nil {
			return fmt.Errorf("parsing STORE_REQUEST_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("STORE_FINGERPRINT_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing STORE_FINGERPRINT_TLS: %w", err)
		}
		c.Store.FingerprintTLS = b
	}
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.APIURL == "" {
		return fmt.Errorf("store api_url is required")
	}
	u, err := url.Parse(c.Store.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid store api_url %q", c.Store.APIURL)
	}
	if c.HydrateConcurrency < 1 {
		return fmt.Errorf("hydrate_concurrency must be at least 1")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must not be negative")
	}
	return nil
}

// Level maps LogLevel to a slog level. Unknown values mean info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
