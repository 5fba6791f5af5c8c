// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "EVENTQ_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete client configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Instance names the client instance. Each instance keeps its own
	// database under Storage.Dir.
	Instance string `yaml:"instance"`

	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Upload    UploadConfig    `yaml:"upload"`
	Session   SessionConfig   `yaml:"session"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	Limits    LimitsConfig    `yaml:"limits"`
	Collector CollectorConfig `yaml:"collector"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides are the per-environment replacements. Only non-zero
// fields apply.
type Overrides struct {
	API    *APIConfig    `yaml:"api,omitempty"`
	Upload *UploadConfig `yaml:"upload,omitempty"`
}

// APIConfig identifies the collector and the project.
type APIConfig struct {
	// URL is the collector base URL; batches go to URL/event/batch and
	// URL/user/batch.
	URL string `yaml:"url"`

	// Key is the project API key sent in every batch.
	Key string `yaml:"key"`
}

// StorageConfig configures the local record store.
type StorageConfig struct {
	// Dir holds one database file per instance.
	// Default: ${HOME}/.local/share/eventq
	Dir string `yaml:"dir"`

	// MaxEventCount bounds each stream; the oldest records are evicted
	// beyond it. Default: 1000
	MaxEventCount int64 `yaml:"max_event_count"`

	// RemoveBatchSize caps one eviction. Default: 20
	RemoveBatchSize int64 `yaml:"remove_batch_size"`

	// Synchronous is "full" (default) or "normal".
	Synchronous string `yaml:"synchronous"`
}

// UploadConfig configures batching and delivery.
type UploadConfig struct {
	// Threshold flushes at every multiple of this many pending
	// records. Default: 30
	Threshold int64 `yaml:"threshold"`

	// MaxBatchSize caps the records in one request. Default: 100
	MaxBatchSize int `yaml:"max_batch_size"`

	// Period is the delay of a scheduled flush. Default: 30s
	Period time.Duration `yaml:"period"`

	// Timeout bounds one request. Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Compression is "none", "gzip", "zstd" or "lz4".
	Compression string `yaml:"compression"`

	// Checksum sends a BLAKE3 digest of every body.
	Checksum bool `yaml:"checksum"`
}

// SessionConfig configures session tracking.
type SessionConfig struct {
	// Timeout is the inactivity gap that ends a session. Default: 30m
	Timeout time.Duration `yaml:"timeout"`

	// MinTimeBetweenSessions is the background time that ends a
	// session under foreground tracking. Default: 5m
	MinTimeBetweenSessions time.Duration `yaml:"min_time_between_sessions"`

	ForegroundTracking bool `yaml:"foreground_tracking"`

	// TrackSessionEvents records _session_start and _session_end.
	TrackSessionEvents bool `yaml:"track_session_events"`
}

// PrivacyConfig holds the opt-out and connectivity switches.
type PrivacyConfig struct {
	OptOut  bool `yaml:"opt_out"`
	Offline bool `yaml:"offline"`

	// UseAdvertisingIDForDeviceID prefers the advertising id over a
	// random device id when no device id is stored.
	UseAdvertisingIDForDeviceID bool `yaml:"use_advertising_id_for_device_id"`
}

// LimitsConfig bounds stored payloads.
type LimitsConfig struct {
	// MaxStringLength truncates longer strings. Default: 1024
	MaxStringLength int `yaml:"max_string_length"`

	// MaxPropertyCount caps properties per event. Default: 1000
	MaxPropertyCount int `yaml:"max_property_count"`
}

// CollectorConfig configures the reference collector server.
type CollectorConfig struct {
	// Listen is the address to serve on. Default: 127.0.0.1:8480
	Listen string `yaml:"listen"`

	// APIKeys are the accepted keys. Empty accepts API.Key only.
	APIKeys []string `yaml:"api_keys"`

	// MaxBodySize is the largest decompressed batch accepted, in
	// bytes; larger batches get 413. Default: 1 MiB
	MaxBodySize int64 `yaml:"max_body_size"`
}

// Default returns the default configuration. API.URL and API.Key have
// no default.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Instance:    "",
		Storage: StorageConfig{
			Dir:             filepath.Join(homeDir, ".local", "share", "eventq"),
			MaxEventCount:   1000,
			RemoveBatchSize: 20,
			Synchronous:     "full",
		},
		Upload: UploadConfig{
			Threshold:    30,
			MaxBatchSize: 100,
			Period:       30 * time.Second,
			Timeout:      30 * time.Second,
			Compression:  "none",
		},
		Session: SessionConfig{
			Timeout:                30 * time.Minute,
			MinTimeBetweenSessions: 5 * time.Minute,
		},
		Limits: LimitsConfig{
			MaxStringLength:  1024,
			MaxPropertyCount: 1000,
		},
		Collector: CollectorConfig{
			Listen:      "127.0.0.1:8480",
			MaxBodySize: 1 << 20,
		},
	}
}

// Load loads configuration from the file named by EVENTQ_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your eventq.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.API != nil {
		if overrides.API.URL != "" {
			c.API.URL = overrides.API.URL
		}
		if overrides.API.Key != "" {
			c.API.Key = overrides.API.Key
		}
	}

	if overrides.Upload != nil {
		if overrides.Upload.Threshold != 0 {
			c.Upload.Threshold = overrides.Upload.Threshold
		}
		if overrides.Upload.MaxBatchSize != 0 {
			c.Upload.MaxBatchSize = overrides.Upload.MaxBatchSize
		}
		if overrides.Upload.Period != 0 {
			c.Upload.Period = overrides.Upload.Period
		}
		if overrides.Upload.Timeout != 0 {
			c.Upload.Timeout = overrides.Upload.Timeout
		}
		if overrides.Upload.Compression != "" {
			c.Upload.Compression = overrides.Upload.Compression
		}
		// Checksum is a bool, so an override section always sets it.
		c.Upload.Checksum = overrides.Upload.Checksum
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths and the API key, so keys can come from the environment.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Storage.Dir = expandVars(c.Storage.Dir, vars)
	vars["EVENTQ_DATA"] = c.Storage.Dir

	c.API.URL = expandVars(c.API.URL, vars)
	c.API.Key = expandVars(c.API.Key, vars)
	for i, key := range c.Collector.APIKeys {
		c.Collector.APIKeys[i] = expandVars(key, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. The collector section
// is not checked; see ValidateCollector.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.API.URL == "" {
		errs = append(errs, errors.New("api.url is required"))
	} else if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		errs = append(errs, fmt.Errorf("api.url must be an http or https URL, got %q", c.API.URL))
	}
	if c.API.Key == "" {
		errs = append(errs, errors.New("api.key is required"))
	}

	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if c.Storage.MaxEventCount <= 0 {
		errs = append(errs, errors.New("storage.max_event_count must be positive"))
	}
	if c.Storage.RemoveBatchSize <= 0 {
		errs = append(errs, errors.New("storage.remove_batch_size must be positive"))
	}
	synchronousValues := []string{"full", "normal"}
	if !slices.Contains(synchronousValues, c.Storage.Synchronous) {
		errs = append(errs, fmt.Errorf("storage.synchronous must be one of: %v", synchronousValues))
	}

	if c.Upload.Threshold <= 0 {
		errs = append(errs, errors.New("upload.threshold must be positive"))
	}
	if c.Upload.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("upload.max_batch_size must be positive"))
	}
	if c.Upload.Period <= 0 {
		errs = append(errs, errors.New("upload.period must be positive"))
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, errors.New("upload.timeout must be positive"))
	}
	compressionValues := []string{"", "none", "gzip", "zstd", "lz4"}
	if !slices.Contains(compressionValues, c.Upload.Compression) {
		errs = append(errs, fmt.Errorf("upload.compression must be one of: %v", compressionValues[1:]))
	}

	if c.Session.Timeout <= 0 {
		errs = append(errs, errors.New("session.timeout must be positive"))
	}
	if c.Session.MinTimeBetweenSessions <= 0 {
		errs = append(errs, errors.New("session.min_time_between_sessions must be positive"))
	}

	if c.Limits.MaxStringLength <= 0 {
		errs = append(errs, errors.New("limits.max_string_length must be positive"))
	}
	if c.Limits.MaxPropertyCount <= 0 {
		errs = append(errs, errors.New("limits.max_property_count must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateCollector checks the collector section.
func (c *Config) ValidateCollector() error {
	var errs []error
	if c.Collector.Listen == "" {
		errs = append(errs, errors.New("collector.listen is required"))
	}
	if len(c.CollectorKeys()) == 0 {
		errs = append(errs, errors.New("collector.api_keys or api.key is required"))
	}
	if c.Collector.MaxBodySize <= 0 {
		errs = append(errs, errors.New("collector.max_body_size must be positive"))
	}
	return errors.Join(errs...)
}

// CollectorKeys returns the keys the collector accepts.
func (c *Config) CollectorKeys() []string {
	if len(c.Collector.APIKeys) > 0 {
		return c.Collector.APIKeys
	}
	if c.API.Key != "" {
		return []string{c.API.Key}
	}
	return nil
}

// EnsurePaths creates the storage directory.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.Storage.Dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Storage.Dir, err)
	}
	return nil
}
