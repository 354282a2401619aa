// ABOUTME: Centralized configuration for the photo-critic CLI
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Recognized output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatBoth     = "both"
)

// ProviderLimits are provider-enforced batch ceilings, treated as fixed.
type ProviderLimits struct {
	MaxRequestsPerBatch int   `yaml:"max_requests_per_batch"`
	MaxBytesPerBatch    int64 `yaml:"max_bytes_per_batch"`
}

// Config holds all configuration for a critique run. It is built once at
// process start and passed explicitly; core packages never read the
// environment themselves.
type Config struct {
	// OpenAI settings
	OpenAIKey string        `yaml:"-"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"-"`

	// Run settings
	MinScore     float64 `yaml:"min_score"`
	OutputFormat string  `yaml:"output_format"`
	MaxImages    int     `yaml:"max_images"`

	// Batch settings
	PollInterval     time.Duration  `yaml:"-"`
	MaxBatchLifetime time.Duration  `yaml:"-"`
	Limits           ProviderLimits `yaml:"provider_limits"`

	// Retry settings
	RetryBaseDelay  time.Duration `yaml:"-"`
	RetryMaxAttempt int           `yaml:"-"`

	// Paths
	CheckpointPath string `yaml:"checkpoint_path"`
	LogFile        string `yaml:"log_file"`

	// YAML-only duration fields, seconds. Applied by LoadFromYAML.
	PollIntervalSeconds     int `yaml:"poll_interval_seconds"`
	MaxBatchLifetimeSeconds int `yaml:"max_batch_lifetime_seconds"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		Model:            getEnv("PHOTO_CRITIC_MODEL", "gpt-4o-mini"),
		Timeout:          getEnvDuration("PHOTO_CRITIC_TIMEOUT", 60*time.Second),
		MinScore:         getEnvFloat("PHOTO_CRITIC_MIN_SCORE", 0),
		OutputFormat:     getEnv("PHOTO_CRITIC_FORMAT", FormatJSON),
		MaxImages:        getEnvInt("PHOTO_CRITIC_MAX_IMAGES", 100),
		PollInterval:     getEnvDuration("PHOTO_CRITIC_POLL_INTERVAL", 30*time.Second),
		MaxBatchLifetime: getEnvDuration("PHOTO_CRITIC_BATCH_LIFETIME", 24*time.Hour),
		Limits: ProviderLimits{
			MaxRequestsPerBatch: getEnvInt("PHOTO_CRITIC_MAX_REQUESTS_PER_BATCH", 10000),
			MaxBytesPerBatch:    getEnvInt64("PHOTO_CRITIC_MAX_BYTES_PER_BATCH", 32_000_000),
		},
		RetryBaseDelay:  getEnvDuration("PHOTO_CRITIC_RETRY_DELAY", 2*time.Second),
		RetryMaxAttempt: getEnvInt("PHOTO_CRITIC_MAX_RETRIES", 4),
		CheckpointPath:  getEnv("PHOTO_CRITIC_CHECKPOINT", ".photo-critic-checkpoint.json"),
		LogFile:         getEnv("PHOTO_CRITIC_LOG_FILE", ""),
	}

	return cfg, cfg.Validate()
}

// LoadFromYAML overlays configuration from a YAML file onto cfg.
func (c *Config) LoadFromYAML(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}

	if c.PollIntervalSeconds > 0 {
		c.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second
	}
	if c.MaxBatchLifetimeSeconds > 0 {
		c.MaxBatchLifetime = time.Duration(c.MaxBatchLifetimeSeconds) * time.Second
	}

	return c.Validate()
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatJSON, FormatMarkdown, FormatBoth:
	default:
		return fmt.Errorf("output format must be json, markdown, or both, got %q", c.OutputFormat)
	}
	if c.MinScore < 0 || c.MinScore > 10 {
		return fmt.Errorf("min score must be 0-10, got %v", c.MinScore)
	}
	if c.Limits.MaxRequestsPerBatch <= 0 {
		return fmt.Errorf("max_requests_per_batch must be positive, got %d", c.Limits.MaxRequestsPerBatch)
	}
	if c.Limits.MaxBytesPerBatch <= 0 {
		return fmt.Errorf("max_bytes_per_batch must be positive, got %d", c.Limits.MaxBytesPerBatch)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.RetryMaxAttempt < 0 || c.RetryMaxAttempt > 10 {
		return fmt.Errorf("PHOTO_CRITIC_MAX_RETRIES must be 0-10, got %d", c.RetryMaxAttempt)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
