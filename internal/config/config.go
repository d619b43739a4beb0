package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"FM_ENV" default:"development"`

	HTTPPort    int           `envconfig:"FM_HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"FM_HTTP_TIMEOUT" default:"15s"`

	MaxConcurrency int           `envconfig:"FM_MAX_CONCURRENCY" default:"3"`
	FailFast       bool          `envconfig:"FM_FAIL_FAST" default:"false"`
	PerTaskTimeout time.Duration `envconfig:"FM_PER_TASK_TIMEOUT" default:"0"`
	MaxRunItems    int           `envconfig:"FM_MAX_RUN_ITEMS" default:"100"`

	MaxRetries        int           `envconfig:"FM_MAX_RETRIES" default:"3"`
	RetryBackoffBase  time.Duration `envconfig:"FM_RETRY_BACKOFF_BASE" default:"500ms"`
	RetryBackoffCap   time.Duration `envconfig:"FM_RETRY_BACKOFF_CAP" default:"30s"`
	RetryMaxTotalWait time.Duration `envconfig:"FM_RETRY_MAX_TOTAL_WAIT" default:"2m"`
	DialTimeout       time.Duration `envconfig:"FM_DIAL_TIMEOUT" default:"6s"`

	DownloadDir string `envconfig:"FM_DOWNLOAD_DIR" default:"./downloads"`
	TempDir     string `envconfig:"FM_TEMP_DIR" default:"./tmp"`

	ShutdownTimeout time.Duration `envconfig:"FM_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"FM_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"FM_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive: %d", c.MaxConcurrency)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative: %d", c.MaxRetries)
	}

	if c.MaxRunItems <= 0 {
		return fmt.Errorf("max run items must be positive: %d", c.MaxRunItems)
	}

	if c.RetryBackoffBase <= 0 || c.RetryBackoffCap < c.RetryBackoffBase {
		return fmt.Errorf("invalid retry backoff window: base %s, cap %s", c.RetryBackoffBase, c.RetryBackoffCap)
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}
	if c.TempDir == "" {
		return fmt.Errorf("temp directory cannot be empty")
	}

	return nil
}
