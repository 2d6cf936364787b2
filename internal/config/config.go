// Package config holds the explicit runtime configuration. It is constructed
// once at startup and passed by reference into every component that needs it;
// no component reads the process environment directly.
package config

import (
	"time"

	"billing-bridge/pkg/errors"
)

// Config is the full pipeline configuration.
type Config struct {
	// Invoice source API
	SourceURL  string
	APIVersion string
	AuthToken  string

	// Billing drop sink
	SinkURL          string
	SinkConnectionID string
	SinkAPIKey       string

	// Pipeline behavior
	WindowDays     int
	MaxRowFailures int
	HTTPTimeout    time.Duration

	Archive Archive
}

// Archive configures the optional ClickHouse batch archive.
type Archive struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// ValidateSource fails fast when the invoice API cannot be called. Checked
// before any network activity.
func (c *Config) ValidateSource() error {
	if c.APIVersion == "" {
		return errors.NewConfigurationError("API_VERSION is required for the invoice API")
	}
	if c.AuthToken == "" {
		return errors.NewConfigurationError("AUTH_TOKEN is required for the invoice API")
	}
	if c.WindowDays < 0 {
		return errors.NewConfigurationError("WINDOW_DAYS must be a non-negative integer, got %d", c.WindowDays)
	}
	return nil
}

// ValidateSink fails fast when an upload is requested without sink
// credentials.
func (c *Config) ValidateSink() error {
	if c.SinkConnectionID == "" {
		return errors.NewConfigurationError("SINK_CONNECTION_ID is required to upload a billing drop")
	}
	if c.SinkAPIKey == "" {
		return errors.NewConfigurationError("SINK_API_KEY is required to upload a billing drop")
	}
	return nil
}
