// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv          string // Application environment (dev, staging, prod)
	HTTPAddr        string // HTTP server bind address (e.g., ":8080")
	MetricsAddr     string // Metrics server bind address
	FrontendOrigin  string // Origin allowed to call the API from a browser
	LogLevel        string // zerolog level (trace, debug, info, warn, error)
	LogFormat       string // "console" or "json"
	DefaultProvider string // Provider used when a request names none

	// local-daemon (flagd-compatible evaluation daemon over gRPC)
	DaemonHost string
	DaemonPort int
	DaemonTLS  bool

	// targeting-file (contextual-targeting SDK bound to a local rule file)
	TargetingSDKKey    string
	TargetingFlagsFile string

	// targeting-online (contextual-targeting SDK in streaming mode)
	TargetingOnlineSDKKey      string
	TargetingOnlineBaseURI     string
	TargetingOnlineStreamURI   string
	TargetingOnlineEventsURI   string
	TargetingOnlineInitTimeout time.Duration
	TargetingOnlineSendEvents  bool

	// simple-file (condition-rule JSON document)
	SimpleFlagsFile string

	// segment-file (segment/feature-state JSON document)
	SegmentEnvFile string

	// segment-online (remote segment service keyed by environment key)
	SegmentOnlineEnvKey      string
	SegmentOnlineAPIURL      string
	SegmentOnlineTLSInsecure bool
	SegmentOnlineTimeout     time.Duration

	RateLimitPerIP int // Rate limit for requests per IP
}

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = v.ReadInConfig()    // Ignore error - .env is optional
	v.AutomaticEnv()        // Read from environment variables

	setConfigDefaults(v)

	return &Config{
		AppEnv:          v.GetString("APP_ENV"),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		MetricsAddr:     v.GetString("METRICS_ADDR"),
		FrontendOrigin:  v.GetString("FRONTEND_ORIGIN"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		DefaultProvider: v.GetString("DEFAULT_PROVIDER"),

		DaemonHost: v.GetString("DAEMON_HOST"),
		DaemonPort: v.GetInt("DAEMON_PORT"),
		DaemonTLS:  v.GetBool("DAEMON_TLS"),

		TargetingSDKKey:    v.GetString("TARGETING_SDK_KEY"),
		TargetingFlagsFile: v.GetString("TARGETING_FLAGS_FILE"),

		TargetingOnlineSDKKey:      v.GetString("TARGETING_ONLINE_SDK_KEY"),
		TargetingOnlineBaseURI:     v.GetString("TARGETING_ONLINE_BASE_URI"),
		TargetingOnlineStreamURI:   v.GetString("TARGETING_ONLINE_STREAM_URI"),
		TargetingOnlineEventsURI:   v.GetString("TARGETING_ONLINE_EVENTS_URI"),
		TargetingOnlineInitTimeout: v.GetDuration("TARGETING_ONLINE_INIT_TIMEOUT"),
		TargetingOnlineSendEvents:  v.GetBool("TARGETING_ONLINE_SEND_EVENTS"),

		SimpleFlagsFile: v.GetString("SIMPLE_FLAGS_FILE"),
		SegmentEnvFile:  v.GetString("SEGMENT_ENV_FILE"),

		SegmentOnlineEnvKey:      v.GetString("SEGMENT_ONLINE_ENV_KEY"),
		SegmentOnlineAPIURL:      v.GetString("SEGMENT_ONLINE_API_URL"),
		SegmentOnlineTLSInsecure: v.GetBool("SEGMENT_ONLINE_TLS_INSECURE"),
		SegmentOnlineTimeout:     v.GetDuration("SEGMENT_ONLINE_TIMEOUT"),

		RateLimitPerIP: v.GetInt("RATE_LIMIT_PER_IP"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
// These defaults are suitable for local development but should be overridden in production.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("FRONTEND_ORIGIN", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DEFAULT_PROVIDER", "local-daemon")

	v.SetDefault("DAEMON_HOST", "localhost")
	v.SetDefault("DAEMON_PORT", 8013)
	v.SetDefault("DAEMON_TLS", false)

	v.SetDefault("TARGETING_SDK_KEY", "dummy-offline-sdk-key")
	v.SetDefault("TARGETING_FLAGS_FILE", "targeting/flags.json")
	v.SetDefault("TARGETING_ONLINE_INIT_TIMEOUT", 3*time.Second)
	v.SetDefault("TARGETING_ONLINE_SEND_EVENTS", false)

	v.SetDefault("SIMPLE_FLAGS_FILE", "simple/features.json")
	v.SetDefault("SEGMENT_ENV_FILE", "segment/environment.json")

	v.SetDefault("SEGMENT_ONLINE_TLS_INSECURE", false)
	v.SetDefault("SEGMENT_ONLINE_TIMEOUT", 3*time.Second)

	v.SetDefault("RATE_LIMIT_PER_IP", 100)
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// knownProviders is the closed set of provider names the gateway routes to.
var knownProviders = map[string]struct{}{
	"local-daemon":     {},
	"targeting-file":   {},
	"targeting-online": {},
	"simple-file":      {},
	"segment-file":     {},
	"segment-online":   {},
}

// KnownProvider reports whether name is one of the recognized provider names.
func KnownProvider(name string) bool {
	_, ok := knownProviders[name]
	return ok
}

// Validate checks that the configuration is suitable for startup.
//
// File paths and secret keys are deliberately NOT validated here: a missing
// document or key disables only the adapter that needs it, at adapter
// initialization, so the rest of the gateway still comes up.
func (c *Config) Validate() error {
	if !KnownProvider(c.DefaultProvider) {
		return ValidationError{
			Field:   "DEFAULT_PROVIDER",
			Message: fmt.Sprintf("unknown provider %q", c.DefaultProvider),
		}
	}
	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}
	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}
	if c.DaemonPort <= 0 || c.DaemonPort > 65535 {
		return ValidationError{
			Field:   "DAEMON_PORT",
			Message: fmt.Sprintf("must be a valid port, got %d", c.DaemonPort),
		}
	}
	if c.TargetingOnlineInitTimeout <= 0 {
		return ValidationError{
			Field:   "TARGETING_ONLINE_INIT_TIMEOUT",
			Message: "initialization timeout must be positive",
		}
	}
	if c.SegmentOnlineTimeout <= 0 {
		return ValidationError{
			Field:   "SEGMENT_ONLINE_TIMEOUT",
			Message: "request timeout must be positive",
		}
	}
	return nil
}
