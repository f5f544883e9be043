// Package config provides configuration loading for joltsync.
//
// Configuration is loaded from a YAML file with environment-variable
// overrides. This package supports server, observability, session/auth, and
// per-data-group connection settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete joltsync configuration.
type Config struct {
	Production    ProductionConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Session       SessionConfig
	Auth          AuthConfig
	Aggregate     AggregateConfig
	Connections   []ConnectionConfig
}

// ServerConfig configures the introspection HTTP server.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	EnableTelemetry   bool   `koanf:"enable_telemetry"`
	ServiceName       string `koanf:"service_name"`
	OTLPEndpoint      string `koanf:"otlp_endpoint"`
	OTLPProtocol      string `koanf:"otlp_protocol"`
	OTLPInsecure      bool   `koanf:"otlp_insecure"`
	OTLPTLSSkipVerify bool   `koanf:"otlp_tls_skip_verify"`
}

// SessionConfig configures JMAP session discovery (spec §2's auth/session
// module collaborator).
type SessionConfig struct {
	DiscoveryURL    string   `koanf:"discovery_url"`
	RefreshInterval Duration `koanf:"refresh_interval"`
}

// AuthConfig configures the OAuth2 token source backing internal/auth.
type AuthConfig struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret Secret   `koanf:"client_secret"`
	TokenURL     string   `koanf:"token_url"`
	Scopes       []string `koanf:"scopes"`
}

// AggregateConfig configures the internal/aggregate status bus.
type AggregateConfig struct {
	Enabled bool   `koanf:"enabled"`
	NATSURL string `koanf:"nats_url"`
}

// ConnectionConfig configures one internal/connection.Connection, one per
// JMAP data group (mail, submission, contacts, calendars, peripheral).
type ConnectionConfig struct {
	DataGroup           string `koanf:"data_group"`
	AccountID            string `koanf:"account_id"`
	MaxCallsInRequest    int    `koanf:"max_calls_in_request"`
	MaxObjectsInGet      int    `koanf:"max_objects_in_get"`
	MaxObjectsInSet      int    `koanf:"max_objects_in_set"`
	MaxConcurrentUpload  int    `koanf:"max_concurrent_upload"`
}

// Load reads configuration from environment variables only, applying
// defaults for everything unset. Prefer LoadWithFile for the normal
// YAML-plus-env-override path.
func Load() *Config {
	cfg := &Config{
		Production: ProductionConfig{
			Enabled:               getEnvBool("JOLTSYNC_PRODUCTION_MODE", false),
			LocalModeAcknowledged: getEnvBool("JOLTSYNC_LOCAL_MODE", false),
			RequireAuthentication: getEnvBool("JOLTSYNC_REQUIRE_AUTH", false),
			RequireTLS:            getEnvBool("JOLTSYNC_REQUIRE_TLS", false),
			AllowNoIsolation:      getEnvBool("JOLTSYNC_ALLOW_NO_ISOLATION", false),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_HTTP_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OTEL_ENABLE", false),
			ServiceName:     getEnvString("OTEL_SERVICE_NAME", "joltsync"),
			OTLPEndpoint:    getEnvString("OTEL_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:    getEnvString("OTEL_OTLP_PROTOCOL", "grpc"),
			OTLPInsecure:    getEnvBool("OTEL_OTLP_INSECURE", true),
		},
		Session: SessionConfig{
			DiscoveryURL:    getEnvString("SESSION_DISCOVERY_URL", ""),
			RefreshInterval: Duration(getEnvDuration("SESSION_REFRESH_INTERVAL", 30*time.Minute)),
		},
		Auth: AuthConfig{
			ClientID:     getEnvString("AUTH_CLIENT_ID", ""),
			ClientSecret: Secret(getEnvString("AUTH_CLIENT_SECRET", "")),
			TokenURL:     getEnvString("AUTH_TOKEN_URL", ""),
			Scopes:       getEnvStringSlice("AUTH_SCOPES", nil),
		},
		Aggregate: AggregateConfig{
			Enabled: getEnvBool("AGGREGATE_STATUS_BUS_ENABLED", false),
			NATSURL: getEnvString("AGGREGATE_NATS_URL", "nats://127.0.0.1:4222"),
		},
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	for _, conn := range c.Connections {
		if conn.DataGroup == "" {
			return errors.New("connection entries must set data_group")
		}
		if conn.MaxCallsInRequest < 0 || conn.MaxObjectsInGet < 0 || conn.MaxObjectsInSet < 0 {
			return fmt.Errorf("connection %q: max_* limits must be non-negative", conn.DataGroup)
		}
	}

	if c.Session.DiscoveryURL != "" {
		if err := validateURL(c.Session.DiscoveryURL); err != nil {
			return fmt.Errorf("invalid SESSION_DISCOVERY_URL: %w", err)
		}
	}

	if c.Auth.TokenURL != "" {
		if err := validateURL(c.Auth.TokenURL); err != nil {
			return fmt.Errorf("invalid AUTH_TOKEN_URL: %w", err)
		}
	}

	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing.

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// validateURL rejects anything but an absolute http(s) URL, refusing
// scheme tricks like javascript:/file:/ftp: that have no business in a
// session-discovery or token endpoint.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// ProductionConfig holds production deployment posture, carried from the
// teacher's ambient safety-rail pattern regardless of which features are
// in scope.
type ProductionConfig struct {
	Enabled               bool `koanf:"enabled"`
	LocalModeAcknowledged bool `koanf:"local_mode_acknowledged"`
	RequireAuthentication bool `koanf:"require_authentication"`
	RequireTLS            bool `koanf:"require_tls"`
	AllowNoIsolation      bool `koanf:"allow_no_isolation"`
}

// Validate enforces that production deployments cannot silently disable
// authentication or TLS without an explicit local-mode acknowledgement.
func (p ProductionConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if !p.RequireAuthentication && !p.LocalModeAcknowledged {
		return errors.New("production mode requires authentication unless local mode is acknowledged")
	}
	if !p.RequireTLS && !p.LocalModeAcknowledged {
		return errors.New("production mode requires TLS unless local mode is acknowledged")
	}
	if p.AllowNoIsolation {
		return errors.New("production mode must never allow no-isolation")
	}
	return nil
}
