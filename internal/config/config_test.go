package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	originalEnv := saveEnv()
	defer restoreEnv(originalEnv)

	tests := []struct {
		name     string
		env      map[string]string
		validate func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Server.ShutdownTimeout != 10*time.Second {
					t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
				}
				if cfg.Observability.EnableTelemetry {
					t.Error("Observability.EnableTelemetry = true, want false (disabled by default)")
				}
				if cfg.Observability.ServiceName != "joltsync" {
					t.Errorf("Observability.ServiceName = %q, want joltsync", cfg.Observability.ServiceName)
				}
				if cfg.Session.RefreshInterval != Duration(30*time.Minute) {
					t.Errorf("Session.RefreshInterval = %v, want 30m", cfg.Session.RefreshInterval)
				}
				if cfg.Aggregate.Enabled {
					t.Error("Aggregate.Enabled = true, want false (disabled by default)")
				}
			},
		},
		{
			name: "server environment overrides",
			env: map[string]string{
				"SERVER_HTTP_PORT":        "9191",
				"SERVER_SHUTDOWN_TIMEOUT": "5s",
				"OTEL_ENABLE":             "true",
				"OTEL_SERVICE_NAME":       "joltsyncd",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9191 {
					t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
				}
				if cfg.Server.ShutdownTimeout != 5*time.Second {
					t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
				}
				if !cfg.Observability.EnableTelemetry {
					t.Error("Observability.EnableTelemetry = false, want true")
				}
				if cfg.Observability.ServiceName != "joltsyncd" {
					t.Errorf("Observability.ServiceName = %q, want joltsyncd", cfg.Observability.ServiceName)
				}
			},
		},
		{
			name: "session and auth environment overrides",
			env: map[string]string{
				"SESSION_DISCOVERY_URL":    "https://mail.example.com/.well-known/jmap",
				"SESSION_REFRESH_INTERVAL": "1h",
				"AUTH_CLIENT_ID":           "joltsync-cli",
				"AUTH_TOKEN_URL":           "https://mail.example.com/oauth2/token",
				"AUTH_SCOPES":              "mail, submission , calendars",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Session.DiscoveryURL != "https://mail.example.com/.well-known/jmap" {
					t.Errorf("Session.DiscoveryURL = %q", cfg.Session.DiscoveryURL)
				}
				if cfg.Session.RefreshInterval != Duration(time.Hour) {
					t.Errorf("Session.RefreshInterval = %v, want 1h", cfg.Session.RefreshInterval)
				}
				if cfg.Auth.ClientID != "joltsync-cli" {
					t.Errorf("Auth.ClientID = %q", cfg.Auth.ClientID)
				}
				wantScopes := []string{"mail", "submission", "calendars"}
				if len(cfg.Auth.Scopes) != len(wantScopes) {
					t.Fatalf("Auth.Scopes = %v, want %v", cfg.Auth.Scopes, wantScopes)
				}
				for i, s := range wantScopes {
					if cfg.Auth.Scopes[i] != s {
						t.Errorf("Auth.Scopes[%d] = %q, want %q", i, cfg.Auth.Scopes[i], s)
					}
				}
			},
		},
		{
			name: "aggregate environment overrides",
			env: map[string]string{
				"AGGREGATE_STATUS_BUS_ENABLED": "true",
				"AGGREGATE_NATS_URL":           "nats://nats.internal:4222",
			},
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.Aggregate.Enabled {
					t.Error("Aggregate.Enabled = false, want true")
				}
				if cfg.Aggregate.NATSURL != "nats://nats.internal:4222" {
					t.Errorf("Aggregate.NATSURL = %q", cfg.Aggregate.NATSURL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg := Load()
			if cfg == nil {
				t.Fatal("Load() returned nil")
			}

			tt.validate(t, cfg)
		})
	}
}

func TestConfigValidateRejectsInvalidConnection(t *testing.T) {
	cfg := Load()
	cfg.Connections = []ConnectionConfig{{DataGroup: ""}}

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for connection with empty data_group")
	}
}

func TestConfigValidateRejectsNegativeLimits(t *testing.T) {
	cfg := Load()
	cfg.Connections = []ConnectionConfig{{DataGroup: "mail", MaxCallsInRequest: -1}}

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative max_calls_in_request")
	}
}

// Helper functions to save/restore environment.
func saveEnv() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.IndexByte(e, '='); i >= 0 {
			env[e[:i]] = e[i+1:]
		}
	}
	return env
}

func restoreEnv(env map[string]string) {
	os.Clearenv()
	for k, v := range env {
		os.Setenv(k, v)
	}
}
