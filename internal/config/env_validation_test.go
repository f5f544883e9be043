package config

import (
	"os"
	"testing"
)

func TestLoad_ValidatesSessionDiscoveryURL(t *testing.T) {
	defer os.Unsetenv("SESSION_DISCOVERY_URL")

	invalidURLs := []string{
		"javascript:alert(1)",
		"file:///etc/passwd",
		"ftp://malicious.com",
	}

	for _, raw := range invalidURLs {
		t.Run(raw, func(t *testing.T) {
			os.Setenv("SESSION_DISCOVERY_URL", raw)
			cfg := Load()

			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for invalid URL: %s", raw)
			}
		})
	}
}

func TestLoad_ValidatesAuthTokenURL(t *testing.T) {
	defer os.Unsetenv("AUTH_TOKEN_URL")
	os.Setenv("AUTH_TOKEN_URL", "javascript:alert(1)")

	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid AUTH_TOKEN_URL")
	}
}

func TestLoad_AllowsValidConfig(t *testing.T) {
	defer os.Unsetenv("SESSION_DISCOVERY_URL")
	defer os.Unsetenv("AUTH_TOKEN_URL")

	os.Setenv("SESSION_DISCOVERY_URL", "https://mail.example.com/.well-known/jmap")
	os.Setenv("AUTH_TOKEN_URL", "https://mail.example.com/oauth2/token")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid configuration rejected: %v", err)
	}
}
