// Package redact scrubs secrets (OAuth bearer tokens, API keys, credentials
// embedded in query strings) out of text before it reaches a log line or an
// introspection response, using the Gitleaks detection SDK.
package redact

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joltmail/joltsync/pkg/secrets"
)

var (
	userAllowlistOnce sync.Once
	userAllowlistPath string
)

// userAllowlist returns ~/.config/joltsync/allowlist.toml if it exists,
// letting an operator exempt known-safe patterns (e.g. a JMAP server's own
// session-discovery URL containing an account-scoped but non-secret query
// param) from the introspection/log scrubber without recompiling.
func userAllowlist() string {
	userAllowlistOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		userAllowlistPath = filepath.Join(home, ".config", "joltsync", "allowlist.toml")
	})
	return userAllowlistPath
}

// Scrub redacts any detected secrets in s, replacing each with a
// [REDACTED:rule-id:preview] marker. Content with no findings is returned
// unchanged. Detection errors are treated as "nothing found" since redaction
// is a best-effort safety net, never load-bearing for correctness.
func Scrub(s string) string {
	if s == "" {
		return s
	}
	result, err := secrets.Redact(s, secrets.RedactOptions{UserPath: userAllowlist(), Source: "log.message"})
	if err != nil {
		return s
	}
	return result.Content
}
