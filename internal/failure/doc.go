// Package failure classifies a failed batch send into the outcome the
// Connection should act on — discard, re-auth, session-refresh-and-resend,
// backoff-and-retry, or a generic retry — and carries the adaptive
// maxChanges escalation state machine used to recover from
// cannotCalculateChanges. It is the JMAP analogue of
// internal/workflows/github_retry.go's status-code switch and rate-limit
// backoff calculation.
package failure
