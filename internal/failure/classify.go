package failure

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Outcome names the action the Connection should take after a failed send.
type Outcome int

const (
	// OutcomeDiscard drops the in-flight request; callbacks are invoked
	// with empty responses.
	OutcomeDiscard Outcome = iota
	// OutcomeReAuth notifies auth.DidLoseAuthentication; the request is
	// rescheduled once re-authentication completes.
	OutcomeReAuth
	// OutcomeRefreshSessionAndResend refreshes the cached session and
	// re-queues the send without clearing in-flight state.
	OutcomeRefreshSessionAndResend
	// OutcomeBackoffAndRetry reports a connection failure to auth with a
	// backoff hint.
	OutcomeBackoffAndRetry
	// OutcomeRetry hands off to the generic retry path (no backoff hint
	// beyond the caller's own schedule).
	OutcomeRetry
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDiscard:
		return "discard"
	case OutcomeReAuth:
		return "reauth"
	case OutcomeRefreshSessionAndResend:
		return "refreshSessionAndResend"
	case OutcomeBackoffAndRetry:
		return "backoffAndRetry"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// RateLimitBackoff is the hint attached to OutcomeBackoffAndRetry, per
// spec §4.4's "30-second backoff hint" for 429/502/503/504.
const RateLimitBackoff = 30 * time.Second

// Verdict is the result of classifying one failed send.
type Verdict struct {
	Outcome    Outcome
	RetryAfter time.Duration
}

// ClassifyHTTPStatus maps an HTTP status code to a Verdict, per spec §4.4's
// table. willRetry and isTimeout only matter for the "other" branch, which
// covers transport-level failures that never reached a status code (pass
// statusCode 0 for those).
func ClassifyHTTPStatus(statusCode int, willRetry bool, isTimeout bool) Verdict {
	switch statusCode {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge: // 400, 413
		return Verdict{Outcome: OutcomeDiscard}
	case http.StatusUnauthorized: // 401
		return Verdict{Outcome: OutcomeReAuth}
	case http.StatusNotFound: // 404
		return Verdict{Outcome: OutcomeRefreshSessionAndResend}
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout: // 429, 502, 503, 504
		return Verdict{Outcome: OutcomeBackoffAndRetry, RetryAfter: RateLimitBackoff}
	case http.StatusInternalServerError: // 500
		return Verdict{Outcome: OutcomeDiscard}
	default:
		if isTimeout || willRetry {
			return Verdict{Outcome: OutcomeRetry}
		}
		return Verdict{Outcome: OutcomeDiscard}
	}
}

// ClassifyError inspects a transport-level error (no HTTP status available)
// and decides discard vs. generic retry, per the "other / timeout / abort"
// row of spec §4.4.
func ClassifyError(err error) Verdict {
	if err == nil {
		return Verdict{Outcome: OutcomeDiscard}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Verdict{Outcome: OutcomeRetry}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Verdict{Outcome: OutcomeRetry}
	}
	return Verdict{Outcome: OutcomeDiscard}
}
