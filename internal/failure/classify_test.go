package failure

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPStatusDiscardCases(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusInternalServerError} {
		v := ClassifyHTTPStatus(code, false, false)
		assert.Equal(t, OutcomeDiscard, v.Outcome, "status %d", code)
	}
}

func TestClassifyHTTPStatusReAuthOn401(t *testing.T) {
	v := ClassifyHTTPStatus(http.StatusUnauthorized, false, false)
	assert.Equal(t, OutcomeReAuth, v.Outcome)
}

func TestClassifyHTTPStatusRefreshSessionOn404(t *testing.T) {
	v := ClassifyHTTPStatus(http.StatusNotFound, false, false)
	assert.Equal(t, OutcomeRefreshSessionAndResend, v.Outcome)
}

func TestClassifyHTTPStatusBackoffCases(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		v := ClassifyHTTPStatus(code, false, false)
		assert.Equal(t, OutcomeBackoffAndRetry, v.Outcome, "status %d", code)
		assert.Equal(t, RateLimitBackoff, v.RetryAfter)
	}
}

func TestClassifyHTTPStatusOtherHonoursWillRetry(t *testing.T) {
	v := ClassifyHTTPStatus(418, true, false)
	assert.Equal(t, OutcomeRetry, v.Outcome)

	v = ClassifyHTTPStatus(418, false, false)
	assert.Equal(t, OutcomeDiscard, v.Outcome)
}

func TestClassifyHTTPStatusTimeoutRetries(t *testing.T) {
	v := ClassifyHTTPStatus(0, false, true)
	assert.Equal(t, OutcomeRetry, v.Outcome)
}

func TestClassifyErrorDeadlineExceededRetries(t *testing.T) {
	v := ClassifyError(context.DeadlineExceeded)
	assert.Equal(t, OutcomeRetry, v.Outcome)
}

func TestClassifyErrorOtherDiscards(t *testing.T) {
	v := ClassifyError(assert.AnError)
	assert.Equal(t, OutcomeDiscard, v.Outcome)
}

func TestClassifyErrorNilDiscards(t *testing.T) {
	v := ClassifyError(nil)
	assert.Equal(t, OutcomeDiscard, v.Outcome)
}

func TestOutcomeStringsAreStable(t *testing.T) {
	assert.Equal(t, "discard", OutcomeDiscard.String())
	assert.Equal(t, "reauth", OutcomeReAuth.String())
	assert.Equal(t, "refreshSessionAndResend", OutcomeRefreshSessionAndResend.String())
	assert.Equal(t, "backoffAndRetry", OutcomeBackoffAndRetry.String())
	assert.Equal(t, "retry", OutcomeRetry.String())
}

func TestRetryConfigNextBackoffEscalatesAndCaps(t *testing.T) {
	c := &RetryConfig{InitialBackoff: time.Second, MaxBackoff: 4 * time.Second, BackoffMultiplier: 2}
	assert.Equal(t, time.Second, c.NextBackoff(1))
	assert.Equal(t, 2*time.Second, c.NextBackoff(2))
	assert.Equal(t, 4*time.Second, c.NextBackoff(3))
	assert.Equal(t, 4*time.Second, c.NextBackoff(4))
}

func TestRetryConfigApplyDefaults(t *testing.T) {
	c := &RetryConfig{}
	c.ApplyDefaults()
	assert.Equal(t, DefaultRetryConfig(), c)
}
