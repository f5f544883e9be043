package failure

import "time"

// RetryConfig configures the generic exponential backoff applied to
// OutcomeRetry, mirroring internal/workflows/github_retry.go's
// RetryConfig/DefaultRetryConfig/ApplyDefaults trio.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// Default: 5
	MaxRetries int

	// InitialBackoff is the backoff applied after the first failure.
	// Default: 1 second
	InitialBackoff time.Duration

	// MaxBackoff caps the escalating backoff.
	// Default: 60 seconds
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff after each attempt.
	// Default: 2
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default generic retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults fills unset fields with DefaultRetryConfig's values.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// NextBackoff computes the backoff to wait before retry attempt
// (1-indexed); attempt 1 returns InitialBackoff, each subsequent attempt
// multiplies by BackoffMultiplier up to MaxBackoff.
func (c *RetryConfig) NextBackoff(attempt int) time.Duration {
	c.ApplyDefaults()
	if attempt < 1 {
		attempt = 1
	}
	backoff := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.BackoffMultiplier)
		if backoff > c.MaxBackoff {
			backoff = c.MaxBackoff
			break
		}
	}
	return backoff
}
