package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joltmail/joltsync/internal/jmap"
)

const (
	// DefaultTimeout is the request deadline used until any upload
	// attached to the batch has completed (spec §4.3).
	DefaultTimeout = 30 * time.Second
	// DefaultTimeoutAfterUpload is the relaxed deadline applied once an
	// upload has completed.
	DefaultTimeoutAfterUpload = 120 * time.Second
)

// HTTPError is returned by Send for any non-2xx response. StatusCode and
// Body let the failure classifier branch per spec §4.4 without Send
// needing to know about retry policy.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("jmap transport: unexpected status %d", e.StatusCode)
}

// Client performs the JMAP batch HTTP round-trip.
type Client struct {
	httpClient         *http.Client
	timeout            time.Duration
	timeoutAfterUpload time.Duration
}

// NewClient builds a Client. A nil httpClient gets a default one with no
// timeout set (Send applies its own per-request deadline via context).
func NewClient(httpClient *http.Client, timeout, timeoutAfterUpload time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeoutAfterUpload <= 0 {
		timeoutAfterUpload = DefaultTimeoutAfterUpload
	}
	return &Client{httpClient: httpClient, timeout: timeout, timeoutAfterUpload: timeoutAfterUpload}
}

// Send POSTs batch as JSON to apiURL with the headers spec §4.3 requires,
// and decodes a jmap.BatchResponse. uploadDone selects which of the two
// configured timeouts applies to this call.
func (c *Client) Send(ctx context.Context, apiURL, accessToken string, batch jmap.BatchRequest, uploadDone bool) (*jmap.BatchResponse, error) {
	deadline := c.timeout
	if uploadDone {
		deadline = c.timeoutAfterUpload
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal jmap batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build jmap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jmap request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jmap response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
	}

	var batchResp jmap.BatchResponse
	if err := json.Unmarshal(respBody, &batchResp); err != nil {
		return nil, fmt.Errorf("decode jmap response: %w", err)
	}
	return &batchResp, nil
}
