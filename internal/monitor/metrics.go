package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StatusClient fetches sync status from a joltsyncd introspection server.
type StatusClient struct {
	baseURL string
	client  *http.Client
}

// ConnectionStatus mirrors introspect.Summary, the per-data-group status
// shape served by GET /api/v1/status.
type ConnectionStatus struct {
	Sending              bool `json:"sending"`
	SendQueueDepth       int  `json:"sendQueueDepth"`
	QueriesPending       int  `json:"queriesPending"`
	TypeFetchesPending   int  `json:"typeFetchesPending"`
	TypeRefreshesPending int  `json:"typeRefreshesPending"`
	RecordFetchesPending int  `json:"recordFetchesPending"`
	InFlightCalls        int  `json:"inFlightCalls"`
	Paginated            bool `json:"paginated"`
}

// StatusResponse mirrors introspect.StatusResponse.
type StatusResponse struct {
	Dirty         bool                        `json:"dirty"`
	DirtyGroups   []string                    `json:"dirtyGroups"`
	Connections   map[string]ConnectionStatus `json:"connections"`
	UptimeSeconds int64                       `json:"uptimeSeconds"`
	MemoryBytes   uint64                      `json:"memoryBytes"`
}

// NewStatusClient creates a client against baseURL (e.g. http://localhost:9090).
func NewStatusClient(baseURL string) *StatusClient {
	return &StatusClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// FetchStatus retrieves the current aggregate status snapshot.
func (c *StatusClient) FetchStatus(ctx context.Context) (StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/status", nil)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusResponse{}, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var result StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return StatusResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return result, nil
}

// TotalQueueDepth sums send-queue depth across all connections, the
// headline number the dashboard sparklines track over time.
func (s StatusResponse) TotalQueueDepth() int {
	total := 0
	for _, conn := range s.Connections {
		total += conn.SendQueueDepth
	}
	return total
}

// TotalInFlight sums in-flight call counts across all connections.
func (s StatusResponse) TotalInFlight() int {
	total := 0
	for _, conn := range s.Connections {
		total += conn.InFlightCalls
	}
	return total
}
