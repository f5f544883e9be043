package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/joltmail/joltsync/internal/auth"
	"github.com/joltmail/joltsync/internal/jmap"
)

// wireSessionObject is the wire shape of a JMAP session resource, per the
// RFC 8620 well-known/jmap endpoint.
type wireSessionObject struct {
	APIURL          string                       `json:"apiUrl"`
	Capabilities    jmap.Capabilities             `json:"capabilities"`
	State           string                       `json:"state"`
	Accounts        map[string]any               `json:"accounts"`
	PrimaryAccounts map[string]string             `json:"primaryAccounts"`
}

// fetchSession builds an auth.SessionFetcher that GETs discoveryURL with a
// bearer token and decodes the JMAP session object.
func fetchSession(discoveryURL string, httpClient *http.Client) auth.SessionFetcher {
	return func(ctx context.Context, accessToken string) (auth.Session, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
		if err != nil {
			return auth.Session{}, fmt.Errorf("building session request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return auth.Session{}, fmt.Errorf("fetching session: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return auth.Session{}, fmt.Errorf("session endpoint returned status %d", resp.StatusCode)
		}

		var wire wireSessionObject
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return auth.Session{}, fmt.Errorf("decoding session: %w", err)
		}

		return auth.Session{
			APIURL:          wire.APIURL,
			Capabilities:    wire.Capabilities,
			State:           wire.State,
			Accounts:        wire.Accounts,
			PrimaryAccounts: wire.PrimaryAccounts,
		}, nil
	}
}
