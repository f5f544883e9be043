package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeConn struct{ group string }

func (f fakeConn) DataGroup() string { return f.group }

func TestOAuth2AuthGetAccessToken(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"})
	a := NewOAuth2Auth(ts, nil, nil)

	val, ok := a.Get(FieldAccessToken)
	require.True(t, ok)
	assert.Equal(t, "tok-123", val)
}

func TestOAuth2AuthFetchSessionPopulatesFields(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"})
	fetch := func(ctx context.Context, token string) (Session, error) {
		assert.Equal(t, "tok-123", token)
		return Session{APIURL: "https://jmap.example.com/api", State: "s1"}, nil
	}
	a := NewOAuth2Auth(ts, fetch, nil)

	require.NoError(t, a.FetchSession(context.Background()))

	apiURL, ok := a.Get(FieldAPIURL)
	require.True(t, ok)
	assert.Equal(t, "https://jmap.example.com/api", apiURL)
}

func TestConnectionFailedBacksOffConnectionWillSend(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
	a := NewOAuth2Auth(ts, nil, nil)
	conn := fakeConn{group: "mail"}

	assert.True(t, a.ConnectionWillSend(conn))

	a.ConnectionFailed(conn, 50*time.Millisecond)
	assert.False(t, a.ConnectionWillSend(conn))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, a.ConnectionWillSend(conn))
}

func TestConnectionSucceededClearsBackoff(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
	a := NewOAuth2Auth(ts, nil, nil)
	conn := fakeConn{group: "calendars"}

	a.ConnectionFailed(conn, time.Hour)
	assert.False(t, a.ConnectionWillSend(conn))

	a.ConnectionSucceeded(conn)
	assert.True(t, a.ConnectionWillSend(conn))
}

func TestGetUnknownSessionFieldBeforeFetch(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
	a := NewOAuth2Auth(ts, nil, nil)

	_, ok := a.Get(FieldState)
	assert.False(t, ok)
}
