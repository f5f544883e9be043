package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ConnectionHandle is the minimal identity a Connection exposes to the
// auth module — just enough to log and to key per-connection retry state
// by, without the auth package importing internal/connection.
type ConnectionHandle interface {
	DataGroup() string
}

// Auth is the auth module interface the Connection consumes (spec §6).
type Auth interface {
	// ConnectionWillSend is asked before every batch send; returning false
	// vetoes the send for this tick (e.g. a re-auth is already in
	// flight).
	ConnectionWillSend(conn ConnectionHandle) bool
	// ConnectionSucceeded resets any backoff state after a successful
	// round-trip.
	ConnectionSucceeded(conn ConnectionHandle)
	// ConnectionFailed reports a transport failure. retryAfter is zero
	// when the classifier has no specific hint.
	ConnectionFailed(conn ConnectionHandle, retryAfter time.Duration)
	// DidLoseAuthentication is called on a 401; implementations should
	// invalidate any cached token so the next AccessToken() call forces a
	// refresh.
	DidLoseAuthentication()
	// FetchSession refreshes the cached Session (e.g. after a sessionState
	// change or a 404).
	FetchSession(ctx context.Context) error
	// Get surfaces session fields by name, per spec §6.
	Get(field Field) (any, bool)
}

// SessionFetcher retrieves a fresh Session from the server, e.g. by GET'ing
// the JMAP well-known session endpoint. It is a collaborator — the auth
// module does not itself know the session URL's wire format.
type SessionFetcher func(ctx context.Context, accessToken string) (Session, error)

// OAuth2Auth implements Auth on top of an oauth2.TokenSource, the way
// internal/workflows/github_client.go wraps a GitHub token in
// oauth2.StaticTokenSource — generalized here to any TokenSource so a
// host can supply a refreshable one.
type OAuth2Auth struct {
	tokenSource oauth2.TokenSource
	fetchFn     SessionFetcher
	logger      *zap.Logger

	mu          sync.Mutex
	session     Session
	haveSession bool
	backoffFor  map[string]time.Time // dataGroup -> earliest retry time
}

// NewOAuth2Auth creates an Auth backed by tokenSource. fetchFn is called by
// FetchSession to retrieve (or re-retrieve) the JMAP session object.
func NewOAuth2Auth(tokenSource oauth2.TokenSource, fetchFn SessionFetcher, logger *zap.Logger) *OAuth2Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuth2Auth{
		tokenSource: tokenSource,
		fetchFn:     fetchFn,
		logger:      logger,
		backoffFor:  make(map[string]time.Time),
	}
}

func (a *OAuth2Auth) ConnectionWillSend(conn ConnectionHandle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if until, ok := a.backoffFor[conn.DataGroup()]; ok {
		if time.Now().Before(until) {
			return false
		}
		delete(a.backoffFor, conn.DataGroup())
	}
	return true
}

func (a *OAuth2Auth) ConnectionSucceeded(conn ConnectionHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.backoffFor, conn.DataGroup())
}

func (a *OAuth2Auth) ConnectionFailed(conn ConnectionHandle, retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.backoffFor[conn.DataGroup()] = time.Now().Add(retryAfter)
	a.logger.Warn("connection failed, backing off",
		zap.String("dataGroup", conn.DataGroup()),
		zap.Duration("retryAfter", retryAfter))
}

func (a *OAuth2Auth) DidLoseAuthentication() {
	a.logger.Warn("lost authentication, invalidating cached token")
	if invalidator, ok := a.tokenSource.(interface{ Invalidate() }); ok {
		invalidator.Invalidate()
	}
}

func (a *OAuth2Auth) FetchSession(ctx context.Context) error {
	token, err := a.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}
	if a.fetchFn == nil {
		return fmt.Errorf("no session fetcher configured")
	}
	session, err := a.fetchFn(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.haveSession = true
	a.mu.Unlock()
	return nil
}

func (a *OAuth2Auth) Get(field Field) (any, bool) {
	switch field {
	case FieldAccessToken:
		token, err := a.tokenSource.Token()
		if err != nil {
			return nil, false
		}
		return token.AccessToken, true
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.haveSession {
		return nil, false
	}
	switch field {
	case FieldAPIURL:
		return a.session.APIURL, true
	case FieldCapabilities:
		return a.session.Capabilities, true
	case FieldState:
		return a.session.State, true
	case FieldAccounts:
		return a.session.Accounts, true
	case FieldPrimaryAccounts:
		return a.session.PrimaryAccounts, true
	default:
		return nil, false
	}
}

var _ Auth = (*OAuth2Auth)(nil)
