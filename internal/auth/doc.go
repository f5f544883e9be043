// Package auth implements the auth module collaborator described in spec
// §6/§7: connectionWillSend/connectionSucceeded/connectionFailed gate and
// observe Connection sends, didLoseAuthentication/fetchSession drive
// re-auth and session refresh, and Get surfaces session fields
// (accessToken, apiUrl, capabilities, state, accounts, primaryAccounts).
//
// The reference implementation wraps an oauth2.TokenSource so a host can
// plug in any OAuth2 flow (client credentials, refresh token, static
// token) without the Connection needing to know about it.
package auth
