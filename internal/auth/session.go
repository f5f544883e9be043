package auth

import "github.com/joltmail/joltsync/internal/jmap"

// Session is the subset of the JMAP session object the Connection and
// auth module need: the API endpoint, advertised capabilities, the
// server's opaque session state, and the account map.
type Session struct {
	APIURL          string
	Capabilities    jmap.Capabilities
	State           string
	Accounts        map[string]any
	PrimaryAccounts map[string]string
}

// Field is a key accepted by Auth.Get, mirroring spec §6's
// get('accessToken'|'apiUrl'|'capabilities'|'state'|'accounts'|'primaryAccounts').
type Field string

const (
	FieldAccessToken      Field = "accessToken"
	FieldAPIURL           Field = "apiUrl"
	FieldCapabilities     Field = "capabilities"
	FieldState            Field = "state"
	FieldAccounts         Field = "accounts"
	FieldPrimaryAccounts  Field = "primaryAccounts"
)
