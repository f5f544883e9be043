package changeset

// Create holds the records a commit wants to create, indexed in parallel by
// client-side store key.
type Create struct {
	StoreKeys []string
	Records   []map[string]any
}

// Update holds the records a commit wants to update. Committed[i] is the
// last-known-committed snapshot of Records[i]; Changes[i] marks which
// top-level attributes were touched since that snapshot (map value true
// means "this attribute changed").
type Update struct {
	StoreKeys []string
	Records   []map[string]any
	Committed []map[string]any
	Changes   []map[string]bool
}

// Destroy holds the server ids a commit wants to destroy.
type Destroy struct {
	StoreKeys []string
	IDs       []string
}

// ChangeSet is the per-record-type input to a commit, as described in
// spec §3.
type ChangeSet struct {
	AccountID  string
	PrimaryKey string
	Create     Create
	Update     Update
	Destroy    Destroy
	// MoveFromAccount maps a source accountId to the Update describing
	// records that should be copied from that account into AccountID.
	MoveFromAccount map[string]Update
	State           string
}

// SetArgs is the JSON argument object sent as the body of a <Type>/set (or,
// with NoPatch, a <Type>/copy "create" block) call.
type SetArgs struct {
	AccountID string         `json:"accountId"`
	IfInState string         `json:"ifInState,omitempty"`
	Create    map[string]any `json:"create,omitempty"`
	Update    map[string]any `json:"update,omitempty"`
	Destroy   []string       `json:"destroy,omitempty"`
}

// IsEmpty reports whether every bucket of args is empty, i.e. there is
// nothing worth sending.
func (a SetArgs) IsEmpty() bool {
	return len(a.Create) == 0 && len(a.Update) == 0 && len(a.Destroy) == 0
}

// CopyArgs is the JSON argument object sent as the body of a <Type>/copy
// call — one per moveFromAccount source.
type CopyArgs struct {
	FromAccountID            string         `json:"fromAccountId"`
	AccountID                string         `json:"accountId"`
	Create                   map[string]any `json:"create"`
	OnSuccessDestroyOriginal bool           `json:"onSuccessDestroyOriginal"`
}
