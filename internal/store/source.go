package store

// Source is the record-store interface the Connection drives, named after
// the method set spec §6 requires of it (sourceDidFetchRecords,
// sourceDidCommitCreate, getStoreKey, ...), translated to idiomatic Go
// method names on a single interface.
type Source interface {
	// DidFetchRecords merges a list of freshly fetched records into the
	// store and records the type's new state. hasMore indicates the
	// fetch handler should issue a follow-up fetch for remaining ids.
	DidFetchRecords(accountID, typeID string, records []map[string]any, state string, hasMore bool)

	// DidFetchPartialRecords merges a partial (properties-limited) fetch
	// the same way, without overwriting attributes that were not
	// requested.
	DidFetchPartialRecords(accountID, typeID string, records []map[string]any, hasMore bool)

	// CouldNotFindRecords marks the given ids as confirmed absent on the
	// server (the "notFound" list of a <Type>/get response).
	CouldNotFindRecords(accountID, typeID string, ids []string)

	// DidFetchUpdates applies a <Type>/changes delta: updated/destroyed
	// ids, moving the type's cached state from oldState to newState. A
	// nil updated and nil destroyed with a non-empty newState signals a
	// forced full reconciliation (the cannotCalculateChanges recovery
	// path, spec §4.4) — the store must treat every record of that type
	// as obsolete and re-fetch on next read.
	DidFetchUpdates(accountID, typeID string, updated, destroyed []string, oldState, newState string)

	// DidCommitCreate reports server-assigned ids for client-side store
	// keys that were successfully created.
	DidCommitCreate(accountID, typeID string, created map[string]map[string]any)

	// DidCommitUpdate reports server ids whose update committed, along
	// with any server-supplied attribute changes (e.g. a recomputed
	// "blobId").
	DidCommitUpdate(accountID, typeID string, updated map[string]map[string]any)

	// DidCommitDestroy reports server ids whose destroy committed.
	DidCommitDestroy(accountID, typeID string, destroyed []string)

	// DidNotCreate/DidNotUpdate/DidNotDestroy report per-record failures
	// inside an otherwise successful batch (spec §7.4). isPermanent is
	// always true for these paths — JMAP does not distinguish permanent
	// vs transient per-record failures.
	DidNotCreate(accountID, typeID string, notCreated map[string]map[string]any)
	DidNotUpdate(accountID, typeID string, notUpdated map[string]map[string]any)
	DidNotDestroy(accountID, typeID string, notDestroyed map[string]map[string]any)

	// CommitDidChangeState updates the type's cached state string after a
	// <Type>/set call returns newState, independent of which individual
	// records committed.
	CommitDidChangeState(accountID, typeID, newState string)

	// GetStoreKey returns the client-side surrogate id for a server
	// record id, minting one if this is the first time it is seen.
	GetStoreKey(accountID, typeID, serverID string) string

	// GetStatus/SetStatus track per-record lifecycle flags (e.g.
	// "obsolete", "loading", "committing") the Connection and store
	// coordinate through.
	GetStatus(accountID, typeID, id string) Status
	SetStatus(accountID, typeID, id string, status Status)

	// GetTypeState returns the type's last-known state string, or "" if
	// none has been observed yet.
	GetTypeState(accountID, typeID string) string
}

// Status is a bitmask of per-record lifecycle flags.
type Status int

const (
	StatusReady Status = 1 << iota
	StatusLoading
	StatusCommitting
	StatusObsolete
	StatusDestroyed
)

// Is reports whether flag is set in s.
func (s Status) Is(flag Status) bool {
	return s&flag != 0
}
