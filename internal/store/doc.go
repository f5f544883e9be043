// Package store defines the record-store interface the Connection drives
// (spec §6) and a translation layer ("the store adaptor") that turns JMAP
// response shapes — list/notFound/created/notCreated/updated/notUpdated/
// destroyed/notDestroyed/oldState/newState — into calls against that
// interface.
//
// The store itself (persistence, identity, dirty-tracking) is out of
// scope; this package only specifies the contract and ships an in-memory
// reference implementation used by tests and the reference CLI. Nothing
// here is written to disk, per the module's non-goals.
package store
