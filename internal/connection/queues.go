package connection

import "github.com/joltmail/joltsync/internal/jmap"

// FetchSpec is the innermost value of the typesToFetch/typesToRefresh/
// recordsToFetch/recordsToRefresh maps described in spec §3: either a
// request to fetch everything of a type (All), a refresh-from-state
// request (State), or a set of targeted record ids (IDs).
type FetchSpec struct {
	All   bool
	State string
	IDs   map[string]bool
}

func newTargetedSpec(ids ...string) *FetchSpec {
	spec := &FetchSpec{IDs: make(map[string]bool, len(ids))}
	for _, id := range ids {
		spec.IDs[id] = true
	}
	return spec
}

// merge folds other into s in place: All is sticky, State is overwritten
// by the latest refresh request, and IDs accumulate. Per spec §3, a
// pending type-wide fetch supersedes targeted ids, but both may still be
// present if set at different times.
func (s *FetchSpec) merge(other *FetchSpec) {
	if other.All {
		s.All = true
	}
	if other.State != "" {
		s.State = other.State
	}
	for id := range other.IDs {
		if s.IDs == nil {
			s.IDs = make(map[string]bool)
		}
		s.IDs[id] = true
	}
}

// Query describes a pending <Type>/query fetch.
type Query struct {
	QueryID   string
	AccountID string
	TypeID    string
	Filter    map[string]any
	Sort      []any
	Position  int
	Limit     int
}

// QueuedCallback pairs a client tag with the function to invoke once the
// matching response is known. An empty ClientTag means "unconditional":
// called once per flush with no bound response (spec §4.3).
type QueuedCallback struct {
	ClientTag string
	Fn        func(args map[string]any, responseName string, requestArgs map[string]any)
}

// workQueues holds the Connection's pending, not-yet-sent work, named
// after spec §3's "Work queues (Connection state)". Only the owning
// Connection ever reads or writes these fields, so no locking is done
// here; Connection serializes access with its own mutex.
type workQueues struct {
	sendQueue     []jmap.MethodCall
	callbackQueue []QueuedCallback

	queriesToFetch map[string]Query

	typesToFetch     map[string]map[string]*FetchSpec
	typesToRefresh   map[string]map[string]*FetchSpec
	recordsToFetch   map[string]map[string]*FetchSpec
	recordsToRefresh map[string]map[string]*FetchSpec
}

func newWorkQueues() *workQueues {
	return &workQueues{
		queriesToFetch:   make(map[string]Query),
		typesToFetch:     make(map[string]map[string]*FetchSpec),
		typesToRefresh:   make(map[string]map[string]*FetchSpec),
		recordsToFetch:   make(map[string]map[string]*FetchSpec),
		recordsToRefresh: make(map[string]map[string]*FetchSpec),
	}
}

func enqueueSpec(bucket map[string]map[string]*FetchSpec, accountID, typeID string, spec *FetchSpec) {
	byType, ok := bucket[accountID]
	if !ok {
		byType = make(map[string]*FetchSpec)
		bucket[accountID] = byType
	}
	if existing, ok := byType[typeID]; ok {
		existing.merge(spec)
		return
	}
	byType[typeID] = spec
}

func (q *workQueues) enqueueTypeFetch(accountID, typeID string) {
	enqueueSpec(q.typesToFetch, accountID, typeID, &FetchSpec{All: true})
}

func (q *workQueues) enqueueTypeRefresh(accountID, typeID, sinceState string) {
	enqueueSpec(q.typesToRefresh, accountID, typeID, &FetchSpec{State: sinceState})
}

func (q *workQueues) enqueueRecordFetch(accountID, typeID string, ids []string) {
	enqueueSpec(q.recordsToFetch, accountID, typeID, newTargetedSpec(ids...))
}

func (q *workQueues) enqueueRecordRefresh(accountID, typeID string, ids []string) {
	enqueueSpec(q.recordsToRefresh, accountID, typeID, newTargetedSpec(ids...))
}

func (q *workQueues) enqueueQuery(query Query) {
	q.queriesToFetch[query.QueryID] = query
}

func (q *workQueues) enqueueCall(call jmap.MethodCall) int {
	idx := len(q.sendQueue)
	q.sendQueue = append(q.sendQueue, call)
	return idx
}

func (q *workQueues) enqueueCallback(cb QueuedCallback) {
	q.callbackQueue = append(q.callbackQueue, cb)
}

// isEmpty reports whether there is no pending work of any kind.
func (q *workQueues) isEmpty() bool {
	return len(q.sendQueue) == 0 &&
		len(q.queriesToFetch) == 0 &&
		len(q.typesToFetch) == 0 &&
		len(q.typesToRefresh) == 0 &&
		len(q.recordsToFetch) == 0 &&
		len(q.recordsToRefresh) == 0
}
