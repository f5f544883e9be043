package connection

import (
	"strconv"

	"github.com/joltmail/joltsync/internal/jmap"
)

// materialiseBatchLocked drains the work queues into an ordered call list,
// per spec §4.3 step 2: any calls already appended directly (commits,
// direct CallMethod calls) go first in registration order, then query
// fetches, type refreshes, record refreshes, type fetches, and record
// fetches — each phase in the accountId/typeId order it was registered.
// Callers must hold c.mu.
func (c *Connection) materialiseBatchLocked() ([]jmap.MethodCall, []QueuedCallback) {
	calls := append([]jmap.MethodCall(nil), c.queues.sendQueue...)
	callbacks := append([]QueuedCallback(nil), c.queues.callbackQueue...)
	c.queues.sendQueue = nil
	c.queues.callbackQueue = nil

	for _, queryID := range sortedStringKeys(c.queues.queriesToFetch) {
		q := c.queues.queriesToFetch[queryID]
		calls = append(calls, c.buildQueryCallLocked(q))
	}
	c.queues.queriesToFetch = make(map[string]Query)

	calls = append(calls, c.drainSpecBucketLocked(c.queues.typesToRefresh, true)...)
	calls = append(calls, c.drainSpecBucketLocked(c.queues.recordsToRefresh, true)...)
	calls = append(calls, c.drainSpecBucketLocked(c.queues.typesToFetch, false)...)
	calls = append(calls, c.drainSpecBucketLocked(c.queues.recordsToFetch, false)...)

	// clientTag assignment is the decimal index at append time (spec §3's
	// invariant); assigning it here, once the full unpaginated call list
	// is known, is what lets dispatch correlate a response's clientTag
	// back to its request regardless of which page it was sent in.
	for i := range calls {
		calls[i].ClientTag = strconv.Itoa(i)
	}

	return calls, callbacks
}

func (c *Connection) buildQueryCallLocked(q Query) jmap.MethodCall {
	if handlers, ok := c.registry.TypeHandlersFor(q.TypeID); ok && handlers.Query != nil {
		return handlers.Query(q)
	}
	return genericQueryCall(q)
}

// drainSpecBucketLocked builds calls for every (accountID, typeID) pending
// in bucket and empties it. refresh selects the "<Type>/changes" path;
// otherwise the "<Type>/get" path is built.
func (c *Connection) drainSpecBucketLocked(bucket map[string]map[string]*FetchSpec, refresh bool) []jmap.MethodCall {
	var calls []jmap.MethodCall
	for _, accountID := range sortedStringKeys(bucket) {
		byType := bucket[accountID]
		for _, typeID := range sortedStringKeys(byType) {
			spec := byType[typeID]
			handlers, hasHandlers := c.registry.TypeHandlersFor(typeID)

			if refresh {
				var ids []string
				if len(spec.IDs) > 0 {
					ids = sortedIDs(spec.IDs)
				}
				if hasHandlers && handlers.Refresh != nil {
					calls = append(calls, handlers.Refresh(accountID, typeID, ids, spec.State)...)
					continue
				}
				calls = append(calls, genericRefreshCall(accountID, typeID, spec.State, c.maxChangesFor(typeID).MaxChanges()))
				continue
			}

			var ids []string
			if !spec.All && len(spec.IDs) > 0 {
				ids = sortedIDs(spec.IDs)
			}
			if hasHandlers && handlers.Fetch != nil {
				calls = append(calls, handlers.Fetch(accountID, typeID, ids, "")...)
				continue
			}
			calls = append(calls, genericFetchCall(accountID, typeID, ids))
		}
		delete(bucket, accountID)
	}
	return calls
}

// slicePageEnd returns the exclusive end index of the page starting at
// start, honoring maxCalls, per spec §4.3 step 5's literal worked example:
// the page is calls[start : start+maxCalls), a plain arithmetic slice, with
// no look-ahead adjustment for calls that reference something sent in an
// earlier page. A call's resolved createdIds are carried forward into the
// next page's request (see pageContext.createdIDs in flush.go); any other
// "#"-prefixed reference that ends up split across a page boundary is the
// back-reference-adjacency simplifying assumption's acknowledged limitation
// (spec §9), not something this function resolves.
func slicePageEnd(calls []jmap.MethodCall, start, maxCalls int) int {
	if maxCalls <= 0 || start+maxCalls >= len(calls) {
		return len(calls)
	}
	return start + maxCalls
}
