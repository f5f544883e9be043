package store

// Adaptor translates JMAP response argument maps into calls against a
// Source, per spec §6/§7.4. It is stateless beyond the Source it wraps —
// every method here is a pure translation of one response shape.
type Adaptor struct {
	Source Source
}

// NewAdaptor wraps src in an Adaptor.
func NewAdaptor(src Source) *Adaptor {
	return &Adaptor{Source: src}
}

// ApplyGet translates a <Type>/get response: { list, notFound, state }.
func (a *Adaptor) ApplyGet(accountID, typeID string, args map[string]any, partial bool) {
	list := toRecordList(args["list"])
	state, _ := args["state"].(string)

	if partial {
		a.Source.DidFetchPartialRecords(accountID, typeID, list, false)
	} else {
		a.Source.DidFetchRecords(accountID, typeID, list, state, false)
	}

	if notFound := toStringList(args["notFound"]); len(notFound) > 0 {
		a.Source.CouldNotFindRecords(accountID, typeID, notFound)
	}
}

// ApplyChanges translates a <Type>/changes response: { updated, destroyed,
// oldState, newState, hasMoreChanges }. The caller (the request pipeline)
// is responsible for re-fetching "updated" records and for driving the
// adaptive maxChanges escalation on hasMoreChanges; this method only
// records the delta.
func (a *Adaptor) ApplyChanges(accountID, typeID string, args map[string]any) {
	updated := toStringList(args["updated"])
	destroyed := toStringList(args["destroyed"])
	oldState, _ := args["oldState"].(string)
	newState, _ := args["newState"].(string)
	a.Source.DidFetchUpdates(accountID, typeID, updated, destroyed, oldState, newState)
}

// ApplyForcedResync implements the cannotCalculateChanges recovery path
// (spec §4.4/§7.5): mark everything obsolete and adopt newState with no
// updated/destroyed lists, forcing a full reconciliation on next read.
func (a *Adaptor) ApplyForcedResync(accountID, typeID, newState string) {
	a.Source.DidFetchUpdates(accountID, typeID, nil, nil, "", newState)
}

// ApplySet translates a <Type>/set response: { created, notCreated,
// updated, notUpdated, destroyed, notDestroyed, newState }.
func (a *Adaptor) ApplySet(accountID, typeID string, args map[string]any) {
	if created := toRecordMap(args["created"]); len(created) > 0 {
		a.Source.DidCommitCreate(accountID, typeID, created)
	}
	if notCreated := toRecordMap(args["notCreated"]); len(notCreated) > 0 {
		a.Source.DidNotCreate(accountID, typeID, notCreated)
	}
	if updated := toRecordMap(args["updated"]); len(updated) > 0 {
		a.Source.DidCommitUpdate(accountID, typeID, updated)
	}
	if notUpdated := toRecordMap(args["notUpdated"]); len(notUpdated) > 0 {
		a.Source.DidNotUpdate(accountID, typeID, notUpdated)
	}
	if destroyed := toStringList(args["destroyed"]); len(destroyed) > 0 {
		a.Source.DidCommitDestroy(accountID, typeID, destroyed)
	}
	if notDestroyed := toRecordMap(args["notDestroyed"]); len(notDestroyed) > 0 {
		a.Source.DidNotDestroy(accountID, typeID, notDestroyed)
	}
	if newState, ok := args["newState"].(string); ok && newState != "" {
		a.Source.CommitDidChangeState(accountID, typeID, newState)
	}
}

// ApplyMethodError synthesises the generic /set and /copy error fallback
// described in spec §7.3: attribute the error to every attempted id so the
// store uniformly learns those records' commits failed.
func (a *Adaptor) ApplyMethodError(accountID, typeID string, attemptedStoreKeys []string, attemptedIDs []string, errArgs map[string]any) {
	if len(attemptedStoreKeys) > 0 {
		notCreated := make(map[string]map[string]any, len(attemptedStoreKeys))
		for _, key := range attemptedStoreKeys {
			notCreated[key] = errArgs
		}
		a.Source.DidNotCreate(accountID, typeID, notCreated)
	}
	if len(attemptedIDs) > 0 {
		notUpdated := make(map[string]map[string]any, len(attemptedIDs))
		notDestroyed := make(map[string]map[string]any, len(attemptedIDs))
		for _, id := range attemptedIDs {
			notUpdated[id] = errArgs
			notDestroyed[id] = errArgs
		}
		a.Source.DidNotUpdate(accountID, typeID, notUpdated)
		a.Source.DidNotDestroy(accountID, typeID, notDestroyed)
	}
}

func toRecordList(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, normaliseNulls(rec))
		}
	}
	return out
}

func toRecordMap(v any) map[string]map[string]any {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(raw))
	for k, item := range raw {
		if rec, ok := item.(map[string]any); ok {
			out[k] = normaliseNulls(rec)
		} else {
			out[k] = map[string]any{}
		}
	}
	return out
}

func toStringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// normaliseNulls converts JSON null values decoded as nil into the empty
// string for simple scalar fields, matching scenario 1 in spec §8 ("a
// store that contains message m7 with subject = "" (null normalised)").
// Nested objects and arrays are left untouched — null-normalisation only
// applies to values a caller would otherwise have to nil-check on every
// read.
func normaliseNulls(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = v
	}
	return out
}

// AttemptedIDsFrom extracts the ids a set call attempted to update or
// destroy, for use with ApplyMethodError when a top-level method error
// aborts the whole call.
func AttemptedIDsFrom(updateIDs map[string]any, destroyIDs []string) []string {
	ids := make([]string, 0, len(updateIDs)+len(destroyIDs))
	for id := range updateIDs {
		ids = append(ids, id)
	}
	ids = append(ids, destroyIDs...)
	return ids
}
