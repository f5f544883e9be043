package changeset

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/joltmail/joltsync/internal/patch"
)

// MakeSetRequest shapes a ChangeSet into the SetArgs body of a <Type>/set
// call, per spec §4.2. The second return value is false if every bucket of
// the resulting args is empty, signalling the caller should not send a
// <Type>/set call at all.
//
// For update records, every attribute marked true in Changes[i] (except
// "accountId") is diffed between Committed[i] and Records[i] via
// patch.MakePatches and emitted as a JSON-Pointer patch. If noPatch is
// true — used when building the "create" block of a <Type>/copy call —
// the whole attribute value is emitted instead of a diff, since a copy's
// destination has no prior committed snapshot to diff against.
func MakeSetRequest(cs ChangeSet, noPatch bool) (SetArgs, bool) {
	args := SetArgs{
		AccountID: cs.AccountID,
		IfInState: cs.State,
	}

	if len(cs.Create.StoreKeys) > 0 {
		args.Create = make(map[string]any, len(cs.Create.StoreKeys))
		for i, key := range cs.Create.StoreKeys {
			args.Create[key] = cs.Create.Records[i]
		}
	}

	if len(cs.Update.StoreKeys) > 0 {
		args.Update = make(map[string]any, len(cs.Update.StoreKeys))
		for i, key := range cs.Update.StoreKeys {
			record := cs.Update.Records[i]
			if noPatch {
				args.Update[key] = record
				continue
			}
			committed := map[string]any{}
			if i < len(cs.Update.Committed) && cs.Update.Committed[i] != nil {
				committed = cs.Update.Committed[i]
			}
			patches := map[string]any{}
			changes := cs.Update.Changes[i]
			for attr, changed := range changes {
				if !changed || attr == "accountId" {
					continue
				}
				patch.MakePatches(patch.Join("", attr), patches, committed[attr], record[attr])
			}
			args.Update[key] = patches
		}
	}

	if len(cs.Destroy.IDs) > 0 {
		args.Destroy = append([]string(nil), cs.Destroy.IDs...)
	}

	return args, !args.IsEmpty()
}

// MoveCopyArgs builds the <Type>/copy call arguments for every
// moveFromAccount source on cs, per spec §4.2: each copy carries
// onSuccessDestroyOriginal=true and a "create" block built with
// noPatch=true, whose record's PrimaryKey field is set to the source-side
// id so the server can correlate the copy back to its origin.
func MoveCopyArgs(cs ChangeSet) []CopyArgs {
	if len(cs.MoveFromAccount) == 0 {
		return nil
	}

	calls := make([]CopyArgs, 0, len(cs.MoveFromAccount))
	for fromAccountID, update := range cs.MoveFromAccount {
		create := make(map[string]any, len(update.StoreKeys))
		for i, key := range update.StoreKeys {
			record := copyRecord(update.Records[i])
			if cs.PrimaryKey != "" {
				record[cs.PrimaryKey] = sourceID(update, i)
			}
			create[key] = record
		}
		calls = append(calls, CopyArgs{
			FromAccountID:            fromAccountID,
			AccountID:                cs.AccountID,
			Create:                   create,
			OnSuccessDestroyOriginal: true,
		})
	}
	return calls
}

func sourceID(update Update, i int) any {
	if i < len(update.Committed) && update.Committed[i] != nil {
		return update.Committed[i]["id"]
	}
	return nil
}

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}

// NewStoreKey mints a client-side creation id for a new record, the way
// the store hands out surrogate ids stable across create-before-commit.
func NewStoreKey(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
