package connection

import (
	"github.com/joltmail/joltsync/internal/changeset"
	"github.com/joltmail/joltsync/internal/failure"
	"github.com/joltmail/joltsync/internal/jmap"
)

// headerProperties is the default property set fetched for a record when
// no caller has narrowed the request, grounded on spec §8 scenario 1's
// "…headerProperties" placeholder. Record types beyond Message should
// register a TypeHandlers.Fetch override that knows their own attribute
// names.
var headerProperties = []string{"id", "subject", "receivedAt"}

// genericFetchCall builds a "<Type>/get" call. ids is nil for a type-wide
// fetch (the whole bucket), or a targeted id list.
func genericFetchCall(accountID, typeID string, ids []string) jmap.MethodCall {
	args := map[string]any{
		"accountId":  accountID,
		"properties": headerProperties,
	}
	if ids != nil {
		args["ids"] = ids
	} else {
		args["ids"] = nil
	}
	return jmap.MethodCall{Name: typeID + "/get", Arguments: args}
}

// genericRefreshCall builds a "<Type>/changes" call from sinceState with
// the given maxChanges budget.
func genericRefreshCall(accountID, typeID, sinceState string, maxChanges int) jmap.MethodCall {
	return jmap.MethodCall{
		Name: typeID + "/changes",
		Arguments: map[string]any{
			"accountId":  accountID,
			"sinceState": sinceState,
			"maxChanges": maxChanges,
		},
	}
}

// genericQueryCall builds a "<Type>/query" call.
func genericQueryCall(q Query) jmap.MethodCall {
	return jmap.MethodCall{
		Name: q.TypeID + "/query",
		Arguments: map[string]any{
			"accountId": q.AccountID,
			"filter":    q.Filter,
			"sort":      q.Sort,
			"position":  q.Position,
			"limit":     q.Limit,
		},
	}
}

// genericCommitCalls builds the "<Type>/set" call (and any "<Type>/copy"
// calls for moveFromAccount sources) for cs, per spec §4.2.
func genericCommitCalls(cs changeset.ChangeSet) []jmap.MethodCall {
	var calls []jmap.MethodCall

	if args, ok := changeset.MakeSetRequest(cs, false); ok {
		calls = append(calls, jmap.MethodCall{
			Name: cs.PrimaryKey + "/set",
			Arguments: map[string]any{
				"accountId": args.AccountID,
				"ifInState": nilIfEmpty(args.IfInState),
				"create":    args.Create,
				"update":    args.Update,
				"destroy":   args.Destroy,
			},
		})
	}

	for _, copyArgs := range changeset.MoveCopyArgs(cs) {
		calls = append(calls, jmap.MethodCall{
			Name: cs.PrimaryKey + "/copy",
			Arguments: map[string]any{
				"fromAccountId":            copyArgs.FromAccountID,
				"accountId":                copyArgs.AccountID,
				"create":                   copyArgs.Create,
				"onSuccessDestroyOriginal": copyArgs.OnSuccessDestroyOriginal,
			},
		})
	}

	return calls
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// maxChangesFor returns the adaptive budget for typeID, defaulting to the
// message schedule for any type the Connection has not special-cased.
func (c *Connection) maxChangesFor(typeID string) *failure.ChangesBudget {
	switch typeID {
	case "Thread":
		return c.threadChanges
	default:
		return c.messageChanges
	}
}
