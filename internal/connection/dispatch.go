package connection

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/joltmail/joltsync/internal/jmap"
	"github.com/joltmail/joltsync/internal/store"
)

// dispatch routes every response in a page's result set to either a
// registered handler or the built-in store translation, per spec §4.3's
// response dispatch. calls is the full, unpaginated call list the batch
// was materialised from; a response's clientTag is a decimal index into
// it regardless of which page carried the response.
func (c *Connection) dispatch(ctx context.Context, calls []jmap.MethodCall, responses []jmap.MethodResponse) {
	for _, resp := range responses {
		requestName, requestArgs := c.requestFor(calls, resp.ClientTag)

		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("jmap response handler panicked",
						zap.String("method", resp.Name),
						zap.Any("recovered", r))
				}
			}()
			if resp.IsError() {
				c.dispatchError(ctx, resp, requestName, requestArgs)
			} else {
				c.dispatchSuccess(ctx, resp, requestName, requestArgs)
			}
		}()
	}
}

func (c *Connection) requestFor(calls []jmap.MethodCall, clientTag string) (string, map[string]any) {
	idx, err := jmap.ClientTagIndex(clientTag)
	if err != nil || idx >= len(calls) {
		return "", nil
	}
	return calls[idx].Name, calls[idx].Arguments
}

func (c *Connection) dispatchSuccess(ctx context.Context, resp jmap.MethodResponse, requestName string, requestArgs map[string]any) {
	if h, ok := c.registry.ResponseHandlerFor(resp.Name); ok {
		h(ctx, resp.Arguments, requestName, requestArgs)
		return
	}

	accountID, _ := resp.Arguments["accountId"].(string)
	if accountID == "" {
		accountID, _ = requestArgs["accountId"].(string)
	}

	switch {
	case strings.HasSuffix(resp.Name, "/get"):
		typeID := strings.TrimSuffix(resp.Name, "/get")
		if c.store != nil {
			c.store.ApplyGet(accountID, typeID, resp.Arguments, false)
		}
	case strings.HasSuffix(resp.Name, "/changes"):
		c.dispatchChangesSuccess(accountID, strings.TrimSuffix(resp.Name, "/changes"), resp.Arguments)
	case strings.HasSuffix(resp.Name, "/set") || strings.HasSuffix(resp.Name, "/copy"):
		typeID := strings.TrimSuffix(strings.TrimSuffix(resp.Name, "/set"), "/copy")
		if c.store != nil {
			c.store.ApplySet(accountID, typeID, resp.Arguments)
		}
	default:
		c.logger.Debug("unhandled jmap response", zap.String("method", resp.Name))
	}
}

// dispatchChangesSuccess applies a <Type>/changes delta and drives the
// adaptive maxChanges escalation on hasMoreChanges, per spec §4.4.
func (c *Connection) dispatchChangesSuccess(accountID, typeID string, args map[string]any) {
	if c.store != nil {
		c.store.ApplyChanges(accountID, typeID, args)
	}

	hasMore, _ := args["hasMoreChanges"].(bool)
	budget := c.maxChangesFor(typeID)
	newState, _ := args["newState"].(string)

	if !hasMore {
		budget.Reset()
		return
	}

	if budget.AtCeiling() {
		c.forceResync(accountID, typeID, newState)
		return
	}
	budget.Escalate()
	c.mu.Lock()
	c.queues.enqueueTypeRefresh(accountID, typeID, newState)
	c.mu.Unlock()
}

// forceResync implements the cannotCalculateChanges recovery (spec §4.4):
// mark every record of typeID/accountID obsolete, adopt newState with no
// updated/destroyed lists, reset the adaptive budget, and schedule a fresh
// full fetch to actually repopulate the store.
func (c *Connection) forceResync(accountID, typeID, newState string) {
	c.maxChangesFor(typeID).Reset()
	if c.store != nil {
		c.store.ApplyForcedResync(accountID, typeID, newState)
	}
	c.mu.Lock()
	c.queues.enqueueTypeFetch(accountID, typeID)
	c.mu.Unlock()
}

func (c *Connection) dispatchError(ctx context.Context, resp jmap.MethodResponse, requestName string, requestArgs map[string]any) {
	errType := resp.ErrorType()

	if errType == "cannotCalculateChanges" && strings.HasSuffix(requestName, "/changes") {
		accountID, _ := requestArgs["accountId"].(string)
		newState, _ := resp.Arguments["newState"].(string)
		c.forceResync(accountID, strings.TrimSuffix(requestName, "/changes"), newState)
		return
	}

	if h, ok := c.registry.LookupErrorHandler(requestName, errType); ok {
		h(ctx, resp.Arguments, requestName, requestArgs)
		return
	}

	c.logger.Warn("unhandled jmap method error",
		zap.String("method", requestName),
		zap.String("type", errType))

	if strings.HasSuffix(requestName, "/set") || strings.HasSuffix(requestName, "/copy") {
		c.applyGenericSetFallback(requestName, requestArgs, resp.Arguments)
	}
}

// applyGenericSetFallback implements spec §7's generic /set and /copy
// error fallback: attribute the error to every attempted id so the store
// uniformly learns those records' commits failed.
func (c *Connection) applyGenericSetFallback(requestName string, requestArgs, errArgs map[string]any) {
	if c.store == nil {
		return
	}
	typeID := strings.TrimSuffix(strings.TrimSuffix(requestName, "/set"), "/copy")
	accountID, _ := requestArgs["accountId"].(string)

	createMap, _ := requestArgs["create"].(map[string]any)
	storeKeys := make([]string, 0, len(createMap))
	for k := range createMap {
		storeKeys = append(storeKeys, k)
	}

	updateMap, _ := requestArgs["update"].(map[string]any)
	destroyIDs := toStringSlice(requestArgs["destroy"])
	attemptedIDs := store.AttemptedIDsFrom(updateMap, destroyIDs)

	c.store.ApplyMethodError(accountID, typeID, storeKeys, attemptedIDs, errArgs)
}
