package connection

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/joltmail/joltsync/internal/auth"
	"github.com/joltmail/joltsync/internal/failure"
	"github.com/joltmail/joltsync/internal/jmap"
	"github.com/joltmail/joltsync/internal/transport"
)

// Flush drains pending work into a batched JMAP request and sends it,
// looping over paginated continuations until the whole batch has been
// submitted, then runs queued callbacks. It is the request pipeline of
// spec §4.3, meant to be called once per run-loop tick (or, in this
// synchronous port, once per caller-chosen flush point).
func (c *Connection) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil
	}
	if c.auth != nil && !c.auth.ConnectionWillSend(c) {
		c.mu.Unlock()
		return nil
	}

	if c.inFlightContext == nil && len(c.inFlightRemoteCalls) == 0 {
		if c.queues.isEmpty() {
			c.mu.Unlock()
			return nil
		}
		calls, callbacks := c.materialiseBatchLocked()
		if len(calls) == 0 {
			c.mu.Unlock()
			return nil
		}
		c.inFlightRemoteCalls = calls
		c.inFlightCallbacks = callbacks
	}
	c.sending = true
	calls := c.inFlightRemoteCalls
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "connection.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("dataGroup", c.dataGroup),
		attribute.Int("calls", len(calls)),
	)

	capsVal, _ := c.auth.Get(auth.FieldCapabilities)
	caps, _ := capsVal.(jmap.Capabilities)
	maxCalls, hasMax := caps.MaxCallsInRequest()

	c.mu.Lock()
	if hasMax && len(calls) > maxCalls && c.inFlightContext == nil {
		c.inFlightContext = &pageContext{createdIDs: map[string]string{}}
	}
	pctx := c.inFlightContext
	c.mu.Unlock()

	allResponses := make(map[string]jmap.MethodResponse, len(calls))

	for {
		start := 0
		if pctx != nil {
			start = pctx.doneCount
		}
		end := len(calls)
		if hasMax {
			end = slicePageEnd(calls, start, maxCalls)
		}
		page := calls[start:end]

		apiURLVal, _ := c.auth.Get(auth.FieldAPIURL)
		tokenVal, _ := c.auth.Get(auth.FieldAccessToken)
		apiURL, _ := apiURLVal.(string)
		token, _ := tokenVal.(string)

		req := jmap.BatchRequest{MethodCalls: page}
		if caps != nil {
			req.Using = caps.Keys()
		}
		if pctx != nil {
			req.CreatedIDs = pctx.createdIDs
		}

		resp, err := c.transport.Send(ctx, apiURL, token, req, false)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.handleSendError(ctx, err)
			return err
		}

		if resp.SessionState != "" && c.cachedSessionState != "" && resp.SessionState != c.cachedSessionState {
			go c.refreshSessionBestEffort(context.Background())
		}
		if resp.SessionState != "" {
			c.cachedSessionState = resp.SessionState
		}

		if len(resp.MethodResponses) == 0 || resp.AllServerUnavailable() {
			c.handleConnectionFailure(ctx)
			return fmt.Errorf("jmap: %s connection unavailable", c.dataGroup)
		}

		c.dispatch(ctx, calls, resp.MethodResponses)
		for _, r := range resp.MethodResponses {
			allResponses[r.ClientTag] = r
		}
		if c.batchesCounter != nil {
			c.batchesCounter.Add(ctx, 1)
		}

		if pctx != nil {
			for k, v := range resp.CreatedIDs {
				pctx.createdIDs[k] = v
			}
			pctx.doneCount = end
			if pctx.doneCount < len(calls) {
				if c.pagesCounter != nil {
					c.pagesCounter.Add(ctx, 1)
				}
				continue
			}
		}
		break
	}

	c.mu.Lock()
	callbacks := c.inFlightCallbacks
	c.inFlightRemoteCalls = nil
	c.inFlightCallbacks = nil
	c.inFlightContext = nil
	c.sending = false
	c.mu.Unlock()

	c.auth.ConnectionSucceeded(c)
	c.runCallbacks(callbacks, calls, allResponses)
	return nil
}

// runCallbacks invokes every queued callback once its matching response is
// known (or the ["error", {}, ""] sentinel if it never arrived), per spec
// §4.3. Unconditional callbacks (empty ClientTag) are invoked with no
// bound response.
func (c *Connection) runCallbacks(callbacks []QueuedCallback, calls []jmap.MethodCall, responses map[string]jmap.MethodResponse) {
	for _, cb := range callbacks {
		if cb.ClientTag == "" {
			cb.Fn(map[string]any{}, "", nil)
			continue
		}
		resp, ok := responses[cb.ClientTag]
		if !ok {
			resp = jmap.MethodResponse{Name: "error", Arguments: map[string]any{}, ClientTag: cb.ClientTag}
		}
		var requestArgs map[string]any
		if idx, err := jmap.ClientTagIndex(cb.ClientTag); err == nil && idx < len(calls) {
			requestArgs = calls[idx].Arguments
		}
		cb.Fn(resp.Arguments, resp.Name, requestArgs)
	}
}

func (c *Connection) refreshSessionBestEffort(ctx context.Context) {
	if c.auth == nil {
		return
	}
	if err := c.auth.FetchSession(ctx); err != nil {
		c.logger.Warn("jmap session refresh failed", zap.String("dataGroup", c.dataGroup), zap.Error(err))
	}
}

// handleConnectionFailure implements the "methodResponses absent or all
// serverUnavailable" branch of spec §4.3: hand off to auth's retry
// scheduler without discarding the in-flight batch, so the next Flush
// call resends the same materialised request.
func (c *Connection) handleConnectionFailure(ctx context.Context) {
	if c.retriesCounter != nil {
		c.retriesCounter.Add(ctx, 1)
	}
	c.auth.ConnectionFailed(c, failure.RateLimitBackoff)
	c.clearSendingFlag()
}

// handleSendError classifies a transport-level failure per spec §4.4 and
// acts on the resulting verdict.
func (c *Connection) handleSendError(ctx context.Context, err error) {
	var httpErr *transport.HTTPError
	var verdict failure.Verdict
	if errors.As(err, &httpErr) {
		verdict = failure.ClassifyHTTPStatus(httpErr.StatusCode, false, false)
	} else {
		verdict = failure.ClassifyError(err)
	}

	switch verdict.Outcome {
	case failure.OutcomeDiscard:
		c.logger.Warn("jmap batch discarded", zap.String("dataGroup", c.dataGroup), zap.Error(err))
		c.discardInFlight()
	case failure.OutcomeReAuth:
		c.auth.DidLoseAuthentication()
		c.clearSendingFlag()
	case failure.OutcomeRefreshSessionAndResend:
		go c.refreshSessionBestEffort(context.Background())
		c.clearSendingFlag()
	case failure.OutcomeBackoffAndRetry, failure.OutcomeRetry:
		if c.retriesCounter != nil {
			c.retriesCounter.Add(ctx, 1)
		}
		c.auth.ConnectionFailed(c, verdict.RetryAfter)
		c.clearSendingFlag()
	}
}

// discardInFlight clears the in-flight batch and flushes pending callbacks
// with empty responses, per spec §4.4's "discard always flushes pending
// callbacks with ([], [])".
func (c *Connection) discardInFlight() {
	c.mu.Lock()
	callbacks := c.inFlightCallbacks
	c.inFlightRemoteCalls = nil
	c.inFlightCallbacks = nil
	c.inFlightContext = nil
	c.sending = false
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb.Fn(map[string]any{}, "", nil)
	}
}

func (c *Connection) clearSendingFlag() {
	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()
}

// IsDirty reports whether this Connection has a set/copy commit or any
// in-flight request outstanding, the signal the aggregate source fans out
// over (spec §5).
func (c *Connection) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending || len(c.inFlightRemoteCalls) > 0 {
		return true
	}
	return len(c.queues.sendQueue) > 0
}
