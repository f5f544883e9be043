package connection

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joltmail/joltsync/internal/auth"
	"github.com/joltmail/joltsync/internal/changeset"
	"github.com/joltmail/joltsync/internal/failure"
	"github.com/joltmail/joltsync/internal/jmap"
	"github.com/joltmail/joltsync/internal/store"
)

const instrumentationName = "github.com/joltmail/joltsync/internal/connection"

// Transport is the HTTP round-trip collaborator the Connection drives; the
// one reference implementation is internal/transport.Client.
type Transport interface {
	Send(ctx context.Context, apiURL, accessToken string, batch jmap.BatchRequest, uploadDone bool) (*jmap.BatchResponse, error)
}

// pageContext is present iff the current in-flight batch has been split
// across more than one HTTP request (spec §3's inFlightContext).
type pageContext struct {
	createdIDs map[string]string
	doneCount  int
}

// Config configures a Connection.
type Config struct {
	DataGroup string
	Transport Transport
	Auth      auth.Auth
	Store     *store.Adaptor
	Registry  *HandlerRegistry
	Logger    *zap.Logger
}

// Connection is the request-batching and response-dispatch engine
// described in spec §1/§4.3: it accumulates fetches, refreshes, and
// commits into work queues and drains them into batched JMAP requests on
// Flush.
type Connection struct {
	dataGroup string
	transport Transport
	auth      auth.Auth
	store     *store.Adaptor
	registry  *HandlerRegistry
	logger    *zap.Logger

	tracer trace.Tracer
	meter  metric.Meter

	batchesCounter  metric.Int64Counter
	pagesCounter    metric.Int64Counter
	retriesCounter  metric.Int64Counter

	messageChanges *failure.ChangesBudget
	threadChanges  *failure.ChangesBudget
	retryConfig    *failure.RetryConfig

	mu                   sync.Mutex
	queues               *workQueues
	sending              bool
	cachedSessionState   string
	inFlightRemoteCalls  []jmap.MethodCall
	inFlightCallbacks    []QueuedCallback
	inFlightContext      *pageContext
}

// New builds a Connection from cfg. A nil Logger gets zap.NewNop(); a nil
// Registry gets an empty one.
func New(cfg Config) *Connection {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewHandlerRegistry()
	}
	c := &Connection{
		dataGroup:      cfg.DataGroup,
		transport:      cfg.Transport,
		auth:           cfg.Auth,
		store:          cfg.Store,
		registry:       cfg.Registry,
		logger:         cfg.Logger,
		tracer:         otel.Tracer(instrumentationName),
		meter:          otel.Meter(instrumentationName),
		messageChanges: failure.NewMessageChangesBudget(),
		threadChanges:  failure.NewThreadChangesBudget(),
		retryConfig:    failure.DefaultRetryConfig(),
		queues:         newWorkQueues(),
	}
	c.initMetrics()
	return c
}

func (c *Connection) initMetrics() {
	var err error
	c.batchesCounter, err = c.meter.Int64Counter(
		"joltsync_batches_total",
		metric.WithDescription("Total number of JMAP batches sent"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		c.logger.Warn("failed to create batches counter", zap.Error(err))
	}
	c.pagesCounter, err = c.meter.Int64Counter(
		"joltsync_batch_pages_total",
		metric.WithDescription("Total number of paginated continuations sent"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		c.logger.Warn("failed to create batch pages counter", zap.Error(err))
	}
	c.retriesCounter, err = c.meter.Int64Counter(
		"joltsync_retries_total",
		metric.WithDescription("Total number of batch send retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		c.logger.Warn("failed to create retries counter", zap.Error(err))
	}
}

// DataGroup implements auth.ConnectionHandle.
func (c *Connection) DataGroup() string {
	return c.dataGroup
}

// FetchRecord enqueues a targeted fetch for accountID/typeID/ids, flushed
// on the next Flush call.
func (c *Connection) FetchRecord(accountID, typeID string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues.enqueueRecordFetch(accountID, typeID, ids)
}

// FetchType enqueues a type-wide fetch (the JMAP analogue of "fetch
// everything the server has of this type").
func (c *Connection) FetchType(accountID, typeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues.enqueueTypeFetch(accountID, typeID)
}

// RefreshType enqueues a <Type>/changes call from sinceState.
func (c *Connection) RefreshType(accountID, typeID, sinceState string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues.enqueueTypeRefresh(accountID, typeID, sinceState)
}

// RefreshRecord enqueues a targeted refresh (re-fetch by id after an
// update notification) for accountID/typeID/ids.
func (c *Connection) RefreshRecord(accountID, typeID string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues.enqueueRecordRefresh(accountID, typeID, ids)
}

// FetchQuery enqueues a query fetch.
func (c *Connection) FetchQuery(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues.enqueueQuery(q)
}

// CommitChanges enqueues the method calls that commit cs and, if cb is
// non-nil, a callback fired once the commit's responses are dispatched.
func (c *Connection) CommitChanges(cs changeset.ChangeSet, cb func(args map[string]any, responseName string, requestArgs map[string]any)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := c.commitCallsLocked(cs)
	var lastTag string
	for _, call := range calls {
		idx := c.queues.enqueueCall(call)
		lastTag = fmt.Sprint(idx)
	}
	if cb != nil && lastTag != "" {
		c.queues.enqueueCallback(QueuedCallback{ClientTag: lastTag, Fn: cb})
	}
}

// CallMethod enqueues an arbitrary direct method call, useful for
// capability-specific methods the Connection has no built-in handler
// for. cb may be nil.
func (c *Connection) CallMethod(call jmap.MethodCall, cb func(args map[string]any, responseName string, requestArgs map[string]any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.queues.enqueueCall(call)
	if cb != nil {
		c.queues.enqueueCallback(QueuedCallback{ClientTag: fmt.Sprint(idx), Fn: cb})
	}
}

func (c *Connection) commitCallsLocked(cs changeset.ChangeSet) []jmap.MethodCall {
	if handlers, ok := c.registry.TypeHandlersFor(cs.PrimaryKey); ok && handlers.Commit != nil {
		return handlers.Commit(cs)
	}
	return genericCommitCalls(cs)
}
