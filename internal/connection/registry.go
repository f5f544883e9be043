package connection

import (
	"context"

	"github.com/joltmail/joltsync/internal/changeset"
	"github.com/joltmail/joltsync/internal/jmap"
)

// ResponseHandler processes one method response's arguments. requestArgs
// is the arguments object of the call that produced this response, so a
// handler can recover context (e.g. which ids were requested).
type ResponseHandler func(ctx context.Context, args map[string]any, requestName string, requestArgs map[string]any)

// FetchFunc builds the method call(s) for a fetch or refresh of one type.
// ids is nil for a type-wide fetch; state is non-empty for a refresh.
type FetchFunc func(accountID, typeID string, ids []string, state string) []jmap.MethodCall

// CommitFunc builds the method call(s) that commit a change set.
type CommitFunc func(cs changeset.ChangeSet) []jmap.MethodCall

// QueryFunc builds the method call for a query fetch.
type QueryFunc func(q Query) jmap.MethodCall

// TypeHandlers holds the per-type overrides spec §4.3 calls "a string (a
// directive to call a built-in helper) or a function". Go has no
// polymorphic string-or-function value, so a nil field here means "use
// the Connection's built-in helper for this verb" and a non-nil field is
// the function override.
type TypeHandlers struct {
	Fetch   FetchFunc
	Refresh FetchFunc
	Commit  CommitFunc
	Query   QueryFunc
	// Precedence orders this type relative to others sharing a fetch
	// phase, lowest first. Types not assigning Precedence sort after
	// those that do, in registration order.
	Precedence int
}

// HandlerRegistry maps record type to its TypeHandlers and method/error
// name to its ResponseHandler. Registries layer via explicit
// copy-on-write composition (spec §9's replacement for the source's
// prototype-inheritance registries): Derive returns a child that reads
// through to its base until the child's own Handle/RegisterResponse call
// forces a private copy, so mutating a derived registry never leaks back
// into its base or sibling registries.
type HandlerRegistry struct {
	base *HandlerRegistry

	ownTypes     map[string]*TypeHandlers
	ownResponses map[string]ResponseHandler
}

// NewHandlerRegistry returns an empty root registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Derive returns a new registry that reads through to r for any type or
// response handler it has not itself registered.
func (r *HandlerRegistry) Derive() *HandlerRegistry {
	return &HandlerRegistry{base: r}
}

// Handle registers (or replaces) the TypeHandlers for typeID on this
// registry, copy-on-write: the first call on a freshly Derived registry
// allocates its own map rather than mutating the base's.
func (r *HandlerRegistry) Handle(typeID string, handlers TypeHandlers) {
	if r.ownTypes == nil {
		r.ownTypes = make(map[string]*TypeHandlers)
	}
	h := handlers
	r.ownTypes[typeID] = &h
}

// RegisterResponseHandler registers a named response handler, e.g.
// "Email/get" or an error-dispatch key built by errorDispatchKeys.
func (r *HandlerRegistry) RegisterResponseHandler(name string, h ResponseHandler) {
	if r.ownResponses == nil {
		r.ownResponses = make(map[string]ResponseHandler)
	}
	r.ownResponses[name] = h
}

// TypeHandlersFor looks up typeID, falling through to base registries.
// The zero value (ok=false) means no overrides were ever registered for
// this type; callers should fall back entirely to built-in behavior.
func (r *HandlerRegistry) TypeHandlersFor(typeID string) (TypeHandlers, bool) {
	for reg := r; reg != nil; reg = reg.base {
		if h, ok := reg.ownTypes[typeID]; ok {
			return *h, true
		}
	}
	return TypeHandlers{}, false
}

// ResponseHandlerFor looks up a response handler by exact name, falling
// through to base registries.
func (r *HandlerRegistry) ResponseHandlerFor(name string) (ResponseHandler, bool) {
	for reg := r; reg != nil; reg = reg.base {
		if h, ok := reg.ownResponses[name]; ok {
			return h, true
		}
	}
	return nil, false
}

// errorDispatchKeys returns the layered lookup keys for a method error,
// most specific first, per spec §7's "error_<Method>_<type> →
// error_<Method> → error_/<verb> → error_<type>". method is the request's
// method name (e.g. "Email/set"); errType is the JMAP error type (e.g.
// "invalidArguments").
func errorDispatchKeys(method, errType string) []string {
	verb := method
	if idx := lastSlashVerbIndex(method); idx >= 0 {
		verb = method[idx:]
	}
	return []string{
		"error_" + method + "_" + errType,
		"error_" + method,
		"error_" + verb,
		"error_" + errType,
	}
}

// lastSlashVerbIndex returns the index of the "/" separating type from
// verb in a method name like "Email/set", so the verb key can be built as
// "/set". Returns -1 if method has no "/".
func lastSlashVerbIndex(method string) int {
	for i := len(method) - 1; i >= 0; i-- {
		if method[i] == '/' {
			return i
		}
	}
	return -1
}

// LookupErrorHandler resolves a method error against the layered keys in
// errorDispatchKeys, returning the first match.
func (r *HandlerRegistry) LookupErrorHandler(method, errType string) (ResponseHandler, bool) {
	for _, key := range errorDispatchKeys(method, errType) {
		if h, ok := r.ResponseHandlerFor(key); ok {
			return h, true
		}
	}
	return nil, false
}
