// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 8)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	// JMAP sync scope: which account/data group a log line belongs to
	if scope := SyncScopeFromContext(ctx); scope != nil {
		fields = append(fields,
			zap.String("sync.account", scope.AccountID),
			zap.String("sync.dataGroup", scope.DataGroup),
			zap.String("sync.connection", scope.Connection),
		)
	}

	// Session context (the JMAP Session object this connection negotiated)
	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		fields = append(fields, zap.String("session.id", sessionID))
	}

	// Batch ID (one round-trip of method calls materialised by a Connection)
	if batchID := BatchIDFromContext(ctx); batchID != "" {
		fields = append(fields, zap.String("batch.id", batchID))
	}

	return fields
}

// Context key types
type syncScopeCtxKey struct{}
type sessionCtxKey struct{}
type batchCtxKey struct{}

// SyncScope identifies the JMAP account, data group, and local connection a
// log line was emitted on behalf of. Unlike a generic request ID, these
// values are stable for the lifetime of a Connection and let log output be
// filtered down to "everything this engine did syncing Mail for account X"
// without grepping message text.
type SyncScope struct {
	AccountID  string // JMAP accountId, e.g. "u1138"
	DataGroup  string // capability URN, e.g. jmap.DataGroupMail
	Connection string // local connection/profile name, e.g. "work", "personal"
}

// Validation constants
const (
	maxScopeFieldLen = 64
	maxIDLen         = 128
)

var (
	// idFieldPattern allows alphanumeric, hyphen, underscore.
	idFieldPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// dataGroupPattern additionally allows the colons and dots a JMAP
	// capability URN is built from (e.g. "urn:ietf:params:jmap:mail").
	dataGroupPattern = regexp.MustCompile(`^[a-zA-Z0-9_:.-]+$`)
	// idPattern allows alphanumeric, hyphen, underscore with optional prefix
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// validateScopeField validates a SyncScope field against pattern.
func validateScopeField(field, name string, pattern *regexp.Regexp) error {
	if field == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(field) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(field) > maxScopeFieldLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxScopeFieldLen)
	}
	if !pattern.MatchString(field) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}

// validateID validates a session or batch ID.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// SyncScopeFromContext extracts the SyncScope from context.
func SyncScopeFromContext(ctx context.Context) *SyncScope {
	if s, ok := ctx.Value(syncScopeCtxKey{}).(*SyncScope); ok {
		return s
	}
	return nil
}

// WithSyncScope adds a SyncScope to context.
// Panics if scope is nil or contains invalid field values.
func WithSyncScope(ctx context.Context, scope *SyncScope) context.Context {
	if scope == nil {
		panic("logging: sync scope cannot be nil")
	}
	if err := validateScopeField(scope.AccountID, "SyncScope.AccountID", idFieldPattern); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	if err := validateScopeField(scope.DataGroup, "SyncScope.DataGroup", dataGroupPattern); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	if err := validateScopeField(scope.Connection, "SyncScope.Connection", idFieldPattern); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, syncScopeCtxKey{}, scope)
}

// SessionIDFromContext extracts the JMAP session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithSessionID adds the JMAP session ID to context.
// Panics if sessionID is empty or contains invalid characters.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if err := validateID(sessionID, "sessionID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, sessionCtxKey{}, sessionID)
}

// BatchIDFromContext extracts the batch ID from context.
func BatchIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(batchCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithBatchID adds a batch ID (one materialised round-trip of method calls)
// to context. Panics if batchID is empty or contains invalid characters.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	if err := validateID(batchID, "batchID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, batchCtxKey{}, batchID)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a default nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
