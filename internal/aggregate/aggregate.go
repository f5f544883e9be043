package aggregate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/joltmail/joltsync/internal/connection"
)

// Source fans out to one Connection per data group (mail, submission,
// contacts, calendars, and a peripheral group), per spec §5's "multiple
// Connections progress independently".
type Source struct {
	mu          sync.Mutex
	connections map[string]*connection.Connection
	logger      *zap.Logger
	bus         *StatusBus
}

// New builds a Source over connections, keyed by data group. A nil bus
// disables status publishing.
func New(connections map[string]*connection.Connection, bus *StatusBus, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	cp := make(map[string]*connection.Connection, len(connections))
	for group, conn := range connections {
		cp[group] = conn
	}
	return &Source{connections: cp, logger: logger, bus: bus}
}

// Connection returns the Connection registered for dataGroup, or nil.
func (s *Source) Connection(dataGroup string) *connection.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections[dataGroup]
}

// DataGroups returns the registered data groups in sorted order.
func (s *Source) DataGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]string, 0, len(s.connections))
	for g := range s.connections {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// IsDirty reports whether any Connection has in-flight set/copy work or a
// pending send, per spec §5.
func (s *Source) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.connections {
		if conn.IsDirty() {
			return true
		}
	}
	return false
}

// DirtyGroups reports which data groups are currently dirty.
func (s *Source) DirtyGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dirty []string
	for group, conn := range s.connections {
		if conn.IsDirty() {
			dirty = append(dirty, group)
		}
	}
	sort.Strings(dirty)
	return dirty
}

// Flush drains every Connection's work queues concurrently — each data
// group's Connection progresses independently, per spec §5 — and joins
// any errors. After flushing, it publishes each Connection's resulting
// dirty/idle state on the status bus, if one is configured.
func (s *Source) Flush(ctx context.Context) error {
	s.mu.Lock()
	connections := make(map[string]*connection.Connection, len(s.connections))
	for group, conn := range s.connections {
		connections[group] = conn
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(connections))
	i := 0
	indexOf := make(map[string]int, len(connections))
	for group := range connections {
		indexOf[group] = i
		i++
	}

	for group, conn := range connections {
		wg.Add(1)
		go func(group string, conn *connection.Connection) {
			defer wg.Done()
			if err := conn.Flush(ctx); err != nil {
				errs[indexOf[group]] = err
				s.logger.Warn("aggregate flush failed", zap.String("dataGroup", group), zap.Error(err))
			}
			s.publishStatus(ctx, group, conn.IsDirty())
		}(group, conn)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (s *Source) publishStatus(ctx context.Context, group string, dirty bool) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, group, dirty); err != nil {
		s.logger.Warn("status bus publish failed", zap.String("dataGroup", group), zap.Error(err))
	}
}
