package store

import (
	"sync"

	"go.uber.org/zap"
)

type recordKey struct {
	accountID string
	typeID    string
	id        string
}

// MemoryStore is an in-process reference implementation of Source. It is
// never persisted to disk, in keeping with the module's non-goals — it
// exists so the Connection's response-dispatch logic has something
// concrete to drive in tests and in the reference CLI.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[recordKey]map[string]any
	status     map[recordKey]Status
	typeStates map[string]string // "accountID:typeID" -> state
	storeKeys  map[recordKey]string
	nextKey    int
	logger     *zap.Logger
}

// NewMemoryStore creates an empty MemoryStore. logger may be nil, in which
// case a no-op logger is used.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		records:    make(map[recordKey]map[string]any),
		status:     make(map[recordKey]Status),
		typeStates: make(map[string]string),
		storeKeys:  make(map[recordKey]string),
		logger:     logger,
	}
}

func typeStateKey(accountID, typeID string) string {
	return accountID + ":" + typeID
}

func (m *MemoryStore) DidFetchRecords(accountID, typeID string, records []map[string]any, state string, hasMore bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		id, _ := rec["id"].(string)
		if id == "" {
			continue
		}
		key := recordKey{accountID, typeID, id}
		m.records[key] = rec
		m.status[key] = StatusReady
	}
	if state != "" {
		m.typeStates[typeStateKey(accountID, typeID)] = state
	}
	m.logger.Debug("fetched records",
		zap.String("accountId", accountID), zap.String("typeId", typeID),
		zap.Int("count", len(records)), zap.String("state", state))
}

func (m *MemoryStore) DidFetchPartialRecords(accountID, typeID string, records []map[string]any, hasMore bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		id, _ := rec["id"].(string)
		if id == "" {
			continue
		}
		key := recordKey{accountID, typeID, id}
		existing, ok := m.records[key]
		if !ok {
			existing = map[string]any{}
		}
		for k, v := range rec {
			existing[k] = v
		}
		m.records[key] = existing
	}
}

func (m *MemoryStore) CouldNotFindRecords(accountID, typeID string, ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		key := recordKey{accountID, typeID, id}
		delete(m.records, key)
		m.status[key] = StatusDestroyed
	}
}

func (m *MemoryStore) DidFetchUpdates(accountID, typeID string, updated, destroyed []string, oldState, newState string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if updated == nil && destroyed == nil {
		// Forced full reconciliation: mark every record of this type
		// obsolete so the next read re-fetches from scratch.
		for key := range m.records {
			if key.accountID == accountID && key.typeID == typeID {
				m.status[key] |= StatusObsolete
			}
		}
		m.typeStates[typeStateKey(accountID, typeID)] = newState
		return
	}

	for _, id := range destroyed {
		key := recordKey{accountID, typeID, id}
		delete(m.records, key)
		m.status[key] = StatusDestroyed
	}
	for _, id := range updated {
		key := recordKey{accountID, typeID, id}
		m.status[key] |= StatusObsolete
	}
	if newState != "" {
		m.typeStates[typeStateKey(accountID, typeID)] = newState
	}
}

func (m *MemoryStore) DidCommitCreate(accountID, typeID string, created map[string]map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for storeKey, fields := range created {
		id, _ := fields["id"].(string)
		if id == "" {
			continue
		}
		key := recordKey{accountID, typeID, id}
		m.records[key] = fields
		m.status[key] = StatusReady
		m.storeKeys[key] = storeKey
	}
}

func (m *MemoryStore) DidCommitUpdate(accountID, typeID string, updated map[string]map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, fields := range updated {
		key := recordKey{accountID, typeID, id}
		existing, ok := m.records[key]
		if !ok {
			existing = map[string]any{"id": id}
		}
		for k, v := range fields {
			existing[k] = v
		}
		m.records[key] = existing
		m.status[key] = StatusReady
	}
}

func (m *MemoryStore) DidCommitDestroy(accountID, typeID string, destroyed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range destroyed {
		key := recordKey{accountID, typeID, id}
		delete(m.records, key)
		m.status[key] = StatusDestroyed
	}
}

func (m *MemoryStore) DidNotCreate(accountID, typeID string, notCreated map[string]map[string]any) {
	m.logger.Warn("records not created", zap.String("typeId", typeID), zap.Int("count", len(notCreated)))
}

func (m *MemoryStore) DidNotUpdate(accountID, typeID string, notUpdated map[string]map[string]any) {
	m.logger.Warn("records not updated", zap.String("typeId", typeID), zap.Int("count", len(notUpdated)))
}

func (m *MemoryStore) DidNotDestroy(accountID, typeID string, notDestroyed map[string]map[string]any) {
	m.logger.Warn("records not destroyed", zap.String("typeId", typeID), zap.Int("count", len(notDestroyed)))
}

func (m *MemoryStore) CommitDidChangeState(accountID, typeID, newState string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeStates[typeStateKey(accountID, typeID)] = newState
}

func (m *MemoryStore) GetStoreKey(accountID, typeID, serverID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{accountID, typeID, serverID}
	if existing, ok := m.storeKeys[key]; ok {
		return existing
	}
	m.nextKey++
	storeKey := recordKeyStoreKey(m.nextKey)
	m.storeKeys[key] = storeKey
	return storeKey
}

func recordKeyStoreKey(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	if n < len(alphabet) {
		return string(alphabet[n])
	}
	return string(alphabet[n%len(alphabet)]) + recordKeyStoreKey(n/len(alphabet))
}

func (m *MemoryStore) GetStatus(accountID, typeID, id string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[recordKey{accountID, typeID, id}]
}

func (m *MemoryStore) SetStatus(accountID, typeID, id string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[recordKey{accountID, typeID, id}] = status
}

func (m *MemoryStore) GetTypeState(accountID, typeID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.typeStates[typeStateKey(accountID, typeID)]
}

// Record returns a copy of a record for assertions in tests. ok is false
// if no such record exists.
func (m *MemoryStore) Record(accountID, typeID, id string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{accountID, typeID, id}]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

var _ Source = (*MemoryStore)(nil)
