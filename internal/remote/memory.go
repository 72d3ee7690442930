package remote

import (
	"context"
	"sort"
	"sync"
	"time"

	"pinvault/internal/domain/record"
)

// MemoryStore is an in-process Store with a push change feed. Tests
// and offline development run against it.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[int64]record.CloudRecord
	cursor   record.SyncCursor
	events   []Event
	watchers []chan Event
	signedIn bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[int64]record.CloudRecord),
		signedIn: true,
	}
}

// SetSignedIn toggles the simulated identity-provider session.
func (m *MemoryStore) SetSignedIn(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedIn = ok
}

func (m *MemoryStore) ListRecords(_ context.Context) ([]record.CloudRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.signedIn {
		return nil, ErrNotSignedIn
	}

	out := make([]record.CloudRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := rec
		cp.Record = rec.Record.Clone()
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) PutRecord(_ context.Context, rec record.CloudRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.signedIn {
		return ErrNotSignedIn
	}

	cp := rec
	cp.Record = rec.Record.Clone()
	m.records[rec.ID] = cp

	event := Event{
		RecordID:       rec.ID,
		DeviceID:       rec.DeviceID,
		CloudUpdatedAt: rec.CloudUpdatedAt,
		Deleted:        rec.Deleted,
	}
	m.events = append(m.events, event)
	for _, w := range m.watchers {
		select {
		case w <- event:
		default: // a stalled watcher never blocks writers
		}
	}
	return nil
}

func (m *MemoryStore) DeleteRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.signedIn {
		return ErrNotSignedIn
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) GetCursor(_ context.Context) (record.SyncCursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.signedIn {
		return record.SyncCursor{}, ErrNotSignedIn
	}
	return m.cursor, nil
}

func (m *MemoryStore) PutCursor(_ context.Context, cursor record.SyncCursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.signedIn {
		return ErrNotSignedIn
	}
	m.cursor = cursor
	return nil
}

func (m *MemoryStore) Changes(_ context.Context, since time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.signedIn {
		return nil, ErrNotSignedIn
	}

	var out []Event
	for _, e := range m.events {
		if !e.CloudUpdatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Watch returns a channel receiving every subsequent write.
func (m *MemoryStore) Watch() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 64)
	m.watchers = append(m.watchers, ch)
	return ch
}

// Record returns the stored document for assertions in tests.
func (m *MemoryStore) Record(id int64) (record.CloudRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Len reports the number of stored documents, tombstones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
