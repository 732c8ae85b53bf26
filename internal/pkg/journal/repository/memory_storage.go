package repository

import (
	"context"
	"sync"

	"media_relay_bot/internal/pkg/journal/domain"
)

// DefaultMemoryCapacity is how many records the in-memory journal keeps.
const DefaultMemoryCapacity = 1000

// MemoryStorage keeps the latest records in a ring. Statistics cover every
// record ever saved, not only the retained ones.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*domain.RelayRecord
	next    int
	full    bool

	total  int
	failed int
	albums int
	byKind map[string]int

	// recently seen group ids, bounded like records
	groups    map[string]struct{}
	groupRing []string
	groupNext int
}

func NewMemoryStorage(capacity int) *MemoryStorage {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStorage{
		records:   make([]*domain.RelayRecord, capacity),
		byKind:    make(map[string]int),
		groups:    make(map[string]struct{}, capacity),
		groupRing: make([]string, capacity),
	}
}

func (m *MemoryStorage) SaveRelay(_ context.Context, record *domain.RelayRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *record
	m.records[m.next] = &r
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}

	m.total++
	if r.Status == domain.StatusFailed {
		m.failed++
	}
	if r.GroupID != "" {
		m.countAlbum(r.GroupID)
	}
	m.byKind[r.Kind]++
	return nil
}

func (m *MemoryStorage) GetRecentRelays(_ context.Context, limit int) ([]*domain.RelayRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.records)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]*domain.RelayRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.records)) % len(m.records)
		r := *m.records[idx]
		out = append(out, &r)
	}
	return out, nil
}

func (m *MemoryStorage) GetRelayStats(_ context.Context) (*domain.RelayStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKind := make(map[string]int, len(m.byKind))
	for k, v := range m.byKind {
		byKind[k] = v
	}
	return &domain.RelayStats{
		Total:  m.total,
		Failed: m.failed,
		Albums: m.albums,
		ByKind: byKind,
	}, nil
}

// countAlbum counts groupID once. Only the latest len(records) ids are
// remembered; a group is flushed once, so older ids do not come back.
func (m *MemoryStorage) countAlbum(groupID string) {
	if _, seen := m.groups[groupID]; seen {
		return
	}
	m.albums++
	if old := m.groupRing[m.groupNext]; old != "" {
		delete(m.groups, old)
	}
	m.groupRing[m.groupNext] = groupID
	m.groupNext = (m.groupNext + 1) % len(m.groupRing)
	m.groups[groupID] = struct{}{}
}
