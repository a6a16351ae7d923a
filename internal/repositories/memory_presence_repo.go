package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/prudhvinik1/pairup/internal/models"
)

// MemoryPresenceStore is an in-process PresenceStore. Records are copied on the
// way in and out so callers never share memory with the store.
type MemoryPresenceStore struct {
	mu      sync.RWMutex
	records map[string]*models.UserRecord
}

func NewMemoryPresenceStore() *MemoryPresenceStore {
	return &MemoryPresenceStore{records: make(map[string]*models.UserRecord)}
}

func (s *MemoryPresenceStore) Get(ctx context.Context, id string) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (s *MemoryPresenceStore) Put(ctx context.Context, record *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = record.Clone()
	return nil
}

// Scan returns matching records ordered by id.
func (s *MemoryPresenceStore) Scan(ctx context.Context, match func(*models.UserRecord) bool) ([]*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.UserRecord
	for _, record := range s.records {
		if match(record) {
			records = append(records, record.Clone())
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
