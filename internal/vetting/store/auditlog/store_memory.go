// Package auditlog persists the append-only audit trail.
package auditlog

import (
	"context"
	"sort"
	"sync"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
)

// InMemoryStore keeps audit entries in a map keyed by application.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ApplicationID][]models.AuditEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.ApplicationID][]models.AuditEntry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ApplicationID] = append(s.entries[entry.ApplicationID], entry)
	return nil
}

// ListByApplication returns entries newest first.
func (s *InMemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.AuditEntry{}, s.entries[appID]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
