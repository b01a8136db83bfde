// Package seen tracks which questions a session has already been asked.
package seen

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Store interface {
	Seen(ctx context.Context, sessionID uuid.UUID, questionID string) (bool, error)
	Mark(ctx context.Context, sessionID uuid.UUID, questionID string) error
	Reset(ctx context.Context, sessionID uuid.UUID) error
}

type memoryStore struct {
	mu  sync.Mutex
	ids map[uuid.UUID]map[string]struct{}
}

// NewMemory returns a process-local Store.
func NewMemory() Store {
	return &memoryStore{ids: map[uuid.UUID]map[string]struct{}{}}
}

func (m *memoryStore) Seen(_ context.Context, sessionID uuid.UUID, questionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[sessionID][questionID]
	return ok, nil
}

func (m *memoryStore) Mark(_ context.Context, sessionID uuid.UUID, questionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.ids[sessionID]
	if set == nil {
		set = map[string]struct{}{}
		m.ids[sessionID] = set
	}
	set[questionID] = struct{}{}
	return nil
}

func (m *memoryStore) Reset(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, sessionID)
	return nil
}
