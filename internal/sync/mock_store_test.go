package sync

import (
	"context"
	"sort"
	"time"

	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

// mockStore is a minimal in-memory store for sync tests.
type mockStore struct {
	conflicts map[string]*model.Conflict
	events    map[string][]*model.AuditEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		conflicts: make(map[string]*model.Conflict),
		events:    make(map[string][]*model.AuditEvent),
	}
}

func (m *mockStore) CreateConflict(_ context.Context, c *model.Conflict) error {
	m.conflicts[c.ID] = c
	return nil
}

func (m *mockStore) GetConflict(_ context.Context, id string) (*model.Conflict, error) {
	c, ok := m.conflicts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *mockStore) ListConflicts(_ context.Context, _ model.ConflictFilter) ([]*model.Conflict, int, error) {
	var result []*model.Conflict
	for _, c := range m.conflicts {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, len(result), nil
}

func (m *mockStore) OpenByFingerprint(_ context.Context, _ model.Fingerprint) (*model.Conflict, error) {
	return nil, nil
}

func (m *mockStore) LatestTerminalByFingerprint(_ context.Context, _ model.Fingerprint, _ time.Time) (*model.Conflict, error) {
	return nil, nil
}

func (m *mockStore) TransitionConflict(_ context.Context, id string, _ []model.Status, _ model.Status, _ string, _ time.Time) (*model.Conflict, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) LinkOptimization(_ context.Context, _, _ string) (*model.Conflict, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetByOptimizationID(_ context.Context, _ string) (*model.Conflict, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) RecordEvent(_ context.Context, e *model.AuditEvent) error {
	m.events[e.ConflictID] = append(m.events[e.ConflictID], e)
	return nil
}

func (m *mockStore) GetEvents(_ context.Context, conflictID string) ([]*model.AuditEvent, error) {
	return m.events[conflictID], nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }
