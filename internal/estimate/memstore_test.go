// internal/estimate/memstore_test.go
package estimate

import (
	"context"
	"encoding/json"
	"sync"

	"tour-estimate-workers/internal/models"
)

// memStore is an in-memory Store with the same conditional-write semantics
// as the postgres implementation.
type memStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.QuoteSession
	estimates map[string]*models.Estimate
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  map[string]*models.QuoteSession{},
		estimates: map[string]*models.Estimate{},
	}
}

// clone deep-copies through JSON so callers never share state with the store.
func clone[T any](v *T) *T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (m *memStore) GetSession(_ context.Context, id string) (*models.QuoteSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(s), nil
}

func (m *memStore) GetEstimate(_ context.Context, id string) (*models.Estimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.estimates[id]
	if !ok {
		return nil, ErrEstimateNotFound
	}
	return clone(e), nil
}

func (m *memStore) CreateForSession(_ context.Context, est *models.Estimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[est.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.EstimateID != nil {
		return ErrAlreadyAttached
	}
	m.estimates[est.ID] = clone(est)
	id := est.ID
	s.EstimateID = &id
	s.Status = models.SessionEstimateAttached
	return nil
}

func (m *memStore) MarkSubmitted(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if s.IsCompleted {
		return false, nil
	}
	s.IsCompleted = true
	if s.EstimateID != nil {
		if e := m.estimates[*s.EstimateID]; e != nil && e.Status == models.StatusDraft {
			e.Status = models.StatusPending
		}
	}
	return true, nil
}

func (m *memStore) TransitionStatus(_ context.Context, id string, from []models.EstimateStatus, to models.EstimateStatus) (models.EstimateStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.estimates[id]
	if !ok {
		return "", ErrEstimateNotFound
	}
	if !contains(from, e.Status) {
		return "", ErrStateConflict
	}
	prev := e.Status
	e.Status = to
	return prev, nil
}

func (m *memStore) AppendRevision(_ context.Context, id string, from []models.EstimateStatus, entry *models.RevisionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.estimates[id]
	if !ok {
		return ErrEstimateNotFound
	}
	if !contains(from, e.Status) {
		return ErrStateConflict
	}
	entry.PreviousStatus = e.Status
	e.Status = models.StatusPending
	e.RevisionHistory = append(e.RevisionHistory, *entry)
	return nil
}

func (m *memStore) LinkIdentity(_ context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.UserID != nil && *s.UserID != userID {
		return ErrIdentityConflict
	}
	s.UserID = &userID
	return nil
}

func (m *memStore) UpdateItems(_ context.Context, id string, allowed []models.EstimateStatus, fn func(*models.Estimate) error) (*models.Estimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.estimates[id]
	if !ok {
		return nil, ErrEstimateNotFound
	}
	if !contains(allowed, e.Status) {
		return nil, ErrStateConflict
	}
	working := clone(e)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.estimates[id] = clone(working)
	return working, nil
}
