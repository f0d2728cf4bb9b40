package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/story-grid/pkg/survey"
)

// MockStorage is a mock implementation of DraftStore for testing
type MockStorage struct {
	mu        sync.RWMutex
	drafts    map[string]survey.Document
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements DraftStore interface
var _ DraftStore = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		drafts: make(map[string]survey.Document),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail every save with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Saves returns how many saves succeeded
func (m *MockStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveDraft mocks saving a draft
func (m *MockStorage) SaveDraft(ctx context.Context, doc survey.Document) error {
	if err := ValidateRespondentID(doc.RespondentID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.drafts[doc.RespondentID] = doc
	m.saves++
	return nil
}

// LoadDraft mocks loading a draft
func (m *MockStorage) LoadDraft(ctx context.Context, respondentID string) (survey.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, exists := m.drafts[respondentID]
	if !exists {
		return survey.Document{}, fmt.Errorf("%w: %s", ErrDraftNotFound, respondentID)
	}
	return doc, nil
}

// DeleteDraft mocks deleting a draft
func (m *MockStorage) DeleteDraft(ctx context.Context, respondentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.drafts[respondentID]; !exists {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, respondentID)
	}
	delete(m.drafts, respondentID)
	return nil
}
