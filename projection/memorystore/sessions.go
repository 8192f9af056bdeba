package memorystore

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

type documentKey struct {
	id       string
	tenantID string
}

// SessionStore is an in-memory projection.SessionStore.
type SessionStore struct {
	mu        sync.RWMutex
	documents map[documentKey]projection.SessionDocument
	byToken   map[string]documentKey
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		documents: make(map[documentKey]projection.SessionDocument),
		byToken:   make(map[string]documentKey),
	}
}

// CreateProjection seeds the document from the creation event. Re-creating an
// existing document is a no-op so replays are safe.
func (s *SessionStore) CreateProjection(_ context.Context, event domain.Event) error {
	doc, err := projection.BuildSessionDocumentFrom(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: doc.SessionID, tenantID: doc.TenantID}
	if _, exists := s.documents[key]; exists {
		return nil
	}

	s.documents[key] = doc
	s.byToken[doc.Token] = key

	return nil
}

// ApplyEvent folds the event into the stored document.
func (s *SessionStore) ApplyEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: event.AggregateID, tenantID: event.TenantID}
	doc, exists := s.documents[key]
	if !exists {
		return projection.ErrDocumentNotFound
	}

	doc = cloneSessionDocument(doc)
	if err := doc.Apply(event); err != nil {
		return err
	}

	s.documents[key] = doc

	return nil
}

// GetSession returns the document for one session.
func (s *SessionStore) GetSession(_ context.Context, sessionID string, tenantID string) (projection.SessionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[documentKey{id: sessionID, tenantID: tenantID}]
	if !exists {
		return projection.SessionDocument{}, projection.ErrDocumentNotFound
	}

	return cloneSessionDocument(doc), nil
}

// GetByToken resolves an access token to its session document.
func (s *SessionStore) GetByToken(_ context.Context, token string, tenantID string) (projection.SessionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, exists := s.byToken[token]
	if !exists || key.tenantID != tenantID {
		return projection.SessionDocument{}, projection.ErrDocumentNotFound
	}

	return cloneSessionDocument(s.documents[key]), nil
}

// ListSessions returns the tenant's sessions matching the filter.
func (s *SessionStore) ListSessions(_ context.Context, tenantID string, filter projection.SessionFilter) ([]projection.SessionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.SessionDocument) bool {
		return doc.TenantID == tenantID && matchesSessionFilter(doc, filter)
	}), nil
}

// ListSessionsAcrossTenants returns matching sessions from all tenants.
func (s *SessionStore) ListSessionsAcrossTenants(_ context.Context, filter projection.SessionFilter) ([]projection.SessionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.SessionDocument) bool {
		return matchesSessionFilter(doc, filter)
	}), nil
}

func (s *SessionStore) collect(match func(projection.SessionDocument) bool) []projection.SessionDocument {
	documents := make([]projection.SessionDocument, 0)
	for _, doc := range s.documents {
		if match(doc) {
			documents = append(documents, cloneSessionDocument(doc))
		}
	}

	return documents
}

func matchesSessionFilter(doc projection.SessionDocument, filter projection.SessionFilter) bool {
	if filter.ParticipantID != "" && doc.ParticipantID != filter.ParticipantID {
		return false
	}
	if filter.Status != "" && doc.Status != filter.Status {
		return false
	}

	return true
}

func cloneSessionDocument(doc projection.SessionDocument) projection.SessionDocument {
	clone := doc

	clone.Responses = make(map[string]projection.ResponseDocument, len(doc.Responses))
	for questionID, response := range doc.Responses {
		clone.Responses[questionID] = response
	}

	if doc.StartedAt != nil {
		startedAt := *doc.StartedAt
		clone.StartedAt = &startedAt
	}
	if doc.CompletedAt != nil {
		completedAt := *doc.CompletedAt
		clone.CompletedAt = &completedAt
	}

	return clone
}

var _ projection.SessionStore = (*SessionStore)(nil)
