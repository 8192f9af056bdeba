package memorystore

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

// ParticipantStore is an in-memory projection.ParticipantStore.
type ParticipantStore struct {
	mu        sync.RWMutex
	documents map[documentKey]projection.ParticipantDocument
}

// NewParticipantStore creates an empty in-memory participant store.
func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{
		documents: make(map[documentKey]projection.ParticipantDocument),
	}
}

// CreateProjection seeds the document from the creation event.
func (s *ParticipantStore) CreateProjection(_ context.Context, event domain.Event) error {
	doc, err := projection.BuildParticipantDocumentFrom(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: doc.ParticipantID, tenantID: doc.TenantID}
	if _, exists := s.documents[key]; exists {
		return nil
	}

	s.documents[key] = doc

	return nil
}

// ApplyEvent folds the event into the stored document.
func (s *ParticipantStore) ApplyEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: event.AggregateID, tenantID: event.TenantID}
	doc, exists := s.documents[key]
	if !exists {
		return projection.ErrDocumentNotFound
	}

	doc = cloneParticipantDocument(doc)
	if err := doc.Apply(event); err != nil {
		return err
	}

	s.documents[key] = doc

	return nil
}

// GetParticipant returns the document for one participant.
func (s *ParticipantStore) GetParticipant(_ context.Context, participantID string, tenantID string) (projection.ParticipantDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[documentKey{id: participantID, tenantID: tenantID}]
	if !exists {
		return projection.ParticipantDocument{}, projection.ErrDocumentNotFound
	}

	return cloneParticipantDocument(doc), nil
}

// ListParticipants returns the tenant's participants matching the filter.
func (s *ParticipantStore) ListParticipants(_ context.Context, tenantID string, filter projection.ParticipantFilter) ([]projection.ParticipantDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.ParticipantDocument) bool {
		return doc.TenantID == tenantID && matchesParticipantFilter(doc, filter)
	}), nil
}

// ListParticipantsAcrossTenants returns matching participants from all tenants.
func (s *ParticipantStore) ListParticipantsAcrossTenants(_ context.Context, filter projection.ParticipantFilter) ([]projection.ParticipantDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.ParticipantDocument) bool {
		return matchesParticipantFilter(doc, filter)
	}), nil
}

func (s *ParticipantStore) collect(match func(projection.ParticipantDocument) bool) []projection.ParticipantDocument {
	documents := make([]projection.ParticipantDocument, 0)
	for _, doc := range s.documents {
		if match(doc) {
			documents = append(documents, cloneParticipantDocument(doc))
		}
	}

	return documents
}

func matchesParticipantFilter(doc projection.ParticipantDocument, filter projection.ParticipantFilter) bool {
	if filter.CompanyID != "" && doc.CompanyID != filter.CompanyID {
		return false
	}
	if filter.Email != "" && doc.Email != filter.Email {
		return false
	}
	if !filter.IncludeDeactivated && doc.Deactivated {
		return false
	}

	return true
}

func cloneParticipantDocument(doc projection.ParticipantDocument) projection.ParticipantDocument {
	clone := doc

	clone.SessionIDs = make([]string, len(doc.SessionIDs))
	copy(clone.SessionIDs, doc.SessionIDs)

	if doc.DeactivatedAt != nil {
		deactivatedAt := *doc.DeactivatedAt
		clone.DeactivatedAt = &deactivatedAt
	}

	return clone
}

var _ projection.ParticipantStore = (*ParticipantStore)(nil)
