package memorystore

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

// CompanyStore is an in-memory projection.CompanyStore.
type CompanyStore struct {
	mu        sync.RWMutex
	documents map[documentKey]projection.CompanyDocument
}

// NewCompanyStore creates an empty in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		documents: make(map[documentKey]projection.CompanyDocument),
	}
}

// CreateProjection seeds the document from the creation event.
func (s *CompanyStore) CreateProjection(_ context.Context, event domain.Event) error {
	doc, err := projection.BuildCompanyDocumentFrom(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: doc.CompanyID, tenantID: doc.TenantID}
	if _, exists := s.documents[key]; exists {
		return nil
	}

	s.documents[key] = doc

	return nil
}

// ApplyEvent folds the event into the stored document.
func (s *CompanyStore) ApplyEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: event.AggregateID, tenantID: event.TenantID}
	doc, exists := s.documents[key]
	if !exists {
		return projection.ErrDocumentNotFound
	}

	doc = cloneCompanyDocument(doc)
	if err := doc.Apply(event); err != nil {
		return err
	}

	s.documents[key] = doc

	return nil
}

// GetCompany returns the document for one company.
func (s *CompanyStore) GetCompany(_ context.Context, companyID string, tenantID string) (projection.CompanyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[documentKey{id: companyID, tenantID: tenantID}]
	if !exists {
		return projection.CompanyDocument{}, projection.ErrDocumentNotFound
	}

	return cloneCompanyDocument(doc), nil
}

// ListCompanies returns the tenant's companies matching the filter.
func (s *CompanyStore) ListCompanies(_ context.Context, tenantID string, filter projection.CompanyFilter) ([]projection.CompanyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.CompanyDocument) bool {
		return doc.TenantID == tenantID && matchesCompanyFilter(doc, filter)
	}), nil
}

// ListCompaniesAcrossTenants returns matching companies from all tenants.
func (s *CompanyStore) ListCompaniesAcrossTenants(_ context.Context, filter projection.CompanyFilter) ([]projection.CompanyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.CompanyDocument) bool {
		return matchesCompanyFilter(doc, filter)
	}), nil
}

func (s *CompanyStore) collect(match func(projection.CompanyDocument) bool) []projection.CompanyDocument {
	documents := make([]projection.CompanyDocument, 0)
	for _, doc := range s.documents {
		if match(doc) {
			documents = append(documents, cloneCompanyDocument(doc))
		}
	}

	return documents
}

func matchesCompanyFilter(doc projection.CompanyDocument, filter projection.CompanyFilter) bool {
	if filter.Industry != "" && doc.Industry != filter.Industry {
		return false
	}
	if !filter.IncludeDeactivated && doc.Deactivated {
		return false
	}

	return true
}

func cloneCompanyDocument(doc projection.CompanyDocument) projection.CompanyDocument {
	clone := doc

	clone.Users = make([]projection.UserDocument, len(doc.Users))
	copy(clone.Users, doc.Users)

	if doc.DeactivatedAt != nil {
		deactivatedAt := *doc.DeactivatedAt
		clone.DeactivatedAt = &deactivatedAt
	}

	return clone
}

var _ projection.CompanyStore = (*CompanyStore)(nil)
