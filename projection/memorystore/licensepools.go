package memorystore

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

// LicensePoolStore is an in-memory projection.LicensePoolStore.
type LicensePoolStore struct {
	mu        sync.RWMutex
	documents map[documentKey]projection.LicensePoolDocument
}

// NewLicensePoolStore creates an empty in-memory license pool store.
func NewLicensePoolStore() *LicensePoolStore {
	return &LicensePoolStore{
		documents: make(map[documentKey]projection.LicensePoolDocument),
	}
}

// CreateProjection seeds the document from the creation event.
func (s *LicensePoolStore) CreateProjection(_ context.Context, event domain.Event) error {
	doc, err := projection.BuildLicensePoolDocumentFrom(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: doc.PoolID, tenantID: doc.TenantID}
	if _, exists := s.documents[key]; exists {
		return nil
	}

	s.documents[key] = doc

	return nil
}

// ApplyEvent folds the event into the stored document.
func (s *LicensePoolStore) ApplyEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: event.AggregateID, tenantID: event.TenantID}
	doc, exists := s.documents[key]
	if !exists {
		return projection.ErrDocumentNotFound
	}

	if err := doc.Apply(event); err != nil {
		return err
	}

	s.documents[key] = doc

	return nil
}

// GetLicensePool returns the document for one pool.
func (s *LicensePoolStore) GetLicensePool(_ context.Context, poolID string, tenantID string) (projection.LicensePoolDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[documentKey{id: poolID, tenantID: tenantID}]
	if !exists {
		return projection.LicensePoolDocument{}, projection.ErrDocumentNotFound
	}

	return doc, nil
}

// ListLicensePools returns the tenant's pools matching the filter.
func (s *LicensePoolStore) ListLicensePools(_ context.Context, tenantID string, filter projection.LicensePoolFilter) ([]projection.LicensePoolDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.LicensePoolDocument) bool {
		return doc.TenantID == tenantID && matchesLicensePoolFilter(doc, filter)
	}), nil
}

// ListLicensePoolsAcrossTenants returns matching pools from all tenants.
func (s *LicensePoolStore) ListLicensePoolsAcrossTenants(_ context.Context, filter projection.LicensePoolFilter) ([]projection.LicensePoolDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.LicensePoolDocument) bool {
		return matchesLicensePoolFilter(doc, filter)
	}), nil
}

func (s *LicensePoolStore) collect(match func(projection.LicensePoolDocument) bool) []projection.LicensePoolDocument {
	documents := make([]projection.LicensePoolDocument, 0)
	for _, doc := range s.documents {
		if match(doc) {
			documents = append(documents, doc)
		}
	}

	return documents
}

func matchesLicensePoolFilter(doc projection.LicensePoolDocument, filter projection.LicensePoolFilter) bool {
	if filter.ProductID != "" && doc.ProductID != filter.ProductID {
		return false
	}
	if filter.WarningOnly && !doc.Warning {
		return false
	}

	return true
}

var _ projection.LicensePoolStore = (*LicensePoolStore)(nil)
