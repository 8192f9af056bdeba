package memorystore

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

// ProductStore is an in-memory projection.ProductStore.
type ProductStore struct {
	mu        sync.RWMutex
	documents map[documentKey]projection.ProductDocument
}

// NewProductStore creates an empty in-memory product store.
func NewProductStore() *ProductStore {
	return &ProductStore{
		documents: make(map[documentKey]projection.ProductDocument),
	}
}

// CreateProjection seeds the document from the creation event.
func (s *ProductStore) CreateProjection(_ context.Context, event domain.Event) error {
	doc, err := projection.BuildProductDocumentFrom(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: doc.ProductID, tenantID: doc.TenantID}
	if _, exists := s.documents[key]; exists {
		return nil
	}

	s.documents[key] = doc

	return nil
}

// ApplyEvent folds the event into the stored document.
func (s *ProductStore) ApplyEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{id: event.AggregateID, tenantID: event.TenantID}
	doc, exists := s.documents[key]
	if !exists {
		return projection.ErrDocumentNotFound
	}

	doc = cloneProductDocument(doc)
	if err := doc.Apply(event); err != nil {
		return err
	}

	s.documents[key] = doc

	return nil
}

// GetProduct returns the document for one product.
func (s *ProductStore) GetProduct(_ context.Context, productID string, tenantID string) (projection.ProductDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[documentKey{id: productID, tenantID: tenantID}]
	if !exists {
		return projection.ProductDocument{}, projection.ErrDocumentNotFound
	}

	return cloneProductDocument(doc), nil
}

// ListProducts returns the tenant's products matching the filter.
func (s *ProductStore) ListProducts(_ context.Context, tenantID string, filter projection.ProductFilter) ([]projection.ProductDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.ProductDocument) bool {
		return doc.TenantID == tenantID && matchesProductFilter(doc, filter)
	}), nil
}

// ListProductsAcrossTenants returns matching products from all tenants.
func (s *ProductStore) ListProductsAcrossTenants(_ context.Context, filter projection.ProductFilter) ([]projection.ProductDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(doc projection.ProductDocument) bool {
		return matchesProductFilter(doc, filter)
	}), nil
}

func (s *ProductStore) collect(match func(projection.ProductDocument) bool) []projection.ProductDocument {
	documents := make([]projection.ProductDocument, 0)
	for _, doc := range s.documents {
		if match(doc) {
			documents = append(documents, cloneProductDocument(doc))
		}
	}

	return documents
}

func matchesProductFilter(doc projection.ProductDocument, filter projection.ProductFilter) bool {
	if !filter.IncludeDiscontinued && doc.Discontinued {
		return false
	}

	return true
}

func cloneProductDocument(doc projection.ProductDocument) projection.ProductDocument {
	clone := doc

	clone.PriceHistory = make([]projection.PriceChangeDocument, len(doc.PriceHistory))
	copy(clone.PriceHistory, doc.PriceHistory)

	if doc.Price != nil {
		price := *doc.Price
		clone.Price = &price
	}

	return clone
}

var _ projection.ProductStore = (*ProductStore)(nil)
