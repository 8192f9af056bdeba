package postgresstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

const productsTableName = "product_projections"

// ProductStore is the Postgres projection.ProductStore.
type ProductStore struct {
	base baseStore
}

// NewProductStore creates a product store over the given database handle.
func NewProductStore(db *sqlx.DB) *ProductStore {
	return &ProductStore{
		base: baseStore{db: db, table: productsTableName, idColumn: "product_id"},
	}
}

// CreateProjection seeds the document from the creation event.
func (s *ProductStore) CreateProjection(ctx context.Context, event domain.Event) error {
	doc, err := projection.BuildProductDocumentFrom(event)
	if err != nil {
		return err
	}

	docJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling product document: %w", err)
	}

	return s.base.insert(ctx, doc.ProductID, doc.TenantID, doc.Version, doc.UpdatedAt, docJSON, goqu.Record{
		"discontinued": doc.Discontinued,
	})
}

// ApplyEvent folds the event into the stored document.
func (s *ProductStore) ApplyEvent(ctx context.Context, event domain.Event) error {
	docJSON, loadedVersion, err := s.base.load(ctx, event.AggregateID, event.TenantID)
	if err != nil {
		return err
	}

	var doc projection.ProductDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("unmarshaling product document: %w", err)
	}

	if err := doc.Apply(event); err != nil {
		return err
	}

	if doc.Version == loadedVersion {
		return nil
	}

	updatedJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling product document: %w", err)
	}

	return s.base.update(ctx, doc.ProductID, doc.TenantID, loadedVersion, doc.Version, doc.UpdatedAt, updatedJSON, goqu.Record{
		"discontinued": doc.Discontinued,
	})
}

// GetProduct returns the document for one product.
func (s *ProductStore) GetProduct(ctx context.Context, productID string, tenantID string) (projection.ProductDocument, error) {
	docJSON, _, err := s.base.load(ctx, productID, tenantID)
	if err != nil {
		return projection.ProductDocument{}, err
	}

	return unmarshalProductDocument(docJSON)
}

// ListProducts returns the tenant's products matching the filter.
func (s *ProductStore) ListProducts(ctx context.Context, tenantID string, filter projection.ProductFilter) ([]projection.ProductDocument, error) {
	conditions := append([]goqu.Expression{goqu.Ex{"tenant_id": tenantID}}, productFilterConditions(filter)...)
	return s.listWith(ctx, conditions...)
}

// ListProductsAcrossTenants returns matching products from all tenants.
func (s *ProductStore) ListProductsAcrossTenants(ctx context.Context, filter projection.ProductFilter) ([]projection.ProductDocument, error) {
	return s.listWith(ctx, productFilterConditions(filter)...)
}

func (s *ProductStore) listWith(ctx context.Context, conditions ...goqu.Expression) ([]projection.ProductDocument, error) {
	rawDocs, err := s.base.list(ctx, conditions...)
	if err != nil {
		return nil, err
	}

	documents := make([]projection.ProductDocument, 0, len(rawDocs))
	for _, docJSON := range rawDocs {
		doc, err := unmarshalProductDocument(docJSON)
		if err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	return documents, nil
}

func productFilterConditions(filter projection.ProductFilter) []goqu.Expression {
	var conditions []goqu.Expression

	if !filter.IncludeDiscontinued {
		conditions = append(conditions, goqu.Ex{"discontinued": false})
	}

	return conditions
}

func unmarshalProductDocument(docJSON []byte) (projection.ProductDocument, error) {
	var doc projection.ProductDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return projection.ProductDocument{}, fmt.Errorf("unmarshaling product document: %w", err)
	}

	return doc, nil
}

var _ projection.ProductStore = (*ProductStore)(nil)
