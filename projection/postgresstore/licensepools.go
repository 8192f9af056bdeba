package postgresstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

const licensePoolsTableName = "license_pool_projections"

// LicensePoolStore is the Postgres projection.LicensePoolStore. The derived
// warning flag is indexed so low-inventory pools can be listed cheaply.
type LicensePoolStore struct {
	base baseStore
}

// NewLicensePoolStore creates a license pool store over the given database
// handle.
func NewLicensePoolStore(db *sqlx.DB) *LicensePoolStore {
	return &LicensePoolStore{
		base: baseStore{db: db, table: licensePoolsTableName, idColumn: "pool_id"},
	}
}

// CreateProjection seeds the document from the creation event.
func (s *LicensePoolStore) CreateProjection(ctx context.Context, event domain.Event) error {
	doc, err := projection.BuildLicensePoolDocumentFrom(event)
	if err != nil {
		return err
	}

	docJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling license pool document: %w", err)
	}

	return s.base.insert(ctx, doc.PoolID, doc.TenantID, doc.Version, doc.UpdatedAt, docJSON, goqu.Record{
		"product_id": doc.ProductID,
		"warning":    doc.Warning,
	})
}

// ApplyEvent folds the event into the stored document.
func (s *LicensePoolStore) ApplyEvent(ctx context.Context, event domain.Event) error {
	docJSON, loadedVersion, err := s.base.load(ctx, event.AggregateID, event.TenantID)
	if err != nil {
		return err
	}

	var doc projection.LicensePoolDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("unmarshaling license pool document: %w", err)
	}

	if err := doc.Apply(event); err != nil {
		return err
	}

	if doc.Version == loadedVersion {
		return nil
	}

	updatedJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling license pool document: %w", err)
	}

	return s.base.update(ctx, doc.PoolID, doc.TenantID, loadedVersion, doc.Version, doc.UpdatedAt, updatedJSON, goqu.Record{
		"warning": doc.Warning,
	})
}

// GetLicensePool returns the document for one pool.
func (s *LicensePoolStore) GetLicensePool(ctx context.Context, poolID string, tenantID string) (projection.LicensePoolDocument, error) {
	docJSON, _, err := s.base.load(ctx, poolID, tenantID)
	if err != nil {
		return projection.LicensePoolDocument{}, err
	}

	return unmarshalLicensePoolDocument(docJSON)
}

// ListLicensePools returns the tenant's pools matching the filter.
func (s *LicensePoolStore) ListLicensePools(ctx context.Context, tenantID string, filter projection.LicensePoolFilter) ([]projection.LicensePoolDocument, error) {
	conditions := append([]goqu.Expression{goqu.Ex{"tenant_id": tenantID}}, licensePoolFilterConditions(filter)...)
	return s.listWith(ctx, conditions...)
}

// ListLicensePoolsAcrossTenants returns matching pools from all tenants.
func (s *LicensePoolStore) ListLicensePoolsAcrossTenants(ctx context.Context, filter projection.LicensePoolFilter) ([]projection.LicensePoolDocument, error) {
	return s.listWith(ctx, licensePoolFilterConditions(filter)...)
}

func (s *LicensePoolStore) listWith(ctx context.Context, conditions ...goqu.Expression) ([]projection.LicensePoolDocument, error) {
	rawDocs, err := s.base.list(ctx, conditions...)
	if err != nil {
		return nil, err
	}

	documents := make([]projection.LicensePoolDocument, 0, len(rawDocs))
	for _, docJSON := range rawDocs {
		doc, err := unmarshalLicensePoolDocument(docJSON)
		if err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	return documents, nil
}

func licensePoolFilterConditions(filter projection.LicensePoolFilter) []goqu.Expression {
	var conditions []goqu.Expression

	if filter.ProductID != "" {
		conditions = append(conditions, goqu.Ex{"product_id": filter.ProductID})
	}
	if filter.WarningOnly {
		conditions = append(conditions, goqu.Ex{"warning": true})
	}

	return conditions
}

func unmarshalLicensePoolDocument(docJSON []byte) (projection.LicensePoolDocument, error) {
	var doc projection.LicensePoolDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return projection.LicensePoolDocument{}, fmt.Errorf("unmarshaling license pool document: %w", err)
	}

	return doc, nil
}

var _ projection.LicensePoolStore = (*LicensePoolStore)(nil)
