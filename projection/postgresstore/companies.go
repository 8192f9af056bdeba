package postgresstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

const companiesTableName = "company_projections"

// CompanyStore is the Postgres projection.CompanyStore.
type CompanyStore struct {
	base baseStore
}

// NewCompanyStore creates a company store over the given database handle.
func NewCompanyStore(db *sqlx.DB) *CompanyStore {
	return &CompanyStore{
		base: baseStore{db: db, table: companiesTableName, idColumn: "company_id"},
	}
}

// CreateProjection seeds the document from the creation event.
func (s *CompanyStore) CreateProjection(ctx context.Context, event domain.Event) error {
	doc, err := projection.BuildCompanyDocumentFrom(event)
	if err != nil {
		return err
	}

	docJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling company document: %w", err)
	}

	return s.base.insert(ctx, doc.CompanyID, doc.TenantID, doc.Version, doc.UpdatedAt, docJSON, goqu.Record{
		"industry":    doc.Industry,
		"deactivated": doc.Deactivated,
	})
}

// ApplyEvent folds the event into the stored document.
func (s *CompanyStore) ApplyEvent(ctx context.Context, event domain.Event) error {
	docJSON, loadedVersion, err := s.base.load(ctx, event.AggregateID, event.TenantID)
	if err != nil {
		return err
	}

	var doc projection.CompanyDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("unmarshaling company document: %w", err)
	}

	if err := doc.Apply(event); err != nil {
		return err
	}

	if doc.Version == loadedVersion {
		return nil
	}

	updatedJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling company document: %w", err)
	}

	return s.base.update(ctx, doc.CompanyID, doc.TenantID, loadedVersion, doc.Version, doc.UpdatedAt, updatedJSON, goqu.Record{
		"industry":    doc.Industry,
		"deactivated": doc.Deactivated,
	})
}

// GetCompany returns the document for one company.
func (s *CompanyStore) GetCompany(ctx context.Context, companyID string, tenantID string) (projection.CompanyDocument, error) {
	docJSON, _, err := s.base.load(ctx, companyID, tenantID)
	if err != nil {
		return projection.CompanyDocument{}, err
	}

	return unmarshalCompanyDocument(docJSON)
}

// ListCompanies returns the tenant's companies matching the filter.
func (s *CompanyStore) ListCompanies(ctx context.Context, tenantID string, filter projection.CompanyFilter) ([]projection.CompanyDocument, error) {
	conditions := append([]goqu.Expression{goqu.Ex{"tenant_id": tenantID}}, companyFilterConditions(filter)...)
	return s.listWith(ctx, conditions...)
}

// ListCompaniesAcrossTenants returns matching companies from all tenants.
func (s *CompanyStore) ListCompaniesAcrossTenants(ctx context.Context, filter projection.CompanyFilter) ([]projection.CompanyDocument, error) {
	return s.listWith(ctx, companyFilterConditions(filter)...)
}

func (s *CompanyStore) listWith(ctx context.Context, conditions ...goqu.Expression) ([]projection.CompanyDocument, error) {
	rawDocs, err := s.base.list(ctx, conditions...)
	if err != nil {
		return nil, err
	}

	documents := make([]projection.CompanyDocument, 0, len(rawDocs))
	for _, docJSON := range rawDocs {
		doc, err := unmarshalCompanyDocument(docJSON)
		if err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	return documents, nil
}

func companyFilterConditions(filter projection.CompanyFilter) []goqu.Expression {
	var conditions []goqu.Expression

	if filter.Industry != "" {
		conditions = append(conditions, goqu.Ex{"industry": filter.Industry})
	}
	if !filter.IncludeDeactivated {
		conditions = append(conditions, goqu.Ex{"deactivated": false})
	}

	return conditions
}

func unmarshalCompanyDocument(docJSON []byte) (projection.CompanyDocument, error) {
	var doc projection.CompanyDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return projection.CompanyDocument{}, fmt.Errorf("unmarshaling company document: %w", err)
	}

	return doc, nil
}

var _ projection.CompanyStore = (*CompanyStore)(nil)
