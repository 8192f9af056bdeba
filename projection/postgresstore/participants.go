package postgresstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

const participantsTableName = "participant_projections"

// ParticipantStore is the Postgres projection.ParticipantStore. Email and
// company are indexed because participant lookups almost always come in
// through one of them.
type ParticipantStore struct {
	base baseStore
}

// NewParticipantStore creates a participant store over the given database
// handle.
func NewParticipantStore(db *sqlx.DB) *ParticipantStore {
	return &ParticipantStore{
		base: baseStore{db: db, table: participantsTableName, idColumn: "participant_id"},
	}
}

// CreateProjection seeds the document from the creation event.
func (s *ParticipantStore) CreateProjection(ctx context.Context, event domain.Event) error {
	doc, err := projection.BuildParticipantDocumentFrom(event)
	if err != nil {
		return err
	}

	docJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling participant document: %w", err)
	}

	return s.base.insert(ctx, doc.ParticipantID, doc.TenantID, doc.Version, doc.UpdatedAt, docJSON, goqu.Record{
		"email":       doc.Email,
		"company_id":  doc.CompanyID,
		"deactivated": doc.Deactivated,
	})
}

// ApplyEvent folds the event into the stored document.
func (s *ParticipantStore) ApplyEvent(ctx context.Context, event domain.Event) error {
	docJSON, loadedVersion, err := s.base.load(ctx, event.AggregateID, event.TenantID)
	if err != nil {
		return err
	}

	var doc projection.ParticipantDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("unmarshaling participant document: %w", err)
	}

	if err := doc.Apply(event); err != nil {
		return err
	}

	if doc.Version == loadedVersion {
		return nil
	}

	updatedJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling participant document: %w", err)
	}

	return s.base.update(ctx, doc.ParticipantID, doc.TenantID, loadedVersion, doc.Version, doc.UpdatedAt, updatedJSON, goqu.Record{
		"email":       doc.Email,
		"deactivated": doc.Deactivated,
	})
}

// GetParticipant returns the document for one participant.
func (s *ParticipantStore) GetParticipant(ctx context.Context, participantID string, tenantID string) (projection.ParticipantDocument, error) {
	docJSON, _, err := s.base.load(ctx, participantID, tenantID)
	if err != nil {
		return projection.ParticipantDocument{}, err
	}

	return unmarshalParticipantDocument(docJSON)
}

// ListParticipants returns the tenant's participants matching the filter.
func (s *ParticipantStore) ListParticipants(ctx context.Context, tenantID string, filter projection.ParticipantFilter) ([]projection.ParticipantDocument, error) {
	conditions := append([]goqu.Expression{goqu.Ex{"tenant_id": tenantID}}, participantFilterConditions(filter)...)
	return s.listWith(ctx, conditions...)
}

// ListParticipantsAcrossTenants returns matching participants from all tenants.
func (s *ParticipantStore) ListParticipantsAcrossTenants(ctx context.Context, filter projection.ParticipantFilter) ([]projection.ParticipantDocument, error) {
	return s.listWith(ctx, participantFilterConditions(filter)...)
}

func (s *ParticipantStore) listWith(ctx context.Context, conditions ...goqu.Expression) ([]projection.ParticipantDocument, error) {
	rawDocs, err := s.base.list(ctx, conditions...)
	if err != nil {
		return nil, err
	}

	documents := make([]projection.ParticipantDocument, 0, len(rawDocs))
	for _, docJSON := range rawDocs {
		doc, err := unmarshalParticipantDocument(docJSON)
		if err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	return documents, nil
}

func participantFilterConditions(filter projection.ParticipantFilter) []goqu.Expression {
	var conditions []goqu.Expression

	if filter.CompanyID != "" {
		conditions = append(conditions, goqu.Ex{"company_id": filter.CompanyID})
	}
	if filter.Email != "" {
		conditions = append(conditions, goqu.Ex{"email": filter.Email})
	}
	if !filter.IncludeDeactivated {
		conditions = append(conditions, goqu.Ex{"deactivated": false})
	}

	return conditions
}

func unmarshalParticipantDocument(docJSON []byte) (projection.ParticipantDocument, error) {
	var doc projection.ParticipantDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return projection.ParticipantDocument{}, fmt.Errorf("unmarshaling participant document: %w", err)
	}

	return doc, nil
}

var _ projection.ParticipantStore = (*ParticipantStore)(nil)
