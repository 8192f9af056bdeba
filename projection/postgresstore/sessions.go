package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/projection"
)

const sessionsTableName = "session_projections"

// SessionStore is the Postgres projection.SessionStore. Besides the jsonb
// document it indexes token, participant and status for lookups and listing.
type SessionStore struct {
	base baseStore
}

// NewSessionStore creates a session store over the given database handle.
func NewSessionStore(db *sqlx.DB) *SessionStore {
	return &SessionStore{
		base: baseStore{db: db, table: sessionsTableName, idColumn: "session_id"},
	}
}

// CreateProjection seeds the document from the creation event.
func (s *SessionStore) CreateProjection(ctx context.Context, event domain.Event) error {
	doc, err := projection.BuildSessionDocumentFrom(event)
	if err != nil {
		return err
	}

	docJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling session document: %w", err)
	}

	return s.base.insert(ctx, doc.SessionID, doc.TenantID, doc.Version, doc.UpdatedAt, docJSON, goqu.Record{
		"token":          doc.Token,
		"participant_id": doc.ParticipantID,
		"status":         string(doc.Status),
	})
}

// ApplyEvent folds the event into the stored document.
func (s *SessionStore) ApplyEvent(ctx context.Context, event domain.Event) error {
	docJSON, loadedVersion, err := s.base.load(ctx, event.AggregateID, event.TenantID)
	if err != nil {
		return err
	}

	var doc projection.SessionDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("unmarshaling session document: %w", err)
	}

	if err := doc.Apply(event); err != nil {
		return err
	}

	if doc.Version == loadedVersion {
		return nil
	}

	updatedJSON, err := marshaler.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling session document: %w", err)
	}

	return s.base.update(ctx, doc.SessionID, doc.TenantID, loadedVersion, doc.Version, doc.UpdatedAt, updatedJSON, goqu.Record{
		"status": string(doc.Status),
	})
}

// GetSession returns the document for one session.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string, tenantID string) (projection.SessionDocument, error) {
	docJSON, _, err := s.base.load(ctx, sessionID, tenantID)
	if err != nil {
		return projection.SessionDocument{}, err
	}

	return unmarshalSessionDocument(docJSON)
}

// GetByToken resolves an access token to its session document.
func (s *SessionStore) GetByToken(ctx context.Context, token string, tenantID string) (projection.SessionDocument, error) {
	query, args, err := postgresDialect.
		From(sessionsTableName).
		Select("doc").
		Where(goqu.Ex{"token": token, "tenant_id": tenantID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return projection.SessionDocument{}, fmt.Errorf("building token query: %w", err)
	}

	var docJSON []byte
	if err := s.base.db.GetContext(ctx, &docJSON, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return projection.SessionDocument{}, projection.ErrDocumentNotFound
		}

		return projection.SessionDocument{}, fmt.Errorf("querying session by token: %w", err)
	}

	return unmarshalSessionDocument(docJSON)
}

// ListSessions returns the tenant's sessions matching the filter.
func (s *SessionStore) ListSessions(ctx context.Context, tenantID string, filter projection.SessionFilter) ([]projection.SessionDocument, error) {
	conditions := append([]goqu.Expression{goqu.Ex{"tenant_id": tenantID}}, sessionFilterConditions(filter)...)
	return s.listWith(ctx, conditions...)
}

// ListSessionsAcrossTenants returns matching sessions from all tenants.
func (s *SessionStore) ListSessionsAcrossTenants(ctx context.Context, filter projection.SessionFilter) ([]projection.SessionDocument, error) {
	return s.listWith(ctx, sessionFilterConditions(filter)...)
}

func (s *SessionStore) listWith(ctx context.Context, conditions ...goqu.Expression) ([]projection.SessionDocument, error) {
	rawDocs, err := s.base.list(ctx, conditions...)
	if err != nil {
		return nil, err
	}

	documents := make([]projection.SessionDocument, 0, len(rawDocs))
	for _, docJSON := range rawDocs {
		doc, err := unmarshalSessionDocument(docJSON)
		if err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	return documents, nil
}

func sessionFilterConditions(filter projection.SessionFilter) []goqu.Expression {
	var conditions []goqu.Expression

	if filter.ParticipantID != "" {
		conditions = append(conditions, goqu.Ex{"participant_id": filter.ParticipantID})
	}
	if filter.Status != "" {
		conditions = append(conditions, goqu.Ex{"status": string(filter.Status)})
	}

	return conditions
}

func unmarshalSessionDocument(docJSON []byte) (projection.SessionDocument, error) {
	var doc projection.SessionDocument
	if err := marshaler.Unmarshal(docJSON, &doc); err != nil {
		return projection.SessionDocument{}, fmt.Errorf("unmarshaling session document: %w", err)
	}

	return doc, nil
}

var _ projection.SessionStore = (*SessionStore)(nil)
