package projection

import (
	"context"
	"errors"

	"github.com/probelab/assesscore/domain"
)

// ErrDocumentNotFound is returned by Get/ApplyEvent when no document exists
// for the requested key.
var ErrDocumentNotFound = errors.New("projection document not found")

// EntityStore is the write contract shared by all projection stores.
//
// CreateProjection accepts only the aggregate's creation-type event and seeds
// the document from its payload; any other event type is a contract violation
// (ErrNotCreationEvent). ApplyEvent loads the document, folds the event in,
// and persists the result; events with a version at or below the stored
// document's version are skipped, so applying the same event twice is safe.
type EntityStore interface {
	CreateProjection(ctx context.Context, event domain.Event) error
	ApplyEvent(ctx context.Context, event domain.Event) error
}

// SessionFilter narrows tenant-scoped session listings. Zero values match
// everything.
type SessionFilter struct {
	ParticipantID string
	Status        domain.SessionStatus
}

// SessionStore is the read-side store for sessions. Tokens are not event
// store keys; GetByToken is the secondary lookup command handlers use to
// resolve a token to a session.
type SessionStore interface {
	EntityStore

	GetSession(ctx context.Context, sessionID string, tenantID string) (SessionDocument, error)
	GetByToken(ctx context.Context, token string, tenantID string) (SessionDocument, error)
	ListSessions(ctx context.Context, tenantID string, filter SessionFilter) ([]SessionDocument, error)

	// ListSessionsAcrossTenants is the explicitly separate admin capability;
	// it must never back a tenant-facing query.
	ListSessionsAcrossTenants(ctx context.Context, filter SessionFilter) ([]SessionDocument, error)
}

// LicensePoolFilter narrows tenant-scoped pool listings.
type LicensePoolFilter struct {
	ProductID   string
	WarningOnly bool
}

// LicensePoolStore is the read-side store for license pools.
type LicensePoolStore interface {
	EntityStore

	GetLicensePool(ctx context.Context, poolID string, tenantID string) (LicensePoolDocument, error)
	ListLicensePools(ctx context.Context, tenantID string, filter LicensePoolFilter) ([]LicensePoolDocument, error)
	ListLicensePoolsAcrossTenants(ctx context.Context, filter LicensePoolFilter) ([]LicensePoolDocument, error)
}

// CompanyFilter narrows tenant-scoped company listings.
type CompanyFilter struct {
	Industry           string
	IncludeDeactivated bool
}

// CompanyStore is the read-side store for companies.
type CompanyStore interface {
	EntityStore

	GetCompany(ctx context.Context, companyID string, tenantID string) (CompanyDocument, error)
	ListCompanies(ctx context.Context, tenantID string, filter CompanyFilter) ([]CompanyDocument, error)
	ListCompaniesAcrossTenants(ctx context.Context, filter CompanyFilter) ([]CompanyDocument, error)
}

// ProductFilter narrows tenant-scoped product listings.
type ProductFilter struct {
	IncludeDiscontinued bool
}

// ProductStore is the read-side store for products.
type ProductStore interface {
	EntityStore

	GetProduct(ctx context.Context, productID string, tenantID string) (ProductDocument, error)
	ListProducts(ctx context.Context, tenantID string, filter ProductFilter) ([]ProductDocument, error)
	ListProductsAcrossTenants(ctx context.Context, filter ProductFilter) ([]ProductDocument, error)
}

// ParticipantFilter narrows tenant-scoped participant listings.
type ParticipantFilter struct {
	CompanyID          string
	Email              string
	IncludeDeactivated bool
}

// ParticipantStore is the read-side store for participants.
type ParticipantStore interface {
	EntityStore

	GetParticipant(ctx context.Context, participantID string, tenantID string) (ParticipantDocument, error)
	ListParticipants(ctx context.Context, tenantID string, filter ParticipantFilter) ([]ParticipantDocument, error)
	ListParticipantsAcrossTenants(ctx context.Context, filter ParticipantFilter) ([]ParticipantDocument, error)
}

// CheckpointStore persists the Projector's position in the global event
// sequence. Saving must be durable before the position is considered
// advanced.
type CheckpointStore interface {
	Checkpoint(ctx context.Context, projectorName string) (uint64, error)
	SaveCheckpoint(ctx context.Context, projectorName string, sequence uint64) error
}

// Stores bundles the five projection stores for components that fan events
// out by aggregate type.
type Stores struct {
	Sessions     SessionStore
	LicensePools LicensePoolStore
	Companies    CompanyStore
	Products     ProductStore
	Participants ParticipantStore
}

// Dispatch routes one event to the store for its aggregate type, taking the
// creation path for version-1 events and the incremental path otherwise.
func (s Stores) Dispatch(ctx context.Context, event domain.Event) error {
	store, err := s.storeFor(event.AggregateType)
	if err != nil {
		return err
	}

	if event.Version == 1 {
		return store.CreateProjection(ctx, event)
	}

	return store.ApplyEvent(ctx, event)
}

func (s Stores) storeFor(aggregateType string) (EntityStore, error) {
	switch aggregateType {
	case domain.AggregateTypeSession:
		return s.Sessions, nil
	case domain.AggregateTypeLicensePool:
		return s.LicensePools, nil
	case domain.AggregateTypeCompany:
		return s.Companies, nil
	case domain.AggregateTypeProduct:
		return s.Products, nil
	case domain.AggregateTypeParticipant:
		return s.Participants, nil
	default:
		return nil, errors.New("no projection store for aggregate type " + aggregateType)
	}
}
