package projection

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/probelab/assesscore/domain"
)

var (
	// ErrNotCreationEvent is returned when CreateProjection is called with
	// anything but the aggregate's creation-type event.
	ErrNotCreationEvent = errors.New("event is not a creation-type event")

	// ErrUnsupportedEvent is returned when an event of a foreign aggregate
	// type reaches a document or store it does not belong to.
	ErrUnsupportedEvent = errors.New("event type is not supported by this projection")
)

// ResponseDocument is the latest answer to one question.
type ResponseDocument struct {
	Value      any       `json:"value"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// SessionDocument is the read-side view of one assessment session.
type SessionDocument struct {
	SessionID       string                      `json:"sessionId"`
	TenantID        string                      `json:"tenantId"`
	ParticipantID   string                      `json:"participantId"`
	TemplateID      string                      `json:"templateId"`
	Token           string                      `json:"token"`
	Status          domain.SessionStatus        `json:"status"`
	CurrentPage     int                         `json:"currentPage"`
	Responses       map[string]ResponseDocument `json:"responses"`
	ExpiresAt       time.Time                   `json:"expiresAt"`
	StartedAt       *time.Time                  `json:"startedAt,omitempty"`
	CompletedAt     *time.Time                  `json:"completedAt,omitempty"`
	SuspendedReason string                      `json:"suspendedReason,omitempty"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
	Version         int64                       `json:"version"`
}

// BuildSessionDocumentFrom seeds a document from the creation event.
func BuildSessionDocumentFrom(event domain.Event) (SessionDocument, error) {
	payload, ok := event.Payload.(domain.SessionCreated)
	if !ok {
		return SessionDocument{}, fmt.Errorf("%w: %s", ErrNotCreationEvent, event.EventType)
	}

	return SessionDocument{
		SessionID:     event.AggregateID,
		TenantID:      event.TenantID,
		ParticipantID: payload.ParticipantID,
		TemplateID:    payload.TemplateID,
		Token:         payload.Token,
		Status:        domain.SessionStatusPending,
		CurrentPage:   0,
		Responses:     make(map[string]ResponseDocument),
		ExpiresAt:     payload.ExpiresAt,
		CreatedAt:     event.OccurredAt,
		UpdatedAt:     event.OccurredAt,
		Version:       event.Version,
	}, nil
}

// Apply folds one event into the document, mirroring the aggregate's own
// apply as field deltas. Stale events (version at or below the document's)
// are skipped.
func (doc *SessionDocument) Apply(event domain.Event) error {
	if event.Version <= doc.Version {
		return nil
	}

	switch payload := event.Payload.(type) {
	case domain.SessionCreated:
		// Creation reaching Apply means the document was seeded already.
		return nil

	case domain.SessionStarted:
		doc.Status = domain.SessionStatusActive
		doc.CurrentPage = 1
		startedAt := payload.StartedAt
		doc.StartedAt = &startedAt

	case domain.ResponseRecorded:
		if doc.Responses == nil {
			doc.Responses = make(map[string]ResponseDocument)
		}
		doc.Responses[payload.QuestionID] = ResponseDocument{
			Value:      payload.Value,
			AnsweredAt: payload.AnsweredAt,
		}

	case domain.PageCompleted:
		doc.CurrentPage = payload.Page

	case domain.SessionCompleted:
		doc.Status = domain.SessionStatusCompleted
		completedAt := payload.CompletedAt
		doc.CompletedAt = &completedAt
		if payload.FinalPage > 0 {
			doc.CurrentPage = payload.FinalPage
		}

	case domain.SessionExpired:
		doc.Status = domain.SessionStatusExpired

	case domain.SessionSuspended:
		doc.Status = domain.SessionStatusSuspended
		doc.SuspendedReason = payload.Reason

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.EventType)
	}

	doc.Version = event.Version
	doc.UpdatedAt = event.OccurredAt

	return nil
}

// LicensePoolDocument is the read-side view of one license pool. Available is
// stored denormalized so low-inventory pools can be filtered in the database.
type LicensePoolDocument struct {
	PoolID           string    `json:"poolId"`
	TenantID         string    `json:"tenantId"`
	ProductID        string    `json:"productId"`
	Total            int       `json:"total"`
	Consumed         int       `json:"consumed"`
	Available        int       `json:"available"`
	WarningThreshold int       `json:"warningThreshold"`
	Warning          bool      `json:"warning"`
	Depleted         bool      `json:"depleted"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Version          int64     `json:"version"`
}

// BuildLicensePoolDocumentFrom seeds a document from the creation event.
func BuildLicensePoolDocumentFrom(event domain.Event) (LicensePoolDocument, error) {
	payload, ok := event.Payload.(domain.LicensePoolCreated)
	if !ok {
		return LicensePoolDocument{}, fmt.Errorf("%w: %s", ErrNotCreationEvent, event.EventType)
	}

	doc := LicensePoolDocument{
		PoolID:           event.AggregateID,
		TenantID:         event.TenantID,
		ProductID:        payload.ProductID,
		Total:            payload.InitialLicenses,
		WarningThreshold: payload.WarningThreshold,
		CreatedAt:        event.OccurredAt,
		UpdatedAt:        event.OccurredAt,
		Version:          event.Version,
	}
	doc.refreshDerived()

	return doc, nil
}

// Apply folds one event into the document. Stale events are skipped.
func (doc *LicensePoolDocument) Apply(event domain.Event) error {
	if event.Version <= doc.Version {
		return nil
	}

	switch payload := event.Payload.(type) {
	case domain.LicensePoolCreated:
		return nil

	case domain.LicenseConsumed:
		doc.Consumed++

	case domain.LicensesAdded:
		doc.Total += payload.Count

	case domain.LicenseReleased:
		doc.Consumed--

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.EventType)
	}

	doc.refreshDerived()
	doc.Version = event.Version
	doc.UpdatedAt = event.OccurredAt

	return nil
}

func (doc *LicensePoolDocument) refreshDerived() {
	doc.Available = doc.Total - doc.Consumed
	doc.Warning = doc.Available <= doc.WarningThreshold
	doc.Depleted = doc.Available == 0
}

// UserDocument is an embedded company user in the read model.
type UserDocument struct {
	UserID string          `json:"userId"`
	Email  string          `json:"email"`
	Name   string          `json:"name"`
	Role   domain.UserRole `json:"role"`
}

// CompanyDocument is the read-side view of one company.
type CompanyDocument struct {
	CompanyID     string         `json:"companyId"`
	TenantID      string         `json:"tenantId"`
	Name          string         `json:"name"`
	Industry      string         `json:"industry,omitempty"`
	Address       string         `json:"address,omitempty"`
	Users         []UserDocument `json:"users"`
	Deactivated   bool           `json:"deactivated"`
	DeactivatedAt *time.Time     `json:"deactivatedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Version       int64          `json:"version"`
}

// BuildCompanyDocumentFrom seeds a document from the creation event.
func BuildCompanyDocumentFrom(event domain.Event) (CompanyDocument, error) {
	payload, ok := event.Payload.(domain.CompanyCreated)
	if !ok {
		return CompanyDocument{}, fmt.Errorf("%w: %s", ErrNotCreationEvent, event.EventType)
	}

	return CompanyDocument{
		CompanyID: event.AggregateID,
		TenantID:  event.TenantID,
		Name:      payload.Name,
		Industry:  payload.Industry,
		Users:     []UserDocument{userDocumentFrom(payload.Representative)},
		CreatedAt: event.OccurredAt,
		UpdatedAt: event.OccurredAt,
		Version:   event.Version,
	}, nil
}

// Apply folds one event into the document. Stale events are skipped.
func (doc *CompanyDocument) Apply(event domain.Event) error {
	if event.Version <= doc.Version {
		return nil
	}

	switch payload := event.Payload.(type) {
	case domain.CompanyCreated:
		return nil

	case domain.UserAdded:
		doc.Users = append(doc.Users, userDocumentFrom(payload.User))

	case domain.CompanyUpdated:
		if payload.Name != "" {
			doc.Name = payload.Name
		}
		if payload.Industry != "" {
			doc.Industry = payload.Industry
		}
		if payload.Address != "" {
			doc.Address = payload.Address
		}

	case domain.CompanyDeactivated:
		doc.Deactivated = true
		deactivatedAt := payload.DeactivatedAt
		doc.DeactivatedAt = &deactivatedAt

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.EventType)
	}

	doc.Version = event.Version
	doc.UpdatedAt = event.OccurredAt

	return nil
}

func userDocumentFrom(user domain.User) UserDocument {
	return UserDocument{
		UserID: user.UserID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}
}

// PriceChangeDocument is one entry in a product's price history.
type PriceChangeDocument struct {
	OldPrice  *decimal.Decimal `json:"oldPrice,omitempty"`
	NewPrice  decimal.Decimal  `json:"newPrice"`
	Currency  string           `json:"currency"`
	ChangedAt time.Time        `json:"changedAt"`
}

// ProductDocument is the read-side view of one product, including the full
// price history for audit.
type ProductDocument struct {
	ProductID    string                `json:"productId"`
	TenantID     string                `json:"tenantId"`
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	TemplateID   string                `json:"templateId"`
	Price        *decimal.Decimal      `json:"price,omitempty"`
	Currency     string                `json:"currency,omitempty"`
	PriceHistory []PriceChangeDocument `json:"priceHistory"`
	Discontinued bool                  `json:"discontinued"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	Version      int64                 `json:"version"`
}

// BuildProductDocumentFrom seeds a document from the creation event.
func BuildProductDocumentFrom(event domain.Event) (ProductDocument, error) {
	payload, ok := event.Payload.(domain.ProductCreated)
	if !ok {
		return ProductDocument{}, fmt.Errorf("%w: %s", ErrNotCreationEvent, event.EventType)
	}

	return ProductDocument{
		ProductID:    event.AggregateID,
		TenantID:     event.TenantID,
		Name:         payload.Name,
		Description:  payload.Description,
		TemplateID:   payload.TemplateID,
		Price:        payload.Price,
		Currency:     payload.Currency,
		PriceHistory: []PriceChangeDocument{},
		CreatedAt:    event.OccurredAt,
		UpdatedAt:    event.OccurredAt,
		Version:      event.Version,
	}, nil
}

// Apply folds one event into the document. Stale events are skipped.
func (doc *ProductDocument) Apply(event domain.Event) error {
	if event.Version <= doc.Version {
		return nil
	}

	switch payload := event.Payload.(type) {
	case domain.ProductCreated:
		return nil

	case domain.ProductUpdated:
		if payload.Name != "" {
			doc.Name = payload.Name
		}
		if payload.Description != "" {
			doc.Description = payload.Description
		}

	case domain.ProductPriceChanged:
		newPrice := payload.NewPrice
		doc.Price = &newPrice
		doc.Currency = payload.Currency
		doc.PriceHistory = append(doc.PriceHistory, PriceChangeDocument{
			OldPrice:  payload.OldPrice,
			NewPrice:  payload.NewPrice,
			Currency:  payload.Currency,
			ChangedAt: event.OccurredAt,
		})

	case domain.ProductDiscontinued:
		doc.Discontinued = true

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.EventType)
	}

	doc.Version = event.Version
	doc.UpdatedAt = event.OccurredAt

	return nil
}

// ParticipantDocument is the read-side view of one participant.
type ParticipantDocument struct {
	ParticipantID string     `json:"participantId"`
	TenantID      string     `json:"tenantId"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	CompanyID     string     `json:"companyId"`
	SessionIDs    []string   `json:"sessionIds"`
	Deactivated   bool       `json:"deactivated"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Version       int64      `json:"version"`
}

// BuildParticipantDocumentFrom seeds a document from the creation event.
func BuildParticipantDocumentFrom(event domain.Event) (ParticipantDocument, error) {
	payload, ok := event.Payload.(domain.ParticipantRegistered)
	if !ok {
		return ParticipantDocument{}, fmt.Errorf("%w: %s", ErrNotCreationEvent, event.EventType)
	}

	return ParticipantDocument{
		ParticipantID: event.AggregateID,
		TenantID:      event.TenantID,
		Email:         payload.Email,
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		CompanyID:     payload.CompanyID,
		SessionIDs:    []string{},
		CreatedAt:     event.OccurredAt,
		UpdatedAt:     event.OccurredAt,
		Version:       event.Version,
	}, nil
}

// Apply folds one event into the document. Stale events are skipped.
func (doc *ParticipantDocument) Apply(event domain.Event) error {
	if event.Version <= doc.Version {
		return nil
	}

	switch payload := event.Payload.(type) {
	case domain.ParticipantRegistered:
		return nil

	case domain.ParticipantUpdated:
		if payload.Email != "" {
			doc.Email = payload.Email
		}
		if payload.FirstName != "" {
			doc.FirstName = payload.FirstName
		}
		if payload.LastName != "" {
			doc.LastName = payload.LastName
		}

	case domain.SessionAssigned:
		doc.SessionIDs = append(doc.SessionIDs, payload.SessionID)

	case domain.ParticipantDeactivated:
		doc.Deactivated = true
		deactivatedAt := payload.DeactivatedAt
		doc.DeactivatedAt = &deactivatedAt

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.EventType)
	}

	doc.Version = event.Version
	doc.UpdatedAt = event.OccurredAt

	return nil
}
