package command

import (
	"context"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/projection"
)

// CompanyHandler handles all company commands.
type CompanyHandler struct {
	events eventstore.Store
	stores projection.Stores
	config handlerConfig
}

// NewCompanyHandler constructs a CompanyHandler.
func NewCompanyHandler(
	events eventstore.Store,
	stores projection.Stores,
	options ...Option,
) (*CompanyHandler, error) {

	config := defaultHandlerConfig()
	for _, option := range options {
		if err := option(&config); err != nil {
			return nil, err
		}
	}

	return &CompanyHandler{
		events: events,
		stores: stores,
		config: config,
	}, nil
}

// CreateCompanyCommand creates a company with its representative as the first
// embedded user. Representative.UserID is optional; a fresh one is generated
// when empty.
type CreateCompanyCommand struct {
	CompanyID      string
	TenantID       string
	Name           string
	Industry       string
	Representative domain.User
	Metadata       domain.Metadata
}

// CreateCompany creates the company and returns its id.
func (h *CompanyHandler) CreateCompany(ctx context.Context, cmd CreateCompanyCommand) (string, error) {
	companyID := newAggregateID(cmd.CompanyID)
	cmd.Representative.UserID = newAggregateID(cmd.Representative.UserID)

	err := h.config.run(ctx, "CreateCompany", func(ctx context.Context) error {
		company, err := h.loadCompany(ctx, companyID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := company.Create(
			companyID, cmd.TenantID, cmd.Name, cmd.Industry,
			cmd.Representative, h.config.now(), cmd.Metadata,
		); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, company)
	})
	if err != nil {
		return "", err
	}

	return companyID, nil
}

// AddUserCommand embeds an additional user into the company.
type AddUserCommand struct {
	CompanyID string
	TenantID  string
	User      domain.User
	Metadata  domain.Metadata
}

// AddUser adds a user to the company. The email must be unique within the
// company; the same email on another company is fine.
func (h *CompanyHandler) AddUser(ctx context.Context, cmd AddUserCommand) error {
	cmd.User.UserID = newAggregateID(cmd.User.UserID)

	return h.config.run(ctx, "AddUser", func(ctx context.Context) error {
		company, err := h.loadCompany(ctx, cmd.CompanyID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := company.AddUser(cmd.User, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, company)
	})
}

// UpdateCompanyCommand changes company metadata; empty fields stay unchanged.
type UpdateCompanyCommand struct {
	CompanyID string
	TenantID  string
	Name      string
	Industry  string
	Address   string
	Metadata  domain.Metadata
}

// UpdateCompany updates the company's metadata.
func (h *CompanyHandler) UpdateCompany(ctx context.Context, cmd UpdateCompanyCommand) error {
	return h.config.run(ctx, "UpdateCompany", func(ctx context.Context) error {
		company, err := h.loadCompany(ctx, cmd.CompanyID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := company.Update(cmd.Name, cmd.Industry, cmd.Address, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, company)
	})
}

// DeactivateCompanyCommand deactivates the company, terminally.
type DeactivateCompanyCommand struct {
	CompanyID string
	TenantID  string
	Reason    string
	Metadata  domain.Metadata
}

// DeactivateCompany transitions the company into the deactivated state.
func (h *CompanyHandler) DeactivateCompany(ctx context.Context, cmd DeactivateCompanyCommand) error {
	return h.config.run(ctx, "DeactivateCompany", func(ctx context.Context) error {
		company, err := h.loadCompany(ctx, cmd.CompanyID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := company.Deactivate(cmd.Reason, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, company)
	})
}

func (h *CompanyHandler) loadCompany(ctx context.Context, companyID string, tenantID string) (*domain.Company, error) {
	history, err := loadHistory(ctx, h.events, companyID, tenantID)
	if err != nil {
		return nil, err
	}

	return domain.LoadCompanyFromHistory(history)
}
