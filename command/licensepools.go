package command

import (
	"context"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/projection"
)

// LicensePoolHandler handles all license pool commands.
type LicensePoolHandler struct {
	events eventstore.Store
	stores projection.Stores
	config handlerConfig
}

// NewLicensePoolHandler constructs a LicensePoolHandler.
func NewLicensePoolHandler(
	events eventstore.Store,
	stores projection.Stores,
	options ...Option,
) (*LicensePoolHandler, error) {

	config := defaultHandlerConfig()
	for _, option := range options {
		if err := option(&config); err != nil {
			return nil, err
		}
	}

	return &LicensePoolHandler{
		events: events,
		stores: stores,
		config: config,
	}, nil
}

// CreateLicensePoolCommand creates a license pool for a product.
type CreateLicensePoolCommand struct {
	PoolID           string
	TenantID         string
	ProductID        string
	InitialLicenses  int
	WarningThreshold int
	Metadata         domain.Metadata
}

// CreateLicensePool creates the pool and returns its id.
func (h *LicensePoolHandler) CreateLicensePool(ctx context.Context, cmd CreateLicensePoolCommand) (string, error) {
	poolID := newAggregateID(cmd.PoolID)

	err := h.config.run(ctx, "CreateLicensePool", func(ctx context.Context) error {
		pool, err := h.loadPool(ctx, poolID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := pool.Create(
			poolID, cmd.TenantID, cmd.ProductID,
			cmd.InitialLicenses, cmd.WarningThreshold, h.config.now(), cmd.Metadata,
		); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, pool)
	})
	if err != nil {
		return "", err
	}

	return poolID, nil
}

// ConsumeLicenseCommand consumes one license for a session. Two concurrent
// consumes of the last license serialize on the store's version check; the
// loser reloads, sees the pool depleted, and fails with "No licenses
// available".
type ConsumeLicenseCommand struct {
	PoolID    string
	TenantID  string
	SessionID string
	Metadata  domain.Metadata
}

// ConsumeLicense takes one license from the pool.
func (h *LicensePoolHandler) ConsumeLicense(ctx context.Context, cmd ConsumeLicenseCommand) error {
	return h.config.run(ctx, "ConsumeLicense", func(ctx context.Context) error {
		pool, err := h.loadPool(ctx, cmd.PoolID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := pool.Consume(cmd.SessionID, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, pool)
	})
}

// AddLicensesCommand tops up the pool.
type AddLicensesCommand struct {
	PoolID   string
	TenantID string
	Count    int
	Reason   string
	Metadata domain.Metadata
}

// AddLicenses adds licenses to the pool.
func (h *LicensePoolHandler) AddLicenses(ctx context.Context, cmd AddLicensesCommand) error {
	return h.config.run(ctx, "AddLicenses", func(ctx context.Context) error {
		pool, err := h.loadPool(ctx, cmd.PoolID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := pool.AddLicenses(cmd.Count, cmd.Reason, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, pool)
	})
}

// ReleaseLicenseCommand returns one consumed license, compensating a failed
// session creation.
type ReleaseLicenseCommand struct {
	PoolID    string
	TenantID  string
	SessionID string
	Reason    string
	Metadata  domain.Metadata
}

// ReleaseLicense returns one license to the pool.
func (h *LicensePoolHandler) ReleaseLicense(ctx context.Context, cmd ReleaseLicenseCommand) error {
	return h.config.run(ctx, "ReleaseLicense", func(ctx context.Context) error {
		pool, err := h.loadPool(ctx, cmd.PoolID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := pool.Release(cmd.SessionID, cmd.Reason, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, pool)
	})
}

func (h *LicensePoolHandler) loadPool(ctx context.Context, poolID string, tenantID string) (*domain.LicensePool, error) {
	history, err := loadHistory(ctx, h.events, poolID, tenantID)
	if err != nil {
		return nil, err
	}

	return domain.LoadLicensePoolFromHistory(history)
}
