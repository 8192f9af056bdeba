package command

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/projection"
)

// ProductHandler handles all product commands.
type ProductHandler struct {
	events eventstore.Store
	stores projection.Stores
	config handlerConfig
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(
	events eventstore.Store,
	stores projection.Stores,
	options ...Option,
) (*ProductHandler, error) {

	config := defaultHandlerConfig()
	for _, option := range options {
		if err := option(&config); err != nil {
			return nil, err
		}
	}

	return &ProductHandler{
		events: events,
		stores: stores,
		config: config,
	}, nil
}

// CreateProductCommand creates a product. Price is optional at creation.
type CreateProductCommand struct {
	ProductID   string
	TenantID    string
	Name        string
	Description string
	TemplateID  string
	Price       *decimal.Decimal
	Currency    string
	Metadata    domain.Metadata
}

// CreateProduct creates the product and returns its id.
func (h *ProductHandler) CreateProduct(ctx context.Context, cmd CreateProductCommand) (string, error) {
	productID := newAggregateID(cmd.ProductID)

	err := h.config.run(ctx, "CreateProduct", func(ctx context.Context) error {
		product, err := h.loadProduct(ctx, productID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := product.Create(
			productID, cmd.TenantID, cmd.Name, cmd.Description, cmd.TemplateID,
			cmd.Price, cmd.Currency, h.config.now(), cmd.Metadata,
		); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, product)
	})
	if err != nil {
		return "", err
	}

	return productID, nil
}

// UpdateProductCommand changes product metadata, never the price.
type UpdateProductCommand struct {
	ProductID   string
	TenantID    string
	Name        string
	Description string
	Metadata    domain.Metadata
}

// UpdateProduct updates the product's metadata.
func (h *ProductHandler) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) error {
	return h.config.run(ctx, "UpdateProduct", func(ctx context.Context) error {
		product, err := h.loadProduct(ctx, cmd.ProductID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := product.Update(cmd.Name, cmd.Description, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, product)
	})
}

// ChangeProductPriceCommand changes the price of a product that already has
// one, keeping the old price in the audit trail.
type ChangeProductPriceCommand struct {
	ProductID string
	TenantID  string
	NewPrice  *decimal.Decimal
	Currency  string
	Metadata  domain.Metadata
}

// ChangeProductPrice sets a new price on the product.
func (h *ProductHandler) ChangeProductPrice(ctx context.Context, cmd ChangeProductPriceCommand) error {
	return h.config.run(ctx, "ChangeProductPrice", func(ctx context.Context) error {
		product, err := h.loadProduct(ctx, cmd.ProductID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := product.ChangePrice(cmd.NewPrice, cmd.Currency, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, product)
	})
}

// DiscontinueProductCommand discontinues the product, terminally.
type DiscontinueProductCommand struct {
	ProductID string
	TenantID  string
	Reason    string
	Metadata  domain.Metadata
}

// DiscontinueProduct transitions the product into the discontinued state.
func (h *ProductHandler) DiscontinueProduct(ctx context.Context, cmd DiscontinueProductCommand) error {
	return h.config.run(ctx, "DiscontinueProduct", func(ctx context.Context) error {
		product, err := h.loadProduct(ctx, cmd.ProductID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := product.Discontinue(cmd.Reason, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, product)
	})
}

func (h *ProductHandler) loadProduct(ctx context.Context, productID string, tenantID string) (*domain.Product, error) {
	history, err := loadHistory(ctx, h.events, productID, tenantID)
	if err != nil {
		return nil, err
	}

	return domain.LoadProductFromHistory(history)
}
