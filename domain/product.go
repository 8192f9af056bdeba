package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product event type identifiers.
const (
	ProductCreatedEventType      = "ProductCreated"
	ProductUpdatedEventType      = "ProductUpdated"
	ProductPriceChangedEventType = "ProductPriceChanged"
	ProductDiscontinuedEventType = "ProductDiscontinued"
)

// ProductCreated records the creation of an assessment product. Price is
// optional at creation; a product without a price cannot be sold but can be
// configured.
type ProductCreated struct {
	Name        string
	Description string
	TemplateID  string
	Price       *decimal.Decimal
	Currency    string
}

func (ProductCreated) IsEventType() string     { return ProductCreatedEventType }
func (ProductCreated) IsAggregateType() string { return AggregateTypeProduct }

// ProductUpdated records changes to product metadata. Empty fields are
// unchanged.
type ProductUpdated struct {
	Name        string
	Description string
}

func (ProductUpdated) IsEventType() string     { return ProductUpdatedEventType }
func (ProductUpdated) IsAggregateType() string { return AggregateTypeProduct }

// ProductPriceChanged records a price change, keeping the previous price for
// the audit trail.
type ProductPriceChanged struct {
	OldPrice *decimal.Decimal
	NewPrice decimal.Decimal
	Currency string
}

func (ProductPriceChanged) IsEventType() string     { return ProductPriceChangedEventType }
func (ProductPriceChanged) IsAggregateType() string { return AggregateTypeProduct }

// ProductDiscontinued records the transition into the discontinued terminal
// state.
type ProductDiscontinued struct {
	Reason         string
	DiscontinuedAt time.Time
}

func (ProductDiscontinued) IsEventType() string     { return ProductDiscontinuedEventType }
func (ProductDiscontinued) IsAggregateType() string { return AggregateTypeProduct }

// Product is the aggregate for one sellable assessment product. Prices use
// arbitrary-precision decimals; float drift in money is not acceptable.
type Product struct {
	Root

	name         string
	description  string
	templateID   string
	price        *decimal.Decimal
	currency     string
	discontinued bool
}

// NewProduct returns a fresh Product ready for replay.
func NewProduct() *Product {
	return &Product{}
}

// LoadProductFromHistory replays persisted events into a fresh Product.
func LoadProductFromHistory(history Events) (*Product, error) {
	p := NewProduct()
	if err := replay(p, history); err != nil {
		return nil, err
	}

	return p, nil
}

// Create raises the creation event. Price may be nil; when set it must not be
// negative and needs a currency.
func (p *Product) Create(
	productID string,
	tenantID string,
	name string,
	description string,
	templateID string,
	price *decimal.Decimal,
	currency string,
	now time.Time,
	metadata Metadata,
) error {

	if p.exists() {
		return NewError("Product already exists")
	}

	if name == "" {
		return NewError("Product name must not be empty")
	}

	if price != nil {
		if price.IsNegative() {
			return NewError("Price must not be negative")
		}
		if currency == "" {
			return NewError("Currency must not be empty")
		}
	}

	return raise(p, productID, tenantID, ProductCreated{
		Name:        name,
		Description: description,
		TemplateID:  templateID,
		Price:       price,
		Currency:    currency,
	}, now, metadata)
}

// Update changes product metadata. Empty fields are left unchanged.
func (p *Product) Update(name string, description string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("Product does not exist")
	}

	if p.discontinued {
		return NewError("Product is discontinued")
	}

	return raise(p, p.id, p.tenantID, ProductUpdated{
		Name:        name,
		Description: description,
	}, now, metadata)
}

// ChangePrice sets a new price, recording the previous one. The product must
// already have a price; the initial price is set at creation.
func (p *Product) ChangePrice(newPrice *decimal.Decimal, currency string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("Product does not exist")
	}

	if p.discontinued {
		return NewError("Product is discontinued")
	}

	if p.price == nil {
		return NewError("Product has no price")
	}

	if newPrice == nil {
		return NewError("Price must not be empty")
	}

	if newPrice.IsNegative() {
		return NewError("Price must not be negative")
	}

	if currency == "" {
		return NewError("Currency must not be empty")
	}

	return raise(p, p.id, p.tenantID, ProductPriceChanged{
		OldPrice: p.price,
		NewPrice: *newPrice,
		Currency: currency,
	}, now, metadata)
}

// Discontinue transitions the product into the discontinued terminal state.
func (p *Product) Discontinue(reason string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("Product does not exist")
	}

	if p.discontinued {
		return NewError("Product is discontinued")
	}

	return raise(p, p.id, p.tenantID, ProductDiscontinued{
		Reason:         reason,
		DiscontinuedAt: now,
	}, now, metadata)
}

// Name returns the product name.
func (p *Product) Name() string {
	return p.name
}

// TemplateID returns the assessment template sold under this product.
func (p *Product) TemplateID() string {
	return p.templateID
}

// Price returns the current price, nil when none was ever set.
func (p *Product) Price() *decimal.Decimal {
	return p.price
}

// Currency returns the currency code for the current price.
func (p *Product) Currency() string {
	return p.currency
}

// IsDiscontinued reports whether the product is in the terminal state.
func (p *Product) IsDiscontinued() bool {
	return p.discontinued
}

func (p *Product) root() *Root {
	return &p.Root
}

func (p *Product) apply(event Event) error {
	switch payload := event.Payload.(type) {
	case ProductCreated:
		p.name = payload.Name
		p.description = payload.Description
		p.templateID = payload.TemplateID
		p.price = payload.Price
		p.currency = payload.Currency

	case ProductUpdated:
		if payload.Name != "" {
			p.name = payload.Name
		}
		if payload.Description != "" {
			p.description = payload.Description
		}

	case ProductPriceChanged:
		newPrice := payload.NewPrice
		p.price = &newPrice
		p.currency = payload.Currency

	case ProductDiscontinued:
		p.discontinued = true

	default:
		return Errorf("unhandled event type %s for Product", event.EventType)
	}

	return nil
}
