package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/probelab/assesscore/domain"
)

func Test_Product_Create_WithoutPrice(t *testing.T) {
	// arrange
	now := time.Now()
	product := domain.NewProduct()

	// act
	err := product.Create(uuid.NewString(), uuid.NewString(), "Leadership 360", "", "tmpl-1", nil, "", now, domain.Metadata{})

	// assert
	assert.NoError(t, err)
	assert.Nil(t, product.Price())
}

func Test_Product_ChangePrice_RecordsOldPrice(t *testing.T) {
	// arrange
	now := time.Now()
	initial := decimal.NewFromFloat(49.90)
	product := givenProduct(t, &initial, now)

	// act
	newPrice := decimal.NewFromFloat(59.90)
	err := product.ChangePrice(&newPrice, "EUR", now, domain.Metadata{})

	// assert
	assert.NoError(t, err)
	assert.True(t, product.Price().Equal(newPrice))

	events := product.UncommittedEvents()
	payload, ok := events[len(events)-1].Payload.(domain.ProductPriceChanged)
	assert.True(t, ok)
	assert.NotNil(t, payload.OldPrice)
	assert.True(t, payload.OldPrice.Equal(initial))
	assert.True(t, payload.NewPrice.Equal(newPrice))
}

func Test_Product_ChangePrice_FailsWithoutExistingPrice(t *testing.T) {
	// arrange - a product created without a price cannot have it changed
	now := time.Now()
	product := givenProduct(t, nil, now)

	// act
	newPrice := decimal.NewFromInt(100)
	err := product.ChangePrice(&newPrice, "USD", now, domain.Metadata{})

	// assert
	assert.ErrorContains(t, err, "Product has no price")
}

func Test_Product_ChangePrice_Validation(t *testing.T) {
	now := time.Now()
	negative := decimal.NewFromInt(-1)
	positive := decimal.NewFromInt(10)

	testCases := []struct {
		name        string
		price       *decimal.Decimal
		currency    string
		expectedErr string
	}{
		{name: "nil price", price: nil, currency: "EUR", expectedErr: "Price must not be empty"},
		{name: "negative price", price: &negative, currency: "EUR", expectedErr: "Price must not be negative"},
		{name: "missing currency", price: &positive, currency: "", expectedErr: "Currency must not be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			initial := decimal.NewFromInt(50)
			product := givenProduct(t, &initial, now)

			// act
			err := product.ChangePrice(tc.price, tc.currency, now, domain.Metadata{})

			// assert
			assert.ErrorContains(t, err, tc.expectedErr)
		})
	}
}

func Test_Product_Discontinue_IsTerminal(t *testing.T) {
	// arrange
	now := time.Now()
	product := givenProduct(t, nil, now)

	// act
	assert.NoError(t, product.Discontinue("replaced by v2", now, domain.Metadata{}))

	// assert
	assert.True(t, product.IsDiscontinued())
	price := decimal.NewFromInt(10)
	assert.ErrorContains(t, product.Update("New Name", "", now, domain.Metadata{}), "Product is discontinued")
	assert.ErrorContains(t, product.ChangePrice(&price, "EUR", now, domain.Metadata{}), "Product is discontinued")
	assert.ErrorContains(t, product.Discontinue("again", now, domain.Metadata{}), "Product is discontinued")
}

func Test_Product_Create_FailsWhenAlreadyCreated(t *testing.T) {
	// arrange
	now := time.Now()
	product := givenProduct(t, nil, now)

	// act
	err := product.Create(product.ID(), product.TenantID(), "Leadership 360", "", "tmpl-1", nil, "", now, domain.Metadata{})

	// assert
	assert.ErrorContains(t, err, "Product already exists")
}

func Test_Product_ReplayReproducesState(t *testing.T) {
	// arrange
	now := time.Now()
	initial := decimal.NewFromFloat(49.90)
	original := givenProduct(t, &initial, now)
	newPrice := decimal.NewFromFloat(59.90)
	assert.NoError(t, original.ChangePrice(&newPrice, "EUR", now, domain.Metadata{}))

	// act
	replayed, err := domain.LoadProductFromHistory(original.UncommittedEvents())

	// assert
	assert.NoError(t, err)
	assert.Equal(t, original.Name(), replayed.Name())
	assert.True(t, replayed.Price().Equal(newPrice))
	assert.Equal(t, original.Currency(), replayed.Currency())
	assert.Equal(t, original.Version(), replayed.Version())
}

func givenProduct(t *testing.T, price *decimal.Decimal, now time.Time) *domain.Product {
	t.Helper()

	currency := ""
	if price != nil {
		currency = "EUR"
	}

	product := domain.NewProduct()
	err := product.Create(uuid.NewString(), uuid.NewString(), "Leadership 360", "360 degree feedback", "tmpl-1", price, currency, now, domain.Metadata{})
	assert.NoError(t, err)

	return product
}
