package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-terminal/internal/models"
)

func TestTransitionLegalPaths(t *testing.T) {
	paths := [][]Phase{
		{PhaseIdle, PhaseValidating, PhaseSubmitting, PhaseCommitted, PhaseIdle},
		{PhaseIdle, PhaseValidating, PhaseSubmitting, PhaseOfflineFallback, PhaseIdle},
		{PhaseIdle, PhaseValidating, PhaseSubmitting, PhaseRejected, PhaseIdle},
		{PhaseIdle, PhaseValidating, PhaseRejected, PhaseIdle},
	}

	for _, path := range paths {
		current := path[0]
		for _, next := range path[1:] {
			got, err := Transition(current, next)
			require.NoError(t, err, "%s -> %s", current, next)
			current = got
		}
		assert.Equal(t, PhaseIdle, current)
	}
}

func TestTransitionIllegal(t *testing.T) {
	cases := []struct{ from, to Phase }{
		{PhaseIdle, PhaseSubmitting},
		{PhaseIdle, PhaseCommitted},
		{PhaseValidating, PhaseCommitted},
		{PhaseCommitted, PhaseSubmitting},
		{PhaseRejected, PhaseValidating},
	}

	for _, tc := range cases {
		got, err := Transition(tc.from, tc.to)
		assert.Error(t, err, "%s -> %s should be illegal", tc.from, tc.to)
		assert.Equal(t, tc.from, got, "failed transition must not move the phase")
	}
}

func liveMap(products ...models.Product) map[string]models.Product {
	m := make(map[string]models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

func cartItem(id string, price float64, qty int) models.CartItem {
	return models.CartItem{
		ProductID: id,
		Name:      "Product " + id,
		Price:     decimal.NewFromFloat(price),
		Quantity:  qty,
	}
}

func TestValidateEmptyCart(t *testing.T) {
	rej := Validate(nil, decimal.Zero, models.PaymentMethodCash, decimal.Zero, nil)

	require.NotNil(t, rej)
	assert.Equal(t, RejectEmptyCart, rej.Reason)
}

func TestValidateInsufficientPayment(t *testing.T) {
	items := []models.CartItem{cartItem("p1", 50.00, 1)}
	live := liveMap(models.Product{ID: "p1", Stock: 10})
	total := decimal.NewFromFloat(57.50)

	rej := Validate(items, total, models.PaymentMethodCash, decimal.NewFromFloat(50.00), live)

	require.NotNil(t, rej)
	assert.Equal(t, RejectInsufficientPayment, rej.Reason)
	assert.True(t, rej.Required.Equal(total))
	assert.Equal(t, "50.00", rej.Received.StringFixed(2))
	assert.Contains(t, rej.Message, "57.50")
	assert.Contains(t, rej.Message, "50.00")
}

func TestValidateCardIgnoresReceived(t *testing.T) {
	items := []models.CartItem{cartItem("p1", 50.00, 1)}
	live := liveMap(models.Product{ID: "p1", Stock: 10})

	// The processor forces card received to the total before validating;
	// the payment check itself only applies to cash.
	rej := Validate(items, decimal.NewFromFloat(57.50), models.PaymentMethodCard, decimal.Zero, live)
	assert.Nil(t, rej)
}

func TestValidateStockDepletion(t *testing.T) {
	// Two in the cart but only one left on the shelf since add time.
	items := []models.CartItem{cartItem("p1", 10.00, 2)}
	live := liveMap(models.Product{ID: "p1", Stock: 1})

	rej := Validate(items, decimal.NewFromFloat(23.00), models.PaymentMethodCash, decimal.NewFromFloat(50.00), live)

	require.NotNil(t, rej)
	assert.Equal(t, RejectInsufficientStock, rej.Reason)
	assert.Equal(t, "p1", rej.ProductID)
	assert.Equal(t, 1, rej.Remaining)
}

func TestValidateUnknownProductTreatedAsNoStock(t *testing.T) {
	items := []models.CartItem{cartItem("gone", 10.00, 1)}

	rej := Validate(items, decimal.NewFromFloat(11.50), models.PaymentMethodCash, decimal.NewFromFloat(20.00), liveMap())

	require.NotNil(t, rej)
	assert.Equal(t, RejectInsufficientStock, rej.Reason)
	assert.Equal(t, 0, rej.Remaining)
}

func TestValidateOrderOfChecks(t *testing.T) {
	// Insufficient payment AND depleted stock: payment is reported
	// first, matching the check order.
	items := []models.CartItem{cartItem("p1", 10.00, 2)}
	live := liveMap(models.Product{ID: "p1", Stock: 1})

	rej := Validate(items, decimal.NewFromFloat(23.00), models.PaymentMethodCash, decimal.Zero, live)

	require.NotNil(t, rej)
	assert.Equal(t, RejectInsufficientPayment, rej.Reason)
}

func TestValidatePasses(t *testing.T) {
	items := []models.CartItem{cartItem("p1", 45.00, 2)}
	live := liveMap(models.Product{ID: "p1", Stock: 2})

	rej := Validate(items, decimal.NewFromFloat(103.50), models.PaymentMethodCash, decimal.NewFromFloat(110.00), live)
	assert.Nil(t, rej)
}
