package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-terminal/internal/models"
)

func item(price float64, qty int, taxRate float64) models.CartItem {
	return models.CartItem{
		ProductID: "p",
		Price:     decimal.NewFromFloat(price),
		Quantity:  qty,
		TaxRate: decimal.NullDecimal{
			Decimal: decimal.NewFromFloat(taxRate),
			Valid:   true,
		},
	}
}

func TestCalculateWorkedExample(t *testing.T) {
	// 2 x 45.00 at 15% VAT, cash 110.00.
	items := []models.CartItem{item(45.00, 2, 0.15)}

	totals := Calculate(items, decimal.NewFromFloat(0.15))

	assert.Equal(t, "90.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "13.50", totals.Tax.StringFixed(2))
	assert.Equal(t, "103.50", totals.Total.StringFixed(2))

	change := Change(decimal.NewFromFloat(110.00), totals.Total)
	assert.Equal(t, "6.50", change.StringFixed(2))
}

func TestCalculateEmptyCart(t *testing.T) {
	totals := Calculate(nil, decimal.NewFromFloat(0.15))

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestCalculateDefaultRateFallback(t *testing.T) {
	items := []models.CartItem{{
		ProductID: "p1",
		Price:     decimal.NewFromFloat(100.00),
		Quantity:  1,
		// No tax rate snapshot: the configured default applies.
	}}

	totals := Calculate(items, decimal.NewFromFloat(0.10))
	assert.Equal(t, "10.00", totals.Tax.StringFixed(2))
}

// total == subtotal + tax exactly, across the full VAT range.
func TestCalculateTotalIdentity(t *testing.T) {
	items := []models.CartItem{
		item(19.99, 3, 0.07),
		item(0.01, 7, 0.15),
		item(45.00, 2, 0),
	}

	for _, rate := range []float64{0, 0.05, 0.15, 0.5, 1.0} {
		totals := Calculate(items, decimal.NewFromFloat(rate))
		require.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax)),
			"identity broken at rate %v", rate)
	}
}

// Per-line cent amounts that would accumulate drift under float math
// stay exact under decimal summation.
func TestCalculateNoRoundingDrift(t *testing.T) {
	var items []models.CartItem
	for i := 0; i < 100; i++ {
		items = append(items, item(0.10, 1, 0.15))
	}

	totals := Calculate(items, decimal.NewFromFloat(0.15))
	assert.Equal(t, "10.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "1.50", totals.Tax.StringFixed(2))
	assert.Equal(t, "11.50", totals.Total.StringFixed(2))
}

func TestChangeExact(t *testing.T) {
	total := decimal.NewFromFloat(103.50)
	received := decimal.NewFromFloat(110.00)

	assert.True(t, Change(received, total).Equal(decimal.NewFromFloat(6.50)))
	assert.True(t, Change(total, total).IsZero())
}

func TestCalculateMixedRates(t *testing.T) {
	items := []models.CartItem{
		item(100.00, 1, 0.15),
		item(50.00, 2, 0.05),
	}

	totals := Calculate(items, decimal.NewFromFloat(0.15))

	assert.Equal(t, "200.00", totals.Subtotal.StringFixed(2))
	// 100*0.15 + 100*0.05
	assert.Equal(t, "20.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "220.00", totals.Total.StringFixed(2))
}
