package cart

import (
	"github.com/shopspring/decimal"

	"pos-terminal/internal/models"
)

// Totals is the derived money state of a cart. Values are exact; callers
// round to two decimals only when formatting for display.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate derives subtotal, tax and total from the cart lines. Lines
// without a tax rate snapshot fall back to defaultVATRate. Pure function
// of its inputs; recomputed on every mutation, never cached.
func Calculate(items []models.CartItem, defaultVATRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero

	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)

		rate := defaultVATRate
		if item.TaxRate.Valid {
			rate = item.TaxRate.Decimal
		}
		tax = tax.Add(line.Mul(rate))
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Change computes the change due for a cash payment. The caller must
// have validated received >= total.
func Change(received, total decimal.Decimal) decimal.Decimal {
	return received.Sub(total)
}
