package cart

import (
	"pos-terminal/internal/models"
)

// Outcome reports what a cart mutation did.
type Outcome int

const (
	// OutcomeApplied means the mutation took effect.
	OutcomeApplied Outcome = iota
	// OutcomeRemoved means the line was removed from the cart.
	OutcomeRemoved
	// OutcomeRejectedNoStock means the product has no stock at all.
	OutcomeRejectedNoStock
	// OutcomeRejectedStockCap means the change would exceed available
	// stock; the line is left unchanged.
	OutcomeRejectedStockCap
	// OutcomeNotInCart means the product id matched no cart line.
	OutcomeNotInCart
)

// Cart holds the line items of the active checkout session. At most one
// line per product id; quantities never exceed the stock known at
// mutation time. Not safe for concurrent use: a checkout session has a
// single owner.
type Cart struct {
	items []models.CartItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem adds one unit of product, or increments the existing line.
// The increment is capped at product.Stock.
func (c *Cart) AddItem(product models.Product) Outcome {
	if product.Stock <= 0 {
		return OutcomeRejectedNoStock
	}

	for i := range c.items {
		if c.items[i].ProductID == product.ID {
			if c.items[i].Quantity+1 > product.Stock {
				return OutcomeRejectedStockCap
			}
			c.items[i].Quantity++
			return OutcomeApplied
		}
	}

	c.items = append(c.items, models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Barcode:   product.Barcode,
		Price:     product.Price,
		Quantity:  1,
		TaxRate:   product.TaxRate,
	})
	return OutcomeApplied
}

// UpdateQuantity applies a signed quantity delta to the product's line.
// A resulting quantity <= 0 removes the line; a quantity above
// product.Stock rejects the change and leaves the line untouched.
func (c *Cart) UpdateQuantity(productID string, delta int, product models.Product) Outcome {
	for i := range c.items {
		if c.items[i].ProductID != productID {
			continue
		}
		newQty := c.items[i].Quantity + delta
		if newQty <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return OutcomeRemoved
		}
		if newQty > product.Stock {
			return OutcomeRejectedStockCap
		}
		c.items[i].Quantity = newQty
		return OutcomeApplied
	}
	return OutcomeNotInCart
}

// RemoveItem removes the product's line unconditionally.
func (c *Cart) RemoveItem(productID string) Outcome {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return OutcomeRemoved
		}
	}
	return OutcomeNotInCart
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []models.CartItem {
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Quantity returns the quantity of the product's line, or 0.
func (c *Cart) Quantity(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return c.items[i].Quantity
		}
	}
	return 0
}
