package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-terminal/internal/models"
)

func product(id string, price float64, stock int) models.Product {
	return models.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.NewFromFloat(price),
		Stock: stock,
	}
}

func TestAddItem(t *testing.T) {
	c := New()

	assert.Equal(t, OutcomeApplied, c.AddItem(product("p1", 10.00, 3)))
	assert.Equal(t, 1, c.Quantity("p1"))

	// Same product increments the existing line, no duplicate lines.
	assert.Equal(t, OutcomeApplied, c.AddItem(product("p1", 10.00, 3)))
	assert.Equal(t, 2, c.Quantity("p1"))
	assert.Equal(t, 1, c.Len())
}

func TestAddItemOutOfStock(t *testing.T) {
	c := New()

	assert.Equal(t, OutcomeRejectedNoStock, c.AddItem(product("p1", 10.00, 0)))
	assert.True(t, c.IsEmpty())
}

func TestAddItemStockCap(t *testing.T) {
	c := New()
	p := product("p1", 10.00, 2)

	assert.Equal(t, OutcomeApplied, c.AddItem(p))
	assert.Equal(t, OutcomeApplied, c.AddItem(p))

	// Third unit exceeds stock: rejected, quantity unchanged.
	assert.Equal(t, OutcomeRejectedStockCap, c.AddItem(p))
	assert.Equal(t, 2, c.Quantity("p1"))
}

func TestUpdateQuantity(t *testing.T) {
	c := New()
	p := product("p1", 10.00, 5)
	require.Equal(t, OutcomeApplied, c.AddItem(p))

	assert.Equal(t, OutcomeApplied, c.UpdateQuantity("p1", 3, p))
	assert.Equal(t, 4, c.Quantity("p1"))

	assert.Equal(t, OutcomeApplied, c.UpdateQuantity("p1", -2, p))
	assert.Equal(t, 2, c.Quantity("p1"))
}

func TestUpdateQuantityRemovesAtZero(t *testing.T) {
	c := New()
	p := product("p1", 10.00, 5)
	require.Equal(t, OutcomeApplied, c.AddItem(p))

	assert.Equal(t, OutcomeRemoved, c.UpdateQuantity("p1", -1, p))
	assert.True(t, c.IsEmpty())
}

func TestUpdateQuantityStockCap(t *testing.T) {
	c := New()
	p := product("p1", 10.00, 3)
	require.Equal(t, OutcomeApplied, c.AddItem(p))

	assert.Equal(t, OutcomeRejectedStockCap, c.UpdateQuantity("p1", 5, p))
	assert.Equal(t, 1, c.Quantity("p1"))
}

func TestUpdateQuantityUnknownProduct(t *testing.T) {
	c := New()
	assert.Equal(t, OutcomeNotInCart, c.UpdateQuantity("ghost", 1, product("ghost", 1.00, 1)))
}

func TestRemoveItem(t *testing.T) {
	c := New()
	require.Equal(t, OutcomeApplied, c.AddItem(product("p1", 10.00, 5)))
	require.Equal(t, OutcomeApplied, c.AddItem(product("p2", 5.00, 5)))

	assert.Equal(t, OutcomeRemoved, c.RemoveItem("p1"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, OutcomeNotInCart, c.RemoveItem("p1"))
}

func TestClear(t *testing.T) {
	c := New()
	require.Equal(t, OutcomeApplied, c.AddItem(product("p1", 10.00, 5)))

	c.Clear()
	assert.True(t, c.IsEmpty())
}

// Random mutation sequences never violate the cart invariants: one line
// per product, quantities within [1, stock].
func TestCartInvariants(t *testing.T) {
	products := []models.Product{
		product("p1", 10.00, 3),
		product("p2", 5.50, 1),
		product("p3", 2.25, 0),
	}

	c := New()
	for i := 0; i < 100; i++ {
		p := products[i%len(products)]
		switch i % 5 {
		case 0, 1:
			c.AddItem(p)
		case 2:
			c.UpdateQuantity(p.ID, 2, p)
		case 3:
			c.UpdateQuantity(p.ID, -1, p)
		case 4:
			if i%10 == 4 {
				c.RemoveItem(p.ID)
			}
		}

		seen := map[string]bool{}
		for _, item := range c.Items() {
			require.False(t, seen[item.ProductID], "duplicate line for %s", item.ProductID)
			seen[item.ProductID] = true

			for _, prod := range products {
				if prod.ID == item.ProductID {
					require.GreaterOrEqual(t, item.Quantity, 1)
					require.LessOrEqual(t, item.Quantity, prod.Stock)
				}
			}
		}
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New()
	require.Equal(t, OutcomeApplied, c.AddItem(product("p1", 10.00, 5)))

	items := c.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, c.Quantity("p1"))
}
