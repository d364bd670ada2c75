package receipt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-terminal/config"
	"pos-terminal/internal/models"
)

func testIdentity() config.StoreIdentity {
	return config.StoreIdentity{
		Name:       "Corner Market",
		Address:    "12 High Street",
		Phone:      "+27 21 555 0100",
		VATNumber:  "ZA4123456789",
		RegNumber:  "2019/123456/07",
		FooterText: "Thank you for shopping with us",
		PolicyText: "Returns within 30 days with receipt",
	}
}

func cashTx() *models.Transaction {
	return &models.Transaction{
		ID:            "tx-1",
		ReceiptNumber: "RCP-20260830-ABCD1234",
		Items: []models.TransactionItem{{
			ProductID: "p1",
			Name:      "Widget",
			UnitPrice: decimal.NewFromFloat(45.00),
			Quantity:  2,
			LineTotal: decimal.NewFromFloat(90.00),
		}},
		Subtotal:        decimal.NewFromFloat(90.00),
		Tax:             decimal.NewFromFloat(13.50),
		Total:           decimal.NewFromFloat(103.50),
		PaymentMethod:   models.PaymentMethodCash,
		PaymentReceived: decimal.NewFromFloat(110.00),
		Change:          decimal.NewFromFloat(6.50),
		Timestamp:       time.Date(2026, 8, 30, 14, 30, 5, 0, time.UTC),
		Cashier:         "alice",
		Terminal:        "POS-001",
		Status:          models.TxStatusCommitted,
	}
}

func TestBuildCashReceipt(t *testing.T) {
	r := Build(cashTx(), testIdentity(), "$")

	assert.Equal(t, "Corner Market", r.Header.StoreName)
	assert.Equal(t, "2026-08-30", r.Date)
	assert.Equal(t, "14:30:05", r.Time)
	assert.Equal(t, "RCP-20260830-ABCD1234", r.ReceiptNumber)
	assert.Equal(t, "POS-001", r.Terminal)
	assert.Equal(t, "alice", r.Cashier)

	require.Len(t, r.Lines, 1)
	assert.Equal(t, "Widget", r.Lines[0].Name)
	assert.Equal(t, 2, r.Lines[0].Quantity)
	assert.Equal(t, "$45.00", r.Lines[0].UnitPrice)
	assert.Equal(t, "$90.00", r.Lines[0].LineTotal)

	// Amounts come straight from the transaction snapshot.
	assert.Equal(t, "$90.00", r.Subtotal)
	assert.Equal(t, "$13.50", r.Tax)
	assert.Equal(t, "$103.50", r.Total)
	assert.Equal(t, "$110.00", r.Payment.Received)
	assert.Equal(t, "$6.50", r.Payment.Change)
	assert.Empty(t, r.Payment.Approval)
	assert.False(t, r.Offline)
}

func TestBuildDoesNotRecomputeTotals(t *testing.T) {
	// A snapshot whose totals deliberately disagree with the items. Build
	// must echo the snapshot, not the arithmetic.
	tx := cashTx()
	tx.Total = decimal.NewFromFloat(999.99)

	r := Build(tx, testIdentity(), "$")
	assert.Equal(t, "$999.99", r.Total)
}

func TestBuildCardReceipt(t *testing.T) {
	tx := cashTx()
	tx.PaymentMethod = models.PaymentMethodCard
	tx.PaymentReceived = tx.Total
	tx.Change = decimal.Zero

	r := Build(tx, testIdentity(), "$")

	assert.Equal(t, "CARD PAYMENT APPROVED", r.Payment.Approval)
	assert.Empty(t, r.Payment.Received)
	assert.Empty(t, r.Payment.Change)

	text := r.Render()
	assert.Contains(t, text, "CARD PAYMENT APPROVED")
	assert.NotContains(t, text, "Change")
}

func TestBuildOfflineReceipt(t *testing.T) {
	tx := cashTx()
	tx.ReceiptNumber = "OFF-20260830-ABCD1234"
	tx.Status = models.TxStatusOfflinePending

	r := Build(tx, testIdentity(), "$")
	assert.True(t, r.Offline)
	assert.Contains(t, r.Render(), "* OFFLINE - PENDING RECONCILIATION *")
}

func TestRenderLayout(t *testing.T) {
	r := Build(cashTx(), testIdentity(), "$")
	text := r.Render()

	assert.Contains(t, text, "Corner Market")
	assert.Contains(t, text, "Receipt: RCP-20260830-ABCD1234")
	assert.Contains(t, text, "TOTAL")
	assert.Contains(t, text, "$103.50")
	assert.Contains(t, text, "Paid by")
	assert.Contains(t, text, "CASH")
	assert.Contains(t, text, "Returns within 30 days with receipt")
	assert.Contains(t, text, "Reg 2019/123456/07")
	assert.NotContains(t, text, "OFFLINE")
}

func TestRenderAlignsAccentedNames(t *testing.T) {
	tx := cashTx()
	tx.Items[0].Name = "Crème Brûlée"
	identity := testIdentity()
	identity.Name = "Caffè Nero"

	r := Build(tx, identity, "€")
	lines := strings.Split(r.Render(), "\n")

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "Subtotal"),
			strings.HasPrefix(line, "Tax"),
			strings.HasPrefix(line, "TOTAL"),
			strings.HasPrefix(line, "  2 x "):
			assert.Equal(t, 40, utf8.RuneCountInString(line), "misaligned row: %q", line)
		}
	}
}

func TestRenderStable(t *testing.T) {
	// Display and print share one renderer; repeated calls must agree.
	r := Build(cashTx(), testIdentity(), "$")
	assert.Equal(t, r.Render(), r.Render())
}
