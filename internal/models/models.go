package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product. Stock is only mutated by
// confirmed transactions.
type Product struct {
	ID          string              `db:"id" json:"id"`
	Name        string              `db:"name" json:"name"`
	Description string              `db:"description" json:"description,omitempty"`
	Category    string              `db:"category" json:"category"`
	Barcode     string              `db:"barcode" json:"barcode"`
	Price       decimal.Decimal     `db:"price" json:"price"`
	Stock       int                 `db:"stock" json:"stock"`
	TaxRate     decimal.NullDecimal `db:"tax_rate" json:"tax_rate,omitempty"`
	Icon        string              `db:"icon" json:"icon,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
}

// CartItem is a line in the active checkout session. Price and tax rate
// are snapshots taken when the item was added.
type CartItem struct {
	ProductID string              `json:"product_id"`
	Name      string              `json:"name"`
	Barcode   string              `json:"barcode"`
	Price     decimal.Decimal     `json:"price"`
	Quantity  int                 `json:"quantity"`
	TaxRate   decimal.NullDecimal `json:"tax_rate,omitempty"`
}

// TransactionItem is an immutable snapshot of a cart line at commit time.
// It carries no reference back to the live product, so historical
// receipts cannot change retroactively.
type TransactionItem struct {
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Barcode   string          `db:"barcode" json:"barcode,omitempty"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	LineTotal decimal.Decimal `db:"line_total" json:"line_total"`
}

// Transaction is a committed or offline-pending sale.
type Transaction struct {
	ID              string            `json:"id"`
	ReceiptNumber   string            `json:"receipt_number"`
	Items           []TransactionItem `json:"items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	Total           decimal.Decimal   `json:"total"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentReceived decimal.Decimal   `json:"payment_received"`
	Change          decimal.Decimal   `json:"change"`
	Timestamp       time.Time         `json:"timestamp"`
	Cashier         string            `json:"cashier"`
	Terminal        string            `json:"terminal"`
	Status          string            `json:"status"`
}

// TransactionRequest is the commit request sent to the payment gateway.
// ReceiptNumber is the terminal-proposed number; the gateway echoes it
// on the confirmed transaction or assigns its own.
type TransactionRequest struct {
	ReceiptNumber   string            `json:"receipt_number"`
	Items           []TransactionItem `json:"items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	Total           decimal.Decimal   `json:"total"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentReceived decimal.Decimal   `json:"payment_received"`
	Cashier         string            `json:"cashier"`
	Terminal        string            `json:"terminal"`
}

// Payment methods
const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

// Transaction statuses
const (
	TxStatusCommitted      = "committed"
	TxStatusOfflinePending = "offline_pending"
	TxStatusRejected       = "rejected"
)

// Actor identifies who performed an audited action.
type Actor struct {
	Tenant string `json:"tenant,omitempty"`
	User   string `json:"user"`
	Role   string `json:"role"`
}

// LogEntry is one record in the append-only audit log.
type LogEntry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Actor       Actor             `json:"actor"`
	Action      string            `json:"action"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Severity    string            `json:"severity"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Audit categories
const (
	AuditCategoryLogin       = "login"
	AuditCategoryLogout      = "logout"
	AuditCategoryTransaction = "transaction"
	AuditCategorySystem      = "system"
	AuditCategoryError       = "error"
	AuditCategorySecurity    = "security"
	AuditCategoryInventory   = "inventory"
	AuditCategoryAPI         = "api"
)

// Audit severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// DailySales is the running per-day totals snapshot.
type DailySales struct {
	Date         string          `json:"date"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	TransactionN int             `json:"transaction_count"`
}

// InventoryStatus summarizes the catalog stock position.
type InventoryStatus struct {
	TotalProducts int       `db:"total_products" json:"total_products"`
	LowStock      int       `db:"low_stock" json:"low_stock"`
	OutOfStock    int       `db:"out_of_stock" json:"out_of_stock"`
	CheckedAt     time.Time `json:"checked_at"`
}
