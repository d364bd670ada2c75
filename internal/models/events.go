package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeTransactionCommitted  = "TRANSACTION_COMMITTED"
	EventTypeTransactionOffline    = "TRANSACTION_OFFLINE"
	EventTypeTransactionReconciled = "TRANSACTION_RECONCILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionCommittedEvent is published when the gateway confirms a sale.
type TransactionCommittedEvent struct {
	BaseEvent
	TransactionID string          `json:"transaction_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Cashier       string          `json:"cashier"`
	Terminal      string          `json:"terminal"`
}

// TransactionOfflineEvent is published when the commit path failed and a
// local offline record was persisted instead.
type TransactionOfflineEvent struct {
	BaseEvent
	TransactionID string          `json:"transaction_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Total         decimal.Decimal `json:"total"`
	Terminal      string          `json:"terminal"`
	Reason        string          `json:"reason"`
}

// TransactionReconciledEvent is published when an offline transaction is
// later accepted by the gateway.
type TransactionReconciledEvent struct {
	BaseEvent
	TransactionID  string `json:"transaction_id"`
	OfflineID      string `json:"offline_id"`
	ReceiptNumber  string `json:"receipt_number"`
	OfflineReceipt string `json:"offline_receipt"`
	Terminal       string `json:"terminal"`
	QueuedSeconds  int64  `json:"queued_seconds"`
}
