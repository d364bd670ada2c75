package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pos-terminal/internal/models"
)

type transactionRow struct {
	ID              string          `db:"id"`
	ReceiptNumber   string          `db:"receipt_number"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	Tax             decimal.Decimal `db:"tax"`
	Total           decimal.Decimal `db:"total"`
	PaymentMethod   string          `db:"payment_method"`
	PaymentReceived decimal.Decimal `db:"payment_received"`
	Change          decimal.Decimal `db:"change"`
	Cashier         string          `db:"cashier"`
	Terminal        string          `db:"terminal"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
}

// SaveTransaction mirrors a confirmed transaction locally for reporting.
// Item rows are immutable snapshots; nothing references live products.
func (s *Store) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, receipt_number, subtotal, tax, total, payment_method,
			 payment_received, change, cashier, terminal, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.ReceiptNumber, t.Subtotal, t.Tax, t.Total, t.PaymentMethod,
		t.PaymentReceived, t.Change, t.Cashier, t.Terminal, t.Status, t.Timestamp)
	if err != nil {
		return err
	}

	for _, item := range t.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transaction_items
				(transaction_id, product_id, name, unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.LineTotal)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a mirrored transaction with its items.
func (s *Store) GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	var row transactionRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM transactions WHERE id = $1", id); err != nil {
		return nil, err
	}

	var items []models.TransactionItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT product_id, name, unit_price, quantity, line_total
		FROM transaction_items WHERE transaction_id = $1`, id)
	if err != nil {
		return nil, err
	}

	t := rowToTransaction(row)
	t.Items = items
	return &t, nil
}

// GetDailySales aggregates mirrored transactions for one calendar day.
func (s *Store) GetDailySales(ctx context.Context, date time.Time) (*models.DailySales, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.Add(24 * time.Hour)

	var result struct {
		Total decimal.Decimal `db:"total"`
		Count int             `db:"count"`
	}
	err := s.db.GetContext(ctx, &result, `
		SELECT COALESCE(SUM(total), 0) AS total, COUNT(*) AS count
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2`, start, end)
	if err != nil {
		return nil, err
	}

	return &models.DailySales{
		Date:         start.Format("2006-01-02"),
		TotalSales:   result.Total,
		TransactionN: result.Count,
	}, nil
}

func rowToTransaction(row transactionRow) models.Transaction {
	return models.Transaction{
		ID:              row.ID,
		ReceiptNumber:   row.ReceiptNumber,
		Subtotal:        row.Subtotal,
		Tax:             row.Tax,
		Total:           row.Total,
		PaymentMethod:   row.PaymentMethod,
		PaymentReceived: row.PaymentReceived,
		Change:          row.Change,
		Cashier:         row.Cashier,
		Terminal:        row.Terminal,
		Status:          row.Status,
		Timestamp:       row.CreatedAt,
	}
}
