package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-terminal/internal/audit"
	"pos-terminal/internal/checkout"
	"pos-terminal/internal/gateway"
	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
)

type scriptedGateway struct {
	// responses maps a request's receipt number to the error it gets;
	// a missing entry commits.
	responses map[string]error
	attempted []string
}

func (g *scriptedGateway) ProcessTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	g.attempted = append(g.attempted, req.ReceiptNumber)
	if err, ok := g.responses[req.ReceiptNumber]; ok && err != nil {
		return nil, err
	}
	return &models.Transaction{
		ID:            "tx-" + req.ReceiptNumber,
		ReceiptNumber: req.ReceiptNumber,
		Items:         req.Items,
		Total:         req.Total,
		Timestamp:     time.Now(),
		Terminal:      req.Terminal,
		Status:        models.TxStatusCommitted,
	}, nil
}

func queuedTx(receipt string) models.Transaction {
	return models.Transaction{
		ID:            "off-" + receipt,
		ReceiptNumber: receipt,
		Total:         decimal.NewFromFloat(10),
		Status:        models.TxStatusOfflinePending,
		Timestamp:     time.Now(),
	}
}

func TestReconcileParksRejectedRecords(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	_, err := checkout.AppendOffline(ctx, kv, queuedTx("OFF-BAD"))
	require.NoError(t, err)
	_, err = checkout.AppendOffline(ctx, kv, queuedTx("OFF-GOOD"))
	require.NoError(t, err)

	gw := &scriptedGateway{responses: map[string]error{
		"OFF-BAD": &gateway.Error{Kind: gateway.KindInsufficientStock, Message: "gone"},
	}}
	w := NewReconcileWorker(kv, gw, nil, nil, audit.NewLogger(kv, 100), time.Minute)

	w.reconcile(ctx)

	// The rejected record must not block the healthy one behind it.
	assert.Equal(t, []string{"OFF-BAD", "OFF-GOOD"}, gw.attempted)

	queue, err := checkout.LoadOfflineQueue(ctx, kv)
	require.NoError(t, err)
	assert.Empty(t, queue, "both records left the offline queue")

	var rejected []models.Transaction
	require.NoError(t, kvstore.GetJSON(ctx, kv, kvstore.KeyRejectedQueue, &rejected))
	require.Len(t, rejected, 1)
	assert.Equal(t, "OFF-BAD", rejected[0].ReceiptNumber)
	assert.Equal(t, models.TxStatusRejected, rejected[0].Status)
}

func TestReconcileStopsPassWhenGatewayUnavailable(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	_, err := checkout.AppendOffline(ctx, kv, queuedTx("OFF-A"))
	require.NoError(t, err)
	_, err = checkout.AppendOffline(ctx, kv, queuedTx("OFF-B"))
	require.NoError(t, err)

	gw := &scriptedGateway{responses: map[string]error{
		"OFF-A": &gateway.Error{Kind: gateway.KindUnavailable, Message: "refused"},
		"OFF-B": &gateway.Error{Kind: gateway.KindUnavailable, Message: "refused"},
	}}
	w := NewReconcileWorker(kv, gw, nil, nil, audit.NewLogger(kv, 100), time.Minute)

	w.reconcile(ctx)

	// One probe per pass; everything stays queued for the next tick.
	assert.Equal(t, []string{"OFF-A"}, gw.attempted)

	queue, err := checkout.LoadOfflineQueue(ctx, kv)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func TestReconcileDrainsHealthyQueue(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	for _, receipt := range []string{"OFF-1", "OFF-2", "OFF-3"} {
		_, err := checkout.AppendOffline(ctx, kv, queuedTx(receipt))
		require.NoError(t, err)
	}

	gw := &scriptedGateway{}
	w := NewReconcileWorker(kv, gw, nil, nil, audit.NewLogger(kv, 100), time.Minute)

	w.reconcile(ctx)

	assert.Equal(t, []string{"OFF-1", "OFF-2", "OFF-3"}, gw.attempted)

	queue, err := checkout.LoadOfflineQueue(ctx, kv)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
