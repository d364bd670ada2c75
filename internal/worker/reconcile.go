package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pos-terminal/internal/audit"
	"pos-terminal/internal/broker"
	"pos-terminal/internal/checkout"
	"pos-terminal/internal/gateway"
	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"
)

// ReconcileWorker drains the offline transaction queue: on each tick it
// re-submits pending records to the gateway and, once accepted, mirrors
// them locally and deducts stock.
type ReconcileWorker struct {
	kv        kvstore.Store
	gw        gateway.Client
	store     *store.Store
	publisher *broker.EventPublisher
	audit     *audit.Logger
	interval  time.Duration
	logger    *zap.Logger
}

// NewReconcileWorker creates a reconcile worker. store and publisher
// may be nil in degraded setups.
func NewReconcileWorker(
	kv kvstore.Store,
	gw gateway.Client,
	st *store.Store,
	publisher *broker.EventPublisher,
	auditLog *audit.Logger,
	interval time.Duration,
) *ReconcileWorker {
	return &ReconcileWorker{
		kv:        kv,
		gw:        gw,
		store:     st,
		publisher: publisher,
		audit:     auditLog,
		interval:  interval,
		logger:    util.GetLogger().Named("reconcile"),
	}
}

// Start runs the reconciliation loop until the context is cancelled.
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reconcile worker",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconcile worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *ReconcileWorker) reconcile(ctx context.Context) {
	queue, err := checkout.LoadOfflineQueue(ctx, w.kv)
	if err != nil {
		w.logger.Warn("Failed to load offline queue", zap.Error(err))
		return
	}
	if len(queue) == 0 {
		return
	}

	w.logger.Info("Reconciling offline transactions", zap.Int("pending", len(queue)))

	for _, pending := range queue {
		err := w.reconcileOne(ctx, pending)
		if err == nil {
			continue
		}

		if gateway.KindOf(err) == gateway.KindUnavailable {
			// The gateway is still unreachable; leave everything queued
			// and stop this pass.
			w.logger.Warn("Reconciliation attempt failed",
				zap.String("offline_id", pending.ID),
				zap.Error(err))
			return
		}

		// The gateway understood the record and refused it. Park it so
		// it cannot block the records behind it.
		w.rejectPending(ctx, pending, err)
	}
}

// rejectPending moves a permanently rejected offline record out of the
// queue into the rejected list for manual follow-up.
func (w *ReconcileWorker) rejectPending(ctx context.Context, pending models.Transaction, cause error) {
	kind := gateway.KindOf(cause)
	w.logger.Error("Offline transaction rejected by gateway",
		zap.String("offline_id", pending.ID),
		zap.String("kind", string(kind)),
		zap.Error(cause))

	if err := checkout.RemoveOffline(ctx, w.kv, pending.ID); err != nil {
		w.logger.Error("Failed to dequeue rejected transaction",
			zap.String("offline_id", pending.ID),
			zap.Error(err))
		return
	}

	pending.Status = models.TxStatusRejected

	var rejected []models.Transaction
	if err := kvstore.GetJSON(ctx, w.kv, kvstore.KeyRejectedQueue, &rejected); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		w.logger.Error("Failed to load rejected transactions", zap.Error(err))
	}
	rejected = append(rejected, pending)
	if err := kvstore.SetJSON(ctx, w.kv, kvstore.KeyRejectedQueue, rejected); err != nil {
		w.logger.Error("Failed to persist rejected transaction",
			zap.String("offline_id", pending.ID),
			zap.Error(err))
	}

	util.TransactionsRejectedTotal.WithLabelValues(string(kind)).Inc()

	if w.audit != nil {
		w.audit.Log(ctx, "transaction_reconcile_rejected",
			fmt.Sprintf("offline transaction %s rejected by gateway: %s", pending.ReceiptNumber, kind),
			models.AuditCategoryError, models.SeverityCritical,
			map[string]string{
				"receipt_number": pending.ReceiptNumber,
				"kind":           string(kind),
			})
	}
}

func (w *ReconcileWorker) reconcileOne(ctx context.Context, pending models.Transaction) error {
	req := models.TransactionRequest{
		ReceiptNumber:   pending.ReceiptNumber,
		Items:           pending.Items,
		Subtotal:        pending.Subtotal,
		Tax:             pending.Tax,
		Total:           pending.Total,
		PaymentMethod:   pending.PaymentMethod,
		PaymentReceived: pending.PaymentReceived,
		Cashier:         pending.Cashier,
		Terminal:        pending.Terminal,
	}

	confirmed, err := w.gw.ProcessTransaction(ctx, req)
	if err != nil {
		return err
	}

	if err := checkout.RemoveOffline(ctx, w.kv, pending.ID); err != nil {
		w.logger.Error("Reconciled but failed to dequeue",
			zap.String("offline_id", pending.ID),
			zap.Error(err))
		return err
	}

	util.TransactionsReconciledTotal.Inc()

	if w.store != nil {
		if err := w.store.SaveTransaction(ctx, confirmed); err != nil {
			w.logger.Warn("Failed to mirror reconciled transaction",
				zap.String("id", confirmed.ID),
				zap.Error(err))
		}
		for _, item := range confirmed.Items {
			if err := w.store.DecrementStockTx(ctx, item.ProductID, item.Quantity); err != nil {
				w.logger.Warn("Failed to deduct reconciled stock",
					zap.String("product_id", item.ProductID),
					zap.Error(err))
			}
		}
	}

	if w.audit != nil {
		w.audit.Transaction(ctx, "transaction_reconciled", confirmed.ReceiptNumber, confirmed.Total.StringFixed(2))
	}

	if w.publisher != nil {
		event := &models.TransactionReconciledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeTransactionReconciled,
				Timestamp: time.Now(),
			},
			TransactionID:  confirmed.ID,
			OfflineID:      pending.ID,
			ReceiptNumber:  confirmed.ReceiptNumber,
			OfflineReceipt: pending.ReceiptNumber,
			Terminal:       pending.Terminal,
			QueuedSeconds:  int64(time.Since(pending.Timestamp).Seconds()),
		}
		if err := w.publisher.PublishReconciled(ctx, event); err != nil {
			w.logger.Error("Failed to publish TransactionReconciled event", zap.Error(err))
		}
	}

	w.logger.Info("Offline transaction reconciled",
		zap.String("offline_receipt", pending.ReceiptNumber),
		zap.String("receipt_number", confirmed.ReceiptNumber))
	return nil
}
