package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pos-terminal/internal/audit"
	"pos-terminal/internal/broker"
	"pos-terminal/internal/catalog"
	"pos-terminal/internal/models"
	"pos-terminal/internal/util"
)

// RefreshWorker keeps the catalog snapshot current. It runs on a fixed
// interval and can be nudged immediately via Trigger (after a committed
// sale or a stock rejection). Refreshes never touch an in-flight cart.
type RefreshWorker struct {
	catalog  *catalog.Service
	interval time.Duration
	trigger  chan struct{}
	logger   *zap.Logger
}

// NewRefreshWorker creates a refresh worker.
func NewRefreshWorker(cat *catalog.Service, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		catalog:  cat,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   util.GetLogger().Named("refresh"),
	}
}

// Trigger requests an immediate refresh. Non-blocking; a pending
// trigger coalesces with the next one.
func (w *RefreshWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Start runs the refresh loop until the context is cancelled.
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog refresh worker",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Refresh worker stopping")
			return ctx.Err()
		case <-ticker.C:
		case <-w.trigger:
		}

		if err := w.catalog.SyncToCache(ctx); err != nil {
			w.logger.Warn("Catalog refresh failed", zap.Error(err))
		}
	}
}

// AuditWorker consumes transaction lifecycle events and mirrors them
// into the audit log.
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewAuditWorker creates an audit worker.
func NewAuditWorker(consumer *broker.Consumer, auditLog *audit.Logger) *AuditWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnCommitted(func(ctx context.Context, event *models.TransactionCommittedEvent) error {
		auditLog.Transaction(ctx, "transaction_event", event.ReceiptNumber, event.Total.StringFixed(2))
		util.AuditEntriesTotal.WithLabelValues(models.AuditCategoryTransaction).Inc()
		return nil
	})
	eventHandler.OnOffline(func(ctx context.Context, event *models.TransactionOfflineEvent) error {
		auditLog.Log(ctx, "transaction_offline_event", event.Reason,
			models.AuditCategoryTransaction, models.SeverityWarning,
			map[string]string{"receipt_number": event.ReceiptNumber})
		util.AuditEntriesTotal.WithLabelValues(models.AuditCategoryTransaction).Inc()
		return nil
	})
	eventHandler.OnReconciled(func(ctx context.Context, event *models.TransactionReconciledEvent) error {
		auditLog.Transaction(ctx, "transaction_reconciled_event", event.ReceiptNumber, "")
		util.AuditEntriesTotal.WithLabelValues(models.AuditCategoryTransaction).Inc()
		return nil
	})

	return &AuditWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	return w.consumer.Close()
}
