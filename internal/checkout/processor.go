package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-terminal/config"
	"pos-terminal/internal/audit"
	"pos-terminal/internal/cart"
	"pos-terminal/internal/gateway"
	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
	"pos-terminal/internal/util"
)

// Result statuses
const (
	StatusCommitted = "committed"
	StatusOffline   = "offline"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// Publisher emits transaction lifecycle events. Publishing is
// best-effort: failures are logged, never surfaced to the operator.
type Publisher interface {
	PublishCommitted(ctx context.Context, event *models.TransactionCommittedEvent) error
	PublishOffline(ctx context.Context, event *models.TransactionOfflineEvent) error
}

// CatalogReader supplies live products for submit-time stock
// revalidation.
type CatalogReader interface {
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

// TransactionMirror persists confirmed transactions locally for
// reporting and deducts the sold stock. Mirror failures are logged, not
// surfaced: the gateway already owns the sale.
type TransactionMirror interface {
	SaveTransaction(ctx context.Context, t *models.Transaction) error
	DecrementStockTx(ctx context.Context, productID string, quantity int) error
}

// PaymentDetails carries the operator's payment input for one checkout.
type PaymentDetails struct {
	Method   string
	Received decimal.Decimal
	Cashier  string
}

// Result is the outcome of one checkout attempt.
type Result struct {
	Status      string              `json:"status"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Rejection   *Rejection          `json:"rejection,omitempty"`
	GatewayKind gateway.ErrorKind   `json:"gateway_kind,omitempty"`
}

// Processor drives a cart through validation, gateway submission and,
// when the gateway is unreachable, the offline fallback. One submission
// is in flight at a time; concurrent calls serialize.
type Processor struct {
	mu    sync.Mutex
	phase Phase

	kv        kvstore.Store
	gw        gateway.Client
	catalog   CatalogReader
	mirror    TransactionMirror
	audit     *audit.Logger
	publisher Publisher
	refresh   func()

	cfg      config.CheckoutConfig
	terminal string
	logger   *zap.Logger
}

// NewProcessor wires the checkout flow. mirror, publisher and refresh
// may be nil.
func NewProcessor(
	kv kvstore.Store,
	gw gateway.Client,
	catalog CatalogReader,
	mirror TransactionMirror,
	auditLog *audit.Logger,
	publisher Publisher,
	refresh func(),
	cfg config.CheckoutConfig,
) *Processor {
	return &Processor{
		phase:     PhaseIdle,
		kv:        kv,
		gw:        gw,
		catalog:   catalog,
		mirror:    mirror,
		audit:     auditLog,
		publisher: publisher,
		refresh:   refresh,
		cfg:       cfg,
		terminal:  EnsureTerminalID(context.Background(), kv, cfg.TerminalPrefix),
		logger:    util.GetLogger().Named("checkout"),
	}
}

// Terminal returns the cached terminal id.
func (p *Processor) Terminal() string {
	return p.terminal
}

// Phase returns the current processor phase.
func (p *Processor) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *Processor) enter(to Phase) {
	next, err := Transition(p.phase, to)
	if err != nil {
		// A transition bug, not an operator error. Log loudly and force
		// the phase so the terminal is not wedged.
		p.logger.Error("Checkout phase error", zap.Error(err))
		p.phase = to
		return
	}
	p.phase = next
}

// Submit runs one checkout. Validation failures return a rejected
// Result without touching the cart or any persisted store. Gateway
// business rejections preserve the cart for retry. Transport failures
// fall back to an offline transaction; only if even that fails does the
// caller see StatusFailed, again with the cart preserved.
func (p *Processor) Submit(ctx context.Context, c *cart.Cart, pay PaymentDetails) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Processor.Submit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.enter(PhaseValidating)

	items := c.Items()
	totals := cart.Calculate(items, p.cfg.VATRate)

	// Card payments are captured for the exact total; there is no cash
	// drawer involved, so change is always zero.
	received := pay.Received
	if pay.Method == models.PaymentMethodCard {
		received = totals.Total
	}

	live := p.liveProducts(ctx, items)

	if rej := Validate(items, totals.Total, pay.Method, received, live); rej != nil {
		util.TransactionsRejectedTotal.WithLabelValues(string(rej.Reason)).Inc()
		p.logger.Warn("Checkout rejected",
			zap.String("reason", string(rej.Reason)),
			zap.String("message", rej.Message))
		p.enter(PhaseRejected)
		p.enter(PhaseIdle)
		return &Result{Status: StatusRejected, Rejection: rej}, nil
	}

	req := p.buildRequest(items, totals, pay.Method, received, pay.Cashier)

	p.enter(PhaseSubmitting)

	tx, err := p.gw.ProcessTransaction(ctx, req)
	if err == nil {
		p.enter(PhaseCommitted)
		p.afterCommit(ctx, c, tx)
		p.enter(PhaseIdle)
		return &Result{Status: StatusCommitted, Transaction: tx}, nil
	}

	kind := gateway.KindOf(err)
	if kind != gateway.KindUnavailable {
		// The gateway understood the request and said no. The cart
		// stays intact so the operator can adjust and retry.
		util.TransactionsRejectedTotal.WithLabelValues(string(kind)).Inc()
		p.logger.Warn("Gateway rejected transaction",
			zap.String("kind", string(kind)),
			zap.Error(err))
		if kind == gateway.KindInsufficientStock || kind == gateway.KindProductNotFound {
			p.triggerRefresh()
		}
		p.enter(PhaseRejected)
		p.enter(PhaseIdle)
		return &Result{Status: StatusRejected, GatewayKind: kind}, nil
	}

	p.enter(PhaseOfflineFallback)
	result := p.fallbackOffline(ctx, c, req, err)
	p.enter(PhaseIdle)
	return result, nil
}

// liveProducts loads current catalog rows for the cart. A failed read
// skips local revalidation; the gateway remains the authority.
func (p *Processor) liveProducts(ctx context.Context, items []models.CartItem) map[string]models.Product {
	live := make(map[string]models.Product, len(items))
	if p.catalog == nil || len(items) == 0 {
		for _, item := range items {
			live[item.ProductID] = models.Product{ID: item.ProductID, Stock: item.Quantity}
		}
		return live
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := p.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		p.logger.Warn("Live stock check unavailable, deferring to gateway", zap.Error(err))
		for _, item := range items {
			live[item.ProductID] = models.Product{ID: item.ProductID, Stock: item.Quantity}
		}
		return live
	}

	for _, product := range products {
		live[product.ID] = product
	}
	return live
}

func (p *Processor) buildRequest(items []models.CartItem, totals cart.Totals, method string, received decimal.Decimal, cashier string) models.TransactionRequest {
	txItems := make([]models.TransactionItem, len(items))
	for i, item := range items {
		txItems[i] = models.TransactionItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Barcode:   item.Barcode,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
	}

	return models.TransactionRequest{
		ReceiptNumber:   NewReceiptNumber(time.Now()),
		Items:           txItems,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		PaymentMethod:   method,
		PaymentReceived: received,
		Cashier:         cashier,
		Terminal:        p.terminal,
	}
}

func (p *Processor) afterCommit(ctx context.Context, c *cart.Cart, tx *models.Transaction) {
	c.Clear()
	util.TransactionsCommittedTotal.Inc()

	if err := BumpDailyTotals(ctx, p.kv, tx.Timestamp, tx.Total); err != nil {
		p.logger.Warn("Failed to update daily totals", zap.Error(err))
	}

	// Mirror before the refresh so the rebuilt snapshot sees the
	// deducted stock.
	if p.mirror != nil {
		if err := p.mirror.SaveTransaction(ctx, tx); err != nil {
			p.logger.Warn("Failed to mirror committed transaction",
				zap.String("id", tx.ID),
				zap.Error(err))
		}
		for _, item := range tx.Items {
			if err := p.mirror.DecrementStockTx(ctx, item.ProductID, item.Quantity); err != nil {
				p.logger.Warn("Failed to deduct sold stock",
					zap.String("product_id", item.ProductID),
					zap.Error(err))
			}
		}
	}

	if p.audit != nil {
		p.audit.Transaction(ctx, "transaction_committed", tx.ReceiptNumber, tx.Total.StringFixed(2))
	}

	if p.publisher != nil {
		event := &models.TransactionCommittedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeTransactionCommitted,
				Timestamp: time.Now(),
			},
			TransactionID: tx.ID,
			ReceiptNumber: tx.ReceiptNumber,
			Total:         tx.Total,
			PaymentMethod: tx.PaymentMethod,
			Cashier:       tx.Cashier,
			Terminal:      tx.Terminal,
		}
		if err := p.publisher.PublishCommitted(ctx, event); err != nil {
			p.logger.Error("Failed to publish TransactionCommitted event", zap.Error(err))
		}
	}

	p.triggerRefresh()

	p.logger.Info("Transaction committed",
		zap.String("receipt_number", tx.ReceiptNumber),
		zap.String("total", tx.Total.StringFixed(2)))
}

// fallbackOffline converts a transport failure into a durable offline
// record. It never propagates an error: the worst case is a StatusFailed
// result with the cart preserved.
func (p *Processor) fallbackOffline(ctx context.Context, c *cart.Cart, req models.TransactionRequest, cause error) *Result {
	now := time.Now()
	offline := models.Transaction{
		ID:              fmt.Sprintf("OFF-%s", uuid.New().String()),
		ReceiptNumber:   NewOfflineReceiptNumber(now),
		Items:           req.Items,
		Subtotal:        req.Subtotal,
		Tax:             req.Tax,
		Total:           req.Total,
		PaymentMethod:   req.PaymentMethod,
		PaymentReceived: req.PaymentReceived,
		Change:          req.PaymentReceived.Sub(req.Total),
		Timestamp:       now,
		Cashier:         req.Cashier,
		Terminal:        req.Terminal,
		Status:          models.TxStatusOfflinePending,
	}

	depth, err := AppendOffline(ctx, p.kv, offline)
	if err != nil {
		p.logger.Error("Offline fallback failed, cart preserved",
			zap.NamedError("cause", cause),
			zap.Error(err))
		if p.audit != nil {
			p.audit.Log(ctx, "transaction_failed", "transaction could not be committed or queued offline",
				models.AuditCategoryError, models.SeverityCritical, nil)
		}
		return &Result{Status: StatusFailed}
	}

	c.Clear()
	util.TransactionsOfflineTotal.Inc()

	if p.audit != nil {
		p.audit.Transaction(ctx, "transaction_offline", offline.ReceiptNumber, offline.Total.StringFixed(2))
	}

	if p.publisher != nil {
		event := &models.TransactionOfflineEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeTransactionOffline,
				Timestamp: now,
			},
			TransactionID: offline.ID,
			ReceiptNumber: offline.ReceiptNumber,
			Total:         offline.Total,
			Terminal:      offline.Terminal,
			Reason:        cause.Error(),
		}
		if err := p.publisher.PublishOffline(ctx, event); err != nil {
			p.logger.Error("Failed to publish TransactionOffline event", zap.Error(err))
		}
	}

	p.logger.Warn("Transaction queued offline",
		zap.String("receipt_number", offline.ReceiptNumber),
		zap.Int("queue_depth", depth),
		zap.NamedError("cause", cause))

	txCopy := offline
	return &Result{Status: StatusOffline, Transaction: &txCopy}
}

func (p *Processor) triggerRefresh() {
	if p.refresh != nil {
		p.refresh()
	}
}
