package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"pos-terminal/config"
	"pos-terminal/internal/audit"
	"pos-terminal/internal/cart"
	"pos-terminal/internal/catalog"
	"pos-terminal/internal/checkout"
	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
	"pos-terminal/internal/receipt"
	"pos-terminal/internal/util"
)

const lowStockThreshold = 5

// Handler contains HTTP handlers
type Handler struct {
	processor *checkout.Processor
	catalog   *catalog.Service
	kv        kvstore.Store
	audit     *audit.Logger
	cfg       *config.Config
}

// NewHandler creates a new HTTP handler
func NewHandler(
	processor *checkout.Processor,
	cat *catalog.Service,
	kv kvstore.Store,
	auditLog *audit.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		processor: processor,
		catalog:   cat,
		kv:        kv,
		audit:     auditLog,
		cfg:       cfg,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout", h.submitCheckout)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/barcode/:code", h.productByBarcode)
		v1.GET("/categories", h.listCategories)
		v1.GET("/sales/daily", h.dailySales)
		v1.GET("/inventory/status", h.inventoryStatus)
		v1.GET("/transactions/offline", h.offlineTransactions)
		v1.GET("/transactions/rejected", h.rejectedTransactions)
		v1.GET("/audit", h.auditEntries)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"terminal": h.processor.Terminal(),
		"time":     time.Now().Unix(),
	})
}

type checkoutItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type checkoutRequest struct {
	Items           []checkoutItem  `json:"items"`
	PaymentMethod   string          `json:"payment_method" binding:"required,oneof=cash card"`
	PaymentReceived decimal.Decimal `json:"payment_received"`
	Cashier         string          `json:"cashier" binding:"required"`
}

// submitCheckout builds a session cart from the request and drives it
// through the transaction processor.
func (h *Handler) submitCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sessionCart, errResp := h.buildCart(c, req.Items)
	if errResp {
		return
	}

	result, err := h.processor.Submit(c.Request.Context(), sessionCart, checkout.PaymentDetails{
		Method:   req.PaymentMethod,
		Received: req.PaymentReceived,
		Cashier:  req.Cashier,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Checkout failed",
		})
		return
	}

	switch result.Status {
	case checkout.StatusCommitted:
		c.JSON(http.StatusCreated, gin.H{
			"status":      result.Status,
			"transaction": result.Transaction,
			"receipt":     h.renderReceipt(result.Transaction),
		})
	case checkout.StatusOffline:
		c.JSON(http.StatusAccepted, gin.H{
			"status":      result.Status,
			"transaction": result.Transaction,
			"receipt":     h.renderReceipt(result.Transaction),
		})
	case checkout.StatusRejected:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":       result.Status,
			"rejection":    result.Rejection,
			"gateway_kind": result.GatewayKind,
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"status": result.Status,
			"error":  "Transaction could not be committed or queued offline",
		})
	}
}

// buildCart seeds a session cart through the cart manager so add-time
// stock rules apply exactly as they would at a live terminal. Returns
// (cart, true) only when a response has already been written.
func (h *Handler) buildCart(c *gin.Context, items []checkoutItem) (*cart.Cart, bool) {
	sessionCart := cart.New()
	if len(items) == 0 {
		return sessionCart, false
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := h.catalog.GetProductsByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Catalog unavailable",
		})
		return nil, true
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, line := range items {
		product, ok := byID[line.ProductID]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "Product not found",
				"product_id": line.ProductID,
			})
			return nil, true
		}

		outcome := sessionCart.AddItem(product)
		if outcome == cart.OutcomeApplied && line.Quantity > 1 {
			outcome = sessionCart.UpdateQuantity(product.ID, line.Quantity-1, product)
		}
		if outcome == cart.OutcomeRejectedNoStock || outcome == cart.OutcomeRejectedStockCap {
			c.JSON(http.StatusConflict, gin.H{
				"error":      "Insufficient stock",
				"product_id": product.ID,
				"remaining":  product.Stock,
			})
			return nil, true
		}
	}

	return sessionCart, false
}

func (h *Handler) renderReceipt(tx *models.Transaction) gin.H {
	r := receipt.Build(tx, h.cfg.Store, h.cfg.Checkout.CurrencySymbol)
	return gin.H{
		"data": r,
		"text": r.Render(),
	}
}

// listProducts returns the catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load products",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// productByBarcode resolves a scanned barcode
func (h *Handler) productByBarcode(c *gin.Context) {
	product, err := h.catalog.ProductByBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// listCategories returns the distinct categories
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load categories",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// dailySales returns the totals for a day (default today). The default
// source is the KV running totals; ?source=db serves the database
// aggregate over mirrored transactions instead.
func (h *Handler) dailySales(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
		return
	}

	var sales *models.DailySales
	if c.Query("source") == "db" {
		sales, err = h.catalog.DailySalesReport(c.Request.Context(), day)
	} else {
		sales, err = checkout.GetDailyTotals(c.Request.Context(), h.kv, date)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load daily sales",
		})
		return
	}
	c.JSON(http.StatusOK, sales)
}

// inventoryStatus summarizes stock levels
func (h *Handler) inventoryStatus(c *gin.Context) {
	status, err := h.catalog.InventoryStatus(c.Request.Context(), lowStockThreshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load inventory status",
		})
		return
	}
	c.JSON(http.StatusOK, status)
}

// offlineTransactions lists the queue awaiting reconciliation
func (h *Handler) offlineTransactions(c *gin.Context) {
	queue, err := checkout.LoadOfflineQueue(c.Request.Context(), h.kv)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load offline transactions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(queue),
		"transactions": queue,
	})
}

// rejectedTransactions lists offline records the gateway permanently
// refused during reconciliation
func (h *Handler) rejectedTransactions(c *gin.Context) {
	var rejected []models.Transaction
	err := kvstore.GetJSON(c.Request.Context(), h.kv, kvstore.KeyRejectedQueue, &rejected)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load rejected transactions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(rejected),
		"transactions": rejected,
	})
}

// auditEntries returns recent audit log entries
func (h *Handler) auditEntries(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid limit",
		})
		return
	}

	entries, err := h.audit.Entries(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load audit log",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
