package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"
)

// Service fronts the product catalog: Postgres is the source of truth,
// the KV store holds a snapshot so lookups survive database hiccups.
type Service struct {
	store  *store.Store
	kv     kvstore.Store
	logger *zap.Logger
}

// NewService creates a catalog service.
func NewService(st *store.Store, kv kvstore.Store) *Service {
	return &Service{
		store:  st,
		kv:     kv,
		logger: util.GetLogger().Named("catalog"),
	}
}

// Products returns the full catalog from the database, falling back to
// the cached snapshot when the database is unreachable.
func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.GetProducts(ctx)
	if err == nil {
		return products, nil
	}

	s.logger.Warn("Catalog read failed, serving cached snapshot", zap.Error(err))

	var cached []models.Product
	if cerr := kvstore.GetJSON(ctx, s.kv, kvstore.KeyCatalogCache, &cached); cerr != nil {
		if errors.Is(cerr, kvstore.ErrNotFound) {
			return nil, err
		}
		return nil, cerr
	}
	return cached, nil
}

// GetProductsByIDs loads live products for stock revalidation.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	return s.store.GetProductsByIDs(ctx, ids)
}

// ProductByBarcode resolves a scanned barcode to a product.
func (s *Service) ProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	product, err := s.store.GetProductByBarcode(ctx, barcode)
	if err == nil {
		return product, nil
	}

	// Scan the snapshot before giving up; the cashier may be mid-sale
	// during a database outage.
	var cached []models.Product
	if cerr := kvstore.GetJSON(ctx, s.kv, kvstore.KeyCatalogCache, &cached); cerr == nil {
		for i := range cached {
			if cached[i].Barcode == barcode {
				return &cached[i], nil
			}
		}
	}
	return nil, err
}

// Categories returns the distinct product categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.GetCategories(ctx)
}

// InventoryStatus summarizes the stock position.
func (s *Service) InventoryStatus(ctx context.Context, lowStockThreshold int) (*models.InventoryStatus, error) {
	return s.store.GetInventoryStatus(ctx, lowStockThreshold)
}

// DailySalesReport aggregates mirrored transactions for one calendar
// day. Unlike the KV running totals it includes reconciled offline
// sales exactly once, so it is the end-of-day reporting figure.
func (s *Service) DailySalesReport(ctx context.Context, date time.Time) (*models.DailySales, error) {
	return s.store.GetDailySales(ctx, date)
}

// SyncToCache snapshots the catalog into the KV store.
func (s *Service) SyncToCache(ctx context.Context) error {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		util.CatalogRefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if err := kvstore.SetJSON(ctx, s.kv, kvstore.KeyCatalogCache, products); err != nil {
		util.CatalogRefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to cache catalog: %w", err)
	}

	util.CatalogRefreshTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("Catalog snapshot refreshed", zap.Int("count", len(products)))
	return nil
}
