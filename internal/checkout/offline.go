package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
	"pos-terminal/internal/util"
)

// LoadOfflineQueue returns the persisted offline transactions, oldest
// first.
func LoadOfflineQueue(ctx context.Context, kv kvstore.Store) ([]models.Transaction, error) {
	var queue []models.Transaction
	if err := kvstore.GetJSON(ctx, kv, kvstore.KeyOfflineQueue, &queue); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return queue, nil
}

// AppendOffline persists tx to the offline queue and returns the new
// queue depth.
func AppendOffline(ctx context.Context, kv kvstore.Store, tx models.Transaction) (int, error) {
	queue, err := LoadOfflineQueue(ctx, kv)
	if err != nil {
		return 0, err
	}
	queue = append(queue, tx)
	if err := kvstore.SetJSON(ctx, kv, kvstore.KeyOfflineQueue, queue); err != nil {
		return 0, err
	}
	util.OfflineQueueDepth.Set(float64(len(queue)))
	return len(queue), nil
}

// RemoveOffline drops the transaction with the given id from the queue.
func RemoveOffline(ctx context.Context, kv kvstore.Store, id string) error {
	queue, err := LoadOfflineQueue(ctx, kv)
	if err != nil {
		return err
	}

	kept := queue[:0]
	for _, tx := range queue {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	if err := kvstore.SetJSON(ctx, kv, kvstore.KeyOfflineQueue, kept); err != nil {
		return err
	}
	util.OfflineQueueDepth.Set(float64(len(kept)))
	return nil
}

// BumpDailyTotals adds a confirmed sale to the running per-day totals.
func BumpDailyTotals(ctx context.Context, kv kvstore.Store, now time.Time, total decimal.Decimal) error {
	date := now.Format("2006-01-02")

	sales := decimal.Zero
	if raw, err := kv.Get(ctx, kvstore.DailySalesKey(date)); err == nil {
		if parsed, perr := decimal.NewFromString(raw); perr == nil {
			sales = parsed
		}
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}

	count := 0
	if raw, err := kv.Get(ctx, kvstore.DailyCountKey(date)); err == nil {
		count, _ = strconv.Atoi(raw)
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}

	if err := kv.Set(ctx, kvstore.DailySalesKey(date), sales.Add(total).String()); err != nil {
		return err
	}
	return kv.Set(ctx, kvstore.DailyCountKey(date), strconv.Itoa(count+1))
}

// GetDailyTotals reads the running totals for one calendar day.
func GetDailyTotals(ctx context.Context, kv kvstore.Store, date string) (*models.DailySales, error) {
	sales := decimal.Zero
	if raw, err := kv.Get(ctx, kvstore.DailySalesKey(date)); err == nil {
		parsed, perr := decimal.NewFromString(raw)
		if perr != nil {
			return nil, fmt.Errorf("corrupt daily sales for %s: %w", date, perr)
		}
		sales = parsed
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return nil, err
	}

	count := 0
	if raw, err := kv.Get(ctx, kvstore.DailyCountKey(date)); err == nil {
		count, _ = strconv.Atoi(raw)
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return nil, err
	}

	return &models.DailySales{
		Date:         date,
		TotalSales:   sales,
		TransactionN: count,
	}, nil
}
