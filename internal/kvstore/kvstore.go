package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store is the persisted key-value surface used by the checkout flow,
// the offline transaction queue and the audit log. Implementations must
// tolerate a single writer; cross-process consistency is not required.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Well-known keys.
const (
	KeyTerminalID    = "pos:terminal_id"
	KeyOfflineQueue  = "pos:offline_transactions"
	KeyRejectedQueue = "pos:rejected_transactions"
	KeyAuditLog      = "pos:audit_log"
	KeyCatalogCache  = "pos:catalog"
	KeySession       = "pos:session"
)

// DailySalesKey returns the key holding the running sales total for a day.
func DailySalesKey(date string) string {
	return fmt.Sprintf("pos:daily:sales:%s", date)
}

// DailyCountKey returns the key holding the transaction count for a day.
func DailyCountKey(date string) string {
	return fmt.Sprintf("pos:daily:count:%s", date)
}

// GetJSON reads a key and unmarshals it into v. Missing keys return
// ErrNotFound with v untouched.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
