package checkout

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"pos-terminal/internal/kvstore"
)

// EnsureTerminalID returns the cached terminal id, generating and
// persisting one on first use. Format: <prefix><3-digit number>.
func EnsureTerminalID(ctx context.Context, kv kvstore.Store, prefix string) string {
	if kv != nil {
		if id, err := kv.Get(ctx, kvstore.KeyTerminalID); err == nil && id != "" {
			return id
		}
	}

	id := fmt.Sprintf("%s%03d", prefix, rand.Intn(1000))
	if kv != nil {
		// Best effort: a regenerated id on next boot is acceptable.
		_ = kv.Set(ctx, kvstore.KeyTerminalID, id)
	}
	return id
}

// NewReceiptNumber builds a human-legible receipt number for a
// gateway-confirmed transaction.
func NewReceiptNumber(now time.Time) string {
	return fmt.Sprintf("RCP-%s-%s", now.Format("20060102"), shortID())
}

// NewOfflineReceiptNumber builds a receipt number for an offline
// transaction. The OFF prefix keeps offline records recognizable until
// reconciliation.
func NewOfflineReceiptNumber(now time.Time) string {
	return fmt.Sprintf("OFF-%s-%s", now.Format("20060102"), shortID())
}

func shortID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
