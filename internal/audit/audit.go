package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/models"
	"pos-terminal/internal/util"
)

// DefaultRetention caps the audit log when no retention is configured.
const DefaultRetention = 10000

// Logger appends structured audit entries to an append-only, capped,
// most-recent-first store. Every public method swallows persistence
// errors: logging must never block a business operation.
type Logger struct {
	mu        sync.Mutex
	kv        kvstore.Store
	retention int
	actor     models.Actor
	log       *zap.Logger
}

// NewLogger creates an audit logger over kv. A retention <= 0 falls back
// to DefaultRetention. A nil kv degrades to console-only emission. A
// session snapshot persisted by a previous run restores the actor.
func NewLogger(kv kvstore.Store, retention int) *Logger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	l := &Logger{
		kv:        kv,
		retention: retention,
		log:       util.GetLogger().Named("audit"),
	}
	if kv != nil {
		var actor models.Actor
		if err := kvstore.GetJSON(context.Background(), kv, kvstore.KeySession, &actor); err == nil {
			l.actor = actor
		}
	}
	return l
}

// SetActor records the identity attached to subsequent entries and
// snapshots it so a restart keeps the signed-in session. Until it is
// called, entries are attributed to the system actor.
func (l *Logger) SetActor(actor models.Actor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actor = actor
	if l.kv != nil {
		// Best effort: a lost snapshot only costs attribution after a
		// restart.
		if err := kvstore.SetJSON(context.Background(), l.kv, kvstore.KeySession, actor); err != nil {
			l.log.Warn("Failed to persist session actor", zap.Error(err))
		}
	}
}

func (l *Logger) currentActor() models.Actor {
	if l.actor.User == "" {
		return models.Actor{User: "system", Role: "system"}
	}
	return l.actor
}

// Log appends one entry. Failures are reported to the console log only.
func (l *Logger) Log(ctx context.Context, action, description, category, severity string, metadata map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := models.LogEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Actor:       l.currentActor(),
		Action:      action,
		Description: description,
		Category:    category,
		Severity:    severity,
		Metadata:    metadata,
	}

	if err := l.append(ctx, entry); err != nil {
		l.log.Warn("Audit append failed",
			zap.String("action", action),
			zap.Error(err))
	}
}

func (l *Logger) append(ctx context.Context, entry models.LogEntry) error {
	if l.kv == nil {
		l.log.Info("Audit entry (no store)",
			zap.String("action", entry.Action),
			zap.String("category", entry.Category),
			zap.String("severity", entry.Severity),
			zap.String("description", entry.Description))
		return nil
	}

	var entries []models.LogEntry
	if err := kvstore.GetJSON(ctx, l.kv, kvstore.KeyAuditLog, &entries); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}

	// Newest first; oldest entries fall off the end.
	entries = append([]models.LogEntry{entry}, entries...)
	if len(entries) > l.retention {
		entries = entries[:l.retention]
	}

	return kvstore.SetJSON(ctx, l.kv, kvstore.KeyAuditLog, entries)
}

// Entries returns the stored log, most recent first, capped at limit
// (0 means all).
func (l *Logger) Entries(ctx context.Context, limit int) ([]models.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kv == nil {
		return nil, nil
	}

	var entries []models.LogEntry
	if err := kvstore.GetJSON(ctx, l.kv, kvstore.KeyAuditLog, &entries); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Login records a successful sign-in.
func (l *Logger) Login(ctx context.Context, user, role string) {
	l.Log(ctx, "login", fmt.Sprintf("User %s signed in as %s", user, role),
		models.AuditCategoryLogin, models.SeverityInfo,
		map[string]string{"user": user, "role": role})
}

// Logout records a sign-out and drops the session snapshot; subsequent
// entries fall back to the system actor.
func (l *Logger) Logout(ctx context.Context, user string) {
	l.Log(ctx, "logout", fmt.Sprintf("User %s signed out", user),
		models.AuditCategoryLogout, models.SeverityInfo,
		map[string]string{"user": user})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.actor = models.Actor{}
	if l.kv != nil {
		if err := l.kv.Remove(ctx, kvstore.KeySession); err != nil {
			l.log.Warn("Failed to clear session actor", zap.Error(err))
		}
	}
}

// Transaction records a transaction lifecycle event.
func (l *Logger) Transaction(ctx context.Context, action, receiptNumber, total string) {
	l.Log(ctx, action, fmt.Sprintf("Transaction %s, total %s", receiptNumber, total),
		models.AuditCategoryTransaction, models.SeverityInfo,
		map[string]string{"receipt_number": receiptNumber, "total": total})
}

// Inventory records a stock change.
func (l *Logger) Inventory(ctx context.Context, productID string, delta int, reason string) {
	l.Log(ctx, "stock_change", fmt.Sprintf("Stock of %s changed by %d (%s)", productID, delta, reason),
		models.AuditCategoryInventory, models.SeverityInfo,
		map[string]string{"product_id": productID, "delta": fmt.Sprintf("%d", delta)})
}

// Security records a security-relevant event at warning severity.
func (l *Logger) Security(ctx context.Context, action, description string) {
	l.Log(ctx, action, description,
		models.AuditCategorySecurity, models.SeverityWarning, nil)
}

// APICall records an outbound call outcome. Severity derives from the
// status code: >=400 error, >=300 warning, otherwise info.
func (l *Logger) APICall(ctx context.Context, method, path string, status int) {
	severity := models.SeverityInfo
	switch {
	case status >= 400:
		severity = models.SeverityError
	case status >= 300:
		severity = models.SeverityWarning
	}

	l.Log(ctx, "api_call", fmt.Sprintf("%s %s -> %d", method, path, status),
		models.AuditCategoryAPI, severity,
		map[string]string{"method": method, "path": path, "status": fmt.Sprintf("%d", status)})
}
