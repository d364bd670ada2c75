package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"pos-terminal/internal/models"
	"pos-terminal/internal/util"
)

// EventPublisher handles publishing transaction lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCommitted publishes a TransactionCommitted event
func (ep *EventPublisher) PublishCommitted(ctx context.Context, event *models.TransactionCommittedEvent) error {
	key := fmt.Sprintf("tx-%s", event.TransactionID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOffline publishes a TransactionOffline event
func (ep *EventPublisher) PublishOffline(ctx context.Context, event *models.TransactionOfflineEvent) error {
	key := fmt.Sprintf("tx-%s", event.TransactionID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReconciled publishes a TransactionReconciled event
func (ep *EventPublisher) PublishReconciled(ctx context.Context, event *models.TransactionReconciledEvent) error {
	key := fmt.Sprintf("tx-%s", event.TransactionID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming transaction events to registered
// callbacks.
type EventHandler struct {
	onCommitted  func(context.Context, *models.TransactionCommittedEvent) error
	onOffline    func(context.Context, *models.TransactionOfflineEvent) error
	onReconciled func(context.Context, *models.TransactionReconciledEvent) error
	logger       *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger().Named("broker")}
}

// OnCommitted registers a handler for TransactionCommitted events
func (eh *EventHandler) OnCommitted(handler func(context.Context, *models.TransactionCommittedEvent) error) {
	eh.onCommitted = handler
}

// OnOffline registers a handler for TransactionOffline events
func (eh *EventHandler) OnOffline(handler func(context.Context, *models.TransactionOfflineEvent) error) {
	eh.onOffline = handler
}

// OnReconciled registers a handler for TransactionReconciled events
func (eh *EventHandler) OnReconciled(handler func(context.Context, *models.TransactionReconciledEvent) error) {
	eh.onReconciled = handler
}

// HandleMessage routes messages to the appropriate handler
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeTransactionCommitted:
		if eh.onCommitted != nil {
			var event models.TransactionCommittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionCommitted event: %w", err)
			}
			return eh.onCommitted(ctx, &event)
		}

	case models.EventTypeTransactionOffline:
		if eh.onOffline != nil {
			var event models.TransactionOfflineEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionOffline event: %w", err)
			}
			return eh.onOffline(ctx, &event)
		}

	case models.EventTypeTransactionReconciled:
		if eh.onReconciled != nil {
			var event models.TransactionReconciledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionReconciled event: %w", err)
			}
			return eh.onReconciled(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type",
			zap.String("type", baseEvent.EventType))
	}

	return nil
}
