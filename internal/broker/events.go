package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusQueued is reported once a notification is handed to Kafka
const StatusQueued = "queued"

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishExportCreated publishes ExportCreated event
func (ep *EventPublisher) PublishExportCreated(ctx context.Context, event *models.ExportCreatedEvent) error {
	key := fmt.Sprintf("export-%d", event.ExportID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// NotifyExport queues the notification as an EXPORT_CREATED event for the notification worker
func (ep *EventPublisher) NotifyExport(ctx context.Context, n *models.ExportNotification) (string, error) {
	event := &models.ExportCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeExportCreated,
			Timestamp: time.Now(),
		},
		ExportID:      n.ExportID,
		InvoiceNumber: n.InvoiceNumber,
		ClientName:    n.ClientName,
		Email:         n.Email,
		PDFURL:        n.PDFURL,
	}

	if err := ep.PublishExportCreated(ctx, event); err != nil {
		return "", err
	}
	return StatusQueued, nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onExportCreated func(context.Context, *models.ExportCreatedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("broker")}
}

// OnExportCreated registers a handler for ExportCreated events
func (eh *EventHandler) OnExportCreated(handler func(context.Context, *models.ExportCreatedEvent) error) {
	eh.onExportCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeExportCreated:
		if eh.onExportCreated != nil {
			var event models.ExportCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ExportCreated event: %w", err)
			}
			return eh.onExportCreated(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
