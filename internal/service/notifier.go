package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/repository"
	outboxDomain "github.com/brtkpo/RestaurantApp/pkg/outbox/domain"
	"github.com/brtkpo/RestaurantApp/pkg/outbox/worker"
)

// NotificationTopic is the outbox topic real-time notification events go to.
const NotificationTopic = "notification_events"

// Notifier writes the durable notification row and its outbox event inside
// the caller's transaction. Delivery to connected clients happens only after
// the transaction commits, when the outbox worker picks the event up.
type Notifier struct {
	notificationRepo repository.NotificationRepository
	outboxRepo       worker.OutboxRepository
}

func NewNotifier(notificationRepo repository.NotificationRepository, outboxRepo worker.OutboxRepository) *Notifier {
	return &Notifier{
		notificationRepo: notificationRepo,
		outboxRepo:       outboxRepo,
	}
}

func (n *Notifier) Notify(ctx context.Context, tx pgx.Tx, userID, orderID int64, message string) error {
	notification := &domain.Notification{
		UserID:  userID,
		OrderID: orderID,
		Message: message,
	}

	if err := n.notificationRepo.Insert(ctx, tx, notification); err != nil {
		return err
	}

	event := domain.NotificationCreatedEvent{
		NotificationID: notification.ID,
		UserID:         notification.UserID,
		OrderID:        notification.OrderID,
		Message:        notification.Message,
		CreatedAt:      notification.CreatedAt,
	}

	envelope := map[string]any{
		"event":   "NotificationCreated",
		"payload": event,
	}

	payloadBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: "Notification",
		AggregateID:   fmt.Sprintf("%d", notification.ID),
		EventType:     "NotificationCreated",
		Payload:       payloadBytes,
		Topic:         NotificationTopic,
	}

	return n.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent)
}
