package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
)

// HubPublisher adapts the hub to the outbox worker's publisher interface for
// single-process deployments: instead of going through a broker, committed
// notification events are routed straight to the recipient's user group.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) ProduceMessage(ctx context.Context, topic string, message interface{}) error {
	if topic != service.NotificationTopic {
		return nil
	}

	frame, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal notification frame: %w", err)
	}

	var envelope struct {
		Event   string                          `json:"event"`
		Payload domain.NotificationCreatedEvent `json:"payload"`
	}

	if err := json.Unmarshal(frame, &envelope); err != nil {
		return fmt.Errorf("failed to decode notification envelope: %w", err)
	}

	if envelope.Event != "NotificationCreated" {
		return nil
	}

	return p.hub.Publish(ctx, service.UserGroup(envelope.Payload.UserID), frame)
}
