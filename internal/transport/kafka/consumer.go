package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/internal/ws"
	"github.com/brtkpo/RestaurantApp/pkg/kafka"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// Consumer bridges broker-delivered notification events to the in-process
// hub. In multi-instance deployments every instance consumes the topic, so
// the instance holding the recipient's connection delivers the frame.
type Consumer struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewConsumer(hub *ws.Hub, logger *zap.Logger) *Consumer {
	return &Consumer{
		hub:    hub,
		logger: logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID string) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{service.NotificationTopic},
		c.processMessage,
		c.logger,
	)

	consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var wrapper struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.Error(err))
		return err
	}

	switch wrapper.Event {
	case "NotificationCreated":
		var event domain.NotificationCreatedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Error parsing notification event", zap.Error(err))
			return nil
		}

		return c.hub.Publish(ctx, service.UserGroup(event.UserID), msg.Value)
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event", wrapper.Event))
	}

	return nil
}
