package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/repository"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// NotificationService is the reconciliation surface: clients that missed a
// live push read the durable rows here and acknowledge them.
type NotificationService interface {
	Unread(ctx context.Context, identity domain.Identity) ([]domain.Notification, error)
	MarkRead(ctx context.Context, identity domain.Identity, notificationID int64) error
	MarkReadByOrder(ctx context.Context, identity domain.Identity, orderID int64) (int64, error)
}

type notificationService struct {
	logger           *zap.Logger
	notificationRepo repository.NotificationRepository
	tracer           trace.Tracer
}

func NewNotificationService(logger *zap.Logger, notificationRepo repository.NotificationRepository) NotificationService {
	return &notificationService{
		logger:           logger,
		notificationRepo: notificationRepo,
		tracer:           otel.Tracer("notification_service"),
	}
}

func (s *notificationService) Unread(ctx context.Context, identity domain.Identity) ([]domain.Notification, error) {
	ctx, span := s.tracer.Start(ctx, "NotificationService.Unread")
	defer span.End()

	return s.notificationRepo.ListUnread(ctx, identity.UserID)
}

func (s *notificationService) MarkRead(ctx context.Context, identity domain.Identity, notificationID int64) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.MarkRead")
	defer span.End()

	err := s.notificationRepo.MarkRead(ctx, notificationID, identity.UserID)
	if err != nil {
		// Someone else's notification looks exactly like a missing one.
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return domain.NewNotFoundError("notification")
		}
		return err
	}

	return nil
}

func (s *notificationService) MarkReadByOrder(ctx context.Context, identity domain.Identity, orderID int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "NotificationService.MarkReadByOrder")
	defer span.End()

	count, err := s.notificationRepo.MarkReadByOrder(ctx, orderID, identity.UserID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		mylogger.Debug(
			ctx,
			s.logger,
			"Notifications acknowledged",
			zap.Int64("order_id", orderID),
			zap.Int64("user_id", identity.UserID),
			zap.Int64("count", count),
		)
	}

	return count, nil
}
