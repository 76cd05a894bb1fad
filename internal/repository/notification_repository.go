package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
)

type NotificationRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, notification *domain.Notification) error
	ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
	MarkReadByOrder(ctx context.Context, orderID, userID int64) (int64, error)
}

type notificationRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewNotificationRepository(pool *pgxpool.Pool, logger *zap.Logger) NotificationRepository {
	return &notificationRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("notification_repository"),
	}
}

func (r *notificationRepo) Insert(ctx context.Context, tx pgx.Tx, notification *domain.Notification) error {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.Insert")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", notification.UserID),
		attribute.Int64("order_id", notification.OrderID),
	)

	query := `
		INSERT INTO notifications (user_id, order_id, message, is_read, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id, created_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		notification.UserID,
		notification.OrderID,
		notification.Message,
	).Scan(&notification.ID, &notification.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

func (r *notificationRepo) ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error) {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.ListUnread")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	query := `
		SELECT id, user_id, order_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND NOT is_read
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return notifications, nil
}

// MarkRead is scoped to the recipient, so a user cannot toggle someone
// else's notifications.
func (r *notificationRepo) MarkRead(ctx context.Context, notificationID, userID int64) error {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.MarkRead")
	defer span.End()

	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`

	commandTag, err := r.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

func (r *notificationRepo) MarkReadByOrder(ctx context.Context, orderID, userID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.MarkReadByOrder")
	defer span.End()

	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE order_id = $1 AND user_id = $2 AND NOT is_read
	`

	commandTag, err := r.pool.Exec(ctx, query, orderID, userID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return commandTag.RowsAffected(), nil
}
