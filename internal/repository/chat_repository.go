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

type ChatRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, message *domain.ChatMessage) error
	ListByRoom(ctx context.Context, room string) ([]domain.ChatMessage, error)
}

type chatRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewChatRepository(pool *pgxpool.Pool, logger *zap.Logger) ChatRepository {
	return &chatRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("chat_repository"),
	}
}

func (r *chatRepo) Insert(ctx context.Context, tx pgx.Tx, message *domain.ChatMessage) error {
	ctx, span := r.tracer.Start(ctx, "ChatRepository.Insert")
	defer span.End()

	span.SetAttributes(
		attribute.String("room", message.Room),
		attribute.Int64("user_id", message.UserID),
	)

	query := `
		INSERT INTO chat_messages (room, order_id, user_id, message, timestamp)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, timestamp
	`

	if err := tx.QueryRow(
		ctx,
		query,
		message.Room,
		message.OrderID,
		message.UserID,
		message.Message,
	).Scan(&message.ID, &message.Timestamp); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chat message: %w", err)
	}

	return nil
}

func (r *chatRepo) ListByRoom(ctx context.Context, room string) ([]domain.ChatMessage, error) {
	ctx, span := r.tracer.Start(ctx, "ChatRepository.ListByRoom")
	defer span.End()

	span.SetAttributes(attribute.String("room", room))

	query := `
		SELECT id, room, order_id, user_id, message, timestamp
		FROM chat_messages
		WHERE room = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, room)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.Room, &m.OrderID, &m.UserID, &m.Message, &m.Timestamp); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}
