package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/repository"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

type ChatService interface {
	// Authorize is the connect-time gate: it resolves the room to an order
	// and verifies the identity is a party to it.
	Authorize(ctx context.Context, identity domain.Identity, room string) error
	PostMessage(ctx context.Context, identity domain.Identity, room, text string) (*domain.ChatMessage, error)
	History(ctx context.Context, identity domain.Identity, room string) ([]domain.ChatMessage, error)
}

type chatService struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	chatRepo  repository.ChatRepository
	orderRepo repository.OrderRepository
	catalog   CatalogService
	notifier  *Notifier
	transport Transport
	tracer    trace.Tracer
}

func NewChatService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	chatRepo repository.ChatRepository,
	orderRepo repository.OrderRepository,
	catalog CatalogService,
	notifier *Notifier,
	transport Transport,
) ChatService {
	return &chatService{
		pool:      pool,
		logger:    logger,
		chatRepo:  chatRepo,
		orderRepo: orderRepo,
		catalog:   catalog,
		notifier:  notifier,
		transport: transport,
		tracer:    otel.Tracer("chat_service"),
	}
}

func (s *chatService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}

// roomOrderID resolves a room name to its order. Rooms are keyed by the
// order identifier.
func roomOrderID(room string) (int64, error) {
	orderID, err := strconv.ParseInt(strings.TrimSpace(room), 10, 64)
	if err != nil || orderID < 1 {
		return 0, domain.NewNotFoundError("chat room")
	}

	return orderID, nil
}

// participants returns the two sides of the order's conversation: the buyer
// and the restaurant owner.
func (s *chatService) participants(ctx context.Context, order *domain.Order) (buyerID, ownerID int64, err error) {
	restaurant, err := s.catalog.RestaurantByID(ctx, order.RestaurantID)
	if err != nil {
		return 0, 0, err
	}

	return order.UserID, restaurant.OwnerID, nil
}

func (s *chatService) Authorize(ctx context.Context, identity domain.Identity, room string) error {
	ctx, span := s.tracer.Start(ctx, "ChatService.Authorize")
	defer span.End()

	orderID, err := roomOrderID(room)
	if err != nil {
		return err
	}

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return domain.NewNotFoundError("chat room")
		}
		return err
	}

	if identity.IsAdmin() {
		return nil
	}

	buyerID, ownerID, err := s.participants(ctx, order)
	if err != nil {
		return err
	}

	if identity.UserID != buyerID && identity.UserID != ownerID {
		return domain.NewNotFoundError("chat room")
	}

	return nil
}

func (s *chatService) PostMessage(ctx context.Context, identity domain.Identity, room, text string) (*domain.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.PostMessage")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError(domain.RuleEmptyMessage, "message must not be empty")
	}

	orderID, err := roomOrderID(room)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domain.NewNotFoundError("chat room")
		}
		return nil, err
	}

	// Archival is re-checked on every send: the room may have closed
	// between the connection being accepted and this message.
	if order.Archived {
		return nil, domain.ErrOrderArchived
	}

	if domain.ShouldArchive(order, time.Now()) {
		if err := s.orderRepo.SetArchived(ctx, tx, order.ID); err != nil {
			return nil, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		return nil, domain.ErrOrderArchived
	}

	buyerID, ownerID, err := s.participants(ctx, order)
	if err != nil {
		return nil, err
	}

	if !identity.IsAdmin() && identity.UserID != buyerID && identity.UserID != ownerID {
		return nil, domain.NewNotFoundError("chat room")
	}

	message := &domain.ChatMessage{
		Room:    room,
		OrderID: &order.ID,
		UserID:  identity.UserID,
		Message: text,
	}

	if err := s.chatRepo.Insert(ctx, tx, message); err != nil {
		return nil, err
	}

	counterparty := ownerID
	if identity.UserID == ownerID {
		counterparty = buyerID
	}

	notificationText := fmt.Sprintf("New message in order #%d chat", order.ID)
	if err := s.notifier.Notify(ctx, tx, counterparty, order.ID, notificationText); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.broadcast(ctx, room, message)

	return message, nil
}

// broadcast fans the committed message out to the room group. Delivery is
// best effort: the message is already durable, late joiners read it from
// History.
func (s *chatService) broadcast(ctx context.Context, room string, message *domain.ChatMessage) {
	frame, err := json.Marshal(domain.ChatBroadcast{
		User:      message.UserID,
		Message:   message.Message,
		Timestamp: message.Timestamp,
	})
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to marshal chat broadcast", zap.Error(err))

		return
	}

	if err := s.transport.Publish(ctx, ChatGroup(room), frame); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to broadcast chat message",
			zap.String("room", room),
			zap.Error(err),
		)
	}
}

func (s *chatService) History(ctx context.Context, identity domain.Identity, room string) ([]domain.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.History")
	defer span.End()

	if err := s.Authorize(ctx, identity, room); err != nil {
		return nil, err
	}

	return s.chatRepo.ListByRoom(ctx, room)
}
