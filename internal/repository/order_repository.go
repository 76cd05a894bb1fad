package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error)
	SetStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus, archived bool) error
	SetArchived(ctx context.Context, tx pgx.Tx, orderID int64) error
	SetPaid(ctx context.Context, tx pgx.Tx, orderID int64) error
	AppendHistory(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus, description string) error
	ListHistory(ctx context.Context, orderID int64) ([]domain.OrderHistory, error)
	ListByUser(ctx context.Context, userID int64, archived bool) ([]domain.Order, error)
	ListByRestaurant(ctx context.Context, restaurantID int64, archived bool) ([]domain.Order, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

const orderColumns = `
	id, user_id, restaurant_id, address_id, cart_id, payment_type,
	delivery_type, status, is_paid, archived, order_notes, created_at, updated_at
`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.RestaurantID,
		&o.AddressID,
		&o.CartID,
		&o.PaymentType,
		&o.DeliveryType,
		&o.Status,
		&o.IsPaid,
		&o.Archived,
		&o.OrderNotes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.Int64("restaurant_id", order.RestaurantID),
	)

	query := `
		INSERT INTO orders (user_id, restaurant_id, address_id, cart_id,
			payment_type, delivery_type, status, is_paid, archived, order_notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, FALSE, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		order.UserID,
		order.RestaurantID,
		order.AddressID,
		order.CartID,
		string(order.PaymentType),
		string(order.DeliveryType),
		string(order.Status),
		order.OrderNotes,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Int64("user_id", order.UserID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (r *orderRepo) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Get")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// GetForUpdate locks the order row, which is the per-order serialization key:
// concurrent status updates cannot interleave their history writes.
func (r *orderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return order, nil
}

func (r *orderRepo) SetStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus, archived bool) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1, archived = $2, updated_at = NOW()
		WHERE id = $3
	`

	commandTag, err := tx.Exec(ctx, query, string(status), archived, orderID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) SetArchived(ctx context.Context, tx pgx.Tx, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetArchived")
	defer span.End()

	query := `
		UPDATE orders
		SET archived = TRUE
		WHERE id = $1
	`

	commandTag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to archive order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) SetPaid(ctx context.Context, tx pgx.Tx, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetPaid")
	defer span.End()

	query := `
		UPDATE orders
		SET is_paid = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) AppendHistory(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus, description string) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.AppendHistory")
	defer span.End()

	query := `
		INSERT INTO order_history (order_id, status, description, timestamp)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := tx.Exec(ctx, query, orderID, string(status), description); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to append order history",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to append order history: %w", err)
	}

	return nil
}

func (r *orderRepo) ListHistory(ctx context.Context, orderID int64) ([]domain.OrderHistory, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListHistory")
	defer span.End()

	query := `
		SELECT id, order_id, status, timestamp, description
		FROM order_history
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var history []domain.OrderHistory
	for rows.Next() {
		var h domain.OrderHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Timestamp, &h.Description); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return history, nil
}

// listArchivalPredicate mirrors domain.ShouldArchive in SQL so listings agree
// with the lazy archival check even when nobody has fetched the order
// individually yet. The flag itself is still only written on locked reads.
const listArchivalPredicate = `
	(archived OR (status IN ('delivered', 'picked_up', 'cancelled') AND updated_at < $3)) = $2`

func (r *orderRepo) ListByUser(ctx context.Context, userID int64, archived bool) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByUser")
	defer span.End()

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND` + listArchivalPredicate + `
		ORDER BY created_at DESC`

	return r.list(ctx, span, query, userID, archived, time.Now().Add(-domain.ArchiveAfter))
}

func (r *orderRepo) ListByRestaurant(ctx context.Context, restaurantID int64, archived bool) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByRestaurant")
	defer span.End()

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE restaurant_id = $1 AND` + listArchivalPredicate + `
		ORDER BY created_at DESC`

	return r.list(ctx, span, query, restaurantID, archived, time.Now().Add(-domain.ArchiveAfter))
}

func (r *orderRepo) list(ctx context.Context, span trace.Span, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
