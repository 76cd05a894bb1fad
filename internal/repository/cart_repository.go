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

type CartRepository interface {
	GetOrCreateBySession(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.Cart, error)
	GetBySession(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.Cart, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, cartID int64) (*domain.Cart, error)
	ListItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]domain.CartItem, error)
	GetItem(ctx context.Context, tx pgx.Tx, cartID, itemID int64) (*domain.CartItem, error)
	UpsertItem(ctx context.Context, tx pgx.Tx, cartID int64, product *domain.Product, quantity int32) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int32) error
	DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error
	DeleteItemsOfOtherRestaurants(ctx context.Context, tx pgx.Tx, cartID, keepRestaurantID int64) (int64, error)
	PurgeUnavailableItems(ctx context.Context, tx pgx.Tx, cartID int64) (int64, error)
	RecomputeTotal(ctx context.Context, tx pgx.Tx, cartID int64) (int64, error)
	Touch(ctx context.Context, tx pgx.Tx, cartID int64) error
	DeleteStale(ctx context.Context, olderThan time.Time) (int64, error)
	ConvertToOrder(ctx context.Context, tx pgx.Tx, cartID, orderID int64) error
}

type cartRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartRepository(pool *pgxpool.Pool, logger *zap.Logger) CartRepository {
	return &cartRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("cart_repository"),
	}
}

func (r *cartRepo) GetOrCreateBySession(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetOrCreateBySession")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	query := `
		INSERT INTO carts (session_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, session_id, order_id, total_price, created_at, updated_at
	`

	var cart domain.Cart
	if err := tx.QueryRow(ctx, query, sessionID).Scan(
		&cart.ID,
		&cart.SessionID,
		&cart.OrderID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to upsert cart",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to upsert cart: %w", err)
	}

	return &cart, nil
}

func (r *cartRepo) GetBySession(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetBySession")
	defer span.End()

	query := `
		SELECT id, session_id, order_id, total_price, created_at, updated_at
		FROM carts
		WHERE session_id = $1
		FOR UPDATE
	`

	var cart domain.Cart
	if err := tx.QueryRow(ctx, query, sessionID).Scan(
		&cart.ID,
		&cart.SessionID,
		&cart.OrderID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return &cart, nil
}

func (r *cartRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, cartID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int64("cart_id", cartID))

	query := `
		SELECT id, session_id, order_id, total_price, created_at, updated_at
		FROM carts
		WHERE id = $1
		FOR UPDATE
	`

	var cart domain.Cart
	if err := tx.QueryRow(ctx, query, cartID).Scan(
		&cart.ID,
		&cart.SessionID,
		&cart.OrderID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return &cart, nil
}

func (r *cartRepo) ListItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.ListItems")
	defer span.End()

	span.SetAttributes(attribute.Int64("cart_id", cartID))

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`

	rows, err := tx.Query(ctx, query, cartID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Name,
			&item.Price,
			&item.Quantity,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func (r *cartRepo) GetItem(ctx context.Context, tx pgx.Tx, cartID, itemID int64) (*domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetItem")
	defer span.End()

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND ci.cart_id = $2
	`

	var item domain.CartItem
	if err := tx.QueryRow(ctx, query, itemID, cartID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Name,
		&item.Price,
		&item.Quantity,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}

	return &item, nil
}

// UpsertItem accumulates quantity when the product is already in the cart and
// keeps the original price snapshot. A fresh insert snapshots the product's
// current price.
func (r *cartRepo) UpsertItem(ctx context.Context, tx pgx.Tx, cartID int64, product *domain.Product, quantity int32) (*domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.UpsertItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
		attribute.Int64("product_id", product.ID),
	)

	query := `
		INSERT INTO cart_items (cart_id, product_id, price, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, price, quantity
	`

	var item domain.CartItem
	if err := tx.QueryRow(ctx, query, cartID, product.ID, product.Price, quantity).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Price,
		&item.Quantity,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to upsert cart item",
			zap.Int64("cart_id", cartID),
			zap.Int64("product_id", product.ID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	item.Name = product.Name
	return &item, nil
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.UpdateItemQuantity")
	defer span.End()

	query := `
		UPDATE cart_items
		SET quantity = $1
		WHERE id = $2
	`

	commandTag, err := tx.Exec(ctx, query, quantity, itemID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.DeleteItem")
	defer span.End()

	commandTag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) DeleteItemsOfOtherRestaurants(ctx context.Context, tx pgx.Tx, cartID, keepRestaurantID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.DeleteItemsOfOtherRestaurants")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
		attribute.Int64("keep_restaurant_id", keepRestaurantID),
	)

	query := `
		DELETE FROM cart_items ci
		USING products p
		WHERE ci.cart_id = $1
		  AND p.id = ci.product_id
		  AND p.restaurant_id <> $2
	`

	commandTag, err := tx.Exec(ctx, query, cartID, keepRestaurantID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to delete items of other restaurants: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

// PurgeUnavailableItems is the read-time cleanup: items whose product went
// unavailable (or was archived) disappear from every list.
func (r *cartRepo) PurgeUnavailableItems(ctx context.Context, tx pgx.Tx, cartID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.PurgeUnavailableItems")
	defer span.End()

	query := `
		DELETE FROM cart_items ci
		USING products p
		WHERE ci.cart_id = $1
		  AND p.id = ci.product_id
		  AND (NOT p.is_available OR p.archived)
	`

	commandTag, err := tx.Exec(ctx, query, cartID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to purge unavailable items: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

// RecomputeTotal runs in the same transaction as the item mutation that
// triggered it, so no stale total is ever visible to a later read.
func (r *cartRepo) RecomputeTotal(ctx context.Context, tx pgx.Tx, cartID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.RecomputeTotal")
	defer span.End()

	query := `
		UPDATE carts
		SET total_price = COALESCE((
			SELECT SUM(price * quantity)
			FROM cart_items
			WHERE cart_id = $1
		), 0)
		WHERE id = $1
		RETURNING total_price
	`

	var total int64
	if err := tx.QueryRow(ctx, query, cartID).Scan(&total); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to recompute cart total: %w", err)
	}

	return total, nil
}

func (r *cartRepo) Touch(ctx context.Context, tx pgx.Tx, cartID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Touch")
	defer span.End()

	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to touch cart: %w", err)
	}

	return nil
}

// DeleteStale removes carts without an order reference untouched past the
// cutoff. Items cascade.
func (r *cartRepo) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.DeleteStale")
	defer span.End()

	query := `
		DELETE FROM carts
		WHERE order_id IS NULL AND updated_at < $1
	`

	commandTag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to delete stale carts",
			zap.Error(err),
		)

		return 0, fmt.Errorf("failed to delete stale carts: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

// ConvertToOrder atomically detaches the session token and attaches the order
// reference. The guard on session_id makes a double conversion impossible: a
// cart is never addressable by both a stale session and an order.
func (r *cartRepo) ConvertToOrder(ctx context.Context, tx pgx.Tx, cartID, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.ConvertToOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
		attribute.Int64("order_id", orderID),
	)

	query := `
		UPDATE carts
		SET session_id = NULL, order_id = $1, updated_at = NOW()
		WHERE id = $2 AND session_id IS NOT NULL AND order_id IS NULL
	`

	commandTag, err := tx.Exec(ctx, query, orderID, cartID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to convert cart: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartAlreadyConverted
	}

	return nil
}
