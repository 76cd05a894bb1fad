package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/repository"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

type CartService interface {
	CreateCart(ctx context.Context) (*domain.Cart, error)
	GetOrCreateCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, productID int64, quantity int32) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, sessionID string, itemID int64, quantity int32) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, sessionID string, itemID int64) error
	ListItems(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	ClearOtherRestaurant(ctx context.Context, sessionID string, keepRestaurantID int64) error
}

type cartService struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	cartRepo repository.CartRepository
	catalog  CatalogService
	tracer   trace.Tracer
}

func NewCartService(pool *pgxpool.Pool, logger *zap.Logger, cartRepo repository.CartRepository, catalog CatalogService) CartService {
	return &cartService{
		pool:     pool,
		logger:   logger,
		cartRepo: cartRepo,
		catalog:  catalog,
		tracer:   otel.Tracer("cart_service"),
	}
}

// sweepStale is the opportunistic staleness sweep: it rides along on every
// cart read instead of a dedicated scheduler. Failures only get logged, the
// read itself must not suffer.
func (s *cartService) sweepStale(ctx context.Context) {
	deleted, err := s.cartRepo.DeleteStale(ctx, time.Now().Add(-domain.CartTTL))
	if err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Stale cart sweep failed",
			zap.Error(err),
		)

		return
	}

	if deleted > 0 {
		mylogger.Info(
			ctx,
			s.logger,
			"Swept stale carts",
			zap.Int64("deleted", deleted),
		)
	}
}

func (s *cartService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}

func (s *cartService) CreateCart(ctx context.Context) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.CreateCart")
	defer span.End()

	return s.GetOrCreateCart(ctx, uuid.New().String())
}

func (s *cartService) GetOrCreateCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.GetOrCreateCart")
	defer span.End()

	s.sweepStale(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetOrCreateBySession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.PurgeUnavailableItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if cart.TotalPrice, err = s.cartRepo.RecomputeTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if cart.Items, err = s.cartRepo.ListItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, productID int64, quantity int32) (*domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, domain.NewValidationError(domain.RuleInvalidQuantity, "quantity must be at least 1")
	}

	product, err := s.catalog.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.NewNotFoundError("product")
		}
		return nil, err
	}

	if !product.IsAvailable || product.Archived {
		return nil, domain.NewNotFoundError("product")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetOrCreateBySession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.UpsertItem(ctx, tx, cart.ID, product, quantity)
	if err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.RecomputeTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Debug(
		ctx,
		s.logger,
		"Cart item added",
		zap.Int64("cart_id", cart.ID),
		zap.Int64("product_id", productID),
		zap.Int32("quantity", item.Quantity),
	)

	return item, nil
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, sessionID string, itemID int64, quantity int32) (*domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	if quantity < 1 {
		return nil, domain.NewValidationError(domain.RuleInvalidQuantity, "quantity must be at least 1")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetBySession(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, domain.NewNotFoundError("cart")
		}
		return nil, err
	}

	item, err := s.cartRepo.GetItem(ctx, tx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, domain.NewNotFoundError("cart item")
		}
		return nil, err
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, tx, item.ID, quantity); err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.RecomputeTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.Touch(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	item.Quantity = quantity
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, itemID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetBySession(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewNotFoundError("cart")
		}
		return err
	}

	item, err := s.cartRepo.GetItem(ctx, tx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return domain.NewNotFoundError("cart item")
		}
		return err
	}

	if err := s.cartRepo.DeleteItem(ctx, tx, item.ID); err != nil {
		return err
	}

	if _, err := s.cartRepo.RecomputeTotal(ctx, tx, cart.ID); err != nil {
		return err
	}

	if err := s.cartRepo.Touch(ctx, tx, cart.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *cartService) ListItems(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.ListItems")
	defer span.End()

	cart, err := s.GetOrCreateCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return cart.Items, nil
}

// ClearOtherRestaurant enforces the single-restaurant-per-cart policy before
// checkout: everything not belonging to the kept restaurant goes.
func (s *cartService) ClearOtherRestaurant(ctx context.Context, sessionID string, keepRestaurantID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.ClearOtherRestaurant")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetBySession(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewNotFoundError("cart")
		}
		return err
	}

	deleted, err := s.cartRepo.DeleteItemsOfOtherRestaurants(ctx, tx, cart.ID, keepRestaurantID)
	if err != nil {
		return err
	}

	if _, err := s.cartRepo.RecomputeTotal(ctx, tx, cart.ID); err != nil {
		return err
	}

	if err := s.cartRepo.Touch(ctx, tx, cart.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Debug(
		ctx,
		s.logger,
		"Cleared foreign restaurant items",
		zap.Int64("cart_id", cart.ID),
		zap.Int64("kept_restaurant_id", keepRestaurantID),
		zap.Int64("deleted", deleted),
	)

	return nil
}
