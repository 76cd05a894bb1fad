package service

import (
	"context"
	"errors"
	"fmt"
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

type CreateOrderParams struct {
	SessionID    string
	AddressID    int64
	PaymentType  domain.PaymentType
	DeliveryType domain.DeliveryType
	OrderNotes   string
}

type OrderService interface {
	CreateOrder(ctx context.Context, identity domain.Identity, params CreateOrderParams) (*domain.Order, error)
	UpdateStatus(ctx context.Context, identity domain.Identity, orderID int64, next domain.OrderStatus, description string) (*domain.Order, error)
	MarkPaid(ctx context.Context, orderID int64) error
	Get(ctx context.Context, identity domain.Identity, orderID int64) (*domain.Order, error)
	ListUserOrders(ctx context.Context, identity domain.Identity, archived bool) ([]domain.Order, error)
	ListRestaurantOrders(ctx context.Context, identity domain.Identity, restaurantID int64, archived bool) ([]domain.Order, error)
}

type orderService struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	catalog   CatalogService
	notifier  *Notifier
	tracer    trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	catalog CatalogService,
	notifier *Notifier,
) OrderService {
	return &orderService{
		pool:      pool,
		logger:    logger,
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		catalog:   catalog,
		notifier:  notifier,
		tracer:    otel.Tracer("order_service"),
	}
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}

func (s *orderService) CreateOrder(ctx context.Context, identity domain.Identity, params CreateOrderParams) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	address, err := s.catalog.AddressByID(ctx, params.AddressID)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			return nil, domain.NewNotFoundError("address")
		}
		return nil, err
	}

	if address.UserID != identity.UserID {
		return nil, domain.NewForbiddenError("address belongs to another user")
	}

	if address.Archived {
		return nil, domain.NewValidationError(domain.RuleAddressArchived, "address is archived")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetBySession(ctx, tx, params.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, domain.NewNotFoundError("cart")
		}
		return nil, err
	}

	if cart.OrderID != nil {
		return nil, domain.NewConflictError("cart already converted to an order")
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

	if len(cart.Items) == 0 {
		return nil, domain.NewValidationError(domain.RuleEmptyCart, "cart has no items")
	}

	firstProduct, err := s.catalog.ProductByID(ctx, cart.Items[0].ProductID)
	if err != nil {
		return nil, err
	}

	restaurant, err := s.catalog.RestaurantByID(ctx, firstProduct.RestaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return nil, domain.NewNotFoundError("restaurant")
		}
		return nil, err
	}

	if cart.TotalPrice < restaurant.MinimumOrderAmount {
		return nil, domain.NewValidationError(
			domain.RuleBelowMinimumOrder,
			fmt.Sprintf("cart total %d is below the restaurant minimum %d", cart.TotalPrice, restaurant.MinimumOrderAmount),
		)
	}

	if params.DeliveryType == domain.DeliveryTypeDelivery && !restaurant.DeliversTo(address.City) {
		return nil, domain.NewValidationError(
			domain.RuleUnsupportedDeliveryArea,
			fmt.Sprintf("restaurant does not deliver to %s", address.City),
		)
	}

	if params.PaymentType == domain.PaymentTypeCash && !restaurant.AllowsCashPayment {
		return nil, domain.NewValidationError(domain.RuleCashPaymentNotAccepted, "restaurant does not accept cash payments")
	}

	order := &domain.Order{
		UserID:       identity.UserID,
		RestaurantID: restaurant.ID,
		AddressID:    address.ID,
		CartID:       cart.ID,
		PaymentType:  params.PaymentType,
		DeliveryType: params.DeliveryType,
		Status:       domain.OrderStatusPending,
		OrderNotes:   params.OrderNotes,
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.orderRepo.AppendHistory(ctx, tx, order.ID, domain.OrderStatusPending, "order placed"); err != nil {
		return nil, err
	}

	if err := s.cartRepo.ConvertToOrder(ctx, tx, cart.ID, order.ID); err != nil {
		if errors.Is(err, repository.ErrCartAlreadyConverted) {
			return nil, domain.NewConflictError("cart already converted to an order")
		}
		return nil, err
	}

	message := fmt.Sprintf("New order #%d received", order.ID)
	if err := s.notifier.Notify(ctx, tx, restaurant.OwnerID, order.ID, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", identity.UserID),
		zap.Int64("restaurant_id", restaurant.ID),
		zap.Int64("total_price", cart.TotalPrice),
	)

	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, identity domain.Identity, orderID int64, next domain.OrderStatus, description string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domain.NewNotFoundError("order")
		}
		return nil, err
	}

	if archived, err := s.settleArchival(ctx, tx, order); err != nil {
		return nil, err
	} else if archived {
		return nil, domain.ErrOrderArchived
	}

	if err := s.authorizeTransition(ctx, identity, order, next); err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, domain.NewValidationError(
			domain.RuleInvalidStatusTransition,
			fmt.Sprintf("cannot transition from %s to %s", order.Status, next),
		)
	}

	// Cancellation skips the grace window and archives right away.
	archived := next == domain.OrderStatusCancelled

	if err := s.orderRepo.SetStatus(ctx, tx, order.ID, next, archived); err != nil {
		return nil, err
	}

	if description == "" {
		description = fmt.Sprintf("status changed to %s", next)
	}

	if err := s.orderRepo.AppendHistory(ctx, tx, order.ID, next, description); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Order #%d is now %s", order.ID, next)
	if err := s.notifier.Notify(ctx, tx, order.UserID, order.ID, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)),
	)

	order.Status = next
	order.Archived = archived

	return order, nil
}

// authorizeTransition gates who may move the order: administrators may do
// anything, the restaurant owner may drive the regular flow, everyone else is
// turned away. Suspension and resumption stay with administrators.
func (s *orderService) authorizeTransition(ctx context.Context, identity domain.Identity, order *domain.Order, next domain.OrderStatus) error {
	if identity.IsAdmin() {
		return nil
	}

	if next.Administrative() {
		return domain.NewForbiddenError("only administrators may suspend or resume orders")
	}

	restaurant, err := s.catalog.RestaurantByID(ctx, order.RestaurantID)
	if err != nil {
		return err
	}

	if restaurant.OwnerID != identity.UserID {
		return domain.NewForbiddenError("only the restaurant owner may update this order")
	}

	return nil
}

// settleArchival applies the lazy archival check while the row is locked. It
// reports true when the order is, or has just become, archived.
func (s *orderService) settleArchival(ctx context.Context, tx pgx.Tx, order *domain.Order) (bool, error) {
	if order.Archived {
		return true, nil
	}

	if !domain.ShouldArchive(order, time.Now()) {
		return false, nil
	}

	if err := s.orderRepo.SetArchived(ctx, tx, order.ID); err != nil {
		return false, err
	}

	order.Archived = true

	return true, nil
}

func (s *orderService) MarkPaid(ctx context.Context, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.MarkPaid")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return domain.NewNotFoundError("order")
		}
		return err
	}

	if archived, err := s.settleArchival(ctx, tx, order); err != nil {
		return err
	} else if archived {
		return domain.ErrOrderArchived
	}

	// Duplicate provider callbacks land here; the first one won.
	if order.IsPaid {
		return nil
	}

	if err := s.orderRepo.SetPaid(ctx, tx, order.ID); err != nil {
		return err
	}

	if err := s.orderRepo.AppendHistory(ctx, tx, order.ID, order.Status, "paid"); err != nil {
		return err
	}

	restaurant, err := s.catalog.RestaurantByID(ctx, order.RestaurantID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Order #%d has been paid", order.ID)
	if err := s.notifier.Notify(ctx, tx, restaurant.OwnerID, order.ID, message); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Order marked as paid", zap.Int64("order_id", order.ID))

	return nil
}

func (s *orderService) Get(ctx context.Context, identity domain.Identity, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Get")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domain.NewNotFoundError("order")
		}
		return nil, err
	}

	if _, err := s.settleArchival(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.authorizeRead(ctx, identity, order); err != nil {
		return nil, err
	}

	if order.History, err = s.orderRepo.ListHistory(ctx, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// authorizeRead hides existence from non-parties: anyone who is neither the
// buyer, the restaurant owner, nor an administrator gets NotFound, not
// Forbidden.
func (s *orderService) authorizeRead(ctx context.Context, identity domain.Identity, order *domain.Order) error {
	if identity.IsAdmin() || order.IsBuyer(identity) {
		return nil
	}

	restaurant, err := s.catalog.RestaurantByID(ctx, order.RestaurantID)
	if err != nil {
		return err
	}

	if restaurant.OwnerID == identity.UserID {
		return nil
	}

	return domain.NewNotFoundError("order")
}

func (s *orderService) ListUserOrders(ctx context.Context, identity domain.Identity, archived bool) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListUserOrders")
	defer span.End()

	return s.orderRepo.ListByUser(ctx, identity.UserID, archived)
}

func (s *orderService) ListRestaurantOrders(ctx context.Context, identity domain.Identity, restaurantID int64, archived bool) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListRestaurantOrders")
	defer span.End()

	if !identity.IsAdmin() {
		restaurant, err := s.catalog.RestaurantByID(ctx, restaurantID)
		if err != nil {
			if errors.Is(err, repository.ErrRestaurantNotFound) {
				return nil, domain.NewNotFoundError("restaurant")
			}
			return nil, err
		}

		if restaurant.OwnerID != identity.UserID {
			return nil, domain.NewForbiddenError("only the restaurant owner may list these orders")
		}
	}

	return s.orderRepo.ListByRestaurant(ctx, restaurantID, archived)
}
