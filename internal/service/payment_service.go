package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// ErrPaymentSessionNotFound means the provider does not know the session.
var ErrPaymentSessionNotFound = errors.New("payment session not found")

// PaymentService handles the provider's success callback. It never creates
// checkout sessions, only confirms them.
type PaymentService interface {
	ConfirmPayment(ctx context.Context, orderID int64, externalSessionID string) error
}

type paymentService struct {
	logger   *zap.Logger
	verifier PaymentVerifier
	orders   OrderService
	tracer   trace.Tracer
}

func NewPaymentService(logger *zap.Logger, verifier PaymentVerifier, orders OrderService) PaymentService {
	return &paymentService{
		logger:   logger,
		verifier: verifier,
		orders:   orders,
		tracer:   otel.Tracer("payment_service"),
	}
}

func (s *paymentService) ConfirmPayment(ctx context.Context, orderID int64, externalSessionID string) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.ConfirmPayment")
	defer span.End()

	session, err := s.verifier.VerifySession(ctx, externalSessionID)
	if err != nil {
		if errors.Is(err, ErrPaymentSessionNotFound) {
			return domain.NewNotFoundError("payment session")
		}
		return fmt.Errorf("failed to verify payment session: %w", err)
	}

	if !session.Paid {
		return domain.NewConflictError("payment session is not paid")
	}

	if session.OrderID != 0 && session.OrderID != orderID {
		mylogger.Warn(
			ctx,
			s.logger,
			"Payment session references a different order",
			zap.Int64("order_id", orderID),
			zap.Int64("session_order_id", session.OrderID),
		)

		return domain.NewConflictError("payment session does not match the order")
	}

	if err := s.orders.MarkPaid(ctx, orderID); err != nil {
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Payment confirmed",
		zap.Int64("order_id", orderID),
		zap.String("session_id", externalSessionID),
	)

	return nil
}
