package service_test

import (
	"context"

	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
)

type stubVerifier struct {
	sessions map[string]*service.PaymentSession
}

func (v *stubVerifier) VerifySession(_ context.Context, externalSessionID string) (*service.PaymentSession, error) {
	session, ok := v.sessions[externalSessionID]
	if !ok {
		return nil, service.ErrPaymentSessionNotFound
	}

	return session, nil
}

func (s *IntegrationTestSuite) newPaymentService(sessions map[string]*service.PaymentSession) service.PaymentService {
	return service.NewPaymentService(zap.NewNop(), &stubVerifier{sessions: sessions}, s.OrderService)
}

func (s *IntegrationTestSuite) TestPayment_ConfirmMarksOrderPaid() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	payments := s.newPaymentService(map[string]*service.PaymentSession{
		"cs_test_ok": {ID: "cs_test_ok", Paid: true, OrderID: order.ID},
	})

	s.Require().NoError(payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_ok"))

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().True(fetched.IsPaid)
}

func (s *IntegrationTestSuite) TestPayment_DuplicateCallback() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	payments := s.newPaymentService(map[string]*service.PaymentSession{
		"cs_test_dup": {ID: "cs_test_dup", Paid: true, OrderID: order.ID},
	})

	s.Require().NoError(payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_dup"))
	s.Require().NoError(payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_dup"))

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().Len(fetched.History, 2, "one placed entry, one paid entry")
}

func (s *IntegrationTestSuite) TestPayment_RejectsUnpaidOrForeignSession() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	payments := s.newPaymentService(map[string]*service.PaymentSession{
		"cs_test_unpaid":  {ID: "cs_test_unpaid", Paid: false, OrderID: order.ID},
		"cs_test_foreign": {ID: "cs_test_foreign", Paid: true, OrderID: order.ID + 1},
	})

	err = payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_missing")
	s.Require().True(domain.IsNotFound(err))

	err = payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_unpaid")
	s.Require().True(domain.IsConflict(err))

	err = payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_foreign")
	s.Require().True(domain.IsConflict(err))

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().False(fetched.IsPaid)
}

func (s *IntegrationTestSuite) TestPayment_LateCallbackOnCancelledOrder() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	cancelled, err := s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusCancelled, "")
	s.Require().NoError(err)
	s.Require().True(cancelled.Archived)

	payments := s.newPaymentService(map[string]*service.PaymentSession{
		"cs_test_late": {ID: "cs_test_late", Paid: true, OrderID: order.ID},
	})

	err = payments.ConfirmPayment(s.Ctx, order.ID, "cs_test_late")
	s.Require().True(domain.IsConflict(err))

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().False(fetched.IsPaid, "archived order stays unpaid")
	s.Require().Len(fetched.History, 2, "placed and cancelled only, no paid entry")
}
