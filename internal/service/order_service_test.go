package service_test

import (
	"time"

	"github.com/google/uuid"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
)

type orderFixture struct {
	buyerID      int64
	ownerID      int64
	restaurantID int64
	productID    int64
	addressID    int64
	sessionID    string

	buyer domain.Identity
	owner domain.Identity
	admin domain.Identity
}

// newOrderFixture seeds a buyer, a restaurant delivering to Warsaw with no
// minimum, one available product and a cart holding two of it.
func (s *IntegrationTestSuite) newOrderFixture() *orderFixture {
	f := &orderFixture{}

	f.buyerID = s.createUser("buyer@example.com", domain.RoleClient)
	f.ownerID = s.createUser("owner@example.com", domain.RoleRestaurateur)
	adminID := s.createUser("admin@example.com", domain.RoleAdmin)
	f.restaurantID = s.createRestaurant(f.ownerID, 0, false, "Warsaw")
	f.productID = s.createProduct(f.restaurantID, 1500, true)
	f.addressID = s.createAddress(f.buyerID, "Warsaw", false)
	f.sessionID = uuid.New().String()

	f.buyer = domain.Identity{UserID: f.buyerID, Role: domain.RoleClient}
	f.owner = domain.Identity{UserID: f.ownerID, Role: domain.RoleRestaurateur}
	f.admin = domain.Identity{UserID: adminID, Role: domain.RoleAdmin}

	_, err := s.CartService.AddItem(s.Ctx, f.sessionID, f.productID, 2)
	s.Require().NoError(err)

	return f
}

func (f *orderFixture) params() service.CreateOrderParams {
	return service.CreateOrderParams{
		SessionID:    f.sessionID,
		AddressID:    f.addressID,
		PaymentType:  domain.PaymentTypeOnline,
		DeliveryType: domain.DeliveryTypeDelivery,
	}
}

func (s *IntegrationTestSuite) TestOrder_CreateConvertsCartAndNotifiesOwner() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusPending, order.Status)

	// Cart is now addressable by order only, not by session.
	_, err = s.CartService.AddItem(s.Ctx, f.sessionID, f.productID, 1)
	s.Require().NoError(err)

	cart, err := s.CartService.GetOrCreateCart(s.Ctx, f.sessionID)
	s.Require().NoError(err)
	s.Require().NotEqual(order.CartID, cart.ID, "session resolves to a fresh cart after conversion")

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().Len(fetched.History, 1)
	s.Require().Equal(domain.OrderStatusPending, fetched.History[0].Status)

	s.Require().Equal(1, s.unreadCount(f.ownerID), "owner gets the new-order notification")
}

func (s *IntegrationTestSuite) TestOrder_CreateBelowMinimum() {
	f := s.newOrderFixture()
	_, err := s.DbPool.Exec(s.Ctx, `UPDATE restaurants SET minimum_order_amount = 100000 WHERE id = $1`, f.restaurantID)
	s.Require().NoError(err)

	_, err = s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.requireValidationRule(err, domain.RuleBelowMinimumOrder)
}

func (s *IntegrationTestSuite) TestOrder_CreateUnsupportedDeliveryArea() {
	f := s.newOrderFixture()
	farAddress := s.createAddress(f.buyerID, "Gdansk", false)

	params := f.params()
	params.AddressID = farAddress

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, params)
	s.requireValidationRule(err, domain.RuleUnsupportedDeliveryArea)

	// Pickup does not care about the delivery set.
	params.DeliveryType = domain.DeliveryTypePickup
	_, err = s.OrderService.CreateOrder(s.Ctx, f.buyer, params)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestOrder_CreateCashNotAccepted() {
	f := s.newOrderFixture()

	params := f.params()
	params.PaymentType = domain.PaymentTypeCash

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, params)
	s.requireValidationRule(err, domain.RuleCashPaymentNotAccepted)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE restaurants SET allows_cash_payment = TRUE WHERE id = $1`, f.restaurantID)
	s.Require().NoError(err)

	_, err = s.OrderService.CreateOrder(s.Ctx, f.buyer, params)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestOrder_CreateArchivedAddress() {
	f := s.newOrderFixture()
	archivedAddress := s.createAddress(f.buyerID, "Warsaw", true)

	params := f.params()
	params.AddressID = archivedAddress

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, params)
	s.requireValidationRule(err, domain.RuleAddressArchived)
}

func (s *IntegrationTestSuite) TestOrder_CreateEmptyCart() {
	f := s.newOrderFixture()
	s.setProductAvailability(f.productID, false)

	// The purge leaves nothing behind.
	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.requireValidationRule(err, domain.RuleEmptyCart)
}

func (s *IntegrationTestSuite) TestOrder_CreateTwiceConflicts() {
	f := s.newOrderFixture()

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.CartService.AddItem(s.Ctx, f.sessionID, f.productID, 1)
	s.Require().NoError(err)

	_, err = s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err, "second order uses the fresh cart the session now resolves to")
}

func (s *IntegrationTestSuite) TestOrder_StatusTransitionAppendsHistoryAndNotifiesBuyer() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	updated, err := s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusConfirmed, updated.Status)

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().Len(fetched.History, 2)
	s.Require().Equal(domain.OrderStatusConfirmed, fetched.History[1].Status)

	s.Require().Equal(1, s.unreadCount(f.buyerID))
}

func (s *IntegrationTestSuite) TestOrder_InvalidTransitionRejected() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusDelivered, "")
	s.requireValidationRule(err, domain.RuleInvalidStatusTransition)

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusPending, fetched.Status)
	s.Require().Len(fetched.History, 1, "rejected transition leaves no trace")
}

func (s *IntegrationTestSuite) TestOrder_TransitionAuthz() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.buyer, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().True(domain.IsForbidden(err), "buyer cannot drive the flow")

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusSuspended, "")
	s.Require().True(domain.IsForbidden(err), "suspension is admin-only")

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.admin, order.ID, domain.OrderStatusSuspended, "fraud check")
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.admin, order.ID, domain.OrderStatusResumed, "")
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().NoError(err, "owner continues after resume")
}

func (s *IntegrationTestSuite) TestOrder_CancelArchivesImmediately() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	cancelled, err := s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusCancelled, "")
	s.Require().NoError(err)
	s.Require().True(cancelled.Archived)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().True(domain.IsConflict(err), "archived orders reject mutation")
}

func (s *IntegrationTestSuite) TestOrder_LazyArchivalOnMutation() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusShipped, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusDelivered, "")
	s.Require().NoError(err)

	s.rewindOrder(order.ID, 25*time.Hour)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.admin, order.ID, domain.OrderStatusSuspended, "")
	s.Require().True(domain.IsConflict(err))

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().True(fetched.Archived, "archival flag was written back")
}

func (s *IntegrationTestSuite) TestOrder_ReadAuthz() {
	f := s.newOrderFixture()
	strangerID := s.createUser("stranger@example.com", domain.RoleClient)
	stranger := domain.Identity{UserID: strangerID, Role: domain.RoleClient}

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.OrderService.Get(s.Ctx, stranger, order.ID)
	s.Require().True(domain.IsNotFound(err), "existence is hidden from non-parties")

	_, err = s.OrderService.Get(s.Ctx, f.owner, order.ID)
	s.Require().NoError(err)

	_, err = s.OrderService.ListRestaurantOrders(s.Ctx, stranger, f.restaurantID, false)
	s.Require().True(domain.IsForbidden(err))

	orders, err := s.OrderService.ListRestaurantOrders(s.Ctx, f.owner, f.restaurantID, false)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
}

func (s *IntegrationTestSuite) TestOrder_MarkPaidIdempotent() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	ownerUnreadBefore := s.unreadCount(f.ownerID)

	s.Require().NoError(s.OrderService.MarkPaid(s.Ctx, order.ID))
	s.Require().NoError(s.OrderService.MarkPaid(s.Ctx, order.ID))

	fetched, err := s.OrderService.Get(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().True(fetched.IsPaid)
	s.Require().Len(fetched.History, 2, "exactly one paid entry")

	s.Require().Equal(ownerUnreadBefore+1, s.unreadCount(f.ownerID), "exactly one paid notification")
}

func (s *IntegrationTestSuite) TestOrder_LazyArchivalInListings() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusShipped, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusDelivered, "")
	s.Require().NoError(err)

	active, err := s.OrderService.ListUserOrders(s.Ctx, f.buyer, false)
	s.Require().NoError(err)
	s.Require().Len(active, 1, "delivered order is still within the grace window")

	s.rewindOrder(order.ID, 25*time.Hour)

	active, err = s.OrderService.ListUserOrders(s.Ctx, f.buyer, false)
	s.Require().NoError(err)
	s.Require().Empty(active, "expired terminal order leaves the active list")

	archivedList, err := s.OrderService.ListUserOrders(s.Ctx, f.buyer, true)
	s.Require().NoError(err)
	s.Require().Len(archivedList, 1)

	restaurantActive, err := s.OrderService.ListRestaurantOrders(s.Ctx, f.owner, f.restaurantID, false)
	s.Require().NoError(err)
	s.Require().Empty(restaurantActive)
}
