package service_test

import (
	"time"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/internal/ws"
)

func (s *IntegrationTestSuite) TestNotification_OutboxDeliversToSubscribedUser() {
	f := s.newOrderFixture()

	subscriber := ws.NewClient()
	s.Hub.Subscribe(service.UserGroup(f.ownerID), subscriber)
	defer s.Hub.Unsubscribe(service.UserGroup(f.ownerID), subscriber)

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	// The outbox worker picks the committed event up and fans it out.
	select {
	case frame := <-subscriber.Send():
		s.Require().Contains(string(frame), "NotificationCreated")
	case <-time.After(5 * time.Second):
		s.T().Fatal("expected the outbox worker to deliver the notification")
	}

	// The durable row exists regardless of delivery.
	s.Require().Equal(1, s.unreadCount(f.ownerID))
}

func (s *IntegrationTestSuite) TestNotification_OutboxMarksEventPublished() {
	f := s.newOrderFixture()

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		var published int
		err := s.DbPool.QueryRow(
			s.Ctx,
			`SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`,
		).Scan(&published)

		return err == nil && published == 1
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestNotification_MarkReadScopedToOwner() {
	f := s.newOrderFixture()

	_, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	unread, err := s.NotificationService.Unread(s.Ctx, f.owner)
	s.Require().NoError(err)
	s.Require().Len(unread, 1)

	// The buyer cannot acknowledge the owner's notification.
	err = s.NotificationService.MarkRead(s.Ctx, f.buyer, unread[0].ID)
	s.Require().True(domain.IsNotFound(err))

	s.Require().NoError(s.NotificationService.MarkRead(s.Ctx, f.owner, unread[0].ID))

	unread, err = s.NotificationService.Unread(s.Ctx, f.owner)
	s.Require().NoError(err)
	s.Require().Empty(unread)
}

func (s *IntegrationTestSuite) TestNotification_MarkReadByOrder() {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusShipped, "")
	s.Require().NoError(err)

	count, err := s.NotificationService.MarkReadByOrder(s.Ctx, f.buyer, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(2), count)

	s.Require().Equal(0, s.unreadCount(f.buyerID))
	s.Require().Equal(1, s.unreadCount(f.ownerID), "owner's new-order notification is untouched")
}
