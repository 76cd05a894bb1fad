package service_test

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/internal/ws"
)

func (s *IntegrationTestSuite) newChatFixture() (*orderFixture, *domain.Order, string) {
	f := s.newOrderFixture()

	order, err := s.OrderService.CreateOrder(s.Ctx, f.buyer, f.params())
	s.Require().NoError(err)

	return f, order, strconv.FormatInt(order.ID, 10)
}

func (s *IntegrationTestSuite) TestChat_PostMessagePersistsAndBroadcasts() {
	f, order, room := s.newChatFixture()

	subscriber := ws.NewClient()
	s.Hub.Subscribe(service.ChatGroup(room), subscriber)
	defer s.Hub.Unsubscribe(service.ChatGroup(room), subscriber)

	ownerUnreadBefore := s.unreadCount(f.ownerID)

	message, err := s.ChatService.PostMessage(s.Ctx, f.buyer, room, "is my pizza on the way?")
	s.Require().NoError(err)
	s.Require().NotZero(message.ID)
	s.Require().False(message.Timestamp.IsZero(), "timestamp is server-assigned")

	select {
	case frame := <-subscriber.Send():
		var broadcast domain.ChatBroadcast
		s.Require().NoError(json.Unmarshal(frame, &broadcast))
		s.Require().Equal(f.buyerID, broadcast.User)
		s.Require().Equal("is my pizza on the way?", broadcast.Message)
	case <-time.After(time.Second):
		s.T().Fatal("expected a room broadcast")
	}

	s.Require().Equal(ownerUnreadBefore+1, s.unreadCount(f.ownerID), "counterparty gets exactly one notification")
	s.Require().Equal(0, s.unreadCount(f.buyerID), "sender is not notified about their own message")

	history, err := s.ChatService.History(s.Ctx, f.owner, room)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Require().Equal(order.ID, *history[0].OrderID)
}

func (s *IntegrationTestSuite) TestChat_OwnerReplyNotifiesBuyer() {
	f, _, room := s.newChatFixture()

	buyerUnreadBefore := s.unreadCount(f.buyerID)

	_, err := s.ChatService.PostMessage(s.Ctx, f.owner, room, "ten minutes out")
	s.Require().NoError(err)

	s.Require().Equal(buyerUnreadBefore+1, s.unreadCount(f.buyerID))
}

func (s *IntegrationTestSuite) TestChat_NonPartyRejected() {
	f, _, room := s.newChatFixture()
	_ = f

	strangerID := s.createUser("stranger@example.com", domain.RoleClient)
	stranger := domain.Identity{UserID: strangerID, Role: domain.RoleClient}

	s.Require().True(domain.IsNotFound(s.ChatService.Authorize(s.Ctx, stranger, room)))

	_, err := s.ChatService.PostMessage(s.Ctx, stranger, room, "hello?")
	s.Require().True(domain.IsNotFound(err))

	_, err = s.ChatService.History(s.Ctx, stranger, room)
	s.Require().True(domain.IsNotFound(err))
}

func (s *IntegrationTestSuite) TestChat_ArchivedRoomRejectsSends() {
	f, order, room := s.newChatFixture()

	_, err := s.ChatService.PostMessage(s.Ctx, f.buyer, room, "before archival")
	s.Require().NoError(err)

	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusCancelled, "")
	s.Require().NoError(err)

	_, err = s.ChatService.PostMessage(s.Ctx, f.buyer, room, "anyone there?")
	s.Require().True(domain.IsConflict(err))

	// History stays readable after the room closes.
	history, err := s.ChatService.History(s.Ctx, f.buyer, room)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
}

func (s *IntegrationTestSuite) TestChat_LazyArchivalClosesRoom() {
	f, order, room := s.newChatFixture()

	_, err := s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusConfirmed, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusShipped, "")
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, f.owner, order.ID, domain.OrderStatusDelivered, "")
	s.Require().NoError(err)

	s.rewindOrder(order.ID, 25*time.Hour)

	_, err = s.ChatService.PostMessage(s.Ctx, f.buyer, room, "one last thing")
	s.Require().True(domain.IsConflict(err), "send re-checks archival")
}

func (s *IntegrationTestSuite) TestChat_EmptyMessageRejected() {
	f, _, room := s.newChatFixture()

	_, err := s.ChatService.PostMessage(s.Ctx, f.buyer, room, "   ")
	s.requireValidationRule(err, domain.RuleEmptyMessage)
}

func (s *IntegrationTestSuite) TestChat_UnknownRoom() {
	f := s.newOrderFixture()

	err := s.ChatService.Authorize(s.Ctx, f.buyer, "999999")
	s.Require().True(domain.IsNotFound(err))

	err = s.ChatService.Authorize(s.Ctx, f.buyer, "not-a-room")
	s.Require().True(domain.IsNotFound(err))
}
