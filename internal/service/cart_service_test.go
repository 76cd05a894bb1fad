package service_test

import (
	"time"

	"github.com/google/uuid"

	"github.com/brtkpo/RestaurantApp/internal/domain"
)

func (s *IntegrationTestSuite) TestCart_AddItemAccumulatesQuantity() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	restaurantID := s.createRestaurant(ownerID, 0, false, "Warsaw")
	productID := s.createProduct(restaurantID, 1200, true)

	sessionID := uuid.New().String()

	item, err := s.CartService.AddItem(s.Ctx, sessionID, productID, 2)
	s.Require().NoError(err)
	s.Require().Equal(int32(2), item.Quantity)
	s.Require().Equal(int64(1200), item.Price)

	item, err = s.CartService.AddItem(s.Ctx, sessionID, productID, 3)
	s.Require().NoError(err)
	s.Require().Equal(int32(5), item.Quantity)

	cart, err := s.CartService.GetOrCreateCart(s.Ctx, sessionID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(int64(6000), cart.TotalPrice)
}

func (s *IntegrationTestSuite) TestCart_PriceSnapshotSurvivesReprice() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	restaurantID := s.createRestaurant(ownerID, 0, false)
	productID := s.createProduct(restaurantID, 1000, true)

	sessionID := uuid.New().String()

	_, err := s.CartService.AddItem(s.Ctx, sessionID, productID, 1)
	s.Require().NoError(err)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET price = 9999 WHERE id = $1`, productID)
	s.Require().NoError(err)

	// Adding more of the same product keeps the original snapshot.
	item, err := s.CartService.AddItem(s.Ctx, sessionID, productID, 1)
	s.Require().NoError(err)
	s.Require().Equal(int64(1000), item.Price)

	cart, err := s.CartService.GetOrCreateCart(s.Ctx, sessionID)
	s.Require().NoError(err)
	s.Require().Equal(int64(2000), cart.TotalPrice)
}

func (s *IntegrationTestSuite) TestCart_AddUnknownProduct() {
	_, err := s.CartService.AddItem(s.Ctx, uuid.New().String(), 424242, 1)
	s.Require().Error(err)
	s.Require().True(domain.IsNotFound(err))
}

func (s *IntegrationTestSuite) TestCart_InvalidQuantity() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	restaurantID := s.createRestaurant(ownerID, 0, false)
	productID := s.createProduct(restaurantID, 500, true)

	sessionID := uuid.New().String()

	_, err := s.CartService.AddItem(s.Ctx, sessionID, productID, 0)
	s.requireValidationRule(err, domain.RuleInvalidQuantity)

	item, err := s.CartService.AddItem(s.Ctx, sessionID, productID, 1)
	s.Require().NoError(err)

	_, err = s.CartService.UpdateItemQuantity(s.Ctx, sessionID, item.ID, 0)
	s.requireValidationRule(err, domain.RuleInvalidQuantity)
}

func (s *IntegrationTestSuite) TestCart_ReadPurgesUnavailableProducts() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	restaurantID := s.createRestaurant(ownerID, 0, false)
	keptID := s.createProduct(restaurantID, 700, true)
	droppedID := s.createProduct(restaurantID, 900, true)

	sessionID := uuid.New().String()

	_, err := s.CartService.AddItem(s.Ctx, sessionID, keptID, 1)
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, sessionID, droppedID, 2)
	s.Require().NoError(err)

	s.setProductAvailability(droppedID, false)

	cart, err := s.CartService.GetOrCreateCart(s.Ctx, sessionID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(keptID, cart.Items[0].ProductID)
	s.Require().Equal(int64(700), cart.TotalPrice)
}

func (s *IntegrationTestSuite) TestCart_RemoveItemRecomputesTotal() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	restaurantID := s.createRestaurant(ownerID, 0, false)
	firstID := s.createProduct(restaurantID, 1000, true)
	secondID := s.createProduct(restaurantID, 400, true)

	sessionID := uuid.New().String()

	first, err := s.CartService.AddItem(s.Ctx, sessionID, firstID, 1)
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, sessionID, secondID, 2)
	s.Require().NoError(err)

	s.Require().NoError(s.CartService.RemoveItem(s.Ctx, sessionID, first.ID))

	cart, err := s.CartService.GetOrCreateCart(s.Ctx, sessionID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(int64(800), cart.TotalPrice)
}

func (s *IntegrationTestSuite) TestCart_ClearOtherRestaurant() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	keepRestaurant := s.createRestaurant(ownerID, 0, false)
	otherRestaurant := s.createRestaurant(ownerID, 0, false)
	keepProduct := s.createProduct(keepRestaurant, 600, true)
	otherProduct := s.createProduct(otherRestaurant, 800, true)

	sessionID := uuid.New().String()

	_, err := s.CartService.AddItem(s.Ctx, sessionID, keepProduct, 1)
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, sessionID, otherProduct, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.CartService.ClearOtherRestaurant(s.Ctx, sessionID, keepRestaurant))

	cart, err := s.CartService.GetOrCreateCart(s.Ctx, sessionID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(keepProduct, cart.Items[0].ProductID)
}

func (s *IntegrationTestSuite) TestCart_StaleSweepOnRead() {
	ownerID := s.createUser("owner@example.com", domain.RoleRestaurateur)
	restaurantID := s.createRestaurant(ownerID, 0, false)
	productID := s.createProduct(restaurantID, 500, true)

	staleSession := uuid.New().String()
	staleCart, err := s.CartService.GetOrCreateCart(s.Ctx, staleSession)
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, staleSession, productID, 1)
	s.Require().NoError(err)

	s.rewindCart(staleCart.ID, 25*time.Hour)

	// Any read sweeps; use another session's read to trigger it.
	_, err = s.CartService.GetOrCreateCart(s.Ctx, uuid.New().String())
	s.Require().NoError(err)

	var count int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM carts WHERE id = $1`, staleCart.ID).Scan(&count)
	s.Require().NoError(err)
	s.Require().Equal(0, count)
}

func (s *IntegrationTestSuite) requireValidationRule(err error, rule string) {
	s.Require().Error(err)

	var validationErr *domain.ValidationError
	s.Require().ErrorAs(err, &validationErr)
	s.Require().Equal(rule, validationErr.Rule)
}
