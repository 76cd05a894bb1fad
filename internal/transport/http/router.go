package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brtkpo/RestaurantApp/internal/transport/http/handler"
	wstransport "github.com/brtkpo/RestaurantApp/internal/transport/ws"
	"github.com/brtkpo/RestaurantApp/middleware"
)

type Handlers struct {
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Payment      *handler.PaymentHandler
	WS           *wstransport.Handler
}

func RegisterRoutes(app *fiber.App, h *Handlers, registry *prometheus.Registry) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry: registry,
	})))

	// Cart routes are session-token scoped, not user scoped: guests shop
	// before they ever authenticate.
	cart := app.Group("/api/cart")
	cart.Post("", h.Cart.Create)
	cart.Get("/:sessionID", h.Cart.Get)
	cart.Get("/:sessionID/items", h.Cart.ListItems)
	cart.Post("/:sessionID/items", h.Cart.AddItem)
	cart.Put("/:sessionID/items/:itemID", h.Cart.UpdateItemQuantity)
	cart.Delete("/:sessionID/items/:itemID", h.Cart.RemoveItem)
	cart.Delete("/:sessionID/restaurant/:restaurantID/others", h.Cart.ClearOtherRestaurant)

	// Payment success is the provider's browser redirect; it carries no
	// bearer token.
	app.Get("/api/payment/success", h.Payment.Success)

	api := app.Group("/api", middleware.NewAuthMiddleware())

	orders := api.Group("/orders")
	orders.Post("", h.Order.Create)
	orders.Get("", h.Order.ListMine)
	orders.Get("/archived", h.Order.ListMineArchived)
	orders.Get("/:orderID", h.Order.Get)
	orders.Patch("/:orderID", h.Order.UpdateStatus)
	orders.Patch("/:orderID/notifications/read", h.Notification.MarkReadByOrder)

	restaurant := api.Group("/restaurant")
	restaurant.Get("/:restaurantID/orders", h.Order.ListRestaurant)
	restaurant.Get("/:restaurantID/orders/archived", h.Order.ListRestaurantArchived)

	api.Get("/chat/:room/history", h.Chat.History)

	notifications := api.Group("/notifications")
	notifications.Get("/unread", h.Notification.Unread)
	notifications.Patch("/:id/read", h.Notification.MarkRead)

	// Websocket endpoints authenticate via query-string token inside the
	// connection handler.
	ws := app.Group("/ws", wstransport.Upgrade)
	ws.Get("/notifications", h.WS.Notifications())
	ws.Get("/chat/:room", h.WS.Chat())
}
