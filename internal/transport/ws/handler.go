package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
	internalws "github.com/brtkpo/RestaurantApp/internal/ws"
	"github.com/brtkpo/RestaurantApp/pkg/auth"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// Handler owns the two websocket endpoints: the per-user notification stream
// and the per-order chat rooms. Browsers cannot set headers on websocket
// upgrades, so the bearer token arrives in the query string.
type Handler struct {
	hub    *internalws.Hub
	chat   service.ChatService
	logger *zap.Logger
}

func NewHandler(hub *internalws.Hub, chat service.ChatService, logger *zap.Logger) *Handler {
	return &Handler{
		hub:    hub,
		chat:   chat,
		logger: logger,
	}
}

// Upgrade gates the /ws routes: anything that is not a websocket upgrade
// request is rejected before the protocol switch.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return fiber.ErrUpgradeRequired
}

func (h *Handler) Notifications() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		identity, err := auth.ResolveIdentity(conn.Query("token"))
		if err != nil {
			h.drop(conn)

			return
		}

		group := service.UserGroup(identity.UserID)
		h.run(ctx, conn, group, nil)
	})
}

func (h *Handler) Chat() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		identity, err := auth.ResolveIdentity(conn.Query("token"))
		if err != nil {
			h.drop(conn)

			return
		}

		room := conn.Params("room")

		if err := h.chat.Authorize(ctx, identity, room); err != nil {
			h.reject(conn, "room not available")

			return
		}

		h.run(ctx, conn, service.ChatGroup(room), func(client *internalws.Client, payload []byte) {
			h.handleChatFrame(ctx, identity, room, client, payload)
		})
	})
}

type incomingChatFrame struct {
	Message string `json:"message"`
}

func (h *Handler) handleChatFrame(ctx context.Context, identity domain.Identity, room string, client *internalws.Client, payload []byte) {
	var frame incomingChatFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		h.pushError(client, "invalid message frame")

		return
	}

	if _, err := h.chat.PostMessage(ctx, identity, room, frame.Message); err != nil {
		var conflictErr *domain.ConflictError
		if errors.As(err, &conflictErr) {
			h.pushError(client, conflictErr.Error())

			return
		}

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			h.pushError(client, validationErr.Message)

			return
		}

		mylogger.Error(ctx, h.logger, "Failed to post chat message", zap.Error(err))
		h.pushError(client, "failed to send message")
	}
}

// run enrolls the connection in its hub group and pumps frames both ways
// until either side goes away. The write loop is the only goroutine writing
// to the connection after the upgrade; error frames ride the same buffer as
// broadcasts. onFrame is nil for receive-only streams.
func (h *Handler) run(ctx context.Context, conn *websocket.Conn, group string, onFrame func(client *internalws.Client, payload []byte)) {
	client := internalws.NewClient()

	h.hub.Subscribe(group, client)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)

		for payload := range client.Send() {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		if onFrame != nil {
			onFrame(client, payload)
		}
	}

	h.hub.Unsubscribe(group, client)
	client.Close()
	<-writeDone

	mylogger.Debug(ctx, h.logger, "Websocket connection closed", zap.String("group", group))
}

// drop closes a connection that failed authentication. No frame goes out:
// an unauthenticated peer gets no detail about why.
func (h *Handler) drop(conn *websocket.Conn) {
	if err := conn.Close(); err != nil {
		h.logger.Debug("Failed to close rejected websocket", zap.Error(err))
	}
}

// reject is only called before the write loop starts, so writing directly to
// the connection is safe here.
func (h *Handler) reject(conn *websocket.Conn, reason string) {
	frame, err := json.Marshal(fiber.Map{"error": reason})
	if err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Debug("Failed to write websocket error frame", zap.Error(err))
		}
	}

	if err := conn.Close(); err != nil {
		h.logger.Debug("Failed to close rejected websocket", zap.Error(err))
	}
}

func (h *Handler) pushError(client *internalws.Client, message string) {
	frame, err := json.Marshal(fiber.Map{"error": message})
	if err != nil {
		return
	}

	client.Push(frame)
}
