package handlers

import (
	"context"
	"errors"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/realtime"
	"github.com/tavaresmirako/petservice/internal/services"
	sessionws "github.com/tavaresmirako/petservice/internal/websocket"
	"github.com/tavaresmirako/petservice/pkg/utils"
)

type chatApplicationService interface {
	ListMessages(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID) ([]models.Message, error)
	SendMessage(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID, content string) (*services.ChatDelivery, error)
	DeleteMessage(ctx context.Context, actorID uuid.UUID, messageID uuid.UUID) error
}

type ChatHandler struct {
	service     chatApplicationService
	hub         *sessionws.Hub
	sessionDeps realtime.SessionDeps
	jwtSecret   string
}

func NewChatHandler(
	service chatApplicationService,
	hub *sessionws.Hub,
	sessionDeps realtime.SessionDeps,
	jwtSecret string,
) *ChatHandler {
	return &ChatHandler{
		service:     service,
		hub:         hub,
		sessionDeps: sessionDeps,
		jwtSecret:   jwtSecret,
	}
}

type sendMessageBody struct {
	Content string `json:"content"`
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "provider") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	messages, err := h.service.ListMessages(c.Context(), userID, role, requestID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "provider") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var body sendMessageBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, role, requestID, body.Content)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	if err := h.service.DeleteMessage(c.Context(), userID, messageID); err != nil {
		return mapChatError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

// HandleWebSocket opens the realtime scope for one connection: the session
// holds every subscription the connection acquires, and ReadPump's teardown
// closes the session with the connection.
func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userIDStr, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)

	userID, err := uuid.Parse(userIDStr)
	if err != nil || (role != "client" && role != "provider") {
		_ = conn.Close()
		return
	}

	client := sessionws.NewClient(h.hub, conn, userID)
	session := realtime.NewSession(context.Background(), userID, role, h.sessionDeps, client.Send)
	client.Bind(session)

	h.hub.Register(client)
	go client.WritePump()
	session.Start()
	client.ReadPump()
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrChatUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Chat is not open for this request"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
