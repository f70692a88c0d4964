package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/realtime"
	"github.com/tavaresmirako/petservice/internal/services"
	sessionws "github.com/tavaresmirako/petservice/internal/websocket"
)

type stubChatService struct {
	messagesResult []models.Message
	messagesErr    error
	sendResult     *services.ChatDelivery
	sendErr        error
	deleteErr      error
	lastActorID    uuid.UUID
	lastRole       string
	lastRequestID  uuid.UUID
	lastMessageID  uuid.UUID
	lastContent    string
}

func (s *stubChatService) ListMessages(_ context.Context, actorID uuid.UUID, role string, requestID uuid.UUID) ([]models.Message, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastRequestID = requestID
	return s.messagesResult, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, actorID uuid.UUID, role string, requestID uuid.UUID, content string) (*services.ChatDelivery, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastRequestID = requestID
	s.lastContent = content
	return s.sendResult, s.sendErr
}

func (s *stubChatService) DeleteMessage(_ context.Context, actorID uuid.UUID, messageID uuid.UUID) error {
	s.lastActorID = actorID
	s.lastMessageID = messageID
	return s.deleteErr
}

func newChatTestApp(service *stubChatService, userID uuid.UUID, role string) *fiber.App {
	handler := NewChatHandler(service, sessionws.NewHub(zerolog.Nop()), realtime.SessionDeps{}, "secret")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID.String())
		return c.Next()
	})
	app.Get("/api/v1/requests/:id/messages", handler.GetMessages)
	app.Post("/api/v1/requests/:id/messages", handler.SendMessage)
	app.Delete("/api/v1/messages/:id", handler.DeleteMessage)
	return app
}

func TestGetMessagesReturnsConversation(t *testing.T) {
	userID := uuid.New()
	requestID := uuid.New()
	service := &stubChatService{
		messagesResult: []models.Message{
			{
				ID:        uuid.New(),
				RequestID: requestID,
				SenderID:  userID,
				Content:   "See you Saturday",
				CreatedAt: time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC),
			},
		},
	}
	app := newChatTestApp(service, userID, "client")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+requestID.String()+"/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != userID || service.lastRequestID != requestID {
		t.Fatalf("unexpected forwarded context: actor=%s request=%s", service.lastActorID, service.lastRequestID)
	}

	var payload struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Content != "See you Saturday" {
		t.Fatalf("unexpected response: %+v", payload.Messages)
	}
}

func TestGetMessagesReturnsNotFound(t *testing.T) {
	service := &stubChatService{messagesErr: pgx.ErrNoRows}
	app := newChatTestApp(service, uuid.New(), "provider")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+uuid.NewString()+"/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSendMessageReturnsPersistedMessage(t *testing.T) {
	userID := uuid.New()
	requestID := uuid.New()
	service := &stubChatService{
		sendResult: &services.ChatDelivery{
			Message: &models.Message{
				ID:        uuid.New(),
				RequestID: requestID,
				SenderID:  userID,
				Content:   "On my way",
			},
			RecipientID: uuid.New(),
		},
	}
	app := newChatTestApp(service, userID, "provider")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+requestID.String()+"/messages", strings.NewReader(`{"content":"On my way"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastContent != "On my way" {
		t.Fatalf("expected forwarded content, got %q", service.lastContent)
	}
}

func TestSendMessageConflictWhenChatClosed(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrChatUnavailable}
	app := newChatTestApp(service, uuid.New(), "client")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+uuid.NewString()+"/messages", strings.NewReader(`{"content":"hello?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestDeleteMessageReturnsNoContent(t *testing.T) {
	userID := uuid.New()
	messageID := uuid.New()
	service := &stubChatService{}
	app := newChatTestApp(service, userID, "client")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/messages/"+messageID.String(), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.lastMessageID != messageID {
		t.Fatalf("expected message id %s, got %s", messageID, service.lastMessageID)
	}
}
