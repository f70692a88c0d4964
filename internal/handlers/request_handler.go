package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/services"
)

type requestApplicationService interface {
	CreateRequest(ctx context.Context, clientID uuid.UUID, input services.CreateRequestInput) (*models.ServiceRequest, error)
	ListRequests(ctx context.Context, actorID uuid.UUID, role string, status string, page int, limit int) ([]models.ServiceRequest, int, error)
	GetRequest(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID) (*models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID, requestedStatus string) (*models.ServiceRequest, error)
	DeleteRequest(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID) error
}

type notificationRemover interface {
	RemoveNotification(userID uuid.UUID, requestID uuid.UUID)
}

type RequestHandler struct {
	service requestApplicationService
	hub     notificationRemover
}

func NewRequestHandler(service requestApplicationService, hub notificationRemover) *RequestHandler {
	return &RequestHandler{
		service: service,
		hub:     hub,
	}
}

type createRequestBody struct {
	ProviderID    string  `json:"provider_id"`
	ServiceID     *string `json:"service_id"`
	PetID         *string `json:"pet_id"`
	Message       *string `json:"message"`
	ScheduledDate *string `json:"scheduled_date"`
}

type updateStatusBody struct {
	Status string `json:"status"`
}

func (h *RequestHandler) Create(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	providerID, err := uuid.Parse(body.ProviderID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid provider id"})
	}

	input := services.CreateRequestInput{
		ProviderID: providerID,
		Message:    body.Message,
	}
	if body.ServiceID != nil {
		serviceID, err := uuid.Parse(*body.ServiceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service id"})
		}
		input.ServiceID = &serviceID
	}
	if body.PetID != nil {
		petID, err := uuid.Parse(*body.PetID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pet id"})
		}
		input.PetID = &petID
	}
	if body.ScheduledDate != nil {
		scheduled, err := time.Parse(time.RFC3339, *body.ScheduledDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid scheduled date"})
		}
		input.ScheduledDate = &scheduled
	}

	request, err := h.service.CreateRequest(c.Context(), clientID, input)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

func (h *RequestHandler) List(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "provider") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	requests, total, err := h.service.ListRequests(c.Context(), userID, role, c.Query("status"), page, limit)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests":   requests,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
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

	request, err := h.service.GetRequest(c.Context(), userID, role, requestID)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

// UpdateStatus applies one lifecycle decision. A provider's decision clears
// the matching notification from their open sessions before the write is
// confirmed; if the write then fails the notification stays gone until the
// next reload.
func (h *RequestHandler) UpdateStatus(c *fiber.Ctx) error {
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

	var body updateStatusBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if role == "provider" {
		h.hub.RemoveNotification(userID, requestID)
	}

	request, err := h.service.UpdateStatus(c.Context(), userID, role, requestID, body.Status)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *RequestHandler) Delete(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
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

	if err := h.service.DeleteRequest(c.Context(), userID, role, requestID); err != nil {
		return mapRequestError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func mapRequestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Invalid status transition"})
	case errors.Is(err, services.ErrProviderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider not found"})
	case errors.Is(err, services.ErrPetNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pet not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
