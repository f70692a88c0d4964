package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/services"
)

type reviewApplicationService interface {
	CreateReview(ctx context.Context, clientID uuid.UUID, requestID uuid.UUID, rating int, comment *string) (*models.Review, error)
	ListProviderReviews(ctx context.Context, providerID uuid.UUID, page int, limit int) ([]models.ProviderReview, int, error)
}

type ReviewHandler struct {
	service reviewApplicationService
}

func NewReviewHandler(service reviewApplicationService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type createReviewBody struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var body createReviewBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	review, err := h.service.CreateReview(c.Context(), clientID, requestID, body.Rating, body.Comment)
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}

func (h *ReviewHandler) ListByProvider(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid provider id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	reviews, total, err := h.service.ListProviderReviews(c.Context(), providerID, page, limit)
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.JSON(fiber.Map{
		"reviews":    reviews,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func mapReviewError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid review"})
	case errors.Is(err, services.ErrReviewUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Request is not completed"})
	case errors.Is(err, services.ErrAlreadyReviewed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Request already reviewed"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process review"})
	}
}
