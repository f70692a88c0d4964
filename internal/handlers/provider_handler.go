package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/repository"
)

type ProviderHandler struct {
	providerRepo *repository.ProviderRepository
	profileRepo  *repository.ProfileRepository
}

func NewProviderHandler(
	providerRepo *repository.ProviderRepository,
	profileRepo *repository.ProfileRepository,
) *ProviderHandler {
	return &ProviderHandler{
		providerRepo: providerRepo,
		profileRepo:  profileRepo,
	}
}

type updateProviderBody struct {
	BusinessName *string `json:"business_name"`
	Description  *string `json:"description"`
	Experience   *string `json:"experience"`
}

type createServiceBody struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    *float64 `json:"price"`
}

// Get returns a provider's public detail: provider row, profile identity
// and offered services in one payload.
func (h *ProviderHandler) Get(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid provider id"})
	}

	provider, err := h.providerRepo.GetByID(c.Context(), providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch provider"})
	}

	profile, err := h.profileRepo.GetByID(c.Context(), providerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch provider"})
	}

	petServices, err := h.providerRepo.ListServices(c.Context(), providerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch services"})
	}

	return c.JSON(fiber.Map{"provider": models.ProviderDetail{
		Provider: *provider,
		Profile:  profile,
		Services: petServices,
	}})
}

func (h *ProviderHandler) Update(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "provider" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var body updateProviderBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	provider, err := h.providerRepo.Update(c.Context(), userID, repository.UpdateProviderInput{
		BusinessName: body.BusinessName,
		Description:  body.Description,
		Experience:   body.Experience,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update provider"})
	}

	return c.JSON(fiber.Map{"provider": provider})
}

func (h *ProviderHandler) ListServices(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid provider id"})
	}

	petServices, err := h.providerRepo.ListServices(c.Context(), providerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch services"})
	}

	return c.JSON(fiber.Map{"services": petServices})
}

func (h *ProviderHandler) CreateService(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "provider" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var body createServiceBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Category = strings.TrimSpace(body.Category)
	if body.Name == "" || body.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and category are required"})
	}
	if body.Price != nil && *body.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must not be negative"})
	}

	petService, err := h.providerRepo.CreateService(c.Context(), userID, body.Name, body.Category, body.Price)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create service"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"service": petService})
}

func (h *ProviderHandler) DeleteService(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "provider" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	serviceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service id"})
	}

	deleted, err := h.providerRepo.DeleteService(c.Context(), userID, serviceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete service"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
