package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/repository"
)

type PetHandler struct {
	petRepo *repository.PetRepository
}

func NewPetHandler(petRepo *repository.PetRepository) *PetHandler {
	return &PetHandler{petRepo: petRepo}
}

type petBody struct {
	Name     string   `json:"name"`
	Breed    *string  `json:"breed"`
	Size     *string  `json:"size"`
	WeightKG *float64 `json:"weight"`
	Notes    *string  `json:"notes"`
	PhotoURL *string  `json:"photo_url"`
}

func (b *petBody) validate() error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return errors.New("name is required")
	}
	if b.WeightKG != nil && *b.WeightKG <= 0 {
		return errors.New("weight must be positive")
	}
	return nil
}

func (h *PetHandler) Create(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var body petBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := body.validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	pet, err := h.petRepo.Create(c.Context(), repository.CreatePetInput{
		OwnerID:  userID,
		Name:     body.Name,
		Breed:    body.Breed,
		Size:     body.Size,
		WeightKG: body.WeightKG,
		Notes:    body.Notes,
		PhotoURL: body.PhotoURL,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create pet"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"pet": pet})
}

func (h *PetHandler) List(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	pets, err := h.petRepo.ListByOwner(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch pets"})
	}

	return c.JSON(fiber.Map{"pets": pets})
}

func (h *PetHandler) Get(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	petID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pet id"})
	}

	pet, err := h.petRepo.GetByID(c.Context(), petID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pet not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch pet"})
	}
	if pet.OwnerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return c.JSON(fiber.Map{"pet": pet})
}

func (h *PetHandler) Update(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	petID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pet id"})
	}

	var body petBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := body.validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	pet, err := h.petRepo.Update(c.Context(), petID, userID, repository.CreatePetInput{
		Name:     body.Name,
		Breed:    body.Breed,
		Size:     body.Size,
		WeightKG: body.WeightKG,
		Notes:    body.Notes,
		PhotoURL: body.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pet not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update pet"})
	}

	return c.JSON(fiber.Map{"pet": pet})
}

func (h *PetHandler) Delete(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	petID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pet id"})
	}

	deleted, err := h.petRepo.Delete(c.Context(), petID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete pet"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pet not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
