package models

import (
	"time"

	"github.com/google/uuid"
)

type Provider struct {
	ID           uuid.UUID `json:"id"`
	BusinessName *string   `json:"business_name"`
	Description  *string   `json:"description"`
	Experience   *string   `json:"experience"`
	Verified     bool      `json:"verified"`
	Rating       *float64  `json:"rating"`
	ReviewCount  int       `json:"review_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PetService struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Price      *float64  `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProviderDetail struct {
	Provider
	Profile  *Profile     `json:"profile,omitempty"`
	Services []PetService `json:"services"`
}
