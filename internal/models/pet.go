package models

import (
	"time"

	"github.com/google/uuid"
)

type Pet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Breed     *string   `json:"breed"`
	Size      *string   `json:"size"`
	WeightKG  *float64  `json:"weight"`
	Notes     *string   `json:"notes"`
	PhotoURL  *string   `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
