package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces the monotonic request lifecycle: a pending
// request is decided once by the provider, an accepted request either runs
// to completion or is cancelled, and terminal states absorb.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected
	case StatusAccepted:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

type ServiceRequest struct {
	ID            uuid.UUID     `json:"id"`
	ClientID      uuid.UUID     `json:"client_id"`
	ProviderID    uuid.UUID     `json:"provider_id"`
	ServiceID     *uuid.UUID    `json:"service_id"`
	PetID         *uuid.UUID    `json:"pet_id"`
	Message       *string       `json:"message"`
	ScheduledDate *time.Time    `json:"scheduled_date"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}

// PendingRequest is a pending ServiceRequest annotated with the client's
// display name, as shown in the provider's notification list. The name is
// joined in on the initial load and resolved by a profile lookup when the
// row arrives through the change feed, which only carries foreign keys.
type PendingRequest struct {
	ServiceRequest
	ClientName string `json:"client_name"`
}
