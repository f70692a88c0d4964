package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrProviderNotFound       = errors.New("provider not found")
	ErrPetNotFound            = errors.New("pet not found")
	ErrChatUnavailable        = errors.New("chat unavailable")
)

type userReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type petReader interface {
	GetByID(ctx context.Context, petID uuid.UUID) (*models.Pet, error)
}

type requestStore interface {
	Create(ctx context.Context, input repository.CreateRequestInput) (*models.ServiceRequest, error)
	GetByID(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error)
	List(ctx context.Context, filter repository.RequestListFilter, limit, offset int) ([]models.ServiceRequest, int, error)
	UpdateStatusIfCurrent(ctx context.Context, requestID uuid.UUID, currentStatus, nextStatus models.RequestStatus) (*models.ServiceRequest, error)
	SoftDelete(ctx context.Context, requestID uuid.UUID, clientID uuid.UUID) (bool, error)
}

type RequestService struct {
	requests requestStore
	users    userReader
	pets     petReader
}

func NewRequestService(requests requestStore, users userReader, pets petReader) *RequestService {
	return &RequestService{
		requests: requests,
		users:    users,
		pets:     pets,
	}
}

type CreateRequestInput struct {
	ProviderID    uuid.UUID
	ServiceID     *uuid.UUID
	PetID         *uuid.UUID
	Message       *string
	ScheduledDate *time.Time
}

func (s *RequestService) CreateRequest(
	ctx context.Context,
	clientID uuid.UUID,
	input CreateRequestInput,
) (*models.ServiceRequest, error) {
	if input.ProviderID == uuid.Nil || input.ProviderID == clientID {
		return nil, ErrInvalidInput
	}
	if input.ScheduledDate != nil && input.ScheduledDate.Before(time.Now().Add(-1*time.Minute)) {
		return nil, ErrInvalidInput
	}

	provider, err := s.users.GetByID(ctx, input.ProviderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	if provider.Role != "provider" {
		return nil, ErrInvalidInput
	}

	if input.PetID != nil {
		pet, err := s.pets.GetByID(ctx, *input.PetID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrPetNotFound
			}
			return nil, err
		}
		if pet.OwnerID != clientID {
			return nil, ErrForbidden
		}
	}

	if input.Message != nil {
		trimmed := strings.TrimSpace(*input.Message)
		switch {
		case trimmed == "":
			input.Message = nil
		case utf8.RuneCountInString(trimmed) > maxMessageLength:
			return nil, ErrInvalidInput
		default:
			input.Message = &trimmed
		}
	}

	return s.requests.Create(ctx, repository.CreateRequestInput{
		ClientID:      clientID,
		ProviderID:    input.ProviderID,
		ServiceID:     input.ServiceID,
		PetID:         input.PetID,
		Message:       input.Message,
		ScheduledDate: input.ScheduledDate,
	})
}

func (s *RequestService) ListRequests(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	status string,
	page int,
	limit int,
) ([]models.ServiceRequest, int, error) {
	if role != "client" && role != "provider" {
		return nil, 0, ErrForbidden
	}
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	if status != "" && !models.RequestStatus(status).Valid() {
		return nil, 0, ErrInvalidStatus
	}

	return s.requests.List(ctx, repository.RequestListFilter{
		ActorID: actorID,
		Role:    role,
		Status:  status,
	}, limit, (page-1)*limit)
}

func (s *RequestService) GetRequest(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	requestID uuid.UUID,
) (*models.ServiceRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canAccessRequest(role, actorID, request) {
		return nil, ErrForbidden
	}
	return request, nil
}

// UpdateStatus performs one lifecycle transition on behalf of an actor. The
// conditional write carries the expected current status, so two racing
// decisions cannot both land: the loser sees ErrInvalidStateTransition.
func (s *RequestService) UpdateStatus(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	requestID uuid.UUID,
	requestedStatus string,
) (*models.ServiceRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canAccessRequest(role, actorID, request) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(role, request, nextStatus); err != nil {
		return nil, err
	}

	updated, err := s.requests.UpdateStatusIfCurrent(ctx, requestID, request.Status, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return updated, nil
}

func (s *RequestService) DeleteRequest(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	requestID uuid.UUID,
) error {
	if role != "client" {
		return ErrForbidden
	}
	deleted, err := s.requests.SoftDelete(ctx, requestID, actorID)
	if err != nil {
		return err
	}
	if !deleted {
		return pgx.ErrNoRows
	}
	return nil
}

func canAccessRequest(role string, actorID uuid.UUID, request *models.ServiceRequest) bool {
	if role == "client" {
		return request.ClientID == actorID
	}
	if role == "provider" {
		return request.ProviderID == actorID
	}
	return false
}

func normalizeRequestedStatus(status string) (models.RequestStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "accept", "accepted":
		return models.StatusAccepted, nil
	case "reject", "rejected":
		return models.StatusRejected, nil
	case "complete", "completed":
		return models.StatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.StatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(
	role string,
	request *models.ServiceRequest,
	nextStatus models.RequestStatus,
) error {
	if !request.Status.CanTransitionTo(nextStatus) {
		return ErrInvalidStateTransition
	}

	switch role {
	case "provider":
		// The provider decides pending requests and closes out accepted
		// ones.
		switch nextStatus {
		case models.StatusAccepted, models.StatusRejected, models.StatusCompleted, models.StatusCancelled:
			return nil
		default:
			return ErrInvalidStatus
		}
	case "client":
		if nextStatus != models.StatusCancelled {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
