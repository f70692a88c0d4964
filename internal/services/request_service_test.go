package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/repository"
)

type stubRequestStore struct {
	request    *models.ServiceRequest
	getErr     error
	created    *repository.CreateRequestInput
	updateErr  error
	updated    *models.ServiceRequest
	lastNext   models.RequestStatus
	lastExpect models.RequestStatus
}

func (s *stubRequestStore) Create(
	_ context.Context,
	input repository.CreateRequestInput,
) (*models.ServiceRequest, error) {
	s.created = &input
	return &models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   input.ClientID,
		ProviderID: input.ProviderID,
		ServiceID:  input.ServiceID,
		PetID:      input.PetID,
		Message:    input.Message,
		Status:     models.StatusPending,
	}, nil
}

func (s *stubRequestStore) GetByID(_ context.Context, _ uuid.UUID) (*models.ServiceRequest, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.request, nil
}

func (s *stubRequestStore) List(
	_ context.Context,
	_ repository.RequestListFilter,
	_, _ int,
) ([]models.ServiceRequest, int, error) {
	return nil, 0, nil
}

func (s *stubRequestStore) UpdateStatusIfCurrent(
	_ context.Context,
	_ uuid.UUID,
	currentStatus, nextStatus models.RequestStatus,
) (*models.ServiceRequest, error) {
	s.lastExpect = currentStatus
	s.lastNext = nextStatus
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	updated := *s.request
	updated.Status = nextStatus
	s.updated = &updated
	return &updated, nil
}

func (s *stubRequestStore) SoftDelete(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return true, nil
}

type stubUserReader struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserReader) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

type stubPetReader struct {
	pets map[uuid.UUID]*models.Pet
}

func (s *stubPetReader) GetByID(_ context.Context, id uuid.UUID) (*models.Pet, error) {
	pet, ok := s.pets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return pet, nil
}

func newTestRequestService(store *stubRequestStore, users *stubUserReader, pets *stubPetReader) *RequestService {
	if users == nil {
		users = &stubUserReader{users: map[uuid.UUID]*models.User{}}
	}
	if pets == nil {
		pets = &stubPetReader{pets: map[uuid.UUID]*models.Pet{}}
	}
	return NewRequestService(store, users, pets)
}

func TestCreateRequestRequiresProviderRole(t *testing.T) {
	clientID := uuid.New()
	otherClientID := uuid.New()
	users := &stubUserReader{users: map[uuid.UUID]*models.User{
		otherClientID: {ID: otherClientID, Role: "client"},
	}}
	service := newTestRequestService(&stubRequestStore{}, users, nil)

	_, err := service.CreateRequest(context.Background(), clientID, CreateRequestInput{
		ProviderID: otherClientID,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-provider target, got %v", err)
	}

	_, err = service.CreateRequest(context.Background(), clientID, CreateRequestInput{
		ProviderID: uuid.New(),
	})
	if !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestCreateRequestChecksPetOwnership(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	petID := uuid.New()
	users := &stubUserReader{users: map[uuid.UUID]*models.User{
		providerID: {ID: providerID, Role: "provider"},
	}}
	pets := &stubPetReader{pets: map[uuid.UUID]*models.Pet{
		petID: {ID: petID, OwnerID: uuid.New()},
	}}
	service := newTestRequestService(&stubRequestStore{}, users, pets)

	_, err := service.CreateRequest(context.Background(), clientID, CreateRequestInput{
		ProviderID: providerID,
		PetID:      &petID,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another owner's pet, got %v", err)
	}
}

func TestCreateRequestStartsPending(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	store := &stubRequestStore{}
	users := &stubUserReader{users: map[uuid.UUID]*models.User{
		providerID: {ID: providerID, Role: "provider"},
	}}
	service := newTestRequestService(store, users, nil)

	message := "  Can you walk Thor on Friday?  "
	request, err := service.CreateRequest(context.Background(), clientID, CreateRequestInput{
		ProviderID: providerID,
		Message:    &message,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.Status != models.StatusPending {
		t.Errorf("expected pending status, got %s", request.Status)
	}
	if store.created.Message == nil || *store.created.Message != "Can you walk Thor on Friday?" {
		t.Errorf("expected trimmed message, got %v", store.created.Message)
	}
}

func TestProviderAcceptsPendingRequest(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	store := &stubRequestStore{request: &models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: providerID,
		Status:     models.StatusPending,
	}}
	service := newTestRequestService(store, nil, nil)

	updated, err := service.UpdateStatus(context.Background(), providerID, "provider", store.request.ID, "accepted")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.StatusAccepted {
		t.Errorf("expected accepted, got %s", updated.Status)
	}
	if store.lastExpect != models.StatusPending {
		t.Errorf("expected conditional write against pending, got %s", store.lastExpect)
	}
}

func TestTerminalStatusesRejectFurtherTransitions(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()

	for _, status := range []models.RequestStatus{models.StatusRejected, models.StatusCompleted, models.StatusCancelled} {
		store := &stubRequestStore{request: &models.ServiceRequest{
			ID:         uuid.New(),
			ClientID:   clientID,
			ProviderID: providerID,
			Status:     status,
		}}
		service := newTestRequestService(store, nil, nil)

		_, err := service.UpdateStatus(context.Background(), providerID, "provider", store.request.ID, "accepted")
		if !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("status %s: expected ErrInvalidStateTransition, got %v", status, err)
		}
	}
}

func TestClientMayOnlyCancel(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	store := &stubRequestStore{request: &models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: providerID,
		Status:     models.StatusAccepted,
	}}
	service := newTestRequestService(store, nil, nil)

	if _, err := service.UpdateStatus(context.Background(), clientID, "client", store.request.ID, "completed"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client completing, got %v", err)
	}

	updated, err := service.UpdateStatus(context.Background(), clientID, "client", store.request.ID, "cancel")
	if err != nil {
		t.Fatalf("UpdateStatus cancel: %v", err)
	}
	if updated.Status != models.StatusCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
}

func TestActorsCannotTouchForeignRequests(t *testing.T) {
	store := &stubRequestStore{request: &models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		ProviderID: uuid.New(),
		Status:     models.StatusPending,
	}}
	service := newTestRequestService(store, nil, nil)

	if _, err := service.UpdateStatus(context.Background(), uuid.New(), "provider", store.request.ID, "accepted"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign provider, got %v", err)
	}
	if _, err := service.GetRequest(context.Background(), uuid.New(), "client", store.request.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign client, got %v", err)
	}
}

func TestConcurrentDecisionLoserGetsStateTransitionError(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	store := &stubRequestStore{
		request: &models.ServiceRequest{
			ID:         uuid.New(),
			ClientID:   clientID,
			ProviderID: providerID,
			Status:     models.StatusPending,
		},
		updateErr: pgx.ErrNoRows,
	}
	service := newTestRequestService(store, nil, nil)

	_, err := service.UpdateStatus(context.Background(), providerID, "provider", store.request.ID, "rejected")
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition when the row moved underneath, got %v", err)
	}
}

func TestUnknownRequestedStatusIsRejected(t *testing.T) {
	providerID := uuid.New()
	store := &stubRequestStore{request: &models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		ProviderID: providerID,
		Status:     models.StatusPending,
	}}
	service := newTestRequestService(store, nil, nil)

	if _, err := service.UpdateStatus(context.Background(), providerID, "provider", store.request.ID, "archive"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCreateRequestRejectsPastSchedule(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	users := &stubUserReader{users: map[uuid.UUID]*models.User{
		providerID: {ID: providerID, Role: "provider"},
	}}
	service := newTestRequestService(&stubRequestStore{}, users, nil)

	past := time.Now().Add(-time.Hour)
	_, err := service.CreateRequest(context.Background(), clientID, CreateRequestInput{
		ProviderID:    providerID,
		ScheduledDate: &past,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for past schedule, got %v", err)
	}
}

func TestCreateRequestRejectsOversizedMessage(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	store := &stubRequestStore{}
	users := &stubUserReader{users: map[uuid.UUID]*models.User{
		providerID: {ID: providerID, Role: "provider"},
	}}
	service := newTestRequestService(store, users, nil)

	message := strings.Repeat("a", maxMessageLength+1)
	_, err := service.CreateRequest(context.Background(), clientID, CreateRequestInput{
		ProviderID: providerID,
		Message:    &message,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized message, got %v", err)
	}
	if store.created != nil {
		t.Error("oversized message must not reach the store")
	}
}
