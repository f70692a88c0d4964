package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/repository"
)

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, input repository.UpdateProfileInput) (*models.Profile, error)
}

type ProfileService struct {
	profiles profileStore
}

func NewProfileService(profiles profileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, userID)
}

func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	input repository.UpdateProfileInput,
) (*models.Profile, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	if input.FullName == "" {
		return nil, ErrInvalidInput
	}
	return s.profiles.Update(ctx, userID, input)
}

// DisplayProfile is the minimal identity used to label notifications and
// chat headers.
type DisplayProfile struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
}

func (s *ProfileService) GetDisplayProfile(
	ctx context.Context,
	userID uuid.UUID,
) (*DisplayProfile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DisplayProfile{
		ID:        profile.ID,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
	}, nil
}
