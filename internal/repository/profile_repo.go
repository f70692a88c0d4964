package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(
	ctx context.Context,
	userID uuid.UUID,
	fullName string,
) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, full_name)
		VALUES ($1, $2)
		RETURNING id, full_name, phone, city, state, avatar_url, created_at, updated_at, deleted_at
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, userID, fullName).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Phone,
		&profile.City,
		&profile.State,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT id, full_name, phone, city, state, avatar_url, created_at, updated_at, deleted_at
		FROM profiles
		WHERE id = $1 AND deleted_at IS NULL
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Phone,
		&profile.City,
		&profile.State,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateProfileInput struct {
	FullName  string
	Phone     *string
	City      *string
	State     *string
	AvatarURL *string
}

func (r *ProfileRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateProfileInput,
) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $2, phone = $3, city = $4, state = $5, avatar_url = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, full_name, phone, city, state, avatar_url, created_at, updated_at, deleted_at
	`
	var profile models.Profile
	err := r.db.QueryRow(
		ctx,
		query,
		id,
		input.FullName,
		input.Phone,
		input.City,
		input.State,
		input.AvatarURL,
	).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Phone,
		&profile.City,
		&profile.State,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return err
}
