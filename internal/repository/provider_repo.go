package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type ProviderRepository struct {
	db DBTX
}

func NewProviderRepository(db DBTX) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) Create(
	ctx context.Context,
	userID uuid.UUID,
	businessName *string,
) (*models.Provider, error) {
	query := `
		INSERT INTO providers (id, business_name)
		VALUES ($1, $2)
		RETURNING id, business_name, description, experience, verified, rating, review_count, created_at, updated_at
	`
	var provider models.Provider
	err := r.db.QueryRow(ctx, query, userID, businessName).Scan(
		&provider.ID,
		&provider.BusinessName,
		&provider.Description,
		&provider.Experience,
		&provider.Verified,
		&provider.Rating,
		&provider.ReviewCount,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	query := `
		SELECT id, business_name, description, experience, verified, rating, review_count, created_at, updated_at
		FROM providers
		WHERE id = $1
	`
	var provider models.Provider
	err := r.db.QueryRow(ctx, query, id).Scan(
		&provider.ID,
		&provider.BusinessName,
		&provider.Description,
		&provider.Experience,
		&provider.Verified,
		&provider.Rating,
		&provider.ReviewCount,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

type UpdateProviderInput struct {
	BusinessName *string
	Description  *string
	Experience   *string
}

func (r *ProviderRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateProviderInput,
) (*models.Provider, error) {
	query := `
		UPDATE providers
		SET business_name = $2, description = $3, experience = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, business_name, description, experience, verified, rating, review_count, created_at, updated_at
	`
	var provider models.Provider
	err := r.db.QueryRow(ctx, query, id, input.BusinessName, input.Description, input.Experience).Scan(
		&provider.ID,
		&provider.BusinessName,
		&provider.Description,
		&provider.Experience,
		&provider.Verified,
		&provider.Rating,
		&provider.ReviewCount,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *ProviderRepository) ListServices(
	ctx context.Context,
	providerID uuid.UUID,
) ([]models.PetService, error) {
	query := `
		SELECT id, provider_id, name, category, price, created_at
		FROM services
		WHERE provider_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]models.PetService, 0)
	for rows.Next() {
		var service models.PetService
		if err := rows.Scan(
			&service.ID,
			&service.ProviderID,
			&service.Name,
			&service.Category,
			&service.Price,
			&service.CreatedAt,
		); err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return services, nil
}

func (r *ProviderRepository) CreateService(
	ctx context.Context,
	providerID uuid.UUID,
	name string,
	category string,
	price *float64,
) (*models.PetService, error) {
	query := `
		INSERT INTO services (provider_id, name, category, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, provider_id, name, category, price, created_at
	`
	var service models.PetService
	err := r.db.QueryRow(ctx, query, providerID, name, category, price).Scan(
		&service.ID,
		&service.ProviderID,
		&service.Name,
		&service.Category,
		&service.Price,
		&service.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *ProviderRepository) DeleteService(
	ctx context.Context,
	providerID uuid.UUID,
	serviceID uuid.UUID,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM services
		WHERE id = $1 AND provider_id = $2
	`, serviceID, providerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
