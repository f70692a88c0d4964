package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type PetRepository struct {
	db DBTX
}

func NewPetRepository(db DBTX) *PetRepository {
	return &PetRepository{db: db}
}

type CreatePetInput struct {
	OwnerID  uuid.UUID
	Name     string
	Breed    *string
	Size     *string
	WeightKG *float64
	Notes    *string
	PhotoURL *string
}

func (r *PetRepository) Create(ctx context.Context, input CreatePetInput) (*models.Pet, error) {
	query := `
		INSERT INTO pets (owner_id, name, breed, size, weight, notes, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, owner_id, name, breed, size, weight, notes, photo_url, created_at, updated_at
	`
	var pet models.Pet
	err := r.db.QueryRow(
		ctx,
		query,
		input.OwnerID,
		input.Name,
		input.Breed,
		input.Size,
		input.WeightKG,
		input.Notes,
		input.PhotoURL,
	).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Breed,
		&pet.Size,
		&pet.WeightKG,
		&pet.Notes,
		&pet.PhotoURL,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) GetByID(ctx context.Context, petID uuid.UUID) (*models.Pet, error) {
	query := `
		SELECT id, owner_id, name, breed, size, weight, notes, photo_url, created_at, updated_at
		FROM pets
		WHERE id = $1
	`
	var pet models.Pet
	err := r.db.QueryRow(ctx, query, petID).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Breed,
		&pet.Size,
		&pet.WeightKG,
		&pet.Notes,
		&pet.PhotoURL,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Pet, error) {
	query := `
		SELECT id, owner_id, name, breed, size, weight, notes, photo_url, created_at, updated_at
		FROM pets
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pets := make([]models.Pet, 0)
	for rows.Next() {
		var pet models.Pet
		if err := rows.Scan(
			&pet.ID,
			&pet.OwnerID,
			&pet.Name,
			&pet.Breed,
			&pet.Size,
			&pet.WeightKG,
			&pet.Notes,
			&pet.PhotoURL,
			&pet.CreatedAt,
			&pet.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pets = append(pets, pet)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pets, nil
}

func (r *PetRepository) Update(
	ctx context.Context,
	petID uuid.UUID,
	ownerID uuid.UUID,
	input CreatePetInput,
) (*models.Pet, error) {
	query := `
		UPDATE pets
		SET name = $3, breed = $4, size = $5, weight = $6, notes = $7, photo_url = $8, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, name, breed, size, weight, notes, photo_url, created_at, updated_at
	`
	var pet models.Pet
	err := r.db.QueryRow(
		ctx,
		query,
		petID,
		ownerID,
		input.Name,
		input.Breed,
		input.Size,
		input.WeightKG,
		input.Notes,
		input.PhotoURL,
	).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Breed,
		&pet.Size,
		&pet.WeightKG,
		&pet.Notes,
		&pet.PhotoURL,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) Delete(ctx context.Context, petID uuid.UUID, ownerID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM pets
		WHERE id = $1 AND owner_id = $2
	`, petID, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
