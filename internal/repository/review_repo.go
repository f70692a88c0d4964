package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type CreateReviewInput struct {
	RequestID  uuid.UUID
	ClientID   uuid.UUID
	ProviderID uuid.UUID
	Rating     int
	Comment    *string
}

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(
	ctx context.Context,
	input CreateReviewInput,
) (*models.Review, error) {
	query := `
		INSERT INTO reviews (request_id, client_id, provider_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, request_id, client_id, provider_id, rating, comment, created_at
	`
	var review models.Review
	err := r.db.QueryRow(
		ctx,
		query,
		input.RequestID,
		input.ClientID,
		input.ProviderID,
		input.Rating,
		input.Comment,
	).Scan(
		&review.ID,
		&review.RequestID,
		&review.ClientID,
		&review.ProviderID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ListByProvider(
	ctx context.Context,
	providerID uuid.UUID,
	limit int,
	offset int,
) ([]models.ProviderReview, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM reviews
		WHERE provider_id = $1
	`, providerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT rv.id, rv.request_id, rv.client_id, rv.provider_id, rv.rating, rv.comment, rv.created_at, p.full_name
		FROM reviews rv
		JOIN profiles p ON p.id = rv.client_id
		WHERE rv.provider_id = $1
		ORDER BY rv.created_at DESC, rv.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, providerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := make([]models.ProviderReview, 0)
	for rows.Next() {
		var item models.ProviderReview
		if err := rows.Scan(
			&item.ID,
			&item.RequestID,
			&item.ClientID,
			&item.ProviderID,
			&item.Rating,
			&item.Comment,
			&item.CreatedAt,
			&item.ClientName,
		); err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// RefreshProviderRating recomputes the provider's aggregate from its
// reviews. Run in the same transaction as the review insert so the
// aggregate never drifts from the rows it summarizes.
func (r *ReviewRepository) RefreshProviderRating(ctx context.Context, providerID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE providers
		SET rating = agg.rating, review_count = agg.review_count, updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 2) AS rating, COUNT(*) AS review_count
			FROM reviews
			WHERE provider_id = $1
		) agg
		WHERE providers.id = $1
	`, providerID)
	return err
}
