package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/repository"
)

var (
	ErrReviewUnavailable = errors.New("review unavailable")
	ErrAlreadyReviewed   = errors.New("already reviewed")
)

type ReviewService struct {
	db          *pgxpool.Pool
	requestRepo *repository.RequestRepository
	reviewRepo  *repository.ReviewRepository
}

func NewReviewService(
	db *pgxpool.Pool,
	requestRepo *repository.RequestRepository,
	reviewRepo *repository.ReviewRepository,
) *ReviewService {
	return &ReviewService{
		db:          db,
		requestRepo: requestRepo,
		reviewRepo:  reviewRepo,
	}
}

// CreateReview records the client's rating of a completed request and
// refreshes the provider's aggregate in the same transaction. One review
// per request; a second attempt reports ErrAlreadyReviewed.
func (s *ReviewService) CreateReview(
	ctx context.Context,
	clientID uuid.UUID,
	requestID uuid.UUID,
	rating int,
	comment *string,
) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidInput
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		switch {
		case trimmed == "":
			comment = nil
		case utf8.RuneCountInString(trimmed) > maxMessageLength:
			return nil, ErrInvalidInput
		default:
			comment = &trimmed
		}
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.ClientID != clientID {
		return nil, ErrForbidden
	}
	if request.Status != models.StatusCompleted {
		return nil, ErrReviewUnavailable
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txReviewRepo := repository.NewReviewRepository(tx)

	review, err := txReviewRepo.Create(ctx, repository.CreateReviewInput{
		RequestID:  requestID,
		ClientID:   clientID,
		ProviderID: request.ProviderID,
		Rating:     rating,
		Comment:    comment,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	if err := txReviewRepo.RefreshProviderRating(ctx, request.ProviderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return review, nil
}

func (s *ReviewService) ListProviderReviews(
	ctx context.Context,
	providerID uuid.UUID,
	page int,
	limit int,
) ([]models.ProviderReview, int, error) {
	offset := (page - 1) * limit
	return s.reviewRepo.ListByProvider(ctx, providerID, limit, offset)
}
