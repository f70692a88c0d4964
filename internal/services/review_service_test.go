package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// Rating and comment validation run before any repository access, so a
// service without a database behind it is enough to exercise them.
func TestCreateReviewValidatesInputFirst(t *testing.T) {
	service := NewReviewService(nil, nil, nil)

	for _, rating := range []int{0, -1, 6} {
		_, err := service.CreateReview(context.Background(), uuid.New(), uuid.New(), rating, nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("rating %d: expected ErrInvalidInput, got %v", rating, err)
		}
	}

	comment := strings.Repeat("a", maxMessageLength+1)
	_, err := service.CreateReview(context.Background(), uuid.New(), uuid.New(), 5, &comment)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized comment: expected ErrInvalidInput, got %v", err)
	}
}
