package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tavaresmirako/petservice/internal/models"
	"github.com/tavaresmirako/petservice/internal/repository"
)

// maxMessageLength bounds chat content in characters. The change feed
// serializes whole rows into NOTIFY payloads, which Postgres caps just
// under 8000 bytes, so unbounded content would make the insert itself
// fail once the row no longer fits a payload.
const maxMessageLength = 2000

type ChatService struct {
	db          *pgxpool.Pool
	requestRepo *repository.RequestRepository
	messageRepo *repository.MessageRepository
}

type ChatDelivery struct {
	Request     *models.ServiceRequest
	Message     *models.Message
	RecipientID uuid.UUID
}

func NewChatService(
	db *pgxpool.Pool,
	requestRepo *repository.RequestRepository,
	messageRepo *repository.MessageRepository,
) *ChatService {
	return &ChatService{
		db:          db,
		requestRepo: requestRepo,
		messageRepo: messageRepo,
	}
}

// ListMessages returns the full conversation oldest first and marks the
// actor's unread messages read in the same transaction, so a reread after
// the fetch cannot resurrect unread counts.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	requestID uuid.UUID,
) ([]models.Message, error) {
	if role != "client" && role != "provider" {
		return nil, ErrForbidden
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canAccessRequest(role, actorID, request) {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, err := txMessageRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := txMessageRepo.MarkRequestRead(ctx, requestID, actorID); err != nil {
		return nil, err
	}

	for i := range messages {
		if messages[i].ReceiverID == actorID {
			messages[i].Read = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return messages, nil
}

// SendMessage persists one chat message once the parent request is in an
// open conversation state, and returns the persisted row so the caller can
// append it without waiting for the feed echo.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	requestID uuid.UUID,
	content string,
) (*ChatDelivery, error) {
	if role != "client" && role != "provider" {
		return nil, ErrForbidden
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxMessageLength {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !canAccessRequest(role, actorID, request) {
		return nil, ErrForbidden
	}
	if request.Status != models.StatusAccepted {
		return nil, ErrChatUnavailable
	}

	recipientID := request.ClientID
	if actorID == request.ClientID {
		recipientID = request.ProviderID
	}

	message, err := s.messageRepo.Create(ctx, requestID, actorID, recipientID, trimmed)
	if err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Request:     request,
		Message:     message,
		RecipientID: recipientID,
	}, nil
}

func (s *ChatService) DeleteMessage(
	ctx context.Context,
	actorID uuid.UUID,
	messageID uuid.UUID,
) error {
	deleted, err := s.messageRepo.SoftDelete(ctx, messageID, actorID)
	if err != nil {
		return err
	}
	if !deleted {
		return pgx.ErrNoRows
	}
	return nil
}
