package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	requestID uuid.UUID,
	senderID uuid.UUID,
	receiverID uuid.UUID,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (request_id, sender_id, receiver_id, content, read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, request_id, sender_id, receiver_id, content, read, created_at, deleted_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, requestID, senderID, receiverID, content).Scan(
		&message.ID,
		&message.RequestID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Content,
		&message.Read,
		&message.CreatedAt,
		&message.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByRequest returns the full conversation ordered oldest first, the
// order the chat view renders it in.
func (r *MessageRepository) ListByRequest(
	ctx context.Context,
	requestID uuid.UUID,
) ([]models.Message, error) {
	query := `
		SELECT id, request_id, sender_id, receiver_id, content, read, created_at, deleted_at
		FROM messages
		WHERE request_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.RequestID,
			&message.SenderID,
			&message.ReceiverID,
			&message.Content,
			&message.Read,
			&message.CreatedAt,
			&message.DeletedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) MarkRequestRead(
	ctx context.Context,
	requestID uuid.UUID,
	readerID uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET read = TRUE
		WHERE request_id = $1
		  AND receiver_id = $2
		  AND read = FALSE
	`, requestID, readerID)
	return err
}

func (r *MessageRepository) SoftDelete(
	ctx context.Context,
	messageID uuid.UUID,
	senderID uuid.UUID,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET deleted_at = NOW()
		WHERE id = $1 AND sender_id = $2 AND deleted_at IS NULL
	`, messageID, senderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
