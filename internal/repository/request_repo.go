package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

const requestColumns = `id, client_id, provider_id, service_id, pet_id, message, scheduled_date, status, created_at, updated_at, deleted_at`

type CreateRequestInput struct {
	ClientID      uuid.UUID
	ProviderID    uuid.UUID
	ServiceID     *uuid.UUID
	PetID         *uuid.UUID
	Message       *string
	ScheduledDate *time.Time
}

type RequestListFilter struct {
	ActorID uuid.UUID
	Role    string
	Status  string
}

type RequestRepository struct {
	db DBTX
}

func NewRequestRepository(db DBTX) *RequestRepository {
	return &RequestRepository{db: db}
}

func scanRequest(row interface{ Scan(dest ...any) error }) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := row.Scan(
		&request.ID,
		&request.ClientID,
		&request.ProviderID,
		&request.ServiceID,
		&request.PetID,
		&request.Message,
		&request.ScheduledDate,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepository) Create(
	ctx context.Context,
	input CreateRequestInput,
) (*models.ServiceRequest, error) {
	query := fmt.Sprintf(`
		INSERT INTO service_requests (client_id, provider_id, service_id, pet_id, message, scheduled_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING %s
	`, requestColumns)

	return scanRequest(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.ProviderID,
		input.ServiceID,
		input.PetID,
		input.Message,
		input.ScheduledDate,
	))
}

func (r *RequestRepository) GetByID(
	ctx context.Context,
	requestID uuid.UUID,
) (*models.ServiceRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM service_requests
		WHERE id = $1 AND deleted_at IS NULL
	`, requestColumns)

	return scanRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *RequestRepository) List(
	ctx context.Context,
	filter RequestListFilter,
	limit int,
	offset int,
) ([]models.ServiceRequest, int, error) {
	actorColumn := "client_id"
	if filter.Role == "provider" {
		actorColumn = "provider_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn), "deleted_at IS NULL"}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(whereParts, " AND ")

	totalQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM service_requests
		WHERE %s
	`, where)

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM service_requests
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]models.ServiceRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListPendingForProvider carries the client's display name with each row so
// the initial notification load does not need one lookup per request.
func (r *RequestRepository) ListPendingForProvider(
	ctx context.Context,
	providerID uuid.UUID,
) ([]models.PendingRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.full_name
		FROM service_requests sr
		JOIN profiles p ON p.id = sr.client_id
		WHERE sr.provider_id = $1 AND sr.status = 'pending' AND sr.deleted_at IS NULL
		ORDER BY sr.created_at DESC, sr.id DESC
	`, prefixedRequestColumns("sr"))

	rows, err := r.db.Query(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make([]models.PendingRequest, 0)
	for rows.Next() {
		var item models.PendingRequest
		if err := rows.Scan(
			&item.ID,
			&item.ClientID,
			&item.ProviderID,
			&item.ServiceID,
			&item.PetID,
			&item.Message,
			&item.ScheduledDate,
			&item.Status,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.DeletedAt,
			&item.ClientName,
		); err != nil {
			return nil, err
		}
		pending = append(pending, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pending, nil
}

// UpdateStatusIfCurrent performs the transition only when the row still
// carries the expected current status; returns pgx.ErrNoRows when another
// writer got there first.
func (r *RequestRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	requestID uuid.UUID,
	currentStatus models.RequestStatus,
	nextStatus models.RequestStatus,
) (*models.ServiceRequest, error) {
	query := fmt.Sprintf(`
		UPDATE service_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
		RETURNING %s
	`, requestColumns)

	return scanRequest(r.db.QueryRow(ctx, query, requestID, currentStatus, nextStatus))
}

func (r *RequestRepository) SoftDelete(
	ctx context.Context,
	requestID uuid.UUID,
	clientID uuid.UUID,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE service_requests
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND client_id = $2 AND deleted_at IS NULL
	`, requestID, clientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func prefixedRequestColumns(alias string) string {
	columns := strings.Split(requestColumns, ", ")
	for i, column := range columns {
		columns[i] = alias + "." + column
	}
	return strings.Join(columns, ", ")
}
