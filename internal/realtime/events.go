package realtime

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

var errInvalidRow = errors.New("realtime: change event carries an invalid row")

// decodeServiceRequest turns a raw event row into a typed ServiceRequest,
// rejecting rows that lack identity or carry an unknown status so the
// reconcilers only ever see well-formed records.
func decodeServiceRequest(raw json.RawMessage) (models.ServiceRequest, error) {
	var request models.ServiceRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return models.ServiceRequest{}, err
	}
	if request.ID == uuid.Nil || request.ClientID == uuid.Nil || request.ProviderID == uuid.Nil {
		return models.ServiceRequest{}, errInvalidRow
	}
	if !request.Status.Valid() {
		return models.ServiceRequest{}, errInvalidRow
	}
	return request, nil
}

func decodeMessage(raw json.RawMessage) (models.Message, error) {
	var message models.Message
	if err := json.Unmarshal(raw, &message); err != nil {
		return models.Message{}, err
	}
	if message.ID == uuid.Nil || message.RequestID == uuid.Nil || message.SenderID == uuid.Nil {
		return models.Message{}, errInvalidRow
	}
	return message, nil
}
