package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tavaresmirako/petservice/internal/models"
)

// ChatView is everything needed to open a chat scoped to one request.
type ChatView struct {
	RequestID       uuid.UUID `json:"request_id"`
	CounterpartID   uuid.UUID `json:"counterpart_id"`
	CounterpartName string    `json:"counterpart_name"`
}

type ChatOpener func(ChatView)

// AcceptListener is the client side of the request lifecycle: it watches
// update events on the client's own requests and, when one records the
// pending→accepted transition, resolves the provider's name and opens the
// chat view. The provider's write is the client's trigger; no polling.
type AcceptListener struct {
	clientID uuid.UUID
	profiles profileReader
	alerts   Alerter
	open     ChatOpener
	log      zerolog.Logger
}

func NewAcceptListener(
	clientID uuid.UUID,
	profiles profileReader,
	alerts Alerter,
	open ChatOpener,
	log zerolog.Logger,
) *AcceptListener {
	return &AcceptListener{
		clientID: clientID,
		profiles: profiles,
		alerts:   alerts,
		open:     open,
		log:      log.With().Str("component", "lifecycle").Stringer("client_id", clientID).Logger(),
	}
}

// OnUpdate inspects one update event. The side effect fires only when the
// event itself records pending→accepted: the guard compares the previous
// and new status, so a benign touch of an already-accepted row (or any
// other transition) does nothing.
func (l *AcceptListener) OnUpdate(ctx context.Context, previous, next models.ServiceRequest) {
	if next.ClientID != l.clientID {
		return
	}
	if previous.Status != models.StatusPending || next.Status != models.StatusAccepted {
		return
	}

	providerName := l.displayName(ctx, next.ProviderID, "The provider")

	l.alerts.Alert("Request accepted!", fmt.Sprintf("%s accepted your request. The chat is open.", providerName))
	l.open(ChatView{
		RequestID:       next.ID,
		CounterpartID:   next.ProviderID,
		CounterpartName: providerName,
	})
}

func (l *AcceptListener) Attach(ctx context.Context, broker *Broker, channel string) *Subscription {
	filter := Filter{
		Kind:   EventUpdate,
		Table:  "service_requests",
		Column: "client_id",
		Equals: l.clientID.String(),
	}

	return broker.Subscribe(channel, filter, func(evt ChangeEvent) {
		if ctx.Err() != nil {
			return
		}
		previous, err := decodeServiceRequest(evt.Old)
		if err != nil {
			l.log.Error().Err(err).Msg("dropping update event without previous row")
			return
		}
		next, err := decodeServiceRequest(evt.New)
		if err != nil {
			l.log.Error().Err(err).Msg("dropping bad update event")
			return
		}
		l.OnUpdate(ctx, previous, next)
	})
}

func (l *AcceptListener) displayName(ctx context.Context, id uuid.UUID, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, displayNameTimeout)
	defer cancel()

	profile, err := l.profiles.GetByID(ctx, id)
	if err != nil || profile.FullName == "" {
		if err != nil {
			l.log.Warn().Err(err).Stringer("user_id", id).Msg("display name lookup failed")
		}
		return fallback
	}
	return profile.FullName
}
