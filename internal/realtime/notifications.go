package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tavaresmirako/petservice/internal/models"
)

// Alerter is the transient-alert surface (a toast in the UI). Fire and
// forget; implementations must not block.
type Alerter interface {
	Alert(title string, description string)
}

type pendingLister interface {
	ListPendingForProvider(ctx context.Context, providerID uuid.UUID) ([]models.PendingRequest, error)
}

type profileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// displayNameTimeout bounds the profile lookup done while handling a
// change event. Event handlers run on the broker's dispatch goroutine,
// so one slow lookup would stall delivery to every session.
const displayNameTimeout = 2 * time.Second

// NotificationReconciler maintains a provider's pending service requests,
// newest first, merging the initial load with inserts pushed through the
// change feed. Removal is local and optimistic: the provider's decision
// drops the entry immediately, before the status write is confirmed, and
// there is no rollback path if that write later fails.
type NotificationReconciler struct {
	providerID uuid.UUID
	requests   pendingLister
	profiles   profileReader
	alerts     Alerter
	log        zerolog.Logger

	mu    sync.Mutex
	items []models.PendingRequest
}

func NewNotificationReconciler(
	providerID uuid.UUID,
	requests pendingLister,
	profiles profileReader,
	alerts Alerter,
	log zerolog.Logger,
) *NotificationReconciler {
	return &NotificationReconciler{
		providerID: providerID,
		requests:   requests,
		profiles:   profiles,
		alerts:     alerts,
		log:        log.With().Str("component", "notifications").Stringer("provider_id", providerID).Logger(),
		items:      make([]models.PendingRequest, 0),
	}
}

// LoadInitial replaces the list with all currently pending requests. Also
// the resynchronization point after a feed reconnect.
func (r *NotificationReconciler) LoadInitial(ctx context.Context) error {
	pending, err := r.requests.ListPendingForProvider(ctx, r.providerID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.items = pending
	r.mu.Unlock()
	return nil
}

// OnInsert applies one freshly created request. Duplicate deliveries are
// no-ops. The client's display name is looked up at event time because the
// change event only carries foreign keys.
func (r *NotificationReconciler) OnInsert(ctx context.Context, request models.ServiceRequest) {
	if request.ProviderID != r.providerID || request.Status != models.StatusPending {
		return
	}

	r.mu.Lock()
	for _, item := range r.items {
		if item.ID == request.ID {
			r.mu.Unlock()
			return
		}
	}
	r.mu.Unlock()

	clientName := r.displayName(ctx, request.ClientID, "A client")

	r.mu.Lock()
	// Re-check under lock: the lookup above released it.
	for _, item := range r.items {
		if item.ID == request.ID {
			r.mu.Unlock()
			return
		}
	}
	r.items = append([]models.PendingRequest{{ServiceRequest: request, ClientName: clientName}}, r.items...)
	r.mu.Unlock()

	r.alerts.Alert("New service request!", fmt.Sprintf("%s sent a new request.", clientName))
}

// Remove drops the entry for the given request id. Removing an id that is
// not present is a no-op, so local removal and a late update event for the
// same decision cannot conflict.
func (r *NotificationReconciler) Remove(requestID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.items {
		if item.ID == requestID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return
		}
	}
}

func (r *NotificationReconciler) Snapshot() []models.PendingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.PendingRequest, len(r.items))
	copy(out, r.items)
	return out
}

// Attach subscribes the reconciler to a notification channel. The caller
// owns the returned subscription and must close it when the owning scope
// goes away.
func (r *NotificationReconciler) Attach(ctx context.Context, broker *Broker, channel string) *Subscription {
	filter := Filter{
		Kind:   EventInsert,
		Table:  "service_requests",
		Column: "provider_id",
		Equals: r.providerID.String(),
	}

	return broker.Subscribe(channel, filter, func(evt ChangeEvent) {
		if ctx.Err() != nil {
			return
		}
		request, err := decodeServiceRequest(evt.New)
		if err != nil {
			r.log.Error().Err(err).Msg("dropping bad request event")
			return
		}
		r.OnInsert(ctx, request)
	})
}

func (r *NotificationReconciler) displayName(ctx context.Context, id uuid.UUID, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, displayNameTimeout)
	defer cancel()

	profile, err := r.profiles.GetByID(ctx, id)
	if err != nil || profile.FullName == "" {
		if err != nil {
			r.log.Warn().Err(err).Stringer("user_id", id).Msg("display name lookup failed")
		}
		return fallback
	}
	return profile.FullName
}
