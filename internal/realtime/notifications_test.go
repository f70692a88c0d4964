package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type stubPendingLister struct {
	pending []models.PendingRequest
	err     error
}

func (s *stubPendingLister) ListPendingForProvider(_ context.Context, _ uuid.UUID) ([]models.PendingRequest, error) {
	return s.pending, s.err
}

type stubProfileReader struct {
	profiles map[uuid.UUID]*models.Profile
	err      error
}

func (s *stubProfileReader) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	profile, ok := s.profiles[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return profile, nil
}

type recordingAlerter struct {
	titles       []string
	descriptions []string
}

func (a *recordingAlerter) Alert(title, description string) {
	a.titles = append(a.titles, title)
	a.descriptions = append(a.descriptions, description)
}

func pendingRequest(providerID uuid.UUID) models.ServiceRequest {
	return models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		ProviderID: providerID,
		Status:     models.StatusPending,
	}
}

func TestLoadInitialBecomesStartingState(t *testing.T) {
	providerID := uuid.New()
	initial := []models.PendingRequest{
		{ServiceRequest: pendingRequest(providerID), ClientName: "Ana"},
		{ServiceRequest: pendingRequest(providerID), ClientName: "Bruno"},
	}
	reconciler := NewNotificationReconciler(
		providerID,
		&stubPendingLister{pending: initial},
		&stubProfileReader{},
		&recordingAlerter{},
		testLogger(),
	)

	if err := reconciler.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}

	items := reconciler.Snapshot()
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(items))
	}
	if items[0].ClientName != "Ana" || items[1].ClientName != "Bruno" {
		t.Fatalf("unexpected notification order: %v, %v", items[0].ClientName, items[1].ClientName)
	}
}

func TestOnInsertPrependsResolvesNameAndAlerts(t *testing.T) {
	providerID := uuid.New()
	request := pendingRequest(providerID)
	alerts := &recordingAlerter{}
	reconciler := NewNotificationReconciler(
		providerID,
		&stubPendingLister{},
		&stubProfileReader{profiles: map[uuid.UUID]*models.Profile{
			request.ClientID: {ID: request.ClientID, FullName: "Carla Souza"},
		}},
		alerts,
		testLogger(),
	)

	older := pendingRequest(providerID)
	reconciler.OnInsert(context.Background(), older)
	reconciler.OnInsert(context.Background(), request)

	items := reconciler.Snapshot()
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(items))
	}
	if items[0].ID != request.ID {
		t.Error("expected newest notification first")
	}
	if items[0].ClientName != "Carla Souza" {
		t.Errorf("expected resolved client name, got %q", items[0].ClientName)
	}
	if len(alerts.titles) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts.titles))
	}
	if alerts.descriptions[1] != "Carla Souza sent a new request." {
		t.Errorf("unexpected alert description %q", alerts.descriptions[1])
	}
}

func TestOnInsertDeduplicatesById(t *testing.T) {
	providerID := uuid.New()
	request := pendingRequest(providerID)
	alerts := &recordingAlerter{}
	reconciler := NewNotificationReconciler(
		providerID,
		&stubPendingLister{},
		&stubProfileReader{},
		alerts,
		testLogger(),
	)

	for i := 0; i < 3; i++ {
		reconciler.OnInsert(context.Background(), request)
	}

	if got := len(reconciler.Snapshot()); got != 1 {
		t.Fatalf("expected 1 notification after duplicate deliveries, got %d", got)
	}
	if len(alerts.titles) != 1 {
		t.Fatalf("expected 1 alert after duplicate deliveries, got %d", len(alerts.titles))
	}
}

func TestOnInsertFallsBackWhenLookupFails(t *testing.T) {
	providerID := uuid.New()
	alerts := &recordingAlerter{}
	reconciler := NewNotificationReconciler(
		providerID,
		&stubPendingLister{},
		&stubProfileReader{err: errors.New("profile service down")},
		alerts,
		testLogger(),
	)

	reconciler.OnInsert(context.Background(), pendingRequest(providerID))

	items := reconciler.Snapshot()
	if len(items) != 1 {
		t.Fatalf("expected the notification despite lookup failure, got %d items", len(items))
	}
	if items[0].ClientName != "A client" {
		t.Errorf("expected fallback name, got %q", items[0].ClientName)
	}
	if alerts.descriptions[0] != "A client sent a new request." {
		t.Errorf("unexpected alert description %q", alerts.descriptions[0])
	}
}

func TestOnInsertIgnoresForeignRows(t *testing.T) {
	providerID := uuid.New()
	reconciler := NewNotificationReconciler(
		providerID,
		&stubPendingLister{},
		&stubProfileReader{},
		&recordingAlerter{},
		testLogger(),
	)

	reconciler.OnInsert(context.Background(), pendingRequest(uuid.New()))

	accepted := pendingRequest(providerID)
	accepted.Status = models.StatusAccepted
	reconciler.OnInsert(context.Background(), accepted)

	if got := len(reconciler.Snapshot()); got != 0 {
		t.Fatalf("expected no notifications, got %d", got)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	providerID := uuid.New()
	request := pendingRequest(providerID)
	reconciler := NewNotificationReconciler(
		providerID,
		&stubPendingLister{},
		&stubProfileReader{},
		&recordingAlerter{},
		testLogger(),
	)

	reconciler.OnInsert(context.Background(), request)
	keep := pendingRequest(providerID)
	reconciler.OnInsert(context.Background(), keep)

	reconciler.Remove(request.ID)
	reconciler.Remove(request.ID)
	reconciler.Remove(uuid.New())

	items := reconciler.Snapshot()
	if len(items) != 1 {
		t.Fatalf("expected 1 notification to remain, got %d", len(items))
	}
	if items[0].ID != keep.ID {
		t.Error("expected the untouched notification to remain")
	}
}

// deadlineProfileReader records whether the lookup context carries a
// deadline. Lookups fired from event handlers run on the broker's
// dispatch goroutine and must be time-bounded.
type deadlineProfileReader struct {
	stubProfileReader
	hadDeadline bool
}

func (s *deadlineProfileReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	_, s.hadDeadline = ctx.Deadline()
	return s.stubProfileReader.GetByID(ctx, id)
}

func TestInsertNameLookupIsTimeBounded(t *testing.T) {
	providerID := uuid.New()
	request := pendingRequest(providerID)
	profiles := &deadlineProfileReader{stubProfileReader: stubProfileReader{
		profiles: map[uuid.UUID]*models.Profile{
			request.ClientID: {ID: request.ClientID, FullName: "Ana"},
		},
	}}

	reconciler := NewNotificationReconciler(providerID, &stubPendingLister{}, profiles, &recordingAlerter{}, testLogger())
	reconciler.OnInsert(context.Background(), request)

	if !profiles.hadDeadline {
		t.Fatal("expected the name lookup context to carry a deadline")
	}
}
