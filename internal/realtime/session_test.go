package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type stubSessionRequests struct {
	request *models.ServiceRequest
}

func (s *stubSessionRequests) ListPendingForProvider(_ context.Context, _ uuid.UUID) ([]models.PendingRequest, error) {
	return nil, nil
}

func (s *stubSessionRequests) GetByID(_ context.Context, _ uuid.UUID) (*models.ServiceRequest, error) {
	return s.request, nil
}

func newChatSessionFixture(t *testing.T) (*Session, *models.ServiceRequest, *Broker) {
	t.Helper()
	broker := NewBroker(testLogger())
	clientID := uuid.New()
	request := &models.ServiceRequest{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: uuid.New(),
		Status:     models.StatusAccepted,
	}
	deps := SessionDeps{
		Broker:   broker,
		Requests: &stubSessionRequests{request: request},
		Messages: &stubMessageStore{},
		Profiles: &stubProfileReader{},
		Log:      testLogger(),
	}
	session := NewSession(context.Background(), clientID, "client", deps, func([]byte) bool { return true })
	return session, request, broker
}

// Opens race in from two directions: the read loop handling chat_open and
// the acceptance listener on the dispatch goroutine. However they
// interleave, exactly one scope may survive and it must own the live
// subscription.
func TestConcurrentChatOpensKeepOneLiveScope(t *testing.T) {
	session, request, broker := newChatSessionFixture(t)
	defer session.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.openChat(request.ID)
		}()
	}
	wg.Wait()

	session.mu.Lock()
	scope, ok := session.chats[request.ID]
	count := len(session.chats)
	session.mu.Unlock()
	if !ok || count != 1 {
		t.Fatalf("expected exactly one chat scope, got %d", count)
	}

	channel := session.channelName(fmt.Sprintf("chat-%s", request.ID))
	broker.mu.Lock()
	live := broker.subs[channel]
	total := len(broker.subs)
	broker.mu.Unlock()
	if total != 1 {
		t.Fatalf("expected one live subscription, got %d", total)
	}
	if live != scope.subscription {
		t.Fatal("live subscription must belong to the surviving chat scope")
	}
}

func TestCloseReleasesChatSubscriptions(t *testing.T) {
	session, request, broker := newChatSessionFixture(t)

	session.openChat(request.ID)
	session.Close()

	session.mu.Lock()
	count := len(session.chats)
	session.mu.Unlock()
	if count != 0 {
		t.Fatalf("expected no chat scopes after close, got %d", count)
	}

	broker.mu.Lock()
	total := len(broker.subs)
	broker.mu.Unlock()
	if total != 0 {
		t.Fatalf("expected no live subscriptions after close, got %d", total)
	}
}
