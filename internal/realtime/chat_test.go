package realtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

type stubMessageStore struct {
	history    []models.Message
	historyErr error
	createErr  error
	createAt   time.Time
	created    []models.Message
}

func (s *stubMessageStore) ListByRequest(_ context.Context, _ uuid.UUID) ([]models.Message, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.history, nil
}

func (s *stubMessageStore) Create(
	_ context.Context,
	requestID, senderID, receiverID uuid.UUID,
	content string,
) (*models.Message, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	message := models.Message{
		ID:         uuid.New(),
		RequestID:  requestID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.createAt,
	}
	s.created = append(s.created, message)
	return &message, nil
}

func chatMessage(requestID uuid.UUID, content string, at time.Time) models.Message {
	return models.Message{
		ID:        uuid.New(),
		RequestID: requestID,
		SenderID:  uuid.New(),
		Content:   content,
		CreatedAt: at,
	}
}

func TestSendAppendsOnlyAfterAcknowledgment(t *testing.T) {
	requestID := uuid.New()
	senderID := uuid.New()
	store := &stubMessageStore{createAt: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}
	reconciler := NewChatReconciler(requestID, senderID, store)

	sent, err := reconciler.Send(context.Background(), "  Hello  ", uuid.New())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Content != "Hello" {
		t.Errorf("expected trimmed content, got %q", sent.Content)
	}

	messages := reconciler.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].ID != sent.ID {
		t.Error("expected the persisted row, with its server id, in the view")
	}
}

func TestSendFailureMutatesNothing(t *testing.T) {
	reconciler := NewChatReconciler(uuid.New(), uuid.New(), &stubMessageStore{
		createErr: errors.New("write refused"),
	})

	if _, err := reconciler.Send(context.Background(), "hello", uuid.New()); err == nil {
		t.Fatal("expected an error from a failed write")
	}
	if got := len(reconciler.Messages()); got != 0 {
		t.Fatalf("expected no messages after failed send, got %d", got)
	}

	if _, err := reconciler.Send(context.Background(), "   ", uuid.New()); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage for blank content, got %v", err)
	}
}

func TestEchoOfOptimisticAppendIsDeduplicated(t *testing.T) {
	requestID := uuid.New()
	store := &stubMessageStore{createAt: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}
	reconciler := NewChatReconciler(requestID, uuid.New(), store)

	sent, err := reconciler.Send(context.Background(), "Hello", uuid.New())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The server echo of the same persisted row may arrive any number of
	// times; the view must keep exactly one entry.
	for i := 0; i < 3; i++ {
		if reconciler.OnInsert(*sent) {
			t.Error("expected echo delivery to be recognized as a duplicate")
		}
	}

	if got := len(reconciler.Messages()); got != 1 {
		t.Fatalf("expected exactly 1 message, got %d", got)
	}
}

func TestOutOfOrderArrivalsEndUpTimestampSorted(t *testing.T) {
	requestID := uuid.New()
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	m1 := chatMessage(requestID, "t1", base)
	m2 := chatMessage(requestID, "t2", base.Add(time.Second))

	store := &stubMessageStore{createAt: base.Add(2 * time.Second)}
	reconciler := NewChatReconciler(requestID, uuid.New(), store)

	// t2's echo lands first, t3 is the local optimistic append, then t1's
	// echo finally arrives, followed by a late duplicate of t3.
	reconciler.OnInsert(m2)
	m3, err := reconciler.Send(context.Background(), "t3", uuid.New())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	reconciler.OnInsert(m1)
	reconciler.OnInsert(*m3)

	messages := reconciler.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if messages[i].Content != want {
			t.Errorf("position %d: expected %s, got %s", i, want, messages[i].Content)
		}
	}
}

func TestLoadHistoryMergesWithAlreadyDeliveredEvents(t *testing.T) {
	requestID := uuid.New()
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	m1 := chatMessage(requestID, "t1", base)
	m2 := chatMessage(requestID, "t2", base.Add(time.Second))

	store := &stubMessageStore{history: []models.Message{m1, m2}}
	reconciler := NewChatReconciler(requestID, uuid.New(), store)

	// m2 is pushed before the history fetch settles; the merge must not
	// duplicate it or lose it.
	reconciler.OnInsert(m2)

	if err := reconciler.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	messages := reconciler.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != m1.ID || messages[1].ID != m2.ID {
		t.Error("expected history merged in timestamp order without duplicates")
	}
}

func TestLoadHistoryFailureClearsLoadingState(t *testing.T) {
	reconciler := NewChatReconciler(uuid.New(), uuid.New(), &stubMessageStore{
		historyErr: errors.New("fetch failed"),
	})

	if err := reconciler.LoadHistory(context.Background()); err == nil {
		t.Fatal("expected history fetch error")
	}
	if reconciler.Loading() {
		t.Error("expected loading to settle after a failed fetch")
	}
}

func TestOnInsertRejectsOtherConversations(t *testing.T) {
	reconciler := NewChatReconciler(uuid.New(), uuid.New(), &stubMessageStore{})

	foreign := chatMessage(uuid.New(), "stray", time.Now())
	if reconciler.OnInsert(foreign) {
		t.Error("expected a message for another request to be rejected")
	}
	if got := len(reconciler.Messages()); got != 0 {
		t.Fatalf("expected empty view, got %d messages", got)
	}
}

func TestSendRejectsOversizedContent(t *testing.T) {
	store := &stubMessageStore{}
	reconciler := NewChatReconciler(uuid.New(), uuid.New(), store)

	_, err := reconciler.Send(context.Background(), strings.Repeat("a", maxMessageRunes+1), uuid.New())
	if !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
	if len(store.created) != 0 {
		t.Error("oversized content must not be persisted")
	}
	if len(reconciler.Messages()) != 0 {
		t.Error("oversized content must not be appended")
	}
}
