package realtime

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tavaresmirako/petservice/internal/models"
)

var (
	ErrEmptyMessage   = errors.New("realtime: message content is empty")
	ErrMessageTooLong = errors.New("realtime: message content too long")
)

// maxMessageRunes mirrors the service-side cap; rows past it would not fit
// the change feed's NOTIFY payload and their insert would be rejected.
const maxMessageRunes = 2000

type messageStore interface {
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Message, error)
	Create(ctx context.Context, requestID, senderID, receiverID uuid.UUID, content string) (*models.Message, error)
}

// ChatReconciler maintains the ordered message history of one service
// request, merging three arrival paths into a single consistent view: the
// initial history fetch, inserts echoed through the change feed, and the
// sender's own post-acknowledgment append. Identity dedup makes the
// optimistic append and its echo collapse into one entry regardless of
// arrival order.
type ChatReconciler struct {
	requestID uuid.UUID
	senderID  uuid.UUID
	store     messageStore

	mu      sync.Mutex
	items   []models.Message
	loading bool
	loaded  bool
}

func NewChatReconciler(requestID, senderID uuid.UUID, store messageStore) *ChatReconciler {
	return &ChatReconciler{
		requestID: requestID,
		senderID:  senderID,
		store:     store,
		items:     make([]models.Message, 0),
	}
}

// LoadHistory fetches the persisted conversation and merges it into the
// current view. Merging (rather than replacing) keeps any event that
// arrived while the fetch was in flight.
func (r *ChatReconciler) LoadHistory(ctx context.Context) error {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	history, err := r.store.ListByRequest(ctx, r.requestID)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if err != nil {
		return err
	}
	for _, message := range history {
		r.insertLocked(message)
	}
	r.loaded = true
	return nil
}

// OnInsert applies a pushed message. Returns true when the message was new
// to this view; repeated deliveries of the same id return false.
func (r *ChatReconciler) OnInsert(message models.Message) bool {
	if message.RequestID != r.requestID {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(message)
}

// Send persists the message and appends it locally only after the write is
// acknowledged, using the persisted row (server id and timestamp). On
// failure nothing is mutated, so the caller keeps the typed content and can
// retry. The feed echo of the same row is absorbed by OnInsert's dedup.
func (r *ChatReconciler) Send(
	ctx context.Context,
	content string,
	receiverID uuid.UUID,
) (*models.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > maxMessageRunes {
		return nil, ErrMessageTooLong
	}

	message, err := r.store.Create(ctx, r.requestID, r.senderID, receiverID, trimmed)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.insertLocked(*message)
	r.mu.Unlock()

	return message, nil
}

func (r *ChatReconciler) Messages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Message, len(r.items))
	copy(out, r.items)
	return out
}

func (r *ChatReconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Attach subscribes to the request's chat channel. forward, if non-nil, is
// invoked for each message that was actually new to the view, so callers
// can fan newly arrived messages out to a connected client exactly once.
func (r *ChatReconciler) Attach(
	ctx context.Context,
	broker *Broker,
	channel string,
	forward func(models.Message),
) *Subscription {
	filter := Filter{
		Kind:   EventInsert,
		Table:  "messages",
		Column: "request_id",
		Equals: r.requestID.String(),
	}

	return broker.Subscribe(channel, filter, func(evt ChangeEvent) {
		if ctx.Err() != nil {
			return
		}
		message, err := decodeMessage(evt.New)
		if err != nil {
			return
		}
		if r.OnInsert(message) && forward != nil {
			forward(message)
		}
	})
}

// insertLocked places the message at its timestamp position, id as the
// tiebreak, skipping ids already present. Position matters because the
// optimistic append and out-of-order echoes make arrival order unreliable.
func (r *ChatReconciler) insertLocked(message models.Message) bool {
	for _, item := range r.items {
		if item.ID == message.ID {
			return false
		}
	}

	at := sort.Search(len(r.items), func(i int) bool {
		if !r.items[i].CreatedAt.Equal(message.CreatedAt) {
			return r.items[i].CreatedAt.After(message.CreatedAt)
		}
		return bytes.Compare(r.items[i].ID[:], message.ID[:]) > 0
	})

	r.items = append(r.items, models.Message{})
	copy(r.items[at+1:], r.items[at:])
	r.items[at] = message
	return true
}
