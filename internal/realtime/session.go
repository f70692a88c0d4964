package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tavaresmirako/petservice/internal/models"
)

// Frame is the wire shape exchanged with a connected client over the
// websocket. One flat struct, discriminated by Type.
type Frame struct {
	Type          string                  `json:"type"`
	Title         string                  `json:"title,omitempty"`
	Description   string                  `json:"description,omitempty"`
	RequestID     string                  `json:"request_id,omitempty"`
	Notifications []models.PendingRequest `json:"notifications,omitempty"`
	Chat          *ChatView               `json:"chat,omitempty"`
	Messages      []models.Message        `json:"messages,omitempty"`
	Message       *models.Message         `json:"message,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

type inboundFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
}

type requestStore interface {
	pendingLister
	GetByID(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error)
}

// SessionDeps are the collaborators a session wires its reconcilers to.
type SessionDeps struct {
	Broker   *Broker
	Requests requestStore
	Messages messageStore
	Profiles profileReader
	Log      zerolog.Logger
}

type chatScope struct {
	reconciler   *ChatReconciler
	subscription *Subscription
	counterpart  uuid.UUID
}

// Session is the realtime scope of one websocket connection. It owns every
// subscription and reconciler opened on behalf of that connection and
// releases them all when the connection goes away. Nothing it opens
// outlives it.
type Session struct {
	id     uuid.UUID
	userID uuid.UUID
	role   string
	deps   SessionDeps
	send   func([]byte) bool
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed sync.Once

	notifications *NotificationReconciler
	notifSub      *Subscription
	acceptSub     *Subscription

	// openMu serializes the open-chat sequence. Opens arrive from two
	// goroutines (the connection's read loop and the broker dispatching
	// an acceptance), and two interleaved opens for the same request
	// could otherwise both pass the replace step and strand one
	// subscription unclosed.
	openMu sync.Mutex

	mu    sync.Mutex
	chats map[uuid.UUID]*chatScope
}

// NewSession builds the scope for one connected user. send queues an
// encoded frame for delivery and reports false once the connection is gone.
func NewSession(
	parent context.Context,
	userID uuid.UUID,
	role string,
	deps SessionDeps,
	send func([]byte) bool,
) *Session {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.New()
	return &Session{
		id:     id,
		userID: userID,
		role:   role,
		deps:   deps,
		send:   send,
		log: deps.Log.With().
			Str("component", "session").
			Stringer("session_id", id).
			Stringer("user_id", userID).
			Str("role", role).
			Logger(),
		ctx:    ctx,
		cancel: cancel,
		chats:  make(map[uuid.UUID]*chatScope),
	}
}

// Start opens the role's standing subscriptions: providers watch for new
// requests aimed at them, clients watch their own requests for the
// pending→accepted transition.
func (s *Session) Start() {
	switch s.role {
	case "provider":
		s.notifications = NewNotificationReconciler(s.userID, s.deps.Requests, s.deps.Profiles, s, s.log)
		channel := s.channelName(fmt.Sprintf("provider-notifications-%s", s.userID))
		s.notifSub = s.notifications.Attach(s.ctx, s.deps.Broker, channel)
		s.notifSub.HandleResync(s.reloadNotifications)
		s.reloadNotifications()
	case "client":
		listener := NewAcceptListener(s.userID, s.deps.Profiles, s, s.onRequestAccepted, s.log)
		channel := s.channelName(fmt.Sprintf("client-notifications-%s", s.userID))
		s.acceptSub = listener.Attach(s.ctx, s.deps.Broker, channel)
	}
}

// Alert implements Alerter by pushing a toast frame.
func (s *Session) Alert(title string, description string) {
	s.push(Frame{Type: "toast", Title: title, Description: description})
}

// RemoveNotification drops a pending notification from this session's view.
// Called the moment the provider decides, before the status write is
// confirmed; removal of an absent id is a no-op.
func (s *Session) RemoveNotification(requestID uuid.UUID) {
	if s.notifications == nil {
		return
	}
	s.notifications.Remove(requestID)
	s.push(Frame{Type: "notification_removed", RequestID: requestID.String()})
}

// HandleInbound processes one frame sent by the connected client.
func (s *Session) HandleInbound(raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.push(Frame{Type: "error", Error: "invalid frame"})
		return
	}

	requestID, err := uuid.Parse(frame.RequestID)
	if err != nil {
		s.push(Frame{Type: "error", Error: "invalid request id"})
		return
	}

	switch frame.Type {
	case "chat_open":
		s.openChat(requestID)
	case "chat_close":
		s.closeChat(requestID)
	case "message":
		s.sendChatMessage(requestID, frame.Content)
	default:
		s.push(Frame{Type: "error", Error: "unsupported frame type"})
	}
}

// Close tears the whole scope down. Idempotent; safe to call from any
// goroutine. Async work that completes afterwards sees the cancelled
// context and discards its result.
func (s *Session) Close() {
	s.closed.Do(func() {
		s.cancel()
		if s.notifSub != nil {
			s.notifSub.Close()
		}
		if s.acceptSub != nil {
			s.acceptSub.Close()
		}

		// Wait out any open in flight: with the context cancelled it
		// either released its subscription itself or registered the
		// scope below for teardown here.
		s.openMu.Lock()
		defer s.openMu.Unlock()

		s.mu.Lock()
		scopes := make([]*chatScope, 0, len(s.chats))
		for _, scope := range s.chats {
			scopes = append(scopes, scope)
		}
		s.chats = make(map[uuid.UUID]*chatScope)
		s.mu.Unlock()

		for _, scope := range scopes {
			scope.subscription.Close()
		}
		s.log.Debug().Msg("session closed")
	})
}

func (s *Session) onRequestAccepted(view ChatView) {
	s.push(Frame{Type: "chat_opened", Chat: &view})
	s.openChat(view.RequestID)
}

func (s *Session) openChat(requestID uuid.UUID) {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	request, err := s.deps.Requests.GetByID(s.ctx, requestID)
	if err != nil {
		s.push(Frame{Type: "error", RequestID: requestID.String(), Error: "request not found"})
		return
	}
	if request.ClientID != s.userID && request.ProviderID != s.userID {
		s.push(Frame{Type: "error", RequestID: requestID.String(), Error: "not a participant"})
		return
	}

	counterpart := request.ClientID
	if s.userID == request.ClientID {
		counterpart = request.ProviderID
	}

	// Re-opening the same conversation replaces the previous scope; the
	// old subscription is released before the new one goes live.
	s.closeChat(requestID)

	reconciler := NewChatReconciler(requestID, s.userID, s.deps.Messages)
	channel := s.channelName(fmt.Sprintf("chat-%s", requestID))
	subscription := reconciler.Attach(s.ctx, s.deps.Broker, channel, func(message models.Message) {
		if s.ctx.Err() != nil {
			return
		}
		s.push(Frame{Type: "message", RequestID: requestID.String(), Message: &message})
	})
	subscription.HandleResync(func() {
		if err := reconciler.LoadHistory(s.ctx); err != nil {
			return
		}
		s.pushHistory(requestID, reconciler)
	})

	if err := reconciler.LoadHistory(s.ctx); err != nil {
		subscription.Close()
		s.log.Error().Err(err).Stringer("request_id", requestID).Msg("history load failed")
		s.push(Frame{Type: "error", RequestID: requestID.String(), Error: "failed to load history"})
		return
	}
	if s.ctx.Err() != nil {
		subscription.Close()
		return
	}

	s.mu.Lock()
	s.chats[requestID] = &chatScope{
		reconciler:   reconciler,
		subscription: subscription,
		counterpart:  counterpart,
	}
	s.mu.Unlock()

	s.pushHistory(requestID, reconciler)
}

func (s *Session) closeChat(requestID uuid.UUID) {
	s.mu.Lock()
	scope, ok := s.chats[requestID]
	if ok {
		delete(s.chats, requestID)
	}
	s.mu.Unlock()

	if ok {
		scope.subscription.Close()
	}
}

func (s *Session) sendChatMessage(requestID uuid.UUID, content string) {
	s.mu.Lock()
	scope, ok := s.chats[requestID]
	s.mu.Unlock()
	if !ok {
		s.push(Frame{Type: "error", RequestID: requestID.String(), Error: "chat is not open"})
		return
	}

	message, err := scope.reconciler.Send(s.ctx, content, scope.counterpart)
	if err != nil {
		reason := "failed to send message"
		switch {
		case errors.Is(err, ErrEmptyMessage):
			reason = "message is empty"
		case errors.Is(err, ErrMessageTooLong):
			reason = "message is too long"
		}
		s.log.Warn().Err(err).Stringer("request_id", requestID).Msg("send failed")
		s.push(Frame{Type: "error", RequestID: requestID.String(), Error: reason})
		return
	}

	s.push(Frame{Type: "message", RequestID: requestID.String(), Message: message})
}

func (s *Session) reloadNotifications() {
	if err := s.notifications.LoadInitial(s.ctx); err != nil {
		s.log.Error().Err(err).Msg("notification load failed")
		s.push(Frame{Type: "error", Error: "failed to load notifications"})
		return
	}
	if s.ctx.Err() != nil {
		return
	}
	s.push(Frame{Type: "notifications", Notifications: s.notifications.Snapshot()})
}

func (s *Session) pushHistory(requestID uuid.UUID, reconciler *ChatReconciler) {
	s.push(Frame{Type: "history", RequestID: requestID.String(), Messages: reconciler.Messages()})
}

func (s *Session) push(frame Frame) {
	encoded, err := json.Marshal(frame)
	if err != nil {
		s.log.Error().Err(err).Str("frame", frame.Type).Msg("encode frame")
		return
	}
	if !s.send(encoded) {
		s.log.Debug().Str("frame", frame.Type).Msg("dropping frame for gone client")
	}
}

// channelName scopes a logical channel to this session; a channel is
// unique per (session, logical name), so two sessions watching the same
// conversation never evict each other, while re-subscribing the same
// conversation within one session replaces the prior subscription.
func (s *Session) channelName(name string) string {
	return fmt.Sprintf("%s#%s", name, s.id)
}
