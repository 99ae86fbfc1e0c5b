package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/hub"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/pkg/log"
)

type chatService struct {
	conversations repository.ConversationRepository
	hub           *hub.Hub
}

// NewChatService creates the hub event handler. The hub owns connection
// lifecycle; this service owns the event semantics.
func NewChatService(conversations repository.ConversationRepository, h *hub.Hub) ChatService {
	return &chatService{
		conversations: conversations,
		hub:           h,
	}
}

// HandleNewMessage persists the message, then relays it to the recipient's
// delivery group. The order is mandatory: a relayed message must already be
// visible to a history fetch. The store assigns id and createdAt; the
// client's values are replaced in the relayed envelope. The sender identity
// comes from the authenticated connection, never from the payload.
func (s *chatService) HandleNewMessage(ctx context.Context, senderID string, evt *domain.NewMessageEvent) error {
	l := log.Ctx(ctx)

	convID, err := primitive.ObjectIDFromHex(evt.NewMessage.ConversationID)
	if err != nil {
		return ErrInvalidID
	}
	sender, err := primitive.ObjectIDFromHex(senderID)
	if err != nil {
		return ErrInvalidID
	}

	text := strings.TrimSpace(evt.NewMessage.Message.Text)
	if text == "" {
		return ErrInvalidReference
	}

	msg, err := s.conversations.AppendMessage(ctx, convID, sender, text)
	if err != nil {
		l.Warn().Err(err).
			Str(log.FieldConversationID, evt.NewMessage.ConversationID).
			Msg("failed to persist chat message")
		return err
	}

	from := evt.NewMessage.Message.User
	from.ID = senderID

	out := domain.ChatMessageEvent{
		Type: domain.EventChatMessage,
		Message: domain.OutgoingMessage{
			Message: domain.WireMessage{
				ID:        msg.ID.Hex(),
				CreatedAt: msg.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
				Text:      msg.Text,
				User:      from,
			},
			From:           from,
			ConversationID: evt.NewMessage.ConversationID,
		},
	}

	// Best effort: an offline recipient just catches up from history.
	return s.hub.SendToUser(evt.NewMessage.To, out)
}

// HandleTyping relays a typing indicator verbatim. Nothing is persisted
// and nothing is buffered for offline recipients.
func (s *chatService) HandleTyping(ctx context.Context, senderID string, evt *domain.TypingEvent) error {
	return s.hub.SendToUser(evt.To, domain.ChatTypingEvent{
		Type:   domain.EventChatTyping,
		Typing: evt.IsTyping,
	})
}
