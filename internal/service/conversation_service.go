package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/pkg/log"
)

// defaultConversationLimit bounds the /messages page size.
const defaultConversationLimit = 20

type conversationService struct {
	conversations repository.ConversationRepository
	users         repository.UserRepository
}

// NewConversationService creates a new conversation service.
func NewConversationService(conversations repository.ConversationRepository, users repository.UserRepository) ConversationService {
	return &conversationService{
		conversations: conversations,
		users:         users,
	}
}

func (s *conversationService) GetOrCreateConversation(ctx context.Context, selfID, peerID string) (string, error) {
	self, err := primitive.ObjectIDFromHex(selfID)
	if err != nil {
		return "", ErrInvalidID
	}
	peer, err := primitive.ObjectIDFromHex(peerID)
	if err != nil {
		return "", ErrInvalidID
	}
	if self == peer {
		return "", ErrInvalidReference
	}

	// The peer must resolve to a real account before a thread is created.
	if _, err := s.users.GetByID(ctx, peer); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidReference
		}
		return "", err
	}

	conv, err := s.conversations.GetOrCreate(ctx, self, peer)
	if err != nil {
		return "", err
	}

	log.Ctx(ctx).Debug().
		Str(log.FieldConversationID, conv.ID.Hex()).
		Str(log.FieldPeerID, peerID).
		Msg("conversation resolved")

	return conv.ID.Hex(), nil
}

func (s *conversationService) ListConversations(ctx context.Context, selfID string) (*domain.ConversationListResponse, error) {
	self, err := primitive.ObjectIDFromHex(selfID)
	if err != nil {
		return nil, ErrInvalidID
	}

	convs, err := s.conversations.ListForUser(ctx, self, defaultConversationLimit)
	if err != nil {
		return nil, err
	}

	resp := &domain.ConversationListResponse{
		Conversations:       make([]domain.ConversationView, 0, len(convs)),
		UnreadConversations: make([]string, 0),
	}

	for i := range convs {
		view, err := s.buildView(ctx, &convs[i], self)
		if err != nil {
			return nil, err
		}
		resp.Conversations = append(resp.Conversations, *view)

		if convs[i].HasUnreadFor(self) {
			resp.UnreadConversations = append(resp.UnreadConversations, convs[i].ID.Hex())
		}
	}

	return resp, nil
}

func (s *conversationService) GetHistory(ctx context.Context, conversationID, selfID string) (*domain.ConversationView, error) {
	convID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, ErrInvalidID
	}
	self, err := primitive.ObjectIDFromHex(selfID)
	if err != nil {
		return nil, ErrInvalidID
	}

	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	// Non-participants are told nothing, not even that the thread exists.
	if !conv.HasParticipant(self) {
		return nil, repository.ErrConversationNotFound
	}

	return s.buildView(ctx, conv, self)
}

func (s *conversationService) MarkAsViewed(ctx context.Context, conversationID, selfID string) error {
	convID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return ErrInvalidID
	}
	self, err := primitive.ObjectIDFromHex(selfID)
	if err != nil {
		return ErrInvalidID
	}

	updated, err := s.conversations.MarkViewed(ctx, convID, self)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Debug().
		Str(log.FieldConversationID, conversationID).
		Int64("updated", updated).
		Msg("chats marked viewed")

	return nil
}

// buildView reshapes a conversation document into the client view model:
// every message with its sender's public identity, plus the peer profile.
func (s *conversationService) buildView(ctx context.Context, conv *domain.Conversation, self primitive.ObjectID) (*domain.ConversationView, error) {
	peerID := conv.Peer(self)

	profiles := make(map[primitive.ObjectID]domain.PublicProfile, 2)
	for _, id := range conv.Participants {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				// Participant account is gone; keep the thread readable.
				profiles[id] = domain.PublicProfile{ID: id.Hex()}
				continue
			}
			return nil, err
		}
		profiles[id] = user.ToPublicProfile()
	}

	view := &domain.ConversationView{
		ID:          conv.ID.Hex(),
		Chats:       make([]domain.ChatView, 0, len(conv.Chats)),
		PeerProfile: profiles[peerID],
	}

	for _, m := range conv.Chats {
		view.Chats = append(view.Chats, domain.ChatView{
			ID:        m.ID.Hex(),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
			Viewed:    m.Viewed,
			User:      profiles[m.SentBy],
		})
	}

	return view, nil
}
