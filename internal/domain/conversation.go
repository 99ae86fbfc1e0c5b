package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a single chat message embedded in a conversation document.
// Message ids and timestamps are assigned by the store on append; the
// viewed flag only ever transitions false -> true.
type Message struct {
	ID        primitive.ObjectID `bson:"_id"`
	SentBy    primitive.ObjectID `bson:"sent_by"`
	Text      string             `bson:"text"`
	Viewed    bool               `bson:"viewed"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Conversation is the persisted thread between exactly two users.
// ParticipantsKey is derived from the sorted participant ids and carries
// a unique index: one conversation per unordered pair.
type Conversation struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Participants    []primitive.ObjectID `bson:"participants"`
	ParticipantsKey string               `bson:"participants_key"`
	Chats           []Message            `bson:"chats"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

// ParticipantsKey derives the canonical order-independent key for a user
// pair: sort the two ids, join with "_". It is the sole source of the key;
// it must never be recomputed any other way.
func ParticipantsKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// HasParticipant reports whether the user is one of the two participants.
func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Peer returns the other participant's id.
func (c *Conversation) Peer(self primitive.ObjectID) primitive.ObjectID {
	for _, p := range c.Participants {
		if p != self {
			return p
		}
	}
	return self
}

// HasUnreadFor reports whether any message is unviewed and not sent by the
// given user. This drives the unread-conversation computation.
func (c *Conversation) HasUnreadFor(userID primitive.ObjectID) bool {
	for _, m := range c.Chats {
		if !m.Viewed && m.SentBy != userID {
			return true
		}
	}
	return false
}

// ChatView is a message in API responses.
type ChatView struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
	Viewed    bool          `json:"viewed"`
	User      PublicProfile `json:"user"`
}

// ConversationView is a conversation in API responses: the ordered chat
// history plus the peer's identity.
type ConversationView struct {
	ID          string        `json:"id"`
	Chats       []ChatView    `json:"chats"`
	PeerProfile PublicProfile `json:"peerProfile"`
}

// ConversationListResponse is the /messages response: summaries plus the
// set of conversation ids with unread messages.
type ConversationListResponse struct {
	Conversations       []ConversationView `json:"conversations"`
	UnreadConversations []string           `json:"unreadConversations"`
}
