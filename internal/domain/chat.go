package domain

// WebSocket event types from client.
const (
	EventChatNew    = "chat:new"
	EventChatTyping = "chat:typing"
)

// WebSocket event types to client.
const (
	EventChatMessage = "chat:message"
)

// BaseEvent is the base structure for all WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// MessageProfile is the sender identity attached to a chat message.
type MessageProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// WireMessage is a chat message on the wire. On inbound events the id and
// createdAt are client display hints only; the persisted message the hub
// relays always carries the store-assigned values.
type WireMessage struct {
	ID        string         `json:"id"`
	CreatedAt string         `json:"createdAt"`
	Text      string         `json:"text"`
	User      MessageProfile `json:"user"`
}

// NewMessageEvent is the inbound chat:new payload.
type NewMessageEvent struct {
	Type       string `json:"type"`
	NewMessage struct {
		Message        WireMessage `json:"message"`
		To             string      `json:"to"`
		ConversationID string      `json:"conversationId"`
	} `json:"newMessage"`
}

// TypingEvent is the inbound chat:typing payload.
type TypingEvent struct {
	Type     string `json:"type"`
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

// OutgoingMessage is the envelope relayed to the recipient's connections.
type OutgoingMessage struct {
	Message        WireMessage    `json:"message"`
	From           MessageProfile `json:"from"`
	ConversationID string         `json:"conversationId"`
}

// ChatMessageEvent is the outbound chat:message payload.
type ChatMessageEvent struct {
	Type    string          `json:"type"`
	Message OutgoingMessage `json:"message"`
}

// ChatTypingEvent is the outbound chat:typing payload.
type ChatTypingEvent struct {
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}
