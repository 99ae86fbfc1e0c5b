package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrProductNotFound      = errors.New("product not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTokenNotFound        = errors.New("token not found")
)

// UserRepository persists user account documents.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetVerified(ctx context.Context, id primitive.ObjectID) error
	UpdateName(ctx context.Context, id primitive.ObjectID, name string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hashed string) error
	UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatar *domain.Avatar) error
	// AddRefreshToken appends a refresh token to the user's active set.
	AddRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	// RemoveRefreshToken removes one refresh token; it reports whether the
	// token was present.
	RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error)
	// HasRefreshToken reports whether the token is in the user's active set.
	HasRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error)
	// ClearRefreshTokens revokes every refresh token for the user.
	ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error
}

// ProductRepository persists product listing documents.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	// Update applies the non-zero input fields to a product owned by owner.
	Update(ctx context.Context, id, owner primitive.ObjectID, in domain.ProductInput) (*domain.Product, error)
	// AddImages appends images and optionally sets the thumbnail.
	AddImages(ctx context.Context, id, owner primitive.ObjectID, images []domain.ProductImage, thumbnail string) (*domain.Product, error)
	// RemoveImage pulls one image by storage key from a product owned by owner.
	RemoveImage(ctx context.Context, id, owner primitive.ObjectID, imageID string) (*domain.Product, error)
	SetThumbnail(ctx context.Context, id primitive.ObjectID, thumbnail string) error
	// Delete removes a product owned by owner and returns the deleted document.
	Delete(ctx context.Context, id, owner primitive.ObjectID) (*domain.Product, error)
	ListByCategory(ctx context.Context, category string, page, limit int64) ([]domain.Product, error)
	ListLatest(ctx context.Context, page, limit int64) ([]domain.Product, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID, page, limit int64) ([]domain.Product, error)
	// Search matches product names case-insensitively against the query.
	Search(ctx context.Context, query string) ([]domain.Product, error)
}

// ConversationRepository is the conversation store: one document per
// unordered user pair, embedding the append-only message history.
type ConversationRepository interface {
	// GetOrCreate finds or atomically inserts the conversation for the
	// pair. Concurrent calls for the same pair yield the same document.
	GetOrCreate(ctx context.Context, a, b primitive.ObjectID) (*domain.Conversation, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error)
	// AppendMessage appends a message with a store-assigned id and
	// timestamp, advancing the conversation's updated_at. The sender must
	// be a participant; ErrConversationNotFound otherwise.
	AppendMessage(ctx context.Context, id, sender primitive.ObjectID, text string) (*domain.Message, error)
	// ListForUser returns conversations the user participates in,
	// most-recently-updated first.
	ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.Conversation, error)
	// MarkViewed flags every message not sent by viewer as viewed and
	// returns the number of messages updated. ErrConversationNotFound is
	// returned only when the conversation does not exist; zero updates on
	// an existing conversation is not an error.
	MarkViewed(ctx context.Context, id, viewer primitive.ObjectID) (int64, error)
}

// TokenStore holds hashed one-time tokens (email verification, password
// reset) with a bounded lifetime.
type TokenStore interface {
	// Save stores the hashed token for the user, replacing any previous one.
	Save(ctx context.Context, kind, userID, hashedToken string) error
	// Get returns the stored hash, or ErrTokenNotFound.
	Get(ctx context.Context, kind, userID string) (string, error)
	Delete(ctx context.Context, kind, userID string) error
}

// Token kinds for TokenStore.
const (
	TokenKindVerify = "verify"
	TokenKindReset  = "reset"
)
