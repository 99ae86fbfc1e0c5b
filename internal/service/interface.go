package service

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/marcwilliam910/scm/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidReference   = errors.New("referenced entity does not exist")
	ErrInvalidImage       = errors.New("invalid file type, must be an image")
	ErrTooManyImages      = errors.New("image limit exceeded")
)

// AuthService implements account lifecycle: sign-up with email
// verification, sign-in with access/refresh pairs, token rotation,
// password reset and profile management.
type AuthService interface {
	SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.Profile, error)
	VerifyEmail(ctx context.Context, userID, tok string) error
	RequestEmailVerification(ctx context.Context, profile domain.Profile) error
	SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.SignInResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	SignOut(ctx context.Context, userID, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, userID, tok string) error
	ResetPassword(ctx context.Context, userID, tok, password string) error
	UpdateProfile(ctx context.Context, userID, name string) error
	UpdateAvatar(ctx context.Context, userID string, file *multipart.FileHeader) (*domain.Avatar, error)
	PublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error)
}

// ProductService implements product listing CRUD with image uploads.
type ProductService interface {
	Create(ctx context.Context, seller domain.Profile, in domain.ProductInput, images []*multipart.FileHeader) (*domain.ProductView, error)
	Update(ctx context.Context, sellerID, productID string, in domain.ProductInput, images []*multipart.FileHeader) (*domain.Product, error)
	Delete(ctx context.Context, sellerID, productID string) error
	DeleteImage(ctx context.Context, sellerID, productID, imageID string) (*domain.Product, error)
	Detail(ctx context.Context, productID string) (*domain.ProductView, error)
	ByCategory(ctx context.Context, category string, page, limit int64) ([]domain.ProductView, error)
	Latest(ctx context.Context, page, limit int64) ([]domain.ProductView, error)
	Listings(ctx context.Context, seller domain.Profile, page, limit int64) ([]domain.ProductView, error)
	Search(ctx context.Context, query string) ([]domain.ProductView, error)
}

// ConversationService derives client-facing conversation views and the
// unread-state computation from the conversation store.
type ConversationService interface {
	// GetOrCreateConversation establishes or locates the conversation with
	// a peer and returns its id only; a handshake before further interaction.
	GetOrCreateConversation(ctx context.Context, selfID, peerID string) (string, error)
	ListConversations(ctx context.Context, selfID string) (*domain.ConversationListResponse, error)
	GetHistory(ctx context.Context, conversationID, selfID string) (*domain.ConversationView, error)
	// MarkAsViewed flags the peer's messages as viewed. A conversation with
	// nothing unread is a no-op, not an error.
	MarkAsViewed(ctx context.Context, conversationID, selfID string) error
}

// ChatService handles realtime hub events: persist-then-relay for new
// messages, verbatim relay for typing indicators.
type ChatService interface {
	HandleNewMessage(ctx context.Context, senderID string, evt *domain.NewMessageEvent) error
	HandleTyping(ctx context.Context, senderID string, evt *domain.TypingEvent) error
}
