package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/storage"
	"github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/token"
)

// Mailer sends transactional mail. Failures are logged, not surfaced as
// request errors, except where the mail is the whole point of the call.
type Mailer interface {
	SendEmailVerification(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
	SendPasswordResetSuccess(ctx context.Context, email string) error
}

type authService struct {
	users   repository.UserRepository
	tokens  repository.TokenStore
	manager *token.Manager
	mailer  Mailer
	storage storage.Storage
	baseURL string
}

// NewAuthService creates a new auth service. baseURL prefixes the links
// embedded in verification and reset mails.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenStore,
	manager *token.Manager,
	mailer Mailer,
	st storage.Storage,
	baseURL string,
) AuthService {
	return &authService{
		users:   users,
		tokens:  tokens,
		manager: manager,
		mailer:  mailer,
		storage: st,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *authService) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.Profile, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Password: string(hashed),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, user); err != nil {
		return nil, err
	}

	profile := user.ToProfile()
	return &profile, nil
}

func (s *authService) VerifyEmail(ctx context.Context, userID, tok string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidID
	}

	if err := s.compareToken(ctx, repository.TokenKindVerify, userID, tok); err != nil {
		return err
	}

	if err := s.users.SetVerified(ctx, id); err != nil {
		return err
	}
	return s.tokens.Delete(ctx, repository.TokenKindVerify, userID)
}

func (s *authService) RequestEmailVerification(ctx context.Context, profile domain.Profile) error {
	id, err := primitive.ObjectIDFromHex(profile.ID)
	if err != nil {
		return ErrInvalidID
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.issueVerification(ctx, user)
}

func (s *authService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.SignInResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Verified {
		return nil, ErrEmailNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := s.manager.GenerateTokenPair(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	if err := s.users.AddRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}

	return &domain.SignInResponse{
		Message: "User signed in",
		Profile: user.ToProfile(),
		Tokens:  domain.TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

// RefreshTokens rotates a refresh token. A syntactically valid token that
// is no longer in the user's active set is treated as theft: every token
// for that user is revoked.
func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.manager.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ok, err := s.users.HasRefreshToken(ctx, id, refreshToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.users.ClearRefreshTokens(ctx, id); err != nil {
			log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, claims.UserID).Msg("failed to revoke tokens")
		}
		return nil, ErrInvalidToken
	}

	access, refresh, err := s.manager.GenerateTokenPair(claims.UserID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.RemoveRefreshToken(ctx, id, refreshToken); err != nil {
		return nil, err
	}
	if err := s.users.AddRefreshToken(ctx, id, refresh); err != nil {
		return nil, err
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) SignOut(ctx context.Context, userID, refreshToken string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidID
	}

	removed, err := s.users.RemoveRefreshToken(ctx, id, refreshToken)
	if err != nil {
		return err
	}
	if !removed {
		return ErrInvalidToken
	}
	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidReference
		}
		return err
	}

	tok, hashed, err := newOneTimeToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Save(ctx, repository.TokenKindReset, user.ID.Hex(), hashed); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/forgot-password.html?id=%s&token=%s", s.baseURL, user.ID.Hex(), tok)
	return s.mailer.SendPasswordReset(ctx, user.Email, link)
}

func (s *authService) VerifyResetToken(ctx context.Context, userID, tok string) error {
	return s.compareToken(ctx, repository.TokenKindReset, userID, tok)
}

func (s *authService) ResetPassword(ctx context.Context, userID, tok, password string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidID
	}

	if err := s.compareToken(ctx, repository.TokenKindReset, userID, tok); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, string(hashed)); err != nil {
		return err
	}

	if err := s.tokens.Delete(ctx, repository.TokenKindReset, userID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to delete reset token")
	}
	if err := s.mailer.SendPasswordResetSuccess(ctx, user.Email); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to send reset confirmation mail")
	}
	return nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID, name string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidID
	}
	return s.users.UpdateName(ctx, id, strings.TrimSpace(name))
}

func (s *authService) UpdateAvatar(ctx context.Context, userID string, file *multipart.FileHeader) (*domain.Avatar, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidID
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidImage
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	key := "avatars/" + uuid.New().String()
	obj, err := s.storage.Upload(ctx, key, src, file.Size, contentType)
	if err != nil {
		return nil, err
	}

	// Replace, then clean up the previous object.
	avatar := &domain.Avatar{URL: obj.URL, ID: obj.Key}
	if err := s.users.UpdateAvatar(ctx, id, avatar); err != nil {
		return nil, err
	}
	if user.Avatar != nil && user.Avatar.ID != "" {
		if err := s.storage.Delete(ctx, user.Avatar.ID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", user.Avatar.ID).Msg("failed to delete old avatar")
		}
	}

	return avatar, nil
}

func (s *authService) PublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidID
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.ToPublicProfile()
	return &profile, nil
}

// issueVerification stores a fresh one-time token and mails its link.
func (s *authService) issueVerification(ctx context.Context, user *domain.User) error {
	tok, hashed, err := newOneTimeToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Save(ctx, repository.TokenKindVerify, user.ID.Hex(), hashed); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/verify.html?id=%s&token=%s", s.baseURL, user.ID.Hex(), tok)
	return s.mailer.SendEmailVerification(ctx, user.Email, link)
}

// compareToken checks a presented one-time token against its stored hash.
func (s *authService) compareToken(ctx context.Context, kind, userID, tok string) error {
	hashed, err := s.tokens.Get(ctx, kind, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(tok)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// newOneTimeToken returns a random token and its bcrypt hash; only the
// hash is ever stored.
func newOneTimeToken() (tok, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	tok = hex.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(tok), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return tok, string(h), nil
}
