package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/response"
	"github.com/marcwilliam910/scm/pkg/token"
)

const (
	UserIDKey     = "user_id"
	ProfileKey    = "profile"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthMiddleware validates access tokens and resolves the bearer's
// profile from the user store.
type AuthMiddleware struct {
	manager *token.Manager
	users   repository.UserRepository
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(manager *token.Manager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{manager: manager, users: users}
}

// RequireAuth returns a Gin middleware that rejects requests without a
// valid access token for an existing user.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		raw := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := m.manager.ValidateAccess(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpiredToken) {
				response.Unauthorized(c, "token expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		user, err := m.users.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				response.Unauthorized(c, "user not found")
			} else {
				log.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to load user")
				response.InternalError(c, "something went wrong")
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, user.ID.Hex())
		c.Set(ProfileKey, user.ToProfile())
		c.Next()
	}
}

// GetUserID extracts the authenticated user id from Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetProfile extracts the authenticated user's profile from Gin context.
func GetProfile(c *gin.Context) domain.Profile {
	if p, exists := c.Get(ProfileKey); exists {
		return p.(domain.Profile)
	}
	return domain.Profile{}
}
