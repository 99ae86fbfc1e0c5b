package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/pkg/token"
)

// stubUsers serves a single user by id. Unused repository methods are
// inherited from the embedded nil interface and must not be called.
type stubUsers struct {
	repository.UserRepository
	user *domain.User
}

func (s *stubUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, repository.ErrUserNotFound
}

func setupRouter(t *testing.T, user *domain.User) (*gin.Engine, *token.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := token.NewManager("test-secret", 15*time.Minute, "test")
	m := NewAuthMiddleware(manager, &stubUsers{user: user})

	r := gin.New()
	r.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": GetUserID(c), "name": GetProfile(c).Name})
	})
	return r, manager
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	user := &domain.User{
		ID:       primitive.NewObjectID(),
		Name:     "Alice",
		Email:    "alice@test.local",
		Verified: true,
	}

	t.Run("valid bearer token passes with profile attached", func(t *testing.T) {
		r, manager := setupRouter(t, user)
		tok, err := manager.GenerateAccessToken(user.ID.Hex())
		require.NoError(t, err)

		w := doRequest(r, "Bearer "+tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID.Hex())
		assert.Contains(t, w.Body.String(), "Alice")
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		r, _ := setupRouter(t, user)
		assert.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		r, _ := setupRouter(t, user)
		assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Basic abc").Code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		r, _ := setupRouter(t, user)
		assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer junk").Code)
	})

	t.Run("refresh token cannot authenticate requests", func(t *testing.T) {
		r, manager := setupRouter(t, user)
		refresh, err := manager.GenerateRefreshToken(user.ID.Hex())
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer "+refresh).Code)
	})

	t.Run("token for a deleted user is rejected", func(t *testing.T) {
		r, manager := setupRouter(t, nil)
		tok, err := manager.GenerateAccessToken(primitive.NewObjectID().Hex())
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer "+tok).Code)
	})
}
