package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/pkg/token"
)

type authFixture struct {
	svc    AuthService
	users  *fakeUserRepo
	tokens *fakeTokenStore
	mailer *fakeMailer
}

func newAuthFixture(t *testing.T, users ...*domain.User) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  newFakeUserRepo(users...),
		tokens: newFakeTokenStore(),
		mailer: &fakeMailer{},
	}
	manager := token.NewManager("test-secret", 15*time.Minute, "test")
	f.svc = NewAuthService(f.users, f.tokens, manager, f.mailer, newFakeStorage(), "http://app.test")
	return f
}

// lastMailToken pulls the one-time token out of the most recent mail link.
func (f *authFixture) lastMailToken(t *testing.T) (id, tok string) {
	t.Helper()
	u, err := url.Parse(f.mailer.lastLink)
	require.NoError(t, err)
	return u.Query().Get("id"), u.Query().Get("token")
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unverified account and mails a link", func(t *testing.T) {
		f := newAuthFixture(t)

		profile, err := f.svc.SignUp(ctx, &domain.SignUpRequest{
			Name:     "Alice",
			Email:    "Alice@Test.Local",
			Password: "s3cret-pass",
		})
		require.NoError(t, err)

		assert.Equal(t, "alice@test.local", profile.Email)
		assert.False(t, profile.Verified)
		assert.Equal(t, []string{"alice@test.local"}, f.mailer.verifications)
		assert.Contains(t, f.mailer.lastLink, "http://app.test/verify.html?id=")
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		f := newAuthFixture(t, &domain.User{Email: "alice@test.local"})

		_, err := f.svc.SignUp(ctx, &domain.SignUpRequest{
			Name:     "Other Alice",
			Email:    "alice@test.local",
			Password: "s3cret-pass",
		})
		assert.ErrorIs(t, err, repository.ErrEmailExists)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("mailed token verifies the account once", func(t *testing.T) {
		f := newAuthFixture(t)
		profile, err := f.svc.SignUp(ctx, &domain.SignUpRequest{
			Name: "Alice", Email: "alice@test.local", Password: "s3cret-pass",
		})
		require.NoError(t, err)

		id, tok := f.lastMailToken(t)
		assert.Equal(t, profile.ID, id)
		require.NoError(t, f.svc.VerifyEmail(ctx, id, tok))

		loaded, err := f.users.GetByEmail(ctx, "alice@test.local")
		require.NoError(t, err)
		assert.True(t, loaded.Verified)

		// Consumed: the same token no longer works.
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, id, tok), ErrInvalidToken)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.SignUp(ctx, &domain.SignUpRequest{
			Name: "Alice", Email: "alice@test.local", Password: "s3cret-pass",
		})
		require.NoError(t, err)

		id, _ := f.lastMailToken(t)
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, id, "forged"), ErrInvalidToken)
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	verified := func(t *testing.T) *domain.User {
		return &domain.User{
			Name:     "Alice",
			Email:    "alice@test.local",
			Password: hashPassword(t, "s3cret-pass"),
			Verified: true,
		}
	}

	t.Run("issues a stored token pair", func(t *testing.T) {
		user := verified(t)
		f := newAuthFixture(t, user)

		resp, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Tokens.AccessToken)
		assert.NotEmpty(t, resp.Tokens.RefreshToken)

		ok, err := f.users.HasRefreshToken(ctx, user.ID, resp.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unverified account is refused", func(t *testing.T) {
		user := verified(t)
		user.Verified = false
		f := newAuthFixture(t, user)

		_, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("wrong password is refused", func(t *testing.T) {
		f := newAuthFixture(t, verified(t))

		_, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email is refused", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "nobody@test.local", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()

	signIn := func(t *testing.T, f *authFixture) *domain.TokenPair {
		t.Helper()
		resp, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "s3cret-pass"})
		require.NoError(t, err)
		return &resp.Tokens
	}

	newFixture := func(t *testing.T) (*authFixture, *domain.User) {
		user := &domain.User{
			Name:     "Alice",
			Email:    "alice@test.local",
			Password: hashPassword(t, "s3cret-pass"),
			Verified: true,
		}
		return newAuthFixture(t, user), user
	}

	t.Run("rotates the refresh token", func(t *testing.T) {
		f, user := newFixture(t)
		pair := signIn(t, f)

		rotated, err := f.svc.RefreshTokens(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		old, err := f.users.HasRefreshToken(ctx, user.ID, pair.RefreshToken)
		require.NoError(t, err)
		assert.False(t, old, "rotated-out token must be revoked")

		fresh, err := f.users.HasRefreshToken(ctx, user.ID, rotated.RefreshToken)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("reuse of a rotated token revokes every session", func(t *testing.T) {
		f, user := newFixture(t)
		pair := signIn(t, f)
		other := signIn(t, f)

		_, err := f.svc.RefreshTokens(ctx, pair.RefreshToken)
		require.NoError(t, err)

		// Replay of the consumed token: treated as theft.
		_, err = f.svc.RefreshTokens(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)

		remaining, err := f.users.HasRefreshToken(ctx, user.ID, other.RefreshToken)
		require.NoError(t, err)
		assert.False(t, remaining, "all sessions must be revoked on token reuse")
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		f, _ := newFixture(t)
		_, err := f.svc.RefreshTokens(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{
		Name:     "Alice",
		Email:    "alice@test.local",
		Password: hashPassword(t, "s3cret-pass"),
		Verified: true,
	}
	f := newAuthFixture(t, user)

	resp, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, user.ID.Hex(), resp.Tokens.RefreshToken))

	ok, err := f.users.HasRefreshToken(ctx, user.ID, resp.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)

	// Second sign-out with the same token has nothing to revoke.
	assert.ErrorIs(t, f.svc.SignOut(ctx, user.ID.Hex(), resp.Tokens.RefreshToken), ErrInvalidToken)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	user := &domain.User{
		Name:     "Alice",
		Email:    "alice@test.local",
		Password: hashPassword(t, "old-password"),
		Verified: true,
	}
	f := newAuthFixture(t, user)

	require.NoError(t, f.svc.ForgotPassword(ctx, "alice@test.local"))
	assert.Equal(t, []string{"alice@test.local"}, f.mailer.resets)

	id, tok := f.lastMailToken(t)
	require.NoError(t, f.svc.VerifyResetToken(ctx, id, tok))
	require.NoError(t, f.svc.ResetPassword(ctx, id, tok, "new-password"))

	assert.Equal(t, []string{"alice@test.local"}, f.mailer.confirmations)

	_, err := f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "old-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.SignIn(ctx, &domain.SignInRequest{Email: "alice@test.local", Password: "new-password"})
	assert.NoError(t, err)

	t.Run("unknown email is reported", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "nobody@test.local"), ErrInvalidReference)
	})

	t.Run("consumed token no longer resets", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.ResetPassword(ctx, id, tok, "again"), ErrInvalidToken)
	})
}
