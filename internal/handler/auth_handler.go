package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/middleware"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/service"
	"github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/response"
)

// AuthHandler handles account and session HTTP requests.
type AuthHandler struct {
	authService    service.AuthService
	authMiddleware *middleware.AuthMiddleware
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, authMiddleware *middleware.AuthMiddleware) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *AuthHandler) RegisterRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.SignUp)
		auth.POST("/verify", h.VerifyEmail)
		auth.POST("/sign-in", h.SignIn)
		auth.POST("/refresh-token", h.RefreshToken)
		auth.POST("/forget-pass", h.ForgotPassword)
		auth.POST("/verify-pass-reset-token", h.VerifyResetToken)
		auth.POST("/reset-pass", h.ResetPassword)

		protected := auth.Group("", h.authMiddleware.RequireAuth())
		{
			protected.GET("/profile", h.Me)
			protected.GET("/profile/:id", h.PublicProfile)
			protected.GET("/verify", h.ResendVerification)
			protected.POST("/sign-out", h.SignOut)
			protected.PATCH("/update-profile", h.UpdateProfile)
			protected.PATCH("/update-avatar", h.UpdateAvatar)
		}
	}
}

// SignUp creates an account and mails a verification link.
func (h *AuthHandler) SignUp(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid sign-up request")
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.authService.SignUp(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			response.BadRequest(c, "email already in use")
			return
		}
		l.Error().Err(err).Msg("sign-up failed")
		response.InternalError(c, "failed to sign up")
		return
	}

	response.Created(c, gin.H{"profile": profile})
}

// VerifyEmail consumes a verification token and activates the account.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.VerifyEmail(ctx, req.ID, req.Token); err != nil {
		h.writeTokenError(c, err, "verify email")
		return
	}

	response.Message(c, "email verified")
}

// ResendVerification issues a fresh verification link to the signed-in user.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	ctx := c.Request.Context()
	profile := middleware.GetProfile(c)

	if profile.Verified {
		response.BadRequest(c, "account is already verified")
		return
	}

	if err := h.authService.RequestEmailVerification(ctx, profile); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("resend verification failed")
		response.InternalError(c, "failed to send verification mail")
		return
	}

	response.Message(c, "verification link sent to your email")
}

// SignIn authenticates credentials and issues a token pair.
func (h *AuthHandler) SignIn(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid sign-in request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.SignIn(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.BadRequest(c, "email or password is incorrect")
		case errors.Is(err, service.ErrEmailNotVerified):
			response.BadRequest(c, "please verify your email first")
		default:
			l.Error().Err(err).Msg("sign-in failed")
			response.InternalError(c, "failed to sign in")
		}
		return
	}

	response.OK(c, result)
}

// RefreshToken rotates a refresh token into a fresh pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tokens, err := h.authService.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, repository.ErrUserNotFound) {
			response.Unauthorized(c, "unauthorized request")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("token refresh failed")
		response.InternalError(c, "failed to refresh tokens")
		return
	}

	response.OK(c, gin.H{"tokens": tokens})
}

// SignOut revokes the presented refresh token.
func (h *AuthHandler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.SignOut(ctx, middleware.GetUserID(c), req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrInvalidID) {
			response.Unauthorized(c, "unauthorized request")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("sign-out failed")
		response.InternalError(c, "failed to sign out")
		return
	}

	response.Message(c, "signed out")
}

// ForgotPassword mails a password reset link.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrInvalidReference) {
			response.NotFound(c, "account not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("forgot-password failed")
		response.InternalError(c, "failed to send reset mail")
		return
	}

	response.Message(c, "reset link sent to your email")
}

// VerifyResetToken checks a reset token without consuming it, so the
// client can show the reset form only for valid links.
func (h *AuthHandler) VerifyResetToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.VerifyResetToken(ctx, req.ID, req.Token); err != nil {
		h.writeTokenError(c, err, "verify reset token")
		return
	}

	response.OK(c, gin.H{"valid": true})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ResetPassword(ctx, req.ID, req.Token, req.Password); err != nil {
		h.writeTokenError(c, err, "reset password")
		return
	}

	response.Message(c, "password reset successfully")
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	response.OK(c, gin.H{"profile": middleware.GetProfile(c)})
}

// PublicProfile returns another user's visible identity.
func (h *AuthHandler) PublicProfile(c *gin.Context) {
	ctx := c.Request.Context()

	profile, err := h.authService.PublicProfile(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid user id")
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("public profile lookup failed")
			response.InternalError(c, "failed to load profile")
		}
		return
	}

	response.OK(c, gin.H{"profile": profile})
}

// UpdateProfile changes the user's display name.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.UpdateProfile(ctx, middleware.GetUserID(c), req.Name); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("profile update failed")
		response.InternalError(c, "failed to update profile")
		return
	}

	response.Message(c, "profile updated")
}

// UpdateAvatar replaces the user's avatar image.
func (h *AuthHandler) UpdateAvatar(c *gin.Context) {
	ctx := c.Request.Context()

	file, err := c.FormFile("avatar")
	if err != nil {
		response.BadRequest(c, "avatar file is required")
		return
	}

	avatar, err := h.authService.UpdateAvatar(ctx, middleware.GetUserID(c), file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) {
			response.BadRequest(c, "file must be an image")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("avatar update failed")
		response.InternalError(c, "failed to update avatar")
		return
	}

	response.OK(c, gin.H{"avatar": avatar})
}

func (h *AuthHandler) writeTokenError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, service.ErrInvalidID):
		response.BadRequest(c, "invalid user id")
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, "invalid or expired token")
	case errors.Is(err, repository.ErrUserNotFound):
		response.NotFound(c, "user not found")
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Str("op", op).Msg("token operation failed")
		response.InternalError(c, "something went wrong")
	}
}
