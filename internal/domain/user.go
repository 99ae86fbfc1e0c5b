package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Avatar identifies a stored profile image by its public URL and storage key.
type Avatar struct {
	URL string `bson:"url" json:"url"`
	ID  string `bson:"id" json:"id"`
}

// User represents a user account document.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Verified  bool               `bson:"verified" json:"verified"`
	Tokens    []string           `bson:"tokens,omitempty" json:"-"`
	Avatar    *Avatar            `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"-"`
	UpdatedAt time.Time          `bson:"updated_at" json:"-"`
}

// Profile is the authenticated user's view of their own account.
type Profile struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Verified bool    `json:"verified"`
	Avatar   *Avatar `json:"avatar,omitempty"`
}

// PublicProfile is another user's visible identity.
type PublicProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ToProfile converts a User to its owner-facing profile.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		Verified: u.Verified,
		Avatar:   u.Avatar,
	}
}

// ToPublic converts an owner-facing profile to its public identity.
func (p Profile) ToPublic() PublicProfile {
	pub := PublicProfile{
		ID:   p.ID,
		Name: p.Name,
	}
	if p.Avatar != nil {
		pub.Avatar = p.Avatar.URL
	}
	return pub
}

// ToPublicProfile converts a User to its public identity.
func (u *User) ToPublicProfile() PublicProfile {
	p := PublicProfile{
		ID:   u.ID.Hex(),
		Name: u.Name,
	}
	if u.Avatar != nil {
		p.Avatar = u.Avatar.URL
	}
	return p
}

// SignUpRequest is the sign-up request body.
type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// SignInRequest is the sign-in request body.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyTokenRequest carries a user id and a one-time token.
type VerifyTokenRequest struct {
	ID    string `json:"id" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// ResetPasswordRequest carries a reset token and the new password.
type ResetPasswordRequest struct {
	ID       string `json:"id" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// RefreshTokenRequest carries a refresh token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UpdateProfileRequest is the update-profile request body.
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

// ForgotPasswordRequest asks for a password reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TokenPair bundles a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignInResponse is returned on successful sign-in.
type SignInResponse struct {
	Message string    `json:"message"`
	Profile Profile   `json:"profile"`
	Tokens  TokenPair `json:"tokens"`
}
