package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Type   string `json:"type"`
}

// Manager signs and validates access/refresh tokens with an HMAC secret.
type Manager struct {
	secret         []byte
	accessDuration time.Duration
	issuer         string
}

// NewManager creates a new token manager.
func NewManager(secret string, accessDuration time.Duration, issuer string) *Manager {
	return &Manager{
		secret:         []byte(secret),
		accessDuration: accessDuration,
		issuer:         issuer,
	}
}

// GenerateAccessToken creates a short-lived access token.
func (m *Manager) GenerateAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
		},
		UserID: userID,
		Type:   TypeAccess,
	}
	return m.sign(claims)
}

// GenerateRefreshToken creates a refresh token. Refresh tokens carry no
// expiry; they stay valid until removed from the user's persisted token
// list on sign-out or rotation.
func (m *Manager) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   m.issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.New().String(), // distinguish tokens issued in the same second
		},
		UserID: userID,
		Type:   TypeRefresh,
	}
	return m.sign(claims)
}

// GenerateTokenPair creates an access and a refresh token.
func (m *Manager) GenerateTokenPair(userID string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.GenerateAccessToken(userID)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = m.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// Validate parses a token and returns its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccess parses a token and requires it to be an access token.
func (m *Manager) ValidateAccess(tokenString string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh parses a token and requires it to be a refresh token.
func (m *Manager) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) sign(claims *Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}
