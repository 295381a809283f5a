package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/templui/docclinic/internal/model"
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionService issues and verifies HS256 session tokens. There is no
// revocation list; a token is valid until it expires.
type SessionService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewSessionService(secret string, expiry time.Duration) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (s *SessionService) Issue(user *model.User) (string, error) {
	now := s.now()
	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// Verify returns the claims of a valid token. Failures are ErrMissingCredential,
// ErrCredentialExpired or ErrInvalidCredential.
func (s *SessionService) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingCredential
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrCredentialExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no user id", ErrInvalidCredential)
	}
	return claims, nil
}

// ExpiresIn is the validity window of newly issued tokens.
func (s *SessionService) ExpiresIn() time.Duration {
	return s.expiry
}
