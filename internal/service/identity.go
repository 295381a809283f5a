package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what an identity provider vouches for after verification.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityVerifier checks an externally issued assertion for the given audience.
// Rejected assertions wrap ErrUnauthorizedCredential; any other error means the
// verifier itself failed.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion, audience string) (*Identity, error)
}

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type googleIDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleVerifier verifies Google Sign-In ID tokens (RS256) against Google's
// published signing keys.
type GoogleVerifier struct {
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	now     func() time.Time
}

// NewGoogleVerifier fetches the JWKS once and keeps it fresh in the background
// until ctx is done or Close is called.
func NewGoogleVerifier(ctx context.Context, jwksURL string) (*GoogleVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		Client:            &http.Client{Timeout: 10 * time.Second},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Warn("google jwks refresh failed", "error", err, "url", jwksURL)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google signing keys: %w", err)
	}

	return &GoogleVerifier{
		keyfunc: jwks.Keyfunc,
		jwks:    jwks,
		now:     time.Now,
	}, nil
}

// NewGoogleVerifierWithKeyfunc uses a caller-supplied key lookup.
func NewGoogleVerifierWithKeyfunc(kf jwt.Keyfunc) *GoogleVerifier {
	return &GoogleVerifier{
		keyfunc: kf,
		now:     time.Now,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, assertion, audience string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := &googleIDClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims, v.keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Minute),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorizedCredential, err)
	}

	if !slices.Contains(googleIssuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrUnauthorizedCredential, claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: token is missing subject or email", ErrUnauthorizedCredential)
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified by google", ErrUnauthorizedCredential)
	}

	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

func (v *GoogleVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// credentialFailureReason separates stale assertions from malformed ones for logs.
func credentialFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "stale"
	default:
		return "invalid"
	}
}
