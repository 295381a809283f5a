package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/docclinic/internal/model"
	"github.com/templui/docclinic/internal/repository"
	"github.com/templui/docclinic/internal/validation"
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrUnauthorizedCredential = errors.New("invalid or expired google credential")
	ErrMissingCredential      = errors.New("no token provided")
	ErrInvalidCredential      = errors.New("invalid token")
	ErrCredentialExpired      = errors.New("token expired")
)

// SignInOutcome records what sign-in did to the user record.
type SignInOutcome string

const (
	SignInCreated   SignInOutcome = "created"
	SignInLinked    SignInOutcome = "linked"
	SignInUnchanged SignInOutcome = "unchanged"
)

type SignInResult struct {
	User    *model.PublicUser
	Token   string
	Outcome SignInOutcome
}

// ProfileInput holds optional profile fields. Empty means "not provided";
// there is no way to clear a field.
type ProfileInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type AuthService struct {
	userRepository repository.UserRepository
	verifier       IdentityVerifier
	sessions       *SessionService
	googleClientID string
	timeout        time.Duration
	now            func() time.Time
	newID          func() string
}

func NewAuthService(
	userRepository repository.UserRepository,
	verifier IdentityVerifier,
	sessions *SessionService,
	googleClientID string,
	timeout time.Duration,
) *AuthService {
	return &AuthService{
		userRepository: userRepository,
		verifier:       verifier,
		sessions:       sessions,
		googleClientID: googleClientID,
		timeout:        timeout,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

func (s *AuthService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// SignInWithGoogle verifies a Google ID token, creates or links the matching
// user and issues a session token.
func (s *AuthService) SignInWithGoogle(ctx context.Context, credential string) (*SignInResult, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: google credential is required", ErrInvalidRequest)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	identity, err := s.verifier.Verify(ctx, credential, s.googleClientID)
	if err != nil {
		if errors.Is(err, ErrUnauthorizedCredential) {
			slog.Warn("google credential rejected", "reason", credentialFailureReason(err), "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("failed to verify google credential: %w", err)
	}

	email, err := validation.NormalizeEmail(identity.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorizedCredential, err)
	}

	user, outcome, err := s.resolveGoogleUser(ctx, identity, email)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user signed in with google", "user_id", user.ID, "email", user.Email, "outcome", outcome)
	return &SignInResult{
		User:    user.Public(),
		Token:   token,
		Outcome: outcome,
	}, nil
}

func (s *AuthService) resolveGoogleUser(ctx context.Context, identity *Identity, email string) (*model.User, SignInOutcome, error) {
	user, err := s.userRepository.ByEmail(ctx, email)
	if err == nil {
		return s.linkGoogleIdentity(ctx, user, identity)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to lookup user: %w", err)
	}

	subject := identity.Subject
	user = &model.User{
		ID:                 s.newID(),
		Name:               identity.Name,
		Email:              email,
		Phone:              "",
		Picture:            identity.Picture,
		IdentityProviderID: &subject,
		CreatedAt:          s.now().UTC(),
	}

	err = s.userRepository.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// A concurrent sign-up for the same email won; continue with its record
		existing, lookupErr := s.userRepository.ByEmail(ctx, email)
		if lookupErr != nil {
			return nil, "", fmt.Errorf("failed to reload user after conflict: %w", lookupErr)
		}
		return s.linkGoogleIdentity(ctx, existing, identity)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new google user created", "user_id", user.ID, "email", email)
	return user, SignInCreated, nil
}

// linkGoogleIdentity migrates a pre-existing account to Google sign-in.
// Already linked accounts are returned untouched.
func (s *AuthService) linkGoogleIdentity(ctx context.Context, user *model.User, identity *Identity) (*model.User, SignInOutcome, error) {
	if user.IsLinked() {
		return user, SignInUnchanged, nil
	}

	hadPassword := user.HasPassword()
	user.LinkIdentity(identity.Subject, identity.Picture)

	err := s.userRepository.Update(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to link google account: %w", err)
	}

	slog.Info("existing user linked to google", "user_id", user.ID, "password_removed", hadPassword)
	return user, SignInLinked, nil
}

// Authenticate verifies a bearer session token.
func (s *AuthService) Authenticate(token string) (*SessionClaims, error) {
	return s.sessions.Verify(token)
}

// Me returns the public view of the session's user.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.PublicUser, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Public(), nil
}

// UpdateProfile patches the non-empty fields of input onto the user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*model.PublicUser, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Blank fields are not provided; provided values are stored as sent.
	if strings.TrimSpace(input.Name) != "" {
		err = validation.ValidateName(input.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		user.Name = input.Name
	}

	if strings.TrimSpace(input.Phone) != "" {
		err = validation.ValidatePhoneLength(input.Phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		user.Phone = input.Phone
	}

	err = s.userRepository.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", "user_id", user.ID)
	return user.Public(), nil
}
