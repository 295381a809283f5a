package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/templui/docclinic/internal/model"
	"github.com/templui/docclinic/internal/repository"
)

type fakeVerifier struct {
	identities map[string]*Identity
	err        error
	calls      int
}

func (f *fakeVerifier) Verify(ctx context.Context, assertion, audience string) (*Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if audience != testClientID {
		return nil, fmt.Errorf("%w: wrong audience", ErrUnauthorizedCredential)
	}
	identity, ok := f.identities[assertion]
	if !ok {
		return nil, fmt.Errorf("%w: unknown assertion", ErrUnauthorizedCredential)
	}
	copied := *identity
	return &copied, nil
}

type authFixture struct {
	service  *AuthService
	repo     repository.UserRepository
	verifier *fakeVerifier
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	repo, err := repository.NewJSONUserRepository(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := &fakeVerifier{identities: map[string]*Identity{
		"alice-token": {
			Subject:       "google-sub-alice",
			Email:         "alice@example.com",
			EmailVerified: true,
			Name:          "Alice",
			Picture:       "https://lh3.googleusercontent.com/a/alice",
		},
		"alice-upper-token": {
			Subject:       "google-sub-alice",
			Email:         "Alice@Example.COM",
			EmailVerified: true,
			Name:          "Alice",
			Picture:       "https://lh3.googleusercontent.com/a/alice",
		},
		"bob-no-picture-token": {
			Subject:       "google-sub-bob",
			Email:         "bob@example.com",
			EmailVerified: true,
			Name:          "Bob from Google",
		},
	}}

	sessions := newTestSessions(now)
	service := NewAuthService(repo, verifier, sessions, testClientID, time.Second)
	service.now = func() time.Time { return now }
	ids := 0
	service.newID = func() string {
		ids++
		return fmt.Sprintf("user-%d", ids)
	}

	return &authFixture{service: service, repo: repo, verifier: verifier, now: now}
}

func (f *authFixture) seedLegacyUser(t *testing.T, id, email, picture string) {
	t.Helper()
	hash := "$2a$10$legacyhashlegacyhashlegacyhashlegacyhashlegacyhash"
	err := f.repo.Create(context.Background(), &model.User{
		ID:           id,
		Name:         "Legacy " + id,
		Email:        email,
		Phone:        "+1 555 000 1111",
		Picture:      picture,
		PasswordHash: &hash,
		CreatedAt:    f.now.Add(-30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}
}

func TestSignInCreatesUser(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.Outcome != SignInCreated {
		t.Fatalf("expected outcome created, got %q", result.Outcome)
	}
	if result.User.ID != "user-1" || result.User.Email != "alice@example.com" || result.User.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", result.User)
	}
	if result.User.Phone != "" {
		t.Fatalf("expected empty phone, got %q", result.User.Phone)
	}
	if !result.User.CreatedAt.Equal(f.now) {
		t.Fatalf("expected created at %v, got %v", f.now, result.User.CreatedAt)
	}

	claims, err := f.service.Authenticate(result.Token)
	if err != nil {
		t.Fatalf("authenticate issued token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	stored, err := f.repo.ByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if !stored.IsLinked() || *stored.IdentityProviderID != "google-sub-alice" {
		t.Fatalf("expected stored google id, got %v", stored.IdentityProviderID)
	}
}

func TestSignInIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)

	first, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("first sign in: %v", err)
	}
	second, err := f.service.SignInWithGoogle(context.Background(), "alice-upper-token")
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}

	if second.Outcome != SignInUnchanged {
		t.Fatalf("expected outcome unchanged, got %q", second.Outcome)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("expected same user id, got %q and %q", first.User.ID, second.User.ID)
	}

	all, err := f.repo.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 user, got %d", len(all))
	}
}

func TestSignInKeepsProfileOfLinkedUser(t *testing.T) {
	f := newAuthFixture(t)

	first, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("first sign in: %v", err)
	}
	_, err = f.service.UpdateProfile(context.Background(), first.User.ID, ProfileInput{Name: "Custom", Phone: "555-123-4567"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	before, err := f.repo.ByID(context.Background(), first.User.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}

	f.verifier.identities["alice-renamed-token"] = &Identity{
		Subject:       "google-sub-alice",
		Email:         "alice@example.com",
		EmailVerified: true,
		Name:          "Alice From Google",
		Picture:       "https://lh3.googleusercontent.com/a/alice-new",
	}
	f.service.now = func() time.Time { return f.now.Add(48 * time.Hour) }

	second, err := f.service.SignInWithGoogle(context.Background(), "alice-renamed-token")
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if second.Outcome != SignInUnchanged {
		t.Fatalf("expected outcome unchanged, got %q", second.Outcome)
	}
	if second.User.Name != "Custom" || second.User.Phone != "555-123-4567" {
		t.Fatalf("expected profile in response to be kept, got %+v", second.User)
	}

	after, err := f.repo.ByID(context.Background(), first.User.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if after.Name != "Custom" || after.Phone != "555-123-4567" {
		t.Fatalf("expected stored name and phone unchanged, got %q %q", after.Name, after.Phone)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("expected created at %v, got %v", before.CreatedAt, after.CreatedAt)
	}
	if after.Picture != before.Picture {
		t.Fatalf("expected picture unchanged for linked user, got %q", after.Picture)
	}
}

func TestSignInLinksLegacyAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedLegacyUser(t, "legacy-1", "alice@example.com", "")

	result, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.Outcome != SignInLinked {
		t.Fatalf("expected outcome linked, got %q", result.Outcome)
	}
	if result.User.ID != "legacy-1" {
		t.Fatalf("expected legacy id to be kept, got %q", result.User.ID)
	}
	if result.User.Name != "Legacy legacy-1" || result.User.Phone != "+1 555 000 1111" {
		t.Fatalf("expected stored profile to be kept, got %+v", result.User)
	}
	if result.User.Picture != "https://lh3.googleusercontent.com/a/alice" {
		t.Fatalf("expected picture from google, got %q", result.User.Picture)
	}

	stored, err := f.repo.ByID(context.Background(), "legacy-1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if stored.HasPassword() {
		t.Fatal("expected password to be removed on linking")
	}
	if !stored.IsLinked() || *stored.IdentityProviderID != "google-sub-alice" {
		t.Fatalf("expected google id to be stored, got %v", stored.IdentityProviderID)
	}
}

func TestSignInLinkKeepsPictureWhenProviderHasNone(t *testing.T) {
	f := newAuthFixture(t)
	f.seedLegacyUser(t, "legacy-bob", "bob@example.com", "https://example.com/bob.png")

	result, err := f.service.SignInWithGoogle(context.Background(), "bob-no-picture-token")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.User.Picture != "https://example.com/bob.png" {
		t.Fatalf("expected stored picture to be kept, got %q", result.User.Picture)
	}
}

func TestSignInRejections(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		verifyErr  error
		want       error
	}{
		{name: "empty credential", credential: "", want: ErrInvalidRequest},
		{name: "blank credential", credential: "   ", want: ErrInvalidRequest},
		{name: "rejected by verifier", credential: "forged-token", want: ErrUnauthorizedCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.service.SignInWithGoogle(context.Background(), tt.credential)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			all, err := f.repo.All(context.Background())
			if err != nil {
				t.Fatalf("all: %v", err)
			}
			if len(all) != 0 {
				t.Fatalf("expected no users to be created, got %d", len(all))
			}
		})
	}
}

func TestSignInEmptyCredentialSkipsVerifier(t *testing.T) {
	f := newAuthFixture(t)
	_, _ = f.service.SignInWithGoogle(context.Background(), "")
	if f.verifier.calls != 0 {
		t.Fatalf("expected verifier not to be called, got %d calls", f.verifier.calls)
	}
}

func TestSignInVerifierFailureIsNotUnauthorized(t *testing.T) {
	f := newAuthFixture(t)
	f.verifier.err = errors.New("jwks unavailable")

	_, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnauthorizedCredential) || errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

type blockingVerifier struct{}

func (blockingVerifier) Verify(ctx context.Context, assertion, audience string) (*Identity, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSignInTimesOut(t *testing.T) {
	f := newAuthFixture(t)
	service := NewAuthService(f.repo, blockingVerifier{}, newTestSessions(f.now), testClientID, 20*time.Millisecond)

	_, err := service.SignInWithGoogle(context.Background(), "alice-token")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// racingCreateRepository hides the first ByEmail hit, as if another request
// created the user between our lookup and insert.
type racingCreateRepository struct {
	repository.UserRepository
	hidden bool
}

func (r *racingCreateRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if !r.hidden {
		r.hidden = true
		return nil, repository.ErrUserNotFound
	}
	return r.UserRepository.ByEmail(ctx, email)
}

func TestSignInRecoversFromConcurrentCreate(t *testing.T) {
	f := newAuthFixture(t)
	f.seedLegacyUser(t, "winner", "alice@example.com", "")

	f.service.userRepository = &racingCreateRepository{UserRepository: f.repo}

	result, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.User.ID != "winner" {
		t.Fatalf("expected existing record to win, got %q", result.User.ID)
	}
	if result.Outcome != SignInLinked {
		t.Fatalf("expected outcome linked, got %q", result.Outcome)
	}

	all, err := f.repo.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 user, got %d", len(all))
	}
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	claims, err := f.service.Authenticate(result.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	me, err := f.service.Me(context.Background(), claims.UserID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != result.User.ID || me.Email != result.User.Email || me.Name != result.User.Name || me.Picture != result.User.Picture {
		t.Fatalf("expected %+v, got %+v", result.User, me)
	}
	if !me.CreatedAt.Equal(result.User.CreatedAt) {
		t.Fatalf("expected created at %v, got %v", result.User.CreatedAt, me.CreatedAt)
	}

	_, err = f.service.Me(context.Background(), "deleted-user")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name      string
		input     ProfileInput
		wantName  string
		wantPhone string
		wantErr   error
	}{
		{name: "name only", input: ProfileInput{Name: "Alice Smith"}, wantName: "Alice Smith", wantPhone: ""},
		{name: "phone only", input: ProfileInput{Phone: "+1 555 123 4567"}, wantName: "Alice", wantPhone: "+1 555 123 4567"},
		{name: "stored as sent", input: ProfileInput{Name: " Alice S ", Phone: " 555-123-4567 "}, wantName: " Alice S ", wantPhone: " 555-123-4567 "},
		{name: "empty is a no-op", input: ProfileInput{}, wantName: "Alice", wantPhone: ""},
		{name: "whitespace is a no-op", input: ProfileInput{Name: "   ", Phone: "\t"}, wantName: "Alice", wantPhone: ""},
		{name: "name too long", input: ProfileInput{Name: strings.Repeat("a", 101)}, wantErr: ErrInvalidRequest},
		{name: "short code phone", input: ProfileInput{Phone: "911"}, wantName: "Alice", wantPhone: "911"},
		{name: "phone with extension", input: ProfileInput{Phone: "+91 98765 43210 ext 2"}, wantName: "Alice", wantPhone: "+91 98765 43210 ext 2"},
		{name: "vanity phone", input: ProfileInput{Phone: "0800-FLOWERS"}, wantName: "Alice", wantPhone: "0800-FLOWERS"},
		{name: "phone too long", input: ProfileInput{Phone: strings.Repeat("1", 33)}, wantErr: ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			result, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
			if err != nil {
				t.Fatalf("sign in: %v", err)
			}

			updated, err := f.service.UpdateProfile(context.Background(), result.User.ID, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				stored, err := f.repo.ByID(context.Background(), result.User.ID)
				if err != nil {
					t.Fatalf("by id: %v", err)
				}
				if stored.Name != "Alice" {
					t.Fatalf("expected rejected update to leave name untouched, got %q", stored.Name)
				}
				return
			}
			if err != nil {
				t.Fatalf("update profile: %v", err)
			}
			if updated.Name != tt.wantName || updated.Phone != tt.wantPhone {
				t.Fatalf("expected name %q phone %q, got %+v", tt.wantName, tt.wantPhone, updated)
			}
			if updated.Email != "alice@example.com" || updated.ID != result.User.ID {
				t.Fatalf("expected identity fields untouched, got %+v", updated)
			}

			stored, err := f.repo.ByID(context.Background(), result.User.ID)
			if err != nil {
				t.Fatalf("by id: %v", err)
			}
			if stored.Name != tt.wantName || stored.Phone != tt.wantPhone {
				t.Fatalf("expected stored name %q phone %q, got %q %q", tt.wantName, tt.wantPhone, stored.Name, stored.Phone)
			}
			if !stored.IsLinked() {
				t.Fatal("expected google link to survive profile update")
			}
		})
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.service.UpdateProfile(context.Background(), "missing", ProfileInput{Name: "Ghost"})
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

// barrierRepository holds every ByID caller until all of them have read,
// so the following updates interleave deterministically.
type barrierRepository struct {
	repository.UserRepository
	barrier *sync.WaitGroup
}

func (r *barrierRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.UserRepository.ByID(ctx, id)
	r.barrier.Done()
	r.barrier.Wait()
	return user, err
}

func TestConcurrentProfileUpdatesLoseOneWrite(t *testing.T) {
	f := newAuthFixture(t)
	result, err := f.service.SignInWithGoogle(context.Background(), "alice-token")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	f.service.userRepository = &barrierRepository{UserRepository: f.repo, barrier: barrier}

	inputs := []ProfileInput{{Name: "Alice Renamed"}, {Phone: "+1 555 987 6543"}}
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.UpdateProfile(context.Background(), result.User.ID, input)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	stored, err := f.repo.ByID(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}

	renamed := stored.Name == "Alice Renamed"
	rephoned := stored.Phone == "+1 555 987 6543"
	if renamed == rephoned {
		t.Fatalf("expected exactly one update to survive, got name %q phone %q", stored.Name, stored.Phone)
	}
}
