package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/docclinic/internal/config"
	"github.com/templui/docclinic/internal/ctxkeys"
	"github.com/templui/docclinic/internal/model"
	"github.com/templui/docclinic/internal/render"
	"github.com/templui/docclinic/internal/repository"
	"github.com/templui/docclinic/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const maxBodyBytes = 64 << 10

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{
		authService: authService,
	}

	// The redirect flow needs a client secret; one-tap sign-in does not
	if cfg.GoogleClientSecret != "" {
		h.googleOAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  strings.TrimSuffix(cfg.AppURL, "/") + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

// RedirectEnabled reports whether the OAuth code flow is configured.
func (h *AuthHandler) RedirectEnabled() bool {
	return h.googleOAuthConfig != nil
}

type googleSignInRequest struct {
	Credential string `json:"credential"`
}

type signInResponse struct {
	Message string            `json:"message"`
	User    *model.PublicUser `json:"user"`
	Token   string            `json:"token"`
}

type userResponse struct {
	User *model.PublicUser `json:"user"`
}

type profileResponse struct {
	Message string            `json:"message"`
	User    *model.PublicUser `json:"user"`
}

// GoogleSignIn exchanges a Google ID token for a session token.
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	err := render.DecodeJSON(w, r, &req, maxBodyBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		render.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Credential) == "" {
		render.Error(w, http.StatusBadRequest, "Google credential is required")
		return
	}

	h.signIn(w, r, req.Credential)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, credential string) {
	result, err := h.authService.SignInWithGoogle(r.Context(), credential)
	if err != nil {
		writeError(w, r, err, "Server error during authentication")
		return
	}

	render.JSON(w, http.StatusOK, signInResponse{
		Message: "Login successful",
		User:    result.User,
		Token:   result.Token,
	})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ctxkeys.Session(r.Context())

	user, err := h.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err, "Server error")
		return
	}

	render.JSON(w, http.StatusOK, userResponse{User: user})
}

// UpdateProfile applies the non-empty name/phone fields of the body.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := ctxkeys.Session(r.Context())

	var input service.ProfileInput
	err := render.DecodeJSON(w, r, &input, maxBodyBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		render.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), claims.UserID, input)
	if err != nil {
		writeError(w, r, err, "Server error")
		return
	}

	render.JSON(w, http.StatusOK, profileResponse{
		Message: "Profile updated",
		User:    user,
	})
}

// GoogleRedirect sends the browser to the Google consent screen.
func (h *AuthHandler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := generateOAuthState()
	if err != nil {
		writeError(w, r, err, "Server error")
		return
	}

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		HttpOnly: true,
		Secure:   isProduction, // Secure flag based on APP_ENV (safer than r.TLS behind load balancers)
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, h.googleOAuthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the code flow and signs in with the returned ID token.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("google oauth state validation failed", "error", err)
		render.Error(w, http.StatusBadRequest, "OAuth state mismatch")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/api/auth/google",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code", "oauth_error", r.URL.Query().Get("error"))
		render.Error(w, http.StatusBadRequest, "Authorization code is required")
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("google oauth token exchange failed", "error", err)
		render.Error(w, http.StatusUnauthorized, "Invalid or expired Google token")
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		slog.Error("google oauth response has no id_token")
		render.Error(w, http.StatusInternalServerError, "Server error during authentication")
		return
	}

	h.signIn(w, r, idToken)
}

func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and answered with fallback only.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		render.Error(w, http.StatusBadRequest, invalidRequestMessage(err))
	case errors.Is(err, service.ErrUnauthorizedCredential):
		render.Error(w, http.StatusUnauthorized, "Invalid or expired Google token")
	case errors.Is(err, service.ErrMissingCredential):
		render.Error(w, http.StatusUnauthorized, "No token provided")
	case errors.Is(err, service.ErrCredentialExpired):
		render.Error(w, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, service.ErrInvalidCredential):
		render.Error(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, repository.ErrUserNotFound):
		render.Error(w, http.StatusNotFound, "User not found")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		render.Error(w, http.StatusInternalServerError, fallback)
	}
}

// invalidRequestMessage drops the sentinel prefix, leaving the validation detail.
func invalidRequestMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
	if msg == "" || msg == err.Error() {
		return "Invalid request"
	}
	return msg
}
