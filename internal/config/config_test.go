package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:5000")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123.apps.googleusercontent.com")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.JWTExpiry != 7*24*time.Hour {
		t.Fatalf("expected 7 day expiry, got %v", cfg.JWTExpiry)
	}
	if cfg.StoreDriver != "json" {
		t.Fatalf("expected json store driver, got %q", cfg.StoreDriver)
	}
	if cfg.AuthOperationTimeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.AuthOperationTimeout)
	}
	if cfg.Port != "5000" {
		t.Fatalf("expected port 5000, got %q", cfg.Port)
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Fatal("expected development environment")
	}
	if cfg.BackupsEnabled() {
		t.Fatal("expected backups disabled without bucket")
	}
}

func TestParseCORSOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "https://clinic.example.com,https://admin.example.com")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestParseRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestParseRejectsUnknownEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "staging")

	_, err := Parse()
	if err == nil {
		t.Fatal("expected error for unknown APP_ENV")
	}
}

func TestParseProductionRequiresResend(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("RESEND_API_KEY", "")

	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "RESEND_API_KEY") {
		t.Fatalf("expected RESEND_API_KEY error, got %v", err)
	}

	t.Setenv("RESEND_API_KEY", "re_test")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production environment")
	}
}

func TestSanitizedDropsSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("RESEND_API_KEY", "re_secret")
	t.Setenv("S3_SECRET_KEY", "s3-secret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	clean := cfg.Sanitized()
	if clean.JWTSecret != "" || clean.ResendAPIKey != "" || clean.S3SecretKey != "" {
		t.Fatalf("expected secrets to be blanked, got %+v", clean)
	}
	if clean.AppURL != cfg.AppURL || clean.GoogleClientID != cfg.GoogleClientID {
		t.Fatal("expected public settings to be kept")
	}
	if cfg.JWTSecret != "dev-secret" {
		t.Fatal("expected original config to be untouched")
	}
}
