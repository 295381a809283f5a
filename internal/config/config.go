package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName     string   `env:"APP_NAME" envDefault:"DocClinic"`
	AppEnv      string   `env:"APP_ENV,required,notEmpty"` // 'development' or 'production'
	AppURL      string   `env:"APP_URL,required,notEmpty"` // Base URL for email links and OAuth redirects
	Port        string   `env:"PORT" envDefault:"5000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// User store: "json" (flat file), "sqlite" or "pgx"
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"json"`
	StorePath    string `env:"STORE_PATH" envDefault:"./data/users.json"`
	DBConnection string `env:"DB_CONNECTION" envDefault:"./data/clinic.db?_pragma=journal_mode(WAL)"`

	// Security
	JWTSecret            string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry            time.Duration `env:"JWT_EXPIRY" envDefault:"168h"` // 7 days
	AuthOperationTimeout time.Duration `env:"AUTH_OPERATION_TIMEOUT" envDefault:"10s"`

	// Google Sign-In
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"` // Only needed for the redirect flow
	GoogleJWKSURL      string `env:"GOOGLE_JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`

	// Email
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"noreply@example.com"` // Bare address; display names are set per email
	ClinicEmail  string `env:"CLINIC_EMAIL" envDefault:"clinic@example.com"`
	ClinicName   string `env:"CLINIC_NAME" envDefault:"Homeopathy Clinic"`
	DoctorName   string `env:"DOCTOR_NAME" envDefault:"Dr. Neelam Pandey"`
	ResendAPIKey string `env:"RESEND_API_KEY"`

	// Observability (optional)
	SentryDSN string `env:"SENTRY_DSN"`

	// Backups (S3-compatible, optional)
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Endpoint  string `env:"S3_ENDPOINT"` // Optional: MinIO, R2, Spaces, etc.
}

// Load reads .env (if present) and the environment, exiting on invalid config.
func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Parse builds a Config from the current environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.AppEnv != "development" && cfg.AppEnv != "production" {
		return nil, fmt.Errorf("APP_ENV must be 'development' or 'production', got %q", cfg.AppEnv)
	}

	// Production: validate required services
	if cfg.IsProduction() {
		err = validateProduction(cfg)
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// validateProduction ensures all required services are configured for production deployments.
// Development logs emails instead of sending them.
func validateProduction(cfg *Config) error {
	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("production deployment requires RESEND_API_KEY (set APP_ENV=development for email log mode)")
	}
	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("production deployment requires JWT_SECRET of at least 32 characters")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) BackupsEnabled() bool {
	return c.S3Bucket != ""
}

// Sanitized returns a copy safe to hand to request handlers: secrets are blanked.
func (c *Config) Sanitized() *Config {
	clean := *c
	clean.JWTSecret = ""
	clean.GoogleClientSecret = ""
	clean.ResendAPIKey = ""
	clean.SentryDSN = ""
	clean.DBConnection = ""
	clean.S3AccessKey = ""
	clean.S3SecretKey = ""
	clean.CORSOrigins = append([]string(nil), c.CORSOrigins...)
	return &clean
}
