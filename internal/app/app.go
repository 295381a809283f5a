package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/templui/docclinic/internal/config"
	"github.com/templui/docclinic/internal/repository"
	"github.com/templui/docclinic/internal/service"
	"github.com/templui/docclinic/internal/storage"
)

type App struct {
	Cfg            *config.Config
	UserRepository repository.UserRepository
	Verifier       *service.GoogleVerifier
	AuthService    *service.AuthService
	EmailService   *service.EmailService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// User store (runs migrations for SQL drivers)
	userRepository, err := repository.Open(cfg.StoreDriver, cfg.StorePath, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	verifier, err := service.NewGoogleVerifier(ctx, cfg.GoogleJWKSURL)
	if err != nil {
		_ = userRepository.Close()
		return nil, err
	}

	// Services
	sessions := service.NewSessionService(cfg.JWTSecret, cfg.JWTExpiry)
	authService := service.NewAuthService(
		userRepository,
		verifier,
		sessions,
		cfg.GoogleClientID,
		cfg.AuthOperationTimeout,
	)

	return &App{
		Cfg:            cfg,
		UserRepository: userRepository,
		Verifier:       verifier,
		AuthService:    authService,
		EmailService:   NewEmailService(cfg),
	}, nil
}

func NewEmailService(cfg *config.Config) *service.EmailService {
	return service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.ClinicEmail,
		cfg.AppName,
		cfg.ClinicName,
		cfg.DoctorName,
		cfg.AppURL,
		cfg.IsDevelopment(),
	)
}

// BackupStorage is the configured S3 bucket, or a local directory next to
// the user store when no bucket is set.
func BackupStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.BackupsEnabled() {
		s3Store, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	return storage.NewLocalStorage(filepath.Join(filepath.Dir(cfg.StorePath), "backups"))
}

func (a *App) Close() error {
	if a.Verifier != nil {
		a.Verifier.Close()
	}
	if a.UserRepository != nil {
		return a.UserRepository.Close()
	}
	return nil
}
