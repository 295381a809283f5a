package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/templui/docclinic/internal/config"
	"github.com/templui/docclinic/internal/repository"
)

// loadConfig reads .env (if present) and the environment. Unlike the server
// it returns errors instead of exiting.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Parse()
}

func openUserStore() (*config.Config, repository.UserRepository, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	repo, err := repository.Open(cfg.StoreDriver, cfg.StorePath, cfg.DBConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open user store: %w", err)
	}
	return cfg, repo, nil
}
