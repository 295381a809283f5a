package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/docclinic/internal/model"
	"github.com/templui/docclinic/internal/repository"
	"github.com/templui/docclinic/internal/storage"
)

const backupPrefix = "backups/"

// BackupService snapshots the user store in the users.json format, so a
// snapshot can also be dropped in place of the flat file.
type BackupService struct {
	userRepository repository.UserRepository
	store          storage.Storage
	now            func() time.Time
}

func NewBackupService(userRepository repository.UserRepository, store storage.Storage) *BackupService {
	return &BackupService{
		userRepository: userRepository,
		store:          store,
		now:            time.Now,
	}
}

// Backup uploads a snapshot of every user and returns its key.
func (s *BackupService) Backup(ctx context.Context) (string, error) {
	users, err := s.userRepository.All(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read users: %w", err)
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode users: %w", err)
	}

	key := backupPrefix + "users-" + s.now().UTC().Format("20060102T150405Z") + ".json"
	err = s.store.Save(ctx, key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}

	slog.Info("user store backed up", "key", key, "users", len(users))
	return key, nil
}

// List returns snapshot keys, oldest first.
func (s *BackupService) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx, backupPrefix)
}

// Restore replaces the whole user store with a snapshot.
func (s *BackupService) Restore(ctx context.Context, key string) (int, error) {
	body, err := s.store.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	var users []*model.User
	err = json.NewDecoder(body).Decode(&users)
	if err != nil {
		return 0, fmt.Errorf("failed to decode backup %s: %w", key, err)
	}

	err = s.userRepository.ReplaceAll(ctx, users)
	if err != nil {
		return 0, fmt.Errorf("failed to restore users: %w", err)
	}

	slog.Info("user store restored", "key", key, "users", len(users))
	return len(users), nil
}
