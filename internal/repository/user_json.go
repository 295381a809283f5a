package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/templui/docclinic/internal/model"
)

// jsonUserRepository keeps every user in one JSON array on disk and rewrites
// the whole file on each mutation. The mutex only serializes file access
// within a single call.
type jsonUserRepository struct {
	path string
	mu   sync.Mutex
}

func NewJSONUserRepository(path string) (UserRepository, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = atomic.WriteFile(path, strings.NewReader("[]\n"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize user store: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat user store: %w", err)
	}

	return &jsonUserRepository{path: path}, nil
}

func (r *jsonUserRepository) load() ([]*model.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var users []*model.User
	err = json.Unmarshal(data, &users)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user store: %w", err)
	}
	return users, nil
}

func (r *jsonUserRepository) save(users []*model.User) error {
	if users == nil {
		users = []*model.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user store: %w", err)
	}

	err = atomic.WriteFile(r.path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to write user store: %w", err)
	}
	return nil
}

func (r *jsonUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}

	for _, u := range users {
		if u.ID == user.ID {
			return ErrDuplicateID
		}
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}

	return r.save(append(users, user.Clone()))
}

func (r *jsonUserRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *jsonUserRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

// Update replaces the stored record that has user.ID with user.
func (r *jsonUserRepository) Update(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}

	for i, u := range users {
		if u.ID == user.ID {
			users[i] = user.Clone()
			return r.save(users)
		}
	}
	return ErrUserNotFound
}

func (r *jsonUserRepository) All(ctx context.Context) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load()
}

func (r *jsonUserRepository) ReplaceAll(ctx context.Context, users []*model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([]*model.User, 0, len(users))
	for _, u := range users {
		for _, c := range copied {
			if c.ID == u.ID {
				return fmt.Errorf("%w: %s", ErrDuplicateID, u.ID)
			}
			if strings.EqualFold(c.Email, u.Email) {
				return fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
			}
		}
		copied = append(copied, u.Clone())
	}
	return r.save(copied)
}

func (r *jsonUserRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(r.path)
	return err
}

func (r *jsonUserRepository) Close() error {
	return nil
}
