package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/templui/docclinic/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrDuplicateID    = errors.New("user id already exists")
)

// UserRepository is the user store contract. Implementations give no
// isolation across calls: a caller doing ByID then Update can overwrite a
// concurrent caller's Update of the same record.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	All(ctx context.Context) ([]*model.User, error)
	ReplaceAll(ctx context.Context, users []*model.User) error
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the repository for the configured driver.
// "json" is the flat file store; "sqlite" and "pgx" go through sqlx.
func Open(driver, path, connection string) (UserRepository, error) {
	switch driver {
	case "", "json":
		return NewJSONUserRepository(path)
	case "sqlite", "pgx":
		return OpenSQLUserRepository(driver, connection)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
