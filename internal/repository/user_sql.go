package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/templui/docclinic/internal/db"
	"github.com/templui/docclinic/internal/model"
)

type sqlUserRepository struct {
	db *sqlx.DB
}

// OpenSQLUserRepository connects, migrates and returns a SQL-backed store.
func OpenSQLUserRepository(driver, connection string) (UserRepository, error) {
	database, err := db.Init(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(database.DB, driver)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	return NewSQLUserRepository(database), nil
}

func NewSQLUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

const insertUserQuery = `INSERT INTO users (id, name, email, phone, picture, google_id, password_hash, created_at)
	VALUES (:id, :name, :email, :phone, :picture, :google_id, :password_hash, :created_at)`

func (r *sqlUserRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.NamedExecContext(ctx, insertUserQuery, user)
	if err != nil {
		return classifyInsertError(err)
	}
	return nil
}

// classifyInsertError maps unique violations from SQLite and PostgreSQL.
func classifyInsertError(err error) error {
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
		if strings.Contains(errStr, "users.id") || strings.Contains(errStr, "users_pkey") {
			return ErrDuplicateID
		}
		return ErrDuplicateEmail
	}
	return err
}

func (r *sqlUserRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *sqlUserRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE lower(email) = lower($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *sqlUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET name = $1, email = $2, phone = $3, picture = $4, google_id = $5, password_hash = $6 WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.Phone, user.Picture, user.IdentityProviderID, user.PasswordHash, user.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *sqlUserRepository) All(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ReplaceAll swaps the table contents inside one transaction.
func (r *sqlUserRepository) ReplaceAll(ctx context.Context, users []*model.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	for _, u := range users {
		_, err = tx.NamedExecContext(ctx, insertUserQuery, u)
		if err != nil {
			return fmt.Errorf("failed to insert user %s: %w", u.ID, classifyInsertError(err))
		}
	}

	return tx.Commit()
}

func (r *sqlUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqlUserRepository) Close() error {
	return r.db.Close()
}
