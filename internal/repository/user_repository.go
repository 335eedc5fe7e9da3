package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cinegate/theatre-booking/internal/model"
	"github.com/cinegate/theatre-booking/internal/utils"
)

// UserRepo provides persistence for users.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with a bcrypt-hashed password and returns the
// new id.  Emails are normalized to lower case before storage.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`,
		email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, `WHERE email = ?`, email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

func (r *UserRepo) get(ctx context.Context, where string, arg interface{}) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, full_name, role, created_at, updated_at FROM users `+where+` LIMIT 1`,
		arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, sql.ErrNoRows
	}
	return u, err
}
