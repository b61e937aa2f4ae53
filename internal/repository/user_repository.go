package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrUserNotFound is returned by the lookups when no account matches.
var ErrUserNotFound = errors.New("user not found")

// Create hashes password, inserts the user and returns its ID.  Usernames
// are stored lower-cased.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var email sql.NullString
	if e := strings.TrimSpace(u.Email); e != "" {
		email = sql.NullString{String: strings.ToLower(e), Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, first_name, last_name, password_hash, role) VALUES (?,?,?,?,?,?)",
		u.Username, email, u.FirstName, u.LastName, hash, u.Role)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	return u.ID, nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.get(ctx, "username", username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, "id", id)
}

func (r *UserRepo) get(ctx context.Context, col string, v any) (model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,email,first_name,last_name,password_hash,role,created_at FROM users WHERE "+col+"=? LIMIT 1",
		v).Scan(&u.ID, &u.Username, &email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	u.Email = email.String
	return u, err
}
