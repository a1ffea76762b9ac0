package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
)

// UserRepositoryInterface defines methods used by services
type UserRepositoryInterface interface {
	Create(u *model.User) error
	GetByID(id int) (*model.User, error)
	GetByUsername(username string) (*model.User, error)
	Exists(username string) (bool, error)
	SetStaff(id int, isStaff bool) error
	SetPassword(id int, passwordHash string) error
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sql.DB
}

// Create inserts a user, refusing a username that is already in use.
func (r *UserRepository) Create(u *model.User) error {
	exists, err := r.Exists(u.Username)
	if err != nil {
		return err
	}
	if exists {
		return appErrors.ErrUsernameTaken
	}

	u.CreatedAt = time.Now().UTC()
	query := `
        INSERT INTO users (username, email, password_hash, is_staff, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	return r.DB.QueryRow(query, u.Username, u.Email, u.PasswordHash, u.IsStaff, u.CreatedAt).Scan(&u.ID)
}

func (r *UserRepository) GetByID(id int) (*model.User, error) {
	query := `
        SELECT id, username, email, password_hash, is_staff, created_at
        FROM users
        WHERE id = $1
    `
	u, err := scanUser(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewUserIDNotFound(id)
	}
	return u, err
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	query := `
        SELECT id, username, email, password_hash, is_staff, created_at
        FROM users
        WHERE username = $1
    `
	u, err := scanUser(r.DB.QueryRow(query, username))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewUserNotFound(username)
	}
	return u, err
}

// Check if a user exists by username
func (r *UserRepository) Exists(username string) (bool, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE username = $1`, username).Scan(&count)
	return count > 0, err
}

func (r *UserRepository) SetStaff(id int, isStaff bool) error {
	res, err := r.DB.Exec(`UPDATE users SET is_staff=$1 WHERE id=$2`, isStaff, id)
	if err != nil {
		return err
	}
	return requireUserRow(res, id)
}

func (r *UserRepository) SetPassword(id int, passwordHash string) error {
	res, err := r.DB.Exec(`UPDATE users SET password_hash=$1 WHERE id=$2`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireUserRow(res, id)
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func requireUserRow(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewUserIDNotFound(id)
	}
	return nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
