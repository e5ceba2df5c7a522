package services

import (
	"database/sql"
	"strings"

	"github.com/okenna/dreamloom-be/internal/apperrors"
	"github.com/okenna/dreamloom-be/internal/auth"
	"github.com/okenna/dreamloom-be/internal/database"
	"github.com/okenna/dreamloom-be/internal/models"
)

// UserServiceProvider defines the interface for credential management.
type UserServiceProvider interface {
	Signup(email, password string) (models.User, error)
	Login(email, password string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
}

// UserService owns the credential store: one record per email, created once,
// never updated or deleted.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// NormalizeEmail trims whitespace and lower-cases an address so case-variant
// spellings map to one account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup hashes the password and inserts a new credential record. The
// primary-key constraint on email is the uniqueness guard, so two concurrent
// signups for the same address cannot both succeed; the loser gets
// apperrors.ErrEmailTaken and nothing is mutated.
func (s *UserService) Signup(email, password string) (models.User, error) {
	email = NormalizeEmail(email)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	stmt, err := s.db.Prepare("INSERT INTO users(email, password_hash) VALUES(?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(email, hash); err != nil {
		if database.IsConstraintViolation(err) {
			return models.User{}, apperrors.ErrEmailTaken
		}
		return models.User{}, err
	}

	return s.GetUserByEmail(email)
}

// Login verifies credentials. An unknown email and a wrong password both
// return apperrors.ErrInvalidCredentials so callers cannot probe which
// addresses are registered.
func (s *UserService) Login(email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err == apperrors.ErrUserNotFound {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByEmail retrieves a single user record, hash included; callers are
// responsible for not serializing the hash outward.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	email = NormalizeEmail(email)

	var user models.User
	row := s.db.QueryRow("SELECT email, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
