package store

import (
	"errors"
	"fmt"

	"datapilot/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateEmail reports a unique-constraint violation on users.email.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists account identities.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

// FindByEmail returns the user with the given email, or nil if none exists.
func (s *UserStore) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// Create inserts a new user. A duplicate email surfaces as ErrDuplicateEmail
// so callers can report the conflict without inspecting driver errors.
func (s *UserStore) Create(user *models.User) error {
	if err := s.DB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
