package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByResetToken retrieves a user by their password reset token
func (r *userRepository) GetByResetToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("reset_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByEmail inserts the given user if no row exists for its
// email, otherwise returns the existing row. The unique index on email
// is the arbiter: a concurrent first-time insert loses the race, hits
// the uniqueness violation and re-fetches instead of failing, so at
// most one row per email ever exists. The bool reports whether a row
// was created.
func (r *userRepository) GetOrCreateByEmail(user *models.User) (*models.User, bool, error) {
	email := strings.TrimSpace(user.Email)

	var existing models.User
	err := r.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user.Email = email
	if createErr := r.db.Create(user).Error; createErr != nil {
		// Uniqueness violation means somebody else created the row first.
		if fetchErr := r.db.Where("email = ?", email).First(&existing).Error; fetchErr == nil {
			return &existing, false, nil
		}
		return nil, false, createErr
	}
	return user, true, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateFields applies a partial update to the user row
func (r *userRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
