package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TIER_FREE = "FREE"
	TIER_PRO  = "PRO"

	THEME_SYSTEM = "system"
	THEME_LIGHT  = "light"
	THEME_DARK   = "dark"
)

// User is the local identity record. One row per unique email; created
// lazily on first authenticated interaction (see identity.EnsureUser).
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ExternalID       string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	Name             string         `gorm:"type:varchar(150);default:''" json:"name" validate:"max=150"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password         string         `gorm:"type:text" json:"-"`
	Tier             string         `gorm:"type:varchar(20);default:'FREE'" json:"tier" validate:"oneof=FREE PRO"`
	Credits          int            `gorm:"default:0" json:"credits"`
	Theme            string         `gorm:"type:varchar(20);default:'system'" json:"theme"`
	State            string         `gorm:"type:varchar(100);default:''" json:"state"`
	StripeCustomerID string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	ResetToken       string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	ResetSentAt      *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt      *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsPro reports whether the user is on the paid tier
func (u *User) IsPro() bool {
	return u.Tier == TIER_PRO
}

// GenerateResetToken creates a random token and sets ResetSentAt
func (u *User) GenerateResetToken() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	u.ResetToken = hex.EncodeToString(b)
	now := time.Now()
	u.ResetSentAt = &now
	return nil
}

// IsResetTokenValid checks the reset token and its 24 hour expiry window
func (u *User) IsResetTokenValid(token string) bool {
	if u.ResetToken == "" || u.ResetSentAt == nil {
		return false
	}
	if u.ResetToken != token {
		return false
	}
	return time.Since(*u.ResetSentAt) < 24*time.Hour
}

// ClearResetToken clears all password reset related fields
func (u *User) ClearResetToken() {
	u.ResetToken = ""
	u.ResetSentAt = nil
}
