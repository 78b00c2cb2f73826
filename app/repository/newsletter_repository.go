package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/planflowhq/planflow/app/models"
)

// newsletterRepository implements the NewsletterRepository interface
type newsletterRepository struct {
	db *gorm.DB
}

// NewNewsletterRepository creates a new newsletter repository instance
func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

// CreateIfNotExists inserts the subscriber unless the email is already
// signed up. Returns true when a new row was created.
func (r *newsletterRepository) CreateIfNotExists(sub *models.NewsletterSubscriber) (bool, error) {
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Count returns the total number of subscribers
func (r *newsletterRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.NewsletterSubscriber{}).Count(&count).Error
	return count, err
}
