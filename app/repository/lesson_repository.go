package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
)

// lessonRepository implements the LessonRepository interface
type lessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository creates a new lesson repository instance
func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

// Create creates a new lesson plan in the database
func (r *lessonRepository) Create(lesson *models.LessonPlan) error {
	return r.db.Create(lesson).Error
}

// GetByID retrieves a lesson plan by its ID
func (r *lessonRepository) GetByID(id uint) (*models.LessonPlan, error) {
	var lesson models.LessonPlan
	err := r.db.First(&lesson, id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// GetByUUID retrieves a lesson plan by its public UUID
func (r *lessonRepository) GetByUUID(uuid string) (*models.LessonPlan, error) {
	var lesson models.LessonPlan
	err := r.db.Where("uuid = ?", uuid).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// GetByShareLink retrieves a lesson plan by its unlisted share link,
// preloading the owner for attribution on the public page.
func (r *lessonRepository) GetByShareLink(shareLink string) (*models.LessonPlan, error) {
	var lesson models.LessonPlan
	err := r.db.Preload("User").Where("share_link = ?", shareLink).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// GetOwned retrieves a lesson only when the given user owns it. The
// combined ownership+existence lookup deliberately cannot distinguish
// "no such lesson" from "not yours", so callers leak no existence
// information.
func (r *lessonRepository) GetOwned(uuid string, ownerID uint) (*models.LessonPlan, error) {
	var lesson models.LessonPlan
	err := r.db.Where("uuid = ? AND user_id = ?", uuid, ownerID).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListAccessible returns all lessons the user owns plus all lessons
// carrying an EDIT share grant for the user's email, ordered by
// scheduled date ascending.
func (r *lessonRepository) ListAccessible(userID uint, email string) ([]models.LessonPlan, error) {
	var lessons []models.LessonPlan
	err := r.db.
		Joins("LEFT JOIN lesson_shares ON lesson_shares.lesson_plan_id = lesson_plans.id").
		Where("lesson_plans.user_id = ? OR (lesson_shares.invitee_email = ? AND lesson_shares.permission = ?)",
			userID, strings.TrimSpace(email), models.SharePermissionEdit).
		Group("lesson_plans.id").
		Order("lesson_plans.date ASC").
		Find(&lessons).Error
	return lessons, err
}

// UpdateDate mutates only the scheduled date of a lesson
func (r *lessonRepository) UpdateDate(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.LessonPlan{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateFields applies a partial update to the lesson row
func (r *lessonRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.LessonPlan{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes a lesson plan and its share grants
func (r *lessonRepository) Delete(id uint) error {
	// Grants have no life of their own; they go with the lesson.
	if err := r.db.Where("lesson_plan_id = ?", id).Delete(&models.LessonShare{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.LessonPlan{}, id).Error
}

// CountByUserID returns the number of lessons owned by a user
func (r *lessonRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.LessonPlan{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
