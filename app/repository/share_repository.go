package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/planflowhq/planflow/app/models"
)

// shareRepository implements the ShareRepository interface
type shareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new share repository instance
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

// Create inserts a share grant. Re-inviting the same email for the same
// lesson is a no-op thanks to the (lesson, email) unique index.
func (r *shareRepository) Create(share *models.LessonShare) error {
	share.InviteeEmail = strings.ToLower(strings.TrimSpace(share.InviteeEmail))
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "lesson_plan_id"},
			{Name: "invitee_email"},
		},
		DoNothing: true,
	}).Create(share).Error
}

// GetByLessonAndEmail retrieves a grant for the given lesson and invitee email
func (r *shareRepository) GetByLessonAndEmail(lessonID uint, email string) (*models.LessonShare, error) {
	var share models.LessonShare
	err := r.db.Where("lesson_plan_id = ? AND invitee_email = ?", lessonID, strings.ToLower(strings.TrimSpace(email))).
		First(&share).Error
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// ListByLesson retrieves all grants for a lesson
func (r *shareRepository) ListByLesson(lessonID uint) ([]models.LessonShare, error) {
	var shares []models.LessonShare
	err := r.db.Where("lesson_plan_id = ?", lessonID).Order("created_at ASC").Find(&shares).Error
	return shares, err
}

// DeleteByLesson removes all grants for a lesson
func (r *shareRepository) DeleteByLesson(lessonID uint) error {
	return r.db.Where("lesson_plan_id = ?", lessonID).Delete(&models.LessonShare{}).Error
}
