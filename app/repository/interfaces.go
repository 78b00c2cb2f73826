package repository

import (
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByResetToken(token string) (*models.User, error)
	GetOrCreateByEmail(user *models.User) (*models.User, bool, error)
	Update(user *models.User) error
	UpdateFields(id uint, fields map[string]interface{}) error
	Count() (int64, error)
}

// LessonRepository defines the interface for lesson-plan database operations
type LessonRepository interface {
	Create(lesson *models.LessonPlan) error
	GetByID(id uint) (*models.LessonPlan, error)
	GetByUUID(uuid string) (*models.LessonPlan, error)
	GetByShareLink(shareLink string) (*models.LessonPlan, error)
	GetOwned(uuid string, ownerID uint) (*models.LessonPlan, error)
	ListAccessible(userID uint, email string) ([]models.LessonPlan, error)
	UpdateDate(id uint, fields map[string]interface{}) error
	UpdateFields(id uint, fields map[string]interface{}) error
	Delete(id uint) error
	CountByUserID(userID uint) (int64, error)
}

// ShareRepository defines the interface for lesson share grants
type ShareRepository interface {
	Create(share *models.LessonShare) error
	GetByLessonAndEmail(lessonID uint, email string) (*models.LessonShare, error)
	ListByLesson(lessonID uint) ([]models.LessonShare, error)
	DeleteByLesson(lessonID uint) error
}

// NewsletterRepository defines the interface for newsletter signups
type NewsletterRepository interface {
	CreateIfNotExists(sub *models.NewsletterSubscriber) (bool, error)
	Count() (int64, error)
}

// Repositories bundles all repository implementations
type Repositories struct {
	User       UserRepository
	Lesson     LessonRepository
	Share      ShareRepository
	Newsletter NewsletterRepository
}

// NewRepositories creates all repositories backed by the given DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Lesson:     NewLessonRepository(db),
		Share:      NewShareRepository(db),
		Newsletter: NewNewsletterRepository(db),
	}
}
