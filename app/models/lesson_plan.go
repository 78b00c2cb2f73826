package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/internal/pkg/shortener"
)

const ShareLinkLength = 10

// LessonPlan is the central entity. Content holds the structured lesson
// document as raw JSON; it stays empty until AI generation or a manual
// edit fills it.
type LessonPlan struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	ShareLink string         `gorm:"type:varchar(255) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex" json:"share_link"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty" validate:"-"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=1,max=255"`
	Grade     string         `gorm:"type:varchar(100);default:''" json:"grade"`
	Duration  int            `gorm:"default:45" json:"duration" validate:"gte=0"`
	Date      time.Time      `gorm:"type:datetime;not null;index" json:"date"`
	StartTime string         `gorm:"type:varchar(10);default:''" json:"start_time"`
	Content   string         `gorm:"type:longtext" json:"-"`
	Shares    []LessonShare  `gorm:"foreignKey:LessonPlanID" json:"shares,omitempty" validate:"-"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (l *LessonPlan) Validate() error {
	v := validator.New()

	return v.Struct(l)
}

// BeforeCreate assigns the public UUID and share link slug.
func (l *LessonPlan) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == "" {
		l.UUID = uuid.New().String()
	}
	if l.ShareLink == "" {
		slug, err := shortener.GenerateSecureSlug(ShareLinkLength)
		if err != nil {
			return err
		}
		l.ShareLink = slug
	}
	return nil
}

// HasContent reports whether a structured document has been stored yet.
func (l *LessonPlan) HasContent() bool {
	return l.Content != "" && l.Content != "{}" && l.Content != "null"
}

// ContentMap decodes the stored content JSON for rendering. Returns an
// empty map when no content has been generated yet.
func (l *LessonPlan) ContentMap() map[string]interface{} {
	out := map[string]interface{}{}
	if l.Content == "" {
		return out
	}
	_ = json.Unmarshal([]byte(l.Content), &out)
	return out
}

// PinToMidday normalizes a date to 12:00 local time. Calendar dates are
// stored pinned to midday so timezone conversion cannot shift the day.
func PinToMidday(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
}
