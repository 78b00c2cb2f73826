package models

import "time"

const (
	SharePermissionEdit = "EDIT"
)

// LessonShare is a per-lesson, per-invitee edit grant created by the
// lesson owner. InviteeUserID is resolved at grant time when the invitee
// already has an account; otherwise it stays null and access checks
// match by email.
type LessonShare struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LessonPlanID  uint      `gorm:"not null;index:ux_lesson_shares_lesson_email,unique,priority:1" json:"lesson_plan_id"`
	InviteeEmail  string    `gorm:"type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin;not null;index:ux_lesson_shares_lesson_email,unique,priority:2;index" json:"invitee_email"`
	InviteeUserID *uint     `gorm:"default:null;index" json:"invitee_user_id,omitempty"`
	Permission    string    `gorm:"type:varchar(20);not null;default:'EDIT'" json:"permission"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AllowsEdit reports whether the grant permits mutation.
func (s *LessonShare) AllowsEdit() bool {
	return s.Permission == SharePermissionEdit
}
