package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

// MsgLessonNotFoundOrNoPermission is the merged not-found/ownership failure.
// Callers never learn whether the lesson exists at all.
const MsgLessonNotFoundOrNoPermission = "lesson not found or no permission"

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// lessonResponse is the wire shape for a lesson plan. Content is inlined as
// raw JSON when present so clients never see a double-encoded string.
func lessonResponse(l *models.LessonPlan) fiber.Map {
	resp := fiber.Map{
		"uuid":       l.UUID,
		"share_link": l.ShareLink,
		"user_id":    l.UserID,
		"title":      l.Title,
		"grade":      l.Grade,
		"duration":   l.Duration,
		"date":       l.Date.Format("2006-01-02"),
		"start_time": l.StartTime,
		"created_at": l.CreatedAt,
		"updated_at": l.UpdatedAt,
	}
	if l.HasContent() {
		resp["content"] = json.RawMessage(l.Content)
	} else {
		resp["content"] = nil
	}
	return resp
}

// getOwnedLesson loads a lesson by uuid only if the requester owns it. A
// missing lesson and a foreign lesson are indistinguishable in the returned
// error.
func getOwnedLesson(uuid string, ownerID uint) (*models.LessonPlan, error) {
	lesson, err := repository.GetGlobalFactory().GetLessonRepository().GetOwned(uuid, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(MsgLessonNotFoundOrNoPermission)
		}
		return nil, err
	}
	return lesson, nil
}

// getEditableLesson loads a lesson the requester may mutate: either as owner
// or through an EDIT share grant matching the requester's email.
func getEditableLesson(uuid string, userCtx usercontext.UserContext) (*models.LessonPlan, bool, error) {
	factory := repository.GetGlobalFactory()
	lesson, err := factory.GetLessonRepository().GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, gorm.ErrRecordNotFound
		}
		return nil, false, err
	}

	if lesson.UserID == userCtx.UserID {
		return lesson, true, nil
	}

	email := strings.ToLower(strings.TrimSpace(userCtx.Email))
	if email != "" {
		share, err := factory.GetShareRepository().GetByLessonAndEmail(lesson.ID, email)
		if err == nil && share.AllowsEdit() {
			return lesson, true, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	return lesson, false, nil
}
