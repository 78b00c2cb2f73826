package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/cache"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

const lessonViewCacheTTL = 10 * time.Minute

type createLessonRequest struct {
	Title     string `json:"title"`
	Grade     string `json:"grade"`
	Duration  int    `json:"duration"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

type updateLessonRequest struct {
	Title     *string          `json:"title"`
	Grade     *string          `json:"grade"`
	Duration  *int             `json:"duration"`
	StartTime *string          `json:"start_time"`
	Content   *json.RawMessage `json:"content"`
}

// HandleCreateLesson creates a lesson plan with empty content for the
// authenticated owner.
func HandleCreateLesson(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
	}

	duration := req.Duration
	if duration <= 0 {
		duration = 45
	}

	lesson := &models.LessonPlan{
		UserID:    userCtx.UserID,
		Title:     req.Title,
		Grade:     req.Grade,
		Duration:  duration,
		Date:      models.PinToMidday(date),
		StartTime: req.StartTime,
	}
	if err := lesson.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "title is required")
	}

	if err := repository.GetGlobalFactory().GetLessonRepository().Create(lesson); err != nil {
		log.Errorf("lesson create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create lesson")
	}

	_ = cache.Delete(cache.DashboardKey(userCtx.UserID))

	return c.Status(fiber.StatusCreated).JSON(lessonResponse(lesson))
}

// HandleListLessons returns every lesson the requester owns or holds an
// EDIT grant on, ordered by scheduled date. Anonymous callers get an empty
// list so rendering contexts never fail. The rendered list is cached per
// user and invalidated on every lesson mutation.
func HandleListLessons(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.JSON(fiber.Map{"lessons": []fiber.Map{}})
	}

	cacheKey := cache.DashboardKey(userCtx.UserID)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	lessons, err := repository.GetGlobalFactory().GetLessonRepository().ListAccessible(userCtx.UserID, userCtx.Email)
	if err != nil {
		log.Errorf("lesson list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load lessons")
	}

	out := make([]fiber.Map, 0, len(lessons))
	for i := range lessons {
		out = append(out, lessonResponse(&lessons[i]))
	}

	payload, err := json.Marshal(fiber.Map{"lessons": out})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not render lessons")
	}
	if err := cache.Set(cacheKey, string(payload), lessonViewCacheTTL); err != nil {
		log.Warnf("dashboard cache write failed: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

// HandleGetLesson returns a single lesson for its owner or a grant holder.
func HandleGetLesson(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	lesson, editable, err := getEditableLesson(c.Params("uuid"), userCtx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "lesson not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load lesson")
	}
	if !editable {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "you have no access to this lesson")
	}

	return c.JSON(lessonResponse(lesson))
}

// HandleUpdateLessonDate reschedules a lesson. Ownership only; grant
// holders cannot reschedule.
func HandleUpdateLessonDate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req struct {
		Date string `json:"date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
	}

	lesson, err := getOwnedLesson(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusForbidden, "forbidden", MsgLessonNotFoundOrNoPermission)
	}

	repo := repository.GetGlobalFactory().GetLessonRepository()
	if err := repo.UpdateDate(lesson.ID, map[string]interface{}{"date": models.PinToMidday(date)}); err != nil {
		log.Errorf("lesson date update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not reschedule lesson")
	}

	cache.InvalidateLessonViews(lesson.UserID, lesson.ShareLink)

	lesson.Date = models.PinToMidday(date)
	return c.JSON(lessonResponse(lesson))
}

// HandleUpdateLessonDetails mutates title, grade, duration, start time or
// content. Allowed for the owner or any EDIT grant holder.
func HandleUpdateLessonDetails(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req updateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	lesson, editable, err := getEditableLesson(c.Params("uuid"), userCtx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "lesson not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load lesson")
	}
	if !editable {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "you have no edit access to this lesson")
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		if *req.Title == "" {
			return jsonError(c, fiber.StatusBadRequest, "validation_error", "title cannot be empty")
		}
		fields["title"] = *req.Title
		lesson.Title = *req.Title
	}
	if req.Grade != nil {
		fields["grade"] = *req.Grade
		lesson.Grade = *req.Grade
	}
	if req.Duration != nil {
		if *req.Duration < 0 {
			return jsonError(c, fiber.StatusBadRequest, "validation_error", "duration cannot be negative")
		}
		fields["duration"] = *req.Duration
		lesson.Duration = *req.Duration
	}
	if req.StartTime != nil {
		fields["start_time"] = *req.StartTime
		lesson.StartTime = *req.StartTime
	}
	if req.Content != nil {
		fields["content"] = string(*req.Content)
		lesson.Content = string(*req.Content)
	}
	if len(fields) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "no fields to update")
	}

	repo := repository.GetGlobalFactory().GetLessonRepository()
	if err := repo.UpdateFields(lesson.ID, fields); err != nil {
		log.Errorf("lesson update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update lesson")
	}

	// Both the owner's dashboard and the public share-link view are stale now
	cache.InvalidateLessonViews(lesson.UserID, lesson.ShareLink)

	return c.JSON(lessonResponse(lesson))
}

// HandleDeleteLesson deletes a lesson and its share grants. Strictly owner
// only; an EDIT grant does not grant delete.
func HandleDeleteLesson(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	lesson, err := getOwnedLesson(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusForbidden, "forbidden", MsgLessonNotFoundOrNoPermission)
	}

	if err := repository.GetGlobalFactory().GetLessonRepository().Delete(lesson.ID); err != nil {
		log.Errorf("lesson delete failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete lesson")
	}

	cache.InvalidateLessonViews(lesson.UserID, lesson.ShareLink)

	return c.JSON(fiber.Map{"success": true})
}

// HandlePublicLessonView serves the read-only share-link view. Responses
// are cached in Redis and invalidated on every mutation of the lesson.
func HandlePublicLessonView(c *fiber.Ctx) error {
	shareLink := c.Params("sharelink")
	if shareLink == "" {
		return jsonError(c, fiber.StatusNotFound, "not_found", "lesson not found")
	}

	cacheKey := cache.LessonViewKey(shareLink)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	lesson, err := repository.GetGlobalFactory().GetLessonRepository().GetByShareLink(shareLink)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "lesson not found")
		}
		log.Errorf("public lesson view failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load lesson")
	}

	payload, err := json.Marshal(lessonResponse(lesson))
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not render lesson")
	}
	if err := cache.Set(cacheKey, string(payload), lessonViewCacheTTL); err != nil {
		log.Warnf("lesson view cache write failed: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}
