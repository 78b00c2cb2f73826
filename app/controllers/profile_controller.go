package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

// HandleGetProfile returns the authenticated user's account information.
func HandleGetProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load user")
	}

	lessonCount, err := repository.GetGlobalFactory().GetLessonRepository().CountByUserID(user.ID)
	if err != nil {
		log.Errorf("lesson count failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"tier":          user.Tier,
		"credits":       user.Credits,
		"theme":         user.Theme,
		"state":         user.State,
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(user.LastLoginAt),
		"stats": fiber.Map{
			"lessons": fiber.Map{"count": lessonCount},
		},
	})
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Theme *string `json:"theme"`
	State *string `json:"state"`
}

// HandleUpdateProfile updates display name, theme preference or the US
// state used to pick the standards framework for generation.
func HandleUpdateProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		if len(*req.Name) < 2 {
			return jsonError(c, fiber.StatusBadRequest, "validation_error", "name must have at least 2 characters")
		}
		fields["name"] = *req.Name
	}
	if req.Theme != nil {
		switch *req.Theme {
		case models.THEME_LIGHT, models.THEME_DARK, models.THEME_SYSTEM:
			fields["theme"] = *req.Theme
		default:
			return jsonError(c, fiber.StatusBadRequest, "validation_error", "unknown theme")
		}
	}
	if req.State != nil {
		fields["state"] = *req.State
	}
	if len(fields) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "no fields to update")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if err := repo.UpdateFields(userCtx.UserID, fields); err != nil {
		log.Errorf("profile update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update profile")
	}

	return c.JSON(fiber.Map{"success": true})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
