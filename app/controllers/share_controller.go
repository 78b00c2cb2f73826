package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/cache"
	"github.com/planflowhq/planflow/internal/pkg/mail"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

var shareValidate = validator.New()

type shareLessonRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleShareLesson grants EDIT access on a lesson to an invitee email.
// Owner only; a missing lesson and someone else's lesson return the same
// error.
func HandleShareLesson(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req shareLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := shareValidate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "a valid invitee email is required")
	}

	lesson, err := getOwnedLesson(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusForbidden, "forbidden", MsgLessonNotFoundOrNoPermission)
	}

	if req.Email == strings.ToLower(userCtx.Email) {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "you already own this lesson")
	}

	share := &models.LessonShare{
		LessonPlanID: lesson.ID,
		InviteeEmail: req.Email,
		Permission:   models.SharePermissionEdit,
	}

	// Link the invitee's account when it already exists. Grants created
	// before signup keep matching by email; the user id is not backfilled
	// later.
	invitee, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(req.Email)
	if err == nil {
		share.InviteeUserID = &invitee.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("invitee lookup failed: %v", err)
	}

	if err := repository.GetGlobalFactory().GetShareRepository().Create(share); err != nil {
		log.Errorf("share grant failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not share lesson")
	}

	// The lesson now appears on the invitee's dashboard
	if share.InviteeUserID != nil {
		_ = cache.Delete(cache.DashboardKey(*share.InviteeUserID))
	}

	// The grant is the durable effect; the invitation mail is advisory
	go func(to, inviter, title, link string) {
		if err := mail.SendShareInvitation(to, inviter, title, link); err != nil {
			log.Errorf("share invitation to %s failed: %v", to, err)
		}
	}(req.Email, userCtx.Username, lesson.Title, lesson.ShareLink)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"email":      req.Email,
		"permission": share.Permission,
	})
}

// HandleListShares lists the grants on an owned lesson.
func HandleListShares(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	lesson, err := getOwnedLesson(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusForbidden, "forbidden", MsgLessonNotFoundOrNoPermission)
	}

	shares, err := repository.GetGlobalFactory().GetShareRepository().ListByLesson(lesson.ID)
	if err != nil {
		log.Errorf("share list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load shares")
	}

	out := make([]fiber.Map, 0, len(shares))
	for _, s := range shares {
		out = append(out, fiber.Map{
			"email":      s.InviteeEmail,
			"permission": s.Permission,
			"resolved":   s.InviteeUserID != nil,
			"created_at": s.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"shares": out})
}
