package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/planflowhq/planflow/internal/pkg/mail"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

type feedbackRequest struct {
	Email   string `json:"email"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleSubmitFeedback forwards user feedback to the team inbox. Open to
// anonymous users; logged-in senders fall back to their account email.
func HandleSubmitFeedback(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "message is required")
	}

	from := strings.TrimSpace(req.Email)
	if from == "" {
		from = usercontext.GetUserEmail(c)
	}
	if from == "" {
		from = "anonymous"
	}
	feedbackType := req.Type
	if feedbackType == "" {
		feedbackType = "general"
	}

	if err := mail.SendFeedback(from, feedbackType, req.Message); err != nil {
		log.Errorf("feedback mail failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "upstream_error", "could not submit feedback")
	}

	return c.JSON(fiber.Map{"success": true})
}
