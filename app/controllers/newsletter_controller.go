package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
)

var newsletterValidate = validator.New()

type newsletterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleNewsletterSubscribe signs an email up for the newsletter. The
// operation is idempotent: repeat signups succeed with a distinct message
// and never create a second row.
func HandleNewsletterSubscribe(c *fiber.Ctx) error {
	var req newsletterRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := newsletterValidate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "a valid email is required")
	}

	created, err := repository.GetGlobalFactory().GetNewsletterRepository().CreateIfNotExists(&models.NewsletterSubscriber{Email: req.Email})
	if err != nil {
		log.Errorf("newsletter signup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not subscribe")
	}

	message := "Thanks for subscribing!"
	if !created {
		message = "You are already subscribed."
	}
	return c.JSON(fiber.Map{"success": true, "message": message})
}
