package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planflowhq/planflow/app/controllers"
	"github.com/planflowhq/planflow/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Public read-only lesson view behind the share link slug
	app.Get("/p/:sharelink", loggedInMiddleware, controllers.HandlePublicLessonView)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
