package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/planflowhq/planflow/app/controllers"
	"github.com/planflowhq/planflow/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Account
	api.Get("/me", middleware.RequireAPISessionAuth, controllers.HandleGetProfile)
	api.Patch("/me", middleware.RequireAPISessionAuth, controllers.HandleUpdateProfile)

	// Lessons. List is deliberately open: anonymous callers get an empty
	// list instead of a 401.
	api.Get("/lessons", controllers.HandleListLessons)
	api.Post("/lessons", middleware.RequireAPISessionAuth, controllers.HandleCreateLesson)
	api.Get("/lessons/:uuid", middleware.RequireAPISessionAuth, controllers.HandleGetLesson)
	api.Patch("/lessons/:uuid", middleware.RequireAPISessionAuth, controllers.HandleUpdateLessonDetails)
	api.Patch("/lessons/:uuid/date", middleware.RequireAPISessionAuth, controllers.HandleUpdateLessonDate)
	api.Delete("/lessons/:uuid", middleware.RequireAPISessionAuth, controllers.HandleDeleteLesson)
	api.Get("/lessons/:uuid/export", middleware.RequireAPISessionAuth, controllers.HandleExportLesson)

	// Sharing
	api.Post("/lessons/:uuid/share", middleware.RequireAPISessionAuth, controllers.HandleShareLesson)
	api.Get("/lessons/:uuid/shares", middleware.RequireAPISessionAuth, controllers.HandleListShares)

	// AI generation
	api.Post("/generate", middleware.RequireAPISessionAuth, controllers.HandleGenerateLesson)
	api.Post("/viral-hooks", controllers.HandleViralHooks)

	// Billing
	api.Post("/billing/checkout", middleware.RequireAPISessionAuth, controllers.HandleCreateCheckoutSession)

	// Peripheral surfaces
	api.Post("/newsletter", controllers.HandleNewsletterSubscribe)
	api.Post("/feedback", controllers.HandleSubmitFeedback)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
