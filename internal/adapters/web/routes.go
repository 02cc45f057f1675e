package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// NewApp creates the fiber app with the shared middleware chain.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "datahunter",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New(RequestIDConfig()))
	app.Use(RequestIDToContextMiddleware())
	app.Use(RequestLoggerMiddleware())
	return app
}

// SetupRoutes configures the control API.
func SetupRoutes(app *fiber.App, handlers *Handlers, submitLimiter *RateLimiter) {
	app.Get("/", handlers.Status)

	api := app.Group("/api")

	api.Get("/widgets", handlers.ListWidgets)
	api.Get("/widgets/:id", handlers.GetWidget)
	api.Post("/widgets/:id/submit", submitLimiter.Middleware(), handlers.Submit)
	api.Post("/widgets/:id/retry", handlers.Retry)
	api.Post("/widgets/:id/records", handlers.ViewRecords)

	api.Post("/auth", handlers.Login)
	api.Delete("/auth", handlers.Logout)
	api.Post("/blacklist/refresh", handlers.RefreshBlacklist)
	api.Get("/self", handlers.Self)
}
