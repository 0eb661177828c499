package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/edupay/ipn-gateway/app/controllers"
	"github.com/edupay/ipn-gateway/app/repository"
	"github.com/edupay/ipn-gateway/internal/pkg/database"
	"github.com/edupay/ipn-gateway/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// InstallRouter registers the operator API and the health probes. Everything
// under /api/v1 except the health probes requires the operator key.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", handleHealthz)
	app.Get("/readyz", handleReadyz)

	v1 := app.Group("/api/v1", middleware.RequireOperatorKey)
	v1.Get("/events", controllers.HandleListEvents)
	v1.Get("/events/stream", controllers.HandleEventStream)
	v1.Get("/events/:uuid", controllers.HandleGetEvent)
	v1.Get("/stats", controllers.HandleStats)
	v1.Get("/integrations", controllers.HandleListIntegrations)
}

func handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleReadyz verifies the database and Redis are reachable before the
// instance takes webhook traffic.
func handleReadyz(c *fiber.Ctx) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "database unavailable"})
	}

	if err := repository.GetGlobalRepositories().Queue.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "cache unavailable"})
	}

	return c.JSON(fiber.Map{"status": "ready"})
}
