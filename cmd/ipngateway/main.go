package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/edupay/ipn-gateway/app/controllers"
	"github.com/edupay/ipn-gateway/app/repository"
	"github.com/edupay/ipn-gateway/internal/pkg/cache"
	"github.com/edupay/ipn-gateway/internal/pkg/database"
	"github.com/edupay/ipn-gateway/internal/pkg/env"
	"github.com/edupay/ipn-gateway/internal/pkg/ipn"
	"github.com/edupay/ipn-gateway/internal/pkg/jobqueue"
	"github.com/edupay/ipn-gateway/internal/pkg/realtime"
	"github.com/edupay/ipn-gateway/internal/pkg/router"
)

func main() {
	app, shutdown := NewApplication()

	// Graceful shutdown: stop taking requests, then drain the queue workers.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires storage, the processing pipeline, background workers
// and the HTTP surface. The returned function stops the background workers.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	// Realtime hub relays status changes between instances via Redis.
	hub := realtime.NewHub()
	hub.Start()

	// Queue dispatches validated events; pipeline drives events through
	// normalize/validate/dedup/dispatch.
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	pipeline := ipn.NewPipeline(repos.Event, repos.Integration, queue, hub)
	manager.Configure(pipeline, hub)
	manager.Start()

	controllers.InitializeWebhookController(queue, hub)
	controllers.InitializeMonitorController()
	controllers.InitializeStreamController(hub)

	app := fiber.New(fiber.Config{
		AppName:   "ipn-gateway",
		BodyLimit: 1 * 1024 * 1024, // Provider payloads are small; 1 MiB is generous
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app)

	shutdown := func() {
		manager.Stop()
		hub.Stop()
	}
	return app, shutdown
}
