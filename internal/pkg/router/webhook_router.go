package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/edupay/ipn-gateway/app/controllers"
	"github.com/edupay/ipn-gateway/internal/pkg/cache"
	"github.com/edupay/ipn-gateway/internal/pkg/env"
)

type WebhookRouter struct {
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

// InstallRouter registers the provider-facing ingress. Rate limiting is per
// source IP and shared across instances through Redis, so one provider
// misbehaving cannot exhaust another's budget on a different node.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	webhooks := app.Group("/webhooks", limiter.New(limiter.Config{
		Max:        webhookRateLimit(),
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		},
	}))

	webhooks.Post("/:slug", controllers.HandleWebhook)
}

func webhookRateLimit() int {
	if v, err := strconv.Atoi(env.GetEnv("WEBHOOK_RATE_LIMIT", "")); err == nil && v > 0 {
		return v
	}
	return 120
}

// newLimiterStorage builds a Redis-backed fiber storage reusing the cache
// client's connection settings, on a separate database so limiter keys never
// collide with job or counter keys.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
