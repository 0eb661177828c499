package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edupay/ipn-gateway/app/models"
	"github.com/edupay/ipn-gateway/app/repository"
	"github.com/edupay/ipn-gateway/internal/pkg/ipn"
	"github.com/edupay/ipn-gateway/internal/pkg/jobqueue"
	"github.com/edupay/ipn-gateway/internal/pkg/metrics/counter"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body for
// integrations using the hmac_sha256 scheme; TokenHeader carries the shared
// token for shared_secret integrations.
const (
	SignatureHeader = "X-IPN-Signature"
	TokenHeader     = "X-IPN-Token"
)

// WebhookController ingests provider notifications. Its only jobs are to
// authenticate the caller, persist the raw payload, and acknowledge; all
// interpretation of the payload happens asynchronously so a slow database
// index or a Redis hiccup never makes a provider re-send storms.
type WebhookController struct {
	repos    *repository.Repositories
	queue    *jobqueue.Queue
	notifier ipn.Notifier
}

var webhookController *WebhookController

// InitializeWebhookController wires the controller with the global
// repositories and the managed job queue.
func InitializeWebhookController(queue *jobqueue.Queue, notifier ipn.Notifier) {
	webhookController = &WebhookController{
		repos:    repository.GetGlobalRepositories(),
		queue:    queue,
		notifier: notifier,
	}
}

// HandleWebhook handles POST /webhooks/:slug
func HandleWebhook(c *fiber.Ctx) error {
	return webhookController.Receive(c)
}

// Receive authenticates the request, stores the event and enqueues pipeline
// processing. The response body never echoes payload content back.
func (wc *WebhookController) Receive(c *fiber.Ctx) error {
	slug := c.Params("slug")

	integration, err := wc.repos.Integration.GetBySlug(slug)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown integration"})
		}
		log.Errorf("[Webhook] Integration lookup for %q failed: %v", slug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	if !integration.Active {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown integration"})
	}

	// Raw body bytes exactly as sent; the HMAC covers these.
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}

	if status := wc.authenticate(c, integration, body); status != 0 {
		log.Warnf("[Webhook] Rejected request for %q from %s (scheme %s)", slug, c.IP(), integration.AuthScheme)
		return c.Status(status).JSON(fiber.Map{"error": "request not authenticated"})
	}

	event := &models.IPNEvent{
		UUID:          uuid.New().String(),
		IntegrationID: integration.ID,
		Status:        models.EventStatusReceived,
		RawPayload:    string(body),
	}
	if err := wc.repos.Event.Create(event); err != nil {
		log.Errorf("[Webhook] Failed to store event for %q: %v", slug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	if err := counter.AddReceived(integration.ID); err != nil {
		log.Errorf("[Webhook] Received counter for integration %d: %v", integration.ID, err)
	}

	if err := wc.queue.EnqueueProcess(event); err != nil {
		// The event row is safe; the stale-received sweep re-enqueues it on
		// the next manager tick.
		log.Errorf("[Webhook] Failed to enqueue processing for event %s: %v", event.UUID, err)
	}

	if wc.notifier != nil {
		wc.notifier.EventChanged(event.UUID, event.IntegrationID, event.Status)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":       true,
		"event_id": event.UUID,
	})
}

// authenticate applies the integration's auth scheme. Returns 0 on success or
// the HTTP status to respond with.
func (wc *WebhookController) authenticate(c *fiber.Ctx, integration *models.Integration, body []byte) int {
	switch integration.AuthScheme {
	case models.AuthSchemeHMACSHA256:
		if !ipn.VerifyHMACSignature(body, c.Get(SignatureHeader), integration.Secret) {
			return fiber.StatusUnauthorized
		}
	case models.AuthSchemeSharedSecret:
		if !ipn.VerifySharedSecret(c.Get(TokenHeader), integration.Secret) {
			return fiber.StatusUnauthorized
		}
	case models.AuthSchemeIPAllowlist:
		if !ipn.IPAllowed(c.IP(), integration.AllowedIPs) {
			return fiber.StatusForbidden
		}
	default:
		// An integration with an unknown scheme accepts nothing.
		return fiber.StatusUnauthorized
	}
	return 0
}
