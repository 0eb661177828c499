package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/edupay/ipn-gateway/app/models"
	"github.com/edupay/ipn-gateway/app/repository"
	"github.com/edupay/ipn-gateway/internal/pkg/jobqueue"
)

// MonitorController serves the operator read surface: event listings, event
// detail, aggregate stats and integration health.
type MonitorController struct {
	repos *repository.Repositories
}

var monitorController *MonitorController

// InitializeMonitorController wires the controller with the global repositories.
func InitializeMonitorController() {
	monitorController = &MonitorController{
		repos: repository.GetGlobalRepositories(),
	}
}

// HandleListEvents handles GET /api/v1/events
func HandleListEvents(c *fiber.Ctx) error {
	return monitorController.ListEvents(c)
}

// HandleGetEvent handles GET /api/v1/events/:uuid
func HandleGetEvent(c *fiber.Ctx) error {
	return monitorController.GetEvent(c)
}

// HandleStats handles GET /api/v1/stats
func HandleStats(c *fiber.Ctx) error {
	return monitorController.Stats(c)
}

// HandleListIntegrations handles GET /api/v1/integrations
func HandleListIntegrations(c *fiber.Ctx) error {
	return monitorController.ListIntegrations(c)
}

// ListEvents returns a filtered page of events, newest first. Filters are
// AND-ed; an unknown status is a client error rather than an empty result.
func (mc *MonitorController) ListEvents(c *fiber.Ctx) error {
	filter := repository.EventFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  c.QueryInt("limit", 25),
		Offset: c.QueryInt("offset", 0),
	}

	if filter.Status != "" && !models.KnownStatus(filter.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown status " + strconv.Quote(filter.Status),
		})
	}
	if raw := c.Query("integration_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "integration_id must be numeric"})
		}
		filter.IntegrationID = uint(id)
	}
	if filter.Limit <= 0 || filter.Limit > repository.MaxPageSize {
		filter.Limit = repository.MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := mc.repos.Event.List(filter)
	if err != nil {
		log.Errorf("[Monitor] Event listing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	total, err := mc.repos.Event.Count(filter)
	if err != nil {
		log.Errorf("[Monitor] Event count failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{
		"events": events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetEvent returns the full audit view of one event, raw payload included.
func (mc *MonitorController) GetEvent(c *fiber.Ctx) error {
	event, err := mc.repos.Event.GetByUUID(c.Params("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event not found"})
		}
		log.Errorf("[Monitor] Event lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(event)
}

// Stats returns today's per-status totals, the manual-review backlog and the
// live queue depths.
func (mc *MonitorController) Stats(c *fiber.Ctx) error {
	counts, err := mc.repos.Event.CountsByStatusToday()
	if err != nil {
		log.Errorf("[Monitor] Status counts failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	manualReview, err := mc.repos.Event.CountManualReview()
	if err != nil {
		log.Errorf("[Monitor] Manual review count failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	// Queue depths are best-effort; a Redis outage must not take stats down.
	pendingJobs, err := mc.repos.Queue.GetListLength(jobqueue.JobQueueKey)
	if err != nil {
		log.Errorf("[Monitor] Queue depth read failed: %v", err)
		pendingJobs = -1
	}
	processingJobs, err := mc.repos.Queue.GetListLength(jobqueue.JobProcessingKey)
	if err != nil {
		processingJobs = -1
	}

	return c.JSON(fiber.Map{
		"today":         counts,
		"manual_review": manualReview,
		"queue": fiber.Map{
			"pending":    pendingJobs,
			"processing": processingJobs,
		},
	})
}

// ListIntegrations returns every configured integration with its counters.
// Secrets never appear in the response.
func (mc *MonitorController) ListIntegrations(c *fiber.Ctx) error {
	integrations, err := mc.repos.Integration.List()
	if err != nil {
		log.Errorf("[Monitor] Integration listing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"integrations": integrations})
}
