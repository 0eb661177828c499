package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/ipn-gateway/app/models"
	"github.com/edupay/ipn-gateway/app/repository"
)

// fakeEventStore serves a canned event set and applies EventFilter the way
// the real repository does, so listing tests exercise filter passthrough
// end to end without a database.
type fakeEventStore struct {
	events     []models.IPNEvent
	lastFilter repository.EventFilter
}

func (s *fakeEventStore) matches(event *models.IPNEvent, filter repository.EventFilter) bool {
	if filter.Status != "" && event.Status != filter.Status {
		return false
	}
	if filter.IntegrationID != 0 && event.IntegrationID != filter.IntegrationID {
		return false
	}
	return true
}

func (s *fakeEventStore) Create(event *models.IPNEvent) error { return nil }

func (s *fakeEventStore) GetByID(id uint) (*models.IPNEvent, error) {
	return nil, fiber.ErrNotFound
}

func (s *fakeEventStore) GetByUUID(uuid string) (*models.IPNEvent, error) {
	return nil, fiber.ErrNotFound
}

func (s *fakeEventStore) List(filter repository.EventFilter) ([]models.IPNEvent, error) {
	s.lastFilter = filter
	var out []models.IPNEvent
	for i := range s.events {
		if s.matches(&s.events[i], filter) {
			out = append(out, s.events[i])
		}
	}
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeEventStore) Count(filter repository.EventFilter) (int64, error) {
	var n int64
	for i := range s.events {
		if s.matches(&s.events[i], filter) {
			n++
		}
	}
	return n, nil
}

func (s *fakeEventStore) Transition(event *models.IPNEvent, to string, updates map[string]interface{}) error {
	return nil
}

func (s *fakeEventStore) CountsByStatusToday() (repository.StatusCounts, error) {
	return repository.StatusCounts{}, nil
}

func (s *fakeEventStore) CountManualReview() (int64, error) { return 0, nil }

func (s *fakeEventStore) ListStale(status string, olderThan time.Duration, limit int) ([]models.IPNEvent, error) {
	return nil, nil
}

func (s *fakeEventStore) ClaimFingerprint(fingerprint string, eventID uint) (bool, *models.FingerprintClaim, error) {
	return true, nil, nil
}

func (s *fakeEventStore) DeleteClaimsBefore(cutoff time.Time) (int64, error) { return 0, nil }

type eventListResponse struct {
	Events []models.IPNEvent `json:"events"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func newMonitorTestApp(t *testing.T, store *fakeEventStore) *fiber.App {
	t.Helper()

	prev := monitorController
	monitorController = &MonitorController{repos: &repository.Repositories{Event: store}}
	t.Cleanup(func() { monitorController = prev })

	app := fiber.New()
	app.Get("/api/v1/events", HandleListEvents)
	return app
}

func listEvents(t *testing.T, app *fiber.App, target string) (int, *eventListResponse) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if resp.StatusCode != fiber.StatusOK {
		return resp.StatusCode, nil
	}
	var out eventListResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, &out
}

// TestListEventsStatusFilterSpansIntegrations tests that filtering on a
// status returns matching events from every integration when no
// integration_id narrows the listing
func TestListEventsStatusFilterSpansIntegrations(t *testing.T) {
	store := &fakeEventStore{events: []models.IPNEvent{
		{ID: 1, UUID: "evt-1", IntegrationID: 1, Status: models.EventStatusFailed},
		{ID: 2, UUID: "evt-2", IntegrationID: 2, Status: models.EventStatusFailed},
		{ID: 3, UUID: "evt-3", IntegrationID: 1, Status: models.EventStatusProcessed},
		{ID: 4, UUID: "evt-4", IntegrationID: 3, Status: models.EventStatusReceived},
	}}
	app := newMonitorTestApp(t, store)

	status, out := listEvents(t, app, "/api/v1/events?status=failed")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, out.Events, 2)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, "evt-1", out.Events[0].UUID)
	assert.Equal(t, "evt-2", out.Events[1].UUID)
	assert.Equal(t, repository.EventFilter{Status: models.EventStatusFailed, Limit: 25}, store.lastFilter)

	// Adding integration_id narrows further; both filters are AND-ed.
	status, out = listEvents(t, app, "/api/v1/events?status=failed&integration_id=2")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, out.Events, 1)
	assert.Equal(t, "evt-2", out.Events[0].UUID)
}

// TestListEventsUnknownStatusIsClientError tests that a status outside the
// state machine is rejected instead of returning an empty page
func TestListEventsUnknownStatusIsClientError(t *testing.T) {
	store := &fakeEventStore{}
	app := newMonitorTestApp(t, store)

	status, _ := listEvents(t, app, "/api/v1/events?status=exploded")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, store.lastFilter.Status, "repository is never queried with the bad status")
}

// TestListEventsBadIntegrationIDIsClientError tests integration_id parsing
func TestListEventsBadIntegrationIDIsClientError(t *testing.T) {
	app := newMonitorTestApp(t, &fakeEventStore{})

	status, _ := listEvents(t, app, "/api/v1/events?integration_id=mpesa")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

// TestListEventsPaginationClamping tests that oversized limits and negative
// offsets are clamped before reaching the repository
func TestListEventsPaginationClamping(t *testing.T) {
	store := &fakeEventStore{events: []models.IPNEvent{
		{ID: 1, UUID: "evt-1", IntegrationID: 1, Status: models.EventStatusProcessed},
	}}
	app := newMonitorTestApp(t, store)

	status, out := listEvents(t, app, "/api/v1/events?limit=5000&offset=-3")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, repository.MaxPageSize, out.Limit)
	assert.Equal(t, 0, out.Offset)
	assert.Equal(t, repository.MaxPageSize, store.lastFilter.Limit)
	assert.Equal(t, 0, store.lastFilter.Offset)
}
