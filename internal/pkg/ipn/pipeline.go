package ipn

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/edupay/ipn-gateway/app/models"
	"github.com/edupay/ipn-gateway/app/repository"
)

// Dispatcher hands events to the background job queue: received events for
// pipeline processing, queued events for reconciliation. Implemented by the
// job queue; kept as an interface so the pipeline never imports it.
type Dispatcher interface {
	EnqueueProcess(event *models.IPNEvent) error
	EnqueueReconcile(event *models.IPNEvent) error
}

// Rescue ages for the stale sweep. An event normally leaves received or
// queued within seconds; one sitting there this long has lost its job and
// needs a fresh one. Duplicate jobs are harmless since every consumer skips
// events that already moved on.
const (
	staleReceivedAge = 2 * time.Minute
	staleQueuedAge   = 10 * time.Minute
)

// Notifier receives event status changes for the realtime stream. Delivery
// is fire-and-forget; a slow subscriber must never stall the pipeline.
type Notifier interface {
	EventChanged(uuid string, integrationID uint, status string)
}

// Pipeline runs a received event through normalize -> validate -> dedup ->
// dispatch. Each stage records its outcome as a status on the event row;
// after the raw payload is stored no error escapes as anything else.
type Pipeline struct {
	events       repository.EventRepository
	integrations repository.IntegrationRepository
	dispatcher   Dispatcher
	notifier     Notifier
}

// NewPipeline wires the pipeline onto its repositories and downstream queue.
func NewPipeline(events repository.EventRepository, integrations repository.IntegrationRepository, dispatcher Dispatcher, notifier Notifier) *Pipeline {
	return &Pipeline{
		events:       events,
		integrations: integrations,
		dispatcher:   dispatcher,
		notifier:     notifier,
	}
}

// Process takes a stored event from received to validated/failed/duplicate
// and dispatches it when it survives all checks. Calling it on an event that
// already left received is a no-op, so job retries are safe.
func (pl *Pipeline) Process(eventID uint) error {
	event, err := pl.events.GetByID(eventID)
	if err != nil {
		return fmt.Errorf("load event %d: %w", eventID, err)
	}
	if event.Status != models.EventStatusReceived {
		log.Debugf("[Pipeline] Event %s already %s, skipping", event.UUID, event.Status)
		return nil
	}

	integration, err := pl.integrations.GetByID(event.IntegrationID)
	if err != nil {
		return pl.fail(event, []string{fmt.Sprintf("integration %d is unknown", event.IntegrationID)}, nil)
	}

	provider, err := ProviderFor(integration)
	if err != nil {
		return pl.fail(event, []string{err.Error()}, nil)
	}

	payment, err := provider.Parse([]byte(event.RawPayload), integration)
	if err != nil {
		// Parse failure is a terminal, recorded outcome; the raw payload
		// stays untouched for replay.
		log.Infof("[Pipeline] Event %s failed to parse: %v", event.UUID, err)
		return pl.fail(event, []string{err.Error()}, nil)
	}

	if errs := Validate(payment, integration); len(errs) > 0 {
		log.Infof("[Pipeline] Event %s failed validation: %d error(s)", event.UUID, len(errs))
		return pl.fail(event, errs, payment)
	}

	normalizedJSON, err := json.Marshal(payment)
	if err != nil {
		return pl.fail(event, []string{fmt.Sprintf("normalized payload could not be encoded: %v", err)}, nil)
	}

	fingerprint := Fingerprint(integration.ID, payment)
	claimed, claim, err := pl.events.ClaimFingerprint(fingerprint, event.ID)
	if err != nil {
		return fmt.Errorf("claim fingerprint for event %s: %w", event.UUID, err)
	}

	if !claimed && claim.EventID != event.ID {
		// A provider retry. The duplicate keeps its normalized fields for
		// audit but never reaches the queue.
		log.Infof("[Pipeline] Event %s is a duplicate of event %d", event.UUID, claim.EventID)
		updates := paymentColumns(payment)
		updates["normalized_json"] = string(normalizedJSON)
		updates["fingerprint"] = fingerprint
		if err := pl.events.Transition(event, models.EventStatusDuplicate, updates); err != nil {
			return err
		}
		pl.notify(event)
		return nil
	}

	updates := paymentColumns(payment)
	updates["normalized_json"] = string(normalizedJSON)
	updates["fingerprint"] = fingerprint
	updates["validation_errors"] = "[]"
	if err := pl.events.Transition(event, models.EventStatusValidated, updates); err != nil {
		return err
	}
	pl.notify(event)

	return pl.Dispatch(event)
}

// Dispatch marks a validated event queued and hands it to the reconciliation
// queue. Idempotent: events in any other status are left alone. The status
// goes first: a reconcile worker must never see the job before the queued
// status is durable, or it would skip the event and complete the job with
// nothing left to rescue it. If the enqueue then fails the event sits in
// queued without a job, and the stale sweep re-enqueues it; it is never
// dropped.
func (pl *Pipeline) Dispatch(event *models.IPNEvent) error {
	if event.Status != models.EventStatusValidated {
		return nil
	}

	if err := pl.events.Transition(event, models.EventStatusQueued, nil); err != nil {
		return err
	}
	pl.notify(event)

	if err := pl.dispatcher.EnqueueReconcile(event); err != nil {
		log.Errorf("[Pipeline] Enqueue for event %s failed, sweep will retry: %v", event.UUID, err)
		return fmt.Errorf("dispatch event %s: %w", event.UUID, err)
	}
	return nil
}

// RedispatchStale rescues events whose queue hand-off was lost: received
// events whose processing job never made it in (Redis down at ingestion),
// validated events that never reached Dispatch, and queued events whose
// reconcile job vanished. Called from the manager ticker.
func (pl *Pipeline) RedispatchStale(limit int) error {
	received, err := pl.events.ListStale(models.EventStatusReceived, staleReceivedAge, limit)
	if err != nil {
		return err
	}
	for i := range received {
		if err := pl.dispatcher.EnqueueProcess(&received[i]); err != nil {
			// Queue still unavailable; the next tick tries again.
			return err
		}
	}

	validated, err := pl.events.ListStale(models.EventStatusValidated, 0, limit)
	if err != nil {
		return err
	}
	for i := range validated {
		if err := pl.Dispatch(&validated[i]); err != nil {
			return err
		}
	}

	queued, err := pl.events.ListStale(models.EventStatusQueued, staleQueuedAge, limit)
	if err != nil {
		return err
	}
	for i := range queued {
		if err := pl.dispatcher.EnqueueReconcile(&queued[i]); err != nil {
			return err
		}
	}
	return nil
}

func (pl *Pipeline) fail(event *models.IPNEvent, errs []string, payment *NormalizedPayment) error {
	encoded, err := json.Marshal(errs)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"validation_errors": string(encoded),
	}
	if payment != nil {
		// Keep the extracted columns searchable even though the event
		// failed; the normalized snapshot itself stays absent.
		for k, v := range paymentColumns(payment) {
			updates[k] = v
		}
	}

	if err := pl.events.Transition(event, models.EventStatusFailed, updates); err != nil {
		return err
	}
	pl.notify(event)
	return nil
}

func (pl *Pipeline) notify(event *models.IPNEvent) {
	if pl.notifier != nil {
		pl.notifier.EventChanged(event.UUID, event.IntegrationID, event.Status)
	}
}

func paymentColumns(p *NormalizedPayment) map[string]interface{} {
	return map[string]interface{}{
		"amount":             p.Amount,
		"currency":           p.Currency,
		"sender_name":        p.SenderName,
		"sender_phone":       p.SenderPhone,
		"external_reference": p.ExternalReference,
		"bank_reference":     p.BankReference,
	}
}
