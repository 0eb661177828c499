package jobqueue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/edupay/ipn-gateway/app/models"
	"github.com/edupay/ipn-gateway/app/repository"
	"github.com/edupay/ipn-gateway/internal/pkg/metrics/counter"
)

// processReconcileJob matches a queued event against its invoice. Queued
// events resolve to processed (invoice paid) or failed with manual review
// flagged (no matching unpaid invoice, or amount/currency mismatch). The
// processor is idempotent: an event that already left queued is skipped, so
// a redelivered job cannot pay an invoice twice.
func (q *Queue) processReconcileJob(job *Job) error {
	payload, err := ReconcilePaymentJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid reconcile_payment payload: %w", err)
	}

	repos := repository.GetGlobalRepositories()
	event, err := repos.Event.GetByID(payload.EventID)
	if err != nil {
		return fmt.Errorf("load event %d: %w", payload.EventID, err)
	}

	if event.Status != models.EventStatusQueued {
		log.Debugf("[Reconcile] Event %s already %s, skipping", event.UUID, event.Status)
		return nil
	}

	invoice, err := findUnpaidInvoice(repos.Invoice, payload)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return q.reconcileFailed(repos, event, fmt.Sprintf(
				"no unpaid invoice matches references %q", payload.References()))
		}
		return fmt.Errorf("lookup invoice for event %s: %w", payload.EventUUID, err)
	}

	if invoice.Amount != payload.Amount || invoice.Currency != payload.Currency {
		return q.reconcileFailed(repos, event, fmt.Sprintf(
			"invoice %q expects %.2f %s but payment is %.2f %s",
			invoice.Reference, invoice.Amount, invoice.Currency, payload.Amount, payload.Currency))
	}

	if err := repos.Invoice.MarkPaid(invoice, event.ID); err != nil {
		if err == gorm.ErrRecordNotFound {
			// Lost a race with another payment for the same invoice.
			return q.reconcileFailed(repos, event, fmt.Sprintf("invoice %q was paid by another event", invoice.Reference))
		}
		return fmt.Errorf("mark invoice %q paid: %w", invoice.Reference, err)
	}

	now := time.Now()
	if err := repos.Event.Transition(event, models.EventStatusProcessed, map[string]interface{}{
		"processed_at": &now,
	}); err != nil {
		return err
	}

	if err := counter.AddProcessed(event.IntegrationID); err != nil {
		log.Errorf("[Reconcile] Processed counter for integration %d: %v", event.IntegrationID, err)
	}
	q.notifyEvent(event)
	log.Infof("[Reconcile] Event %s paid invoice %s", event.UUID, invoice.Reference)
	return nil
}

// findUnpaidInvoice tries each of the payload's references in precedence
// order and returns the first unpaid invoice hit. gorm.ErrRecordNotFound
// means no candidate matched.
func findUnpaidInvoice(invoices repository.InvoiceRepository, payload *ReconcilePaymentJobPayload) (*models.Invoice, error) {
	for _, ref := range payload.References() {
		invoice, err := invoices.GetUnpaidByReference(ref)
		if err == nil {
			return invoice, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// reconcileFailed records a terminal reconciliation failure and flags the
// event for manual review. This is a recorded outcome, not a job error, so
// the job completes and is not retried.
func (q *Queue) reconcileFailed(repos *repository.Repositories, event *models.IPNEvent, reason string) error {
	now := time.Now()
	if err := repos.Event.Transition(event, models.EventStatusFailed, map[string]interface{}{
		"manual_review":    true,
		"processing_error": reason,
		"processed_at":     &now,
	}); err != nil {
		return err
	}
	q.notifyEvent(event)
	log.Infof("[Reconcile] Event %s failed reconciliation: %s", event.UUID, reason)
	return nil
}

func (q *Queue) notifyEvent(event *models.IPNEvent) {
	if q.notifier != nil {
		q.notifier.EventChanged(event.UUID, event.IntegrationID, event.Status)
	}
}
