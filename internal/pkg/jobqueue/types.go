package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/edupay/ipn-gateway/app/models"
)

// JobType defines the type of job
type JobType string

const (
	// JobTypeProcessIPN runs a freshly received event through the
	// normalize/validate/dedup/dispatch pipeline.
	JobTypeProcessIPN JobType = "process_ipn"

	// JobTypeReconcilePayment matches a queued event against an invoice.
	JobTypeReconcilePayment JobType = "reconcile_payment"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ProcessIPNJobPayload contains the payload for pipeline processing jobs
type ProcessIPNJobPayload struct {
	EventID   uint   `json:"event_id"`
	EventUUID string `json:"event_uuid"`
}

// ToMap converts the payload to a map for storage
func (p ProcessIPNJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"event_id":   p.EventID,
		"event_uuid": p.EventUUID,
	}
}

// ProcessIPNJobPayloadFromMap creates a payload from a map
func ProcessIPNJobPayloadFromMap(data map[string]interface{}) (*ProcessIPNJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ProcessIPNJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ReconcilePaymentJobPayload contains the payload for reconciliation jobs.
// Both references travel with the job: invoices may be keyed by either the
// payer-supplied reference or the provider's transaction reference.
type ReconcilePaymentJobPayload struct {
	EventID           uint    `json:"event_id"`
	EventUUID         string  `json:"event_uuid"`
	ExternalReference string  `json:"external_reference"`
	BankReference     string  `json:"bank_reference"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
}

// ToMap converts the payload to a map for storage
func (p ReconcilePaymentJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"event_id":           p.EventID,
		"event_uuid":         p.EventUUID,
		"external_reference": p.ExternalReference,
		"bank_reference":     p.BankReference,
		"amount":             p.Amount,
		"currency":           p.Currency,
	}
}

// References returns the lookup candidates in precedence order: external
// first, then the bank reference when it differs.
func (p *ReconcilePaymentJobPayload) References() []string {
	var refs []string
	if p.ExternalReference != "" {
		refs = append(refs, p.ExternalReference)
	}
	if p.BankReference != "" && p.BankReference != p.ExternalReference {
		refs = append(refs, p.BankReference)
	}
	return refs
}

// ReconcilePaymentJobPayloadFromMap creates a payload from a map
func ReconcilePaymentJobPayloadFromMap(data map[string]interface{}) (*ReconcilePaymentJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ReconcilePaymentJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ReconcilePayloadFromEvent builds the reconciliation payload for a queued
// event.
func ReconcilePayloadFromEvent(event *models.IPNEvent) ReconcilePaymentJobPayload {
	return ReconcilePaymentJobPayload{
		EventID:           event.ID,
		EventUUID:         event.UUID,
		ExternalReference: event.ExternalReference,
		BankReference:     event.BankReference,
		Amount:            event.Amount,
		Currency:          event.Currency,
	}
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
