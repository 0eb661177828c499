package jobqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/ipn-gateway/app/models"
)

// TestJobTypes tests the job type constants
func TestJobTypes(t *testing.T) {
	assert.Equal(t, "process_ipn", string(JobTypeProcessIPN))
	assert.Equal(t, "reconcile_payment", string(JobTypeReconcilePayment))
}

// TestJobStatus tests the job status constants
func TestJobStatus(t *testing.T) {
	assert.Equal(t, "pending", string(JobStatusPending))
	assert.Equal(t, "processing", string(JobStatusProcessing))
	assert.Equal(t, "completed", string(JobStatusCompleted))
	assert.Equal(t, "failed", string(JobStatusFailed))
	assert.Equal(t, "retrying", string(JobStatusRetrying))
}

// TestJob_BasicMethods tests job lifecycle methods
func TestJob_BasicMethods(t *testing.T) {
	job := &Job{
		Status:     JobStatusFailed,
		RetryCount: 1,
		MaxRetries: 3,
	}

	assert.True(t, job.IsRetryable())

	job.RetryCount = 3
	assert.False(t, job.IsRetryable())

	beforeTime := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)
	assert.True(t, job.UpdatedAt.After(beforeTime))

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)

	job.MarkAsFailed("queue unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "queue unreachable", job.ErrorMsg)
	assert.Equal(t, 4, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
}

// TestProcessIPNJobPayload_RoundTrip tests payload map conversion
func TestProcessIPNJobPayload_RoundTrip(t *testing.T) {
	payload := ProcessIPNJobPayload{
		EventID:   42,
		EventUUID: "b5c7e6f0-aaaa-bbbb-cccc-000000000001",
	}

	m := payload.ToMap()
	restored, err := ProcessIPNJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

// TestProcessIPNJobPayload_FromRedis simulates the JSON round trip a job
// takes through Redis, where numbers come back as float64
func TestProcessIPNJobPayload_FromRedis(t *testing.T) {
	data, err := json.Marshal(ProcessIPNJobPayload{EventID: 42, EventUUID: "u"}.ToMap())
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))

	restored, err := ProcessIPNJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, uint(42), restored.EventID)
	assert.Equal(t, "u", restored.EventUUID)
}

// TestReconcilePaymentJobPayload_RoundTrip tests payload map conversion
func TestReconcilePaymentJobPayload_RoundTrip(t *testing.T) {
	payload := ReconcilePaymentJobPayload{
		EventID:           7,
		EventUUID:         "evt-uuid",
		ExternalReference: "INV-042",
		BankReference:     "FT26015XYZQ",
		Amount:            75000,
		Currency:          "KES",
	}

	m := payload.ToMap()
	restored, err := ReconcilePaymentJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

// TestReconcilePayloadFromEvent tests that both references travel with the job
func TestReconcilePayloadFromEvent(t *testing.T) {
	event := &models.IPNEvent{
		ID:                9,
		UUID:              "evt-9",
		Amount:            500,
		Currency:          "KES",
		ExternalReference: "QWE123",
		BankReference:     "RKTQDM7W6S",
	}

	payload := ReconcilePayloadFromEvent(event)
	assert.Equal(t, "QWE123", payload.ExternalReference)
	assert.Equal(t, "RKTQDM7W6S", payload.BankReference)
	assert.Equal(t, uint(9), payload.EventID)
	assert.Equal(t, 500.0, payload.Amount)
}

// TestReconcilePaymentJobPayload_References tests lookup candidate ordering
func TestReconcilePaymentJobPayload_References(t *testing.T) {
	tests := []struct {
		name     string
		external string
		bank     string
		want     []string
	}{
		{"external first, bank second", "INV-042", "FT1", []string{"INV-042", "FT1"}},
		{"bank only", "", "FT1", []string{"FT1"}},
		{"external only", "INV-042", "", []string{"INV-042"}},
		{"identical refs deduplicated", "FT1", "FT1", []string{"FT1"}},
		{"none", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ReconcilePaymentJobPayload{ExternalReference: tt.external, BankReference: tt.bank}
			assert.Equal(t, tt.want, p.References())
		})
	}
}
