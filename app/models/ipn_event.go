package models

import "time"

// Event statuses. An event only ever moves forward through these; once it
// reaches processed, failed or duplicate it is terminal.
const (
	EventStatusReceived  = "received"
	EventStatusValidated = "validated"
	EventStatusQueued    = "queued"
	EventStatusProcessed = "processed"
	EventStatusFailed    = "failed"
	EventStatusDuplicate = "duplicate"
)

// IPNEvent is one inbound payment notification. Rows are append-only: the raw
// payload is written once at ingestion and never mutated, and rows are never
// deleted (financial audit trail). Normalized columns stay empty until the
// normalizer has run.
type IPNEvent struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UUID          string `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	IntegrationID uint   `gorm:"not null;index" json:"integration_id"`
	Status        string `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`

	RawPayload     string `gorm:"type:text;not null" json:"raw_payload"`
	NormalizedJSON string `gorm:"type:text" json:"normalized_json"`

	Amount            float64 `gorm:"type:numeric(14,2)" json:"amount"`
	Currency          string  `gorm:"type:varchar(3)" json:"currency"`
	SenderName        string  `gorm:"type:varchar(191);index" json:"sender_name"`
	SenderPhone       string  `gorm:"type:varchar(20);index" json:"sender_phone"`
	ExternalReference string  `gorm:"type:varchar(191);index" json:"external_reference"`
	BankReference     string  `gorm:"type:varchar(191);index" json:"bank_reference"`

	Fingerprint      string `gorm:"type:varchar(64);index" json:"fingerprint"`
	ValidationErrors string `gorm:"type:text" json:"validation_errors"`

	ManualReview    bool       `gorm:"default:false;index" json:"manual_review"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// eventTransitions is the directed edge set of the status state machine.
// received and validated are the only states a failure or duplicate branch
// can leave from; queued resolves to processed or failed.
var eventTransitions = map[string][]string{
	EventStatusReceived:  {EventStatusValidated, EventStatusFailed, EventStatusDuplicate},
	EventStatusValidated: {EventStatusQueued, EventStatusFailed, EventStatusDuplicate},
	EventStatusQueued:    {EventStatusProcessed, EventStatusFailed},
}

// CanTransition reports whether moving an event from one status to another
// follows the state machine. Terminal states have no outgoing edges.
func CanTransition(from, to string) bool {
	for _, next := range eventTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status has no outgoing transitions.
func IsTerminalStatus(status string) bool {
	return len(eventTransitions[status]) == 0
}

// KnownStatus reports whether s is a member of the status enum.
func KnownStatus(s string) bool {
	switch s {
	case EventStatusReceived, EventStatusValidated, EventStatusQueued,
		EventStatusProcessed, EventStatusFailed, EventStatusDuplicate:
		return true
	}
	return false
}
