package ipn

import (
	"fmt"
	"time"
)

// NormalizedPayment is the canonical record every provider payload is mapped
// into. Amounts are major units in the payment currency; phones are E.164;
// timestamps are UTC.
type NormalizedPayment struct {
	Amount            float64   `json:"amount" validate:"required,gt=0"`
	Currency          string    `json:"currency" validate:"required,len=3"`
	SenderName        string    `json:"sender_name"`
	SenderPhone       string    `json:"sender_phone" validate:"omitempty,e164"`
	ExternalReference string    `json:"external_reference"`
	BankReference     string    `json:"bank_reference"`
	PaidAt            time.Time `json:"paid_at"`
}

// Reference returns the reference used for deduplication and reconciliation:
// the external (payer-supplied) reference when present, otherwise the
// provider's own transaction reference.
func (p *NormalizedPayment) Reference() string {
	if p.ExternalReference != "" {
		return p.ExternalReference
	}
	return p.BankReference
}

// ParseError marks a payload the provider parser could not understand. It is
// a recorded outcome, not an escape hatch: the event keeps its raw payload
// and ends up failed with this message in its validation errors.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s payload parse failed: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
