package ipn

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/edupay/ipn-gateway/app/models"
)

// bankTransferProvider parses generic bank credit advice notifications.
// Amounts arrive as JSON numbers here, not strings, and only credits are
// payments; debit advices are rejected at parse time.
type bankTransferProvider struct{}

func (p *bankTransferProvider) Kind() string { return models.ProviderBankTransfer }

func (p *bankTransferProvider) Parse(raw []byte, integration *models.Integration) (*NormalizedPayment, error) {
	type rawPayload struct {
		NotificationType string  `json:"notification_type"`
		Amount           float64 `json:"amount"`
		Currency         string  `json:"currency"`
		ValueDate        string  `json:"value_date"`
		Narration        string  `json:"narration"`
		AccountNumber    string  `json:"account_number"`
		BankReference    string  `json:"bank_reference"`
		PayerName        string  `json:"payer_name"`
		PayerReference   string  `json:"payer_reference"`
	}

	var in rawPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &ParseError{Provider: p.Kind(), Err: err}
	}

	if t := strings.ToLower(strings.TrimSpace(in.NotificationType)); t != "" && t != "credit" {
		return nil, &ParseError{Provider: p.Kind(), Err: errors.New("notification_type " + t + " is not a credit advice")}
	}
	if strings.TrimSpace(in.BankReference) == "" {
		return nil, &ParseError{Provider: p.Kind(), Err: errors.New("missing bank_reference")}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = strings.ToUpper(integration.Currency)
	}

	paidAt := time.Now().UTC()
	if vd := strings.TrimSpace(in.ValueDate); vd != "" {
		t, terr := time.Parse("2006-01-02", vd)
		if terr != nil {
			return nil, &ParseError{Provider: p.Kind(), Err: terr}
		}
		paidAt = t.UTC()
	}

	external := strings.TrimSpace(in.PayerReference)
	if external == "" {
		external = referenceFromNarration(in.Narration)
	}

	return &NormalizedPayment{
		Amount:            in.Amount,
		Currency:          currency,
		SenderName:        strings.TrimSpace(in.PayerName),
		ExternalReference: external,
		BankReference:     strings.TrimSpace(in.BankReference),
		PaidAt:            paidAt,
	}, nil
}

// referenceFromNarration scans free-text narrations for an invoice-style
// token (e.g. "SCHOOL FEES INV-042 JOHN DOE" -> "INV-042").
func referenceFromNarration(narration string) string {
	for _, tok := range strings.Fields(narration) {
		upper := strings.ToUpper(tok)
		if strings.HasPrefix(upper, "INV-") || strings.HasPrefix(upper, "INV/") {
			return strings.Trim(tok, ".,;")
		}
	}
	return ""
}
