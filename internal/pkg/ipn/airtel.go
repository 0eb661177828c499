package ipn

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/edupay/ipn-gateway/app/models"
)

// airtelMoneyProvider parses Airtel Money collection callbacks. The payment
// data sits under a "transaction" envelope; status_code "TS" means success,
// everything else is a failed collection attempt that we refuse to normalize
// into a payment.
type airtelMoneyProvider struct{}

func (p *airtelMoneyProvider) Kind() string { return models.ProviderAirtelMoney }

func (p *airtelMoneyProvider) Parse(raw []byte, integration *models.Integration) (*NormalizedPayment, error) {
	type rawPayload struct {
		Transaction struct {
			ID            string `json:"id"`
			AirtelMoneyID string `json:"airtel_money_id"`
			StatusCode    string `json:"status_code"`
			Amount        string `json:"amount"`
			Currency      string `json:"currency"`
			MSISDN        string `json:"msisdn"`
			PayerName     string `json:"payer_name"`
			CreatedAt     string `json:"created_at"`
		} `json:"transaction"`
		Reference string `json:"reference"`
	}

	var in rawPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &ParseError{Provider: p.Kind(), Err: err}
	}

	tx := in.Transaction
	if strings.TrimSpace(tx.ID) == "" && strings.TrimSpace(tx.AirtelMoneyID) == "" {
		return nil, &ParseError{Provider: p.Kind(), Err: errors.New("missing transaction id")}
	}
	if code := strings.ToUpper(strings.TrimSpace(tx.StatusCode)); code != "" && code != "TS" {
		return nil, &ParseError{Provider: p.Kind(), Err: errors.New("transaction status_code " + code + " is not a settled payment")}
	}

	amount, err := parseAmount(tx.Amount)
	if err != nil {
		return nil, &ParseError{Provider: p.Kind(), Err: err}
	}

	currency := strings.ToUpper(strings.TrimSpace(tx.Currency))
	if currency == "" {
		currency = strings.ToUpper(integration.Currency)
	}

	paidAt := time.Now().UTC()
	if ts := strings.TrimSpace(tx.CreatedAt); ts != "" {
		t, terr := time.Parse(time.RFC3339, ts)
		if terr != nil {
			return nil, &ParseError{Provider: p.Kind(), Err: terr}
		}
		paidAt = t.UTC()
	}

	bankRef := strings.TrimSpace(tx.AirtelMoneyID)
	if bankRef == "" {
		bankRef = strings.TrimSpace(tx.ID)
	}

	return &NormalizedPayment{
		Amount:            amount,
		Currency:          currency,
		SenderName:        strings.TrimSpace(tx.PayerName),
		SenderPhone:       NormalizePhone(tx.MSISDN, integration.CountryCode),
		ExternalReference: strings.TrimSpace(in.Reference),
		BankReference:     bankRef,
		PaidAt:            paidAt,
	}, nil
}
