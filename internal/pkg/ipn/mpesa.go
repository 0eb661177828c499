package ipn

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/edupay/ipn-gateway/app/models"
)

// mpesaTransTimeLayout is Safaricom's compact timestamp (yyyyMMddHHmmss),
// delivered in Nairobi local time.
const mpesaTransTimeLayout = "20060102150405"

var nairobi = time.FixedZone("EAT", 3*60*60)

// mpesaProvider parses M-Pesa C2B payment confirmation callbacks.
type mpesaProvider struct{}

func (p *mpesaProvider) Kind() string { return models.ProviderMpesa }

func (p *mpesaProvider) Parse(raw []byte, integration *models.Integration) (*NormalizedPayment, error) {
	type rawPayload struct {
		TransactionType   string `json:"TransactionType"`
		TransID           string `json:"TransID"`
		TransTime         string `json:"TransTime"`
		TransAmount       string `json:"TransAmount"`
		BusinessShortCode string `json:"BusinessShortCode"`
		BillRefNumber     string `json:"BillRefNumber"`
		MSISDN            string `json:"MSISDN"`
		FirstName         string `json:"FirstName"`
		MiddleName        string `json:"MiddleName"`
		LastName          string `json:"LastName"`
	}

	var in rawPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &ParseError{Provider: p.Kind(), Err: err}
	}
	if strings.TrimSpace(in.TransID) == "" {
		return nil, &ParseError{Provider: p.Kind(), Err: errors.New("missing TransID")}
	}

	amount, err := parseAmount(in.TransAmount)
	if err != nil {
		return nil, &ParseError{Provider: p.Kind(), Err: err}
	}

	paidAt := time.Now().UTC()
	if ts := strings.TrimSpace(in.TransTime); ts != "" {
		t, terr := time.ParseInLocation(mpesaTransTimeLayout, ts, nairobi)
		if terr != nil {
			return nil, &ParseError{Provider: p.Kind(), Err: terr}
		}
		paidAt = t.UTC()
	}

	currency := integration.Currency
	if currency == "" {
		// M-Pesa confirmations never carry a currency field.
		currency = "KES"
	}

	return &NormalizedPayment{
		Amount:            amount,
		Currency:          strings.ToUpper(currency),
		SenderName:        joinName(in.FirstName, in.MiddleName, in.LastName),
		SenderPhone:       NormalizePhone(in.MSISDN, integration.CountryCode),
		ExternalReference: strings.TrimSpace(in.BillRefNumber),
		BankReference:     strings.TrimSpace(in.TransID),
		PaidAt:            paidAt,
	}, nil
}
