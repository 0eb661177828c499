package ipn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/ipn-gateway/app/models"
)

func kesIntegration(provider string) *models.Integration {
	return &models.Integration{
		ID:          1,
		Slug:        "test-" + provider,
		Provider:    provider,
		CountryCode: "254",
		Currency:    "KES",
		Active:      true,
	}
}

func TestProviderFor(t *testing.T) {
	for _, kind := range []string{models.ProviderMpesa, models.ProviderAirtelMoney, models.ProviderBankTransfer} {
		p, err := ProviderFor(kesIntegration(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, p.Kind())
	}

	_, err := ProviderFor(&models.Integration{Provider: "paypal"})
	assert.Error(t, err)
}

func TestMpesaParse(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	raw := []byte(`{
		"TransactionType": "Pay Bill",
		"TransID": "RKTQDM7W6S",
		"TransTime": "20260115143022",
		"TransAmount": "500.00",
		"BusinessShortCode": "600638",
		"BillRefNumber": "QWE123",
		"MSISDN": "254708374149",
		"FirstName": "John",
		"MiddleName": "",
		"LastName": "Doe"
	}`)

	p, err := ProviderFor(integration)
	require.NoError(t, err)
	payment, err := p.Parse(raw, integration)
	require.NoError(t, err)

	assert.Equal(t, 500.0, payment.Amount)
	assert.Equal(t, "KES", payment.Currency)
	assert.Equal(t, "John Doe", payment.SenderName)
	assert.Equal(t, "+254708374149", payment.SenderPhone)
	assert.Equal(t, "QWE123", payment.ExternalReference)
	assert.Equal(t, "RKTQDM7W6S", payment.BankReference)

	// TransTime is Nairobi local time; 14:30:22 EAT is 11:30:22 UTC.
	expected := time.Date(2026, 1, 15, 11, 30, 22, 0, time.UTC)
	assert.Equal(t, expected, payment.PaidAt)
}

func TestMpesaParseAmountWithSeparators(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	raw := []byte(`{"TransID": "ABC", "TransAmount": "12,500.50"}`)

	payment, err := (&mpesaProvider{}).Parse(raw, integration)
	require.NoError(t, err)
	assert.Equal(t, 12500.50, payment.Amount)
}

func TestMpesaParseErrors(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"TransID": `},
		{"missing trans id", `{"TransAmount": "100"}`},
		{"bad amount", `{"TransID": "X", "TransAmount": "abc"}`},
		{"bad timestamp", `{"TransID": "X", "TransAmount": "100", "TransTime": "yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&mpesaProvider{}).Parse([]byte(tt.raw), integration)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, models.ProviderMpesa, parseErr.Provider)
		})
	}
}

func TestAirtelParse(t *testing.T) {
	integration := kesIntegration(models.ProviderAirtelMoney)
	raw := []byte(`{
		"transaction": {
			"id": "tx-9981",
			"airtel_money_id": "AM-20260115-001",
			"status_code": "TS",
			"amount": "1200",
			"currency": "UGX",
			"msisdn": "0701234567",
			"payer_name": "Mary Achieng",
			"created_at": "2026-01-15T09:00:00Z"
		},
		"reference": "INV-042"
	}`)

	payment, err := (&airtelMoneyProvider{}).Parse(raw, integration)
	require.NoError(t, err)

	assert.Equal(t, 1200.0, payment.Amount)
	assert.Equal(t, "UGX", payment.Currency)
	assert.Equal(t, "Mary Achieng", payment.SenderName)
	assert.Equal(t, "+254701234567", payment.SenderPhone)
	assert.Equal(t, "INV-042", payment.ExternalReference)
	assert.Equal(t, "AM-20260115-001", payment.BankReference)
	assert.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), payment.PaidAt)
}

func TestAirtelParseFallsBackToIntegrationCurrency(t *testing.T) {
	integration := kesIntegration(models.ProviderAirtelMoney)
	raw := []byte(`{"transaction": {"id": "tx-1", "amount": "50"}}`)

	payment, err := (&airtelMoneyProvider{}).Parse(raw, integration)
	require.NoError(t, err)
	assert.Equal(t, "KES", payment.Currency)
	assert.Equal(t, "tx-1", payment.BankReference)
}

func TestAirtelParseRejectsFailedCollections(t *testing.T) {
	integration := kesIntegration(models.ProviderAirtelMoney)
	raw := []byte(`{"transaction": {"id": "tx-2", "status_code": "TF", "amount": "50"}}`)

	_, err := (&airtelMoneyProvider{}).Parse(raw, integration)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "TF")
}

func TestBankTransferParse(t *testing.T) {
	integration := kesIntegration(models.ProviderBankTransfer)
	raw := []byte(`{
		"notification_type": "credit",
		"amount": 75000.00,
		"currency": "KES",
		"value_date": "2026-01-15",
		"narration": "SCHOOL FEES INV-042 JOHN DOE",
		"account_number": "0100123456",
		"bank_reference": "FT26015XYZQ",
		"payer_name": "JOHN DOE"
	}`)

	payment, err := (&bankTransferProvider{}).Parse(raw, integration)
	require.NoError(t, err)

	assert.Equal(t, 75000.0, payment.Amount)
	assert.Equal(t, "KES", payment.Currency)
	assert.Equal(t, "INV-042", payment.ExternalReference)
	assert.Equal(t, "FT26015XYZQ", payment.BankReference)
	assert.Equal(t, "JOHN DOE", payment.SenderName)
	assert.Empty(t, payment.SenderPhone)
}

func TestBankTransferParsePrefersPayerReference(t *testing.T) {
	integration := kesIntegration(models.ProviderBankTransfer)
	raw := []byte(`{
		"amount": 100,
		"bank_reference": "FT1",
		"payer_reference": "INV-100",
		"narration": "fees INV-999"
	}`)

	payment, err := (&bankTransferProvider{}).Parse(raw, integration)
	require.NoError(t, err)
	assert.Equal(t, "INV-100", payment.ExternalReference)
}

func TestBankTransferParseRejectsDebits(t *testing.T) {
	integration := kesIntegration(models.ProviderBankTransfer)
	raw := []byte(`{"notification_type": "debit", "amount": 100, "bank_reference": "FT2"}`)

	_, err := (&bankTransferProvider{}).Parse(raw, integration)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestReferenceFromNarration(t *testing.T) {
	tests := []struct {
		narration string
		want      string
	}{
		{"SCHOOL FEES INV-042 JOHN DOE", "INV-042"},
		{"payment for inv-007.", "inv-007"},
		{"INV/2026/001 term fees", "INV/2026/001"},
		{"no reference here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, referenceFromNarration(tt.narration), tt.narration)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name        string
		msisdn      string
		countryCode string
		want        string
	}{
		{"already international", "254708374149", "254", "+254708374149"},
		{"national format", "0708374149", "254", "+254708374149"},
		{"plus prefix preserved", "+254708374149", "254", "+254708374149"},
		{"double zero prefix", "00254708374149", "254", "+254708374149"},
		{"spaces and dashes stripped", "0708 374-149", "254", "+254708374149"},
		{"bare digits no country code", "708374149", "", "+708374149"},
		{"empty", "", "254", ""},
		{"no digits", "n/a", "254", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.msisdn, tt.countryCode))
		})
	}
}

func TestReferenceFallback(t *testing.T) {
	p := &NormalizedPayment{ExternalReference: "INV-1", BankReference: "FT9"}
	assert.Equal(t, "INV-1", p.Reference())

	p.ExternalReference = ""
	assert.Equal(t, "FT9", p.Reference())
}
