package ipn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/ipn-gateway/app/models"
)

func validPayment() *NormalizedPayment {
	return &NormalizedPayment{
		Amount:            500,
		Currency:          "KES",
		SenderName:        "John Doe",
		SenderPhone:       "+254708374149",
		ExternalReference: "QWE123",
		BankReference:     "RKTQDM7W6S",
		PaidAt:            time.Now().UTC(),
	}
}

func TestValidateAcceptsValidPayment(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	assert.Empty(t, Validate(validPayment(), integration))
}

func TestValidateCollectsAllFailures(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	p := validPayment()
	p.Amount = 0
	p.Currency = "BTC"
	p.ExternalReference = ""
	p.BankReference = ""
	p.SenderPhone = "0708"

	errs := Validate(p, integration)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "amount")
	assert.Contains(t, errs[1], "currency")
	assert.Contains(t, errs[2], "reference")
	assert.Contains(t, errs[3], "phone")
}

func TestValidateRules(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	tests := []struct {
		name    string
		mutate  func(*NormalizedPayment)
		wantMsg string
	}{
		{"negative amount", func(p *NormalizedPayment) { p.Amount = -10 }, "amount"},
		{"unknown currency", func(p *NormalizedPayment) { p.Currency = "XXX" }, "currency"},
		{"no references at all", func(p *NormalizedPayment) {
			p.ExternalReference = ""
			p.BankReference = ""
		}, "reference"},
		{"malformed phone", func(p *NormalizedPayment) { p.SenderPhone = "not-a-phone" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayment()
			tt.mutate(p)
			errs := Validate(p, integration)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantMsg)
		})
	}
}

func TestValidateCurrencyCaseInsensitive(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	p := validPayment()
	p.Currency = "kes"
	assert.Empty(t, Validate(p, integration))
}

func TestValidateEmptyPhoneIsAllowed(t *testing.T) {
	// Bank transfers carry no MSISDN.
	integration := kesIntegration(models.ProviderBankTransfer)
	p := validPayment()
	p.SenderPhone = ""
	assert.Empty(t, Validate(p, integration))
}

func TestValidateInactiveIntegration(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	integration.Active = false

	errs := Validate(validPayment(), integration)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "disabled")
}

func TestValidateBankReferenceAloneSatisfiesReferenceRule(t *testing.T) {
	integration := kesIntegration(models.ProviderMpesa)
	p := validPayment()
	p.ExternalReference = ""
	assert.Empty(t, Validate(p, integration))
}
