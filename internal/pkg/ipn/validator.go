package ipn

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edupay/ipn-gateway/app/models"
)

// AcceptedCurrencies is the whitelist for incoming payments.
var AcceptedCurrencies = []string{"KES", "TZS", "UGX", "USD", "EUR"}

var fieldValidator = validator.New()

// rule is one ordered business check. Rules return "" when satisfied.
type rule func(p *NormalizedPayment, integration *models.Integration) string

// validationRules run in order; every failing rule contributes a message so
// operators see the complete diagnostic, not just the first hit.
var validationRules = []rule{
	func(p *NormalizedPayment, _ *models.Integration) string {
		if p.Amount <= 0 {
			return fmt.Sprintf("amount must be greater than zero, got %.2f", p.Amount)
		}
		return ""
	},
	func(p *NormalizedPayment, _ *models.Integration) string {
		currency := strings.ToUpper(p.Currency)
		for _, c := range AcceptedCurrencies {
			if c == currency {
				return ""
			}
		}
		return fmt.Sprintf("currency %q is not accepted", p.Currency)
	},
	func(p *NormalizedPayment, _ *models.Integration) string {
		if p.Reference() == "" {
			return "an external or bank reference is required"
		}
		return ""
	},
	func(p *NormalizedPayment, _ *models.Integration) string {
		if p.SenderPhone == "" {
			return ""
		}
		if err := fieldValidator.Var(p.SenderPhone, "e164"); err != nil {
			return fmt.Sprintf("sender phone %q is not a valid E.164 number", p.SenderPhone)
		}
		return ""
	},
	func(_ *NormalizedPayment, integration *models.Integration) string {
		if integration == nil {
			return "integration is unknown"
		}
		if !integration.Active {
			return fmt.Sprintf("integration %q is disabled", integration.Slug)
		}
		return ""
	},
}

// Validate runs all business rules and returns every failure in rule order.
// An empty slice means the payment is valid.
func Validate(p *NormalizedPayment, integration *models.Integration) []string {
	var errs []string
	for _, r := range validationRules {
		if msg := r(p, integration); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}
