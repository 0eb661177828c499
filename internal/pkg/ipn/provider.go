package ipn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edupay/ipn-gateway/app/models"
)

// Provider parses one bank/MNO payload shape into the canonical payment.
// Implementations must not panic on malformed input; every failure comes
// back as a *ParseError so the pipeline can record it on the event.
type Provider interface {
	Kind() string
	Parse(raw []byte, integration *models.Integration) (*NormalizedPayment, error)
}

var providers = map[string]Provider{}

func registerProvider(p Provider) {
	providers[p.Kind()] = p
}

// ProviderFor returns the parser for an integration's provider kind.
func ProviderFor(integration *models.Integration) (Provider, error) {
	p, ok := providers[integration.Provider]
	if !ok {
		return nil, fmt.Errorf("no provider registered for kind %q", integration.Provider)
	}
	return p, nil
}

// ProviderKinds lists the registered provider kinds.
func ProviderKinds() []string {
	kinds := make([]string, 0, len(providers))
	for k := range providers {
		kinds = append(kinds, k)
	}
	return kinds
}

func init() {
	registerProvider(&mpesaProvider{})
	registerProvider(&airtelMoneyProvider{})
	registerProvider(&bankTransferProvider{})
}

// parseAmount accepts the amount spellings seen across providers: bare
// numbers, numeric strings, and strings with thousands separators.
func parseAmount(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not numeric", s)
	}
	return amount, nil
}

// NormalizePhone rewrites a provider-delivered MSISDN to E.164 using the
// integration's default country code for national formats. Returns "" when
// nothing usable remains.
func NormalizePhone(msisdn, countryCode string) string {
	var b strings.Builder
	hasPlus := strings.HasPrefix(strings.TrimSpace(msisdn), "+")
	for _, r := range msisdn {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	switch {
	case hasPlus:
		return "+" + digits
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:]
	case countryCode != "" && strings.HasPrefix(digits, "0"):
		return "+" + countryCode + digits[1:]
	case countryCode != "" && strings.HasPrefix(digits, countryCode):
		return "+" + digits
	case countryCode != "":
		return "+" + countryCode + digits
	default:
		return "+" + digits
	}
}

func joinName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
