package models

import "time"

// Provider kinds select the payload parser for an integration.
const (
	ProviderMpesa        = "mpesa"
	ProviderAirtelMoney  = "airtel_money"
	ProviderBankTransfer = "bank_transfer"
)

// Auth schemes for inbound webhook requests. Which one applies is
// provider-dependent and configured per integration.
const (
	AuthSchemeHMACSHA256   = "hmac_sha256"
	AuthSchemeSharedSecret = "shared_secret"
	AuthSchemeIPAllowlist  = "ip_allowlist"
)

// Integration is one configured bank or mobile-money provider endpoint. The
// slug appears in the webhook URL; the secret backs signature or shared-token
// verification depending on AuthScheme.
type Integration struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"type:varchar(100);not null" json:"name"`
	Slug       string `gorm:"type:varchar(50);not null;uniqueIndex" json:"slug"`
	Provider   string `gorm:"type:varchar(30);not null;index" json:"provider"`
	AuthScheme string `gorm:"type:varchar(30);not null;default:'shared_secret'" json:"auth_scheme"`
	Secret     string `gorm:"type:varchar(191)" json:"-"`
	AllowedIPs string `gorm:"type:text" json:"allowed_ips"`

	// CountryCode is the default E.164 prefix (e.g. "254") used when a
	// provider delivers national-format phone numbers. Currency fills in for
	// providers whose payloads carry no currency field.
	CountryCode string `gorm:"type:varchar(4)" json:"country_code"`
	Currency    string `gorm:"type:varchar(3);default:'KES'" json:"currency"`

	Active bool `gorm:"default:true;index" json:"active"`

	// Counters accumulated in Redis and flushed in batches.
	ReceivedCount  int64 `gorm:"default:0" json:"received_count"`
	ProcessedCount int64 `gorm:"default:0" json:"processed_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
