package models

import "time"

// FingerprintClaim marks a payment fingerprint as owned by the first event
// that reached deduplication with it. The unique index makes the
// check-and-mark a single atomic insert; claims older than the dedup window
// are swept so a genuine re-payment is not flagged as a duplicate forever.
type FingerprintClaim struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Fingerprint string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"fingerprint"`
	EventID     uint      `gorm:"not null;index" json:"event_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
