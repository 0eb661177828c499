package models

import "time"

// Invoice statuses.
const (
	InvoiceStatusUnpaid = "unpaid"
	InvoiceStatusPaid   = "paid"
)

// Invoice is the reconciliation target: the downstream worker matches queued
// payment events against unpaid invoices by reference and amount.
type Invoice struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Reference   string  `gorm:"type:varchar(191);not null;uniqueIndex" json:"reference"`
	StudentName string  `gorm:"type:varchar(191)" json:"student_name"`
	Amount      float64 `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency    string  `gorm:"type:varchar(3);not null" json:"currency"`
	Status      string  `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"status"`

	PaidAt     *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	IPNEventID *uint      `gorm:"index" json:"ipn_event_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
