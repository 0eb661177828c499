package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/edupay/ipn-gateway/app/models"
)

// invoiceRepository implements the InvoiceRepository interface
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *invoiceRepository) GetByReference(reference string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Where("reference = ?", reference).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) GetUnpaidByReference(reference string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Where("reference = ? AND status = ?", reference, models.InvoiceStatusUnpaid).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MarkPaid settles an invoice against the event that paid it. The status
// guard keeps a second settlement attempt from clobbering the first.
func (r *invoiceRepository) MarkPaid(invoice *models.Invoice, eventID uint) error {
	now := time.Now()
	tx := r.db.Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoice.ID, models.InvoiceStatusUnpaid).
		Updates(map[string]interface{}{
			"status":       models.InvoiceStatusPaid,
			"paid_at":      &now,
			"ipn_event_id": eventID,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.First(invoice, invoice.ID).Error
}
