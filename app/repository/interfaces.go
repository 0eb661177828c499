package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/edupay/ipn-gateway/app/models"
)

// MaxPageSize caps event listing; the monitoring client never reads more
// than one page of 100 at a time.
const MaxPageSize = 100

// EventFilter narrows event listings. Zero values mean "no constraint";
// Search matches references, sender phone and sender name.
type EventFilter struct {
	Status        string
	IntegrationID uint
	Search        string
	Offset        int
	Limit         int
}

// StatusCounts holds per-status totals for a time window.
type StatusCounts map[string]int64

// EventRepository defines the interface for IPN event persistence. Status
// mutations go through Transition, which enforces the forward-only state
// machine; there is no generic Update and no Delete.
type EventRepository interface {
	Create(event *models.IPNEvent) error
	GetByID(id uint) (*models.IPNEvent, error)
	GetByUUID(uuid string) (*models.IPNEvent, error)
	List(filter EventFilter) ([]models.IPNEvent, error)
	Count(filter EventFilter) (int64, error)
	Transition(event *models.IPNEvent, to string, updates map[string]interface{}) error
	CountsByStatusToday() (StatusCounts, error)
	CountManualReview() (int64, error)
	ListStale(status string, olderThan time.Duration, limit int) ([]models.IPNEvent, error)
	ClaimFingerprint(fingerprint string, eventID uint) (bool, *models.FingerprintClaim, error)
	DeleteClaimsBefore(cutoff time.Time) (int64, error)
}

// IntegrationRepository defines the interface for provider configurations.
type IntegrationRepository interface {
	Create(integration *models.Integration) error
	GetByID(id uint) (*models.Integration, error)
	GetBySlug(slug string) (*models.Integration, error)
	List() ([]models.Integration, error)
	ListActive() ([]models.Integration, error)
	Update(integration *models.Integration) error
}

// InvoiceRepository defines the interface for reconciliation targets.
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByReference(reference string) (*models.Invoice, error)
	GetUnpaidByReference(reference string) (*models.Invoice, error)
	MarkPaid(invoice *models.Invoice, eventID uint) error
}

// QueueRepository defines read-only Redis introspection used by the
// monitoring surface (queue depths, job stats).
type QueueRepository interface {
	GetListLength(key string) (int64, error)
	GetHashAll(key string) (map[string]string, error)
	GetValue(key string) (string, error)
	Ping() error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Event       EventRepository
	Integration IntegrationRepository
	Invoice     InvoiceRepository
	Queue       QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Event:       NewEventRepository(db),
		Integration: NewIntegrationRepository(db),
		Invoice:     NewInvoiceRepository(db),
		Queue:       NewQueueRepository(),
	}
}
