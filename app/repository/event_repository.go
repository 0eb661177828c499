package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edupay/ipn-gateway/app/models"
)

var (
	// ErrInvalidTransition is returned when a status change does not follow
	// the event state machine.
	ErrInvalidTransition = errors.New("invalid event status transition")

	// ErrConcurrentTransition is returned when another writer moved the event
	// out of the expected status first.
	ErrConcurrentTransition = errors.New("event status changed concurrently")
)

// eventRepository implements the EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *models.IPNEvent) error {
	return r.db.Create(event).Error
}

func (r *eventRepository) GetByID(id uint) (*models.IPNEvent, error) {
	var event models.IPNEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) GetByUUID(uuid string) (*models.IPNEvent, error) {
	var event models.IPNEvent
	if err := r.db.Where("uuid = ?", uuid).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) filtered(filter EventFilter) *gorm.DB {
	q := r.db.Model(&models.IPNEvent{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IntegrationID != 0 {
		q = q.Where("integration_id = ?", filter.IntegrationID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where(
			"external_reference ILIKE ? OR bank_reference ILIKE ? OR sender_phone ILIKE ? OR sender_name ILIKE ?",
			like, like, like, like,
		)
	}
	return q
}

func (r *eventRepository) List(filter EventFilter) ([]models.IPNEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	var events []models.IPNEvent
	err := r.filtered(filter).
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) Count(filter EventFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

// Transition moves an event to the next status and applies the given column
// updates in the same statement. The WHERE clause on the current status makes
// concurrent writers lose cleanly instead of overwriting each other.
func (r *eventRepository) Transition(event *models.IPNEvent, to string, updates map[string]interface{}) error {
	if !models.KnownStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !models.CanTransition(event.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, event.Status, to)
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	tx := r.db.Model(&models.IPNEvent{}).
		Where("id = ? AND status = ?", event.ID, event.Status).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: event %d no longer %s", ErrConcurrentTransition, event.ID, event.Status)
	}

	return r.db.First(event, event.ID).Error
}

func (r *eventRepository) CountsByStatusToday() (StatusCounts, error) {
	type row struct {
		Status string
		Total  int64
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)

	var rows []row
	err := r.db.Model(&models.IPNEvent{}).
		Select("status, COUNT(*) AS total").
		Where("created_at >= ?", startOfDay).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(StatusCounts, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Total
	}
	return counts, nil
}

func (r *eventRepository) CountManualReview() (int64, error) {
	var count int64
	err := r.db.Model(&models.IPNEvent{}).
		Where("manual_review = ? AND status = ?", true, models.EventStatusFailed).
		Count(&count).Error
	return count, err
}

// ListStale returns events sitting in a non-terminal status longer than the
// given age, oldest first. These are events whose pipeline hand-off was lost
// (a failed enqueue, a crash between stages) and must be picked up again.
func (r *eventRepository) ListStale(status string, olderThan time.Duration, limit int) ([]models.IPNEvent, error) {
	cutoff := time.Now().Add(-olderThan)
	var events []models.IPNEvent
	err := r.db.Where("status = ? AND updated_at < ?", status, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// ClaimFingerprint atomically records the first event seen for a
// fingerprint. The unique index on the claim table arbitrates concurrent
// deliveries: exactly one insert wins, the rest see claimed=false and the
// original claim row.
func (r *eventRepository) ClaimFingerprint(fingerprint string, eventID uint) (bool, *models.FingerprintClaim, error) {
	claim := &models.FingerprintClaim{
		Fingerprint: fingerprint,
		EventID:     eventID,
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(claim)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	claimed := tx.RowsAffected > 0
	var stored models.FingerprintClaim
	if err := r.db.Where("fingerprint = ?", fingerprint).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return claimed, &stored, nil
}

// DeleteClaimsBefore drops claims older than the dedup window so the
// fingerprint can be seen again.
func (r *eventRepository) DeleteClaimsBefore(cutoff time.Time) (int64, error) {
	tx := r.db.Where("created_at < ?", cutoff).Delete(&models.FingerprintClaim{})
	return tx.RowsAffected, tx.Error
}
