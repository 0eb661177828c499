package repository

import (
	"gorm.io/gorm"

	"github.com/edupay/ipn-gateway/app/models"
)

// integrationRepository implements the IntegrationRepository interface
type integrationRepository struct {
	db *gorm.DB
}

// NewIntegrationRepository creates a new integration repository instance
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) Create(integration *models.Integration) error {
	return r.db.Create(integration).Error
}

func (r *integrationRepository) GetByID(id uint) (*models.Integration, error) {
	var integration models.Integration
	if err := r.db.First(&integration, id).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *integrationRepository) GetBySlug(slug string) (*models.Integration, error) {
	var integration models.Integration
	if err := r.db.Where("slug = ?", slug).First(&integration).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *integrationRepository) List() ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.Order("name ASC").Find(&integrations).Error
	return integrations, err
}

func (r *integrationRepository) ListActive() ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.Where("active = ?", true).Order("name ASC").Find(&integrations).Error
	return integrations, err
}

func (r *integrationRepository) Update(integration *models.Integration) error {
	return r.db.Save(integration).Error
}
