package repositories

import (
	"gorm.io/gorm"

	"kobapay/internal/models"
)

// LocationRepository serves the country/state/city reference tables.
type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Countries() ([]models.Country, error) {
	var countries []models.Country
	err := r.db.Where("is_active = ?", true).Order("name").Find(&countries).Error
	return countries, err
}

func (r *LocationRepository) StatesByCountry(countryID uint) ([]models.State, error) {
	var states []models.State
	err := r.db.Where("country_id = ? AND is_active = ?", countryID, true).
		Order("name").Find(&states).Error
	return states, err
}

func (r *LocationRepository) CitiesByState(stateID uint) ([]models.City, error) {
	var cities []models.City
	err := r.db.Where("state_id = ? AND is_active = ?", stateID, true).
		Order("name").Find(&cities).Error
	return cities, err
}

// MediaRepository serves the media catalog and uploaded file records.
type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) List() ([]models.Media, error) {
	var media []models.Media
	err := r.db.Order("name").Find(&media).Error
	return media, err
}

func (r *MediaRepository) FindByName(name string) (*models.Media, error) {
	var media models.Media
	if err := r.db.Where("name = ?", name).First(&media).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *MediaRepository) CreateUpload(upload *models.UploadedMedia) error {
	return r.db.Create(upload).Error
}

func (r *MediaRepository) FindUpload(id uint) (*models.UploadedMedia, error) {
	var upload models.UploadedMedia
	if err := r.db.First(&upload, id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// AuditRepository persists request logs and activity reports.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) CreateRequestLog(log *models.APIRequestLog) error {
	return r.db.Create(log).Error
}

// UpdateRequestLog fills in the response side of an existing log row by its
// correlation ref.
func (r *AuditRepository) UpdateRequestLog(refID string, fields map[string]any) error {
	return r.db.Model(&models.APIRequestLog{}).Where("ref_id = ?", refID).Updates(fields).Error
}

func (r *AuditRepository) CreateActivity(activity *models.Activity) error {
	return r.db.Create(activity).Error
}
