package repositories

import (
	"context"
	"errors"
	"fmt"

	"mythmanga/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository reads and writes the single site settings row.
type SettingsRepository interface {
	// Get returns the stored settings, or the defaults when no row exists yet.
	Get(ctx context.Context) (models.SiteSettings, error)
	Save(ctx context.Context, settings models.SiteSettings) error
}

// GORMSettingsRepository is a GORM implementation of SettingsRepository.
type GORMSettingsRepository struct {
	db *gorm.DB
}

// NewGORMSettingsRepository creates a new instance of GORMSettingsRepository.
func NewGORMSettingsRepository(db *gorm.DB) *GORMSettingsRepository {
	return &GORMSettingsRepository{db: db}
}

func (r *GORMSettingsRepository) Get(ctx context.Context) (models.SiteSettings, error) {
	var settings models.SiteSettings
	err := r.db.WithContext(ctx).First(&settings, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSiteSettings(), nil
	}
	if err != nil {
		return models.SiteSettings{}, fmt.Errorf("failed to load site settings: %w", err)
	}
	return settings, nil
}

func (r *GORMSettingsRepository) Save(ctx context.Context, settings models.SiteSettings) error {
	settings.ID = 1
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&settings).Error
	if err != nil {
		return fmt.Errorf("failed to save site settings: %w", err)
	}
	return nil
}
