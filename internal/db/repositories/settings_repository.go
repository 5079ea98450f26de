package repositories

import (
	"context"
	"errors"
	"fmt"

	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"gorm.io/gorm"
)

// SettingsRepo handles the per-tenant EDI identity and key pair
type SettingsRepo struct {
	db *gorm.DB
}

func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// GetByTenant returns the tenant's settings, or nil when none are stored
func (r *SettingsRepo) GetByTenant(ctx context.Context, tenantID string) (*gormModels.EdiSettings, error) {
	var s gormModels.EdiSettings

	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&s).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch edi settings: %w", err)
	}
	return &s, nil
}

// FindByAS2ID resolves the tenant addressed by an inbound AS2-To header
func (r *SettingsRepo) FindByAS2ID(ctx context.Context, as2To string) (*gormModels.EdiSettings, error) {
	var s gormModels.EdiSettings

	err := r.db.WithContext(ctx).
		Where("as2_id = ?", as2To).
		First(&s).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch edi settings: %w", err)
	}
	return &s, nil
}

// Upsert creates the tenant's settings or replaces the stored values
func (r *SettingsRepo) Upsert(ctx context.Context, s *gormModels.EdiSettings) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing gormModels.EdiSettings
		err := tx.Where("tenant_id = ?", s.TenantID).First(&existing).Error
		switch {
		case err == nil:
			s.ID = existing.ID
			s.CreatedAt = existing.CreatedAt
			return tx.Save(s).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(s).Error
		default:
			return err
		}
	})
	if err != nil {
		return fmt.Errorf("failed to save edi settings: %w", err)
	}
	return nil
}
