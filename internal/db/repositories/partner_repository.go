package repositories

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/edigate/internal/constants"
	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by mutations whose target row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a status change would move a
	// transaction backwards in its lifecycle
	ErrInvalidTransition = errors.New("invalid transaction status transition")
)

// PartnerRepo handles trading partner table operations
type PartnerRepo struct {
	db *gorm.DB
}

func NewPartnerRepo(db *gorm.DB) *PartnerRepo {
	return &PartnerRepo{db: db}
}

// Create validates and inserts a partner
func (r *PartnerRepo) Create(ctx context.Context, p *gormModels.TradingPartner) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create trading partner: %w", err)
	}
	return nil
}

// Update validates and saves every column of the partner
func (r *PartnerRepo) Update(ctx context.Context, p *gormModels.TradingPartner) error {
	if err := p.Validate(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&gormModels.TradingPartner{}).
		Where("id = ? AND tenant_id = ?", p.ID, p.TenantID).
		Select("*").
		Omit("id", "tenant_id", "created_at").
		Updates(p)
	if result.Error != nil {
		return fmt.Errorf("failed to update trading partner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive toggles whether the partner exchanges documents
func (r *PartnerRepo) SetActive(ctx context.Context, tenantID, partnerID string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.TradingPartner{}).
		Where("id = ? AND tenant_id = ?", partnerID, tenantID).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update trading partner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a tenant's partner, or nil when it does not exist
func (r *PartnerRepo) Get(ctx context.Context, tenantID, partnerID string) (*gormModels.TradingPartner, error) {
	var p gormModels.TradingPartner

	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", partnerID, tenantID).
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch trading partner: %w", err)
	}
	return &p, nil
}

// ListByTenant returns all partners of a tenant ordered by name
func (r *PartnerRepo) ListByTenant(ctx context.Context, tenantID string) ([]gormModels.TradingPartner, error) {
	var partners []gormModels.TradingPartner

	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name").
		Find(&partners).Error

	if err != nil {
		return nil, fmt.Errorf("failed to fetch trading partners: %w", err)
	}
	return partners, nil
}

// ListActiveSFTP returns every active SFTP partner across tenants
func (r *PartnerRepo) ListActiveSFTP(ctx context.Context) ([]gormModels.TradingPartner, error) {
	var partners []gormModels.TradingPartner

	err := r.db.WithContext(ctx).
		Where("communication_method = ? AND is_active = ?", constants.CommunicationSFTP, true).
		Order("created_at").
		Find(&partners).Error

	if err != nil {
		return nil, fmt.Errorf("failed to fetch sftp partners: %w", err)
	}
	return partners, nil
}

// FindByAS2ID resolves the active AS2 partner sending as as2From.
// Returns nil when no partner matches.
func (r *PartnerRepo) FindByAS2ID(ctx context.Context, as2From string) (*gormModels.TradingPartner, error) {
	var p gormModels.TradingPartner

	err := r.db.WithContext(ctx).
		Where("as2_id = ? AND communication_method = ? AND is_active = ?", as2From, constants.CommunicationAS2, true).
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch trading partner: %w", err)
	}
	return &p, nil
}

// FindByAS2IDInTenant is FindByAS2ID limited to the tenant addressed by AS2-To
func (r *PartnerRepo) FindByAS2IDInTenant(ctx context.Context, tenantID, as2From string) (*gormModels.TradingPartner, error) {
	var p gormModels.TradingPartner

	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND as2_id = ? AND communication_method = ? AND is_active = ?",
			tenantID, as2From, constants.CommunicationAS2, true).
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch trading partner: %w", err)
	}
	return &p, nil
}
