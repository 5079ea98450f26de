package repositories

import (
	"context"
	"fmt"

	"infinite-experiment/edigate/internal/constants"
	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"gorm.io/gorm"
)

// FieldMappingRepo stores the ordered mapping rules of partner + document type
type FieldMappingRepo struct {
	db *gorm.DB
}

func NewFieldMappingRepo(db *gorm.DB) *FieldMappingRepo {
	return &FieldMappingRepo{db: db}
}

// ListRules returns the rule set in position order. An empty slice means no
// mapping is configured.
func (r *FieldMappingRepo) ListRules(ctx context.Context, partnerID string, docType constants.DocumentType) ([]gormModels.EdiFieldMapping, error) {
	var rules []gormModels.EdiFieldMapping

	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND document_type = ?", partnerID, docType).
		Order("position").
		Find(&rules).Error

	if err != nil {
		return nil, fmt.Errorf("failed to fetch field mappings: %w", err)
	}
	return rules, nil
}

// ReplaceRules swaps the whole rule set atomically. Positions are assigned
// from slice order.
func (r *FieldMappingRepo) ReplaceRules(ctx context.Context, tenantID, partnerID string, docType constants.DocumentType, rules []gormModels.EdiFieldMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("partner_id = ? AND document_type = ?", partnerID, docType).
			Delete(&gormModels.EdiFieldMapping{}).Error; err != nil {
			return fmt.Errorf("failed to clear field mappings: %w", err)
		}
		if len(rules) == 0 {
			return nil
		}
		for i := range rules {
			rules[i].ID = ""
			rules[i].TenantID = tenantID
			rules[i].PartnerID = partnerID
			rules[i].DocumentType = docType
			rules[i].Position = i
		}
		if err := tx.Create(&rules).Error; err != nil {
			return fmt.Errorf("failed to save field mappings: %w", err)
		}
		return nil
	})
}
