package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"

	"infinite-experiment/edigate/internal/constants"
)

// EdiFieldMapping is one ordered rule of a partner + document type rule set
type EdiFieldMapping struct {
	ID           string                 `gorm:"column:id;primaryKey;type:uuid"`
	TenantID     string                 `gorm:"column:tenant_id;type:uuid;not null"`
	PartnerID    string                 `gorm:"column:partner_id;type:uuid;not null;index:idx_edi_mapping_scope"`
	DocumentType constants.DocumentType `gorm:"column:document_type;type:varchar(3);not null;index:idx_edi_mapping_scope"`
	Position     int                    `gorm:"column:position;not null"`
	SourceField  string                 `gorm:"column:source_field;not null"`
	TargetField  string                 `gorm:"column:target_field;not null"`
	Transform    string                 `gorm:"column:transform;type:varchar(20)"`
	DefaultValue *string                `gorm:"column:default_value"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (EdiFieldMapping) TableName() string {
	return "edi_field_mappings"
}

func (m *EdiFieldMapping) BeforeCreate(tx *gormlib.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
