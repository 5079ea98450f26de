package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// EdiSettings holds a tenant's own AS2 identity and key pair
type EdiSettings struct {
	ID          string    `gorm:"column:id;primaryKey;type:uuid"`
	TenantID    string    `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex"`
	CompanyName string    `gorm:"column:company_name"`
	AS2ID       string    `gorm:"column:as2_id;index"`
	X12SenderID string    `gorm:"column:x12_sender_id"`
	Certificate string    `gorm:"column:certificate;type:text"`
	PrivateKey  string    `gorm:"column:private_key;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (EdiSettings) TableName() string {
	return "edi_settings"
}

func (s *EdiSettings) BeforeCreate(tx *gormlib.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
