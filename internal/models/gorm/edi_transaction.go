package gorm

import (
	"time"

	"infinite-experiment/edigate/internal/constants"
)

// EdiTransaction is the append-mostly log of one document exchange.
// ID is generated by the repository; TransactionNumber is the display number
// derived from a database sequence.
type EdiTransaction struct {
	ID                string                      `gorm:"column:id;primaryKey;type:uuid"`
	TenantID          string                      `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_edi_tx_tenant_number"`
	TransactionNumber string                      `gorm:"column:transaction_number;not null;uniqueIndex:idx_edi_tx_tenant_number"`
	Sequence          int64                       `gorm:"column:sequence;not null;index"`
	PartnerID         string                      `gorm:"column:partner_id;type:uuid;index"`
	Direction         constants.Direction         `gorm:"column:direction;type:varchar(10);not null"`
	DocumentType      constants.DocumentType      `gorm:"column:document_type;type:varchar(3);not null"`
	Format            constants.DocumentFormat    `gorm:"column:format;type:varchar(10);not null"`
	Status            constants.TransactionStatus `gorm:"column:status;type:varchar(20);not null;index"`
	FileName          string                      `gorm:"column:file_name"`
	RawContent        string                      `gorm:"column:raw_content;type:text"`
	ParsedContent     string                      `gorm:"column:parsed_content;type:text"`
	MessageID         string                      `gorm:"column:message_id;index"`
	ControlNumber     string                      `gorm:"column:control_number;index"`
	ErrorMessage      string                      `gorm:"column:error_message;type:text"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
	ProcessedAt       *time.Time                  `gorm:"column:processed_at"`
}

func (EdiTransaction) TableName() string {
	return "edi_transactions"
}

// TransactionCounter backs the row-locked sequence used where no native
// database sequence exists.
type TransactionCounter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}

func (TransactionCounter) TableName() string {
	return "edi_transaction_counters"
}
