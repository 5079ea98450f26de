package gorm

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"

	"infinite-experiment/edigate/internal/constants"
)

// TradingPartner is an external party exchanging EDI documents with a tenant.
// Exactly one of the AS2 or SFTP configuration blocks is populated, matching
// CommunicationMethod.
type TradingPartner struct {
	ID                  string                        `gorm:"column:id;primaryKey;type:uuid"`
	TenantID            string                        `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name                string                        `gorm:"column:name;not null"`
	CommunicationMethod constants.CommunicationMethod `gorm:"column:communication_method;type:varchar(10);not null"`
	IsActive            bool                          `gorm:"column:is_active;default:true"`

	// Document exchange preferences
	DocumentFormat      constants.DocumentFormat `gorm:"column:document_format;type:varchar(10);default:'x12'"`
	DefaultDocumentType constants.DocumentType   `gorm:"column:default_document_type;type:varchar(3)"`
	X12SenderID         string                   `gorm:"column:x12_sender_id"`
	X12ReceiverID       string                   `gorm:"column:x12_receiver_id"`
	AutoAcknowledge     bool                     `gorm:"column:auto_acknowledge;default:false"`

	// AS2
	AS2ID              string `gorm:"column:as2_id;index"`
	AS2URL             string `gorm:"column:as2_url"`
	PartnerCertificate string `gorm:"column:partner_certificate;type:text"`
	RequestMDN         bool   `gorm:"column:request_mdn;default:true"`

	// SFTP
	SFTPHost        string `gorm:"column:sftp_host"`
	SFTPPort        int    `gorm:"column:sftp_port"`
	SFTPUsername    string `gorm:"column:sftp_username"`
	SFTPPassword    string `gorm:"column:sftp_password"`
	SFTPPrivateKey  string `gorm:"column:sftp_private_key;type:text"`
	SFTPHostKey     string `gorm:"column:sftp_host_key"`
	SFTPIncomingDir string `gorm:"column:sftp_incoming_dir"`
	SFTPOutgoingDir string `gorm:"column:sftp_outgoing_dir"`
	PollSchedule    string `gorm:"column:poll_schedule"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (TradingPartner) TableName() string {
	return "edi_trading_partners"
}

func (p *TradingPartner) BeforeCreate(tx *gormlib.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// UsesSFTP reports whether the partner is polled on a schedule
func (p *TradingPartner) UsesSFTP() bool {
	return p.CommunicationMethod == constants.CommunicationSFTP
}

func (p *TradingPartner) hasAS2Config() bool {
	return p.AS2ID != "" || p.AS2URL != "" || p.PartnerCertificate != ""
}

func (p *TradingPartner) hasSFTPConfig() bool {
	return p.SFTPHost != "" || p.SFTPUsername != "" || p.SFTPIncomingDir != "" || p.PollSchedule != ""
}

// Validate checks that exactly one communication block is populated and that
// it agrees with CommunicationMethod.
func (p *TradingPartner) Validate() error {
	if strings.TrimSpace(p.TenantID) == "" {
		return fmt.Errorf("tenant id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("partner name is required")
	}
	if p.DocumentFormat != "" && !p.DocumentFormat.IsValid() {
		return fmt.Errorf("unsupported document format %q", p.DocumentFormat)
	}
	if p.DefaultDocumentType != "" && !p.DefaultDocumentType.IsValid() {
		return fmt.Errorf("unsupported document type %q", p.DefaultDocumentType)
	}

	switch p.CommunicationMethod {
	case constants.CommunicationAS2:
		if p.hasSFTPConfig() {
			return fmt.Errorf("as2 partner must not carry sftp configuration")
		}
		if p.AS2ID == "" {
			return fmt.Errorf("as2 partner requires an AS2 identifier")
		}
	case constants.CommunicationSFTP:
		if p.hasAS2Config() {
			return fmt.Errorf("sftp partner must not carry as2 configuration")
		}
		if p.SFTPHost == "" || p.SFTPUsername == "" {
			return fmt.Errorf("sftp partner requires host and username")
		}
		if p.SFTPIncomingDir == "" || p.PollSchedule == "" {
			return fmt.Errorf("sftp partner requires an incoming directory and poll schedule")
		}
	default:
		return fmt.Errorf("unsupported communication method %q", p.CommunicationMethod)
	}
	return nil
}
