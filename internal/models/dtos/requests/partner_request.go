package requests

import (
	"infinite-experiment/edigate/internal/constants"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// PartnerRequest is the body of partner create and update calls. Secret
// fields left blank on update keep their stored value.
type PartnerRequest struct {
	Name                string                        `json:"name" validate:"required"`
	CommunicationMethod constants.CommunicationMethod `json:"communication_method" validate:"required"`
	IsActive            *bool                         `json:"is_active,omitempty"`

	DocumentFormat      constants.DocumentFormat `json:"document_format,omitempty"`
	DefaultDocumentType constants.DocumentType   `json:"default_document_type,omitempty"`
	X12SenderID         string                   `json:"x12_sender_id,omitempty"`
	X12ReceiverID       string                   `json:"x12_receiver_id,omitempty"`
	AutoAcknowledge     bool                     `json:"auto_acknowledge"`

	AS2ID              string `json:"as2_id,omitempty"`
	AS2URL             string `json:"as2_url,omitempty"`
	PartnerCertificate string `json:"partner_certificate,omitempty"`
	RequestMDN         *bool  `json:"request_mdn,omitempty"`

	SFTPHost        string `json:"sftp_host,omitempty"`
	SFTPPort        int    `json:"sftp_port,omitempty"`
	SFTPUsername    string `json:"sftp_username,omitempty"`
	SFTPPassword    string `json:"sftp_password,omitempty"`
	SFTPPrivateKey  string `json:"sftp_private_key,omitempty"`
	SFTPHostKey     string `json:"sftp_host_key,omitempty"`
	SFTPIncomingDir string `json:"sftp_incoming_dir,omitempty"`
	SFTPOutgoingDir string `json:"sftp_outgoing_dir,omitempty"`
	PollSchedule    string `json:"poll_schedule,omitempty"`
}

// ToModel builds a new partner for tenantID. Active and MDN requests
// default to true.
func (r *PartnerRequest) ToModel(tenantID string) *gormModels.TradingPartner {
	p := &gormModels.TradingPartner{
		TenantID:   tenantID,
		IsActive:   true,
		RequestMDN: true,
	}
	r.ApplyTo(p)
	return p
}

// ApplyTo overwrites p's configuration with the request
func (r *PartnerRequest) ApplyTo(p *gormModels.TradingPartner) {
	p.Name = r.Name
	p.CommunicationMethod = r.CommunicationMethod
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}

	p.DocumentFormat = r.DocumentFormat
	p.DefaultDocumentType = r.DefaultDocumentType
	p.X12SenderID = r.X12SenderID
	p.X12ReceiverID = r.X12ReceiverID
	p.AutoAcknowledge = r.AutoAcknowledge

	p.AS2ID = r.AS2ID
	p.AS2URL = r.AS2URL
	p.PartnerCertificate = r.PartnerCertificate
	if r.RequestMDN != nil {
		p.RequestMDN = *r.RequestMDN
	}

	p.SFTPHost = r.SFTPHost
	p.SFTPPort = r.SFTPPort
	p.SFTPUsername = r.SFTPUsername
	p.SFTPHostKey = r.SFTPHostKey
	p.SFTPIncomingDir = r.SFTPIncomingDir
	p.SFTPOutgoingDir = r.SFTPOutgoingDir
	p.PollSchedule = r.PollSchedule
	if r.SFTPPassword != "" {
		p.SFTPPassword = r.SFTPPassword
	}
	if r.SFTPPrivateKey != "" {
		p.SFTPPrivateKey = r.SFTPPrivateKey
	}

	// Credentials do not survive a switch away from SFTP
	if p.CommunicationMethod != constants.CommunicationSFTP {
		p.SFTPPassword = ""
		p.SFTPPrivateKey = ""
	}
}
