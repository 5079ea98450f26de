package responses

import (
	"time"

	"infinite-experiment/edigate/internal/constants"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// PartnerResponse is a trading partner without its SFTP credentials
type PartnerResponse struct {
	ID                  string                        `json:"id"`
	Name                string                        `json:"name"`
	CommunicationMethod constants.CommunicationMethod `json:"communication_method"`
	IsActive            bool                          `json:"is_active"`

	DocumentFormat      constants.DocumentFormat `json:"document_format,omitempty"`
	DefaultDocumentType constants.DocumentType   `json:"default_document_type,omitempty"`
	X12SenderID         string                   `json:"x12_sender_id,omitempty"`
	X12ReceiverID       string                   `json:"x12_receiver_id,omitempty"`
	AutoAcknowledge     bool                     `json:"auto_acknowledge"`

	AS2ID                 string `json:"as2_id,omitempty"`
	AS2URL                string `json:"as2_url,omitempty"`
	HasPartnerCertificate bool   `json:"has_partner_certificate"`
	RequestMDN            bool   `json:"request_mdn"`

	SFTPHost        string `json:"sftp_host,omitempty"`
	SFTPPort        int    `json:"sftp_port,omitempty"`
	SFTPUsername    string `json:"sftp_username,omitempty"`
	HasSFTPPassword bool   `json:"has_sftp_password"`
	HasSFTPKey      bool   `json:"has_sftp_private_key"`
	SFTPIncomingDir string `json:"sftp_incoming_dir,omitempty"`
	SFTPOutgoingDir string `json:"sftp_outgoing_dir,omitempty"`
	PollSchedule    string `json:"poll_schedule,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPartnerResponse(p *gormModels.TradingPartner) PartnerResponse {
	return PartnerResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		CommunicationMethod:   p.CommunicationMethod,
		IsActive:              p.IsActive,
		DocumentFormat:        p.DocumentFormat,
		DefaultDocumentType:   p.DefaultDocumentType,
		X12SenderID:           p.X12SenderID,
		X12ReceiverID:         p.X12ReceiverID,
		AutoAcknowledge:       p.AutoAcknowledge,
		AS2ID:                 p.AS2ID,
		AS2URL:                p.AS2URL,
		HasPartnerCertificate: p.PartnerCertificate != "",
		RequestMDN:            p.RequestMDN,
		SFTPHost:              p.SFTPHost,
		SFTPPort:              p.SFTPPort,
		SFTPUsername:          p.SFTPUsername,
		HasSFTPPassword:       p.SFTPPassword != "",
		HasSFTPKey:            p.SFTPPrivateKey != "",
		SFTPIncomingDir:       p.SFTPIncomingDir,
		SFTPOutgoingDir:       p.SFTPOutgoingDir,
		PollSchedule:          p.PollSchedule,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func NewPartnerListResponse(partners []gormModels.TradingPartner) []PartnerResponse {
	out := make([]PartnerResponse, 0, len(partners))
	for i := range partners {
		out = append(out, NewPartnerResponse(&partners[i]))
	}
	return out
}

type MappingRuleResponse struct {
	Position     int     `json:"position"`
	SourceField  string  `json:"source_field"`
	TargetField  string  `json:"target_field"`
	Transform    string  `json:"transform,omitempty"`
	DefaultValue *string `json:"default_value,omitempty"`
}

type MappingResponse struct {
	PartnerID    string                 `json:"partner_id"`
	DocumentType constants.DocumentType `json:"document_type"`
	Rules        []MappingRuleResponse  `json:"rules"`
}

func NewMappingResponse(partnerID string, docType constants.DocumentType, rules []gormModels.EdiFieldMapping) MappingResponse {
	resp := MappingResponse{
		PartnerID:    partnerID,
		DocumentType: docType,
		Rules:        make([]MappingRuleResponse, 0, len(rules)),
	}
	for _, r := range rules {
		resp.Rules = append(resp.Rules, MappingRuleResponse{
			Position:     r.Position,
			SourceField:  r.SourceField,
			TargetField:  r.TargetField,
			Transform:    r.Transform,
			DefaultValue: r.DefaultValue,
		})
	}
	return resp
}

// SettingsResponse never carries the private key
type SettingsResponse struct {
	CompanyName   string    `json:"company_name"`
	AS2ID         string    `json:"as2_id"`
	X12SenderID   string    `json:"x12_sender_id,omitempty"`
	Certificate   string    `json:"certificate,omitempty"`
	HasPrivateKey bool      `json:"has_private_key"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewSettingsResponse(s *gormModels.EdiSettings) SettingsResponse {
	return SettingsResponse{
		CompanyName:   s.CompanyName,
		AS2ID:         s.AS2ID,
		X12SenderID:   s.X12SenderID,
		Certificate:   s.Certificate,
		HasPrivateKey: s.PrivateKey != "",
		UpdatedAt:     s.UpdatedAt,
	}
}
