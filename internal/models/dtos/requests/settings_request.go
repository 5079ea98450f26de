package requests

import gormModels "infinite-experiment/edigate/internal/models/gorm"

// SettingsRequest sets the tenant's AS2 identity. Certificate and key are
// PEM encoded and are replaced together.
type SettingsRequest struct {
	CompanyName string `json:"company_name"`
	AS2ID       string `json:"as2_id" validate:"required"`
	X12SenderID string `json:"x12_sender_id,omitempty"`
	Certificate string `json:"certificate,omitempty"`
	PrivateKey  string `json:"private_key,omitempty"`
}

// ToModel merges the request over the stored settings, if any. A request
// without key material keeps the stored pair.
func (r *SettingsRequest) ToModel(tenantID string, existing *gormModels.EdiSettings) *gormModels.EdiSettings {
	s := &gormModels.EdiSettings{TenantID: tenantID}
	if existing != nil {
		copied := *existing
		s = &copied
	}
	s.CompanyName = r.CompanyName
	s.AS2ID = r.AS2ID
	s.X12SenderID = r.X12SenderID
	if r.Certificate != "" || r.PrivateKey != "" {
		s.Certificate = r.Certificate
		s.PrivateKey = r.PrivateKey
	}
	return s
}
