package requests

// OutboundRequest names the ERP record to send and the partner receiving it
type OutboundRequest struct {
	PartnerID string `json:"partner_id" validate:"required"`
	EntityID  string `json:"entity_id" validate:"required"`
}
