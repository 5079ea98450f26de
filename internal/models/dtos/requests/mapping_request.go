package requests

import (
	"infinite-experiment/edigate/internal/constants"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

type MappingRuleRequest struct {
	SourceField  string  `json:"source_field"`
	TargetField  string  `json:"target_field"`
	Transform    string  `json:"transform,omitempty"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// ReplaceMappingsRequest carries the complete ordered rule set of one
// partner and document type
type ReplaceMappingsRequest struct {
	Rules []MappingRuleRequest `json:"rules"`
}

// ToModels numbers the rules in request order
func (r *ReplaceMappingsRequest) ToModels(tenantID, partnerID string, docType constants.DocumentType) []gormModels.EdiFieldMapping {
	out := make([]gormModels.EdiFieldMapping, 0, len(r.Rules))
	for i, rule := range r.Rules {
		out = append(out, gormModels.EdiFieldMapping{
			TenantID:     tenantID,
			PartnerID:    partnerID,
			DocumentType: docType,
			Position:     i + 1,
			SourceField:  rule.SourceField,
			TargetField:  rule.TargetField,
			Transform:    rule.Transform,
			DefaultValue: rule.DefaultValue,
		})
	}
	return out
}
