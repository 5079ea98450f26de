package api

import (
	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos/requests"
	"infinite-experiment/edigate/internal/models/dtos/responses"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ListPartnersHandler handles GET /api/v1/partners
func ListPartnersHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		partners, err := svc.List(r.Context(), tenantID)
		if err != nil {
			respondWithServiceError(w, r, err, "list partners")
			return
		}
		resp := responses.NewListResponse(responses.NewPartnerListResponse(partners))
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// GetPartnerHandler handles GET /api/v1/partners/{id}
func GetPartnerHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		p, err := svc.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
		if err != nil {
			respondWithServiceError(w, r, err, "fetch partner")
			return
		}
		resp := responses.NewPartnerResponse(p)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// CreatePartnerHandler handles POST /api/v1/partners
func CreatePartnerHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		var req requests.PartnerRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		p := req.ToModel(tenantID)
		if err := svc.Create(r.Context(), p); err != nil {
			respondWithServiceError(w, r, err, "create partner")
			return
		}
		resp := responses.NewPartnerResponse(p)
		respondWithSuccess(w, http.StatusCreated, &resp)
	}
}

// UpdatePartnerHandler handles PUT /api/v1/partners/{id}. The body replaces
// the partner's configuration.
func UpdatePartnerHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		var req requests.PartnerRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		p, err := svc.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
		if err != nil {
			respondWithServiceError(w, r, err, "fetch partner")
			return
		}
		req.ApplyTo(p)
		if err := svc.Update(r.Context(), p); err != nil {
			respondWithServiceError(w, r, err, "update partner")
			return
		}
		resp := responses.NewPartnerResponse(p)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// DeactivatePartnerHandler handles DELETE /api/v1/partners/{id}. Partners are
// never removed; their transaction history stays addressable.
func DeactivatePartnerHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		partnerID := chi.URLParam(r, "id")
		if err := svc.Deactivate(r.Context(), tenantID, partnerID); err != nil {
			respondWithServiceError(w, r, err, "deactivate partner")
			return
		}
		p, err := svc.Get(r.Context(), tenantID, partnerID)
		if err != nil {
			respondWithServiceError(w, r, err, "fetch partner")
			return
		}
		resp := responses.NewPartnerResponse(p)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

func documentTypeParam(w http.ResponseWriter, r *http.Request) (constants.DocumentType, bool) {
	docType := constants.DocumentType(strings.TrimSpace(chi.URLParam(r, "docType")))
	if !docType.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Unsupported document type")
		return "", false
	}
	return docType, true
}

// GetMappingsHandler handles GET /api/v1/partners/{id}/mappings/{docType}
func GetMappingsHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}
		docType, ok := documentTypeParam(w, r)
		if !ok {
			return
		}

		partnerID := chi.URLParam(r, "id")
		rules, err := svc.ListMappings(r.Context(), tenantID, partnerID, docType)
		if err != nil {
			respondWithServiceError(w, r, err, "list mappings")
			return
		}
		resp := responses.NewMappingResponse(partnerID, docType, rules)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// ReplaceMappingsHandler handles PUT /api/v1/partners/{id}/mappings/{docType}
func ReplaceMappingsHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}
		docType, ok := documentTypeParam(w, r)
		if !ok {
			return
		}

		var req requests.ReplaceMappingsRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		partnerID := chi.URLParam(r, "id")
		rules := req.ToModels(tenantID, partnerID, docType)
		if err := svc.ReplaceMappings(r.Context(), tenantID, partnerID, docType, rules); err != nil {
			respondWithServiceError(w, r, err, "replace mappings")
			return
		}
		resp := responses.NewMappingResponse(partnerID, docType, rules)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// GetSettingsHandler handles GET /api/v1/settings
func GetSettingsHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		settings, err := svc.GetSettings(r.Context(), tenantID)
		if err != nil {
			respondWithServiceError(w, r, err, "fetch settings")
			return
		}
		if settings == nil {
			respondWithError(w, http.StatusNotFound, "EDI settings are not configured")
			return
		}
		resp := responses.NewSettingsResponse(settings)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// UpdateSettingsHandler handles PUT /api/v1/settings
func UpdateSettingsHandler(svc PartnerManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := requireTenant(w, r)
		if tenantID == "" {
			return
		}

		var req requests.SettingsRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.AS2ID) == "" {
			respondWithError(w, http.StatusBadRequest, "as2_id is required")
			return
		}

		existing, err := svc.GetSettings(r.Context(), tenantID)
		if err != nil {
			respondWithServiceError(w, r, err, "fetch settings")
			return
		}
		settings := req.ToModel(tenantID, existing)
		if err := svc.UpdateSettings(r.Context(), settings); err != nil {
			respondWithServiceError(w, r, err, "update settings")
			return
		}
		resp := responses.NewSettingsResponse(settings)
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
